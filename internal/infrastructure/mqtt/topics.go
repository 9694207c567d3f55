package mqtt

import "fmt"

// TopicPrefix is the root of every AV topic.
const TopicPrefix = "graylogic/av"

// Topics builds AV MQTT topic names. The zero value is ready to use:
//
//	topic := mqtt.Topics{}.Command("lounge-projector")
//	// graylogic/av/command/lounge-projector
//
// Command and response topics carry the request/reply traffic between the
// dispatcher and the device bridges. Event topics carry dispatcher events
// for anything that wants to watch.
type Topics struct{}

// Command returns the topic device bridges subscribe to.
//
// Example: graylogic/av/command/lounge-projector
func (Topics) Command(deviceID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, deviceID)
}

// Response returns the topic a bridge replies on.
//
// Example: graylogic/av/response/lounge-projector
func (Topics) Response(deviceID string) string {
	return fmt.Sprintf("%s/response/%s", TopicPrefix, deviceID)
}

// Event returns the topic dispatcher events are published on.
//
// Example: graylogic/av/event/lounge-projector
func (Topics) Event(deviceID string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, deviceID)
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: graylogic/av/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// AllResponses matches every device response topic.
//
// Pattern: graylogic/av/response/+
func (Topics) AllResponses() string {
	return TopicPrefix + "/response/+"
}

// AllEvents matches every device event topic.
//
// Pattern: graylogic/av/event/+
func (Topics) AllEvents() string {
	return TopicPrefix + "/event/+"
}

// AllTopics matches all AV traffic.
//
// Pattern: graylogic/av/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
