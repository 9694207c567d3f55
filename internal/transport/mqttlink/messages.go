package mqttlink

import (
	"time"

	"github.com/nerrad567/gray-logic-av/internal/command"
)

// CommandMessage is published to graylogic/av/command/{device_id}. Payload
// is the raw device payload, base64 encoded by encoding/json.
type CommandMessage struct {
	ID        string        `json:"id"`
	DeviceID  string        `json:"device_id"`
	Command   string        `json:"command"`
	Group     command.Group `json:"group"`
	Polling   bool          `json:"polling,omitempty"`
	Payload   []byte        `json:"payload,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// ResponseMessage is what a bridge publishes to
// graylogic/av/response/{device_id} once the device has answered.
type ResponseMessage struct {
	ID       string `json:"id"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	Response string `json:"response,omitempty"`
}
