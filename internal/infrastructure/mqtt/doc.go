// Package mqtt provides the broker connection for Gray Logic AV.
//
// Device bridges (serial, IP and IR gateways) sit on the other side of the
// broker. The dispatcher's MQTT transport publishes commands to
// graylogic/av/command/{device_id} and reads replies from
// graylogic/av/response/{device_id}; dispatcher events are mirrored to
// graylogic/av/event/{device_id}.
//
//	Dispatcher ↔ MQTT Broker ↔ Device Bridges
//
// The client reconnects with exponential backoff, replays subscriptions on
// reconnect and keeps a retained status on graylogic/av/system/status,
// backed by a Last Will so a crash shows up as offline.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllResponses(), 1,
//	    func(topic string, payload []byte) error {
//	        return handle(topic, payload)
//	    })
//
// TLS should be enabled (broker.tls) anywhere outside a lab network.
package mqtt
