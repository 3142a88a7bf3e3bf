package alerts

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"fleet-tracking-service/internal/models"
)

// MQTTPublisher pushes each violation to an MQTT topic so external dashboards
// can follow the fleet without polling the API.
type MQTTPublisher struct {
	client      mqtt.Client
	topicPrefix string
}

// NewMQTTPublisher connects to the broker and returns a publisher. Violations
// for a vehicle go to <topicPrefix>/speed/<vehicleID>.
func NewMQTTPublisher(brokerURL, clientID, topicPrefix string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to mqtt broker %s: %w", brokerURL, token.Error())
	}

	log.WithField("broker", brokerURL).Info("Connected to MQTT broker")
	return &MQTTPublisher{client: client, topicPrefix: topicPrefix}, nil
}

// Record publishes the violation as JSON at QoS 0. Broker errors are logged
// from a goroutine so the tick loop never waits on the network.
func (p *MQTTPublisher) Record(v models.SpeedViolation) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).Error("Failed to marshal speed violation")
		return
	}

	topic := fmt.Sprintf("%s/speed/%s", p.topicPrefix, v.VehicleID)
	token := p.client.Publish(topic, 0, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.WithError(token.Error()).WithField("topic", topic).Error("Failed to publish speed violation")
		}
	}()
}

// Close disconnects from the broker, allowing in-flight publishes 250 ms to
// drain.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
