package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for sensorhub MQTT traffic.
//
//	sensorhub/data/{deviceId}       sensors -> server (reading JSON)
//	sensorhub/readings/{deviceId}   server -> subscribers (stored reading)
//	sensorhub/system/status         server online/offline (retained, LWT)
const (
	// TopicPrefix is the root of every sensorhub topic.
	TopicPrefix = "sensorhub"

	// TopicPrefixData is where sensors publish raw readings.
	TopicPrefixData = TopicPrefix + "/data"

	// TopicPrefixReadings is where stored readings are republished.
	TopicPrefixReadings = TopicPrefix + "/readings"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = TopicPrefix + "/system"
)

// Topics provides builders for sensorhub MQTT topics.
//
//	topic := mqtt.Topics{}.Data("greenhouse-01")
//	// Returns: "sensorhub/data/greenhouse-01"
type Topics struct{}

// Data returns the ingest topic a sensor publishes its readings to.
//
// Example: sensorhub/data/greenhouse-01
func (Topics) Data(deviceID string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixData, deviceID)
}

// Readings returns the topic a stored reading is republished on.
//
// Example: sensorhub/readings/greenhouse-01
func (Topics) Readings(deviceID string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixReadings, deviceID)
}

// SystemStatus returns the system status topic.
//
// Example: sensorhub/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllData returns a pattern matching every device's ingest topic.
//
// Pattern: sensorhub/data/+
func (Topics) AllData() string {
	return TopicPrefixData + "/+"
}

// ParseDataTopic extracts the device id from an ingest topic.
// It reports false for any other topic, including nested levels.
func ParseDataTopic(topic string) (deviceID string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefixData+"/")
	if !found || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
