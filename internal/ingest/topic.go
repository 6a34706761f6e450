package ingest

import "regexp"

// FusionSubscription is the wildcard topic the broker subscription uses.
const FusionSubscription = "axis/+/analytics/fusion/#"

// fusionTopicRE matches fusion analytics topics and captures the camera
// serial from the second segment. Matching is case-insensitive and any
// trailing subtopic is accepted.
var fusionTopicRE = regexp.MustCompile(`(?i)^axis/([^/]+)/analytics/fusion(?:/.*)?$`)

// IsFusionTopic reports whether topic carries fusion tracker payloads.
func IsFusionTopic(topic string) bool {
	return fusionTopicRE.MatchString(topic)
}

// CameraSerial extracts the camera serial from a fusion topic.
func CameraSerial(topic string) (string, bool) {
	m := fusionTopicRE.FindStringSubmatch(topic)
	if m == nil {
		return "", false
	}
	return m[1], true
}
