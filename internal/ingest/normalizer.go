// Package ingest parses fusion tracker payloads published by the cameras.
//
// Firmware revisions disagree about where the track list lives and what the
// per-track fields are called, so extraction probes a fixed list of known
// shapes rather than decoding into a single struct.
package ingest

import (
	"math"
	"time"
)

var trackIDKeys = []string{"track_id", "id", "uuid", "object_id", "uid"}

var trackListKeys = []string{"tracks", "objects", "observations"}

// BBox is an image-plane bounding box. Fields are nil when the payload did
// not carry them.
type BBox struct {
	Top    *float64
	Bottom *float64
	Left   *float64
	Right  *float64
}

// Center returns the box midpoint. It requires all four edges.
func (b BBox) Center() (x, y float64, ok bool) {
	if b.Left == nil || b.Right == nil || b.Top == nil || b.Bottom == nil {
		return 0, 0, false
	}
	return (*b.Left + *b.Right) / 2, (*b.Top + *b.Bottom) / 2, true
}

// Track is one normalized detection from a fusion payload.
type Track struct {
	CameraSerial string
	TrackID      string
	Confidence   *float64
	ClassType    string
	ClassScore   *float64
	UpperColors  []string
	LowerColors  []string
	BBox         BBox
	Latitude     *float64
	Longitude    *float64
	Speed        *float64
	StartTime    *time.Time
	EventTime    time.Time
	Snapshot     string
	Raw          map[string]any
}

// HasGeo reports whether the track carries a geographic position.
func (t Track) HasGeo() bool {
	return t.Latitude != nil && t.Longitude != nil
}

// ParsePayload normalizes every identifiable track in a decoded fusion
// payload. Tracks with no recognizable id are dropped. now is the fallback
// event time when the payload carries no usable timestamp.
func ParsePayload(cameraSerial string, payload map[string]any, now time.Time) []Track {
	if payload == nil {
		return nil
	}

	envelope := parseTimeField(payload, "timestamp", "eventTime", "time")
	if envelope == nil {
		if msg, ok := asMap(payload["message"]); ok {
			envelope = parseTimeField(msg, "timestamp")
		}
	}

	raws := extractTracks(payload)
	out := make([]Track, 0, len(raws))
	for _, raw := range raws {
		id, ok := extractTrackID(raw)
		if !ok {
			continue
		}

		cls := extractClass(raw)
		t := Track{
			CameraSerial: cameraSerial,
			TrackID:      id,
			ClassType:    cls.typ,
			ClassScore:   cls.score,
			UpperColors:  extractColors(raw, "upper", cls),
			LowerColors:  extractColors(raw, "lower", cls),
			BBox:         extractBBox(raw),
			Speed:        extractSpeed(raw),
			StartTime:    parseTimeField(raw, "start_time", "first_seen"),
			Snapshot:     extractSnapshot(raw),
			Raw:          raw,
		}
		t.Latitude, t.Longitude = extractGeoposition(raw)

		t.Confidence = numField(raw, "confidence", "probability")
		if t.Confidence == nil {
			t.Confidence = cls.score
		}

		eventTime := parseTimeField(raw, "timestamp", "time")
		if eventTime == nil {
			eventTime = envelope
		}
		if eventTime == nil {
			if obs, ok := latestObservation(raw); ok {
				eventTime = parseTimeField(obs, "timestamp")
			}
		}
		if eventTime == nil {
			eventTime = &now
		}
		t.EventTime = *eventTime

		out = append(out, t)
	}
	return out
}

// extractTracks locates the track list inside a payload, probing nesting
// variants in a fixed order. A matching key whose entries all lack ids does
// not stop the probe.
func extractTracks(payload map[string]any) []map[string]any {
	if found := pluckLists(payload); found != nil {
		return found
	}
	if msg, ok := asMap(payload["message"]); ok {
		if found := pluckLists(msg); found != nil {
			return found
		}
	}
	if data, ok := asMap(payload["data"]); ok {
		if found := pluckLists(data); found != nil {
			return found
		}
	}
	if _, ok := extractTrackID(payload); ok {
		return []map[string]any{payload}
	}
	if frame, ok := asMap(payload["frame"]); ok {
		if found := withIDs(asMapList(frame["observations"])); found != nil {
			return found
		}
	}
	return nil
}

func pluckLists(container map[string]any) []map[string]any {
	for _, key := range trackListKeys {
		if _, present := container[key]; !present {
			continue
		}
		if found := withIDs(asMapList(container[key])); found != nil {
			return found
		}
	}
	return nil
}

func withIDs(items []map[string]any) []map[string]any {
	var valid []map[string]any
	for _, item := range items {
		for _, key := range trackIDKeys {
			if _, present := item[key]; present {
				valid = append(valid, item)
				break
			}
		}
	}
	return valid
}

func extractTrackID(track map[string]any) (string, bool) {
	for _, key := range trackIDKeys {
		if v, present := track[key]; present && v != nil {
			return stringify(v), true
		}
	}
	return "", false
}

// latestObservation returns the last entry of a track's observation history.
func latestObservation(track map[string]any) (map[string]any, bool) {
	list, ok := track["observations"].([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}
	return asMap(list[len(list)-1])
}

func extractBBox(track map[string]any) BBox {
	var box map[string]any
	for _, key := range []string{"bounding_box", "bbox", "box", "region"} {
		if m, ok := asMap(track[key]); ok {
			box = m
			break
		}
	}
	if box == nil {
		if img, ok := asMap(track["image"]); ok {
			box, _ = asMap(img["bounding_box"])
		}
	}
	if box == nil {
		if obs, ok := latestObservation(track); ok {
			box, _ = asMap(obs["bounding_box"])
		}
	}
	if box == nil {
		return BBox{}
	}
	return BBox{
		Top:    asFloat(box["top"]),
		Bottom: asFloat(box["bottom"]),
		Left:   asFloat(box["left"]),
		Right:  asFloat(box["right"]),
	}
}

func extractGeoposition(track map[string]any) (lat, lon *float64) {
	var pos map[string]any
	for _, key := range []string{"geoposition", "position", "geographical_coordinate", "location"} {
		if m, ok := asMap(track[key]); ok {
			pos = m
			break
		}
	}
	if pos == nil {
		if obs, ok := latestObservation(track); ok {
			pos, _ = asMap(obs["geoposition"])
		}
	}
	if pos == nil {
		return nil, nil
	}
	lat = numField(pos, "latitude", "lat")
	lon = numField(pos, "longitude", "lon", "lng")
	return lat, lon
}

type classInfo struct {
	typ   string
	score *float64
	upper []string
	lower []string
}

func extractClass(track map[string]any) classInfo {
	var entry map[string]any
	if m, ok := asMap(track["class"]); ok {
		entry = m
	} else if m, ok := asMap(track["classification"]); ok {
		entry = m
	} else if list := asMapList(track["classes"]); len(list) > 0 {
		entry = list[0]
	} else if m, ok := asMap(track["classes"]); ok {
		entry = m
	}
	if entry == nil {
		return classInfo{}
	}
	var typ string
	if s, ok := entry["type"].(string); ok {
		typ = s
	}
	return classInfo{
		typ:   typ,
		score: asFloat(entry["score"]),
		upper: asStringList(entry["upper_clothing_colors"]),
		lower: asStringList(entry["lower_clothing_colors"]),
	}
}

// extractColors resolves upper or lower clothing colors, preferring the
// classification entry over track-level fields.
func extractColors(track map[string]any, key string, cls classInfo) []string {
	if key == "upper" && cls.upper != nil {
		return cls.upper
	}
	if key == "lower" && cls.lower != nil {
		return cls.lower
	}
	if colors := asStringList(track[key+"_clothing_colors"]); colors != nil {
		return colors
	}
	if clothing, ok := asMap(track["clothing"]); ok {
		return asStringList(clothing[key])
	}
	return nil
}

func extractSpeed(track map[string]any) *float64 {
	raw := track["speed"]
	if raw == nil {
		raw = track["velocity"]
	}
	if v := asFloat(raw); v != nil {
		return v
	}
	vec, ok := asMap(raw)
	if !ok {
		return nil
	}
	if mag := asFloat(vec["magnitude"]); mag != nil {
		return mag
	}
	sum := 0.0
	seen := false
	for _, axis := range []string{"x", "y", "z"} {
		if v := asFloat(vec[axis]); v != nil {
			sum += *v * *v
			seen = true
		}
	}
	if !seen {
		return nil
	}
	s := math.Sqrt(sum)
	return &s
}

func extractSnapshot(track map[string]any) string {
	raw := track["snapshot"]
	if raw == nil {
		raw = track["image"]
	}
	if s, ok := raw.(string); ok {
		return s
	}
	if m, ok := asMap(raw); ok {
		if s, ok := m["data"].(string); ok {
			return s
		}
		if s, ok := m["base64"].(string); ok {
			return s
		}
	}
	return ""
}
