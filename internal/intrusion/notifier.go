package intrusion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Decision is one intrusion event: a fused track inside an armed zone.
type Decision struct {
	EventID    string    `json:"event_id"`
	CameraID   int64     `json:"camera_id"`
	ZoneID     int64     `json:"zone_id"`
	ZoneName   string    `json:"zone_name"`
	TrackID    string    `json:"track_id"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	DetectedAt time.Time `json:"detected_at"`
}

// NewEventID returns a fresh decision id.
func NewEventID() string {
	return uuid.NewString()
}

// Notifier delivers intrusion decisions to the recording/alerting pipeline.
type Notifier interface {
	Notify(ctx context.Context, d Decision) error
}

// HTTPNotifier POSTs decisions as JSON to a fixed endpoint.
type HTTPNotifier struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPNotifier builds a notifier with a short request timeout so a slow
// alerting endpoint cannot stall event processing.
func NewHTTPNotifier(endpoint string) *HTTPNotifier {
	return &HTTPNotifier{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 2 * time.Second},
	}
}

func (n *HTTPNotifier) Notify(ctx context.Context, d Decision) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post decision: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("post decision: unexpected status %s", resp.Status)
	}
	return nil
}
