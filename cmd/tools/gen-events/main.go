// gen-events publishes synthetic camera fusion messages to an MQTT broker.
// It walks a handful of fake tracks around a reference coordinate so a
// development instance has live traffic to chew on.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

var (
	broker   = flag.String("broker", "tcp://localhost:1883", "MQTT broker URL")
	serials  = flag.String("cameras", "B8A44F9EED3B", "Comma-separated camera serials")
	interval = flag.Duration("interval", time.Second, "Publish interval per camera")
	tracks   = flag.Int("tracks", 2, "Concurrent synthetic tracks per camera")
	refLat   = flag.Float64("lat", 58.39590610056573, "Reference latitude")
	refLon   = flag.Float64("lon", 15.577997451724473, "Reference longitude")
)

type walker struct {
	id       string
	lat, lon float64
	bearing  float64
}

func newWalker(lat, lon float64) *walker {
	return &walker{
		id:      uuid.NewString(),
		lat:     lat + rand.Float64()*1e-4,
		lon:     lon + rand.Float64()*1e-4,
		bearing: rand.Float64() * 2 * math.Pi,
	}
}

// step moves roughly one meter in the current bearing with a little jitter.
func (w *walker) step() {
	w.bearing += (rand.Float64() - 0.5) * 0.6
	const degPerMeterLat = 1.0 / 111320.0
	degPerMeterLon := degPerMeterLat / math.Cos(w.lat*math.Pi/180)
	w.lat += math.Cos(w.bearing) * degPerMeterLat
	w.lon += math.Sin(w.bearing) * degPerMeterLon
}

func (w *walker) payload(now time.Time) map[string]any {
	return map[string]any{
		"timestamp": now.UTC().Format(time.RFC3339Nano),
		"tracks": []map[string]any{
			{
				"track_id": w.id,
				"class":    map[string]any{"type": "Human", "score": 0.92},
				"geoposition": map[string]any{
					"latitude":  w.lat,
					"longitude": w.lon,
				},
				"speed": 1.2 + rand.Float64()*0.5,
				"bounding_box": map[string]any{
					"top": 0.2, "bottom": 0.6, "left": 0.3, "right": 0.5,
				},
			},
		},
	}
}

func main() {
	flag.Parse()

	cams := strings.Split(*serials, ",")
	if len(cams) == 0 {
		log.Fatal("at least one camera serial is required")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(*broker).
		SetClientID("gen-events-" + uuid.NewString()[:8]).
		SetUsername(os.Getenv("MQTT_USERNAME")).
		SetPassword(os.Getenv("MQTT_PASSWORD"))
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("failed to connect to %s: %v", *broker, token.Error())
	}
	defer client.Disconnect(250)

	walkers := make(map[string][]*walker, len(cams))
	for _, serial := range cams {
		for i := 0; i < *tracks; i++ {
			walkers[serial] = append(walkers[serial], newWalker(*refLat, *refLon))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	log.Printf("publishing for %d cameras every %v", len(cams), *interval)

	for {
		select {
		case <-ctx.Done():
			log.Print("stopping")
			return
		case now := <-ticker.C:
			for serial, ws := range walkers {
				for _, w := range ws {
					w.step()
					data, err := json.Marshal(w.payload(now))
					if err != nil {
						log.Fatalf("marshal payload: %v", err)
					}
					topic := fmt.Sprintf("axis/%s/analytics/fusion", serial)
					client.Publish(topic, 0, false, data)
				}
			}
		}
	}
}
