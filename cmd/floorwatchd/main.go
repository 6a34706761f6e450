package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/floorwatch/floorwatch/internal/api"
	"github.com/floorwatch/floorwatch/internal/config"
	"github.com/floorwatch/floorwatch/internal/db"
	"github.com/floorwatch/floorwatch/internal/fov"
	"github.com/floorwatch/floorwatch/internal/fusion"
	"github.com/floorwatch/floorwatch/internal/ingest"
	"github.com/floorwatch/floorwatch/internal/intrusion"
	"github.com/floorwatch/floorwatch/internal/timeutil"
	"github.com/floorwatch/floorwatch/internal/walls"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	dbFile     = flag.String("db", "floorwatch.db", "SQLite database file")
	broker     = flag.String("broker", "tcp://localhost:1883", "MQTT broker URL")
	clientID   = flag.String("client-id", "floorwatchd", "MQTT client id")
	notifyURL  = flag.String("notify-url", "", "Optional webhook for intrusion decisions")
	tuningFile = flag.String("config", "", "Optional tuning JSON file")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	// .env supplies broker credentials in deployments; absence is fine.
	_ = godotenv.Load()

	tuning := config.EmptyTuningConfig()
	if *tuningFile != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*tuningFile)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	store, err := db.Open(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()
	if err := store.MigrateUp(); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	clock := timeutil.RealClock{}
	fuser := fusion.NewFuser(fusion.Config{
		FusionDistance: tuning.GetFusionDistanceM(),
		TrackTimeout:   tuning.GetTrackTimeout(),
	}, clock)
	vectorizer := walls.NewVectorizer(walls.Config{
		Threshold:   float32(tuning.GetWallThreshold()),
		EpsilonFrac: walls.DefaultConfig().EpsilonFrac,
		MinAreaPx:   tuning.GetWallMinAreaPx(),
	})
	fovCfg := fov.Config{
		RangeM:       tuning.GetFOVRangeM(),
		HalfAngleDeg: tuning.GetFOVHalfAngleDeg(),
		NumRays:      tuning.GetFOVNumRays(),
	}

	var next intrusion.Notifier
	if *notifyURL != "" {
		next = intrusion.NewHTTPNotifier(*notifyURL)
	}
	notifier := &db.RecordingNotifier{DB: store, Next: next}

	coordinator := intrusion.NewCoordinator(
		store.Directory(), fuser, notifier, clock,
		intrusion.WithCooldown(tuning.GetTriggerCooldown()),
		intrusion.WithPositionSink(store.Sink()),
	)

	filter := ingest.NewMotionFilter(ingest.FilterConfig{
		MinSpeedMps:  tuning.GetMinSpeedMps(),
		MinDistanceM: tuning.GetMinDistanceM(),
	})
	subscriber := ingest.NewSubscriber(ingest.MQTTConfig{
		BrokerURL: *broker,
		ClientID:  *clientID,
		Username:  os.Getenv("MQTT_USERNAME"),
		Password:  os.Getenv("MQTT_PASSWORD"),
	}, filter, clock, func(cameraSerial string, tracks []ingest.Track) {
		coordinator.HandleTracks(context.Background(), cameraSerial, tracks)
	})

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// MQTT ingest goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := subscriber.Connect(); err != nil {
			log.Printf("failed to connect to broker %s: %v", *broker, err)
			return
		}
		log.Printf("subscribed to %s on %s", ingest.FusionSubscription, *broker)
		<-ctx.Done()
		subscriber.Close()
		log.Print("ingest routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(store, fuser, vectorizer, fovCfg).ServeMux()
		if err := store.AttachAdminRoutes(mux); err != nil {
			log.Printf("failed to attach admin routes: %v", err)
		}

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()
		log.Printf("listening on %s", *listen)

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
