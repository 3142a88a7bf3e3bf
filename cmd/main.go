package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"fleet-tracking-service/internal/alerts"
	"fleet-tracking-service/internal/auth"
	"fleet-tracking-service/internal/config"
	"fleet-tracking-service/internal/db"
	"fleet-tracking-service/internal/fleet"
	"fleet-tracking-service/internal/handlers"
	"fleet-tracking-service/internal/routing"
	"fleet-tracking-service/internal/sim"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, relying on environment")
	}

	cfg, err := config.Load(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	setupLogging(cfg.Server)

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, jobs, disconnect := buildStores(ctx, cfg.Mongo)
	defer disconnect()

	stream := alerts.NewStream(0)
	sink, closeSink := buildSink(cfg.MQTT, stream)
	defer closeSink()

	engine := sim.NewEngine(cfg.Sim.Tuning(), sim.NewRand(seedOrNow(cfg.Fleet.Seed)), sink)
	cfg.Watch(func(fresh config.Config) {
		engine.SetTuning(fresh.Sim.Tuning())
	})

	svc := fleet.NewService(engine, routing.NewClient(cfg.Fleet.OSRMBaseURL), stores, fleet.Options{
		TickInterval: time.Duration(cfg.Fleet.TickSeconds) * time.Second,
		Seed:         cfg.Fleet.Seed,
		FareBase:     cfg.Fleet.FareBase,
		FarePerKm:    cfg.Fleet.FarePerKm,
	})
	svc.SeedFleet(cfg.Fleet.Size)
	go svc.Run(ctx)

	router := handlers.NewRouter(auth.NewService(cfg.Auth.JWTSecret), svc, jobs, stream)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
}

// buildStores connects to MongoDB when a URI is configured. Without one the
// service runs in demo mode: simulation and API stay up, jobs and earnings
// report persistence unavailable.
func buildStores(ctx context.Context, cfg config.MongoConfig) (fleet.Stores, db.JobCollection, func()) {
	if cfg.URI == "" {
		log.Warn("MONGO_URI not set, running in demo mode without persistence")
		return fleet.Stores{}, &db.MongoCollection{}, func() {}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := db.ConnectMongo(connectCtx, cfg.URI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	log.WithField("database", cfg.Database).Info("Connected to MongoDB")

	database := client.Database(cfg.Database)
	jobs := &db.MongoCollection{Collection: database.Collection("jobs")}
	stores := fleet.Stores{
		Vehicles: &db.MongoCollection{Collection: database.Collection("vehicles")},
		Jobs:     jobs,
		Drivers:  &db.MongoDriverCollection{Collection: database.Collection("drivers")},
		Earnings: &db.MongoCollection{Collection: database.Collection("earnings")},
	}
	disconnect := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			log.WithError(err).Error("MongoDB disconnect failed")
		}
	}
	return stores, jobs, disconnect
}

// buildSink decides where violations go. The in-memory stream always records
// so the API can serve them; MQTT is added when enabled and reachable.
func buildSink(cfg config.MQTTConfig, stream *alerts.Stream) (alerts.Sink, func()) {
	if !cfg.Enabled {
		return stream, func() {}
	}

	publisher, err := alerts.NewMQTTPublisher(cfg.BrokerURL, cfg.ClientID, cfg.TopicPrefix)
	if err != nil {
		log.WithError(err).Warn("MQTT broker unreachable, violations stay local")
		return stream, func() {}
	}
	return alerts.Multi{stream, publisher}, publisher.Close
}

func setupLogging(cfg config.ServerConfig) {
	if cfg.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func seedOrNow(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}
