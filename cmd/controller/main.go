// Package main is the entry point for the prodplane controller.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prodplane/internal/broadcast"
	"prodplane/internal/config"
	"prodplane/internal/controller"
	"prodplane/internal/erp"
	"prodplane/internal/logger"
	"prodplane/internal/natsclient"
	"prodplane/internal/observability"
	"prodplane/internal/scheduler"
	"prodplane/internal/store"
	"prodplane/internal/store/postgres"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	// Load Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New()

	// Setup Database
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Close()

	// Run migrations if requested
	if *migrateFlag {
		log.Println("Running database migrations...")
		if err := postgres.Migrate(db.DB()); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
	}

	// Seed the fleet on first boot. A populated machines table wins over
	// the configured shape.
	if err := db.EnsureFleet(ctx, seedFleet(cfg)); err != nil {
		log.Fatalf("Failed to provision fleet: %v", err)
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "prodplane-controller", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()

	registerFleetGauges(db)

	// Optional event mirroring to NATS.
	var bus broadcast.BusPublisher
	if cfg.NATSURL != "" {
		publisher, err := natsclient.NewPublisher(cfg.NATSURL, slogger)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer publisher.Close()
		bus = publisher
	}
	hub := broadcast.New(bus, slogger)

	erpClient := erp.NewClient(erp.Config{
		BaseURL:   cfg.ERPURL,
		APIKey:    cfg.ERPAPIKey,
		APISecret: cfg.ERPAPISecret,
		Timeout:   cfg.ERPTimeout,
	}, slogger)
	if !erpClient.Configured() {
		slogger.Warn("no order source configured, running on scheduled jobs only")
	}

	sched := scheduler.New(db, erpClient, erpClient, hub, slogger, scheduler.Config{
		SyncInterval:    cfg.SyncInterval,
		TickInterval:    cfg.TickInterval,
		AlertInterval:   cfg.AlertInterval,
		HistoryInterval: cfg.HistoryInterval,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := sched.Run(runCtx); err != nil && err != context.Canceled {
			log.Printf("Scheduler stopped: %v", err)
		}
	}()

	// Start Server
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, db, sched, hub, metricsHandler)

	go func() {
		log.Printf("Prodplane Controller starting on %s", addr)
		if err := srv.Run(runCtx); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down controller...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	select {
	case <-sched.Done():
	case <-shutdownCtx.Done():
		log.Println("Scheduler did not stop in time")
	}
	log.Println("Server exited properly")
}

// seedFleet builds the initial machine set from the configured shape.
// Machine ids are globally unique and stable across restarts.
func seedFleet(cfg *config.Config) []store.Machine {
	now := time.Now().UTC()
	var machines []store.Machine
	id := int64(1)
	for _, location := range cfg.FleetLocations {
		for n := 1; n <= cfg.MachinesPerLocation; n++ {
			machines = append(machines, store.Machine{
				ID:             id,
				Location:       location,
				Name:           fmt.Sprintf("Machine %d", n),
				Status:         store.MachineStatusFree,
				SecondsPerUnit: cfg.DefaultRateSeconds,
				Version:        1,
				CreatedAt:      now,
				UpdatedAt:      now,
			})
			id++
		}
	}
	return machines
}

// registerFleetGauges exposes fleet health as observable gauges that
// query the DB only when scraped.
func registerFleetGauges(db *postgres.Store) {
	meter := otel.Meter("prodplane-controller")

	_, err := meter.Int64ObservableGauge("prodplane.machines.running",
		metric.WithDescription("Number of machines currently producing"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			machines, err := db.ListMachinesByStatus(ctx, store.MachineStatusRunning)
			if err != nil {
				log.Printf("Failed to count running machines: %v", err)
				return nil // Don't crash metrics scrape on DB error
			}
			obs.Observe(int64(len(machines)))
			return nil
		}),
	)
	if err != nil {
		log.Printf("Failed to register running machines metric: %v", err)
	}

	_, err = meter.Int64ObservableGauge("prodplane.jobs.queued",
		metric.WithDescription("Number of scheduled jobs waiting for a machine"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			jobs, err := db.ListUnassignedScheduledJobs(ctx)
			if err != nil {
				log.Printf("Failed to count queued jobs: %v", err)
				return nil
			}
			obs.Observe(int64(len(jobs)))
			return nil
		}),
	)
	if err != nil {
		log.Printf("Failed to register queued jobs metric: %v", err)
	}
}
