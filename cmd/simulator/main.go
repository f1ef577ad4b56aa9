package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gorilla/mux"

	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/config"
	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/demand"
	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/httpapi"
	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/region"
	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/simulator"
	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/storage"
	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	configPath := getEnv("CONFIG_PATH", "config.yaml")
	regionPath := getEnv("REGION_PATH", "")
	port := getEnv("PORT", "8090")
	runID := getEnv("RUN_ID", "default")

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load simulator config", "path", configPath, "error", err)
		os.Exit(1)
	}

	var reg *region.Region
	if regionPath != "" {
		reg, err = region.LoadFile(regionPath)
	} else {
		reg, err = region.LoadFile(cfg.City)
	}
	if err != nil {
		slog.Error("failed to load region", "error", err)
		os.Exit(1)
	}

	dem, err := demand.Load(cfg.Demand, logger)
	if err != nil {
		slog.Error("failed to load demand stream", "path", cfg.Demand, "error", err)
		os.Exit(1)
	}
	if n := dem.Skipped(); n > 0 {
		slog.Warn("demand stream had malformed rows", "skipped", n)
	}

	sim := simulator.New(*cfg, reg, dem, logger)

	runStore, err := newRunStorage(context.Background())
	if err != nil {
		slog.Error("failed to configure checkpoint storage", "error", err)
		os.Exit(1)
	}
	sim = sim.WithStorage(runStore, runID)

	streamer := telemetry.NewStreamerFromEnv(context.Background(), getEnv("KINESIS_TELEMETRY_STREAM", ""), runID)

	handler := httpapi.NewHandler(sim).WithTelemetry(streamer)
	router := mux.NewRouter()

	pathPrefix := os.Getenv("PATH_PREFIX")
	if pathPrefix != "" {
		simRouter := router.PathPrefix(pathPrefix).Subrouter()
		handler.RegisterRoutes(simRouter)
	} else {
		handler.RegisterRoutes(router)
	}
	router.Use(httpapi.CORSMiddleware)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("simulator service starting", "port", port, "run_id", runID)
		if err := http.ListenAndServe(":"+port, router); err != nil {
			slog.Error("simulator service failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-c
	slog.Info("simulator service shutting down")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// newRunStorage selects the checkpoint storage backend via the
// STORAGE_TYPE env var, mirroring fleet-service/cmd/main.go's switch.
// "memory" (the default) needs no external resources; "dynamodb"
// requires CHECKPOINT_TABLE and ambient AWS credentials.
func newRunStorage(ctx context.Context) (storage.RunStorage, error) {
	switch getEnv("STORAGE_TYPE", "memory") {
	case "dynamodb":
		tableName := getEnv("CHECKPOINT_TABLE", "")
		if tableName == "" {
			return nil, fmt.Errorf("STORAGE_TYPE=dynamodb requires CHECKPOINT_TABLE")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		return storage.NewDynamoDBRunStorage(dynamodb.NewFromConfig(awsCfg), tableName), nil
	default:
		return storage.NewMemoryRunStorage(), nil
	}
}
