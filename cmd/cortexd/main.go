package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/guiperry/KNIRVCONTROLLER/internal/api"
	"github.com/guiperry/KNIRVCONTROLLER/internal/cognitive"
	"github.com/guiperry/KNIRVCONTROLLER/internal/config"
	"github.com/guiperry/KNIRVCONTROLLER/internal/gateway"
	"github.com/guiperry/KNIRVCONTROLLER/internal/host"
	"github.com/guiperry/KNIRVCONTROLLER/internal/recall"
	"github.com/guiperry/KNIRVCONTROLLER/internal/service"
	pgstore "github.com/guiperry/KNIRVCONTROLLER/internal/store"
	"github.com/guiperry/KNIRVCONTROLLER/internal/vectorstore"
)

// attentionDimension matches the engine's fixed attention vector length.
const attentionDimension = 10

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting cortexd...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/cortex.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Initialize the cognitive engine
	engine := cognitive.NewEngine(cfg.Engine.OwnerID, logger)
	engine.InitializeModules(cfg.Engine.FastModules, cfg.Engine.DeepModules)
	if cfg.Engine.HistoryLimit > 0 {
		engine.Profile().HistoryLimit = cfg.Engine.HistoryLimit
	}

	if cfg.Weights.Path != "" {
		data, readErr := os.ReadFile(cfg.Weights.Path)
		if readErr != nil {
			logger.Warn("weights file unreadable, starting unloaded",
				zap.String("path", cfg.Weights.Path), zap.Error(readErr))
		} else if loadErr := engine.Weights().LoadFrom(data); loadErr != nil {
			logger.Warn("weights rejected, starting unloaded", zap.Error(loadErr))
		} else {
			logger.Info("weights loaded", zap.String("path", cfg.Weights.Path))
		}
	}

	// Initialize PostgreSQL store
	var cycleStore *pgstore.Store
	if cfg.Database.Postgres.DSN != "" {
		ps, pgErr := pgstore.New(cfg.Database.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, running without persistence", zap.Error(pgErr))
		} else {
			if mErr := ps.Migrate(context.Background(), "migrations"); mErr != nil {
				logger.Fatal("migration failed", zap.Error(mErr))
			}
			cycleStore = ps
		}
	}

	// Restore persisted personality metrics
	if cycleStore != nil {
		metrics, loadErr := cycleStore.LoadProfileMetrics(context.Background(), cfg.Engine.OwnerID)
		if loadErr != nil {
			logger.Info("no persisted personality profile", zap.String("owner", cfg.Engine.OwnerID))
		} else {
			for name, value := range metrics {
				engine.SetMetric(name, value)
			}
			logger.Info("personality profile restored", zap.Int("metrics", len(metrics)))
		}
	}

	// Initialize the memory association graph
	var graph *recall.Graph
	if cfg.Database.Neo4j.URI != "" {
		g, gErr := recall.New(cfg.Database.Neo4j.URI, cfg.Database.Neo4j.User, cfg.Database.Neo4j.Password, logger)
		if gErr != nil {
			logger.Warn("Neo4j unavailable, running without recall graph", zap.Error(gErr))
		} else if pingErr := g.Ping(context.Background()); pingErr != nil {
			logger.Warn("Neo4j unavailable, running without recall graph", zap.Error(pingErr))
			g.Close(context.Background())
		} else {
			graph = g
		}
	}

	// Initialize the attention trace archive
	var vectors *vectorstore.Client
	if cfg.Database.Qdrant.Host != "" {
		vc, vErr := vectorstore.New(vectorstore.Config{
			Host: cfg.Database.Qdrant.Host,
			Port: cfg.Database.Qdrant.Port,
		})
		if vErr != nil {
			logger.Warn("Qdrant unavailable, running without trace archive", zap.Error(vErr))
		} else if eErr := vc.EnsureCollection(context.Background(), vectorstore.TraceCollection, attentionDimension); eErr != nil {
			logger.Warn("trace collection unavailable, running without trace archive", zap.Error(eErr))
			vc.Close()
		} else {
			vectors = vc
		}
	}

	// Initialize the host link and its Redis bus
	link := host.NewLink(logger)
	var bus *host.Bus
	if cfg.Database.Redis.URL != "" {
		b, busErr := host.NewBus(cfg.Database.Redis.URL, logger)
		if busErr != nil {
			logger.Warn("Redis unavailable, running without host bus", zap.Error(busErr))
		} else {
			bus = b
		}
	}

	// Initialize telemetry sinks
	hub := gateway.NewHub(logger)
	if cfg.Notify.Slack.Enabled && cfg.Notify.Slack.BotToken != "" {
		hub.Register(gateway.NewSlackSink(cfg.Notify.Slack.BotToken, cfg.Notify.Slack.Channel, logger))
	}
	if cfg.Notify.Discord.Enabled && cfg.Notify.Discord.BotToken != "" {
		hub.Register(gateway.NewDiscordSink(cfg.Notify.Discord.BotToken, cfg.Notify.Discord.ChannelID, logger))
	}
	if cfg.Notify.Webhook.Enabled && cfg.Notify.Webhook.URL != "" {
		hub.Register(gateway.NewWebhookSink(cfg.Notify.Webhook.URL, logger))
	}
	if err := hub.ConnectAll(context.Background()); err != nil {
		logger.Warn("some telemetry sinks failed to connect", zap.Error(err))
	}

	processor := service.New(engine, cfg.Engine.OwnerID, service.Options{
		Cycles:  cycleStore,
		Graph:   graph,
		Vectors: vectors,
		Link:    link,
		Bus:     bus,
		Hub:     hub,
	}, logger)

	// Build HTTP handler
	handler := api.NewHandler(processor, logger)

	// Start server
	port := fmt.Sprintf("%d", cfg.Server.Port)
	if port == "0" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("cortexd listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down cortexd...")
	ctx := context.Background()
	srv.Shutdown(ctx)
	if graph != nil {
		graph.Close(ctx)
	}
	if vectors != nil {
		vectors.Close()
	}
	if bus != nil {
		bus.Close()
	}
	if cycleStore != nil {
		cycleStore.Close()
	}
	hub.Close()
}
