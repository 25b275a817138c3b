package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	config "surooh/app/configs"
	"surooh/app/core/agent"
	"surooh/app/core/audit"
	"surooh/app/core/brain"
	"surooh/app/core/gate"
	"surooh/app/core/interaction/cli"
	"surooh/app/core/interaction/gateway"
	httpchannel "surooh/app/core/interaction/http"
	"surooh/app/core/knowledge"
	"surooh/app/core/memory"
	"surooh/app/core/orchestrator"
	"surooh/app/core/orchestrator/db"
	"surooh/app/core/queue"
	"surooh/app/core/reasoner"
	"surooh/app/core/scheduler"
	"surooh/app/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	if err := logger.Init("output/logs"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("Surooh Core Starting...")

	cfgManager, err := config.NewManager(config.DefaultPath())
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	cfg := cfgManager.Get()

	database, err := db.NewSQLiteDB("output/db")
	if err != nil {
		logger.Error("Failed to initialize DB: %v", err)
		os.Exit(1)
	}
	defer database.Close()
	logger.Info("Database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	know := knowledge.NewStore(cfg.Brain.InsightHistoryLimit, cfg.Brain.PatternThreshold)
	mem := memory.NewStore(cfg.Memory.ContextLimit, cfg.Memory.ChunkSizeWords, cfg.Memory.SearchThreshold)
	auditLog := audit.NewLog(database)

	reasonerClient := reasoner.NewClient(
		os.Getenv("OPENAI_API_KEY"),
		cfg.Reasoner.Model,
		time.Duration(cfg.Reasoner.TimeoutSec)*time.Second,
	)

	jobs := queue.New(cfg.Orchestrator.QueueBuffer)
	if err := jobs.Start(ctx, cfg.Orchestrator.QueueWorkers); err != nil {
		logger.Error("Failed to start dispatch queue: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := jobs.Stop(5 * time.Second); err != nil {
			logger.Error("Dispatch queue shutdown: %v", err)
		}
	}()

	workerAgents := make([]orchestrator.WorkerAgent, 0, len(cfg.Orchestrator.Agents))
	for _, a := range cfg.Orchestrator.Agents {
		workerAgents = append(workerAgents, orchestrator.WorkerAgent{
			Name:     a.Name,
			Category: a.Category,
			Endpoint: a.Endpoint,
		})
	}
	registry := orchestrator.NewRegistry(workerAgents)
	orch := orchestrator.New(
		orchestrator.NewStore(database),
		registry,
		orchestrator.NewClient(),
		jobs,
		know,
		time.Duration(cfg.Orchestrator.DispatchTimeoutSec)*time.Second,
	)
	classifier := orchestrator.NewClassifier(registry, reasonerClient,
		time.Duration(cfg.Orchestrator.ClassifyTimeoutSec)*time.Second)

	pipeline := brain.New(reasonerClient, know, cfg.Brain.RelevantKnowledgeK, cfg.Brain.PatternThreshold)
	core := agent.New(cfg.Agent.Name, pipeline, classifier, orch, mem, auditLog)

	admission := gate.New(cfg.Gate.Limit, time.Duration(cfg.Gate.WindowSec)*time.Second)
	gw := gateway.New(core, admission)
	gw.RegisterChannel(cli.NewChannel(cfg.Agent.CLIUserID))
	gw.RegisterChannel(httpchannel.NewChannel(cfg.HTTP.Port, httpchannel.Deps{
		Orchestrator: orch,
		Memory:       mem,
		Knowledge:    know,
		Audit:        auditLog,
		Health:       gw.HealthStatus,
	}))

	jobScheduler := scheduler.New()
	if err := jobScheduler.Register(scheduler.Job{
		Name:     "self_review",
		Interval: time.Duration(cfg.Scheduler.SelfReviewIntervalSec) * time.Second,
		Timeout:  time.Minute,
		Run: func(context.Context) error {
			stats := know.Stats()
			logger.Info("Self review: units=%d insights=%d significant_patterns=%v",
				stats.Units, stats.Insights, know.SignificantPatterns())
			return nil
		},
	}); err != nil {
		logger.Error("Failed to register self review job: %v", err)
		os.Exit(1)
	}
	if err := jobScheduler.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := jobScheduler.Stop(3 * time.Second); err != nil {
			logger.Error("Scheduler shutdown timeout: %v", err)
		}
	}()

	go func() {
		if err := gw.Start(ctx); err != nil {
			logger.Error("Gateway crashed: %v", err)
			os.Exit(1)
		}
	}()

	logger.Info("Surooh is ready to serve.")
	fmt.Println("- CLI Interface:  Interactive")
	fmt.Printf("- HTTP Interface: http://localhost:%d/v1/query (POST)\n", cfg.HTTP.Port)
	fmt.Printf("- Health:         http://localhost:%d/health\n", cfg.HTTP.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received signal: %v. Surooh Shutting Down...", sig)
	cancel()
}
