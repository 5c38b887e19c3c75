// Talon orchestrator server - exposes the HTTP API, runs the engagement
// worker pool, and drives adapter execution under the policy engine.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/talonsec/talon/pkg/adapter"
	"github.com/talonsec/talon/pkg/adapters"
	"github.com/talonsec/talon/pkg/agent"
	"github.com/talonsec/talon/pkg/api"
	"github.com/talonsec/talon/pkg/cleanup"
	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/events"
	"github.com/talonsec/talon/pkg/llm"
	"github.com/talonsec/talon/pkg/masking"
	"github.com/talonsec/talon/pkg/models"
	"github.com/talonsec/talon/pkg/orchestrator"
	"github.com/talonsec/talon/pkg/plugin"
	"github.com/talonsec/talon/pkg/policy"
	"github.com/talonsec/talon/pkg/runner"
	"github.com/talonsec/talon/pkg/slack"
	"github.com/talonsec/talon/pkg/store"
	"github.com/talonsec/talon/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	listenAddr := flag.String("listen",
		":"+getEnv("HTTP_PORT", "8080"),
		"HTTP listen address")
	flag.Parse()

	// Load .env from the config directory before anything reads the
	// environment.
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	}

	slog.Info("Starting Talon",
		"version", version.Full(),
		"listen", *listenAddr,
		"config_dir", *configDir)

	ctx := context.Background()

	// 1. Configuration
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}
	stats := cfg.Stats()
	slog.Info("Configuration loaded", "adapters", stats.Adapters, "agents", stats.Agents)

	// 2. Persistent store
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		slog.Error("Failed to open store", "type", cfg.Store.Type, "error", err)
		os.Exit(1)
	}

	// 3. Policy engine - the single authority for target authorization and
	// rate limiting.
	engine, err := policy.NewEngine(cfg.Policy)
	if err != nil {
		slog.Error("Failed to build policy engine", "error", err)
		os.Exit(1)
	}

	// 4. Masking, evidence, runners, plugin manager
	maskSvc := masking.NewService(cfg.AdapterRegistry)
	evidence := adapter.NewEvidenceWriter(cfg.Evidence.Dir, maskSvc)
	deps := adapters.Deps{
		Process:   runner.NewProcessRunner(),
		Container: runner.NewContainerRunner(ctx),
		Evidence:  evidence,
	}
	manager := plugin.NewManager(cfg.AdapterRegistry, engine, deps)
	slog.Info("Adapters discovered", "names", manager.Discover())

	// 5. LLM planning and analysis
	var llmClient llm.Client
	var llmSvc *llm.Service
	openaiClient, err := llm.NewOpenAIClient(cfg.LLM)
	if err != nil {
		slog.Warn("LLM unavailable, falling back to default scan plans", "error", err)
	} else {
		llmClient = openaiClient
		llmSvc = llm.NewService(llmClient)
	}

	// 6. Tool registry: adapters wrapped behind the manager's chokepoint,
	// agents exposed as delegable tools. The adapter-only snapshot is what
	// the planner plans against; planned steps must be executable.
	toolRegistry := plugin.NewRegistry()
	if regErr := plugin.RegisterAdapters(toolRegistry, manager); regErr != nil {
		slog.Warn("Some adapters could not be registered as tools", "error", regErr)
	}
	scanTools := toolRegistry.Scoped(toolRegistry.Names())

	var plannerDef *config.AgentDefinition
	if llmClient != nil {
		for _, name := range cfg.AgentRegistry.Names() {
			def, defErr := cfg.AgentRegistry.Get(name)
			if defErr != nil {
				continue
			}
			var subOpts []agent.SubAgentOption
			if name == agent.PlannerAgentName {
				subOpts = append(subOpts, agent.WithParentCatalogue(agent.PlannerCatalogueInput))
				plannerDef = def
			}
			toolRegistry.Register(agent.NewSubAgentTool(def, llmClient, toolRegistry, subOpts...))
		}
		slog.Info("Agents registered as tools", "agents", cfg.AgentRegistry.Names())
	}

	// 7. Event bus and Slack notifier
	bus := events.NewBus()
	notifier := slack.NewService(slack.ServiceConfig{
		Token:        os.Getenv(cfg.Slack.TokenEnv),
		Channel:      cfg.Slack.Channel,
		DashboardURL: os.Getenv("DASHBOARD_URL"),
	})
	if notifier == nil {
		slog.Info("Slack notifications disabled")
	}

	// 8. Run service: one orchestrator per run over the shared manager.
	// Planning runs the planner agent through the executor; its activity
	// stream lands on the bus under the run's ID.
	approver := buildApprover(cfg.Defaults)
	factory := func(runID string) *orchestrator.Orchestrator {
		opts := orchestrator.Options{
			RunID:        runID,
			Engine:       engine,
			Runner:       manager,
			Masker:       maskSvc,
			Bus:          bus,
			Approver:     approver,
			PassiveTools: cfg.PassiveTools(),
		}
		if llmSvc != nil {
			opts.Analyzer = llmSvc
		}
		switch {
		case llmClient != nil && plannerDef != nil:
			sink := events.ActivitySink(bus, runID)
			opts.Planner = agent.NewPlanner(plannerDef, llmClient, scanTools, agent.WithActivitySink(sink))
		case llmSvc != nil:
			opts.Planner = llmSvc
		}
		return orchestrator.New(opts)
	}
	runSvc := orchestrator.NewService(factory, st, cfg.Queue)
	runSvc.SetNotifier(notifier)
	runSvc.Start(ctx)

	// 9. Evidence retention sweeper
	sweeper := cleanup.NewService(cfg.Evidence, st)
	sweeper.Start(ctx)

	// 10. HTTP API
	server := api.NewServer(api.Options{
		Store:  st,
		Runs:   runSvc,
		Bus:    bus,
		APIKey: os.Getenv("API_KEY"),
	})

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(*listenAddr); err != nil {
			errCh <- err
		}
	}()
	slog.Info("Talon started", "workers", cfg.Queue.WorkerCount)

	// 11. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 12. Graceful shutdown: API first so no new runs arrive, then the
	// pool, then adapters and the store.
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	runSvc.Stop()
	sweeper.Stop()
	manager.Unload()
	bus.Close()
	if err := st.Close(); err != nil {
		slog.Error("Error closing store", "error", err)
	}
	slog.Info("Shutdown complete")
}

// openStore builds the configured store backend.
func openStore(ctx context.Context, cfg *config.StoreConfig) (store.Store, error) {
	if cfg.Type == config.StoreTypePostgres {
		dsn := os.Getenv(cfg.DSNEnv)
		pg, err := store.NewPostgres(ctx, dsn, store.PostgresOptions{})
		if err != nil {
			return nil, err
		}
		slog.Info("Connected to PostgreSQL store")
		return pg, nil
	}
	slog.Info("Using in-memory store")
	return store.NewMemory(), nil
}

// buildApprover returns the approval gate for active scan steps. With
// approval_required disabled every step passes; enabled, steps are declined
// because no interactive operator channel exists on the server.
func buildApprover(defaults *config.Defaults) orchestrator.Approver {
	required := defaults != nil &&
		defaults.ApprovalRequired != nil && *defaults.ApprovalRequired
	if !required {
		return func(models.WorkflowStep) bool { return true }
	}
	return nil
}
