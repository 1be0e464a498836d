// SDLC Engine Runner
//
// Runs a configured pipeline end to end from the command line. With -dry-run
// (the default) a built-in oracle answers every reasoning turn, so pipelines
// can be exercised without an LLM endpoint.
//
// Usage:
//
//	go run ./cmd/sdlcengine -config pipeline.yaml -input "add dark mode"
//	go run ./cmd/sdlcengine -config pipeline.yaml -input "add dark mode" -db runs.db
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/deepline-systems/sdlcengine/deepcore/agentcore"
	"github.com/deepline-systems/sdlcengine/deepcore/checkpoint"
	"github.com/deepline-systems/sdlcengine/deepcore/config"
	"github.com/deepline-systems/sdlcengine/deepcore/mcptools"
	"github.com/deepline-systems/sdlcengine/deepcore/observability"
	"github.com/deepline-systems/sdlcengine/deepcore/orchestrator"
	"github.com/deepline-systems/sdlcengine/deepcore/toolcall"
	"github.com/deepline-systems/sdlcengine/eventbus"
)

// stdLogger implements the deepcore Logger using standard library log.
type stdLogger struct{}

func (l *stdLogger) Debug(msg string, keysAndValues ...any) {
	log.Printf("[DEBUG] %s %v", msg, keysAndValues)
}

func (l *stdLogger) Info(msg string, keysAndValues ...any) {
	log.Printf("[INFO] %s %v", msg, keysAndValues)
}

func (l *stdLogger) Warn(msg string, keysAndValues ...any) {
	log.Printf("[WARN] %s %v", msg, keysAndValues)
}

func (l *stdLogger) Error(msg string, keysAndValues ...any) {
	log.Printf("[ERROR] %s %v", msg, keysAndValues)
}

func (l *stdLogger) Bind(fields ...any) toolcall.Logger { return l }

// dryRunOracle answers reasoning turns with a canned draft and always decides
// to complete with high confidence. It exists so pipeline wiring, events,
// checkpoints and reports can be exercised without an LLM.
type dryRunOracle struct{}

func (dryRunOracle) Complete(ctx context.Context, req agentcore.CompletionRequest) (*agentcore.Completion, error) {
	last := ""
	if len(req.Messages) > 0 {
		last = req.Messages[len(req.Messages)-1].Content
	}
	if strings.Contains(last, `"decision"`) {
		return &agentcore.Completion{
			Text: `{"decision": "complete", "confidence": "high", "reasoning": "dry run"}`,
		}, nil
	}
	firstLine := last
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	return &agentcore.Completion{Text: "[dry-run] draft for: " + firstLine}, nil
}

// splitCommand splits a command line into executable and arguments.
// Blank or whitespace-only input yields ok=false.
func splitCommand(line string) (command string, args []string, ok bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", nil, false
	}
	return parts[0], parts[1:], true
}

func main() {
	configPath := flag.String("config", "pipeline.yaml", "pipeline config file")
	input := flag.String("input", "", "pipeline input (the request to process)")
	dbPath := flag.String("db", "", "checkpoint database path (empty = in-memory)")
	otlpEndpoint := flag.String("otlp", "", "OTLP endpoint for tracing (empty = disabled)")
	mcpCommand := flag.String("mcp-command", "", "MCP server command for tool discovery (empty = none)")
	dryRun := flag.Bool("dry-run", true, "use the built-in oracle instead of an LLM")
	flag.Parse()

	logger := &stdLogger{}
	ctx := context.Background()

	if *input == "" {
		log.Fatal("-input is required")
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to load pipeline config: %v", err)
	}
	logger.Info("pipeline_config_loaded", "pipeline", cfg.Name, "stages", len(cfg.Stages))

	if *otlpEndpoint != "" {
		shutdown, err := observability.InitTracer("sdlcengine", *otlpEndpoint)
		if err != nil {
			log.Fatalf("Failed to initialize tracing: %v", err)
		}
		defer func() {
			if err := shutdown(ctx); err != nil {
				logger.Warn("tracer_shutdown_failed", "error", err.Error())
			}
		}()
	}

	registry := toolcall.NewRegistry()
	if *mcpCommand != "" {
		command, args, ok := splitCommand(*mcpCommand)
		if !ok {
			log.Fatal("-mcp-command must name an executable")
		}
		cli, err := mcptools.Connect(ctx, mcptools.Config{
			Transport: mcptools.TransportStdio,
			Command:   command,
			Args:      args,
		})
		if err != nil {
			log.Fatalf("Failed to connect MCP server: %v", err)
		}
		n, err := mcptools.RegisterTools(ctx, registry, cli, mcptools.Options{Category: "mcp"})
		if err != nil {
			log.Fatalf("Failed to register MCP tools: %v", err)
		}
		logger.Info("mcp_tools_registered", "count", n)
	}
	invoker := toolcall.NewInvoker(registry, logger,
		toolcall.WithLimiter(toolcall.NewLimiter(toolcall.LimitConfig{CallsPerMinute: 120})),
	)

	var store checkpoint.Store
	if *dbPath != "" {
		sqliteStore, err := checkpoint.NewSQLiteStore(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open checkpoint store: %v", err)
		}
		defer sqliteStore.Close()
		store = sqliteStore
	} else {
		store = checkpoint.NewMemoryStore()
	}

	bus := eventbus.NewInMemoryBus()
	bus.AddMiddleware(eventbus.NewLoggingMiddleware())

	var oracle agentcore.Oracle
	if *dryRun {
		oracle = dryRunOracle{}
	} else {
		log.Fatal("no LLM oracle configured; run with -dry-run or embed the engine with your own oracle")
	}

	orch, err := orchestrator.New(cfg, oracle, invoker, logger,
		orchestrator.WithBus(bus),
		orchestrator.WithStore(store),
	)
	if err != nil {
		log.Fatalf("Failed to build orchestrator: %v", err)
	}

	state, err := orch.Run(ctx, *input)
	if err != nil {
		log.Fatalf("Pipeline run failed: %v", err)
	}

	report := orchestrator.Report(cfg, state)
	fmt.Println()
	fmt.Print(report.Render())
	if state.Status == orchestrator.StatusPendingApproval {
		fmt.Printf("\nRun %s is suspended awaiting approval for stage %q.\n", state.RunID, state.Pending.Stage)
		fmt.Println("Resume it programmatically via orchestrator.Resume with the checkpointed state.")
	}
}
