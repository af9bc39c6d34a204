// Package main provides the entry point for debugger-mcp-server.
//
// debugger-mcp-server is a crash-dump analysis service exposing a single
// operation surface (internal/facade) over two MCP transports: stdio (for
// a locally spawned assistant subprocess) and HTTP+SSE (for a remote one).
//
// Usage:
//
//	debugger-mcp              Start the service (default: stdio + optional HTTP)
//	debugger-mcp serve        Start the service
//	debugger-mcp version      Show version
//	debugger-mcp init-config  Create example configuration file
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/aianalysis"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/config"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/crashindex"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/driver"
	_ "github.com/tonyredondo/debugger-mcp-server-sub012/internal/driver/lldbdriver"
	_ "github.com/tonyredondo/debugger-mcp-server-sub012/internal/driver/windbgdriver"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/facade"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/logger"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/mcpserver"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/session"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/watchstore"
)

// version is set via -ldflags at build time.
var version = "dev"

var configPath string

func main() {
	args := os.Args[1:]
	command := ""
	cmdArgs := []string{}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "-"):
			// unknown flag, ignored
		case command == "":
			command = arg
		default:
			cmdArgs = append(cmdArgs, arg)
		}
	}
	if command == "" {
		command = "serve"
	}

	var err error
	switch command {
	case "serve", "start":
		err = cmdServe()
	case "version", "-v", "--version":
		fmt.Printf("debugger-mcp-server version %s\n", version)
	case "init-config":
		err = cmdInitConfig()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`debugger-mcp-server - crash-dump analysis service

Usage:
  debugger-mcp [flags] [command]

Commands:
  serve         Start the service (default)
  version       Show version information
  init-config   Create example configuration file
  help          Show this help

Flags:
  --config PATH   Path to configuration file (default: ~/.debugger-mcp/config.toml)

Environment:
  GEMINI_API_KEY       API key for AI-assisted analysis (optional)
  DEBUGGER_MCP_CONFIG  Path to configuration file (alternative to --config)`)
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("DEBUGGER_MCP_CONFIG"); envPath != "" {
		return envPath
	}
	return config.DefaultConfigPath()
}

func cmdInitConfig() error {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := config.WriteExampleConfig(path); err != nil {
		return err
	}
	fmt.Printf("Created example configuration: %s\n", path)
	return nil
}

// arborLogger adapts arbor.ILogger to facade.Logger's minimal surface.
type arborLogger struct {
	l arbor.ILogger
}

func (a arborLogger) Info(msg string, kv ...any) {
	e := a.l.Info()
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			e = e.Str(key, fmt.Sprint(kv[i+1]))
		}
	}
	e.Msg(msg)
}

func (a arborLogger) Error(msg string, kv ...any) {
	e := a.l.Error()
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			e = e.Str(key, fmt.Sprint(kv[i+1]))
		}
	}
	e.Msg(msg)
}

func cmdServe() error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	arborLog := logger.SetupLogger(cfg)
	defer logger.Stop()
	log := arborLogger{l: arborLog}

	sessions := session.NewManager(session.Options{
		MaxSessionsPerOwner: cfg.Session.MaxSessionsPerOwner,
		MaxSessionsTotal:    cfg.Session.MaxSessionsTotal,
		InactivityTimeout:   time.Duration(cfg.Session.InactivityTimeoutMin) * time.Minute,
		SweepInterval:       time.Duration(cfg.Session.SweepIntervalSec) * time.Second,
	})
	defer sessions.Shutdown()

	watches, err := watchstore.New(cfg.Service.DataDir+"/watches", func(owner, dumpID string) {})
	if err != nil {
		return fmt.Errorf("create watch store: %w", err)
	}

	f := facade.New(cfg, sessions, watches, log, driverFactory(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ai, err := aianalysis.New(ctx, cfg.AI)
	if err != nil {
		log.Error("AI-assisted analysis unavailable", "error", err)
	} else if ai != nil {
		f.SetAI(ai, crashindex.New())
		log.Info("AI-assisted analysis enabled", "model", cfg.AI.Model)
	}

	if cfg.MCP.HTTPEnabled {
		httpServer := mcpserver.NewHTTPServer(f, cfg.Security.APIKey)
		go func() {
			addr := cfg.Address()
			log.Info("starting HTTP+SSE MCP transport", "address", addr)
			if err := serveHTTP(ctx, addr, httpServer.Handler()); err != nil {
				log.Error("HTTP transport stopped", "error", err)
			}
		}()
	}

	if cfg.MCP.StdioEnabled {
		stdio := mcpserver.NewStdioServer(f, version)
		log.Info("serving MCP over stdio", "version", version)
		return stdio.ServeStdio()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh
	return nil
}

func driverFactory(cfg *config.Config) facade.DriverFactory {
	return func(dcfg config.DriverConfig, dumpPath string) (driver.Driver, error) {
		opts := driver.Options{
			ExecutablePath: dcfg.ExecutablePath,
			StartupTimeout: time.Duration(dcfg.StartupTimeoutSec) * time.Second,
		}
		family := driver.Family(dcfg.Backend)
		if dcfg.Backend == "auto" {
			family = ""
		}
		return driver.Detect(opts, family)
	}
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
