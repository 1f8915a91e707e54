/*
Package main runs typeahead: a suggestion source adapter with an IPC server,
an interactive CLI and a small search backend to point it at.

# Usage

Serve suggestions over msgpack IPC on stdin/stdout (default mode):

	typeahead -remote "http://127.0.0.1:5000/search/_typeahead/%QUERY"

Try a source by hand:

	typeahead -mode cli -prefetch http://127.0.0.1:5000/search/_typeahead/prefetch

Run the search backend the source talks to:

	typeahead -mode backend -entities data/entities.yaml -addr :5000

# Configuration

Settings live in typeahead.toml, created with defaults on first run:

	[source]
	remote_url = "http://127.0.0.1:5000/search/_typeahead/%QUERY"
	wildcard = "%QUERY"
	prefetch_url = ""
	min_length = 1
	limit = 10
	results_path = "results"
	name_key = "name"
	id_key = "id"
	map_ids = true
	timeout_ms = 3000

	[control]
	fuzzy = false

	[backend]
	addr = ":5000"
	entities_file = "entities.yaml"
	max_results = 0

Flags override the file. Logs go to stderr; stdout belongs to the IPC stream.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/typeahead/internal/cli"
	"github.com/bastiangx/typeahead/internal/logger"
	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/bastiangx/typeahead/pkg/backend"
	"github.com/bastiangx/typeahead/pkg/config"
	"github.com/bastiangx/typeahead/pkg/server"
	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.3.0"
	AppName = "typeahead"
)

// main only wires packages together and picks the mode.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	showVersion := flag.Bool("version", false, "Show current version")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	jsonLogs := flag.Bool("json-logs", false, "Log as JSON (backend mode)")
	mode := flag.String("mode", "ipc", "Run mode: ipc, cli or backend")
	configPath := flag.String("config", "", "Path to typeahead.toml")
	rebuild := flag.Bool("rebuild-config", false, "Rewrite the default config file and exit")
	remote := flag.String("remote", "", "Query endpoint with the wildcard in it (overrides config)")
	prefetch := flag.String("prefetch", "", "Prefetch endpoint (overrides config)")
	limit := flag.Int("limit", 0, "Suggestions to display (overrides config)")
	minLen := flag.Int("min", 0, "Minimum fragment length (overrides config)")
	fuzzy := flag.Bool("fuzzy", false, "Fuzzy-match prefetched suggestions")
	addr := flag.String("addr", "", "Backend listen address (overrides config)")
	entities := flag.String("entities", "", "Backend entities YAML file (overrides config)")

	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}
	log.SetOutput(os.Stderr)

	if *rebuild {
		path, err := config.RebuildConfigFile()
		if err != nil {
			log.Fatalf("Failed to rebuild config: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Wrote default config to %s\n", path)
		return
	}

	cfg, usedPath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config: %s", config.GetActiveConfigPath(usedPath))

	if *remote != "" {
		cfg.Source.RemoteURL = *remote
	}
	if *prefetch != "" {
		cfg.Source.PrefetchURL = *prefetch
	}
	if *limit > 0 {
		cfg.Source.Limit = *limit
	}
	if *minLen > 0 {
		cfg.Source.MinLength = *minLen
	}
	if *fuzzy {
		cfg.Control.Fuzzy = true
	}
	if *addr != "" {
		cfg.Backend.Addr = *addr
	}
	if *entities != "" {
		cfg.Backend.EntitiesFile = *entities
	}

	switch *mode {
	case "backend":
		err = runBackend(ctx, cfg, *jsonLogs)
	case "cli":
		err = runCLI(ctx, cfg)
	case "ipc":
		err = runIPC(ctx, cfg)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil && ctx.Err() == nil {
		log.Fatalf("%s: %v", *mode, err)
	}
}

func newControl(ctx context.Context, cfg *config.Config) *suggest.Control {
	src := suggest.NewSource(cfg.SuggestSource(), logger.New("source"))
	control := suggest.NewControlForSource(src, cfg.Control.Fuzzy, logger.New("control"))
	control.Init(ctx)
	return control
}

func runIPC(ctx context.Context, cfg *config.Config) error {
	control := newControl(ctx, cfg)
	srv := server.NewServer(control, os.Stdin, os.Stdout, logger.New("ipc"))
	return srv.Start(ctx)
}

func runCLI(ctx context.Context, cfg *config.Config) error {
	log.SetReportTimestamp(false)
	control := newControl(ctx, cfg)
	log.Debug("CLI settings",
		"remote", cfg.Source.RemoteURL,
		"prefetch", cfg.Source.PrefetchURL,
		"prefetched", control.Prefetched(),
		"limit", cfg.Source.Limit,
		"min", cfg.Source.MinLength)

	printer := logger.NewWithWriter(os.Stdout, "")
	printer.SetLevel(log.InfoLevel)
	return cli.NewInputHandler(control, os.Stdin, printer, cfg.Source.MapIDs).Start(ctx)
}

func runBackend(ctx context.Context, cfg *config.Config, jsonLogs bool) error {
	path := cfg.Backend.EntitiesFile
	if resolver, err := utils.NewPathResolver(); err == nil {
		if resolved, err := resolver.ResolveDataFile(path); err == nil {
			path = resolved
		}
	}

	dir, err := backend.LoadDirectory(path)
	if err != nil {
		return err
	}

	blog := logger.New("backend")
	if jsonLogs {
		blog = logger.NewWithConfig("backend", log.GetLevel(), false, true, log.JSONFormatter)
	}
	return backend.NewServer(dir, cfg.Backend.MaxResults, blog).ListenAndServe(ctx, cfg.Backend.Addr)
}

func printVersion() {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print("[ typeahead ] suggestion source adapter")
	l.Print("", "version", Version)
	l.Print("")
	l.Print("use -h or --help to see available options")
}
