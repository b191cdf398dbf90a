package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/resiliate/resiliate/internal/breaker"
	"github.com/resiliate/resiliate/internal/debug"
	"github.com/resiliate/resiliate/internal/probe"
	"github.com/resiliate/resiliate/internal/tui"
	"github.com/resiliate/resiliate/pkg/config"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("\n❌ Fatal error: %v\n", r)
			os.Exit(1)
		}
	}()

	runtime.GOMAXPROCS(runtime.NumCPU())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\n⚠️  Received interrupt signal, shutting down gracefully...")
		cancel()
		time.Sleep(500 * time.Millisecond)
	}()

	var (
		configPath  string
		url         string
		method      string
		rate        float64
		durationStr string
		concurrency int
		debugMode   bool
	)

	flag.StringVar(&configPath, "config", "", "Path to YAML configuration file")
	flag.StringVar(&configPath, "f", "", "Path to YAML configuration file (shorthand)")
	flag.StringVar(&url, "url", "", "Target endpoint")
	flag.StringVar(&method, "method", "", "HTTP method (GET, POST, etc.)")
	flag.Float64Var(&rate, "rate", 0, "Requests per second")
	flag.StringVar(&durationStr, "duration", "", "Run duration (e.g. 10s, 1m)")
	flag.IntVar(&concurrency, "concurrency", 0, "Number of concurrent workers")
	flag.BoolVar(&debugMode, "debug", false, "Run a single traced request instead of a full probe")
	flag.BoolVar(&debugMode, "d", false, "Run a single traced request (shorthand)")

	flag.Parse()

	var cfg *config.YAMLConfig
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("Error loading config file: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	} else {
		cfg = &config.YAMLConfig{}
	}

	if url != "" {
		cfg.Endpoint = url
	}

	probeCfg := probe.Config{
		Method:      method,
		URLTemplate: cfg.Endpoint,
		Rate:        rate,
		Concurrency: concurrency,
	}
	if probeCfg.Method == "" {
		probeCfg.Method = "GET"
	}
	if durationStr != "" {
		d, err := time.ParseDuration(durationStr)
		if err != nil {
			fmt.Printf("Invalid duration flag: %v\n", err)
			os.Exit(1)
		}
		probeCfg.Duration = d
	}

	startRunning := probeCfg.URLTemplate != "" && probeCfg.Rate > 0 && probeCfg.Duration > 0

	if debugMode {
		if probeCfg.URLTemplate == "" {
			fmt.Println("❌ Debug mode requires -url or -config to set an endpoint.")
			os.Exit(1)
		}
		runDebug(ctx, cfg, probeCfg)
		return
	}

	p := tea.NewProgram(tui.NewModel(&probeCfg, startRunning))
	m, err := p.Run()
	if err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}

	if finalModel, ok := m.(tui.MainModel); ok {
		snap := finalModel.Snapshot()
		if snap.TotalRequests > 0 {
			if err := saveReport("report.json", snap); err != nil {
				fmt.Printf("⚠️  Failed to save report: %v\n", err)
			} else {
				fmt.Println("\n📊 Report saved to report.json")
			}
		}
	}
}

func runDebug(ctx context.Context, cfg *config.YAMLConfig, probeCfg probe.Config) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = probeCfg.URLTemplate
	}
	if cfg.Retry.SafeMethod.Strategy == "" {
		cfg.Retry.SafeMethod.Strategy = "single"
	}

	client, err := config.Build(cfg)
	if err != nil {
		fmt.Printf("❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	var b *breaker.Breaker
	if cfg.CircuitBreaker != nil {
		b = breaker.New(breaker.DefaultConfig(), nil)
	}

	trace := debug.Trace{Method: probeCfg.Method, URL: probeCfg.URLTemplate}
	if err := debug.Run(ctx, client, probeCfg.URLTemplate, b, trace); err != nil {
		fmt.Printf("❌ Debug trace error: %v\n", err)
		os.Exit(1)
	}
}

func saveReport(path string, snap probe.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file %q: %w", path, err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
