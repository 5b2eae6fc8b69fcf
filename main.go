// ABOUTME: Entry point for the uptime clock
// ABOUTME: Parses CLI flags, wires client, engine and display, and runs until quit
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anymaplay/uptime-go/internal/app"
	"github.com/anymaplay/uptime-go/internal/client"
	"github.com/anymaplay/uptime-go/internal/config"
	"github.com/anymaplay/uptime-go/internal/ui"
	"github.com/anymaplay/uptime-go/internal/version"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

var (
	configPath  = flag.String("config", "", "Optional YAML config file; flags override its values")
	baseURL     = flag.String("base-url", client.DefaultBaseURL, "Uptime service base URL")
	pollEvery   = flag.Duration("poll", 60*time.Second, "Interval between authoritative fetches")
	tickEvery   = flag.Duration("tick", time.Second, "Local clock tick interval")
	retries     = flag.Int("retries", client.DefaultMaxRetries, "Retries after the first attempt of each fetch (0 or -1 disables retrying)")
	retryDelay  = flag.Duration("retry-delay", client.DefaultRetryDelay, "Fixed delay between retries")
	timeout     = flag.Duration("timeout", client.DefaultTimeout, "HTTP request timeout")
	regression  = flag.String("regression", "accept", "Behaviour when a reading is behind the local clock: accept or max")
	logFile     = flag.String("log-file", "uptime.log", "Log file path")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	streamLogs  = flag.Bool("stream-logs", false, "Alias for -no-tui")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal("Configuration error", "err", err)
	}

	// Determine if we should use TUI or streaming logs
	useTUI := !(*noTUI || *streamLogs)

	// Set up logging
	f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatal("Error opening log file", "path", cfg.LogFile, "err", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}
	log.SetReportTimestamp(true)
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	engineConfig, err := cfg.EngineConfig()
	if err != nil {
		log.Fatal("Configuration error", "err", err)
	}

	log.Info("Starting uptime clock", "version", version.Version, "base_url", cfg.BaseURL, "tui", useTUI)

	uptime := client.New(cfg.ClientConfig())

	// Display setup
	var display app.Display
	var controls *ui.Controls
	var tuiProg *tea.Program
	tuiDone := make(chan struct{})

	if useTUI {
		controls = ui.NewControls()
		tuiProg = ui.Run(controls)
		display = ui.NewTeaDisplay(tuiProg)

		go func() {
			defer close(tuiDone)
			if _, err := tuiProg.Run(); err != nil {
				log.Error("TUI error", "err", err)
			}
		}()
	} else {
		display = ui.NewLogDisplay()
	}

	engine := app.NewEngine(uptime, display, engineConfig)
	engine.Start()

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if controls != nil {
		go handlePulse(engine, controls)
		waitForQuit(controls, sigChan, tuiDone)
	} else {
		<-sigChan
		log.Info("Shutdown signal received")
	}

	engine.Stop()

	if tuiProg != nil {
		<-tuiDone
	}

	log.Info("Uptime clock stopped")
}

// loadConfig starts from the config file (or defaults), applies flags the
// user set explicitly, and validates the result
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "base-url":
			cfg.BaseURL = *baseURL
		case "poll":
			cfg.Poll = *pollEvery
		case "tick":
			cfg.Tick = *tickEvery
		case "retries":
			cfg.Retries = *retries
		case "retry-delay":
			cfg.RetryDelay = *retryDelay
		case "timeout":
			cfg.Timeout = *timeout
		case "regression":
			cfg.Regression = *regression
		case "log-file":
			cfg.LogFile = *logFile
		case "debug":
			cfg.Debug = *debug
		}
	})

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// waitForQuit blocks until the user quits the TUI, the program exits, or the OS signals
func waitForQuit(controls *ui.Controls, sigChan <-chan os.Signal, tuiDone <-chan struct{}) {
	select {
	case <-controls.Quit:
		log.Info("Received quit signal from TUI")
	case <-sigChan:
		log.Info("Shutdown signal received")
	case <-tuiDone:
		log.Info("TUI exited")
	}
}

// handlePulse forwards pulse key presses from the TUI to the engine
func handlePulse(engine *app.Engine, controls *ui.Controls) {
	for range controls.Pulse {
		engine.Pulse()
	}
}
