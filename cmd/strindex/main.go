// Copyright 2025 The strindex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the strindex search server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

strindex loads a dictionary of records, builds a composite in-memory index
over their keys (a Bloom filter for fast negative answers, a Patricia trie
for prefix queries and a raw record map for substring and fuzzy scans) and
answers searches either over MessagePack IPC or from an interactive prompt.

# Usage

Start the server with default settings:

	strindex

Use a custom dictionary and enable debug mode:

	strindex -data /path/to/words.msgpack -d

Run in CLI mode for interactive testing:

	strindex -c -limit 10

The data path may be a single .json, .msgpack or .txt file, or a directory
holding any number of them.

# Configuration

Runtime configuration is read from a TOML file, created with defaults when
missing:

	[index]
	filter_size = 100000
	hash_count = 4
	max_results = 50
	fuzzy_threshold = 0.6
	hybrid_threshold = 5
	default_search_type = "prefix"

	[metrics]
	enabled = true
	addr = "127.0.0.1:9464"

# Command Line Flags

	-config string
	    Path to a config file (default [UserConfigDir]/strindex/config.toml)
	-data string
	    Dictionary file or directory (default "data/")
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-limit int
	    Number of results to return in CLI mode (default from config)
	-metrics string
	    Serve Prometheus metrics on this address, overriding the config
	-version
	    Show current version
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bastiangx/strindex/internal/cli"
	"github.com/bastiangx/strindex/internal/logger"
	"github.com/bastiangx/strindex/internal/metrics"
	"github.com/bastiangx/strindex/internal/utils"
	"github.com/bastiangx/strindex/pkg/config"
	"github.com/bastiangx/strindex/pkg/dictionary"
	"github.com/bastiangx/strindex/pkg/index"
	"github.com/bastiangx/strindex/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	Version = "0.3.0-beta"
	AppName = "strindex"
	gh      = "https://github.com/bastiangx/strindex"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main wires config, dictionary, index and the chosen front end.
// It does not implement logic for them and only manages the flow.
func main() {
	sigHandler()

	showVersion := flag.Bool("version", false, "Show current version")
	configPath := flag.String("config", "", "Path to a custom config file")
	dataPath := flag.String("data", "data/", "Dictionary file or directory (.json, .msgpack, .txt)")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", 0, "Number of results to return in CLI mode (0 uses the config)")
	metricsAddr := flag.String("metrics", "", "Serve Prometheus metrics on this address")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	appConfig, usedPath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.SetFormatter(logger.FormatterFor(appConfig.Log.Format))
	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else if err := logger.SetLevel(appConfig.Log.Level); err != nil {
		log.Warnf("Unknown log level %q, using warn", appConfig.Log.Level)
		log.SetLevel(log.WarnLevel)
	}
	log.Debugf("Using config file: (%s)", usedPath)

	opts := []index.Option{
		index.WithConfig(appConfig.Index),
		index.WithLogger(logger.New("index")),
	}

	if *metricsAddr != "" {
		appConfig.Metrics.Enabled = true
		appConfig.Metrics.Addr = *metricsAddr
	}
	if appConfig.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, index.WithObserver(metrics.New(reg)))

		shutdown := metrics.StartServer(appConfig.Metrics.Addr, reg, logger.New("metrics"))
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	ix, err := index.New(dictionary.Fields, opts...)
	if err != nil {
		log.Fatalf("Invalid index config: %v", err)
	}

	load := func() ([]dictionary.Entry, error) {
		entries, stats, err := dictionary.LoadPath(*dataPath)
		if err != nil {
			return nil, err
		}
		log.Debugf("Loaded %s entries from %d files in %v (%d failed)",
			utils.FormatWithCommas(stats.Entries), stats.Files, stats.Duration, stats.Failed)
		return entries, nil
	}

	if entries, err := load(); err != nil {
		log.Warnf("No dictionary loaded from %s (%v), running with an empty index...", *dataPath, err)
	} else {
		stats := ix.Build(entries)
		log.Debug("Index ready",
			"items", stats.ItemCount,
			"skipped", stats.Skipped,
			"took", utils.FormatMillis(stats.BuildTimeMs))
	}

	// CLI would be mainly used for testing and dbg purposes.
	if *cliMode {
		log.SetReportTimestamp(false)
		if *limit > 0 {
			appConfig.CLI.DefaultLimit = *limit
		}
		inputHandler := cli.NewInputHandler(ix, appConfig.CLI, appConfig.Server)
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(ix, appConfig.Server, load)

	showStartupInfo(*dataPath, ix.Len())

	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func printVersion() {
	versionLogger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	versionLogger.SetStyles(styles)

	versionLogger.Print("")
	versionLogger.Print("[ strindex ] Bloom, trie and fuzzy search over your own records")
	versionLogger.Print("", "version", Version)
	versionLogger.Print("")
	versionLogger.Print("use -h or --help to see available options")
	versionLogger.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(dataPath string, entries int) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("==========")
	println(" strindex ")
	println("==========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Infof("data: ( %s )", dataPath)
	log.Infof("entries: %s", utils.FormatWithCommas(entries))
	log.Info("status: ready")
	println("==========")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
