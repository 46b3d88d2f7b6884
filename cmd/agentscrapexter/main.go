// cmd/agentscrapexter/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valpere/AgentScrapexter/internal/agent"
	"github.com/valpere/AgentScrapexter/internal/config"
	"github.com/valpere/AgentScrapexter/internal/evasion"
	"github.com/valpere/AgentScrapexter/internal/monitoring"
	"github.com/valpere/AgentScrapexter/internal/output"
	"github.com/valpere/AgentScrapexter/internal/region"
	"github.com/valpere/AgentScrapexter/internal/utils"
)

// Build information, injected at build time via -ldflags.
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCommand(os.Args[2:])
	case "validate":
		validateCommand(os.Args[2:])
	case "template":
		templateCommand(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("agentscrapexter version %s\n", version)
		fmt.Printf("  build time: %s\n", buildTime)
		fmt.Printf("  git commit: %s\n", gitCommit)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`agentscrapexter - multi-region link discovery agent

Usage:
  agentscrapexter run -config <file> -url <target> [-url <target> ...]
  agentscrapexter validate -config <file>
  agentscrapexter template
  agentscrapexter version
  agentscrapexter help

Commands:
  run       Discover links on the target pages and write them to the
            configured outputs
  validate  Check a configuration file without running anything
  template  Print a starter configuration to stdout
  version   Print version information
  help      Print this message`)
}

type urlList []string

func (u *urlList) String() string { return fmt.Sprint(*u) }

func (u *urlList) Set(value string) error {
	*u = append(*u, value)
	return nil
}

func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	var urls urlList
	fs.Var(&urls, "url", "target URL (repeatable)")
	fs.Parse(args)

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: agentscrapexter run -config <file> -url <target>")
		os.Exit(1)
	}
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "run: at least one -url is required")
		os.Exit(1)
	}

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	utils.SetDefaultLogLevel(utils.ParseLogLevel(cfg.LogLevel))
	logger := utils.NewComponentLogger("main")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	regions, err := region.NewManager(&cfg.Regions,
		region.WithObserver(monitoring.Default().RegionObserver()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize region manager: %v\n", err)
		os.Exit(1)
	}
	defer regions.Close()

	var sinks *output.Manager
	if len(cfg.Outputs) > 0 {
		sinks, err = output.NewManager(ctx, cfg.Outputs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize outputs: %v\n", err)
			os.Exit(1)
		}
		defer sinks.Close()
	}

	if cfg.Monitoring.Enabled {
		server := monitoring.NewServer(cfg.Monitoring.Address, regions)
		go func() {
			if err := server.Start(ctx); err != nil {
				logger.Errorf("monitoring server: %v", err)
			}
		}()
	}

	finder := agent.NewLinkFinderAgent(regions, evasion.NewManager(nil), &cfg.Agent, &cfg.LinkFinder)

	exitCode := 0
	for _, target := range urls {
		start := time.Now()
		links, err := finder.FindLinks(ctx, target)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"url":   target,
				"error": err.Error(),
			}).Error("link discovery failed")
			exitCode = 1
			continue
		}

		logger.WithFields(map[string]interface{}{
			"url":      target,
			"links":    len(links),
			"duration": time.Since(start).Round(time.Millisecond).String(),
		}).Info("link discovery complete")

		if sinks != nil && len(links) > 0 {
			if err := sinks.Write(ctx, links); err != nil {
				logger.Errorf("output write: %v", err)
				exitCode = 1
			}
		}
		if sinks == nil {
			for _, link := range links {
				fmt.Printf("%s\t%s\n", link.URL, link.Name)
			}
		}
	}
	os.Exit(exitCode)
}

func validateCommand(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	fs.Parse(args)

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: agentscrapexter validate -config <file>")
		os.Exit(1)
	}

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("valid: %s (%d regions, %d outputs)\n", cfg.Name, len(cfg.Regions.Regions), len(cfg.Outputs))
}

func templateCommand(args []string) {
	fmt.Print(config.Template())
}
