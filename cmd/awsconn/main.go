package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abdul674/aws-connector/internal/aws"
	"github.com/abdul674/aws-connector/internal/config"
	"github.com/abdul674/aws-connector/internal/engine"
	"github.com/abdul674/aws-connector/internal/logtail"
	"github.com/abdul674/aws-connector/internal/reconcile"
	"github.com/abdul674/aws-connector/internal/transport"
	"github.com/abdul674/aws-connector/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	profile := flag.String("profile", "", "AWS profile for log polling")
	region := flag.String("region", "", "AWS region for log polling")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	// The alternate screen owns stdout; keep log output out of the frame.
	logFile, err := os.OpenFile("awsconn.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err == nil {
		defer logFile.Close()
		log.SetOutput(logFile)
	}

	if orphans, err := reconcile.Discover(); err == nil {
		for _, o := range orphans {
			log.Printf("Found running session process: pid=%d kind=%s started=%s",
				o.PID, o.Kind, o.StartedAt.Format("15:04:05"))
		}
	}

	eng := engine.New(engine.PTYFactory(transport.Options{
		AWSCLIPath:   cfg.AWS.CLIPath,
		DefaultShell: cfg.Terminal.DefaultShell,
	}), cfg.Terminal.ScrollbackChunks)

	tailer := logtail.New(&aws.CLIPoller{
		CLIPath: cfg.AWS.CLIPath,
		Profile: *profile,
		Region:  *region,
	}, logtail.Options{
		PollInterval: cfg.LogTail.PollInterval,
		Lookback:     cfg.LogTail.Lookback,
		Retention:    cfg.LogTail.Retention,
	})

	m := tui.New(eng, tailer, &aws.Static{})
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
