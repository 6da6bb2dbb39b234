package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/abdul674/aws-connector/internal/config"
	"github.com/abdul674/aws-connector/internal/engine"
	"github.com/abdul674/aws-connector/internal/reconcile"
	"github.com/abdul674/aws-connector/internal/transport"
	"github.com/abdul674/aws-connector/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	token := flag.String("token", "", "Require this token on every connection")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	if orphans, err := reconcile.Discover(); err == nil {
		for _, o := range orphans {
			log.Printf("Found running session process: pid=%d kind=%s cmdline=%q",
				o.PID, o.Kind, o.Cmdline)
		}
	} else {
		log.Printf("Process scan failed: %v", err)
	}

	eng := engine.New(engine.PTYFactory(transport.Options{
		AWSCLIPath:   cfg.AWS.CLIPath,
		DefaultShell: cfg.Terminal.DefaultShell,
	}), cfg.Terminal.ScrollbackChunks)

	broadcaster := ws.NewBroadcaster(eng)
	server := ws.NewServer(eng, broadcaster, nil, *token)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go broadcaster.Run(ctx)

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		for _, v := range eng.ListSessions() {
			eng.CloseSession(v.ID)
		}
		cancel()
		os.Exit(0)
	}()

	log.Printf("Listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
