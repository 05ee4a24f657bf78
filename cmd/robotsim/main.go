package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/config"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/robotsim"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override listen port")
	noAnnounce := flag.Bool("no-announce", false, "Skip mDNS registration (direct connections only)")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *port > 0 {
		cfg.Sim.Port = *port
	}

	hub := robotsim.NewHub()
	server := robotsim.NewServer(cfg.Sim, hub)

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetry := robotsim.NewTelemetry(hub, cfg.Sim.RobotName,
		time.Duration(cfg.Sim.TelemetryIntervalMS)*time.Millisecond)
	telemetry.Start(ctx)

	var announcer *robotsim.Announcer
	if !*noAnnounce {
		announcer, err = robotsim.Announce(cfg.Sim.RobotName, cfg.Discovery.ServiceType,
			cfg.Discovery.Domain, cfg.Sim.Port)
		if err != nil {
			log.Fatalf("mDNS registration failed: %v", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		if announcer != nil {
			announcer.Shutdown()
		}
		cancel()
		os.Exit(0)
	}()

	if err := robotsim.ListenAndServe(cfg.Sim.Host, cfg.Sim.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
