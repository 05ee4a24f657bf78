package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/app"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/config"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/connect"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	logPath := flag.String("log", "", "Append connectivity logs to this file (default: discard)")
	flag.Parse()

	// log.Printf output would tear the TUI, so it goes to a file or nowhere
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		log.SetOutput(io.Discard)
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		os.Exit(1)
	}

	mgr := connect.New(cfg.Connect())
	mgr.Start()

	m := app.New(mgr)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		mgr.Stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
