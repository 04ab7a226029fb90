package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"sumdoc/internal/app"
	"sumdoc/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	logLevel := flag.String("log-level", "", "override the configured log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sumdoc: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	log := cfg.Logging.NewLogger(os.Stderr)
	slog.SetDefault(log)

	application, err := app.New(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sumdoc failed: %v\n", err)
		os.Exit(1)
	}
	if path := flag.Arg(0); path != "" {
		if err := application.Open(path); err != nil {
			log.Error("open document", "path", path, "err", err)
		}
	}
	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "sumdoc failed: %v\n", err)
		os.Exit(1)
	}
}
