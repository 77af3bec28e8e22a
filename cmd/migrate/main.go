// Package main applies the embedded schema migrations to DATABASE_URL.
package main

import (
	"flag"
	"fmt"
	"os"

	"firmgate/internal/platform/config"
	"firmgate/internal/platform/database"
	"firmgate/internal/platform/logger"
)

func main() {
	direction := flag.String("direction", database.Up, "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)

	log.Info("running migrations", "direction", *direction)
	if err := database.Migrate(cfg.DatabaseURL, *direction); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations complete", "direction", *direction)
}
