package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/mealweek/internal/config"
	"github.com/fdg312/mealweek/internal/dbmigrate"
)

func main() {
	usage := "usage: go run ./cmd/migrate [" + strings.Join(dbmigrate.Commands, "|") + "]"
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	cfg := config.Load()
	target, err := dbmigrate.SelectTarget(cfg, false)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	command := os.Args[1]
	if err := dbmigrate.Run(ctx, command, target); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	log.Printf("migrate: %s completed successfully", command)
}
