package dbmigrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fdg312/mealweek/migrations"
)

// Commands lists the goose commands the CLI and startup hook accept.
var Commands = []string{"up", "status", "down", "version"}

// Run applies command against the embedded migrations.
func Run(ctx context.Context, command string, target Target) error {
	return runFS(ctx, command, target, migrations.FS)
}

func runFS(ctx context.Context, command string, target Target, fsys fs.FS) error {
	if !validCommand(command) {
		return fmt.Errorf("unsupported command %q (allowed: %v)", command, Commands)
	}
	if target.URL == "" {
		return fmt.Errorf("database URL is empty")
	}
	if target.Warning != "" {
		log.Printf("WARN migrate: %s", target.Warning)
	}

	db, err := sql.Open("pgx", target.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database (%s): %w", target.Source, err)
	}

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	log.Printf("INFO migrate: command=%s using=%s", command, target.Source)
	if err := goose.RunContext(ctx, command, db, "."); err != nil {
		return fmt.Errorf("goose %s failed: %w", command, err)
	}
	return nil
}

func validCommand(command string) bool {
	for _, c := range Commands {
		if c == command {
			return true
		}
	}
	return false
}
