package dbmigrate

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/fdg312/mealweek/internal/config"
	"github.com/fdg312/mealweek/migrations"
)

func TestSelectTarget(t *testing.T) {
	all := config.Config{
		DatabaseURLDirect: "postgres://direct",
		DatabaseURLRaw:    "postgres://url",
		DatabaseURLPooled: "postgres://pooled",
	}

	tests := []struct {
		name        string
		cfg         config.Config
		directOnly  bool
		wantURL     string
		wantSource  string
		wantWarning bool
		wantErr     error
	}{
		{name: "direct wins", cfg: all, wantURL: "postgres://direct", wantSource: "DATABASE_URL_DIRECT"},
		{name: "database url", cfg: config.Config{DatabaseURLRaw: "postgres://url", DatabaseURLPooled: "postgres://pooled"}, wantURL: "postgres://url", wantSource: "DATABASE_URL"},
		{name: "pooled warns", cfg: config.Config{DatabaseURLPooled: "postgres://pooled"}, wantURL: "postgres://pooled", wantSource: "DATABASE_URL_POOLED", wantWarning: true},
		{name: "direct only", cfg: config.Config{DatabaseURLRaw: "postgres://url"}, directOnly: true, wantErr: ErrDirectURLRequired},
		{name: "direct only satisfied", cfg: all, directOnly: true, wantURL: "postgres://direct", wantSource: "DATABASE_URL_DIRECT"},
		{name: "nothing configured", cfg: config.Config{}, wantErr: ErrNoDatabaseURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectTarget(&tt.cfg, tt.directOnly)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.URL != tt.wantURL || got.Source != tt.wantSource {
				t.Errorf("got %+v, want url=%q source=%q", got, tt.wantURL, tt.wantSource)
			}
			if (got.Warning != "") != tt.wantWarning {
				t.Errorf("warning = %q, want present=%v", got.Warning, tt.wantWarning)
			}
		})
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	if err := Run(context.Background(), "redo-all", Target{URL: "postgres://x"}); err == nil {
		t.Error("expected error for unsupported command")
	}
	if err := Run(context.Background(), "up", Target{}); err == nil {
		t.Error("expected error for empty URL")
	}
}

func TestEmbeddedMigrationsOrdered(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"00001_create_nutrition_targets.sql",
		"00002_create_meal_plans.sql",
		"00003_create_plan_exports.sql",
	}
	if len(files) != len(want) {
		t.Fatalf("expected %d migrations, got %v", len(want), files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("migration %d = %s, want %s", i, files[i], want[i])
		}
	}
}
