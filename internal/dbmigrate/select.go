package dbmigrate

import (
	"errors"

	"github.com/fdg312/mealweek/internal/config"
)

// Target is the database a migration run will connect to.
type Target struct {
	URL     string
	Source  string // env variable the URL came from
	Warning string
}

var (
	ErrDirectURLRequired = errors.New("DATABASE_URL_DIRECT is required for DDL/migrations")
	ErrNoDatabaseURL     = errors.New("no database URL configured (set DATABASE_URL_DIRECT or DATABASE_URL)")
)

// SelectTarget picks the URL for DDL: DIRECT > DATABASE_URL > POOLED (with a warning).
// With directOnly (startup migrations) only DATABASE_URL_DIRECT is accepted.
func SelectTarget(cfg *config.Config, directOnly bool) (Target, error) {
	switch {
	case cfg.DatabaseURLDirect != "":
		return Target{URL: cfg.DatabaseURLDirect, Source: "DATABASE_URL_DIRECT"}, nil
	case directOnly:
		return Target{}, ErrDirectURLRequired
	case cfg.DatabaseURLRaw != "":
		return Target{URL: cfg.DatabaseURLRaw, Source: "DATABASE_URL"}, nil
	case cfg.DatabaseURLPooled != "":
		return Target{
			URL:     cfg.DatabaseURLPooled,
			Source:  "DATABASE_URL_POOLED",
			Warning: "using pooled connection for DDL is not recommended; set DATABASE_URL_DIRECT",
		}, nil
	}
	return Target{}, ErrNoDatabaseURL
}
