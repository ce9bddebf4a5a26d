package blob

import (
	"context"
	"fmt"
	"strings"

	appcfg "github.com/fdg312/mealweek/internal/config"
)

type Logger interface {
	Printf(format string, v ...any)
}

// NewExportsStore picks the store for plan exports. EXPORTS_MODE, when
// set, overrides BLOB_MODE. A nil Store means local mode: bytes stay with
// the export metadata.
func NewExportsStore(cfg appcfg.BlobConfig, logger Logger) (Store, string, error) {
	if logger == nil {
		logger = discard{}
	}
	mode := normalizeMode(cfg.EffectiveExportsMode())
	if cfg.ExportsModeSet && mode != normalizeMode(cfg.Mode) {
		logger.Printf("INFO blob: exports override EXPORTS_MODE=%s BLOB_MODE=%s", mode, normalizeMode(cfg.Mode))
	}
	return open(mode, cfg.S3, logger)
}

func open(mode string, s3cfg appcfg.S3Config, logger Logger) (Store, string, error) {
	ready := s3cfg.IsConfigured()

	switch mode {
	case appcfg.BlobModeLocal:
		logger.Printf("INFO blob: exports mode=local")
		return nil, appcfg.BlobModeLocal, nil

	case appcfg.BlobModeAuto:
		if !ready {
			level, code, msg := s3cfg.Diagnostics()
			logger.Printf("%s blob.s3: code=%s %s", level, code, msg)
			logger.Printf("INFO blob: exports mode=local (auto, %s)", s3cfg.DiagnosticsSummary())
			return nil, appcfg.BlobModeLocal, nil
		}
		store, err := NewS3Store(context.Background(), s3cfg)
		if err != nil {
			logger.Printf("WARN blob.s3: init failed, falling back to local: %v", err)
			return nil, appcfg.BlobModeLocal, nil
		}
		logger.Printf("INFO blob: exports mode=s3 (auto) %s", s3cfg.DiagnosticsSummary())
		return store, appcfg.BlobModeS3, nil

	case appcfg.BlobModeS3:
		if !ready {
			missing := s3cfg.MissingRequired()
			logger.Printf("ERROR blob.s3: code=s3_config_incomplete missing=%v", missing)
			return nil, "", fmt.Errorf("exports mode s3: missing required config: %s", strings.Join(missing, ", "))
		}
		store, err := NewS3Store(context.Background(), s3cfg)
		if err != nil {
			return nil, "", fmt.Errorf("exports mode s3: %w", err)
		}
		logger.Printf("INFO blob: exports mode=s3 %s", s3cfg.DiagnosticsSummary())
		return store, appcfg.BlobModeS3, nil
	}
	return nil, "", fmt.Errorf("unsupported blob mode %q", mode)
}

func normalizeMode(mode string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		return appcfg.BlobModeLocal
	}
	return mode
}

type discard struct{}

func (discard) Printf(string, ...any) {}
