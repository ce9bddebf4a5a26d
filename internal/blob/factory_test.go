package blob

import (
	"bytes"
	"log"
	"strings"
	"testing"

	appcfg "github.com/fdg312/mealweek/internal/config"
)

func TestNewExportsStore_LocalModes(t *testing.T) {
	tests := []struct {
		name    string
		cfg     appcfg.BlobConfig
		wantLog []string
	}{
		{
			name:    "unset mode defaults to local",
			cfg:     appcfg.BlobConfig{},
			wantLog: []string{"exports mode=local"},
		},
		{
			name:    "forced local",
			cfg:     appcfg.BlobConfig{Mode: appcfg.BlobModeLocal},
			wantLog: []string{"exports mode=local"},
		},
		{
			name:    "auto without s3",
			cfg:     appcfg.BlobConfig{Mode: appcfg.BlobModeAuto},
			wantLog: []string{"code=s3_not_configured", "exports mode=local (auto"},
		},
		{
			name: "exports override wins over s3",
			cfg: appcfg.BlobConfig{
				Mode:           appcfg.BlobModeS3,
				ExportsMode:    appcfg.BlobModeLocal,
				ExportsModeSet: true,
			},
			wantLog: []string{"EXPORTS_MODE=local BLOB_MODE=s3", "exports mode=local"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			store, mode, err := NewExportsStore(tt.cfg, log.New(&buf, "", 0))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if store != nil || mode != appcfg.BlobModeLocal {
				t.Fatalf("expected local mode with nil store, got mode=%q store=%v", mode, store)
			}
			for _, want := range tt.wantLog {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("log %q does not contain %q", buf.String(), want)
				}
			}
		})
	}
}

func TestNewExportsStore_S3Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     appcfg.BlobConfig
		wantErr string
	}{
		{
			name: "s3 with partial config",
			cfg: appcfg.BlobConfig{
				Mode: appcfg.BlobModeS3,
				S3:   appcfg.S3Config{Endpoint: "https://storage.yandexcloud.net"},
			},
			wantErr: "S3_BUCKET",
		},
		{
			name: "unset exports mode inherits blob mode",
			cfg: appcfg.BlobConfig{
				Mode:        appcfg.BlobModeS3,
				ExportsMode: appcfg.BlobModeLocal,
			},
			wantErr: "missing required config",
		},
		{
			name:    "unknown mode",
			cfg:     appcfg.BlobConfig{Mode: "ftp"},
			wantErr: "unsupported blob mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mode, err := NewExportsStore(tt.cfg, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
			if store != nil || mode != "" {
				t.Errorf("expected no store on error, got mode=%q store=%v", mode, store)
			}
		})
	}
}

func TestPublicURL(t *testing.T) {
	got := PublicURL("https://cdn.example.com/bucket/", "/exports/u1/a.pdf")
	if got != "https://cdn.example.com/bucket/exports/u1/a.pdf" {
		t.Fatalf("unexpected url: %s", got)
	}
}
