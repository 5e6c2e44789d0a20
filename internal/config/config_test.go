package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a11ykit/remedia/internal/dispatch"
	"github.com/a11ykit/remedia/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const validConfig = `
database:
  path: /var/lib/remedia/remedia.db
queue:
  url: https://sqs.us-east-1.amazonaws.com/123456789/remediation
  region: us-east-1
code:
  bucket: code-snapshots
updated_by: remedia-worker
sites:
  site-1:
    base_url: https://example.com
    delivery_type: edge
    flags:
      a11y-auto-suggest: true
      a11y-auto-fix: false
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/var/lib/remedia/remedia.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Queue.Region != "us-east-1" {
		t.Errorf("region = %q", cfg.Queue.Region)
	}
	if cfg.Code.Bucket != "code-snapshots" {
		t.Errorf("code bucket = %q", cfg.Code.Bucket)
	}
	if cfg.UpdatedBy != "remedia-worker" {
		t.Errorf("updatedBy = %q", cfg.UpdatedBy)
	}

	site := cfg.Site("site-1")
	if site.BaseURL != "https://example.com" || site.DeliveryType != "edge" {
		t.Errorf("site = %+v", site)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing database path",
			content: "queue:\n  url: https://sqs.test/q\n  region: us-east-1\n",
			wantErr: "database.path",
		},
		{
			name:    "missing queue url",
			content: "database:\n  path: /tmp/a.db\nqueue:\n  region: us-east-1\n",
			wantErr: "queue.url",
		},
		{
			name:    "invalid queue url",
			content: "database:\n  path: /tmp/a.db\nqueue:\n  url: not a url\n  region: us-east-1\n",
			wantErr: "queue.url",
		},
		{
			name:    "missing region",
			content: "database:\n  path: /tmp/a.db\nqueue:\n  url: https://sqs.test/q\n",
			wantErr: "queue.region",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("REMEDIA_QUEUE_URL", "https://sqs.test/override")
	t.Setenv("REMEDIA_DB_PATH", "/tmp/override.db")

	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Queue.URL != "https://sqs.test/override" {
		t.Errorf("queue url = %q", cfg.Queue.URL)
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
}

func TestUpdatedByDefaults(t *testing.T) {
	content := "database:\n  path: /tmp/a.db\nqueue:\n  url: https://sqs.test/q\n  region: us-east-1\n"

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.UpdatedBy != "remedia" {
		t.Errorf("updatedBy = %q", cfg.UpdatedBy)
	}
}

func TestSiteUnknownID(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	site := cfg.Site("unknown")
	if site.ID != "unknown" || site.BaseURL != "" {
		t.Errorf("site = %+v", site)
	}
}

func TestFlagsService(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	flags := NewFlags(cfg)
	ctx := context.Background()
	site := models.Site{ID: "site-1"}

	if !flags.IsAuditEnabledForSite(ctx, dispatch.FlagAutoSuggest, site) {
		t.Error("auto-suggest should be on for site-1")
	}
	if flags.IsAuditEnabledForSite(ctx, dispatch.FlagAutoFix, site) {
		t.Error("auto-fix should be off for site-1")
	}
	if flags.IsAuditEnabledForSite(ctx, dispatch.FlagAutoSuggest, models.Site{ID: "other"}) {
		t.Error("unknown sites default to off")
	}
}
