package cfg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func wantErrContains(t *testing.T, err error, sub string) {
	t.Helper()
	if err == nil || !strings.Contains(err.Error(), sub) {
		t.Fatalf("error = %v, want it to contain %q", err, sub)
	}
}

func writeSite(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSite_EmptyPathIsDefaults(t *testing.T) {
	s, err := LoadSite("")
	if err != nil {
		t.Fatalf("LoadSite: %v", err)
	}
	if s != DefaultSite() {
		t.Errorf("LoadSite(\"\") = %+v, want defaults", s)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadSite_OverlaysDefaults(t *testing.T) {
	path := writeSite(t, `
site:
  wp_fqdn: blog.example.test
database:
  user: wp_admin
backup:
  marker_s3_bucket: backups
  marker_s3_key: /markers/last_backup.txt
`)
	s, err := LoadSite(path)
	if err != nil {
		t.Fatalf("LoadSite: %v", err)
	}
	if s.Site.WPFQDN != "blog.example.test" {
		t.Errorf("WPFQDN = %q", s.Site.WPFQDN)
	}
	if s.Site.WPRoot != DefaultSite().Site.WPRoot {
		t.Errorf("WPRoot = %q, want default kept", s.Site.WPRoot)
	}
	if s.Database.User != "wp_admin" {
		t.Errorf("User = %q", s.Database.User)
	}
	if got := s.MarkerLocation(); got != "markers/last_backup.txt" {
		t.Errorf("MarkerLocation = %q", got)
	}
}

func TestLoadSite_EmptyFile(t *testing.T) {
	s, err := LoadSite(writeSite(t, ""))
	if err != nil {
		t.Fatalf("LoadSite: %v", err)
	}
	if s != DefaultSite() {
		t.Error("empty file should yield defaults")
	}
}

func TestLoadSite_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		sub  string
	}{
		{"unknown key", "site:\n  wp_fqnd: typo\n", "parse site config"},
		{"relative root", "site:\n  wp_root: var/www\n", "site.wp_root must be an absolute, clean path"},
		{"dot segments", "logs:\n  error: /var/log/../../etc/shadow\n", "logs.error must be an absolute, clean path"},
		{"trailing slash", "backup:\n  marker_path: /var/backups/\n", "backup.marker_path must be an absolute, clean path"},
		{"key with dot segments", "backup:\n  marker_s3_bucket: b\n  marker_s3_key: a/../b\n", "backup.marker_s3_key: object key has dot segments"},
		{"bucket without key", "backup:\n  marker_s3_bucket: b\n", "marker_s3_key required"},
		{"key without bucket", "backup:\n  marker_s3_key: k\n", "marker_s3_bucket required"},
		{"not yaml", "site: [\n", "parse site config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSite(writeSite(t, tt.body))
			wantErrContains(t, err, tt.sub)
		})
	}

	_, err := LoadSite(filepath.Join(t.TempDir(), "missing.yaml"))
	wantErrContains(t, err, "read site config")
}

func TestSite_FillDatabase(t *testing.T) {
	s := DefaultSite()
	s.Database.Name = "configured"
	s.FillDatabase("db.internal", "wordpress", "wp_admin")

	if s.Database.Host != "db.internal" || s.Database.User != "wp_admin" {
		t.Errorf("blank fields not filled: %+v", s.Database)
	}
	if s.Database.Name != "configured" {
		t.Errorf("configured name overwritten: %q", s.Database.Name)
	}
}

func TestSite_Facts(t *testing.T) {
	s := DefaultSite()
	s.Database.User = "wp_admin"
	facts := s.Facts()

	if facts[0].Name != FactWPFQDN || facts[len(facts)-1].Name != FactBackupMarker {
		t.Errorf("unexpected order: first %q last %q", facts[0].Name, facts[len(facts)-1].Name)
	}

	seen := map[string]bool{}
	for _, f := range facts {
		if seen[f.Name] {
			t.Errorf("duplicate fact %q", f.Name)
		}
		seen[f.Name] = true
		if (f.Secret != nil) != (f.Name == FactDBUser) {
			t.Errorf("fact %q secret = %v", f.Name, f.Secret)
		}
		if f.Secret != nil && (f.Value != "" || f.Secret.Masked() != "wp***") {
			t.Errorf("db user fact = %q / %v, want only the masked credential", f.Value, f.Secret)
		}
	}
	if facts[len(facts)-1].Value != "/var/backups/sysopsadmin/last_backup.txt" {
		t.Errorf("backup marker = %q", facts[len(facts)-1].Value)
	}
}
