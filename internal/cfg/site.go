// internal/cfg/site.go
package cfg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/keithlinneman/linnemanlabs-sysops/internal/aggregator"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/pathutil"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/xerrors"
)

// Site holds the display-only facts about the deployment the dashboard
// describes. Nothing here is probed; values are echoed, redacted, escaped.
type Site struct {
	Site     SiteHosts    `yaml:"site"`
	Logs     SiteLogs     `yaml:"logs"`
	Database SiteDatabase `yaml:"database"`
	Backup   SiteBackup   `yaml:"backup"`
}

// ---- HOSTS ----

type SiteHosts struct {
	WPFQDN       string `yaml:"wp_fqdn"`
	DashFQDN     string `yaml:"dash_fqdn"`
	WPRoot       string `yaml:"wp_root"`
	DashRoot     string `yaml:"dash_root"`
	PHPFPMSocket string `yaml:"php_fpm_socket"`
}

// ---- LOGS ----

type SiteLogs struct {
	WPAccess string `yaml:"wp_access"`
	WPError  string `yaml:"wp_error"`
	Access   string `yaml:"access"`
	Error    string `yaml:"error"`
}

// ---- DATABASE ----

// SiteDatabase overrides what is derived from the DSN. User is shown masked.
type SiteDatabase struct {
	Host string `yaml:"host"`
	Name string `yaml:"name"`
	User string `yaml:"user"`
}

// ---- BACKUP ----

// SiteBackup locates the marker the backup job writes on success. When
// MarkerS3Bucket is set the marker is looked up in S3 under MarkerS3Key.
type SiteBackup struct {
	MarkerPath     string `yaml:"marker_path"`
	MarkerS3Bucket string `yaml:"marker_s3_bucket"`
	MarkerS3Key    string `yaml:"marker_s3_key"`
}

// DefaultSite describes the reference single-VM deployment.
func DefaultSite() Site {
	return Site{
		Site: SiteHosts{
			WPFQDN:       "sysopsadmin-wp.cdco-devops.abrdns.com",
			DashFQDN:     "sysopsadmin-dash.cdco-devops.abrdns.com",
			WPRoot:       "/var/www/sysopsadmin-wp",
			DashRoot:     "/var/www/sysopsadmin-dash",
			PHPFPMSocket: "/run/php/php8.3-fpm.sock",
		},
		Logs: SiteLogs{
			WPAccess: "/var/log/nginx/sysopsadmin_wp_access.log",
			WPError:  "/var/log/nginx/sysopsadmin_wp_error.log",
			Access:   "/var/log/nginx/access.log",
			Error:    "/var/log/nginx/error.log",
		},
		Backup: SiteBackup{
			MarkerPath: "/var/backups/sysopsadmin/last_backup.txt",
		},
	}
}

// LoadSite reads path over DefaultSite. An empty path returns the defaults.
// Unknown keys are rejected so typos do not silently fall back.
func LoadSite(path string) (Site, error) {
	s := DefaultSite()
	if path == "" {
		return s, nil
	}

	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Site{}, xerrors.Wrapf(err, "read site config %s", path)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Site{}, xerrors.Wrapf(err, "parse site config %s", path)
	}
	if err := s.Validate(); err != nil {
		return Site{}, xerrors.Wrapf(err, "validate site config %s", path)
	}
	if s.Backup.MarkerS3Key != "" {
		// Validate accepted it, so this cannot fail
		s.Backup.MarkerS3Key, _ = pathutil.ObjectKey(s.Backup.MarkerS3Key)
	}
	return s, nil
}

// Validate checks that configured paths are absolute and clean and the S3
// marker location is complete. It does not touch the filesystem.
func (s Site) Validate() error {
	var errs []error

	paths := []struct {
		key, val string
	}{
		{"site.wp_root", s.Site.WPRoot},
		{"site.dash_root", s.Site.DashRoot},
		{"site.php_fpm_socket", s.Site.PHPFPMSocket},
		{"logs.wp_access", s.Logs.WPAccess},
		{"logs.wp_error", s.Logs.WPError},
		{"logs.access", s.Logs.Access},
		{"logs.error", s.Logs.Error},
		{"backup.marker_path", s.Backup.MarkerPath},
	}
	for _, p := range paths {
		if p.val != "" && !pathutil.Canonical(p.val) {
			errs = append(errs, fmt.Errorf("%s must be an absolute, clean path (got %q)", p.key, p.val))
		}
	}

	if s.Backup.MarkerS3Bucket != "" && strings.TrimSpace(s.Backup.MarkerS3Key) == "" {
		errs = append(errs, fmt.Errorf("backup.marker_s3_key required when backup.marker_s3_bucket is set"))
	}
	if s.Backup.MarkerS3Key != "" {
		if _, err := pathutil.ObjectKey(s.Backup.MarkerS3Key); err != nil {
			errs = append(errs, fmt.Errorf("backup.marker_s3_key: %w", err))
		}
	}
	if s.Backup.MarkerS3Bucket == "" && s.Backup.MarkerS3Key != "" {
		errs = append(errs, fmt.Errorf("backup.marker_s3_bucket required when backup.marker_s3_key is set"))
	}

	return errors.Join(errs...)
}

// FillDatabase sets database facts that were not configured explicitly,
// typically from the parsed DSN.
func (s *Site) FillDatabase(host, name, user string) {
	if s.Database.Host == "" {
		s.Database.Host = host
	}
	if s.Database.Name == "" {
		s.Database.Name = name
	}
	if s.Database.User == "" {
		s.Database.User = user
	}
}

// MarkerLocation is the path or key the backup probe checks.
func (s Site) MarkerLocation() string {
	if s.Backup.MarkerS3Bucket != "" {
		return s.Backup.MarkerS3Key
	}
	return s.Backup.MarkerPath
}

// Fact names, in display order.
const (
	FactWPFQDN       = "wp_fqdn"
	FactWPRoot       = "wp_root"
	FactDashFQDN     = "dash_fqdn"
	FactDashRoot     = "dash_root"
	FactPHPFPMSocket = "php_fpm_socket"
	FactWPAccessLog  = "wp_access_log"
	FactWPErrorLog   = "wp_error_log"
	FactAccessLog    = "access_log"
	FactErrorLog     = "error_log"
	FactDBHost       = "db_host"
	FactDBName       = "db_name"
	FactDBUser       = "db_user"
	FactBackupMarker = "backup_marker"
)

// Facts lists display facts in the order the dashboard shows them.
func (s Site) Facts() []aggregator.Fact {
	return []aggregator.Fact{
		{Name: FactWPFQDN, Value: s.Site.WPFQDN},
		{Name: FactWPRoot, Value: s.Site.WPRoot},
		{Name: FactDashFQDN, Value: s.Site.DashFQDN},
		{Name: FactDashRoot, Value: s.Site.DashRoot},
		{Name: FactPHPFPMSocket, Value: s.Site.PHPFPMSocket},
		{Name: FactWPAccessLog, Value: s.Logs.WPAccess},
		{Name: FactWPErrorLog, Value: s.Logs.WPError},
		{Name: FactAccessLog, Value: s.Logs.Access},
		{Name: FactErrorLog, Value: s.Logs.Error},
		{Name: FactDBHost, Value: s.Database.Host},
		{Name: FactDBName, Value: s.Database.Name},
		aggregator.SecretFact(FactDBUser, s.Database.User),
		{Name: FactBackupMarker, Value: s.MarkerLocation()},
	}
}
