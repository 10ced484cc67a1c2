package dashboard

import (
	"github.com/keithlinneman/linnemanlabs-sysops/internal/aggregator"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/probe"
)

// Probe names, in display order.
const (
	ProbeHTTPS    = "https"
	ProbeDatabase = "database"
	ProbeBackup   = "backup"
)

// Registry builds the probe list for one request. The transport probe has
// to be bound to the request it reports on, so the list is rebuilt each time.
type Registry func(rc probe.RequestContext) []aggregator.Entry

// DefaultRegistry is the HTTPS, database and backup-marker probe set.
func DefaultRegistry(db probe.DBHandle, markers probe.MarkerSource, markerPath string) Registry {
	dbProbe := probe.NewDatabase(db)
	backup := probe.NewMarkerFile(markers, markerPath)
	return func(rc probe.RequestContext) []aggregator.Entry {
		return []aggregator.Entry{
			{Name: ProbeHTTPS, Probe: probe.NewTransportSecurity(rc)},
			{Name: ProbeDatabase, Probe: dbProbe},
			{Name: ProbeBackup, Probe: backup},
		}
	}
}
