package dashboard

import (
	"html/template"
	"time"

	"github.com/keithlinneman/linnemanlabs-sysops/internal/aggregator"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/cfg"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/redact"
)

// Snapshot strings are escaped by the aggregator, so the view hands them to
// html/template as template.HTML; escaping again would show "&amp;amp;".

type probeView struct {
	OK bool
	// Missing is set for the backup probe when the marker does not exist,
	// as opposed to the check itself failing.
	Missing bool
	Detail  template.HTML
}

type view struct {
	HTTPS     bool
	Database  probeView
	Backup    probeView
	Failed    []string
	TakenAt   string
	ElapsedMS int64
	facts     map[string]template.HTML
}

// Fact is called from the templates; unknown names render as "(unknown)".
func (v view) Fact(name string) template.HTML {
	if f, ok := v.facts[name]; ok {
		return f
	}
	return template.HTML(redact.EscapeForDisplay(redact.Unknown))
}

func probeState(snap aggregator.Snapshot, name string) probeView {
	st, ok := snap.Status(name)
	if !ok {
		return probeView{}
	}
	return probeView{OK: st.OK, Detail: template.HTML(st.Detail)}
}

func newView(snap aggregator.Snapshot) view {
	v := view{
		Failed:    snap.Failed(),
		TakenAt:   snap.TakenAt().UTC().Format(time.RFC3339),
		ElapsedMS: snap.Elapsed().Milliseconds(),
		facts:     make(map[string]template.HTML, len(snap.Fields())),
	}
	for _, f := range snap.Fields() {
		v.facts[f.Name] = template.HTML(f.Value)
	}

	https, _ := snap.Status(ProbeHTTPS)
	v.HTTPS = https.OK
	v.Database = probeState(snap, ProbeDatabase)
	v.Backup = probeState(snap, ProbeBackup)

	// a missing marker reports its own path as the detail
	if !v.Backup.OK && v.Backup.Detail != "" && v.Backup.Detail == v.facts[cfg.FactBackupMarker] {
		v.Backup.Missing = true
	}
	return v
}
