package probe

import "context"

// RequestContext reports whether the request being served arrived over an
// encrypted channel.
type RequestContext interface {
	Encrypted() bool
}

// TransportSecurity is a binary probe: OK when the current request is
// encrypted, never with a detail.
type TransportSecurity struct {
	rc RequestContext
}

func NewTransportSecurity(rc RequestContext) *TransportSecurity {
	return &TransportSecurity{rc: rc}
}

func (p *TransportSecurity) Run(context.Context) Status {
	if p == nil || p.rc == nil {
		return Unavailable("request context")
	}
	return Status{OK: p.rc.Encrypted()}
}
