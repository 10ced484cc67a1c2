package dashboard

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/linnemanlabs-sysops/internal/aggregator"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/httpmw"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/log"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/webassets"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/xerrors"
)

type Options struct {
	Registry Registry
	Facts    []aggregator.Fact
	Timeout  time.Duration
	Parallel bool
	Observer aggregator.Observer
	// TrustedHops is used to judge the transport when the request did not
	// pass through httpmw.TransportSecurity.
	TrustedHops int
}

// Handler serves the dashboard. Every request collects a fresh snapshot;
// failing probes still produce a 200 with whatever was learned.
type Handler struct {
	opts   Options
	tmpl   *template.Template
	static http.Handler
}

func New(opts Options) (*Handler, error) {
	if opts.Registry == nil {
		return nil, xerrors.New("dashboard: registry is required")
	}
	tmpl, err := template.New("dashboard").ParseFS(webassets.TemplateFS(), "*.tmpl")
	if err != nil {
		return nil, xerrors.Wrap(err, "dashboard: parse templates")
	}
	for _, name := range []string{"page", "fragment"} {
		if tmpl.Lookup(name) == nil {
			return nil, xerrors.Newf("dashboard: template %q not defined", name)
		}
	}
	return &Handler{
		opts:   opts,
		tmpl:   tmpl,
		static: staticHandler(),
	}, nil
}

// Routes mounts the dashboard on r.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httpmw.Scope("dashboard"))
		r.Get("/sysops", h.servePage)
		r.Get("/sysops/fragment", h.serveFragment)
	})
	r.With(httpmw.Scope("snapshot")).Get("/api/v1/snapshot", h.serveSnapshot)
	r.Handle("/static/*", h.static)
}

// Collect runs the registry against r's transport.
func (h *Handler) Collect(r *http.Request) aggregator.Snapshot {
	t, ok := httpmw.TransportFromContext(r.Context())
	if !ok {
		t = httpmw.RequestTransport(r, h.opts.TrustedHops)
	}
	agg := aggregator.New(h.opts.Registry(t), h.opts.Facts, aggregator.Options{
		Timeout:  h.opts.Timeout,
		Parallel: h.opts.Parallel,
		Observer: h.opts.Observer,
	})
	return agg.Collect(r.Context())
}

func (h *Handler) servePage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "page")
}

func (h *Handler) serveFragment(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "fragment")
}

// render buffers the whole document so a template failure never leaves a
// half-written 200 behind.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string) {
	ctx := r.Context()
	snap := h.Collect(r)

	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, newView(snap)); err != nil {
		log.FromContext(ctx).Error(ctx, err, "dashboard render failed", "template", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/html; charset=utf-8")
	hdr.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	b, err := json.Marshal(h.Collect(r))
	if err != nil {
		log.FromContext(ctx).Error(ctx, err, "snapshot encode failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	hdr := w.Header()
	hdr.Set("Content-Type", "application/json; charset=utf-8")
	hdr.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(b, '\n'))
}

// staticHandler serves the embedded stylesheet. Names are not content
// hashed, so caching is short.
func staticHandler() http.Handler {
	files := http.StripPrefix("/static/", http.FileServerFS(webassets.StaticFS()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		// no directory listings
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}
