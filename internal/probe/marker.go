package probe

import (
	"context"
	"strings"
)

// MarkerSource is where marker files live: the local filesystem or an
// object store.
type MarkerSource interface {
	Exists(ctx context.Context, path string) (bool, error)
	ReadText(ctx context.Context, path string) (string, error)
}

// MarkerFile reports whether an external job left its marker behind.
// Existence is the signal; the trimmed content is evidence (usually a
// timestamp) and is reported as the detail.
type MarkerFile struct {
	src  MarkerSource
	path string
}

func NewMarkerFile(src MarkerSource, path string) *MarkerFile {
	return &MarkerFile{src: src, path: path}
}

func (p *MarkerFile) Run(ctx context.Context) Status {
	if p == nil || p.src == nil {
		return Unavailable("filesystem")
	}
	if strings.TrimSpace(p.path) == "" {
		return Unavailable("marker path")
	}

	ok, err := p.src.Exists(ctx, p.path)
	if err != nil {
		return Fail(DetailIOError)
	}
	if !ok {
		// the path tells the operator where the job should write
		return Fail(p.path)
	}

	// unreadable markers still count, with whatever content we got
	text, _ := p.src.ReadText(ctx, p.path)
	return OKWith(strings.TrimSpace(text))
}
