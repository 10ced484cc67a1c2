package probe

import "context"

// HealthQuery is the only statement the database probe issues.
const HealthQuery = "SELECT 1"

// DBHandle is the database capability the probe needs. QueryScalar returns
// the first column of the first row in canonical string form, so drivers that
// hand back int64(1) and "1" look the same to the probe. The handle is shared
// by concurrent collects; the returned error is the only failure report, so
// implementations keep no per-handle error state.
type DBHandle interface {
	QueryScalar(ctx context.Context, query string) (string, error)
}

// Database checks that a trivial read succeeds over an existing connection.
type Database struct {
	h DBHandle
}

func NewDatabase(h DBHandle) *Database { return &Database{h: h} }

// Run recovers a panicking handle itself so direct callers get a Status
// too, not only those going through the package Run.
func (p *Database) Run(ctx context.Context) (st Status) {
	if p == nil || p.h == nil {
		return Unavailable("database")
	}
	defer func() {
		if recover() != nil {
			st = Fail(DetailPanicked)
		}
	}()

	v, err := p.h.QueryScalar(ctx, HealthQuery)
	switch {
	case err != nil:
		return Fail(err.Error())
	case v != "1":
		return Fail(DetailUnknownError)
	}
	return OK()
}
