package dbhandle

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by Null for every query.
var ErrUnavailable = errors.New("database not available")

// Null stands in when no database is configured so the probe still reports
// something meaningful.
type Null struct{}

func (Null) QueryScalar(context.Context, string) (string, error) { return "", ErrUnavailable }
func (Null) Close() error                                        { return nil }
