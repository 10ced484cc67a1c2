package httpmw

import (
	"context"
	"sync"

	"github.com/keithlinneman/linnemanlabs-sysops/internal/log"
)

type capturedLog struct {
	level  string
	msg    string
	err    error
	fields []any
}

// flatLogger records every call; With returns the same logger so fields
// added by middleware land next to the messages.
type flatLogger struct {
	mu    sync.Mutex
	logs  []capturedLog
	withs [][]any
}

func newFlatLogger() *flatLogger { return &flatLogger{} }

func (l *flatLogger) With(kv ...any) log.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.withs = append(l.withs, kv)
	return l
}

func (l *flatLogger) record(level, msg string, err error, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, capturedLog{level: level, msg: msg, err: err, fields: kv})
}

func (l *flatLogger) Debug(_ context.Context, msg string, kv ...any) { l.record("debug", msg, nil, kv) }
func (l *flatLogger) Info(_ context.Context, msg string, kv ...any)  { l.record("info", msg, nil, kv) }
func (l *flatLogger) Warn(_ context.Context, msg string, kv ...any)  { l.record("warn", msg, nil, kv) }
func (l *flatLogger) Error(_ context.Context, err error, msg string, kv ...any) {
	l.record("error", msg, err, kv)
}
func (l *flatLogger) Sync() error { return nil }

func (l *flatLogger) messages(level string) []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []capturedLog
	for _, c := range l.logs {
		if c.level == level {
			out = append(out, c)
		}
	}
	return out
}

// withField finds key in any With() call.
func (l *flatLogger) withField(key string) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, kv := range l.withs {
		if v, ok := field(kv, key); ok {
			return v, true
		}
	}
	return nil, false
}

func field(kv []any, key string) (any, bool) {
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok && k == key {
			return kv[i+1], true
		}
	}
	return nil, false
}
