// Package monitoring holds the diagnostic logger shared by the skim
// pipeline, the store and the command line tool.
package monitoring

import (
	"log"
	"sync"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// OnceLogger logs each distinct key at most once. The per-event loop uses it
// for conditions that would otherwise repeat for every event (unknown
// accumulator names, weight-count mismatches).
type OnceLogger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// Logf logs the message the first time key is seen and reports whether it did.
func (o *OnceLogger) Logf(key, format string, v ...interface{}) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.seen == nil {
		o.seen = make(map[string]struct{})
	}
	if _, ok := o.seen[key]; ok {
		return false
	}
	o.seen[key] = struct{}{}
	Logf(format, v...)
	return true
}

// Progress returns a callback that logs "Entry # i/n" every n/20 entries.
func Progress(total int) func(i int) {
	div := total / 20
	if div < 1 {
		div = 1
	}
	return func(i int) {
		if i%div == 0 {
			Logf("Entry # %d/%d", i, total)
		}
	}
}
