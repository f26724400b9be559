package ledger

import (
	"time"

	"github.com/rollcall/rollcall/pkg/logger"
)

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithLogger sets a custom logger for the ledger.
func WithLogger(log logger.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock overrides the time source. Used by tests to pin "today".
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithHistoryDays sets the default trailing window for History lookups.
func WithHistoryDays(days int) Option {
	return func(l *Ledger) {
		if days > 0 {
			l.historyDays = days
		}
	}
}
