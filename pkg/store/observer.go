package store

import (
	"io"
	"log/slog"
	"time"
)

// Operation names reported to an Observer
const (
	OpLoad  = "load"
	OpSave  = "save"
	OpWrite = "write_safe"
)

// Observer receives the outcome of every load, save and safe write.
// bytes is the payload size for load and save, zero otherwise.
type Observer interface {
	RecordOperation(operation string, success bool, duration time.Duration, bytes int)
}

type nopObserver struct{}

func (nopObserver) RecordOperation(string, bool, time.Duration, int) {}

// Option configures a Store
type Option func(*options)

type options struct {
	logger   *slog.Logger
	observer Observer
}

func defaultOptions() options {
	return options{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: nopObserver{},
	}
}

// WithLogger sets the logger used for load, save and failure events
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver reports operation outcomes to observer
func WithObserver(observer Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}
