package settle

import (
	"context"
	"fmt"
	"strings"

	"github.com/outcomelab/mutuel/internal/domain"
)

// FanoutSink delivers each event to every wired sink. A single sink failure
// does not prevent delivery to the rest; failures are collected into one
// combined error for the caller to log.
type FanoutSink struct {
	sinks []domain.EventSink
}

// NewFanoutSink creates a FanoutSink over the given sinks; nil entries are
// skipped.
func NewFanoutSink(sinks ...domain.EventSink) *FanoutSink {
	out := &FanoutSink{}
	for _, s := range sinks {
		if s != nil {
			out.sinks = append(out.sinks, s)
		}
	}
	return out
}

// Emit implements domain.EventSink.
func (f *FanoutSink) Emit(ctx context.Context, evt domain.Event) error {
	var errs []string
	for _, s := range f.sinks {
		if err := s.Emit(ctx, evt); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("settle: %d sink(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
