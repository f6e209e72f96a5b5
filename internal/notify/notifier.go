// Package notify delivers operator alerts over one or more channels
// (Telegram, Discord). Alerts are dispatched to every registered sender and
// can be filtered by event type so operators receive only what they care
// about.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/outcomelab/mutuel/internal/domain"
)

// Sender is the interface each notification channel implements.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender.
	Name() string
}

// Notifier dispatches notifications to one or more Senders. Notify forwards
// only messages whose event type is in the allowed set; NotifyAll bypasses
// the filter.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. Only events
// whose type appears in events are forwarded by Notify; an empty list allows
// everything.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends a notification to all senders if the event type passes the
// configured filter.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "notify: event filtered out",
			slog.String("event", event),
		)
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// NotifyAll sends a notification to all senders regardless of event type.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

// dispatch fans the notification out to every sender. Individual sender
// failures are collected into a combined error; one failure does not prevent
// delivery to the remaining senders.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "notify: sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notify: sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// Sink adapts the Notifier into a domain.EventSink so settlement lifecycle
// events reach operators without the engine knowing about alert channels.
type Sink struct {
	notifier *Notifier
}

// NewSink wraps a Notifier for use as an event sink.
func NewSink(notifier *Notifier) *Sink {
	return &Sink{notifier: notifier}
}

// Emit formats the event into a human-readable alert and forwards it through
// the notifier's event filter.
func (s *Sink) Emit(ctx context.Context, evt domain.Event) error {
	title, message, ok := formatEvent(evt)
	if !ok {
		return nil
	}
	return s.notifier.Notify(ctx, string(evt.Type), title, message)
}

// formatEvent renders an alert for the lifecycle events worth waking an
// operator for. Trade events are deliberately skipped; they are high volume
// and visible on the feed.
func formatEvent(evt domain.Event) (title, message string, ok bool) {
	switch evt.Type {
	case domain.EventMarketCreated:
		var p domain.MarketCreated
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return "", "", false
		}
		return "Market opened",
			fmt.Sprintf("market %d %q seeded with %d, expires at %d", p.MarketID, p.Name, p.InitialLiquidity, p.ExpiresAt),
			true

	case domain.EventMarketResolved:
		var p domain.MarketResolved
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return "", "", false
		}
		return "Market resolved",
			fmt.Sprintf("market %d settled on %q", p.MarketID, p.WinningOutcome),
			true

	case domain.EventWinningsClaimed:
		var p domain.WinningsClaimed
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return "", "", false
		}
		return "Winnings claimed",
			fmt.Sprintf("market %d paid out %d to %s", p.MarketID, p.Amount, p.Claimer),
			true
	}
	return "", "", false
}

// Compile-time interface check.
var _ domain.EventSink = (*Sink)(nil)
