package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outcomelab/mutuel/internal/domain"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeSender records delivered notifications.
type fakeSender struct {
	name   string
	err    error
	titles []string
}

func (f *fakeSender) Send(ctx context.Context, title, message string) error {
	if f.err != nil {
		return f.err
	}
	f.titles = append(f.titles, title)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func TestNotifierFiltersEvents(t *testing.T) {
	ctx := context.Background()
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, []string{"market_resolved"}, discardLogger)

	require.NoError(t, n.Notify(ctx, "trade", "Trade", "ignored"))
	assert.Empty(t, s.titles)

	require.NoError(t, n.Notify(ctx, "market_resolved", "Market resolved", "body"))
	assert.Equal(t, []string{"Market resolved"}, s.titles)

	// NotifyAll bypasses the filter.
	require.NoError(t, n.NotifyAll(ctx, "Ops", "body"))
	assert.Equal(t, []string{"Market resolved", "Ops"}, s.titles)
}

func TestNotifierEmptyFilterAllowsAll(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, nil, discardLogger)

	require.NoError(t, n.Notify(context.Background(), "anything", "T", "m"))
	assert.Len(t, s.titles, 1)
}

func TestNotifierCollectsSenderFailures(t *testing.T) {
	good := &fakeSender{name: "good"}
	bad := &fakeSender{name: "bad", err: errors.New("webhook down")}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger)

	err := n.NotifyAll(context.Background(), "T", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 sender(s) failed")
	assert.Contains(t, err.Error(), "bad: webhook down")
	// The healthy sender still got the message.
	assert.Equal(t, []string{"T"}, good.titles)
}

func TestSinkFormatsLifecycleEvents(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	s := &fakeSender{name: "fake"}
	sink := NewSink(NewNotifier([]Sender{s}, nil, discardLogger))

	created, err := domain.NewEvent(domain.EventMarketCreated, 1, now, domain.MarketCreated{
		MarketID: 1, Name: "rain tomorrow", InitialLiquidity: 100,
	})
	require.NoError(t, err)
	require.NoError(t, sink.Emit(ctx, created))

	resolved, err := domain.NewEvent(domain.EventMarketResolved, 1, now, domain.MarketResolved{
		MarketID: 1, WinningOutcome: "yes",
	})
	require.NoError(t, err)
	require.NoError(t, sink.Emit(ctx, resolved))

	claimed, err := domain.NewEvent(domain.EventWinningsClaimed, 1, now, domain.WinningsClaimed{
		MarketID: 1, Claimer: "0xAlice", Amount: 56,
	})
	require.NoError(t, err)
	require.NoError(t, sink.Emit(ctx, claimed))

	assert.Equal(t, []string{"Market opened", "Market resolved", "Winnings claimed"}, s.titles)
}

func TestSinkSkipsTrades(t *testing.T) {
	s := &fakeSender{name: "fake"}
	sink := NewSink(NewNotifier([]Sender{s}, nil, discardLogger))

	trade, err := domain.NewEvent(domain.EventTrade, 1, time.Now(), domain.Trade{MarketID: 1})
	require.NoError(t, err)
	require.NoError(t, sink.Emit(context.Background(), trade))
	assert.Empty(t, s.titles)
}

func TestDiscordSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscordSender(srv.URL)
	require.NoError(t, d.Send(context.Background(), "Market resolved", "market 1 settled on \"yes\""))
	assert.Equal(t, "**Market resolved**\nmarket 1 settled on \"yes\"", got["content"])
	assert.Equal(t, "discord", d.Name())
}

func TestDiscordSenderSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "T", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 429")
	assert.Contains(t, err.Error(), "rate limited")
}
