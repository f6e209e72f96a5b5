package ws

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoutingChannels(t *testing.T) {
	cases := []struct {
		name string
		data string
		want []string
	}{
		{
			name: "market event routes to both channels",
			data: `{"type":"trade","market_id":7}`,
			want: []string{"ch:settlement", "ch:market:7"},
		},
		{
			name: "no market id stays on the firehose",
			data: `{"type":"feed_status"}`,
			want: []string{"ch:settlement"},
		},
		{
			name: "malformed payload stays on the firehose",
			data: `not json`,
			want: []string{"ch:settlement"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, routingChannels([]byte(tc.data)))
		})
	}
}

func newTestClient() *client {
	return &client{
		send: make(chan []byte, 1),
		subs: map[string]bool{firehoseChannel: true},
	}
}

func TestSubscriptionMatching(t *testing.T) {
	t.Run("default firehose subscription", func(t *testing.T) {
		c := newTestClient()
		assert.True(t, c.isSubscribedAny([]string{firehoseChannel, "ch:market:1"}))
		assert.False(t, c.isSubscribedAny([]string{"ch:market:1"}))
	})

	t.Run("subscribe and unsubscribe", func(t *testing.T) {
		c := newTestClient()
		c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{"ch:market:1"}})
		assert.True(t, c.isSubscribedAny([]string{"ch:market:1"}))

		c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{"ch:market:1", firehoseChannel}})
		assert.False(t, c.isSubscribedAny([]string{firehoseChannel, "ch:market:1"}))
	})

	t.Run("trailing wildcard", func(t *testing.T) {
		c := newTestClient()
		c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{firehoseChannel}})
		c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{"ch:market:*"}})

		assert.True(t, c.isSubscribedAny([]string{"ch:market:42"}))
		assert.False(t, c.isSubscribedAny([]string{firehoseChannel}))
	})

	t.Run("unknown action is ignored", func(t *testing.T) {
		c := newTestClient()
		c.handleSubscription(subscribeMsg{Action: "reset", Channels: []string{"ch:market:1"}})
		assert.False(t, c.isSubscribedAny([]string{"ch:market:1"}))
	})
}

func TestSubscriptionConcurrency(t *testing.T) {
	c := newTestClient()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{"ch:market:1"}})
		}()
		go func() {
			defer wg.Done()
			c.isSubscribedAny([]string{"ch:market:1", firehoseChannel})
		}()
	}
	wg.Wait()

	assert.True(t, c.isSubscribedAny([]string{"ch:market:1"}))
}
