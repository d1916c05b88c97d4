// internal/observe/broadcaster_test.go
package observe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesCurrentValueImmediately(t *testing.T) {
	var b Broadcaster[int]
	var got []int

	cancel := b.Subscribe(7, func(v int) { got = append(got, v) })
	defer cancel()

	require.Equal(t, []int{7}, got)
}

func TestPublishReachesSubscribersInOrder(t *testing.T) {
	var b Broadcaster[string]
	var order []string

	b.Subscribe("", func(v string) {
		if v != "" {
			order = append(order, "first:"+v)
		}
	})
	b.Subscribe("", func(v string) {
		if v != "" {
			order = append(order, "second:"+v)
		}
	})

	b.Publish("a")
	b.Publish("b")

	assert.Equal(t, []string{"first:a", "second:a", "first:b", "second:b"}, order)
}

func TestCancelStopsDelivery(t *testing.T) {
	var b Broadcaster[int]
	count := 0

	cancel := b.Subscribe(0, func(int) { count++ })
	b.Publish(1)
	cancel()
	cancel() // second cancel is a no-op
	b.Publish(2)

	assert.Equal(t, 2, count, "initial value plus one publish")
	assert.Equal(t, 0, b.Len())
}

func TestSubscriberMayUnsubscribeDuringPublish(t *testing.T) {
	var b Broadcaster[int]
	var cancel func()
	calls := 0

	cancel = b.Subscribe(0, func(v int) {
		calls++
		if v == 1 {
			cancel()
		}
	})
	b.Publish(1)
	b.Publish(2)

	assert.Equal(t, 2, calls)
}

func TestListenSkipsCurrentValue(t *testing.T) {
	var b Broadcaster[int]
	var got []int

	b.Listen(func(v int) { got = append(got, v) })
	assert.Empty(t, got)

	b.Publish(3)
	assert.Equal(t, []int{3}, got)
}
