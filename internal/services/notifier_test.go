package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalNotifierDeliversPerPlan(t *testing.T) {
	n := NewLocalNotifier()
	events, cancel := n.Subscribe(1)
	other, cancelOther := n.Subscribe(2)
	defer cancelOther()

	n.Notify(1)
	n.Notify(1) // coalesced, must not block

	select {
	case ev := <-events:
		assert.Equal(t, uint(1), ev.PlanID)
	case <-time.After(time.Second):
		t.Fatal("expected an event for plan 1")
	}
	select {
	case ev := <-other:
		t.Fatalf("plan 2 subscriber got %+v", ev)
	default:
	}

	cancel()
	_, open := <-events
	assert.False(t, open, "cancel closes the channel")
	cancel()
	n.Notify(1)
}

func TestRedisNotifierPublishesPlanChanged(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := NewRedisCache("redis://" + mr.Addr())
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	n := NewRedisNotifier(cache, time.Second, discardLogger())
	sub := n.Subscribe(ctx, 42)
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	n.Notify(42)

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "plans:42:changed", msg.Channel)
		var ev PlanChanged
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, uint(42), ev.PlanID)
	case <-time.After(2 * time.Second):
		t.Fatal("no notification received")
	}
}

func TestRedisNotifierFailureDoesNotPanic(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := NewRedisCache("redis://" + mr.Addr())
	require.NoError(t, err)
	n := NewRedisNotifier(cache, 100*time.Millisecond, discardLogger())

	mr.Close()
	assert.Error(t, n.Publish(context.Background(), 1))
	n.Notify(1)
	cache.Close()
}
