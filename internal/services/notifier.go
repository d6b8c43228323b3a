package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Notifier tells collaborators that a plan changed. Receivers re-fetch the plan;
// no diff is carried. Notify must not block the caller and its failure never
// affects the mutation that already committed.
type Notifier interface {
	Notify(planID uint)
}

// PlanChanged is the only event published
type PlanChanged struct {
	PlanID uint `json:"plan_id"`
}

// PlanChannel is the Pub/Sub channel subscribers of one plan listen on
func PlanChannel(planID uint) string {
	return fmt.Sprintf("plans:%d:changed", planID)
}

// NopNotifier drops every event
type NopNotifier struct{}

func (NopNotifier) Notify(uint) {}

// RedisNotifier publishes PlanChanged events over Redis Pub/Sub so every API
// instance's subscribers see them
type RedisNotifier struct {
	client  *redis.Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewRedisNotifier(cache *RedisCache, timeout time.Duration, logger *slog.Logger) *RedisNotifier {
	return &RedisNotifier{client: cache.Client(), timeout: timeout, logger: logger}
}

// Notify publishes in the background with its own deadline
func (n *RedisNotifier) Notify(planID uint) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.Publish(ctx, planID); err != nil {
			n.logger.Warn("plan change notification failed", "plan_id", planID, "error", err)
		}
	}()
}

// Publish sends one PlanChanged event synchronously
func (n *RedisNotifier) Publish(ctx context.Context, planID uint) error {
	payload, err := json.Marshal(PlanChanged{PlanID: planID})
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, PlanChannel(planID), payload).Err()
}

// Subscribe listens for changes of one plan. The caller must Close the PubSub.
func (n *RedisNotifier) Subscribe(ctx context.Context, planID uint) *redis.PubSub {
	return n.client.Subscribe(ctx, PlanChannel(planID))
}

// LocalNotifier fans events out to in-process subscribers. Each subscriber
// channel holds at most one pending signal: refreshes are idempotent, so a
// slow reader only needs to know that something changed.
type LocalNotifier struct {
	mu   sync.Mutex
	subs map[uint]map[chan PlanChanged]struct{}
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{subs: make(map[uint]map[chan PlanChanged]struct{})}
}

func (n *LocalNotifier) Notify(planID uint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs[planID] {
		select {
		case ch <- PlanChanged{PlanID: planID}:
		default:
		}
	}
}

// Subscribe registers a listener for planID. The returned cancel func
// unregisters it and closes the channel.
func (n *LocalNotifier) Subscribe(planID uint) (<-chan PlanChanged, func()) {
	ch := make(chan PlanChanged, 1)

	n.mu.Lock()
	if n.subs[planID] == nil {
		n.subs[planID] = make(map[chan PlanChanged]struct{})
	}
	n.subs[planID][ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs[planID], ch)
			if len(n.subs[planID]) == 0 {
				delete(n.subs, planID)
			}
			n.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
