// Package push manages the web push subscription lifecycle: VAPID key
// handling and registering browser subscriptions with the story API.
package push

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"

	domainerrors "github.com/ceritasekitarmu/cerita-server/internal/errors"
	"github.com/ceritasekitarmu/cerita-server/internal/remote"
)

// vapidKeyLen is the length of an uncompressed P-256 public key point.
const vapidKeyLen = 65

// DecodeVAPIDKey decodes a base64url VAPID application server key and checks
// it is an uncompressed P-256 point (65 bytes, 0x04 prefix).
func DecodeVAPIDKey(key string) ([]byte, error) {
	if key == "" {
		return nil, domainerrors.Validation("VAPID key is empty")
	}

	raw, err := base64.RawURLEncoding.DecodeString(key)
	if err != nil {
		// Some sources pad their keys.
		raw, err = base64.URLEncoding.DecodeString(key)
		if err != nil {
			return nil, domainerrors.Validation("VAPID key is not valid base64url").WithCause(err)
		}
	}

	if len(raw) != vapidKeyLen {
		return nil, domainerrors.Validationf("VAPID key must decode to %d bytes, got %d", vapidKeyLen, len(raw))
	}
	if raw[0] != 0x04 {
		return nil, domainerrors.Validation("VAPID key is not an uncompressed EC point")
	}
	return raw, nil
}

// Subscription identifies one browser push endpoint.
type Subscription struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     Keys   `json:"keys"`
}

// Keys are the client encryption keys of a subscription.
type Keys struct {
	P256dh string `json:"p256dh" validate:"required"`
	Auth   string `json:"auth" validate:"required"`
}

// Subscriber is the part of the API client the manager needs.
type Subscriber interface {
	SubscribePush(ctx context.Context, sub remote.PushSubscription) error
	UnsubscribePush(ctx context.Context, endpoint string) error
}

// Manager registers subscriptions with the API and remembers the active one.
type Manager struct {
	client    Subscriber
	serverKey []byte
	logger    *slog.Logger

	mu      sync.Mutex
	current *Subscription
}

// NewManager validates the configured VAPID key and returns a manager.
func NewManager(vapidKey string, client Subscriber, logger *slog.Logger) (*Manager, error) {
	serverKey, err := DecodeVAPIDKey(vapidKey)
	if err != nil {
		return nil, fmt.Errorf("decode VAPID key: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{client: client, serverKey: serverKey, logger: logger}, nil
}

// ServerKey returns the decoded application server key for clients that need
// it to create a subscription.
func (m *Manager) ServerKey() []byte {
	out := make([]byte, len(m.serverKey))
	copy(out, m.serverKey)
	return out
}

// Subscribe registers a subscription with the API and records it as active.
func (m *Manager) Subscribe(ctx context.Context, sub Subscription) error {
	err := m.client.SubscribePush(ctx, remote.PushSubscription{
		Endpoint: sub.Endpoint,
		Keys:     remote.PushKeys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
	})
	if err != nil {
		return fmt.Errorf("subscribe push: %w", err)
	}

	m.mu.Lock()
	m.current = &sub
	m.mu.Unlock()

	m.logger.Info("push subscription registered", "endpoint", sub.Endpoint)
	return nil
}

// Unsubscribe removes the active subscription. A no-op when none is active.
func (m *Manager) Unsubscribe(ctx context.Context) error {
	m.mu.Lock()
	current := m.current
	m.mu.Unlock()
	if current == nil {
		return nil
	}

	if err := m.client.UnsubscribePush(ctx, current.Endpoint); err != nil {
		return fmt.Errorf("unsubscribe push: %w", err)
	}

	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	m.logger.Info("push subscription removed", "endpoint", current.Endpoint)
	return nil
}

// Current returns the active subscription, or nil.
func (m *Manager) Current() *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	sub := *m.current
	return &sub
}
