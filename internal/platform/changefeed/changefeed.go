// Package changefeed transporta notificaciones de cambio del store autoritativo
// hacia los listeners suscritos (perfil, registro de usuario).
package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"
)

type Topic string

const (
	TopicProfile Topic = "profile"
	TopicUser    Topic = "user"
)

type Op string

const (
	OpSaved      Op = "saved"
	OpDeleted    Op = "deleted"
	OpReconciled Op = "reconciled"
)

// Event es un cambio sobre el documento (Topic, Key). Payload lleva el documento
// completo tras el cambio (vacío en OpDeleted).
type Event struct {
	Topic   Topic           `json:"topic"`
	Key     string          `json:"key"`
	Op      Op              `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
	At      time.Time       `json:"at"`
}

type Handler func(Event)

// CancelFunc corta una suscripción. Es idempotente.
type CancelFunc func()

type Bus interface {
	Publish(ctx context.Context, e Event) error
	// Subscribe registra h hasta que se llame al CancelFunc o termine ctx.
	Subscribe(ctx context.Context, topic Topic, key string, h Handler) (CancelFunc, error)
}

var ErrInvalidSubscription = errors.New("changefeed: topic, key and handler are required")

// Hub es el Bus in-process. Entrega de forma síncrona en Publish; los handlers
// se invocan fuera del lock.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]Handler
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]Handler)}
}

func (h *Hub) Publish(_ context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	h.mu.RLock()
	targets := make([]Handler, 0, len(h.subs[subKey(e.Topic, e.Key)]))
	for _, fn := range h.subs[subKey(e.Topic, e.Key)] {
		targets = append(targets, fn)
	}
	h.mu.RUnlock()

	for _, fn := range targets {
		fn(e)
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, topic Topic, key string, fn Handler) (CancelFunc, error) {
	if topic == "" || strings.TrimSpace(key) == "" || fn == nil {
		return nil, ErrInvalidSubscription
	}

	k := subKey(topic, key)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[k] == nil {
		h.subs[k] = make(map[uint64]Handler)
	}
	h.subs[k][id] = fn
	h.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			h.mu.Lock()
			delete(h.subs[k], id)
			if len(h.subs[k]) == 0 {
				delete(h.subs, k)
			}
			h.mu.Unlock()
		})
	}

	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-done:
			}
		}()
	}

	return cancel, nil
}

// Listeners devuelve cuántos handlers hay activos para (topic, key).
func (h *Hub) Listeners(topic Topic, key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[subKey(topic, key)])
}

func subKey(topic Topic, key string) string {
	return string(topic) + ":" + key
}

// Channel es el nombre del canal pub/sub para (topic, key) en buses remotos.
func Channel(prefix string, topic Topic, key string) string {
	if prefix == "" {
		prefix = "petwell"
	}
	return prefix + ":" + subKey(topic, key)
}
