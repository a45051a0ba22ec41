package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"pet-wellness/internal/platform/changefeed"
	"pet-wellness/internal/platform/logger"

	goredis "github.com/redis/go-redis/v9"
)

// Bus implementa changefeed.Bus sobre Redis pub/sub. Un canal por (topic, key),
// así cada instancia del servicio recibe solo lo que tiene suscrito.
type Bus struct {
	log    logger.Logger
	rdb    goredis.UniversalClient
	prefix string
}

func New(rdb goredis.UniversalClient, prefix string, log logger.Logger) *Bus {
	if log == nil {
		log = logger.NewNop()
	}
	return &Bus{
		log:    log.With(map[string]any{"component": "redis_changefeed"}),
		rdb:    rdb,
		prefix: strings.TrimSpace(prefix),
	}
}

func (b *Bus) Publish(ctx context.Context, e changefeed.Event) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis changefeed not initialized")
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, changefeed.Channel(b.prefix, e.Topic, e.Key), raw).Err()
}

func (b *Bus) Subscribe(ctx context.Context, topic changefeed.Topic, key string, h changefeed.Handler) (changefeed.CancelFunc, error) {
	if b == nil || b.rdb == nil {
		return nil, fmt.Errorf("redis changefeed not initialized")
	}
	if topic == "" || strings.TrimSpace(key) == "" || h == nil {
		return nil, changefeed.ErrInvalidSubscription
	}
	if ctx == nil {
		ctx = context.Background()
	}

	subCtx, cancelCtx := context.WithCancel(ctx)
	sub := b.rdb.Subscribe(subCtx, changefeed.Channel(b.prefix, topic, key))

	// asegura que la suscripción realmente arrancó
	if _, err := sub.Receive(subCtx); err != nil {
		cancelCtx()
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			cancelCtx()
			_ = sub.Close()
		})
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-subCtx.Done():
				cancel()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					cancel()
					return
				}
				var e changefeed.Event
				if err := json.Unmarshal([]byte(m.Payload), &e); err != nil {
					b.log.Warn("bad changefeed payload", map[string]any{"error": err, "channel": m.Channel})
					continue
				}
				h(e)
			}
		}
	}()

	return cancel, nil
}
