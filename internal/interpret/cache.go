package interpret

import (
	"context"
	"encoding/json"

	"github.com/khanglvm/history-suits/internal/storage"
	"go.uber.org/zap"
)

// Cache stores raw interpretation payloads. *storage.SQLiteStorage
// satisfies it.
type Cache interface {
	GetInterpretation(key string) ([]byte, bool, error)
	SaveInterpretation(key, model string, payload []byte) error
}

// Cached memoizes an Interpreter by bundle content. Failures are never cached.
type Cached struct {
	next   Interpreter
	cache  Cache
	model  string
	logger *zap.Logger
}

// NewCached wraps next with cache. model is folded into the key so switching
// models does not reuse stale answers.
func NewCached(next Interpreter, cache Cache, model string, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{next: next, cache: cache, model: model, logger: logger}
}

// Interpret implements Interpreter.
func (c *Cached) Interpret(ctx context.Context, b Bundle) (*Response, error) {
	key, err := c.key(b)
	if err != nil {
		return c.next.Interpret(ctx, b)
	}

	if payload, ok, err := c.cache.GetInterpretation(key); err != nil {
		c.logger.Warn("interpretation cache read failed", zap.Error(err))
	} else if ok {
		var resp Response
		if err := json.Unmarshal(payload, &resp); err == nil {
			c.logger.Debug("interpretation cache hit", zap.String("kind", b.Kind), zap.Int("suit", b.SuitID))
			return &resp, nil
		}
	}

	resp, err := c.next.Interpret(ctx, b)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(resp); err == nil {
		if err := c.cache.SaveInterpretation(key, c.model, payload); err != nil {
			c.logger.Warn("interpretation cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}

func (c *Cached) key(b Bundle) (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return storage.HashKey(append([]byte(c.model+"\n"), data...)), nil
}
