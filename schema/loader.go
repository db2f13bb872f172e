package schema

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/xiaot623/gptchat/logging"
)

// Fetcher fetches the raw run configuration schema.
type Fetcher interface {
	GetConfigSchema(ctx context.Context) (json.RawMessage, error)
}

// Loader fetches and simplifies the configuration schema once. A failed
// fetch is logged and leaves both schema and defaults nil; it is not retried.
type Loader struct {
	fetcher Fetcher
	logger  *zap.Logger

	once     sync.Once
	schema   *Schema
	defaults *Defaults
}

// NewLoader creates a new schema loader.
func NewLoader(fetcher Fetcher, logger *zap.Logger) *Loader {
	return &Loader{fetcher: fetcher, logger: logging.OrNop(logger)}
}

// Load returns the simplified schema and its defaults, fetching on first use.
func (l *Loader) Load(ctx context.Context) (*Schema, *Defaults) {
	l.once.Do(func() {
		raw, err := l.fetcher.GetConfigSchema(ctx)
		if err != nil {
			l.logger.Error("failed to fetch config schema", zap.Error(err))
			return
		}
		s, err := Simplify(raw)
		if err != nil {
			l.logger.Error("failed to simplify config schema", zap.Error(err))
			return
		}
		l.schema = s
		l.defaults = DeriveDefaults(s)
		l.logger.Debug("loaded config schema", zap.Int("fields", len(s.Fields)), zap.Stringer("schema", s))
	})
	return l.schema, l.defaults
}
