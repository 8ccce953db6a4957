package fastprop

import (
	"github.com/Konsultn-Engineering/fastprop/cache"
	"github.com/Konsultn-Engineering/fastprop/schema"
)

type config struct {
	cache   cache.AccessorCache
	resolve schema.Options
}

// Option configures accessor construction.
type Option func(*config)

func newConfig(opts []Option) *config {
	cfg := &config{resolve: schema.DefaultOptions()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.cache == nil {
		cfg.cache = cache.Default()
	}
	return cfg
}

// WithCache makes the accessor use c instead of the process-wide cache.
func WithCache(c cache.AccessorCache) Option {
	return func(cfg *config) { cfg.cache = c }
}

// WithNaming sets how the property name is matched against Go names.
func WithNaming(style schema.NamingStyle) Option {
	return func(cfg *config) { cfg.resolve.Naming = style }
}

// WithTagName sets the struct tag read for aliases and flags. An empty name
// ignores tags entirely.
func WithTagName(name string) Option {
	return func(cfg *config) { cfg.resolve.TagName = name }
}
