package flowline

import "github.com/gogpu/flowline/cache"

// Option configures a Generator during creation.
//
// Example:
//
//	// Defaults: GOMAXPROCS workers and a private field cache.
//	g := flowline.NewGenerator()
//
//	// Share one cache between generators.
//	fc := cache.NewFieldCache(32)
//	g := flowline.NewGenerator(flowline.WithCache(fc), flowline.WithWorkers(2))
type Option func(*generatorOptions)

type generatorOptions struct {
	config  Config
	workers int
	cache   *cache.FieldCache
}

func defaultOptions() generatorOptions {
	return generatorOptions{
		config:  DefaultConfig(),
		workers: -1, // taken from config unless WithWorkers is given
	}
}

// WithConfig sets the generator's configuration. Settings and pack options
// in the config apply to requests that carry none. WithWorkers and WithCache
// take precedence over the config in any order.
func WithConfig(cfg Config) Option {
	return func(o *generatorOptions) {
		o.config = cfg
	}
}

// WithWorkers sets the number of worker goroutines. 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *generatorOptions) {
		o.workers = n
	}
}

// WithCache makes the generator use fc instead of a private cache, so
// fields can be shared between generators or pre-loaded by the caller.
func WithCache(fc *cache.FieldCache) Option {
	return func(o *generatorOptions) {
		o.cache = fc
	}
}
