// Package config provides type-safe environment variable loading with caching
// using Go generics. Each configuration type is loaded once and cached for
// subsequent calls.
//
// The package automatically loads .env files on first use and uses the
// caarlos0/env library for parsing environment variables into struct fields.
//
// Basic usage:
//
//	import "github.com/zjuct/mini-redis-http/core/config"
//
//	type PubSubConfig struct {
//		BufferSize int           `env:"PUBSUB_BUFFER_SIZE" envDefault:"16"`
//		Timeout    time.Duration `env:"SUBSCRIBE_TIMEOUT" envDefault:"0s"`
//	}
//
//	func main() {
//		var ps PubSubConfig
//
//		// Load with error handling
//		if err := config.Load(&ps); err != nil {
//			log.Fatal(err)
//		}
//
//		// Or panic on failure (useful for startup)
//		config.MustLoad(&ps)
//	}
//
// # Caching Behavior
//
// Each configuration type is loaded only once per application lifetime:
//
//	var cfg1 PubSubConfig
//	config.Load(&cfg1) // Loads from environment
//
//	var cfg2 PubSubConfig
//	config.Load(&cfg2) // Returns cached value, cfg1 == cfg2
//
// Different types are cached independently:
//
//	type ServerConfig struct {
//		Port int `env:"PORT" envDefault:"8080"`
//	}
//
//	// Each type has its own cache entry
//	config.MustLoad(&ServerConfig{})
//	config.MustLoad(&PubSubConfig{})
package config
