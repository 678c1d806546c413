package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content. References to
	// unset variables stay intact so command template placeholders like
	// ${node_id} survive until render time.
	expandedData := os.Expand(string(data), func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return "${" + key + "}"
	})
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Transport.Kind == "" {
		cfg.Transport.Kind = "loopback"
	}
	if cfg.Transport.Timeout == 0 {
		cfg.Transport.Timeout = 30 * time.Second
	}
	if cfg.Notify.Timeout == 0 {
		cfg.Notify.Timeout = 10 * time.Second
	}
	if cfg.Recovery.MaxAttempts == 0 {
		cfg.Recovery.MaxAttempts = 3
	}
	if cfg.Recovery.BaseDelay == 0 {
		cfg.Recovery.BaseDelay = 1 * time.Second
	}
	if cfg.Recovery.MaxDelay == 0 {
		cfg.Recovery.MaxDelay = 30 * time.Second
	}
	if cfg.Recovery.BackoffMultiplier == 0 {
		cfg.Recovery.BackoffMultiplier = 2.0
	}
	if cfg.Recovery.SweepInterval == 0 {
		cfg.Recovery.SweepInterval = time.Minute
	}
	if cfg.Recovery.SweepMaxRetries == 0 {
		cfg.Recovery.SweepMaxRetries = 5
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate rejects configurations the dispatcher cannot run with.
func validate(cfg *AppConfig) error {
	collections := make(map[string]bool, len(cfg.Collections))
	for _, c := range cfg.Collections {
		if c.ID == "" {
			return fmt.Errorf("collection with empty id")
		}
		if collections[c.ID] {
			return fmt.Errorf("duplicate collection id %q", c.ID)
		}
		collections[c.ID] = true
	}

	for _, b := range cfg.Batches {
		if b.ID == "" {
			return fmt.Errorf("batch with empty id")
		}
		if b.Collection == "" {
			return fmt.Errorf("batch %q has no collection", b.ID)
		}
		if !collections[b.Collection] {
			return fmt.Errorf("batch %q references unknown collection %q", b.ID, b.Collection)
		}
		if len(b.Templates) == 0 {
			return fmt.Errorf("batch %q has no command templates", b.ID)
		}
	}

	switch cfg.Transport.Kind {
	case "loopback":
	case "http", "grpc":
		if cfg.Transport.Endpoint == "" {
			return fmt.Errorf("transport kind %q requires an endpoint", cfg.Transport.Kind)
		}
	default:
		return fmt.Errorf("unknown transport kind %q", cfg.Transport.Kind)
	}

	return nil
}
