package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cryptoquick/nostr-types/pkg/nip49"
)

// Config holds keytool defaults. Every field is optional; zero values
// fall back to built-in defaults.
type Config struct {
	// KDFCostLog2 is the scrypt cost exponent used when exporting keys.
	KDFCostLog2 uint8 `yaml:"kdf_cost_log2"`
	// KeyFile is where exported encrypted keys are written.
	KeyFile string `yaml:"key_file"`
}

func loadConfig(path string) (Config, error) {
	cfg := Config{KDFCostLog2: nip49.DefaultLogN}
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if cfg.KDFCostLog2 == 0 {
		cfg.KDFCostLog2 = nip49.DefaultLogN
	}
	return cfg, nil
}
