package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// loadFile decodes a TOML config file over cfg. Keys absent from the file keep their value.
func loadFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys in %s: %v", path, undecoded)
	}
	return nil
}
