package config

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// AppConfig is the global app config for a node. Nothing here affects
// admission rules; it only drives block assembly helpers and key handling.
type AppConfig struct {
	// The default coinbase reward paid by an assembled block.
	COINBASE_REWARD float64
	// RSA key size used when generating a fresh identity.
	KEY_BITS int
}

// DefaultAppConfig is used when no config file is given.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		COINBASE_REWARD: 10,
		KEY_BITS:        2048,
	}
}

// ParseAppConfig loads an AppConfig from a YAML file.
func ParseAppConfig(path string) (AppConfig, error) {
	c := DefaultAppConfig()
	yamlFile, err := ioutil.ReadFile(path)
	if err != nil {
		return c, errors.Wrapf(err, "failed to read config file %s", path)
	}
	if err := yaml.Unmarshal(yamlFile, &c); err != nil {
		return c, errors.Wrapf(err, "failed to parse config file %s", path)
	}
	return c, nil
}
