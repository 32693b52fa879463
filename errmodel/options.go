package errmodel

import (
	"fmt"
	"strconv"
	"strings"
)

type pluginOption struct {
	key, value string
	used       bool
}

// PluginConfig is one "-error-model-options" occurrence:
// "pluginId:key=value[:key=value...]". Getters mark the keys they read as
// used so that typos can be reported after the plugin is built.
type PluginConfig struct {
	ID      string
	options []*pluginOption
}

// ParsePluginConfig parses one option string.
func ParsePluginConfig(s string) (*PluginConfig, error) {
	fields := strings.Split(s, ":")
	id := strings.TrimSpace(fields[0])
	if id == "" {
		return nil, fmt.Errorf("error-model-options '%s': missing plugin id", s)
	}
	cfg := &PluginConfig{ID: id}
	for _, f := range fields[1:] {
		if f == "" {
			continue
		}
		kv := strings.SplitN(f, "=", 2)
		if len(kv) != 2 || strings.TrimSpace(kv[0]) == "" {
			return nil, fmt.Errorf("error-model-options '%s': expect key=value, found '%s'", s, f)
		}
		cfg.options = append(cfg.options, &pluginOption{key: strings.TrimSpace(kv[0]), value: strings.TrimSpace(kv[1])})
	}
	return cfg, nil
}

// ParsePluginConfigs parses a list of option strings, preserving order.
func ParsePluginConfigs(args []string) ([]*PluginConfig, error) {
	var cfgs []*PluginConfig
	for _, a := range args {
		cfg, err := ParsePluginConfig(a)
		if err != nil {
			return nil, err
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, nil
}

// lookup returns the value of the last occurrence of key and marks every
// occurrence as used.
func (c *PluginConfig) lookup(key string) (string, bool) {
	var (
		value string
		found bool
	)
	for _, o := range c.options {
		if o.key == key {
			o.used = true
			value, found = o.value, true
		}
	}
	return value, found
}

// String returns the value of key, or def if absent.
func (c *PluginConfig) String(key, def string) string {
	if v, ok := c.lookup(key); ok {
		return v
	}
	return def
}

// Float returns the value of key parsed as a float, or def if absent.
func (c *PluginConfig) Float(key string, def float64) (float64, error) {
	v, ok := c.lookup(key)
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: option %s=%s: %v", c.ID, key, v, err)
	}
	return f, nil
}

// Int returns the value of key parsed as an integer, or def if absent.
func (c *PluginConfig) Int(key string, def int) (int, error) {
	v, ok := c.lookup(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: option %s=%s: %v", c.ID, key, v, err)
	}
	return n, nil
}

// Unused lists the "id:key=value" options no getter has read.
func (c *PluginConfig) Unused() []string {
	var unused []string
	for _, o := range c.options {
		if !o.used {
			unused = append(unused, fmt.Sprintf("%s:%s=%s", c.ID, o.key, o.value))
		}
	}
	return unused
}
