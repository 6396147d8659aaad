// Package config loads docgraph.toml.
//
// The file is searched upward from the target path, then in the working
// directory. Scalar settings go through viper so DOCGRAPH_* environment
// variables can override them; the node_types and references tables are
// decoded with go-toml directly because viper folds map keys to lower case
// and node type prefixes are case sensitive.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// FileName is the configuration file searched for.
const FileName = "docgraph.toml"

// EnvPrefix prefixes environment overrides, e.g. DOCGRAPH_LOG_LEVEL.
const EnvPrefix = "DOCGRAPH"

// Default configuration values.
const (
	DefaultCacheEnabled = true
	DefaultCacheDir     = ".docgraph"
	DefaultCacheFile    = "cache.db"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

// Config is the effective configuration.
type Config struct {
	Graph      GraphConfig                `mapstructure:"graph" toml:"graph"`
	NodeTypes  map[string]NodeTypeConfig  `mapstructure:"-" toml:"node_types,omitempty"`
	References map[string]ReferenceConfig `mapstructure:"-" toml:"references,omitempty"`
	Cache      CacheConfig                `mapstructure:"cache" toml:"cache"`
	Log        LogConfig                  `mapstructure:"log" toml:"log"`

	// File is the config file that was read, empty when running on defaults.
	File string `mapstructure:"-" toml:"-"`
	// Root is the directory relative paths resolve against: the config
	// file's directory, or the target directory when there is no file.
	Root string `mapstructure:"-" toml:"-"`
}

// GraphConfig is the [graph] table.
type GraphConfig struct {
	Ignore          []string `mapstructure:"ignore" toml:"ignore"`
	StrictNodeTypes bool     `mapstructure:"strict_node_types" toml:"strict_node_types"`
	StrictRelations bool     `mapstructure:"strict_relations" toml:"strict_relations"`
	DocTypes        []string `mapstructure:"doc_types" toml:"doc_types"`
}

// NodeTypeConfig describes one block type prefix.
type NodeTypeConfig struct {
	Desc string `toml:"desc"`
}

// ReferenceConfig holds the relation rules declared for one node type.
type ReferenceConfig struct {
	Rules []RuleConfig `toml:"rules"`
}

// RuleConfig is a single relation rule.
type RuleConfig struct {
	Dir     string   `toml:"dir"` // "from" or "to"
	Targets []string `toml:"targets"`
	Min     *int     `toml:"min,omitempty"`
	Max     *int     `toml:"max,omitempty"`
	Desc    string   `toml:"desc,omitempty"`
}

// CacheConfig is the [cache] table.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Path    string `mapstructure:"path" toml:"path"`
}

// LogConfig is the [log] table.
type LogConfig struct {
	Level  string `mapstructure:"level" toml:"level"`
	Format string `mapstructure:"format" toml:"format"`
	File   string `mapstructure:"file" toml:"file,omitempty"`
}

// Find searches for docgraph.toml from start upward, then in the working
// directory. It returns "" when no file exists.
func Find(start string) string {
	dir, err := filepath.Abs(start)
	if err == nil {
		if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
			dir = filepath.Dir(dir)
		}
		for {
			candidate := filepath.Join(dir, FileName)
			if fileExists(candidate) {
				return candidate
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		if candidate := filepath.Join(cwd, FileName); fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

// Load finds and reads the configuration for target. A missing file is not
// an error; a malformed or invalid one is.
func Load(target string) (*Config, error) {
	root, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", target, err)
	}
	if info, statErr := os.Stat(root); statErr == nil && !info.IsDir() {
		root = filepath.Dir(root)
	}

	file := Find(target)
	if file == "" {
		return build(newViper(), nil, "", root)
	}
	return LoadFile(file)
}

// LoadFile reads configuration from a specific file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	v := newViper()
	if err := v.ReadConfig(strings.NewReader(string(data))); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return build(v, data, abs, filepath.Dir(abs))
}

// Default returns the configuration used when no file exists.
func Default(root string) *Config {
	cfg, _ := build(newViper(), nil, "", root)
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setViperDefaults(v)
	return v
}

// setViperDefaults registers all default configuration values with a viper instance.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("graph.ignore", []string{})
	v.SetDefault("graph.strict_node_types", false)
	v.SetDefault("graph.strict_relations", false)
	v.SetDefault("graph.doc_types", []string{})

	v.SetDefault("cache.enabled", DefaultCacheEnabled)
	v.SetDefault("cache.path", "")

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.file", "")
}

// tables holds the case-sensitive sections of the file.
type tables struct {
	NodeTypes  map[string]NodeTypeConfig  `toml:"node_types"`
	References map[string]ReferenceConfig `toml:"references"`
}

func build(v *viper.Viper, data []byte, file, root string) (*Config, error) {
	cfg := &Config{File: file, Root: root}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(data) > 0 {
		var t tables
		if err := toml.Unmarshal(data, &t); err != nil {
			var de *toml.DecodeError
			if errors.As(err, &de) {
				row, col := de.Position()
				return nil, fmt.Errorf("parse config %s:%d:%d: %w", file, row, col, err)
			}
			return nil, fmt.Errorf("parse config %s: %w", file, err)
		}
		cfg.NodeTypes = t.NodeTypes
		cfg.References = t.References
	}

	if cfg.Cache.Path == "" {
		cfg.Cache.Path = filepath.Join(root, DefaultCacheDir, DefaultCacheFile)
	} else if !filepath.IsAbs(cfg.Cache.Path) {
		cfg.Cache.Path = filepath.Join(root, cfg.Cache.Path)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Encode renders the effective configuration as TOML.
func Encode(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
