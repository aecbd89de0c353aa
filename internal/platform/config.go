package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML configuration read by the command line tool.
//
//	timeout: 10s
//	gateway: https://ipfs.io
//	cache:
//	  backend: redis
//	  ttl: 1h
//	  redis:
//	    addr: localhost:6379
//	base_contexts:
//	  - https://example.org/context.jsonld
//	files:
//	  root: ./contexts
//	  allow: ["**/*.jsonld"]
//	watch: ./contexts
type FileConfig struct {
	Timeout      Duration          `yaml:"timeout"`
	Gateway      string            `yaml:"gateway"`
	UserAgent    string            `yaml:"user_agent"`
	Concurrency  int               `yaml:"concurrency"`
	BaseContexts []string          `yaml:"base_contexts"`
	Cache        CacheConfig       `yaml:"cache"`
	Files        FilesConfig       `yaml:"files"`
	Watch        string            `yaml:"watch"`
	Preload      map[string]string `yaml:"preload"`

	// dir is the directory of the file; relative paths resolve against it.
	dir string
}

// CacheConfig selects the context cache.
type CacheConfig struct {
	Backend string   `yaml:"backend"`
	TTL     Duration `yaml:"ttl"`
	Redis   struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// FilesConfig restricts local file access.
type FilesConfig struct {
	Root  string   `yaml:"root"`
	Allow []string `yaml:"allow"`
}

// Duration reads YAML strings such as "30s" or "1h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, s, err)
	}
	*d = Duration(v)
	return nil
}

// LoadFileConfig reads and decodes the configuration file at path.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		cfg.dir = filepath.Dir(abs)
	}
	return &cfg, nil
}

// Options converts the configuration into engine options. Preloaded files
// are read immediately.
func (c *FileConfig) Options() ([]Option, error) {
	var opts []Option
	if c.Timeout > 0 {
		opts = append(opts, WithTimeout(time.Duration(c.Timeout)))
	}
	if c.Gateway != "" {
		opts = append(opts, WithGateway(c.Gateway))
	}
	if c.UserAgent != "" {
		opts = append(opts, WithUserAgent(c.UserAgent))
	}
	if c.Concurrency != 0 {
		opts = append(opts, WithConcurrency(c.Concurrency))
	}
	if len(c.BaseContexts) > 0 {
		opts = append(opts, WithBaseContextURLs(c.BaseContexts...))
	}

	switch c.Cache.Backend {
	case "", CacheMemory, CacheNone:
	case CacheRedis:
		opts = append(opts, WithRedis(c.Cache.Redis.Addr, c.Cache.Redis.Password, c.Cache.Redis.DB))
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}
	if c.Cache.Backend != "" {
		opts = append(opts, WithCache(c.Cache.Backend))
	}
	if c.Cache.TTL > 0 {
		opts = append(opts, WithCacheTTL(time.Duration(c.Cache.TTL)))
	}

	if c.Files.Root != "" || len(c.Files.Allow) > 0 {
		opts = append(opts, WithFileRoot(c.path(c.Files.Root), c.Files.Allow...))
	}
	if c.Watch != "" {
		opts = append(opts, WithWatch(c.path(c.Watch)))
	}

	if len(c.Preload) > 0 {
		docs := make(map[string][]byte, len(c.Preload))
		for loc, file := range c.Preload {
			data, err := os.ReadFile(c.path(file))
			if err != nil {
				return nil, fmt.Errorf("failed to preload %s: %w", loc, err)
			}
			docs[loc] = data
		}
		opts = append(opts, WithPreload(docs))
	}
	return opts, nil
}

func (c *FileConfig) path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}
