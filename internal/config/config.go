// Package config loads the vecmod command line configuration (vecmod.yaml).
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/vecmod/binaryset"
	"github.com/hupe1980/vecmod/blobstore"
	"github.com/hupe1980/vecmod/blobstore/minio"
	"github.com/hupe1980/vecmod/blobstore/s3"
	"github.com/hupe1980/vecmod/logging"
	"github.com/hupe1980/vecmod/plugin"
	"gopkg.in/yaml.v3"
)

// FileName is the default configuration file name.
const FileName = "vecmod.yaml"

// Store kinds.
const (
	StoreLocal  = "local"
	StoreMemory = "memory"
	StoreS3     = "s3"
	StoreMinIO  = "minio"
)

// Log configures the logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Store selects and configures the blob store.
type Store struct {
	Kind      string `yaml:"kind"`
	Root      string `yaml:"root,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	Secure    bool   `yaml:"secure,omitempty"`

	// CacheBytes enables an in-memory read cache of that many bytes.
	CacheBytes int64 `yaml:"cache_bytes,omitempty"`
}

// Config is the in-memory representation of vecmod.yaml.
type Config struct {
	PluginDirs  []string `yaml:"plugin_dirs,omitempty"`
	APIVersion  uint32   `yaml:"api_version"`
	Compression string   `yaml:"compression,omitempty"`
	Log         Log      `yaml:"log"`
	Store       Store    `yaml:"store"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		APIVersion:  plugin.APIVersion,
		Compression: binaryset.CompressionNone.String(),
		Log:         Log{Level: "warn", Format: "text"},
		Store:       Store{Kind: StoreLocal, Root: "./data"},
	}
}

// Load reads the configuration at path. A missing file yields Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks field values.
func (c *Config) Validate() error {
	if _, err := binaryset.ParseCompression(c.Compression); err != nil {
		return fmt.Errorf("compression: %w", err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	switch c.Store.Kind {
	case StoreLocal, StoreMemory:
	case StoreS3, StoreMinIO:
		if c.Store.Bucket == "" {
			return fmt.Errorf("store.bucket is required for %s", c.Store.Kind)
		}
		if c.Store.Kind == StoreMinIO && c.Store.Endpoint == "" {
			return fmt.Errorf("store.endpoint is required for %s", c.Store.Kind)
		}
	default:
		return fmt.Errorf("store.kind: unknown kind %q", c.Store.Kind)
	}
	if c.Store.CacheBytes < 0 {
		return fmt.Errorf("store.cache_bytes: must not be negative")
	}
	return nil
}

// CompressionValue returns the parsed compression.
func (c *Config) CompressionValue() binaryset.Compression {
	comp, _ := binaryset.ParseCompression(c.Compression)
	return comp
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Logger builds the configured logger.
func (c *Config) Logger() *logging.Logger {
	level, _ := parseLevel(c.Log.Level)
	if c.Log.Format == "json" {
		return logging.NewJSON(level)
	}
	return logging.NewText(level)
}

// OpenStore connects to the configured blob store, wrapped in a read cache
// when store.cache_bytes is set.
func (c *Config) OpenStore(ctx context.Context) (blobstore.Store, error) {
	store, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if c.Store.CacheBytes > 0 {
		return blobstore.NewCachingStore(store, c.Store.CacheBytes), nil
	}
	return store, nil
}

func (c *Config) openStore(ctx context.Context) (blobstore.Store, error) {
	s := c.Store
	switch s.Kind {
	case StoreMemory:
		return blobstore.NewMemoryStore(), nil
	case StoreS3:
		var opts []s3.Option
		if s.Prefix != "" {
			opts = append(opts, s3.WithPrefix(s.Prefix))
		}
		if s.Region != "" {
			opts = append(opts, s3.WithRegion(s.Region))
		}
		if s.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(s.Endpoint))
		}
		return s3.New(ctx, s.Bucket, opts...)
	case StoreMinIO:
		return minio.Connect(ctx, minio.Config{
			Endpoint:     s.Endpoint,
			AccessKey:    os.ExpandEnv(s.AccessKey),
			SecretKey:    os.ExpandEnv(s.SecretKey),
			Region:       s.Region,
			Secure:       s.Secure,
			Bucket:       s.Bucket,
			Prefix:       s.Prefix,
			CreateBucket: true,
		})
	default:
		root := s.Root
		if root == "" {
			root = "./data"
		}
		return blobstore.NewLocalStore(root), nil
	}
}
