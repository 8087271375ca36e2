package strata

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Config configures an Engine. The zero value plus a Path is usable; every
// other field has a default.
type Config struct {
	// Path is the data directory for the cold store.
	Path string `yaml:"path"`
	// ChunkSize is the fixed maximum chunk size in bytes.
	ChunkSize int `yaml:"chunkSize"`
	// ShardCount is the number of cold-store shards. It must not change for
	// an existing data directory: shard assignment is hash[0] mod ShardCount.
	ShardCount int `yaml:"shardCount"`
	// CacheCapacity is the hot-tier entry bound.
	CacheCapacity int `yaml:"cacheCapacity"`
	// TopK caps the number of search hits returned.
	TopK int `yaml:"topK"`
	// NoCompression disables lzma compression of cold-tier chunk values.
	NoCompression bool `yaml:"noCompression"`
	// SyncWrites forces an fsync per cold-store write transaction.
	SyncWrites bool `yaml:"syncWrites"`
	// MinimumFreeGB is a free-space threshold checked at startup. 0 disables.
	MinimumFreeGB uint `yaml:"minimumFreeGB"`
	// OutDir, when set, mirrors every written buffer to a plain file named
	// after the write label. Observability only, never read back.
	OutDir string `yaml:"outDir"`
	// Logger is an optional structured logger. If nil, a default is used.
	Logger *logrus.Logger `yaml:"-"`
}

// LoadConfig reads a YAML config file and applies defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 256
	}
	if c.ShardCount == 0 {
		c.ShardCount = 4
	}
	if c.CacheCapacity == 0 {
		c.CacheCapacity = 1000
	}
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.Logger == nil {
		c.Logger = logrus.New()
	}
}
