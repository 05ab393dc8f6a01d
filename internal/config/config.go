package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	StoreNeo4j  = "neo4j"
	StoreMemory = "memory"

	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

type ServerConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Transport string `toml:"transport"`
}

type StoreConfig struct {
	// Backend is "neo4j" or "memory".
	Backend string `toml:"backend"`
	// SeedDefaults loads the built-in personas into an empty memory store.
	SeedDefaults bool `toml:"seed_defaults"`
}

type Neo4jConfig struct {
	URI          string `toml:"uri"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	BuildIndices bool   `toml:"build_indices"`
	// MaxRetrySeconds bounds driver retries of a failed transaction.
	MaxRetrySeconds float64 `toml:"max_retry_seconds"`
}

type EngineConfig struct {
	CreateMissingRelationships bool    `toml:"create_missing_relationships"`
	DefaultTrust               float64 `toml:"default_trust"`
	DefaultIntimacy            float64 `toml:"default_intimacy"`
	DefaultStrength            float64 `toml:"default_strength"`
	DefaultRelationshipType    string  `toml:"default_relationship_type"`
	CommunityAlgorithm         string  `toml:"community_algorithm"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// PromptsConfig overrides the built-in prompt templates. Empty fields keep
// the defaults.
type PromptsConfig struct {
	AssessAttachmentStyle   string `toml:"assess_attachment_style"`
	AnalyzeEmotionalClimate string `toml:"analyze_emotional_climate"`
	GenerateSecureResponse  string `toml:"generate_secure_response"`
}

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Store   StoreConfig   `toml:"store"`
	Neo4j   Neo4jConfig   `toml:"neo4j"`
	Engine  EngineConfig  `toml:"engine"`
	Log     LogConfig     `toml:"log"`
	Prompts PromptsConfig `toml:"prompts"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8765, Transport: TransportHTTP},
		Store:  StoreConfig{Backend: StoreNeo4j},
		Neo4j: Neo4jConfig{
			URI:             "bolt://localhost:7687",
			User:            "neo4j",
			Database:        "neo4j",
			BuildIndices:    true,
			MaxRetrySeconds: 30,
		},
		Engine: EngineConfig{
			DefaultTrust:            5.0,
			DefaultIntimacy:         5.0,
			DefaultStrength:         5.0,
			DefaultRelationshipType: "unknown",
			CommunityAlgorithm:      "lpa",
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from the environment. Malformed numeric or
// boolean values are reported rather than ignored.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("NEO4J_URI"); v != "" {
		c.Neo4j.URI = v
	}
	if v := os.Getenv("NEO4J_USER"); v != "" {
		c.Neo4j.User = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" {
		c.Neo4j.Password = v
	}
	if v := os.Getenv("NEO4J_DATABASE"); v != "" {
		c.Neo4j.Database = v
	}
	if v := os.Getenv("LILA_STORE"); v != "" {
		c.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("LILA_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("LILA_TRANSPORT"); v != "" {
		c.Server.Transport = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LILA_CREATE_MISSING_RELATIONSHIPS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LILA_CREATE_MISSING_RELATIONSHIPS %q: %w", v, err)
		}
		c.Engine.CreateMissingRelationships = b
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreNeo4j:
		if c.Neo4j.URI == "" {
			return fmt.Errorf("neo4j.uri is required for the neo4j store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store backend %q (want %s or %s)", c.Store.Backend, StoreNeo4j, StoreMemory)
	}

	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("unknown transport %q (want %s or %s)", c.Server.Transport, TransportStdio, TransportHTTP)
	}
	if c.Neo4j.MaxRetrySeconds < 0 {
		return fmt.Errorf("neo4j.max_retry_seconds must not be negative, got %v", c.Neo4j.MaxRetrySeconds)
	}
	if c.Server.Transport == TransportHTTP && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	for name, v := range map[string]float64{
		"default_trust":    c.Engine.DefaultTrust,
		"default_intimacy": c.Engine.DefaultIntimacy,
		"default_strength": c.Engine.DefaultStrength,
	} {
		if v < 0 || v > 10 {
			return fmt.Errorf("engine.%s must be within [0, 10], got %v", name, v)
		}
	}
	return nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
