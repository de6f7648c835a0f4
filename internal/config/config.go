// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultJWTExpiresIn    = "24h"
	DefaultMongoURI        = "mongodb://127.0.0.1:27017"
	DefaultMongoDatabase   = "loreline"
	DefaultStorageBackend  = "gcs"
	DefaultPublicBaseURL   = "https://storage.example"
	DefaultImportOwnerName = "Loreline Migration"
	DefaultImportWorkers   = 4
	DefaultReimportPolicy  = "duplicate"
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Admin     AdminConfig     `toml:"admin"`
	Auth      AuthConfig      `toml:"auth"`
	Mongo     MongoConfig     `toml:"mongo"`
	Firestore FirestoreConfig `toml:"firestore"`
	Storage   StorageConfig   `toml:"storage"`
	Import    ImportConfig    `toml:"import"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// AdminConfig holds the operator account used to call the migration API.
type AdminConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// AuthConfig holds JWT secret and token expiry (e.g. 24h).
type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

// MongoConfig holds the legacy source store connection parameters.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// FirestoreConfig holds the target document store / identity provider project.
// CredentialsFile is shared by Firestore, Firebase Auth, and Cloud Storage clients.
type FirestoreConfig struct {
	ProjectID       string `toml:"project_id"`
	CredentialsFile string `toml:"credentials_file"`
}

// StorageConfig holds object storage buckets and the public URL base.
// Backend selects the implementation: "gcs" or "memory" (constrained/mock mode).
type StorageConfig struct {
	Backend       string `toml:"backend"`
	SourceBucket  string `toml:"source_bucket"`
	TargetBucket  string `toml:"target_bucket"`
	PublicBaseURL string `toml:"public_base_url"`
}

// ImportConfig holds migration run policy: the substituted owner identity,
// worker pool size, and what to do when a community was already imported.
type ImportConfig struct {
	OwnerEmail     string `toml:"owner_email"`
	OwnerName      string `toml:"owner_name"`
	Workers        int    `toml:"workers"`
	ReimportPolicy string `toml:"reimport_policy"`
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path == "" {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultHTTPAddr
	}
	if cfg.Auth.JWTExpiresIn == "" {
		cfg.Auth.JWTExpiresIn = DefaultJWTExpiresIn
	}
	if cfg.Mongo.URI == "" {
		cfg.Mongo.URI = DefaultMongoURI
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = DefaultMongoDatabase
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.PublicBaseURL == "" {
		cfg.Storage.PublicBaseURL = DefaultPublicBaseURL
	}
	if cfg.Import.OwnerName == "" {
		cfg.Import.OwnerName = DefaultImportOwnerName
	}
	if cfg.Import.Workers <= 0 {
		cfg.Import.Workers = DefaultImportWorkers
	}
	if cfg.Import.ReimportPolicy == "" {
		cfg.Import.ReimportPolicy = DefaultReimportPolicy
	}
}
