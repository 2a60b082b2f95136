package config

import "time"

// Env/flag prefix used by the resource loaders
var DefaultNamePrefix = "AGENDAUTH_"

// Main app config

type Config struct {
	Server   ServerConfig   `description:"HTTP server configuration."`
	Store    StoreConfig    `description:"Backing store configuration."`
	Identity IdentityConfig `description:"User identity verifier configuration."`
	Log      LogConfig      `description:"Logging configuration."`
}

type ServerConfig struct {
	Port    int    `description:"Port to listen on."`
	Address string `description:"Address to bind to."`
}

type StoreConfig struct {
	Backend string      `description:"Store backend, sqlite or redis."`
	Path    string      `description:"Path to the sqlite database file."`
	Redis   RedisConfig `description:"Redis connection settings."`
}

type RedisConfig struct {
	Address   string `description:"Redis address (host:port)."`
	Password  string `description:"Redis password."`
	DB        int    `description:"Redis database number."`
	KeyPrefix string `description:"Prefix for all keys written by this instance."`
}

type IdentityConfig struct {
	Secret     string `description:"Shared secret used to verify user identity tokens."`
	SecretFile string `description:"Path to a file containing the identity secret."`
	Issuer     string `description:"Expected issuer claim, checked when set."`
}

type LogConfig struct {
	Level string `description:"Log level (trace, debug, info, warn, error)."`
	Json  bool   `description:"Log in JSON format."`
}

// Protocol constants

const (
	AccessTokenExpiry = time.Hour
	AuthCodeExpiry    = 60 * time.Second

	AccessTokenBytes  = 16
	RefreshTokenBytes = 16
	AuthCodeBytes     = 18
	AppSecretBytes    = 30
)

// Version information, set at build time

var Version = "development"
var CommitHash = "n/a"
var BuildTimestamp = "n/a"
