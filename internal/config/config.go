package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	UploadDir         string        `mapstructure:"upload_dir" yaml:"upload_dir"`
	MaxUploadBytes    int64         `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
	JWTSecret         string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer         string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	PublicRooms       []string      `mapstructure:"public_rooms" yaml:"public_rooms"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DatabasePath:      "noknowgram.db",
		UploadDir:         "uploads",
		MaxUploadBytes:    100 << 20,
		JWTSecret:         "change-me",
		JWTIssuer:         "noknowgram",
		PublicRooms:       []string{"general", "gaming", "music"},
	}
}
