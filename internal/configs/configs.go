/*
Package configs is responsible for loading and parsing the application's configuration settings.

Settings start from built-in defaults, are optionally overlaid by a YAML file named in
CONFIG_FILE, and are finally overridden by individual environment variables.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// IdentityPolicy decides what happens when INIT names an identity that is already connected.
type IdentityPolicy string

const (
	// PolicyOverwrite silently remaps the identity to the newest connection.
	PolicyOverwrite IdentityPolicy = "overwrite"

	// PolicyKick remaps the identity and closes the previous connection.
	PolicyKick IdentityPolicy = "kick"

	// PolicyReject refuses the second INIT and leaves the newcomer uninitialized.
	PolicyReject IdentityPolicy = "reject"
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment     string        `yaml:"environment"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	IndexFile       string        `yaml:"index_file"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Security Settings
	AllowedOrigins []string `yaml:"allowed_origins"`
	ConnectRate    float64  `yaml:"connect_rate"`
	ConnectBurst   int      `yaml:"connect_burst"`

	// Relay Settings
	IdentityPolicy     IdentityPolicy `yaml:"identity_policy"`
	NotifySenderErrors bool           `yaml:"notify_sender_errors"`
	SendQueueSize      int            `yaml:"send_queue_size"`
	MaxMessageBytes    int64          `yaml:"max_message_bytes"`
	MaxTextBytes       int            `yaml:"max_text_bytes"`
	MessageRate        float64        `yaml:"message_rate"`
	MessageBurst       int            `yaml:"message_burst"`
}

// Default returns the configuration used when nothing is set.
func Default() *AppConfig {
	return &AppConfig{
		Environment:     "development",
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 5 * time.Second,

		AllowedOrigins: []string{},
		ConnectRate:    0.2,
		ConnectBurst:   5,

		IdentityPolicy:  PolicyOverwrite,
		SendQueueSize:   256,
		MaxMessageBytes: 8192,
		MaxTextBytes:    5000,
		MessageRate:     0,
		MessageBurst:    20,
	}
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// Addr returns the listen address in host:port form.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig builds the configuration from defaults, the optional CONFIG_FILE and the environment.
// It returns an error when a value cannot be parsed or fails validation.
func LoadConfig() (*AppConfig, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile overlays the YAML file at path onto cfg. ${VAR} references are expanded first.
func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	return nil
}

func (c *AppConfig) applyEnv() error {
	var err error

	// --- General Server Settings ---
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}

	if v := os.Getenv("HOST"); v != "" {
		c.Host = v
	}

	if v := os.Getenv("PORT"); v != "" {
		if c.Port, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid PORT environment variable: %w", err)
		}
	}

	if v := os.Getenv("INDEX_FILE"); v != "" {
		c.IndexFile = v
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		if c.ShutdownTimeout, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid SHUTDOWN_TIMEOUT environment variable: %w", err)
		}
	}

	// --- Security Settings ---
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = parseOrigins(v)
	}

	if v := os.Getenv("CONNECT_RATE"); v != "" {
		if c.ConnectRate, err = strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("invalid CONNECT_RATE environment variable: %w", err)
		}
	}

	if v := os.Getenv("CONNECT_BURST"); v != "" {
		if c.ConnectBurst, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid CONNECT_BURST environment variable: %w", err)
		}
	}

	// --- Relay Settings ---
	if v := os.Getenv("IDENTITY_POLICY"); v != "" {
		c.IdentityPolicy = IdentityPolicy(strings.ToLower(strings.TrimSpace(v)))
	}

	if v := os.Getenv("NOTIFY_SENDER_ERRORS"); v != "" {
		if c.NotifySenderErrors, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("invalid NOTIFY_SENDER_ERRORS environment variable: %w", err)
		}
	}

	if v := os.Getenv("SEND_QUEUE_SIZE"); v != "" {
		if c.SendQueueSize, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid SEND_QUEUE_SIZE environment variable: %w", err)
		}
	}

	if v := os.Getenv("MAX_MESSAGE_BYTES"); v != "" {
		if c.MaxMessageBytes, err = strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("invalid MAX_MESSAGE_BYTES environment variable: %w", err)
		}
	}

	if v := os.Getenv("MAX_TEXT_BYTES"); v != "" {
		if c.MaxTextBytes, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid MAX_TEXT_BYTES environment variable: %w", err)
		}
	}

	if v := os.Getenv("MESSAGE_RATE"); v != "" {
		if c.MessageRate, err = strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("invalid MESSAGE_RATE environment variable: %w", err)
		}
	}

	if v := os.Getenv("MESSAGE_BURST"); v != "" {
		if c.MessageBurst, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid MESSAGE_BURST environment variable: %w", err)
		}
	}

	return nil
}

// Validate checks ranges and enumerations.
func (c *AppConfig) Validate() error {
	if c.Port < 1024 || c.Port > 65535 {
		return fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", c.Port, 1024, 65535)
	}

	switch c.IdentityPolicy {
	case PolicyOverwrite, PolicyKick, PolicyReject:
	default:
		return fmt.Errorf("unknown identity policy %q (want %s, %s or %s)", c.IdentityPolicy, PolicyOverwrite, PolicyKick, PolicyReject)
	}

	if c.SendQueueSize <= 0 {
		return fmt.Errorf("send queue size must be positive, got %d", c.SendQueueSize)
	}

	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("max message bytes must be positive, got %d", c.MaxMessageBytes)
	}

	if c.MaxTextBytes <= 0 {
		return fmt.Errorf("max text bytes must be positive, got %d", c.MaxTextBytes)
	}

	// a zero rate disables the corresponding limiter
	if c.MessageRate < 0 || c.ConnectRate < 0 {
		return fmt.Errorf("rates must not be negative")
	}

	if c.MessageRate > 0 && c.MessageBurst <= 0 {
		return fmt.Errorf("message burst must be positive when a message rate is set")
	}

	if c.ConnectRate > 0 && c.ConnectBurst <= 0 {
		return fmt.Errorf("connect burst must be positive when a connect rate is set")
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}

	return nil
}

func parseOrigins(origins string) []string {
	parsed := []string{}
	for _, origin := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			parsed = append(parsed, trimmed)
		}
	}
	return parsed
}
