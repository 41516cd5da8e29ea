package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig
	Slack   SlackConfig
	Notify  NotifyConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host         string        `validate:"required"`
	Port         string        `validate:"required,numeric"`
	ReadTimeout  time.Duration `validate:"gte=0"`
	WriteTimeout time.Duration `validate:"gte=0"`
	TLSCertFile  string        `validate:"required_with=TLSKeyFile"`
	TLSKeyFile   string        `validate:"required_with=TLSCertFile"`
}

// TLSEnabled reports whether both certificate and key are configured
func (s ServerConfig) TLSEnabled() bool {
	return s.TLSCertFile != "" && s.TLSKeyFile != ""
}

type SlackConfig struct {
	Scheme      string        `validate:"oneof=https http"`
	WebhookHost string        `validate:"required,hostname_port|hostname"`
	WebhookPath string        `validate:"required,startswith=/"`
	Timeout     time.Duration `validate:"gte=0"`
	Channel     string
	Username    string
	IconEmoji   string
}

// URL returns the full webhook endpoint
func (s SlackConfig) URL() string {
	return fmt.Sprintf("%s://%s%s", s.Scheme, s.WebhookHost, s.WebhookPath)
}

type NotifyConfig struct {
	UserMapping      UserMapping
	MentionReviewers bool
}

type LoggingConfig struct {
	Level  string `validate:"oneof=debug info warn warning error fatal"`
	Format string `validate:"oneof=json console"`
}

// UserMapping maps Bitbucket usernames to chat handles. It is read-only
// once loaded.
type UserMapping map[string]string

// Handle returns the chat handle for a Bitbucket username
func (m UserMapping) Handle(username string) (string, bool) {
	handle, ok := m[username]
	return handle, ok
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	mapping, err := loadUserMapping(os.Getenv("USER_MAPPING_FILE"), os.Getenv("USER_MAPPING"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnvWithDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvWithDefault("SERVER_PORT", "8443"),
			ReadTimeout:  getDurationFromEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationFromEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			TLSCertFile:  os.Getenv("TLS_CERT_FILE"),
			TLSKeyFile:   os.Getenv("TLS_KEY_FILE"),
		},
		Slack: SlackConfig{
			Scheme:      getEnvWithDefault("SLACK_WEBHOOK_SCHEME", "https"),
			WebhookHost: getEnvWithDefault("SLACK_WEBHOOK_HOST", "hooks.slack.com"),
			WebhookPath: os.Getenv("SLACK_WEBHOOK_PATH"),
			Timeout:     getDurationFromEnv("SLACK_TIMEOUT", 0),
			Channel:     os.Getenv("SLACK_CHANNEL"),
			Username:    os.Getenv("SLACK_USERNAME"),
			IconEmoji:   os.Getenv("SLACK_ICON_EMOJI"),
		},
		Notify: NotifyConfig{
			UserMapping:      mapping,
			MentionReviewers: getBoolFromEnv("MENTION_REVIEWERS", false),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
			Format: getEnvWithDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every section against its struct rules
func (c *Config) Validate() error {
	v := validator.New()
	for _, section := range []interface{}{c.Server, c.Slack, c.Logging} {
		if err := v.Struct(section); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return nil
}

// loadUserMapping reads a YAML "username: handle" file, then overlays the
// inline "user=handle,user2=handle2" form.
func loadUserMapping(path, inline string) (UserMapping, error) {
	mapping := UserMapping{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read user mapping file: %w", err)
		}
		if err := yaml.Unmarshal(data, &mapping); err != nil {
			return nil, fmt.Errorf("failed to parse user mapping file: %w", err)
		}
		// An empty or null document decodes to a nil map
		if mapping == nil {
			mapping = UserMapping{}
		}
	}

	for _, pair := range strings.Split(inline, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		username, handle, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(username) == "" {
			return nil, fmt.Errorf("invalid USER_MAPPING entry %q", pair)
		}
		mapping[strings.TrimSpace(username)] = strings.TrimSpace(handle)
	}

	return mapping, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolFromEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationFromEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
