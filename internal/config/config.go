package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Twilio       TwilioConfig       `yaml:"twilio"`
	AssemblyAI   AssemblyAIConfig   `yaml:"assemblyai"`
	OpenAI       OpenAIConfig       `yaml:"openai"`
	SendGrid     SendGridConfig     `yaml:"sendgrid"`
	Conversation ConversationConfig `yaml:"conversation"`
	Database     DatabaseConfig     `yaml:"database"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type ServerConfig struct {
	Port                     string        `yaml:"port"`
	Environment              string        `yaml:"environment"`
	PublicBaseURL            string        `yaml:"public_base_url"` // URL Twilio signs, e.g. https://voxmail.example.com
	DisableWebhookValidation bool          `yaml:"disable_webhook_validation"`
	PipelineTimeout          time.Duration `yaml:"pipeline_timeout"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
}

type AssemblyAIConfig struct {
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
	Host      string `yaml:"host"`
}

type ConversationConfig struct {
	StaleAfter    time.Duration `yaml:"stale_after"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	Shards        int           `yaml:"shards"`
}

type DatabaseConfig struct {
	UseMemoryStore         bool   `yaml:"use_memory_store"`
	User                   string `yaml:"user"`
	Password               string `yaml:"password"`
	Name                   string `yaml:"name"`
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	InstanceConnectionName string `yaml:"instance_connection_name"` // Cloud SQL socket
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			Environment:     "production",
			PipelineTimeout: 3 * time.Minute,
		},
		AssemblyAI: AssemblyAIConfig{
			BaseURL:      "https://api.assemblyai.com/v2",
			PollInterval: time.Second,
			MaxAttempts:  60,
		},
		OpenAI: OpenAIConfig{
			Model:   "o3-mini-2025-01-31",
			BaseURL: "https://api.openai.com/v1",
		},
		SendGrid: SendGridConfig{
			FromName: "VoxMail",
			Host:     "https://api.sendgrid.com",
		},
		Conversation: ConversationConfig{
			StaleAfter:    24 * time.Hour,
			SweepInterval: time.Hour,
			Shards:        32,
		},
		Database: DatabaseConfig{
			User: "postgres",
			Name: "voxmail",
			Host: "localhost",
			Port: 5432,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads .env (if present), an optional YAML file named by CONFIG_FILE,
// and then the environment, later sources overriding earlier ones.
func Load() (*Config, error) {
	// Missing .env is fine outside local development
	_ = godotenv.Load(".env")

	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	normalize(&cfg)
	return &cfg, nil
}

// loadFile overlays a YAML file onto cfg. Keys absent from the file keep their
// current value; durations use Go syntax ("1s", "24h").
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the environment value (empty if unset)
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Port, os.Getenv("PORT"))
	setString(&cfg.Server.Environment, os.Getenv("ENVIRONMENT"))
	setString(&cfg.Server.PublicBaseURL, os.Getenv("PUBLIC_BASE_URL"))
	setBool(&cfg.Server.DisableWebhookValidation, "DISABLE_WEBHOOK_VALIDATION")

	setString(&cfg.Twilio.AccountSID, os.Getenv("TWILIO_ACCOUNT_SID"))
	setString(&cfg.Twilio.AuthToken, os.Getenv("TWILIO_AUTH_TOKEN"))

	setString(&cfg.AssemblyAI.APIKey, os.Getenv("ASSEMBLYAI_API_KEY"))
	setString(&cfg.AssemblyAI.BaseURL, os.Getenv("ASSEMBLYAI_BASE_URL"))

	setString(&cfg.OpenAI.APIKey, os.Getenv("OPENAI_API_KEY"))
	setString(&cfg.OpenAI.Model, os.Getenv("OPENAI_MODEL"))
	setString(&cfg.OpenAI.BaseURL, os.Getenv("OPENAI_BASE_URL"))

	setString(&cfg.SendGrid.APIKey, os.Getenv("SENDGRID_API_KEY"))
	setString(&cfg.SendGrid.FromEmail, os.Getenv("SENDGRID_FROM_EMAIL"))
	setString(&cfg.SendGrid.FromName, os.Getenv("SENDGRID_FROM_NAME"))
	setString(&cfg.SendGrid.Host, os.Getenv("SENDGRID_HOST"))

	setBool(&cfg.Database.UseMemoryStore, "USE_MEMORY_STORE")
	setString(&cfg.Database.User, os.Getenv("DB_USER"))
	setString(&cfg.Database.Password, os.Getenv("DB_PASS"))
	setString(&cfg.Database.Name, os.Getenv("DB_NAME"))
	setString(&cfg.Database.Host, os.Getenv("DB_HOST"))
	setString(&cfg.Database.InstanceConnectionName, os.Getenv("INSTANCE_CONNECTION_NAME"))

	setString(&cfg.Logging.Level, strings.ToLower(os.Getenv("LOG_LEVEL")))
	setString(&cfg.Logging.Format, strings.ToLower(os.Getenv("LOG_FORMAT")))

	ints := []struct {
		key string
		dst *int
	}{
		{"TRANSCRIPTION_MAX_ATTEMPTS", &cfg.AssemblyAI.MaxAttempts},
		{"CONVERSATION_SHARDS", &cfg.Conversation.Shards},
		{"DB_PORT", &cfg.Database.Port},
	}
	for _, i := range ints {
		raw := strings.TrimSpace(os.Getenv(i.key))
		if raw == "" {
			continue
		}
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", i.key, raw, err)
		}
		*i.dst = parsed
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"PIPELINE_TIMEOUT", &cfg.Server.PipelineTimeout},
		{"TRANSCRIPTION_POLL_INTERVAL", &cfg.AssemblyAI.PollInterval},
		{"CONVERSATION_STALE_AFTER", &cfg.Conversation.StaleAfter},
		{"CONVERSATION_SWEEP_INTERVAL", &cfg.Conversation.SweepInterval},
	}
	for _, d := range durations {
		raw := strings.TrimSpace(os.Getenv(d.key))
		if raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", d.key, raw, err)
		}
		*d.dst = parsed
	}
	return nil
}

func normalize(cfg *Config) {
	defaults := Defaults()
	if cfg.AssemblyAI.MaxAttempts <= 0 {
		cfg.AssemblyAI.MaxAttempts = defaults.AssemblyAI.MaxAttempts
	}
	if cfg.AssemblyAI.PollInterval < 0 {
		cfg.AssemblyAI.PollInterval = defaults.AssemblyAI.PollInterval
	}
	if cfg.Conversation.Shards <= 0 {
		cfg.Conversation.Shards = defaults.Conversation.Shards
	}
	if cfg.Conversation.StaleAfter <= 0 {
		cfg.Conversation.StaleAfter = defaults.Conversation.StaleAfter
	}
	if cfg.Conversation.SweepInterval <= 0 {
		cfg.Conversation.SweepInterval = defaults.Conversation.SweepInterval
	}
	if cfg.Server.PipelineTimeout <= 0 {
		cfg.Server.PipelineTimeout = defaults.Server.PipelineTimeout
	}
}

func setString(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}

// IsDevelopment reports whether the service runs in local development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// WebhookValidationEnabled reports whether Twilio signatures must be checked
func (c *Config) WebhookValidationEnabled() bool {
	return !c.IsDevelopment() && !c.Server.DisableWebhookValidation
}

// Validate returns the first missing setting required to serve traffic
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"ASSEMBLYAI_API_KEY", c.AssemblyAI.APIKey},
		{"OPENAI_API_KEY", c.OpenAI.APIKey},
		{"SENDGRID_API_KEY", c.SendGrid.APIKey},
		{"SENDGRID_FROM_EMAIL", c.SendGrid.FromEmail},
		{"TWILIO_ACCOUNT_SID", c.Twilio.AccountSID},
		{"TWILIO_AUTH_TOKEN", c.Twilio.AuthToken},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	return nil
}
