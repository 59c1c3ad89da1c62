package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Environment   string `mapstructure:"environment"`
	DevModeBypass bool   `mapstructure:"dev_mode_bypass"`

	Server struct {
		Addr            string        `mapstructure:"addr"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"db"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Auth struct {
		Issuer       string `mapstructure:"issuer"`
		Audience     string `mapstructure:"audience"`
		DocsClientID string `mapstructure:"docs_client_id"`
	} `mapstructure:"auth"`
	Integration struct {
		BaseURL            string        `mapstructure:"base_url"`
		WorkspaceKey       string        `mapstructure:"workspace_key"`
		WorkspaceSecret    string        `mapstructure:"workspace_secret"`
		AppEventWebhookURL string        `mapstructure:"app_event_webhook_url"`
		TokenTTL           time.Duration `mapstructure:"token_ttl"`
		Timeout            time.Duration `mapstructure:"timeout"`
	} `mapstructure:"integration"`
	Flow struct {
		PollInterval      time.Duration `mapstructure:"poll_interval"`
		OutputMaxAttempts int           `mapstructure:"output_max_attempts"`
		StatusMaxAttempts int           `mapstructure:"status_max_attempts"`
		CreateNodeKey     string        `mapstructure:"create_node_key"`
		DependentsFlowKey string        `mapstructure:"dependents_flow_key"`
	} `mapstructure:"flow"`
	Importer struct {
		PageDelay         time.Duration `mapstructure:"page_delay"`
		UpsertConcurrency int           `mapstructure:"upsert_concurrency"`
	} `mapstructure:"importer"`
	Tracing struct {
		Endpoint    string `mapstructure:"endpoint"`
		ServiceName string `mapstructure:"service_name"`
		Insecure    bool   `mapstructure:"insecure"`
	} `mapstructure:"tracing"`
}

// IsDev reports whether the service runs in the DEV environment.
func (c *Config) IsDev() bool {
	return strings.EqualFold(c.Environment, "DEV")
}

// DSN returns the Postgres connection string for the configured database.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	var errs []error
	if c.Integration.BaseURL == "" {
		errs = append(errs, errors.New("integration.base_url is required"))
	}
	if c.Integration.WorkspaceKey == "" || c.Integration.WorkspaceSecret == "" {
		errs = append(errs, errors.New("integration.workspace_key and integration.workspace_secret are required"))
	}
	if c.Integration.AppEventWebhookURL == "" {
		errs = append(errs, errors.New("integration.app_event_webhook_url is required"))
	}
	if c.Flow.OutputMaxAttempts < 1 || c.Flow.StatusMaxAttempts < 1 {
		errs = append(errs, errors.New("flow max attempts must be at least 1"))
	}
	if !(c.IsDev() && c.DevModeBypass) && c.Auth.Issuer == "" {
		errs = append(errs, errors.New("auth.issuer is required unless dev_mode_bypass is enabled in DEV"))
	}
	return errors.Join(errs...)
}

// LoadConfig loads the configuration from an optional .env file, a config
// file and the environment. Environment variables use the key path with dots
// replaced by underscores, e.g. INTEGRATION_WORKSPACE_SECRET.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Integration.BaseURL = normalizeBaseURL(config.Integration.BaseURL)

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "DEV")
	v.SetDefault("dev_mode_bypass", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	// employee creation blocks on flow polling
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("tls.enable", false)
	v.SetDefault("tls.cert_file", "certs/server.crt")
	v.SetDefault("tls.key_file", "certs/server.key")
	v.SetDefault("tls.hostnames", []string{"localhost", "127.0.0.1"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "contact_sync")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_conns", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.docs_client_id", "")

	v.SetDefault("integration.base_url", "https://api.integration.app")
	v.SetDefault("integration.workspace_key", "")
	v.SetDefault("integration.workspace_secret", "")
	v.SetDefault("integration.app_event_webhook_url", "")
	v.SetDefault("integration.token_ttl", 2*time.Hour)
	v.SetDefault("integration.timeout", 30*time.Second)

	v.SetDefault("flow.poll_interval", 5*time.Second)
	v.SetDefault("flow.output_max_attempts", 12)
	v.SetDefault("flow.status_max_attempts", 5)
	v.SetDefault("flow.create_node_key", "create-data-record")
	v.SetDefault("flow.dependents_flow_key", "get-dependents")

	v.SetDefault("importer.page_delay", 100*time.Millisecond)
	v.SetDefault("importer.upsert_concurrency", 8)

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "contact-sync")
	v.SetDefault("tracing.insecure", true)
}

// normalizeBaseURL strips whitespace and any trailing slash so paths can be
// appended directly.
func normalizeBaseURL(input string) string {
	return strings.TrimRight(strings.TrimSpace(input), "/")
}
