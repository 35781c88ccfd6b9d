package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/robfig/cron/v3"

	"github.com/starford/canvasai/internal/model"
	"github.com/starford/canvasai/internal/telemetry"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Model providers.
const (
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Auth      AuthConfig        `yaml:"auth"`
	Model     ModelConfig       `yaml:"model"`
	Pipeline  PipelineConfig    `yaml:"pipeline"`
	Templates TemplatesConfig   `yaml:"templates"`
	Telemetry TelemetryConfig   `yaml:"telemetry"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.Templates.Validate(); err != nil {
		return fmt.Errorf("templates: %w", err)
	}
	return c.Telemetry.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" env:"CANVASAI_LOG_LEVEL"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" env:"CANVASAI_HTTP_PORT"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" env:"CANVASAI_AUTH_MODE"`
	Token string `yaml:"token" env:"CANVASAI_AUTH_TOKEN"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ModelConfig selects the language model behind non-template commands.
// Provider "none" keeps templates working and answers every other command
// with a "not configured" result.
type ModelConfig struct {
	Provider string        `yaml:"provider" env:"CANVASAI_MODEL_PROVIDER"`
	Name     string        `yaml:"name" env:"CANVASAI_MODEL_NAME"`
	APIKey   string        `yaml:"api_key" env:"GEMINI_API_KEY"`
	Mode     model.Mode    `yaml:"mode" env:"CANVASAI_MODEL_MODE"`
	Timeout  time.Duration `yaml:"timeout" env:"CANVASAI_MODEL_TIMEOUT"`
}

// Validate validates the model configuration.
func (c *ModelConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.In(ProviderGemini, ProviderNone)),
		validation.Field(&c.Mode, validation.Required, validation.In(model.ModePlan, model.ModeTools)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	if c.Provider == ProviderGemini && c.APIKey == "" {
		return fmt.Errorf("provider is %q but api_key is empty", ProviderGemini)
	}
	return nil
}

// PipelineConfig tunes the command pipeline.
type PipelineConfig struct {
	IdempotencyCacheSize int `yaml:"idempotency_cache_size" env:"CANVASAI_IDEMPOTENCY_CACHE_SIZE"`
}

// Validate validates the pipeline configuration.
func (c *PipelineConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.IdempotencyCacheSize, validation.Required, validation.Min(1)),
	)
}

// TemplatesConfig points at the directory of custom template files.
type TemplatesConfig struct {
	Dir   string `yaml:"dir" env:"CANVASAI_TEMPLATES_DIR"`
	Watch bool   `yaml:"watch" env:"CANVASAI_TEMPLATES_WATCH"`
}

// Validate validates the templates configuration.
func (c *TemplatesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.When(c.Watch, validation.Required)),
	)
}

// TelemetryConfig enables the trace sinks.
type TelemetryConfig struct {
	Log        LogSinkConfig        `yaml:"log"`
	OTel       OTelSinkConfig       `yaml:"otel"`
	Prometheus PrometheusSinkConfig `yaml:"prometheus"`
	SQLite     SQLiteSinkConfig     `yaml:"sqlite"`
}

// Validate validates the telemetry configuration.
func (c *TelemetryConfig) Validate() error {
	if err := c.OTel.Validate(); err != nil {
		return fmt.Errorf("telemetry.otel: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("telemetry.sqlite: %w", err)
	}
	return nil
}

// LogSinkConfig toggles the structured log sink.
type LogSinkConfig struct {
	Enabled bool `yaml:"enabled" env:"CANVASAI_TELEMETRY_LOG"`
}

// OTelSinkConfig configures span export.
type OTelSinkConfig struct {
	Enabled     bool    `yaml:"enabled" env:"CANVASAI_OTEL_ENABLED"`
	Exporter    string  `yaml:"exporter" env:"CANVASAI_OTEL_EXPORTER"`
	Endpoint    string  `yaml:"endpoint" env:"CANVASAI_OTEL_ENDPOINT"`
	SampleRate  float64 `yaml:"sample_rate" env:"CANVASAI_OTEL_SAMPLE_RATE"`
	ServiceName string  `yaml:"service_name" env:"CANVASAI_OTEL_SERVICE_NAME"`
}

// Validate validates the OTel configuration. Nothing is checked while
// the sink is disabled.
func (c *OTelSinkConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Exporter, validation.Required, validation.In(telemetry.ExporterOTLP, telemetry.ExporterZipkin)),
		validation.Field(&c.SampleRate, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.ServiceName, validation.Required),
	)
}

// OTelConfig converts the section for telemetry.NewOTelSink.
func (c *OTelSinkConfig) OTelConfig(version string) telemetry.OTelConfig {
	return telemetry.OTelConfig{
		Exporter:       c.Exporter,
		Endpoint:       c.Endpoint,
		SampleRate:     c.SampleRate,
		ServiceName:    c.ServiceName,
		ServiceVersion: version,
	}
}

// PrometheusSinkConfig toggles the metrics sink and /metrics.
type PrometheusSinkConfig struct {
	Enabled bool `yaml:"enabled" env:"CANVASAI_PROMETHEUS_ENABLED"`
}

// SQLiteSinkConfig configures the trace store.
type SQLiteSinkConfig struct {
	Enabled       bool          `yaml:"enabled" env:"CANVASAI_TRACES_ENABLED"`
	Path          string        `yaml:"path" env:"CANVASAI_TRACES_PATH"`
	Retention     time.Duration `yaml:"retention" env:"CANVASAI_TRACES_RETENTION"`
	PruneSchedule string        `yaml:"prune_schedule" env:"CANVASAI_TRACES_PRUNE_SCHEDULE"`
}

// Validate validates the trace store configuration.
func (c *SQLiteSinkConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Retention, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.PruneSchedule, validation.Required, validation.By(cronSpec)),
	)
}

func cronSpec(v any) error {
	s, _ := v.(string)
	if _, err := cron.ParseStandard(s); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Model: ModelConfig{
			Provider: ProviderNone,
			Name:     model.DefaultGeminiModel,
			Mode:     model.ModePlan,
			Timeout:  30 * time.Second,
		},
		Pipeline: PipelineConfig{
			IdempotencyCacheSize: 1024,
		},
		Templates: TemplatesConfig{
			Dir:   "./templates",
			Watch: true,
		},
		Telemetry: TelemetryConfig{
			Log: LogSinkConfig{Enabled: true},
			OTel: OTelSinkConfig{
				Exporter:    telemetry.ExporterOTLP,
				SampleRate:  1,
				ServiceName: "canvasai",
			},
			SQLite: SQLiteSinkConfig{
				Enabled:       true,
				Path:          "./canvasai.db",
				Retention:     7 * 24 * time.Hour,
				PruneSchedule: "@hourly",
			},
		},
	}
}
