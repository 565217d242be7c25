// Package config handles application configuration loading from a YAML file and environment variables.
package config

import (
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "interviewprep/internal/utils"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable pointing at the YAML config file
const ConfigFileEnv = "PREP_CONFIG_FILE"

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Credential signing and verification
	Auth AuthConfig `json:"auth" yaml:"auth"`

	// AI provider and generation policy
	AI AIConfig `json:"ai" yaml:"ai"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port        string   `json:"port" yaml:"port"`
	Debug       bool     `json:"debug" yaml:"debug"`
	LogLevel    string   `json:"log_level" yaml:"log_level"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`
	// ShutdownTimeout bounds graceful shutdown of in-flight requests
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// AuthConfig represents credential configuration. The secret is the HMAC key for HS256 tokens.
type AuthConfig struct {
	JWTSecret string        `json:"jwt_secret" yaml:"jwt_secret"`
	Issuer    string        `json:"issuer" yaml:"issuer"`
	TokenTTL  time.Duration `json:"token_ttl" yaml:"token_ttl"`
}

// AIConfig represents the upstream generation provider and its call policy
type AIConfig struct {
	// Provider selects the wire adapter: "openai" (any OpenAI-compatible API) or "gemini"
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
	APIKey   string `json:"api_key" yaml:"api_key"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	// SupportsGrammar sends the output schema as a llama.cpp-style "grammar" field.
	// Only self-hosted OpenAI-compatible servers accept it; see GrammarEnabled.
	SupportsGrammar bool `json:"supports_grammar" yaml:"supports_grammar"`
	MaxTokens       int  `json:"max_tokens" yaml:"max_tokens"`

	Timeout          time.Duration `json:"timeout" yaml:"timeout"`
	RetryBackoff     time.Duration `json:"retry_backoff" yaml:"retry_backoff"`
	MaxQuestionCount int           `json:"max_question_count" yaml:"max_question_count"`
	MaxFieldLength   int           `json:"max_field_length" yaml:"max_field_length"`
	MaxConcurrent    int           `json:"max_concurrent" yaml:"max_concurrent"`

	// Per-identity limit on the /api/ai routes
	RateLimitPerMinute int `json:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	RateLimitBurst     int `json:"rate_limit_burst" yaml:"rate_limit_burst"`
}

// GrammarEnabled reports whether requests carry the grammar field. OpenAI itself and
// Gemini reject it, so the flag is ignored for them.
func (c AIConfig) GrammarEnabled() bool {
	if !c.SupportsGrammar {
		return false
	}
	if c.Provider != ProviderOpenAI && c.Provider != "" {
		return false
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return false
	}
	return !strings.EqualFold(u.Hostname(), OpenAIHost)
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "prep-backend"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"` // Default: 1.0 (100%)
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`       // Maximum number of open connections to the database
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`       // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"` // Maximum amount of time a connection may be reused
	AutoMigrate     bool          `json:"auto_migrate" yaml:"auto_migrate"`
}

// NewConfig loads configuration from YAML file first, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	config.overrideFromEnv()
	config.applyDefaults()

	return config, nil
}

// Defaults returns a Config holding only default values. Used by tests and the admin CLI.
func Defaults() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Validate reports configuration that would make the server unusable
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityFatal,
			"auth.jwt_secret is required", "set it in the config file or AUTH_JWT_SECRET")
	}
	switch c.AI.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return contextutils.NewAppError(contextutils.ErrorCodeAIConfigInvalid, contextutils.SeverityFatal,
			"unsupported ai.provider", c.AI.Provider)
	}
	if c.AI.MaxQuestionCount < 1 {
		return contextutils.NewAppError(contextutils.ErrorCodeAIConfigInvalid, contextutils.SeverityFatal,
			"ai.max_question_count must be positive", strconv.Itoa(c.AI.MaxQuestionCount))
	}
	return nil
}

// applyDefaults fills every zero value that has a documented default
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = DefaultPort
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{DefaultCORSOrigin}
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = DefaultTokenIssuer
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = DefaultTokenTTL
	}

	if c.AI.Provider == "" {
		c.AI.Provider = ProviderOpenAI
	}
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	if c.AI.BaseURL == "" {
		switch c.AI.Provider {
		case ProviderGemini:
			c.AI.BaseURL = DefaultGeminiBaseURL
		default:
			c.AI.BaseURL = DefaultOpenAIBaseURL
		}
	}
	c.AI.BaseURL = strings.TrimRight(c.AI.BaseURL, "/")
	if c.AI.Model == "" {
		switch c.AI.Provider {
		case ProviderGemini:
			c.AI.Model = DefaultGeminiModel
		default:
			c.AI.Model = DefaultOpenAIModel
		}
	}
	if c.AI.MaxTokens <= 0 {
		c.AI.MaxTokens = DefaultAIMaxTokens
	}
	if c.AI.Timeout <= 0 {
		c.AI.Timeout = DefaultAITimeout
	}
	if c.AI.RetryBackoff <= 0 {
		c.AI.RetryBackoff = DefaultAIRetryBackoff
	}
	if c.AI.MaxQuestionCount <= 0 {
		c.AI.MaxQuestionCount = DefaultMaxQuestionCount
	}
	if c.AI.MaxFieldLength <= 0 {
		c.AI.MaxFieldLength = DefaultMaxFieldLength
	}
	if c.AI.MaxConcurrent <= 0 {
		c.AI.MaxConcurrent = DefaultAIMaxConcurrent
	}
	if c.AI.RateLimitPerMinute <= 0 {
		c.AI.RateLimitPerMinute = DefaultAIRateLimitPerMinute
	}
	if c.AI.RateLimitBurst <= 0 {
		c.AI.RateLimitBurst = DefaultAIRateLimitBurst
	}

	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = DatabaseConnMaxLifetime
	}

	if c.OpenTelemetry.ServiceName == "" {
		c.OpenTelemetry.ServiceName = DefaultServiceName
	}
	if c.OpenTelemetry.Protocol == "" {
		c.OpenTelemetry.Protocol = "grpc"
	}
	if c.OpenTelemetry.SamplingRate <= 0 {
		c.OpenTelemetry.SamplingRate = 1.0
	}
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnv(c)
}

// overrideStructFromEnv recursively overrides struct fields with environment variables
func overrideStructFromEnv(v interface{}) {
	overrideStructFromEnvWithPrefix(v, "")
}

var durationType = reflect.TypeOf(time.Duration(0))

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables.
// The variable name is the upper-cased yaml tag path joined by underscores (AI_API_KEY).
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		// Skip unexported fields
		if !field.CanSet() {
			continue
		}

		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		// Durations are int64 underneath but are written as "30s" in env and yaml
		if field.Type() == durationType {
			if envVal := os.Getenv(envKey); envVal != "" {
				if d, err := time.ParseDuration(envVal); err == nil {
					field.SetInt(int64(d))
				}
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				if field.Type().Elem().Kind() == reflect.String {
					parts := strings.Split(envVal, ",")
					slice := make([]string, 0, len(parts))
					for _, p := range parts {
						if p = strings.TrimSpace(p); p != "" {
							slice = append(slice, p)
						}
					}
					field.Set(reflect.ValueOf(slice))
				}
			}
		case reflect.Struct:
			if field.CanAddr() {
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), envKey)
			}
		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				overrideStructFromEnvWithPrefix(field.Interface(), envKey)
			}
		}
	}
}

// loadConfigWithOverrides loads the config file named by PREP_CONFIG_FILE, or config.yaml.
// A missing default file is not an error: the environment alone may configure the server.
func loadConfigWithOverrides() (result0 *Config, err error) {
	if envPath := os.Getenv(ConfigFileEnv); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	config, err := loadConfigFromFile("config.yaml")
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	return config, err
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
