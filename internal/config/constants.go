package config

import "time"

// Provider adapters
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	OpenAIHost           = "api.openai.com"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.0-flash-lite"
	DefaultAIMaxTokens = 4096
)

// Generation policy defaults
const (
	DefaultAITimeout        = 30 * time.Second
	DefaultAIRetryBackoff   = 500 * time.Millisecond
	DefaultMaxQuestionCount = 50
	DefaultMaxFieldLength   = 500
	DefaultAIMaxConcurrent  = 8

	DefaultAIRateLimitPerMinute = 20
	DefaultAIRateLimitBurst     = 5
)

// Server and auth defaults
const (
	DefaultPort            = "8000"
	DefaultCORSOrigin      = "http://localhost:5173"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultServiceName     = "prep-backend"

	DefaultTokenIssuer = "prep-backend"
	DefaultTokenTTL    = 7 * 24 * time.Hour // 7 days

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute
)

// Security configuration constants
const (
	// Content Security Policy. The API serves JSON only.
	DefaultCSP = "default-src 'none'; frame-ancestors 'none'"
)

// CORS lists, as the browser client sends them
var (
	CORSAllowedMethods = []string{"GET", "POST", "PUT", "DELETE"}
	CORSAllowedHeaders = []string{"Content-Type", "Authorization"}
)
