package narrator

// ============================================================================
// NARRATOR - AI boundary for insight prose
// ============================================================================
// The narrator is the ONLY component that calls an external AI service.
// It receives numbers the engine already computed and the question, and
// returns prose. It never sees raw rows and never supplies a number.
// ============================================================================

// Config holds narrator configuration.
type Config struct {
	APIKey   string `mapstructure:"api_key"`  // AI provider API key
	Model    string `mapstructure:"model"`    // Model name (e.g., "gemini-2.5-flash-lite")
	Endpoint string `mapstructure:"endpoint"` // API endpoint override (empty = default)
	Church   string `mapstructure:"church"`   // Church name used in the prompt
}

// Enabled reports whether an API key is configured.
func (c Config) Enabled() bool { return c.APIKey != "" }

// DefaultGeminiConfig returns a Config with sensible Gemini defaults.
func DefaultGeminiConfig(apiKey string) Config {
	return Config{
		APIKey:   apiKey,
		Model:    "gemini-2.5-flash-lite",
		Endpoint: "https://generativelanguage.googleapis.com/v1beta/models",
	}
}
