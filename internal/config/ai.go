package config

import "time"

// Provider names an LLM backend
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderMock      Provider = "mock"
)

// AIModels defines which model serves each task
type AIModels struct {
	// Extract pulls raw questions out of page chunks (runs once per source)
	Extract string `yaml:"extract"`

	// Validate checks and structures the extracted questions
	Validate string `yaml:"validate"`

	// Judge grades free-response answers
	Judge string `yaml:"judge"`

	// Assistant answers study questions in chat
	Assistant string `yaml:"assistant"`
}

// AIConfig holds all LLM-related configuration
type AIConfig struct {
	Provider     Provider `yaml:"provider"`
	GeminiKey    string   `yaml:"-"`
	AnthropicKey string   `yaml:"-"`
	OpenAIKey    string   `yaml:"-"`
	BaseURL      string   `yaml:"baseUrl"`
	Models       AIModels `yaml:"models"`
	TimeoutMS    int      `yaml:"timeoutMs"`
	MaxTokens    int      `yaml:"maxTokens"`
}

// DefaultAIConfig returns the default AI configuration
func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		Provider: ProviderGemini,
		Models: AIModels{
			Extract:   "gemini-2.0-flash",
			Validate:  "gemini-2.5-flash",
			Judge:     "gemini-2.5-flash",
			Assistant: "gemini-2.0-flash",
		},
		TimeoutMS: 60000,
		MaxTokens: 4096,
	}
}

func (c *AIConfig) applyEnv() {
	c.Provider = Provider(getEnvOrDefault("AI_PROVIDER", string(c.Provider)))
	c.GeminiKey = getEnvOrDefault("GEMINI_API_KEY", c.GeminiKey)
	c.AnthropicKey = getEnvOrDefault("ANTHROPIC_API_KEY", c.AnthropicKey)
	c.OpenAIKey = getEnvOrDefault("OPENAI_API_KEY", c.OpenAIKey)
	c.BaseURL = getEnvOrDefault("AI_BASE_URL", c.BaseURL)

	c.Models.Extract = getEnvOrDefault("AI_MODEL_EXTRACT", c.Models.Extract)
	c.Models.Validate = getEnvOrDefault("AI_MODEL_VALIDATE", c.Models.Validate)
	c.Models.Judge = getEnvOrDefault("AI_MODEL_JUDGE", c.Models.Judge)
	c.Models.Assistant = getEnvOrDefault("AI_MODEL_ASSISTANT", c.Models.Assistant)
}

// APIKey returns the key of the configured provider
func (c *AIConfig) APIKey() string {
	switch c.Provider {
	case ProviderGemini:
		return c.GeminiKey
	case ProviderAnthropic:
		return c.AnthropicKey
	case ProviderOpenAI:
		return c.OpenAIKey
	}
	return ""
}

// IsEnabled returns true if a real provider is configured with a key
func (c *AIConfig) IsEnabled() bool {
	return c.Provider != ProviderMock && c.APIKey() != ""
}

func (c *AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}
