package cmd

import (
	"os"

	"github.com/spf13/viper"

	"github.com/joescharf/crev/internal/llm"
)

// newLLMClient creates a retrying LLM client from config/env, or returns nil
// if no API key is configured. The second value is the model name.
func newLLMClient() (llm.Completer, string) {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, ""
	}
	c := llm.NewClient(apiKey, viper.GetString("anthropic.model"))
	return llm.NewResilient(c, viper.GetInt("llm.max_attempts"), viper.GetDuration("llm.timeout")), c.Model()
}
