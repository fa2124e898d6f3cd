package ioc

import (
	"context"
	"fmt"

	"github.com/KNICEX/stock-alert/internal/service/analysis"
	"github.com/KNICEX/stock-alert/internal/service/llm"
	"github.com/KNICEX/stock-alert/internal/service/llm/gemini"
	llmopenai "github.com/KNICEX/stock-alert/internal/service/llm/openai"
	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
)

type NarrativeConfig struct {
	// Provider gemini | openai, 为空则不生成分析
	Provider string `mapstructure:"provider"`
}

type LLMConfig struct {
	Gemini struct {
		ApiKey []string `mapstructure:"api_key"`
		Model  string   `mapstructure:"model"`
	} `mapstructure:"gemini"`
	OpenAI struct {
		ApiKey string `mapstructure:"api_key"`
		Model  string `mapstructure:"model"`
	} `mapstructure:"openai"`
}

func InitGeminiCli(cfg LLMConfig) *genai.Client {
	if len(cfg.Gemini.ApiKey) == 0 || cfg.Gemini.ApiKey[0] == "" {
		panic("no gemini api key set")
	}

	cli, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.Gemini.ApiKey[0]))
	if err != nil {
		panic(err)
	}
	return cli
}

func InitOpenAICli(cfg LLMConfig) *openai.Client {
	if cfg.OpenAI.ApiKey == "" {
		panic("OPENAI_API_KEY is not set")
	}
	return openai.NewClient(cfg.OpenAI.ApiKey)
}

// InitNarrativeAnalyzer returns nil when narrative analysis is disabled.
func InitNarrativeAnalyzer(cfg Config) analysis.Analyzer {
	var svc llm.Service
	switch cfg.Narrative.Provider {
	case "":
		return nil
	case "gemini":
		svc = gemini.NewService(InitGeminiCli(cfg.LLM),
			gemini.WithModel(cfg.LLM.Gemini.Model),
			gemini.WithTemperature(0.5),
			gemini.WithMaxOutputTokens(500),
		)
	case "openai":
		svc = llmopenai.NewService(InitOpenAICli(cfg.LLM), llmopenai.WithModel(cfg.LLM.OpenAI.Model))
	default:
		panic(fmt.Sprintf("unknown narrative provider %q", cfg.Narrative.Provider))
	}
	return analysis.NewNarrativeAnalyzer(svc)
}
