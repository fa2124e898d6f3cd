package analysis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/KNICEX/stock-alert/internal/service/llm"
	"github.com/KNICEX/stock-alert/internal/service/quote"
	"github.com/KNICEX/stock-alert/pkg/decimalx"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const systemPrompt = "You are a Stock Alert Analyst."

var ErrEmptyBatch = errors.New("empty analysis batch")

// Batch maps a series name (open, close, ...) to its ordered values.
type Batch map[string][]decimal.Decimal

// Analyzer produces free-text commentary. It never retries; callers decide
// whether to go on without it.
type Analyzer interface {
	Analyze(ctx context.Context, batch Batch) (string, error)
}

type narrativeAnalyzer struct {
	llmSvc llm.Service
}

func NewNarrativeAnalyzer(llmSvc llm.Service) Analyzer {
	return &narrativeAnalyzer{
		llmSvc: llmSvc,
	}
}

func (a *narrativeAnalyzer) Analyze(ctx context.Context, batch Batch) (string, error) {
	if len(batch) == 0 {
		return "", ErrEmptyBatch
	}
	prompt := "Analyze the following stock changes and provide insights:\n" + formatBatch(batch)

	answer, err := a.llmSvc.AskOnce(ctx, llm.Question{System: systemPrompt, Content: prompt})
	if err != nil {
		return "", fmt.Errorf("narrative analysis failed: %w", err)
	}
	content := strings.TrimSpace(answer.Content)
	if content == "" {
		return "", fmt.Errorf("narrative analysis returned no content")
	}
	return content, nil
}

func formatBatch(batch Batch) string {
	keys := lo.Keys(map[string][]decimal.Decimal(batch))
	slices.Sort(keys)

	var sb strings.Builder
	for _, key := range keys {
		sb.WriteString(strings.ToUpper(key[:1]) + key[1:])
		sb.WriteString(":\n")
		for i, v := range batch[key] {
			fmt.Fprintf(&sb, "  Point %d: %s\n", i+1, v.String())
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// BatchFromSamples builds the analysis input from the newest n samples.
func BatchFromSamples(samples []quote.PriceSample, n int) Batch {
	if n > 0 && len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	if len(samples) == 0 {
		return Batch{}
	}
	pick := func(f func(s quote.PriceSample) decimal.Decimal) []decimal.Decimal {
		return lo.Map(samples, func(item quote.PriceSample, _ int) decimal.Decimal {
			return f(item)
		})
	}
	closes := pick(func(s quote.PriceSample) decimal.Decimal { return s.Close })
	return Batch{
		"open":   pick(func(s quote.PriceSample) decimal.Decimal { return s.Open }),
		"high":   pick(func(s quote.PriceSample) decimal.Decimal { return s.High }),
		"low":    pick(func(s quote.PriceSample) decimal.Decimal { return s.Low }),
		"close":  closes,
		"volume": pick(func(s quote.PriceSample) decimal.Decimal { return s.Volume }),
		"trend":  {decimalx.Slope(closes).Round(4)},
	}
}
