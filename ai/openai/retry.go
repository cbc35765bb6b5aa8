package openai

import (
	"context"
	"log/slog"

	"github.com/avast/retry-go/v4"
	"github.com/poiesic/homily/ai"
	"github.com/tmc/langchaingo/llms"
)

// withRetry runs fn under the attempt policy of config.
func withRetry[T any](ctx context.Context, config *ai.Config, logger *slog.Logger, op string, fn func() (T, error)) (T, error) {
	return retry.DoWithData(fn,
		retry.Context(ctx),
		retry.Attempts(config.MaxAttempts),
		retry.Delay(config.RetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("retrying model call", "op", op, "attempt", n+1, "err", err)
		}),
	)
}

// usageOf reads token counts from a completion, estimating any the server
// left out.
func usageOf(model, prompt string, choice *llms.ContentChoice) ai.Usage {
	in := intInfo(choice.GenerationInfo, "PromptTokens")
	out := intInfo(choice.GenerationInfo, "CompletionTokens")
	if in == 0 {
		in = ai.CountTokens(model, prompt)
	}
	if out == 0 {
		out = ai.CountTokens(model, choice.Content)
	}
	return ai.Usage{
		InputTokens:  in,
		OutputTokens: out,
		CostUSD:      ai.GenerationCost(model, in, out),
	}
}

func intInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
