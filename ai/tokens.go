package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var encodings sync.Map // model -> *tiktoken.Tiktoken, or nil when unavailable

// CountTokens returns the number of tokens text occupies for model.
// Models without a known encoding fall back to four characters per token.
func CountTokens(model, text string) int {
	if text == "" {
		return 0
	}
	if enc := encodingFor(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return EstimateTokens(text)
}

// CountTokensAll sums CountTokens over texts.
func CountTokensAll(model string, texts []string) int {
	total := 0
	for _, t := range texts {
		total += CountTokens(model, t)
	}
	return total
}

// EstimateTokens approximates a token count at four characters per token.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

func encodingFor(model string) *tiktoken.Tiktoken {
	if v, ok := encodings.Load(model); ok {
		enc, _ := v.(*tiktoken.Tiktoken)
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encodings.Store(model, (*tiktoken.Tiktoken)(nil))
		return nil
	}
	encodings.Store(model, enc)
	return enc
}
