package ai

// Prices are USD per one million tokens.
var embeddingPrices = map[string]float64{
	"text-embedding-3-small": 0.02,
	"text-embedding-3-large": 0.13,
	"text-embedding-ada-002": 0.10,
}

type chatPrice struct {
	input  float64
	output float64
}

var chatPrices = map[string]chatPrice{
	"gpt-4o-mini":   {input: 0.15, output: 0.60},
	"gpt-4o":        {input: 2.50, output: 10.00},
	"gpt-3.5-turbo": {input: 0.50, output: 1.50},
}

// EmbeddingCost returns the USD cost of embedding tokens with model.
// Unpriced models (local servers) cost nothing.
func EmbeddingCost(model string, tokens int) float64 {
	return float64(tokens) * embeddingPrices[model] / 1_000_000
}

// GenerationCost returns the USD cost of a chat completion with model.
func GenerationCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := chatPrices[model]
	if !ok {
		return 0
	}
	return (float64(inputTokens)*p.input + float64(outputTokens)*p.output) / 1_000_000
}
