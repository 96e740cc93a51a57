// Package aria implements the portfolio assistant: a question is classified
// into an intent, answered with a repository query, and the result is turned
// into prose by the LLM.
package aria

import "strings"

// Intent is the closed set of query kinds the assistant can answer.
type Intent string

const (
	IntentGeneralStats   Intent = "general_stats"
	IntentClientSearch   Intent = "client_search"
	IntentSegmentation   Intent = "segmentation"
	IntentProducts       Intent = "products"
	IntentSpecificClient Intent = "specific_client"
	IntentMetrics        Intent = "metrics"
)

// Intents lists every intent.
func Intents() []Intent {
	return []Intent{
		IntentGeneralStats,
		IntentClientSearch,
		IntentSegmentation,
		IntentProducts,
		IntentSpecificClient,
		IntentMetrics,
	}
}

// ParseIntent maps a tag to an Intent. Unknown tags map to IntentGeneralStats.
func ParseIntent(tag string) Intent {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, in := range Intents() {
		if string(in) == tag {
			return in
		}
	}
	return IntentGeneralStats
}
