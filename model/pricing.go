package model

import (
	"sort"
	"strings"
)

// Pricing is the USD cost per one million tokens of a model family.
type Pricing struct {
	Model       string
	InputPer1M  float64
	OutputPer1M float64
}

// Prices as of early 2025.
var defaultPricing = []Pricing{
	{Model: "gpt-4", InputPer1M: 30.0, OutputPer1M: 60.0},
	{Model: "gpt-4-turbo", InputPer1M: 10.0, OutputPer1M: 30.0},
	{Model: "gpt-4o", InputPer1M: 2.5, OutputPer1M: 10.0},
	{Model: "gpt-4o-mini", InputPer1M: 0.15, OutputPer1M: 0.60},
	{Model: "gpt-3.5-turbo", InputPer1M: 0.5, OutputPer1M: 1.5},
	{Model: "claude-3-opus", InputPer1M: 15.0, OutputPer1M: 75.0},
	{Model: "claude-3-5-sonnet", InputPer1M: 3.0, OutputPer1M: 15.0},
	{Model: "claude-3-5-haiku", InputPer1M: 1.0, OutputPer1M: 5.0},
	{Model: "claude-3-haiku", InputPer1M: 0.25, OutputPer1M: 1.25},
	{Model: "claude-3-sonnet", InputPer1M: 3.0, OutputPer1M: 15.0},
}

// LookupPricing finds pricing for model by exact match first and then by the
// longest matching family prefix.
func LookupPricing(model string) (Pricing, bool) {
	model = strings.ToLower(model)
	for _, p := range defaultPricing {
		if p.Model == model {
			return p, true
		}
	}

	candidates := make([]Pricing, 0, 2)
	for _, p := range defaultPricing {
		if strings.HasPrefix(model, p.Model) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return Pricing{}, false
	}
	sort.Slice(candidates, func(i, j int) bool { return len(candidates[i].Model) > len(candidates[j].Model) })
	return candidates[0], true
}

// EstimateCost returns the USD cost of usage on model. Unknown models cost 0.
func EstimateCost(model string, usage Usage) float64 {
	p, ok := LookupPricing(model)
	if !ok {
		return 0
	}
	return float64(usage.PromptTokens)/1e6*p.InputPer1M + float64(usage.CompletionTokens)/1e6*p.OutputPer1M
}
