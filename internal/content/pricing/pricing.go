package pricing

import (
	"github.com/inkwell-ai/inkwell/internal/config"
)

const (
	defaultCost   = int64(1)
	defaultBudget = 600
)

var lengthRanges = map[string]string{
	"short":    "100-200 words",
	"medium":   "300-500 words",
	"long":     "600-1000 words",
	"extended": "1000+ words",
}

// Policy resolves a length tag to a credit cost and a provider output
// budget. The two tables are independent: pricing can change without
// touching generation quality and vice versa. Unrecognized tags fall back
// instead of failing, so an unknown length is priced, not rejected.
type Policy struct {
	holder *config.PricingHolder
}

func New(holder *config.PricingHolder) *Policy {
	return &Policy{holder: holder}
}

func (p *Policy) Cost(length string) int64 {
	cfg := p.holder.Get()
	if cost, ok := cfg.Costs[length]; ok {
		return cost
	}
	return defaultCost
}

func (p *Policy) Budget(length string) int {
	cfg := p.holder.Get()
	if budget, ok := cfg.Budgets[length]; ok {
		return budget
	}
	return defaultBudget
}

// LengthRange returns the human-readable size range used in prompt text.
// Unknown tags borrow the medium range; this is a display fallback only
// and independent of the numeric fallbacks above.
func LengthRange(length string) string {
	if r, ok := lengthRanges[length]; ok {
		return r
	}
	return lengthRanges["medium"]
}
