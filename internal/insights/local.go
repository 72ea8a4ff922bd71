package insights

import (
	"context"
	"fmt"
	"strings"

	"whalescope/internal/types"
)

// LocalGenerator writes a deterministic one-line summary from the request
// context. It never fails, which makes it the fallback of last resort.
// Context keys it does not find are omitted rather than printed empty.
type LocalGenerator struct{}

func NewLocalGenerator() *LocalGenerator {
	return &LocalGenerator{}
}

func (g *LocalGenerator) Generate(_ context.Context, req Request) (types.Insight, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Basic analysis: %s price $%v", req.Symbol, req.Context["price"])

	var changes []string
	for _, c := range []struct{ key, label string }{
		{"24h_change", "24h"},
		{"7d_change", "7d"},
		{"30d_change", "30d"},
	} {
		if v, ok := req.Context[c.key]; ok {
			changes = append(changes, fmt.Sprintf("%s %v%%", c.label, v))
		}
	}
	if len(changes) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(changes, ", "))
	}
	b.WriteString(".")

	if phase, ok := req.Context["smart_money_phase"]; ok {
		fmt.Fprintf(&b, " Smart money phase: %v, accumulation score %v/100.",
			phase, req.Context["accumulation_score"])
	}
	if n, ok := req.Context["whale_signals"]; ok {
		fmt.Fprintf(&b, " Whale signals detected: %v.", n)
	}

	return types.Insight{Text: b.String(), Source: "local"}, nil
}
