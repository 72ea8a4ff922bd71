package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"whalescope/internal/store"
	"whalescope/internal/trace"
	"whalescope/internal/types"
)

// OpenAIGenerator asks the OpenAI chat completions API for an analyst-style
// report.
type OpenAIGenerator struct {
	cfg *store.Config
}

func NewOpenAIGenerator(cfg *store.Config) *OpenAIGenerator {
	return &OpenAIGenerator{cfg: cfg}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (types.Insight, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return types.Insight{}, errors.New("OPENAI_API_KEY missing")
	}

	ctxJSON, _ := json.MarshalIndent(req.Context, "", "  ")
	prompt := fmt.Sprintf(`You are a senior blockchain analyst. Use reliable sources like Glassnode, CoinMetrics, and industry reports.
Analyze %s market and on-chain data (snapshot: %s).
Provide a professional report with:

1. **Current Market Overview**
2. **On-chain Insights**
3. **Trends & Institutional Flows**
4. **Risks & Opportunities**
5. **Key Takeaways**

Here is the recent data sample:
%s

Market context:
%s

Write the report in Markdown, concise but professional.`,
		req.Symbol, time.Now().UTC().Format("January 02, 2006"), req.Table, string(ctxJSON))

	body := map[string]any{
		"model":       g.cfg.Insights.Model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": g.cfg.Insights.Temperature,
		"max_tokens":  g.cfg.Insights.MaxTokens,
	}
	bb, _ := json.Marshal(body)

	httpReq, _ := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/chat/completions", bytes.NewReader(bb))
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return types.Insight{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return types.Insight{}, fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return types.Insight{}, err
	}
	if len(r.Choices) == 0 {
		return types.Insight{}, errors.New("no choices")
	}

	return types.Insight{
		Text:   strings.TrimSpace(r.Choices[0].Message.Content),
		Source: "OpenAI",
	}, nil
}
