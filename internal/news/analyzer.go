package news

import (
	"context"
	"fmt"
	"strings"
	"time"

	"whalescope/internal/logger"
	"whalescope/internal/types"
)

// SentimentAnalyzer scores articles against bullish and bearish keyword
// lists. Deterministic and offline, so sentiment works without any API key.
type SentimentAnalyzer struct{}

func NewSentimentAnalyzer() *SentimentAnalyzer {
	return &SentimentAnalyzer{}
}

var bullishKeywords = []string{
	"rally", "surge", "soar", "all-time high", "breakout", "bullish",
	"accumulation", "inflow", "adoption", "approval", "etf inflow",
	"upgrade", "partnership", "institutional buying", "whale buying",
	"record high", "momentum", "recover",
}

var bearishKeywords = []string{
	"crash", "plunge", "dump", "sell-off", "selloff", "bearish",
	"outflow", "liquidation", "hack", "exploit", "lawsuit", "ban",
	"crackdown", "delisting", "bankruptcy", "fraud", "downgrade",
	"whale selling", "capitulation", "fear",
}

// AnalyzeArticle scores one article. The title counts double since listing
// snippets are often truncated.
func (a *SentimentAnalyzer) AnalyzeArticle(_ context.Context, article types.NewsArticle) types.ArticleSentiment {
	sentiment := types.ArticleSentiment{
		ArticleTitle: article.Title,
		URL:          article.URL,
	}

	title := strings.ToLower(article.Title)
	body := strings.ToLower(article.Content)

	score := 0
	for _, kw := range bullishKeywords {
		score += strings.Count(title, kw) * 2
		score += strings.Count(body, kw)
	}
	for _, kw := range bearishKeywords {
		score -= strings.Count(title, kw) * 2
		score -= strings.Count(body, kw)
	}

	// Saturate at +/-5 hits.
	norm := float64(score) / 5.0
	if norm > 1 {
		norm = 1
	}
	if norm < -1 {
		norm = -1
	}
	sentiment.Score = norm

	switch {
	case norm >= 0.2:
		sentiment.Sentiment = "POSITIVE"
	case norm <= -0.2:
		sentiment.Sentiment = "NEGATIVE"
	default:
		sentiment.Sentiment = "NEUTRAL"
	}

	return sentiment
}

// AnalyzeMultipleArticles analyzes sentiment from multiple articles and aggregates
func (a *SentimentAnalyzer) AnalyzeMultipleArticles(ctx context.Context, symbol string, articles []types.NewsArticle) types.NewsSentiment {
	logger.Info(ctx, "Analyzing sentiment for multiple articles", "symbol", symbol, "count", len(articles))

	if len(articles) == 0 {
		return types.NewsSentiment{
			Symbol:           symbol,
			OverallSentiment: "NEUTRAL",
			OverallScore:     0.0,
			ArticleCount:     0,
			Summary:          "No articles found for analysis",
			Confidence:       0.0,
			Timestamp:        time.Now().Unix(),
		}
	}

	articleSentiments := make([]types.ArticleSentiment, 0, len(articles))
	for _, article := range articles {
		articleSentiments = append(articleSentiments, a.AnalyzeArticle(ctx, article))
	}

	aggregated := a.aggregateSentiments(symbol, articleSentiments)

	logger.Info(ctx, "Sentiment analysis completed", "symbol", symbol,
		"overall", aggregated.OverallSentiment, "score", aggregated.OverallScore)

	return aggregated
}

// aggregateSentiments combines multiple article sentiments into overall sentiment
func (a *SentimentAnalyzer) aggregateSentiments(symbol string, articles []types.ArticleSentiment) types.NewsSentiment {
	totalScore := 0.0
	counts := map[string]int{"POSITIVE": 0, "NEGATIVE": 0, "NEUTRAL": 0}

	for _, article := range articles {
		totalScore += article.Score
		counts[article.Sentiment]++
	}

	avgScore := totalScore / float64(len(articles))

	overall := "NEUTRAL"
	if counts["POSITIVE"] > counts["NEGATIVE"]*2 {
		overall = "POSITIVE"
	} else if counts["NEGATIVE"] > counts["POSITIVE"]*2 {
		overall = "NEGATIVE"
	} else if counts["POSITIVE"] > 0 && counts["NEGATIVE"] > 0 {
		overall = "MIXED"
	}

	summary := fmt.Sprintf("Analyzed %d articles. Sentiment breakdown: %d positive, %d negative, %d neutral.",
		len(articles), counts["POSITIVE"], counts["NEGATIVE"], counts["NEUTRAL"])

	return types.NewsSentiment{
		Symbol:           symbol,
		OverallSentiment: overall,
		OverallScore:     avgScore,
		ArticleCount:     len(articles),
		Articles:         articles,
		Summary:          summary,
		Confidence:       a.calculateConfidence(len(articles), counts),
		Timestamp:        time.Now().Unix(),
	}
}

// calculateConfidence determines confidence level based on data quality
func (a *SentimentAnalyzer) calculateConfidence(articleCount int, counts map[string]int) float64 {
	confidence := 0.0
	switch {
	case articleCount >= 10:
		confidence = 0.9
	case articleCount >= 5:
		confidence = 0.7
	case articleCount >= 3:
		confidence = 0.5
	default:
		confidence = 0.3
	}

	// Reduce confidence when sentiments are very mixed.
	total := float64(counts["POSITIVE"] + counts["NEGATIVE"] + counts["NEUTRAL"])
	if total > 0 {
		maxCount := counts["POSITIVE"]
		if counts["NEGATIVE"] > maxCount {
			maxCount = counts["NEGATIVE"]
		}
		if counts["NEUTRAL"] > maxCount {
			maxCount = counts["NEUTRAL"]
		}
		confidence *= float64(maxCount) / total
	}

	return confidence
}
