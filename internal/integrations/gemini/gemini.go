// Package gemini wraps the Gemini API as the monthly report summarizer.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chingu-finance/scheduler/internal/config"
	"github.com/chingu-finance/scheduler/internal/models"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const requestTimeout = 15 * time.Second

// Client handles integration with the Gemini text generator
type Client struct {
	apiKey string
	model  string
	log    *logrus.Logger
}

// NewClient initializes a new Gemini client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		apiKey: cfg.GeminiAPIKey,
		model:  cfg.GeminiModel,
		log:    log,
	}
}

// Summarize asks Gemini for a short natural-language summary of a monthly
// aggregate. It returns an error on any transport failure or when the
// response misses one of the three expected fields; callers fall back to
// rule-based insights in that case.
func (c *Client) Summarize(ctx context.Context, stats models.MonthlyStats, monthName string) (models.Insights, error) {
	if c.apiKey == "" {
		return models.Insights{}, fmt.Errorf("gemini api key is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	prompt := buildPrompt(stats, monthName)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: c.apiKey})
	if err != nil {
		return models.Insights{}, fmt.Errorf("failed to init gemini client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return models.Insights{}, fmt.Errorf("gemini generation failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return models.Insights{}, fmt.Errorf("empty response from gemini")
	}

	rawText := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			rawText += part.Text
		}
	}

	c.log.Debugf("Gemini response (length %d)", len(rawText))
	return parseInsights(rawText)
}

// buildPrompt renders the aggregate into a prompt asking for a raw JSON
// object with the three insight fields.
func buildPrompt(stats models.MonthlyStats, monthName string) string {
	var b strings.Builder
	b.WriteString("You are a personal finance assistant. Write a friendly 2-3 sentence summary of a user's month.\n")
	b.WriteString("Return a RAW JSON object. Do NOT use markdown formatting.\n")
	b.WriteString("The object must have exactly these string fields: 'summary', 'topCategoryInsight', 'savingsInsight'.\n\n")

	net := stats.TotalIncome.Sub(stats.TotalExpenses)
	b.WriteString(fmt.Sprintf("Month: %s\n", monthName))
	b.WriteString(fmt.Sprintf("Total income: %s\n", stats.TotalIncome.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Total expenses: %s\n", stats.TotalExpenses.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Net: %s\n", net.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Transaction count: %d\n", stats.TransactionCount))

	if len(stats.ByCategory) > 0 {
		b.WriteString("Expenses by category:\n")
		categories := make([]string, 0, len(stats.ByCategory))
		for name := range stats.ByCategory {
			categories = append(categories, name)
		}
		sort.Strings(categories)
		for _, name := range categories {
			b.WriteString(fmt.Sprintf("  %s: %s\n", name, stats.ByCategory[name].StringFixed(2)))
		}
	}
	return b.String()
}

// parseInsights strips markdown fences the model likes to add, unmarshals
// the JSON object, and validates all three fields are present.
func parseInsights(rawText string) (models.Insights, error) {
	rawText = strings.TrimSpace(rawText)
	rawText = strings.TrimPrefix(rawText, "```json")
	rawText = strings.TrimPrefix(rawText, "```")
	rawText = strings.TrimSuffix(rawText, "```")
	rawText = strings.TrimSpace(rawText)

	var insights models.Insights
	if err := json.Unmarshal([]byte(rawText), &insights); err != nil {
		return models.Insights{}, fmt.Errorf("failed to parse gemini response: %w", err)
	}
	if !insights.Complete() {
		return models.Insights{}, fmt.Errorf("gemini response is missing expected fields")
	}
	return insights, nil
}
