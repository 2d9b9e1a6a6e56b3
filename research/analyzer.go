package research

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"newsiq/config"
	"newsiq/models"
)

const ANALYSIS_SYSTEM_INSTRUCTION = `You are a news analysis assistant helping users understand complex events with nuance and accuracy.

Your task: Analyze the provided article and related sources to generate a 200-word context report.

Required sections:
1. **Background** (40 words): What led to this event? Essential historical context.
2. **Key Players** (30 words): Who's involved and what are their positions/interests?
3. **Perspectives** (60 words): What are the main arguments? Include at least one opposing viewpoint.
4. **Verification** (40 words): What facts are confirmed? What's disputed or unverified?
5. **What's Next** (30 words): Likely developments or things to watch.

Constraints:
- Total length: EXACTLY 200 words (±10 words acceptable)
- Cite sources using [Source Name] format
- Use neutral, journalistic tone
- Acknowledge uncertainty where appropriate
- If conflicting information exists, explicitly note disagreement
- No speculation beyond reasonable extrapolation

Format: Use markdown with bold section headers. Include clickable source citations.`

const (
	maxFocalContentChars  = 3000
	maxExcerptChars       = 500
	maxFallbackSources    = 3
	maxFallbackTitleRunes = 60
)

// AnalysisGenerator produces a markdown context report for a focal article
// and its related coverage. The cache layer treats the output as opaque text.
type AnalysisGenerator interface {
	Analyze(ctx context.Context, article *models.Article, related []models.Article) (string, error)
}

// GeminiAnalyzer generates reports with the Gemini API.
type GeminiAnalyzer struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

func NewGeminiAnalyzer(ctx context.Context) (*GeminiAnalyzer, error) {
	cfg := config.GetConfig()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.GeminiApiKey,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAnalyzer{
		client:    client,
		model:     cfg.GeminiModel,
		maxTokens: int32(cfg.GeminiMaxTokens),
	}, nil
}

func (a *GeminiAnalyzer) Analyze(ctx context.Context, article *models.Article, related []models.Article) (string, error) {
	result, err := a.client.Models.GenerateContent(
		ctx,
		a.model,
		genai.Text(buildAnalysisPrompt(article, related)),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: ANALYSIS_SYSTEM_INSTRUCTION}}},
			MaxOutputTokens:   a.maxTokens,
		},
	)
	if err != nil {
		return "", err
	}
	config.InfoWithFields("generated analysis", config.Fields{
		"article_id": article.ID.Hex(),
	})
	return result.Text(), nil
}

func buildAnalysisPrompt(article *models.Article, related []models.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "MAIN ARTICLE:\nTitle: %s\nSource: %s\nDate: %s\nContent: %s\n\nRELATED SOURCES:\n",
		article.Title, article.Source, article.PublishedAt.Format("2006-01-02"),
		truncateChars(article.Content, maxFocalContentChars))

	for i, r := range related {
		fmt.Fprintf(&b, "\n---\nSource %d: [%s]\nTitle: %s\nDate: %s\nKey Excerpt: %s\nURL: %s\n",
			i+1, r.Source, r.Title, r.PublishedAt.Format("2006-01-02"),
			excerpt(r.Content), r.URL)
	}

	b.WriteString("\nGenerate the 200-word context report following the format specified in your instructions.")
	return b.String()
}

// excerpt takes the leading chunk of content, trimmed back to the last full
// sentence when one ends late enough.
func excerpt(content string) string {
	if len(content) <= maxExcerptChars {
		return content
	}
	cut := truncateChars(content, maxExcerptChars)
	if idx := strings.LastIndex(cut, "."); idx > 300 {
		return cut[:idx+1]
	}
	return cut
}

func truncateChars(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// AnalyzeWithFallback returns the generated report, or a deterministic
// related-sources summary when generation fails. The raw generator error is
// logged but never reaches the end user.
func AnalyzeWithFallback(ctx context.Context, gen AnalysisGenerator, article *models.Article, related []models.Article) string {
	text, err := gen.Analyze(ctx, article, related)
	if err == nil {
		return text
	}
	config.ErrorWithFields("analysis failed, returning fallback", config.Fields{
		"article_id": article.ID.Hex(),
		"error":      err.Error(),
	})
	return fallbackAnalysis(article, related)
}

func fallbackAnalysis(article *models.Article, related []models.Article) string {
	top := related
	if len(top) > maxFallbackSources {
		top = top[:maxFallbackSources]
	}

	names := make([]string, 0, len(top))
	for _, r := range top {
		names = append(names, "["+r.Source+"]")
	}
	sources := strings.Join(names, ", ")
	if sources == "" {
		sources = "various outlets"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Analysis temporarily unavailable**\n\n")
	fmt.Fprintf(&b, "We found %d related articles from sources including %s.\n\n", len(related), sources)
	fmt.Fprintf(&b, "**Quick Summary:**\nThis article from %s discusses: %s\n\n", article.Source, article.Title)
	b.WriteString("**Related Coverage:**\n")
	for _, r := range top {
		fmt.Fprintf(&b, "- [%s...](%s) - %s\n", truncateChars(r.Title, maxFallbackTitleRunes), r.URL, r.Source)
	}
	b.WriteString("\n*Full AI analysis is temporarily unavailable. Please try again later.*\n")
	return b.String()
}
