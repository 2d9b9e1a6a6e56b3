package dto

import (
	"time"

	"newsiq/research"
)

// ResearchReportDTO exposes a deep-research result
type ResearchReportDTO struct {
	ArticleID         string    `json:"article_id"`
	AnalysisText      string    `json:"analysis_text"`
	RelatedArticleIDs []string  `json:"related_article_ids"`
	GeneratedAt       time.Time `json:"generated_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	ViewCount         int       `json:"view_count"`
	FromCache         bool      `json:"from_cache"`
}

// NewResearchReportDTO constructs ResearchReportDTO from a research report
func NewResearchReportDTO(r *research.Report) ResearchReportDTO {
	related := make([]string, 0, len(r.RelatedArticleIDs))
	for _, id := range r.RelatedArticleIDs {
		related = append(related, id.Hex())
	}
	return ResearchReportDTO{
		ArticleID:         r.ArticleID.Hex(),
		AnalysisText:      r.AnalysisText,
		RelatedArticleIDs: related,
		GeneratedAt:       r.GeneratedAt,
		ExpiresAt:         r.ExpiresAt,
		ViewCount:         r.ViewCount,
		FromCache:         r.FromCache,
	}
}
