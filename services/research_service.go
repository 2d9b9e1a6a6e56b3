package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"newsiq/dto"
	"newsiq/research"
)

// ResearchService encapsulates deep-research business logic and DTO mapping
type ResearchService struct {
	svc *research.Service
}

func NewResearchService(svc *research.Service) *ResearchService {
	return &ResearchService{svc: svc}
}

// DeepResearch loads or generates the research report for an article by its
// ObjectID hex and returns a DTO
func (s *ResearchService) DeepResearch(ctx context.Context, hexID string) (*dto.ResearchReportDTO, error) {
	articleID, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, err
	}
	report, err := s.svc.DeepResearch(ctx, articleID)
	if err != nil {
		return nil, err
	}
	d := dto.NewResearchReportDTO(report)
	return &d, nil
}
