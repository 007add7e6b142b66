package service

import (
	"context"
	"log"
	"sort"
	"strconv"
	"strings"

	"compliancecheck-backend/llm"
	"compliancecheck-backend/models"
)

// criticalKeywords escalate a regulation to Medium priority when they appear
// in its consolidated gap summary.
var criticalKeywords = []string{
	"risk", "critical", "severe", "urgent", "regulatory",
	"penalty", "fine", "breach", "violation", "customer harm", "vulnerable",
}

// notApplicableSummary is recorded for regulations no analyzed document is
// subject to.
const notApplicableSummary = "• **Not Applicable:** This regulation does not apply to any of the analyzed documents."

// ConsolidationService merges per-document reports into one cross-document
// view per regulation, assigns remediation priority, and summarizes gaps and
// recommendations with an LLM. Without a client the raw texts are joined
// instead of summarized; consolidation itself never needs a model.
type ConsolidationService struct {
	client llm.Client
	config AnalysisConfig
}

// ConsolidationServiceOption is a functional option for ConsolidationService
type ConsolidationServiceOption func(*ConsolidationService)

// ConsolidationWithLLMClient sets the LLM client used for summarization
func ConsolidationWithLLMClient(client llm.Client) ConsolidationServiceOption {
	return func(s *ConsolidationService) {
		s.client = client
	}
}

// ConsolidationWithConfig sets the pipeline configuration
func ConsolidationWithConfig(config AnalysisConfig) ConsolidationServiceOption {
	return func(s *ConsolidationService) {
		s.config = config
	}
}

// NewConsolidationService creates a new consolidation service
func NewConsolidationService(opts ...ConsolidationServiceOption) *ConsolidationService {
	s := &ConsolidationService{}
	for _, opt := range opts {
		opt(s)
	}
	s.config = s.config.withDefaults()
	return s
}

// Consolidate builds one view per distinct regulation key across all reports.
// Views come back sorted by priority (High first), then section, part,
// chapter, and regulation number, so the output reads as a worklist.
func (s *ConsolidationService) Consolidate(ctx context.Context, reports []*models.DocumentComplianceReport, regulations []models.Regulation) []models.ConsolidatedRegulationView {
	regIndex := make(map[models.RegulationKey]*models.Regulation, len(regulations))
	for i := range regulations {
		regIndex[regulations[i].Key()] = &regulations[i]
	}

	grouped := make(map[models.RegulationKey]*models.ConsolidatedRegulationView)
	var order []models.RegulationKey

	for _, report := range reports {
		for i := range report.DetailedResults {
			result := &report.DetailedResults[i]
			key := result.Key()

			view, ok := grouped[key]
			if !ok {
				view = &models.ConsolidatedRegulationView{
					SectionType:      result.SectionType,
					SourceName:       result.SourceName,
					RegulationNumber: result.RegulationNumber,
					RegulationTitle:  result.RegulationTitle,
					RegulationText:   result.RegulationText,
				}
				if reg, found := regIndex[key]; found {
					view.PartNumber = reg.PartNumber
					view.PartName = reg.PartName
					view.ChapterNumber = reg.ChapterNumber
					view.ChapterName = reg.ChapterName
					if view.RegulationText == "" {
						view.RegulationText = reg.RegulationText
					}
				}
				grouped[key] = view
				order = append(order, key)
			}

			view.DocumentVerdicts = append(view.DocumentVerdicts, models.DocumentVerdict{
				DocumentName:       result.DocumentName,
				Applicability:      result.Applicability,
				IsCompliant:        result.IsCompliant,
				ComplianceEvidence: result.ComplianceEvidence,
				GapDescription:     result.GapDescription,
				GapRecommendations: result.GapRecommendations,
			})

			if result.Applicability == models.DoesNotApply {
				continue
			}
			view.DocumentsVerifiedCount++
			switch result.IsCompliant {
			case models.CompliantYes:
				view.IsCompliantYesCount++
			case models.CompliantPartial:
				view.IsCompliantPartialCount++
			case models.CompliantNo:
				view.IsCompliantNoCount++
			}
		}
	}

	views := make([]models.ConsolidatedRegulationView, 0, len(grouped))
	for _, key := range order {
		view := grouped[key]
		s.summarize(ctx, view)
		view.Priority = determinePriority(view)
		views = append(views, *view)
	}

	sortViews(views)
	return views
}

// summarize fills the consolidated gap and recommendation fields.
func (s *ConsolidationService) summarize(ctx context.Context, view *models.ConsolidatedRegulationView) {
	if view.DocumentsVerifiedCount == 0 {
		view.GapDescription = notApplicableSummary
		view.GapRecommendations = notApplicableSummary
		return
	}

	var gaps, recommendations []string
	for _, verdict := range view.DocumentVerdicts {
		if verdict.Applicability == models.DoesNotApply {
			continue
		}
		if g := strings.TrimSpace(verdict.GapDescription); g != "" {
			gaps = append(gaps, g)
		}
		if r := strings.TrimSpace(verdict.GapRecommendations); r != "" {
			recommendations = append(recommendations, r)
		}
	}

	view.GapDescription = s.summarizeTexts(ctx, view, gaps, buildGapSummaryPrompt)
	view.GapRecommendations = s.summarizeTexts(ctx, view, recommendations, buildRecommendationSummaryPrompt)
}

type summaryPromptBuilder func(view *models.ConsolidatedRegulationView, texts []string, applicableDocs int) string

func (s *ConsolidationService) summarizeTexts(ctx context.Context, view *models.ConsolidatedRegulationView, texts []string, build summaryPromptBuilder) string {
	if len(texts) == 0 {
		return ""
	}
	if len(texts) == 1 || s.client == nil {
		return strings.Join(texts, " ")
	}

	raw, err := s.client.Complete(ctx, llm.CompletionRequest{
		Prompt:      build(view, texts, view.DocumentsVerifiedCount),
		Model:       s.config.SummaryModel,
		Temperature: s.config.Temperature,
	})
	if err != nil {
		log.Printf("Warning: summary call failed for regulation %s: %v", view.RegulationNumber, err)
		return strings.Join(texts, " ")
	}

	summary := strings.TrimSpace(raw)
	if summary == "" {
		return strings.Join(texts, " ")
	}
	return summary
}

// determinePriority derives the remediation priority for one view:
// High when over 30% of applicable documents are non-compliant, Medium when
// the gap summary names a critical concern or the weighted compliance rate
// falls under 70%, otherwise Low.
func determinePriority(view *models.ConsolidatedRegulationView) models.Priority {
	total := view.DocumentsVerifiedCount
	if total == 0 {
		return models.PriorityLow
	}

	if float64(view.IsCompliantNoCount)/float64(total) > 0.3 {
		return models.PriorityHigh
	}

	gapSummary := strings.ToLower(view.GapDescription)
	for _, keyword := range criticalKeywords {
		if strings.Contains(gapSummary, keyword) {
			return models.PriorityMedium
		}
	}

	weighted := float64(view.IsCompliantYesCount) + 0.5*float64(view.IsCompliantPartialCount)
	if weighted/float64(total) < 0.7 {
		return models.PriorityMedium
	}
	return models.PriorityLow
}

var priorityRank = map[models.Priority]int{
	models.PriorityHigh:   0,
	models.PriorityMedium: 1,
	models.PriorityLow:    2,
}

// sortViews orders views for presentation: priority first, then the
// regulation's position in its source text.
func sortViews(views []models.ConsolidatedRegulationView) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := &views[i], &views[j]
		if priorityRank[a.Priority] != priorityRank[b.Priority] {
			return priorityRank[a.Priority] < priorityRank[b.Priority]
		}
		if a.SectionType != b.SectionType {
			return a.SectionType < b.SectionType
		}
		if a.PartNumber != b.PartNumber {
			return a.PartNumber < b.PartNumber
		}
		if a.ChapterNumber != b.ChapterNumber {
			return a.ChapterNumber < b.ChapterNumber
		}
		return lessRegulationNumber(a.RegulationNumber, b.RegulationNumber)
	})
}

// lessRegulationNumber orders regulation numbers numerically when both parse
// as integers, lexically otherwise.
func lessRegulationNumber(a, b models.RegulationNumber) bool {
	ai, aErr := strconv.Atoi(a.Canonical())
	bi, bErr := strconv.Atoi(b.Canonical())
	if aErr == nil && bErr == nil {
		return ai < bi
	}
	return a.Canonical() < b.Canonical()
}
