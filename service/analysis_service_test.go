package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"compliancecheck-backend/llm"
	"compliancecheck-backend/models"
)

func namedRegulation(num models.RegulationNumber, title string) models.Regulation {
	return models.Regulation{
		SourceName:       "SI No. 100 of 2025",
		SectionType:      "Business Standards",
		RegulationNumber: num,
		RegulationTitle:  title,
		RegulationText:   "A firm shall " + strings.ToLower(title) + ".",
	}
}

func screeningJSON(applicability, confidence string) string {
	return `{"applicability": "` + applicability + `", "applicability_reasoning": "Screened.", "confidence_score": "` + confidence + `"}`
}

const compliantJSON = `{
	"applicability": "Applies",
	"is_compliant": "Yes",
	"compliance_reasoning": "Addressed in the document.",
	"compliance_evidence": "relevant policy text",
	"gap_description": "",
	"gap_recommendations": "",
	"confidence_score": "High"
}`

// pipelineClient answers screening prompts per regulation title and returns a
// fixed compliant result for evaluation prompts.
func pipelineClient(screenFor map[string]string) *fakeClient {
	return &fakeClient{respond: func(req llm.CompletionRequest) (string, error) {
		if strings.Contains(req.Prompt, `"is_compliant"`) {
			return compliantJSON, nil
		}
		for title, resp := range screenFor {
			if strings.Contains(req.Prompt, title) {
				return resp, nil
			}
		}
		return "", errors.New("unexpected prompt")
	}}
}

func TestAnalyzeDocumentResultPerRegulation(t *testing.T) {
	doc := testDocument("This customer policy covers record keeping and complaint handling in detail.")
	regs := []models.Regulation{
		namedRegulation("1", "Maintain records"),
		namedRegulation("2", "Handle complaints"),
		namedRegulation("3", "Disclose charges"),
	}

	client := pipelineClient(map[string]string{
		"Maintain records":  screeningJSON("Applies", "High"),
		"Handle complaints": screeningJSON("May Apply - Requires Further Review", "Medium"),
		"Disclose charges":  screeningJSON("Does Not Apply", "High"),
	})

	svc := NewAnalysisService(
		AnalysisWithLLMClient(client),
		AnalysisWithConfig(testConfig()),
	)

	report, err := svc.AnalyzeDocument(context.Background(), doc, regs)
	if err != nil {
		t.Fatalf("AnalyzeDocument: %v", err)
	}
	if len(report.DetailedResults) != len(regs) {
		t.Fatalf("got %d results, want %d", len(report.DetailedResults), len(regs))
	}
	for i, reg := range regs {
		if report.DetailedResults[i].RegulationNumber != reg.RegulationNumber {
			t.Errorf("result %d is regulation %s, want %s (input order lost)",
				i, report.DetailedResults[i].RegulationNumber, reg.RegulationNumber)
		}
	}

	// The confident Does Not Apply never reaches Phase 2.
	dna := report.DetailedResults[2]
	if dna.Applicability != models.DoesNotApply || dna.IsCompliant != models.CompliantNA {
		t.Errorf("screened-out result = %q/%q", dna.Applicability, dna.IsCompliant)
	}
	if report.ModelUsage.Phase1Calls != 3 {
		t.Errorf("Phase1Calls = %d, want 3", report.ModelUsage.Phase1Calls)
	}
	if report.ModelUsage.Phase2Calls != 2 {
		t.Errorf("Phase2Calls = %d, want 2", report.ModelUsage.Phase2Calls)
	}
}

func TestAnalyzeDocumentLowConfidenceRejectionGetsStub(t *testing.T) {
	doc := testDocument("Policy text long enough to pass the minimum length check easily.")
	regs := []models.Regulation{namedRegulation("1", "Maintain records")}

	// A Does Not Apply verdict at low confidence survives screening, but
	// the evaluator still records it as a stub without a model call.
	client := pipelineClient(map[string]string{
		"Maintain records": screeningJSON("Does Not Apply", "Low"),
	})

	svc := NewAnalysisService(
		AnalysisWithLLMClient(client),
		AnalysisWithConfig(testConfig()),
	)

	report, err := svc.AnalyzeDocument(context.Background(), doc, regs)
	if err != nil {
		t.Fatalf("AnalyzeDocument: %v", err)
	}
	if report.ModelUsage.Phase2Calls != 0 {
		t.Errorf("Phase2Calls = %d, want 0", report.ModelUsage.Phase2Calls)
	}

	result := report.DetailedResults[0]
	if result.Applicability != models.DoesNotApply || result.IsCompliant != models.CompliantNA {
		t.Errorf("result = %q/%q, want Does Not Apply/N/A", result.Applicability, result.IsCompliant)
	}
	if result.ApplicabilityReasoning != "Screened." {
		t.Errorf("ApplicabilityReasoning = %q, want the screening reasoning", result.ApplicabilityReasoning)
	}
	if result.ConfidenceScore != models.ConfidenceLow {
		t.Errorf("ConfidenceScore = %q, want Low", result.ConfidenceScore)
	}
}

func TestAnalyzeDocumentShortDocumentSkipsModels(t *testing.T) {
	doc := testDocument("tiny")
	regs := []models.Regulation{
		namedRegulation("1", "Maintain records"),
		namedRegulation("2", "Handle complaints"),
	}

	client := &fakeClient{respond: func(llm.CompletionRequest) (string, error) {
		return "", errors.New("should not be called")
	}}

	config := testConfig()
	config.MinDocumentLength = 100
	svc := NewAnalysisService(
		AnalysisWithLLMClient(client),
		AnalysisWithConfig(config),
	)

	report, err := svc.AnalyzeDocument(context.Background(), doc, regs)
	if err != nil {
		t.Fatalf("AnalyzeDocument: %v", err)
	}
	if client.callCount() != 0 {
		t.Errorf("call count = %d, want 0", client.callCount())
	}
	if len(report.DetailedResults) != 2 {
		t.Fatalf("got %d results, want 2", len(report.DetailedResults))
	}
	for _, result := range report.DetailedResults {
		if result.Applicability != models.DoesNotApply {
			t.Errorf("regulation %s: Applicability = %q", result.RegulationNumber, result.Applicability)
		}
		if result.ApplicabilityReasoning != "Document contains insufficient text for analysis" {
			t.Errorf("ApplicabilityReasoning = %q", result.ApplicabilityReasoning)
		}
	}
}

func TestAnalyzeDocumentAppliesSkipFilter(t *testing.T) {
	doc := testDocument("This covers record keeping and complaints at sufficient length.")
	regs := []models.Regulation{
		namedRegulation("1", "Maintain records"),
		namedRegulation("2", "Handle complaints"),
	}

	client := pipelineClient(map[string]string{
		"Handle complaints": screeningJSON("Applies", "High"),
	})

	filter := NewSkipFilter(map[string][]models.RegulationNumber{
		"Business Standards": {"1"},
	})
	svc := NewAnalysisService(
		AnalysisWithLLMClient(client),
		AnalysisWithConfig(testConfig()),
		AnalysisWithSkipFilter(filter),
	)

	report, err := svc.AnalyzeDocument(context.Background(), doc, regs)
	if err != nil {
		t.Fatalf("AnalyzeDocument: %v", err)
	}
	if report.SkippedRegulations != 1 {
		t.Errorf("SkippedRegulations = %d, want 1", report.SkippedRegulations)
	}
	if len(report.DetailedResults) != 1 {
		t.Fatalf("got %d results, want 1", len(report.DetailedResults))
	}
	if report.DetailedResults[0].RegulationNumber != "2" {
		t.Errorf("surviving regulation = %s, want 2", report.DetailedResults[0].RegulationNumber)
	}
}

func TestAnalyzeDocumentNoClient(t *testing.T) {
	svc := NewAnalysisService(AnalysisWithConfig(testConfig()))
	_, err := svc.AnalyzeDocument(context.Background(), testDocument("text"), nil)
	if !errors.Is(err, ErrNoLLMClient) {
		t.Errorf("err = %v, want ErrNoLLMClient", err)
	}
}

func TestStartAnalysisNoClient(t *testing.T) {
	// A service without a client must reject new jobs up front instead of
	// failing later inside the background goroutine.
	svc := NewAnalysisService(AnalysisWithConfig(testConfig()))
	_, err := svc.StartAnalysis(context.Background(), StartAnalysisRequest{})
	if !errors.Is(err, ErrNoLLMClient) {
		t.Errorf("err = %v, want ErrNoLLMClient", err)
	}
}

func TestAnalyzeDocumentsBatch(t *testing.T) {
	docA := testDocument("Document A covers record keeping duties in sufficient depth for review.")
	docA.Metadata.Filename = "a.pdf"
	docB := testDocument("Document B covers record keeping duties in sufficient depth for review.")
	docB.Metadata.Filename = "b.pdf"

	regs := []models.Regulation{
		namedRegulation("3", "Maintain records"),
		namedRegulation("03", "Maintain records"),
	}

	client := pipelineClient(map[string]string{
		"Maintain records": screeningJSON("Applies", "High"),
	})

	svc := NewAnalysisService(
		AnalysisWithLLMClient(client),
		AnalysisWithConfig(testConfig()),
	)

	reports, err := svc.AnalyzeDocuments(context.Background(), []*models.Document{docA, docB}, regs)
	if err != nil {
		t.Fatalf("AnalyzeDocuments: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	for _, report := range reports {
		// "3" and "03" are the same regulation; reports come back deduped.
		if len(report.DetailedResults) != 1 {
			t.Errorf("%s: %d results after dedup, want 1", report.DocumentName, len(report.DetailedResults))
		}
	}
	names := []string{reports[0].DocumentName, reports[1].DocumentName}
	if names[0] != "a.pdf" || names[1] != "b.pdf" {
		t.Errorf("report order = %v", names)
	}
}

func TestGuidanceForGroupsByCanonicalNumber(t *testing.T) {
	svc := NewAnalysisService(
		AnalysisWithConfig(testConfig()),
		AnalysisWithGuidance([]models.GuidanceItem{
			{RegulationNumber: "05", GuidanceText: "Interpret charge disclosure broadly."},
			{RegulationNumber: "5", GuidanceText: "Include third-party charges."},
			{RegulationNumber: "9", GuidanceText: "Unrelated."},
		}),
	)

	reg := namedRegulation("5", "Disclose charges")
	items := svc.guidanceFor(&reg)
	if len(items) != 2 {
		t.Fatalf("got %d guidance items, want 2 (number forms not collapsed)", len(items))
	}
}
