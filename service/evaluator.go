package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"compliancecheck-backend/cache"
	"compliancecheck-backend/llm"
	"compliancecheck-backend/models"
)

// Phase-2 fallback strings recorded when a model response cannot be parsed.
const (
	evaluationFallbackReasoning      = "Could not parse response from AI"
	evaluationFallbackRecommendation = "Manual review required"
	noAdditionalEvidence             = "No additional evidence found"
)

// ComplianceEvaluator runs the Phase-2 deep compliance evaluation for one
// (document, regulation) pair. Like the screener it never returns an error;
// failures degrade to a Partial/Low fallback result.
type ComplianceEvaluator struct {
	client llm.Client
	cache  *cache.Cache
	config AnalysisConfig
}

// NewComplianceEvaluator wires an evaluator over the given LLM client and
// cache. The cache may be nil to disable caching.
func NewComplianceEvaluator(client llm.Client, store *cache.Cache, config AnalysisConfig) *ComplianceEvaluator {
	return &ComplianceEvaluator{
		client: client,
		cache:  store,
		config: config.withDefaults(),
	}
}

// EvaluationStats reports what one evaluation cost.
type EvaluationStats struct {
	LLMCalls           int
	ChunksProcessed    int
	AdditionalEvidence int
	CacheHit           bool
}

// evaluationResponse is the JSON shape the compliance prompt asks for.
type evaluationResponse struct {
	Applicability       string `json:"applicability"`
	IsCompliant         string `json:"is_compliant"`
	ComplianceReasoning string `json:"compliance_reasoning"`
	ComplianceEvidence  string `json:"compliance_evidence"`
	GapDescription      string `json:"gap_description"`
	GapRecommendations  string `json:"gap_recommendations"`
	ConfidenceScore     string `json:"confidence_score"`
}

// additionalEvidenceResponse is the JSON shape of the evidence-mining prompt.
type additionalEvidenceResponse struct {
	AdditionalEvidence string `json:"additional_evidence"`
}

// Evaluate produces the compliance result for reg against doc, given the
// Phase-1 verdict. A DoesNotApply verdict short-circuits: the screener
// already ruled the regulation out, so its reasoning is carried into a stub
// result and no model call is made. Low-confidence rejections survive
// screening so their stub is recorded here rather than being dropped.
func (e *ComplianceEvaluator) Evaluate(ctx context.Context, doc *models.Document, reg *models.Regulation, verdict *models.ApplicabilityVerdict, guidance []models.GuidanceItem) (*models.ComplianceResult, EvaluationStats) {
	stats := EvaluationStats{}

	if verdict.Applicability == models.DoesNotApply {
		return NotApplicableResult(doc.Name(), reg, verdict), stats
	}

	chunks := chunkText(doc.FullText, e.config.ChunkSize, e.config.ChunkOverlap)
	if len(chunks) == 0 {
		chunks = []string{""}
	}

	prompt := buildCompliancePrompt(doc.Name(), chunks[0], reg, formatGuidance(guidance))
	key := cache.Key(doc.Name(), reg.RegulationNumber.Canonical(), 2, prompt)

	if e.cache != nil {
		var cached models.ComplianceResult
		if e.cache.Get(key, &cached) {
			stats.CacheHit = true
			return &cached, stats
		}
	}

	result := e.analyzeFirstChunk(ctx, prompt, doc, reg, verdict, &stats)

	// Mine the remaining chunks for more evidence when the first chunk
	// already established compliance. A No or N/A verdict gets no mining:
	// more text cannot turn a found gap into compliance.
	if len(chunks) > 1 && result.ComplianceEvidence != "" &&
		(result.IsCompliant == models.CompliantYes || result.IsCompliant == models.CompliantPartial) {
		e.collectAdditionalEvidence(ctx, chunks, doc, reg, result, &stats)
	}

	e.attachEvidencePages(doc, result)

	if result.Applicability == models.DoesNotApply {
		clearComplianceFields(result)
	}

	if e.cache != nil && !result.IsFallback {
		if err := e.cache.Put(key, result); err != nil {
			log.Printf("Warning: failed to cache compliance result: %v", err)
		}
	}
	return result, stats
}

// NotApplicableResult builds the stub result recorded for regulations that
// were screened out in Phase 1 with high confidence. No model call is made.
func NotApplicableResult(docName string, reg *models.Regulation, verdict *models.ApplicabilityVerdict) *models.ComplianceResult {
	return &models.ComplianceResult{
		RegulationNumber:           reg.RegulationNumber,
		RegulationTitle:            reg.RegulationTitle,
		RegulationText:             reg.RegulationText,
		SectionType:                reg.SectionType,
		SourceName:                 reg.SourceName,
		DocumentName:               docName,
		Applicability:              models.DoesNotApply,
		ApplicabilityReasoning:     verdict.Reasoning,
		IsCompliant:                models.CompliantNA,
		ComplianceReasoning:        "N/A - Regulation does not apply to this document",
		ComplianceEvidence:         "",
		ComplianceEvidenceWithPage: "",
		EvidencePage:               "N/A",
		GapDescription:             "",
		GapRecommendations:         "",
		ConfidenceScore:            verdict.ConfidenceScore,
		IsFallback:                 verdict.IsFallback,
	}
}

func (e *ComplianceEvaluator) analyzeFirstChunk(ctx context.Context, prompt string, doc *models.Document, reg *models.Regulation, verdict *models.ApplicabilityVerdict, stats *EvaluationStats) *models.ComplianceResult {
	raw, err := e.client.Complete(ctx, llm.CompletionRequest{
		Prompt:      prompt,
		Model:       e.config.EvaluationModel,
		Temperature: e.config.Temperature,
	})
	stats.LLMCalls++
	if err != nil {
		log.Printf("Warning: compliance call failed for regulation %s on %s: %v",
			reg.RegulationNumber, doc.Name(), err)
		return e.fallbackResult(doc, reg, verdict)
	}

	e.pause(ctx)

	var resp evaluationResponse
	if !decodeJSONObject(raw, &resp) {
		log.Printf("Warning: unparseable compliance response for regulation %s on %s",
			reg.RegulationNumber, doc.Name())
		return e.fallbackResult(doc, reg, verdict)
	}

	return &models.ComplianceResult{
		RegulationNumber:       reg.RegulationNumber,
		RegulationTitle:        reg.RegulationTitle,
		RegulationText:         reg.RegulationText,
		SectionType:            reg.SectionType,
		SourceName:             reg.SourceName,
		DocumentName:           doc.Name(),
		Applicability:          models.ParseApplicability(resp.Applicability),
		ApplicabilityReasoning: verdict.Reasoning,
		IsCompliant:            models.ParseComplianceStatus(resp.IsCompliant),
		ComplianceReasoning:    resp.ComplianceReasoning,
		ComplianceEvidence:     resp.ComplianceEvidence,
		GapDescription:         resp.GapDescription,
		GapRecommendations:     resp.GapRecommendations,
		ConfidenceScore:        models.ParseConfidenceScore(resp.ConfidenceScore),
	}
}

func (e *ComplianceEvaluator) collectAdditionalEvidence(ctx context.Context, chunks []string, doc *models.Document, reg *models.Regulation, result *models.ComplianceResult, stats *EvaluationStats) {
	evidence := []string{result.ComplianceEvidence}

	for i := 1; i < len(chunks); i++ {
		stats.ChunksProcessed++
		prompt := buildAdditionalEvidencePrompt(doc.Name(), i, len(chunks), chunks[i], reg, result.IsCompliant, result.ComplianceEvidence)

		raw, err := e.client.Complete(ctx, llm.CompletionRequest{
			Prompt:      prompt,
			Model:       e.config.EvaluationModel,
			Temperature: e.config.Temperature,
		})
		stats.LLMCalls++
		if err != nil {
			log.Printf("Warning: additional evidence call failed for chunk %d of %s: %v",
				i+1, doc.Name(), err)
			continue
		}
		e.pause(ctx)

		var resp additionalEvidenceResponse
		if !decodeJSONObject(raw, &resp) {
			continue
		}

		found := strings.TrimSpace(resp.AdditionalEvidence)
		if found == "" || strings.EqualFold(found, noAdditionalEvidence) {
			continue
		}
		evidence = append(evidence, found)
		stats.AdditionalEvidence++
	}

	result.ComplianceEvidence = strings.Join(evidence, "; ")
}

// attachEvidencePages resolves the evidence text to page numbers and builds
// the page-annotated evidence string.
func (e *ComplianceEvaluator) attachEvidencePages(doc *models.Document, result *models.ComplianceResult) {
	if result.ComplianceEvidence == "" {
		result.EvidencePage = "N/A"
		result.ComplianceEvidenceWithPage = ""
		return
	}

	quotes := strings.Split(result.ComplianceEvidence, "; ")
	annotated := make([]string, 0, len(quotes))
	pages := make([]string, 0, len(quotes))
	seenPage := make(map[string]bool)

	for _, quote := range quotes {
		page := findEvidencePage(doc.Pages, quote)
		annotated = append(annotated, fmt.Sprintf("[Page %d] %s", page, quote))
		pageStr := fmt.Sprintf("%d", page)
		if !seenPage[pageStr] {
			seenPage[pageStr] = true
			pages = append(pages, pageStr)
		}
	}

	result.ComplianceEvidenceWithPage = strings.Join(annotated, "; ")
	result.EvidencePage = strings.Join(pages, ", ")
}

func (e *ComplianceEvaluator) fallbackResult(doc *models.Document, reg *models.Regulation, verdict *models.ApplicabilityVerdict) *models.ComplianceResult {
	return &models.ComplianceResult{
		RegulationNumber:       reg.RegulationNumber,
		RegulationTitle:        reg.RegulationTitle,
		RegulationText:         reg.RegulationText,
		SectionType:            reg.SectionType,
		SourceName:             reg.SourceName,
		DocumentName:           doc.Name(),
		Applicability:          verdict.Applicability,
		ApplicabilityReasoning: verdict.Reasoning,
		IsCompliant:            models.CompliantPartial,
		ComplianceReasoning:    evaluationFallbackReasoning,
		GapDescription:         evaluationFallbackReasoning,
		GapRecommendations:     evaluationFallbackRecommendation,
		ConfidenceScore:        models.ConfidenceLow,
		IsFallback:             true,
	}
}

// clearComplianceFields enforces the invariant that a DoesNotApply result
// carries no compliance verdict, whatever the model answered.
func clearComplianceFields(result *models.ComplianceResult) {
	result.IsCompliant = models.CompliantNA
	result.ComplianceReasoning = "N/A - Regulation does not apply to this document"
	result.ComplianceEvidence = ""
	result.ComplianceEvidenceWithPage = ""
	result.EvidencePage = "N/A"
	result.GapDescription = ""
	result.GapRecommendations = ""
}

// pause spaces out consecutive calls to stay under provider rate limits.
func (e *ComplianceEvaluator) pause(ctx context.Context) {
	if e.config.RateLimitDelay <= 0 {
		return
	}
	timer := time.NewTimer(e.config.RateLimitDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// chunkText splits text into overlapping windows of at most size characters.
// Text no longer than size comes back as a single chunk.
func chunkText(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 || len(text) <= size {
		return []string{text}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}

// findEvidencePage locates the page containing an evidence quote by scanning
// for its first three words. Page 1 is the default when the quote cannot be
// located, which happens when the model paraphrased instead of quoting.
func findEvidencePage(pages []models.DocumentPage, quote string) int {
	words := strings.Fields(strings.ToLower(quote))
	if len(words) == 0 {
		return 1
	}
	if len(words) > 3 {
		words = words[:3]
	}
	phrase := strings.Join(words, " ")

	for _, page := range pages {
		if strings.Contains(strings.ToLower(page.Text), phrase) {
			return page.PageNumber
		}
	}
	return 1
}
