package service

import (
	"context"
	"log"
	"time"

	"compliancecheck-backend/cache"
	"compliancecheck-backend/llm"
	"compliancecheck-backend/models"
)

// screeningFallbackReasoning is the reasoning recorded when a Phase-1 response
// cannot be parsed and the pipeline falls back to MayApply.
const screeningFallbackReasoning = "Unable to determine applicability due to JSON parsing issue. Defaulting to 'May Apply' for safety."

// ApplicabilityScreener runs the Phase-1 applicability check for one
// (document, regulation) pair. It never returns an error: any failure along
// the way degrades to a MayApply fallback verdict so one bad call cannot sink
// a batch.
type ApplicabilityScreener struct {
	client llm.Client
	cache  *cache.Cache
	config AnalysisConfig
}

// NewApplicabilityScreener wires a screener over the given LLM client and
// cache. The cache may be nil to disable caching.
func NewApplicabilityScreener(client llm.Client, store *cache.Cache, config AnalysisConfig) *ApplicabilityScreener {
	return &ApplicabilityScreener{
		client: client,
		cache:  store,
		config: config.withDefaults(),
	}
}

// screeningResponse is the JSON shape the screening prompt asks for.
type screeningResponse struct {
	Applicability   string `json:"applicability"`
	Reasoning       string `json:"applicability_reasoning"`
	ConfidenceScore string `json:"confidence_score"`
}

// Screen evaluates whether reg applies to doc. The bool result reports
// whether an LLM call was actually issued (false on cache hit), which feeds
// the report's model usage counters.
func (s *ApplicabilityScreener) Screen(ctx context.Context, doc *models.Document, reg *models.Regulation) (*models.ApplicabilityVerdict, bool) {
	prompt := buildScreeningPrompt(doc, reg)
	key := cache.Key(doc.Name(), reg.RegulationNumber.Canonical(), 1, prompt)

	if s.cache != nil {
		var cached models.ApplicabilityVerdict
		if s.cache.Get(key, &cached) {
			return &cached, false
		}
	}

	raw, err := s.client.Complete(ctx, llm.CompletionRequest{
		Prompt:      prompt,
		Model:       s.config.ScreeningModel,
		Temperature: s.config.Temperature,
	})
	if err != nil {
		log.Printf("Warning: applicability call failed for regulation %s on %s: %v",
			reg.RegulationNumber, doc.Name(), err)
		// Transport failures are transient; the fallback is not cached so a
		// rerun retries the call.
		return s.fallbackVerdict(doc, reg), true
	}

	s.pause(ctx)

	verdict := s.parseVerdict(raw, doc, reg)
	if s.cache != nil {
		if err := s.cache.Put(key, verdict); err != nil {
			log.Printf("Warning: failed to cache applicability verdict: %v", err)
		}
	}
	return verdict, true
}

// parseVerdict extracts the verdict from raw model output. Parse failures
// produce a cached fallback: the response is deterministic garbage, so
// retrying the identical prompt would not help.
func (s *ApplicabilityScreener) parseVerdict(raw string, doc *models.Document, reg *models.Regulation) *models.ApplicabilityVerdict {
	var resp screeningResponse
	if !decodeJSONObject(raw, &resp) {
		log.Printf("Warning: unparseable applicability response for regulation %s on %s",
			reg.RegulationNumber, doc.Name())
		return s.fallbackVerdict(doc, reg)
	}

	return &models.ApplicabilityVerdict{
		RegulationNumber: reg.RegulationNumber,
		RegulationTitle:  reg.RegulationTitle,
		SectionType:      reg.SectionType,
		SourceName:       reg.SourceName,
		DocumentName:     doc.Name(),
		Applicability:    models.ParseApplicability(resp.Applicability),
		Reasoning:        resp.Reasoning,
		ConfidenceScore:  models.ParseConfidenceScore(resp.ConfidenceScore),
	}
}

func (s *ApplicabilityScreener) fallbackVerdict(doc *models.Document, reg *models.Regulation) *models.ApplicabilityVerdict {
	return &models.ApplicabilityVerdict{
		RegulationNumber: reg.RegulationNumber,
		RegulationTitle:  reg.RegulationTitle,
		SectionType:      reg.SectionType,
		SourceName:       reg.SourceName,
		DocumentName:     doc.Name(),
		Applicability:    models.MayApply,
		Reasoning:        screeningFallbackReasoning,
		ConfidenceScore:  models.ConfidenceLow,
		IsFallback:       true,
	}
}

// pause spaces out consecutive calls to stay under provider rate limits.
func (s *ApplicabilityScreener) pause(ctx context.Context) {
	if s.config.RateLimitDelay <= 0 {
		return
	}
	timer := time.NewTimer(s.config.RateLimitDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
