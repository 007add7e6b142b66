package service

import (
	"context"
	"log"
	"strings"

	"compliancecheck-backend/cache"
	"compliancecheck-backend/llm"
	"compliancecheck-backend/models"
)

// DocumentValidator is the optional pre-pipeline relevance gate. It asks a
// cheap model whether a document is worth analyzing at all, so a batch of
// uploads does not burn two phases of calls on meeting minutes and invoices.
type DocumentValidator struct {
	client llm.Client
	cache  *cache.Cache
	config AnalysisConfig
}

// NewDocumentValidator wires a validator over the given LLM client and cache.
func NewDocumentValidator(client llm.Client, store *cache.Cache, config AnalysisConfig) *DocumentValidator {
	return &DocumentValidator{
		client: client,
		cache:  store,
		config: config.withDefaults(),
	}
}

// ValidationResult is the relevance verdict for one document.
type ValidationResult struct {
	DocumentName string `json:"document_name"`
	IsRelevant   bool   `json:"is_relevant"`
	Reason       string `json:"reason"`
}

type validationResponse struct {
	IsRelevant string `json:"is_relevant"`
	Reason     string `json:"reason"`
}

// Validate reports whether doc is relevant for compliance analysis. It fails
// open: on any error the document is treated as relevant, because silently
// dropping a document from a compliance run is worse than analyzing noise.
func (v *DocumentValidator) Validate(ctx context.Context, doc *models.Document) *ValidationResult {
	prompt := buildValidationPrompt(doc)
	key := cache.Key(doc.Name(), "document-validation", 0, prompt)

	if v.cache != nil {
		var cached ValidationResult
		if v.cache.Get(key, &cached) {
			return &cached
		}
	}

	raw, err := v.client.Complete(ctx, llm.CompletionRequest{
		Prompt:      prompt,
		Model:       v.config.ScreeningModel,
		Temperature: v.config.Temperature,
	})
	if err != nil {
		log.Printf("Warning: validation call failed for %s: %v", doc.Name(), err)
		return relevantFallback(doc)
	}

	var resp validationResponse
	if !decodeJSONObject(raw, &resp) {
		log.Printf("Warning: unparseable validation response for %s", doc.Name())
		return relevantFallback(doc)
	}

	result := &ValidationResult{
		DocumentName: doc.Name(),
		IsRelevant:   strings.EqualFold(strings.TrimSpace(resp.IsRelevant), "yes"),
		Reason:       resp.Reason,
	}
	if v.cache != nil {
		if err := v.cache.Put(key, result); err != nil {
			log.Printf("Warning: failed to cache validation result: %v", err)
		}
	}
	return result
}

func relevantFallback(doc *models.Document) *ValidationResult {
	return &ValidationResult{
		DocumentName: doc.Name(),
		IsRelevant:   true,
		Reason:       "Validation unavailable; document retained for analysis",
	}
}
