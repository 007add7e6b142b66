package service

import "time"

// Default model assignments. Phase 1 runs on a cheaper model against the full
// document; Phase 2 pays for the stronger model only on regulations that
// survive screening. Summaries use a third model entirely. All of these are
// configuration values, not design constraints.
const (
	defaultScreeningModel  = "anthropic/claude-3-5-sonnet"
	defaultEvaluationModel = "anthropic/claude-3-7-sonnet"
	defaultSummaryModel    = "openai/gpt-4o"
)

// AnalysisConfig carries every tunable of the analysis pipeline. It is passed
// at construction; nothing reads configuration from module scope.
type AnalysisConfig struct {
	ScreeningModel  string
	EvaluationModel string
	SummaryModel    string

	// Worker pool bounds. Screening calls are cheap and parallelize wide;
	// evaluation calls are heavier and get their own, separately bounded pool.
	ScreeningWorkers  int
	EvaluationWorkers int
	DocumentWorkers   int

	// RateLimitDelay is slept after every LLM call. It is a throttle for the
	// provider's rate limits, not a correctness mechanism.
	RateLimitDelay time.Duration

	// Phase-2 chunking. Windows overlap so evidence near a boundary is not
	// lost to the split.
	ChunkSize    int
	ChunkOverlap int

	// MinDocumentLength is the threshold below which a document is treated as
	// having no analyzable content.
	MinDocumentLength int

	Temperature float32
}

// DefaultAnalysisConfig returns the production defaults.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		ScreeningModel:    defaultScreeningModel,
		EvaluationModel:   defaultEvaluationModel,
		SummaryModel:      defaultSummaryModel,
		ScreeningWorkers:  4,
		EvaluationWorkers: 4,
		DocumentWorkers:   2,
		RateLimitDelay:    500 * time.Millisecond,
		ChunkSize:         7000,
		ChunkOverlap:      500,
		MinDocumentLength: 100,
		Temperature:       0.1,
	}
}

// withDefaults fills zero-valued fields so a partially populated config
// behaves sanely.
func (c AnalysisConfig) withDefaults() AnalysisConfig {
	defaults := DefaultAnalysisConfig()
	if c.ScreeningModel == "" {
		c.ScreeningModel = defaults.ScreeningModel
	}
	if c.EvaluationModel == "" {
		c.EvaluationModel = defaults.EvaluationModel
	}
	if c.SummaryModel == "" {
		c.SummaryModel = defaults.SummaryModel
	}
	if c.ScreeningWorkers <= 0 {
		c.ScreeningWorkers = defaults.ScreeningWorkers
	}
	if c.EvaluationWorkers <= 0 {
		c.EvaluationWorkers = defaults.EvaluationWorkers
	}
	if c.DocumentWorkers <= 0 {
		c.DocumentWorkers = defaults.DocumentWorkers
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaults.ChunkSize
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = defaults.ChunkOverlap
	}
	if c.MinDocumentLength <= 0 {
		c.MinDocumentLength = defaults.MinDocumentLength
	}
	if c.Temperature == 0 {
		c.Temperature = defaults.Temperature
	}
	return c
}
