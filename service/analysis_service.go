package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"compliancecheck-backend/cache"
	"compliancecheck-backend/llm"
	"compliancecheck-backend/models"
	"compliancecheck-backend/repository"
	"compliancecheck-backend/storage"

	"github.com/google/uuid"
)

var (
	ErrNoLLMClient         = errors.New("llm client not set")
	ErrJobNotFound         = errors.New("analysis job not found")
	ErrJobCreationFailed   = errors.New("failed to create analysis job")
	ErrFileNotFound        = errors.New("file not found")
	ErrEmptyRegulations    = errors.New("regulation set is empty")
	ErrDocumentNotRelevant = errors.New("document not relevant for compliance analysis")
)

// AnalysisService orchestrates the two-phase compliance pipeline. Phase 1
// screens every regulation against the whole document with a cheap model;
// Phase 2 runs the expensive chunked evaluation only for regulations that
// survive screening. Both phases run on bounded worker pools and share a
// content-addressed cache.
type AnalysisService struct {
	client     llm.Client
	cache      *cache.Cache
	config     AnalysisConfig
	skipFilter *SkipFilter
	guidance   map[string][]models.GuidanceItem

	jobRepo    *repository.AnalysisJobRepository
	reportRepo *repository.ReportRepository
	fileRepo   *repository.FileRepository
	store      storage.Storage

	screener  *ApplicabilityScreener
	evaluator *ComplianceEvaluator
	validator *DocumentValidator
}

// AnalysisServiceOption is a functional option for AnalysisService
type AnalysisServiceOption func(*AnalysisService)

// AnalysisWithLLMClient sets the LLM client
func AnalysisWithLLMClient(client llm.Client) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.client = client
	}
}

// AnalysisWithCache sets the result cache
func AnalysisWithCache(store *cache.Cache) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.cache = store
	}
}

// AnalysisWithConfig sets the pipeline configuration
func AnalysisWithConfig(config AnalysisConfig) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.config = config
	}
}

// AnalysisWithSkipFilter sets the regulation skip filter
func AnalysisWithSkipFilter(filter *SkipFilter) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.skipFilter = filter
	}
}

// AnalysisWithGuidance sets the guidance items consulted during Phase 2,
// grouped by regulation number.
func AnalysisWithGuidance(items []models.GuidanceItem) AnalysisServiceOption {
	return func(s *AnalysisService) {
		grouped := make(map[string][]models.GuidanceItem)
		for _, item := range items {
			key := item.RegulationNumber.Canonical()
			grouped[key] = append(grouped[key], item)
		}
		s.guidance = grouped
	}
}

// AnalysisWithJobRepository sets the analysis job repository
func AnalysisWithJobRepository(repo *repository.AnalysisJobRepository) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.jobRepo = repo
	}
}

// AnalysisWithReportRepository sets the report repository
func AnalysisWithReportRepository(repo *repository.ReportRepository) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.reportRepo = repo
	}
}

// AnalysisWithFileRepository sets the file repository
func AnalysisWithFileRepository(repo *repository.FileRepository) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.fileRepo = repo
	}
}

// AnalysisWithStorage sets the artifact storage backend
func AnalysisWithStorage(store storage.Storage) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.store = store
	}
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(opts ...AnalysisServiceOption) *AnalysisService {
	s := &AnalysisService{}
	for _, opt := range opts {
		opt(s)
	}
	s.config = s.config.withDefaults()
	if s.client != nil {
		s.screener = NewApplicabilityScreener(s.client, s.cache, s.config)
		s.evaluator = NewComplianceEvaluator(s.client, s.cache, s.config)
		s.validator = NewDocumentValidator(s.client, s.cache, s.config)
	}
	return s
}

// AnalyzeDocument runs the full two-phase pipeline for one document against a
// regulation set. The returned report has exactly one result per regulation
// that survived the skip filter, in input order.
func (s *AnalysisService) AnalyzeDocument(ctx context.Context, doc *models.Document, regulations []models.Regulation) (*models.DocumentComplianceReport, error) {
	if s.client == nil {
		return nil, ErrNoLLMClient
	}

	regs, skipped := s.skipFilter.Apply(regulations)
	report := &models.DocumentComplianceReport{
		DocumentName:       doc.Name(),
		SkippedRegulations: skipped,
	}

	// Documents with no meaningful text get an all-DoesNotApply report
	// without a single model call.
	if len(doc.FullText) < s.config.MinDocumentLength {
		log.Printf("Warning: document %s has insufficient text (%d chars), skipping analysis",
			doc.Name(), len(doc.FullText))
		report.DetailedResults = emptyDocumentResults(doc.Name(), regs)
		report.Recompute()
		return report, nil
	}

	// Phase 1: screen every regulation against the full document.
	verdicts := make([]*models.ApplicabilityVerdict, len(regs))
	var phase1Calls int
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.config.ScreeningWorkers)

	for i := range regs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			verdict, called := s.screener.Screen(ctx, doc, &regs[i])
			mu.Lock()
			verdicts[i] = verdict
			if called {
				phase1Calls++
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	// Phase 2: evaluate compliance for every regulation the screen kept.
	results := make([]models.ComplianceResult, len(regs))
	usage := models.ModelUsage{Phase1Calls: phase1Calls}
	sem = make(chan struct{}, s.config.EvaluationWorkers)

	for i := range regs {
		if !verdicts[i].NeedsEvaluation() {
			results[i] = *NotApplicableResult(doc.Name(), &regs[i], verdicts[i])
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			result, stats := s.evaluator.Evaluate(ctx, doc, &regs[i], verdicts[i], s.guidanceFor(&regs[i]))
			mu.Lock()
			results[i] = *result
			usage.Phase2Calls += stats.LLMCalls
			usage.ChunkProcessing.TotalChunksProcessed += stats.ChunksProcessed
			usage.ChunkProcessing.AdditionalEvidenceFound += stats.AdditionalEvidence
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	report.DetailedResults = results
	report.ModelUsage = usage
	report.Recompute()
	return report, nil
}

// AnalyzeDocuments runs the pipeline across a batch of documents on a bounded
// document-level pool. One document's failure never aborts the batch; its
// report is simply absent from the output.
func (s *AnalysisService) AnalyzeDocuments(ctx context.Context, docs []*models.Document, regulations []models.Regulation) ([]*models.DocumentComplianceReport, error) {
	if s.client == nil {
		return nil, ErrNoLLMClient
	}

	reports := make([]*models.DocumentComplianceReport, len(docs))
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.config.DocumentWorkers)

	for i := range docs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			report, err := s.AnalyzeDocument(ctx, docs[i], regulations)
			if err != nil {
				log.Printf("Warning: analysis failed for document %s: %v", docs[i].Name(), err)
				return
			}
			DeduplicateReport(report)
			reports[i] = report
		}(i)
	}
	wg.Wait()

	out := make([]*models.DocumentComplianceReport, 0, len(reports))
	for _, report := range reports {
		if report != nil {
			out = append(out, report)
		}
	}
	return out, nil
}

// ValidateDocument runs the pre-pipeline relevance check.
func (s *AnalysisService) ValidateDocument(ctx context.Context, doc *models.Document) (*ValidationResult, error) {
	if s.validator == nil {
		return nil, ErrNoLLMClient
	}
	return s.validator.Validate(ctx, doc), nil
}

// guidanceFor returns the guidance items attached to a regulation's number.
func (s *AnalysisService) guidanceFor(reg *models.Regulation) []models.GuidanceItem {
	if s.guidance == nil {
		return nil
	}
	return s.guidance[reg.RegulationNumber.Canonical()]
}

// emptyDocumentResults builds the all-DoesNotApply result set recorded for a
// document too short to analyze.
func emptyDocumentResults(docName string, regs []models.Regulation) []models.ComplianceResult {
	results := make([]models.ComplianceResult, 0, len(regs))
	for i := range regs {
		verdict := &models.ApplicabilityVerdict{
			Reasoning:       "Document contains insufficient text for analysis",
			ConfidenceScore: models.ConfidenceHigh,
		}
		results = append(results, *NotApplicableResult(docName, &regs[i], verdict))
	}
	return results
}

// StartAnalysisRequest identifies the stored artifacts an analysis job runs
// over.
type StartAnalysisRequest struct {
	DocumentFileID    uuid.UUID
	RegulationsFileID uuid.UUID
	SkipConfigFileID  *uuid.UUID
	GuidanceFileID    *uuid.UUID
}

// StartAnalysisResult carries the new job's ID
type StartAnalysisResult struct {
	JobID uuid.UUID
}

// Pipeline step names shown to job pollers.
const (
	stepValidating = "Validating Document"
	stepScreening  = "Screening Applicability"
	stepEvaluating = "Evaluating Compliance"
	stepSaving     = "Saving Report"
)

// StartAnalysis validates the referenced artifacts and creates a pending job.
// This must return quickly; the pipeline itself runs via ProcessAnalysisJob
// in the background.
func (s *AnalysisService) StartAnalysis(ctx context.Context, req StartAnalysisRequest) (*StartAnalysisResult, error) {
	if s.client == nil {
		return nil, ErrNoLLMClient
	}
	if s.jobRepo == nil {
		return nil, errors.New("analysis job repository not set")
	}
	if s.fileRepo == nil {
		return nil, errors.New("file repository not set")
	}

	if _, err := s.fileRepo.GetByID(ctx, req.DocumentFileID); err != nil {
		return nil, ErrFileNotFound
	}
	if _, err := s.fileRepo.GetByID(ctx, req.RegulationsFileID); err != nil {
		return nil, ErrFileNotFound
	}

	job := &models.AnalysisJob{
		DocumentID:        req.DocumentFileID,
		RegulationsFileID: req.RegulationsFileID,
		SkipConfigFileID:  req.SkipConfigFileID,
		GuidanceFileID:    req.GuidanceFileID,
		Status:            models.JobStatusPending,
		Steps: models.AnalysisSteps{
			{Name: stepValidating, Status: "pending"},
			{Name: stepScreening, Status: "pending"},
			{Name: stepEvaluating, Status: "pending"},
			{Name: stepSaving, Status: "pending"},
		},
	}

	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, ErrJobCreationFailed
	}

	return &StartAnalysisResult{JobID: job.ID}, nil
}

// GetJobStatus retrieves the current state of an analysis job
func (s *AnalysisService) GetJobStatus(ctx context.Context, jobID uuid.UUID) (*models.AnalysisJob, error) {
	if s.jobRepo == nil {
		return nil, errors.New("analysis job repository not set")
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// ProcessAnalysisJob performs the actual analysis work in the background.
// This method runs in a goroutine and can take minutes for large regulation
// sets.
func (s *AnalysisService) ProcessAnalysisJob(ctx context.Context, jobID uuid.UUID) error {
	if s.jobRepo == nil {
		return errors.New("analysis job repository not set")
	}
	if s.reportRepo == nil {
		return errors.New("report repository not set")
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load analysis job: %w", err)
	}

	if s.client == nil {
		s.markJobFailed(ctx, jobID, ErrNoLLMClient.Error())
		return ErrNoLLMClient
	}

	if err := s.jobRepo.UpdateStatus(ctx, jobID, models.JobStatusInProgress); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	// 1. Load inputs
	doc, err := s.loadDocument(ctx, job.DocumentID)
	if err != nil {
		s.markJobFailed(ctx, jobID, "failed to load document: "+err.Error())
		return err
	}

	regulations, err := s.loadRegulations(ctx, job.RegulationsFileID)
	if err != nil {
		s.markJobFailed(ctx, jobID, "failed to load regulations: "+err.Error())
		return err
	}

	skipFilter := s.skipFilter
	if job.SkipConfigFileID != nil {
		skipFilter, err = s.loadSkipFilter(ctx, *job.SkipConfigFileID)
		if err != nil {
			s.markJobFailed(ctx, jobID, "failed to load skip config: "+err.Error())
			return err
		}
	}

	guidance := s.guidance
	if job.GuidanceFileID != nil {
		items, err := s.loadGuidance(ctx, *job.GuidanceFileID)
		if err != nil {
			s.markJobFailed(ctx, jobID, "failed to load guidance: "+err.Error())
			return err
		}
		guidance = make(map[string][]models.GuidanceItem)
		for _, item := range items {
			key := item.RegulationNumber.Canonical()
			guidance[key] = append(guidance[key], item)
		}
	}

	// 2. Validate relevance
	if err := s.updateStepStatus(ctx, jobID, stepValidating, "in_progress"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}
	validation := s.validator.Validate(ctx, doc)
	if !validation.IsRelevant {
		s.markJobFailed(ctx, jobID, "document not relevant for analysis: "+validation.Reason)
		return ErrDocumentNotRelevant
	}
	if err := s.updateStepStatus(ctx, jobID, stepValidating, "completed"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	// 3. Run the pipeline. Screening and evaluation are interleaved inside
	// AnalyzeDocument, so both steps bracket the same call.
	if err := s.updateStepStatus(ctx, jobID, stepScreening, "in_progress"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	runner := &AnalysisService{
		client:     s.client,
		cache:      s.cache,
		config:     s.config,
		skipFilter: skipFilter,
		guidance:   guidance,
		screener:   s.screener,
		evaluator:  s.evaluator,
		validator:  s.validator,
	}

	report, err := runner.AnalyzeDocument(ctx, doc, regulations)
	if err != nil {
		s.markJobFailed(ctx, jobID, "analysis failed: "+err.Error())
		return err
	}
	DeduplicateReport(report)

	if err := s.updateStepStatus(ctx, jobID, stepScreening, "completed"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}
	if err := s.updateStepStatus(ctx, jobID, stepEvaluating, "completed"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	// 4. Store the report
	if err := s.updateStepStatus(ctx, jobID, stepSaving, "in_progress"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	record := &models.ReportRecord{
		JobID:        jobID,
		DocumentID:   job.DocumentID,
		DocumentName: report.DocumentName,
		Payload:      models.ReportPayload(*report),
	}
	if err := s.reportRepo.Create(ctx, record); err != nil {
		s.markJobFailed(ctx, jobID, "failed to store report: "+err.Error())
		return err
	}

	if err := s.updateStepStatus(ctx, jobID, stepSaving, "completed"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	if err := s.jobRepo.Complete(ctx, jobID); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// loadDocument loads and decodes a stored document artifact
func (s *AnalysisService) loadDocument(ctx context.Context, fileID uuid.UUID) (*models.Document, error) {
	data, err := s.loadArtifact(ctx, fileID)
	if err != nil {
		return nil, err
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &doc, nil
}

// loadRegulations loads and decodes a stored regulation set
func (s *AnalysisService) loadRegulations(ctx context.Context, fileID uuid.UUID) ([]models.Regulation, error) {
	data, err := s.loadArtifact(ctx, fileID)
	if err != nil {
		return nil, err
	}
	var regs []models.Regulation
	if err := json.Unmarshal(data, &regs); err != nil {
		return nil, fmt.Errorf("failed to parse regulations: %w", err)
	}
	if len(regs) == 0 {
		return nil, ErrEmptyRegulations
	}
	return regs, nil
}

// loadSkipFilter loads and decodes a stored skip configuration
func (s *AnalysisService) loadSkipFilter(ctx context.Context, fileID uuid.UUID) (*SkipFilter, error) {
	data, err := s.loadArtifact(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return ParseSkipFilter(data)
}

// loadGuidance loads and decodes stored guidance items
func (s *AnalysisService) loadGuidance(ctx context.Context, fileID uuid.UUID) ([]models.GuidanceItem, error) {
	data, err := s.loadArtifact(ctx, fileID)
	if err != nil {
		return nil, err
	}
	var items []models.GuidanceItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse guidance: %w", err)
	}
	return items, nil
}

// loadArtifact fetches an artifact's bytes from storage via its file record
func (s *AnalysisService) loadArtifact(ctx context.Context, fileID uuid.UUID) ([]byte, error) {
	if s.fileRepo == nil || s.store == nil {
		return nil, errors.New("file repository or storage not set")
	}

	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, ErrFileNotFound
	}

	reader, err := s.store.Download(ctx, file.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to download artifact: %w", err)
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

// updateStepStatus updates the status of a specific step in the analysis job
func (s *AnalysisService) updateStepStatus(ctx context.Context, jobID uuid.UUID, stepName, status string) error {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	steps := job.Steps
	var currentStep string
	if job.CurrentStep != nil {
		currentStep = *job.CurrentStep
	}

	for i := range steps {
		if steps[i].Name == stepName {
			steps[i].Status = status
			if status == "in_progress" {
				currentStep = stepName
			}
			break
		}
	}

	return s.jobRepo.UpdateProgress(ctx, jobID, currentStep, steps)
}

// markJobFailed marks a job as failed with an error message
func (s *AnalysisService) markJobFailed(ctx context.Context, jobID uuid.UUID, errorMessage string) {
	if err := s.jobRepo.Fail(ctx, jobID, errorMessage); err != nil {
		log.Printf("Warning: failed to mark job %s as failed: %v", jobID, err)
	}
}
