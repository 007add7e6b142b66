package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"compliancecheck-backend/models"
	"compliancecheck-backend/repository"
	"compliancecheck-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AnalysisHandler handles HTTP requests for compliance analysis
type AnalysisHandler struct {
	analysisService      *service.AnalysisService
	consolidationService *service.ConsolidationService
	reportRepo           *repository.ReportRepository
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analysisService *service.AnalysisService, consolidationService *service.ConsolidationService, reportRepo *repository.ReportRepository) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService:      analysisService,
		consolidationService: consolidationService,
		reportRepo:           reportRepo,
	}
}

// StartAnalysis handles POST /api/analyses
func (h *AnalysisHandler) StartAnalysis(c *gin.Context) {
	var reqBody struct {
		DocumentFileID    string  `json:"document_file_id" binding:"required"`
		RegulationsFileID string  `json:"regulations_file_id" binding:"required"`
		SkipConfigFileID  *string `json:"skip_config_file_id"`
		GuidanceFileID    *string `json:"guidance_file_id"`
	}
	if err := c.ShouldBindJSON(&reqBody); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "document_file_id and regulations_file_id are required",
			},
		})
		return
	}

	serviceReq := service.StartAnalysisRequest{}

	docID, err := uuid.Parse(reqBody.DocumentFileID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid document_file_id format",
			},
		})
		return
	}
	serviceReq.DocumentFileID = docID

	regsID, err := uuid.Parse(reqBody.RegulationsFileID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid regulations_file_id format",
			},
		})
		return
	}
	serviceReq.RegulationsFileID = regsID

	if reqBody.SkipConfigFileID != nil {
		id, err := uuid.Parse(*reqBody.SkipConfigFileID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_ID",
					"message": "Invalid skip_config_file_id format",
				},
			})
			return
		}
		serviceReq.SkipConfigFileID = &id
	}
	if reqBody.GuidanceFileID != nil {
		id, err := uuid.Parse(*reqBody.GuidanceFileID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_ID",
					"message": "Invalid guidance_file_id format",
				},
			})
			return
		}
		serviceReq.GuidanceFileID = &id
	}

	// Create job (synchronous, fast)
	result, err := h.analysisService.StartAnalysis(c.Request.Context(), serviceReq)
	if err != nil {
		if err == service.ErrFileNotFound {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Referenced file not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ANALYSIS_START_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	// Spawn background goroutine for actual processing
	// Use background context (not request context) to avoid cancellation
	go func() {
		bgCtx := context.Background()
		if err := h.analysisService.ProcessAnalysisJob(bgCtx, result.JobID); err != nil {
			// Error is stored in job.ErrorMessage; clients poll status
			log.Printf("Analysis job %s failed: %v", result.JobID, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data": gin.H{
			"job_id":  result.JobID,
			"status":  "pending",
			"message": "Analysis job created. Poll /api/jobs/:id for updates.",
		},
	})
}

// GetJobStatus handles GET /api/jobs/:id
func (h *AnalysisHandler) GetJobStatus(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid job ID format",
			},
		})
		return
	}

	job, err := h.analysisService.GetJobStatus(c.Request.Context(), id)
	if err != nil {
		if err == service.ErrJobNotFound {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Analysis job not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "RETRIEVAL_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    job,
	})
}

// GetJobReport handles GET /api/jobs/:id/report
func (h *AnalysisHandler) GetJobReport(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid job ID format",
			},
		})
		return
	}

	record, err := h.reportRepo.GetByJobID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "No report found for this job",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    record,
	})
}

// ListReports handles GET /api/reports
func (h *AnalysisHandler) ListReports(c *gin.Context) {
	var records []*models.ReportRecord
	var err error

	if docIDStr := c.Query("document_id"); docIDStr != "" {
		docID, parseErr := uuid.Parse(docIDStr)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_ID",
					"message": "Invalid document_id format",
				},
			})
			return
		}
		records, err = h.reportRepo.ListByDocumentID(c.Request.Context(), docID)
	} else {
		records, err = h.reportRepo.List(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    records,
	})
}

// GetConsolidatedView handles POST /api/reports/consolidated
//
// The request body lists the report IDs to merge; regulations are optional
// context that enriches the views with part and chapter metadata.
func (h *AnalysisHandler) GetConsolidatedView(c *gin.Context) {
	var reqBody struct {
		ReportIDs   []string        `json:"report_ids" binding:"required"`
		Regulations json.RawMessage `json:"regulations"`
	}
	if err := c.ShouldBindJSON(&reqBody); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "report_ids is required",
			},
		})
		return
	}
	if len(reqBody.ReportIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "report_ids must not be empty",
			},
		})
		return
	}

	var regulations []models.Regulation
	if len(reqBody.Regulations) > 0 {
		if err := json.Unmarshal(reqBody.Regulations, &regulations); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_REGULATIONS",
					"message": "Failed to parse regulations",
				},
			})
			return
		}
	}

	reports := make([]*models.DocumentComplianceReport, 0, len(reqBody.ReportIDs))
	for _, idStr := range reqBody.ReportIDs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_ID",
					"message": "Invalid report ID format: " + idStr,
				},
			})
			return
		}
		record, err := h.reportRepo.GetByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Report not found: " + idStr,
				},
			})
			return
		}
		report := models.DocumentComplianceReport(record.Payload)
		reports = append(reports, &report)
	}

	views := h.consolidationService.Consolidate(c.Request.Context(), reports, regulations)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    views,
	})
}
