package repository

import (
	"context"

	"compliancecheck-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportRepository handles database operations for compliance reports
type ReportRepository struct {
	db *pgxpool.Pool
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create stores a completed compliance report
func (r *ReportRepository) Create(ctx context.Context, record *models.ReportRecord) error {
	query := `
		INSERT INTO compliance_reports (
			job_id, document_id, document_name, payload
		) VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRow(
		ctx, query,
		record.JobID,
		record.DocumentID,
		record.DocumentName,
		record.Payload,
	).Scan(&record.ID, &record.CreatedAt)

	return err
}

// GetByID retrieves a report by ID
func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReportRecord, error) {
	record := &models.ReportRecord{}
	query := `
		SELECT id, job_id, document_id, document_name, payload, created_at
		FROM compliance_reports
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.JobID,
		&record.DocumentID,
		&record.DocumentName,
		&record.Payload,
		&record.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	return record, nil
}

// GetByJobID retrieves the report produced by an analysis job
func (r *ReportRepository) GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.ReportRecord, error) {
	record := &models.ReportRecord{}
	query := `
		SELECT id, job_id, document_id, document_name, payload, created_at
		FROM compliance_reports
		WHERE job_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.QueryRow(ctx, query, jobID).Scan(
		&record.ID,
		&record.JobID,
		&record.DocumentID,
		&record.DocumentName,
		&record.Payload,
		&record.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	return record, nil
}

// ListByDocumentID retrieves all reports for a document, newest first
func (r *ReportRepository) ListByDocumentID(ctx context.Context, documentID uuid.UUID) ([]*models.ReportRecord, error) {
	query := `
		SELECT id, job_id, document_id, document_name, payload, created_at
		FROM compliance_reports
		WHERE document_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ReportRecord
	for rows.Next() {
		record := &models.ReportRecord{}
		err := rows.Scan(
			&record.ID,
			&record.JobID,
			&record.DocumentID,
			&record.DocumentName,
			&record.Payload,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// List retrieves all reports, newest first
func (r *ReportRepository) List(ctx context.Context) ([]*models.ReportRecord, error) {
	query := `
		SELECT id, job_id, document_id, document_name, payload, created_at
		FROM compliance_reports
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ReportRecord
	for rows.Next() {
		record := &models.ReportRecord{}
		err := rows.Scan(
			&record.ID,
			&record.JobID,
			&record.DocumentID,
			&record.DocumentName,
			&record.Payload,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}
