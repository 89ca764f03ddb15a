package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/memcardhq/memcard/internal/pdf"
	"github.com/memcardhq/memcard/internal/session"
	"github.com/memcardhq/memcard/internal/store"
	"github.com/memcardhq/memcard/pkg/logger"
	"github.com/memcardhq/memcard/pkg/models"
)

// Service submits new flashcard generation jobs: preflight the PDF,
// upload it, then queue a job against the uploaded document. The
// processing pipeline picks the job up from there.
type Service struct {
	client    *store.Client
	preflight *pdf.Preflight
	log       *logger.Logger
}

func NewService(client *store.Client, preflight *pdf.Preflight, log *logger.Logger) *Service {
	return &Service{
		client:    client,
		preflight: preflight,
		log:       log,
	}
}

// Submit runs the full submission flow for one PDF and returns the
// queued job.
func (s *Service) Submit(ctx context.Context, sess *session.Session, pdfPath string) (models.Job, error) {
	var job models.Job

	if err := sess.Require(); err != nil {
		return job, err
	}

	report, err := s.preflight.Check(ctx, pdfPath)
	if err != nil {
		return job, err
	}
	if !report.Ready() {
		return job, fmt.Errorf("%s has no extractable text; the pipeline needs text highlights to work with", report.FileName)
	}

	docID, err := s.uploadPDF(ctx, sess, report)
	if err != nil {
		return job, err
	}
	s.log.Info("Uploaded %s (%d pages) as document %s", report.FileName, report.PageCount, docID)

	record, err := s.client.Create(ctx, sess, store.CollectionJobs, map[string]interface{}{
		"user":       sess.UserID,
		"source_pdf": docID,
		"status":     string(models.StatusQueued),
	})
	if err != nil {
		return job, fmt.Errorf("failed to queue job: %w", err)
	}

	if err := json.Unmarshal(record, &job); err != nil {
		return job, fmt.Errorf("failed to parse created job: %w", err)
	}
	s.log.Info("Job %s queued", job.ID)
	return job, nil
}

func (s *Service) uploadPDF(ctx context.Context, sess *session.Session, report *pdf.Report) (string, error) {
	f, err := os.Open(report.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", report.Path, err)
	}
	defer f.Close()

	fields := map[string]string{
		"user":              sess.UserID,
		"original_filename": report.FileName,
		"file_size":         strconv.FormatInt(report.SizeBytes, 10),
	}

	record, err := s.client.CreateMultipart(ctx, sess, store.CollectionPDFs, fields, "pdf_document", report.FileName, f)
	if err != nil {
		return "", fmt.Errorf("failed to upload PDF: %w", err)
	}

	var doc models.SourceDocument
	if err := json.Unmarshal(record, &doc); err != nil {
		return "", fmt.Errorf("failed to parse uploaded document record: %w", err)
	}
	return doc.ID, nil
}
