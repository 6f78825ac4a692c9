package invoices

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"invoice-backend/internal/canonical"
	"invoice-backend/internal/claims"
	"invoice-backend/internal/confidence"
	"invoice-backend/internal/extract"
	"invoice-backend/internal/llm"
	"invoice-backend/internal/queue"
	"invoice-backend/internal/shared/metrics"
	"invoice-backend/internal/shared/storage/object"
	"invoice-backend/internal/shared/telemetry"
	"invoice-backend/internal/upload"
)

// Service runs the ingestion pipeline and the status workflow. Repo and LLM
// are required; Store and Queue are optional.
type Service struct {
	Repo      Repo
	LLM       llm.Client
	Validator *upload.Validator
	Scorer    *confidence.Scorer
	Store     object.ObjectStore
	Queue     queue.Client
	Now       func() time.Time
}

// IngestResult is the outcome of a successful ingestion. ValidationError is
// set when the canonical invoice failed validation; the record is still saved.
type IngestResult struct {
	Invoice         Invoice
	Valid           bool
	ValidationError *string
	Usage           map[string]any
}

// Ingest validates, archives, extracts, canonicalizes, scores and stores one
// upload. The original is archived before the extraction call. Failures
// surface immediately; nothing is retried.
func (s *Service) Ingest(ctx context.Context, claim claims.UserClaim, file *upload.File) (IngestResult, error) {
	if s == nil || s.Repo == nil {
		return IngestResult{}, ErrUninitialized
	}
	if claim.UserID == "" {
		return IngestResult{}, claims.ErrMissingIdentity
	}
	if err := s.validator().Validate(file); err != nil {
		var qerr *upload.QualityError
		if errors.As(err, &qerr) {
			metrics.IncQualityRejected(qerr.Reason)
		}
		return IngestResult{}, err
	}

	doc := llm.Encode(ctx, file.Filename, file.Data)
	metadata := map[string]any{}
	if doc.Pages > 0 {
		metadata["pdf_pages"] = doc.Pages
	}
	if err := s.archive(ctx, claim.UserID, file, doc, metadata); err != nil {
		return IngestResult{}, err
	}

	raw, err := s.extract(ctx, doc)
	if err != nil {
		metrics.IncExtractionFailed()
		return IngestResult{}, err
	}
	fields, usage := llm.SplitUsage(raw)
	metadata[metadataUsage] = usage

	canonicalData := canonical.Canonicalize(fields)
	var validationError *string
	if err := canonical.Validate(canonicalData); err != nil {
		msg := err.Error()
		validationError = &msg
	}
	scores := s.scorer().Score(canonicalData, validationError == nil)
	status := scores.Status
	if !confidence.IsReviewStatus(status) {
		status = StatusNeedsReview
		scores.Status = status
	}

	now := s.now()
	inv := Invoice{
		ID:               uuid.NewString(),
		UserID:           claim.UserID,
		ExtractedData:    fields,
		CanonicalData:    canonicalData,
		ConfidenceScores: scores,
		Status:           status,
		OriginalFilename: file.Filename,
		Metadata:         metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.Repo.Save(ctx, inv); err != nil {
		return IngestResult{}, fmt.Errorf("%w: save invoice: %w", ErrStorage, err)
	}

	metrics.IncInvoicesIngested()
	telemetry.Info("invoice.ingested", map[string]any{
		"invoice_id": inv.ID,
		"user_id":    inv.UserID,
		"status":     inv.Status,
		"overall":    scores.Overall,
		"valid":      validationError == nil,
	})
	msg := queue.NewMessage(queue.EventInvoiceIngested, inv.ID, inv.Status, now)
	msg.UserID = inv.UserID
	s.publish(ctx, msg)

	return IngestResult{
		Invoice:         inv,
		Valid:           validationError == nil,
		ValidationError: validationError,
		Usage:           usage,
	}, nil
}

func (s *Service) extract(ctx context.Context, doc llm.Document) (map[string]any, error) {
	if s.LLM == nil {
		return nil, &ExtractionError{Message: llm.ErrNotConfigured.Error()}
	}
	start := time.Now()
	raw, err := s.LLM.Extract(ctx, doc)
	metrics.ObserveExtractionDurationMs(float64(time.Since(start).Milliseconds()))
	if err != nil {
		telemetry.Error("invoice.extract_failed", map[string]any{"filename": doc.Filename, "error": err.Error()})
		return nil, &ExtractionError{Message: err.Error()}
	}
	if msg, ok := llm.ErrorMessage(raw); ok {
		telemetry.Error("invoice.extract_rejected", map[string]any{"filename": doc.Filename, "error": msg})
		return nil, &ExtractionError{Message: msg}
	}
	return raw, nil
}

// archive stores the original bytes and, for PDFs, their text layer. The
// text sidecar is best effort.
func (s *Service) archive(ctx context.Context, userID string, file *upload.File, doc llm.Document, metadata map[string]any) error {
	if s.Store == nil {
		return nil
	}
	obj, err := s.Store.Save(ctx, userID, file.Filename, bytes.NewReader(file.Data))
	if err != nil {
		return fmt.Errorf("%w: archive original: %w", ErrStorage, err)
	}
	metadata[metadataStorageKey] = obj.Key
	metadata["content_type"] = obj.ContentType
	metadata["size_bytes"] = obj.Size

	if doc.Text == "" {
		return nil
	}
	key, err := extract.SaveText(ctx, s.Store, obj.Key, doc.Text)
	if err != nil {
		telemetry.Warn("invoice.text_archive_failed", map[string]any{"storage_key": obj.Key, "error": err.Error()})
		return nil
	}
	metadata["text_key"] = key
	return nil
}

// SetStatus moves an invoice to approved or rejected. Re-applying the same
// status is allowed and refreshes the approver and timestamps.
func (s *Service) SetStatus(ctx context.Context, id, status, approver string) error {
	if s == nil || s.Repo == nil {
		return ErrUninitialized
	}
	if status != StatusApproved && status != StatusRejected {
		return ErrInvalidStatus
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	update := StatusUpdate{Status: status, At: s.now()}
	if approver != "" {
		update.ApprovedBy = &approver
	}
	matched, err := s.Repo.UpdateStatus(ctx, id, update)
	if err != nil {
		return fmt.Errorf("%w: update status: %w", ErrStorage, err)
	}
	if matched == 0 {
		return ErrNotFound
	}

	metrics.IncStatusUpdates(status)
	telemetry.Info("invoice.status_updated", map[string]any{
		"invoice_id":  id,
		"status":      status,
		"approved_by": approver,
	})
	msg := queue.NewMessage(queue.EventInvoiceStatusChanged, id, status, update.At)
	msg.ApprovedBy = approver
	s.publish(ctx, msg)
	return nil
}

// List returns a user's invoices newest first. A non-positive limit selects
// DefaultListLimit.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Invoice, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrUninitialized
	}
	invoices, err := s.Repo.FindByUser(ctx, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: list invoices: %w", ErrStorage, err)
	}
	return invoices, nil
}

// ReviewQueue returns up to ReviewQueueLimit invoices awaiting review.
func (s *Service) ReviewQueue(ctx context.Context) ([]Invoice, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrUninitialized
	}
	invoices, err := s.Repo.FindReviewQueue(ctx, ReviewQueueLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: review queue: %w", ErrStorage, err)
	}
	return invoices, nil
}

// Analytics summarizes all stored invoices.
func (s *Service) Analytics(ctx context.Context) (Analytics, error) {
	if s == nil || s.Repo == nil {
		return Analytics{}, ErrUninitialized
	}
	out, err := s.Repo.AggregateAnalytics(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("%w: analytics: %w", ErrStorage, err)
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, msg queue.Message) {
	if s.Queue == nil {
		return
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		telemetry.Warn("invoice.event_publish_failed", map[string]any{
			"invoice_id": msg.InvoiceID,
			"type":       msg.Type,
			"error":      err.Error(),
		})
	}
}

func (s *Service) validator() *upload.Validator {
	if s.Validator == nil {
		return upload.NewValidator(0)
	}
	return s.Validator
}

func (s *Service) scorer() *confidence.Scorer {
	if s.Scorer == nil {
		return confidence.NewScorer()
	}
	return s.Scorer
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
