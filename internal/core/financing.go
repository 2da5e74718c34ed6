package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/JonMunkholm/dealership/internal/notify"
)

// Submission outcomes counted by metrics.
const (
	SubmissionOK     = "submitted"
	SubmissionFailed = "failed"
)

// SubmitFinancing stores a completed application with status "new" and
// announces it. The insert is fatal; notifications are best effort.
func (s *Service) SubmitFinancing(ctx context.Context, app domain.FinancingApplication) (string, error) {
	req := &domain.FinancingRequest{
		Status:    domain.StatusNew,
		Fields:    make(map[string]string, len(app.Fields)),
		Documents: make(map[domain.DocumentType]domain.DocumentRef, len(domain.RequiredDocuments)),
	}
	for k, v := range app.Fields {
		if _, ok := domain.LookupField(k); !ok {
			return "", fmt.Errorf("%w: %s", domain.ErrUnknownField, k)
		}
		req.Fields[k] = v
	}
	for _, d := range domain.RequiredDocuments {
		url := app.Documents[d]
		req.Documents[d] = domain.DocumentRef{URL: url, Provided: url != ""}
	}

	if err := s.financing.CreateFinancing(ctx, req); err != nil {
		s.metrics.FinancingSubmission(SubmissionFailed)
		return "", fmt.Errorf("create financing request: %w", err)
	}
	s.metrics.FinancingSubmission(SubmissionOK)

	slog.Info("financing request submitted", "request_id", req.ID)

	nctx, cancel := notifyContext(ctx)
	defer cancel()
	if err := s.notifier.FinancingSubmitted(nctx, notify.FinancingEvent{
		RequestID:   req.ID,
		FullName:    req.Field("full_name"),
		Email:       req.Field("email"),
		Phone:       req.Field("phone"),
		CarBrand:    req.Field("car_brand"),
		CarModel:    req.Field("car_model"),
		SubmittedAt: req.CreatedAt,
	}); err != nil {
		slog.Warn("financing notification failed", "request_id", req.ID, "error", err)
	}

	return req.ID, nil
}

// ListFinancing returns financing requests, newest first, plus the total count.
func (s *Service) ListFinancing(ctx context.Context, f domain.FinancingFilter) ([]domain.FinancingRequest, int, error) {
	return s.financing.ListFinancing(ctx, f)
}

// GetFinancing returns one financing request.
func (s *Service) GetFinancing(ctx context.Context, id string) (*domain.FinancingRequest, error) {
	return s.financing.GetFinancing(ctx, id)
}

// UpdateFinancingStatus sets the status of a request. Legacy labels are
// normalized first.
func (s *Service) UpdateFinancingStatus(ctx context.Context, id, status string) (domain.RequestStatus, error) {
	st, err := domain.ParseRequestStatus(status)
	if err != nil {
		return "", err
	}
	if err := s.financing.SetFinancingStatus(ctx, id, st); err != nil {
		return "", err
	}
	s.recordAudit(ctx, domain.AuditFinancingStatus, EntityFinancing, id, map[string]any{"status": st})
	return st, nil
}

// DeleteFinancing removes a request. Its documents stay in storage.
func (s *Service) DeleteFinancing(ctx context.Context, id string) error {
	if err := s.financing.DeleteFinancing(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, domain.AuditFinancingDelete, EntityFinancing, id, nil)
	return nil
}
