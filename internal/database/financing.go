package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/jackc/pgx/v5"
)

// documentColumns maps each document type to its url and flag columns.
var documentColumns = []struct {
	Doc  domain.DocumentType
	URL  string
	Flag string
}{
	{domain.DocResidenceProof, "residence_proof_url", "has_residence_proof"},
	{domain.DocIncomeProof, "income_proof_url", "has_income_proof"},
	{domain.DocDriverLicense, "driver_license_url", "has_driver_license"},
}

// financingSelectColumns lists the select columns in scan order:
// fixed columns, registry fields, then document url/flag pairs.
func financingSelectColumns() string {
	cols := []string{"id", "status", "created_at", "updated_at"}
	for _, f := range domain.FinancingFields {
		cols = append(cols, quoteIdentifier(f.Key))
	}
	for _, d := range documentColumns {
		cols = append(cols, d.URL, d.Flag)
	}
	return strings.Join(cols, ", ")
}

// financingInsert builds the insert statement and args for req.
// Empty field values are stored as NULL.
func financingInsert(req *domain.FinancingRequest) (string, []any) {
	cols := []string{"status"}
	args := []any{string(req.Status)}

	for _, f := range domain.FinancingFields {
		cols = append(cols, quoteIdentifier(f.Key))
		args = append(args, nullable(req.Field(f.Key)))
	}
	for _, d := range documentColumns {
		ref := req.Documents[d.Doc]
		cols = append(cols, d.URL, d.Flag)
		args = append(args, nullable(ref.URL), ref.Provided)
	}

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO financing_requests (%s) VALUES (%s) RETURNING id, created_at, updated_at",
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return query, args
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanFinancing(row pgx.Row) (*domain.FinancingRequest, error) {
	var req domain.FinancingRequest

	values := make([]*string, len(domain.FinancingFields))
	urls := make([]*string, len(documentColumns))
	flags := make([]bool, len(documentColumns))

	dest := []any{&req.ID, &req.Status, &req.CreatedAt, &req.UpdatedAt}
	for i := range values {
		dest = append(dest, &values[i])
	}
	for i := range documentColumns {
		dest = append(dest, &urls[i], &flags[i])
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	req.Fields = make(map[string]string, len(values))
	for i, f := range domain.FinancingFields {
		if values[i] != nil {
			req.Fields[f.Key] = *values[i]
		}
	}
	req.Documents = make(map[domain.DocumentType]domain.DocumentRef, len(documentColumns))
	for i, d := range documentColumns {
		ref := domain.DocumentRef{Provided: flags[i]}
		if urls[i] != nil {
			ref.URL = *urls[i]
		}
		req.Documents[d.Doc] = ref
	}
	return &req, nil
}

// CreateFinancing inserts a financing request in a single statement.
func (s *Store) CreateFinancing(ctx context.Context, req *domain.FinancingRequest) error {
	if req.Status == "" {
		req.Status = domain.StatusNew
	}
	query, args := financingInsert(req)
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return fmt.Errorf("insert financing request: %w", err)
	}
	return nil
}

// GetFinancing loads one financing request.
func (s *Store) GetFinancing(ctx context.Context, id string) (*domain.FinancingRequest, error) {
	req, err := scanFinancing(s.pool.QueryRow(ctx,
		"SELECT "+financingSelectColumns()+" FROM financing_requests WHERE id = $1", id))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrFinancingNotFound
		}
		return nil, notFound(err, domain.ErrFinancingNotFound)
	}
	return req, nil
}

// ListFinancing returns one page of requests, newest first, plus the total.
func (s *Store) ListFinancing(ctx context.Context, f domain.FinancingFilter) ([]domain.FinancingRequest, int, error) {
	wb := newWhereBuilder()
	wb.Add("status", string(f.Status))
	wb.AddSearch(f.Query, "full_name", "email", "cpf", "car_brand", "car_model")
	where, args := wb.Build()

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM financing_requests"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count financing requests: %w", err)
	}

	query := "SELECT " + financingSelectColumns() + " FROM financing_requests" + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", wb.NextArgIndex(), wb.NextArgIndex()+1)
	args = append(args, f.Limit(), f.Offset())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list financing requests: %w", err)
	}
	defer rows.Close()

	out := make([]domain.FinancingRequest, 0)
	for rows.Next() {
		req, err := scanFinancing(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// SetFinancingStatus updates the review status.
func (s *Store) SetFinancingStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	return s.execOne(ctx, domain.ErrFinancingNotFound,
		"UPDATE financing_requests SET status = $2, updated_at = NOW() WHERE id = $1", id, status)
}

// DeleteFinancing removes a financing request.
func (s *Store) DeleteFinancing(ctx context.Context, id string) error {
	return s.execOne(ctx, domain.ErrFinancingNotFound, "DELETE FROM financing_requests WHERE id = $1", id)
}
