package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"contact-sync/backend/internal/apperr"
	"contact-sync/backend/internal/repository"
	"contact-sync/backend/pkg/models"
)

// RecordService serves paginated, searchable listings of a tenant's records.
type RecordService struct {
	store    repository.Repository
	pageSize int
}

// NewRecordService creates a RecordService.
func NewRecordService(store repository.Repository) *RecordService {
	return &RecordService{store: store, pageSize: models.DefaultPageSize}
}

// ListContacts returns one page of the tenant's contacts. cursor is the id of
// the last contact of the previous page, or empty for the first page.
func (s *RecordService) ListContacts(ctx context.Context, tenant models.Tenant, search, cursor string) (*models.Page[models.Contact], error) {
	q, err := s.query(tenant, search, cursor)
	if err != nil {
		return nil, err
	}
	return s.store.ListContacts(ctx, q)
}

// ListEmployees returns one page of the tenant's employees.
func (s *RecordService) ListEmployees(ctx context.Context, tenant models.Tenant, search, cursor string) (*models.Page[models.Employee], error) {
	q, err := s.query(tenant, search, cursor)
	if err != nil {
		return nil, err
	}
	return s.store.ListEmployees(ctx, q)
}

func (s *RecordService) query(tenant models.Tenant, search, cursor string) (models.ListQuery, error) {
	q := models.ListQuery{
		CustomerID: tenant.ID,
		Search:     strings.TrimSpace(search),
		Limit:      s.pageSize,
	}
	if cursor = strings.TrimSpace(cursor); cursor != "" {
		id, err := uuid.Parse(cursor)
		if err != nil {
			return q, apperr.Wrap(apperr.KindValidation, "services.List", err, "Invalid cursor")
		}
		q.Cursor = &id
	}
	return q, nil
}
