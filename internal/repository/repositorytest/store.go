// Package repositorytest provides an in-memory repository.Repository for
// tests of the layers above the store.
package repositorytest

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"contact-sync/backend/internal/apperr"
	"contact-sync/backend/pkg/models"
)

// Store mirrors the Postgres store's key and ordering rules in memory.
type Store struct {
	mu        sync.Mutex
	contacts  map[uuid.UUID]models.Contact
	employees map[uuid.UUID]models.Employee

	// Err, when set, is returned by every operation as a store error.
	Err error
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		contacts:  make(map[uuid.UUID]models.Contact),
		employees: make(map[uuid.UUID]models.Employee),
	}
}

func (s *Store) fail(op string) error {
	if s.Err != nil {
		return apperr.Wrap(apperr.KindStore, op, s.Err, "store failure")
	}
	return nil
}

// Ping implements repository.Repository.
func (s *Store) Ping(context.Context) error { return s.fail("Ping") }

// UpsertContact implements repository.ContactStore.
func (s *Store) UpsertContact(_ context.Context, c *models.Contact) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpsertContact"); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for id, existing := range s.contacts {
		if existing.CustomerID == c.CustomerID && existing.ContactID == c.ContactID {
			out := *c
			out.ID, out.CreatedAt, out.UpdatedAt = id, existing.CreatedAt, now
			s.contacts[id] = out
			return &out, nil
		}
	}
	out := *c
	out.ID = uuid.Must(uuid.NewV7())
	out.CreatedAt, out.UpdatedAt = now, now
	s.contacts[out.ID] = out
	return &out, nil
}

// UpsertContactByExternalID implements repository.ContactStore.
func (s *Store) UpsertContactByExternalID(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	s.mu.Lock()
	if err := s.fail("UpsertContactByExternalID"); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	var out *models.Contact
	for id, existing := range s.contacts {
		if existing.ContactID != c.ContactID {
			continue
		}
		updated := *c
		updated.ID, updated.CustomerID, updated.CreatedAt = id, existing.CustomerID, existing.CreatedAt
		if updated.UpdatedAt.IsZero() {
			updated.UpdatedAt = time.Now().UTC()
		}
		s.contacts[id] = updated
		if out == nil {
			out = &updated
		}
	}
	s.mu.Unlock()
	if out != nil {
		return out, nil
	}

	created, err := s.UpsertContact(ctx, c)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !c.CreatedAt.IsZero() {
		created.CreatedAt = c.CreatedAt
	}
	if !c.UpdatedAt.IsZero() {
		created.UpdatedAt = c.UpdatedAt
	}
	s.contacts[created.ID] = *created
	return created, nil
}

// DeleteContactsByExternalID implements repository.ContactStore.
func (s *Store) DeleteContactsByExternalID(_ context.Context, contactID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteContactsByExternalID"); err != nil {
		return 0, err
	}
	var n int64
	for id, c := range s.contacts {
		if c.ContactID == contactID {
			delete(s.contacts, id)
			n++
		}
	}
	return n, nil
}

// ListContacts implements repository.ContactStore.
func (s *Store) ListContacts(_ context.Context, q models.ListQuery) (*models.Page[models.Contact], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListContacts"); err != nil {
		return nil, err
	}
	var items []models.Contact
	for _, c := range s.contacts {
		if c.CustomerID == q.CustomerID && matches(q, c.ID, c.Name, c.Email, c.Phone) {
			items = append(items, c)
		}
	}
	return page(items, q, func(c models.Contact) uuid.UUID { return c.ID }), nil
}

// UpsertEmployee implements repository.EmployeeStore.
func (s *Store) UpsertEmployee(_ context.Context, e *models.Employee) (*models.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpsertEmployee"); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for id, existing := range s.employees {
		if existing.CustomerID == e.CustomerID && existing.EmployeeID == e.EmployeeID {
			out := *e
			out.ID, out.CreatedAt, out.UpdatedAt = id, existing.CreatedAt, now
			s.employees[id] = out
			return &out, nil
		}
	}
	out := *e
	out.ID = uuid.Must(uuid.NewV7())
	out.CreatedAt, out.UpdatedAt = now, now
	s.employees[out.ID] = out
	return &out, nil
}

// ListEmployees implements repository.EmployeeStore.
func (s *Store) ListEmployees(_ context.Context, q models.ListQuery) (*models.Page[models.Employee], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListEmployees"); err != nil {
		return nil, err
	}
	var items []models.Employee
	for _, e := range s.employees {
		if e.CustomerID == q.CustomerID && matches(q, e.ID, e.Name, e.Email, e.Phone) {
			items = append(items, e)
		}
	}
	return page(items, q, func(e models.Employee) uuid.UUID { return e.ID }), nil
}

// Contacts returns every stored contact regardless of tenant.
func (s *Store) Contacts() []models.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		out = append(out, c)
	}
	return out
}

// Employees returns every stored employee regardless of tenant.
func (s *Store) Employees() []models.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		out = append(out, e)
	}
	return out
}

func matches(q models.ListQuery, id uuid.UUID, fields ...string) bool {
	if q.Cursor != nil && bytes.Compare(id[:], q.Cursor[:]) >= 0 {
		return false
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))
	if search == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func page[T any](items []T, q models.ListQuery, idOf func(T) uuid.UUID) *models.Page[T] {
	sort.Slice(items, func(i, j int) bool {
		a, b := idOf(items[i]), idOf(items[j])
		return bytes.Compare(a[:], b[:]) > 0
	})
	limit := q.Limit
	if limit <= 0 {
		limit = models.DefaultPageSize
	}
	p := &models.Page[T]{Items: items}
	if len(items) > limit {
		p.Items = items[:limit]
		next := idOf(p.Items[limit-1])
		p.NextCursor = &next
	}
	if p.Items == nil {
		p.Items = []T{}
	}
	return p
}
