package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"contact-sync/backend/internal/apperr"
	"contact-sync/backend/pkg/models"
)

const (
	contactColumns  = "id, customer_id, contact_id, name, email, phone, source, created_at, updated_at"
	employeeColumns = "id, customer_id, employee_id, name, title, email, phone, dependents, created_at, updated_at"
)

// PostgresStore is a PostgreSQL implementation of the Repository interface.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Ping checks that the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return apperr.Wrap(apperr.KindStore, "Ping", s.db.Ping(ctx), "database unavailable")
}

// UpsertContact writes a contact keyed by (customer_id, contact_id).
func (s *PostgresStore) UpsertContact(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "UpsertContact", err, "failed to generate id")
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO contacts (id, customer_id, contact_id, name, email, phone, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (customer_id, contact_id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			source = EXCLUDED.source,
			updated_at = now()
		RETURNING `+contactColumns,
		id, c.CustomerID, c.ContactID, c.Name, c.Email, c.Phone, c.Source,
	)
	out, err := scanContact(row)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "UpsertContact", err, "failed to save contact")
	}
	return out, nil
}

// UpsertContactByExternalID updates every contact with c.ContactID, or inserts
// c when there is none. Zero CreatedAt/UpdatedAt fall back to now.
func (s *PostgresStore) UpsertContactByExternalID(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "UpsertContactByExternalID", err, "failed to generate id")
	}

	var out *models.Contact
	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			UPDATE contacts SET
				name = $2, email = $3, phone = $4, source = $5,
				updated_at = COALESCE($6::timestamptz, now())
			WHERE contact_id = $1
			RETURNING `+contactColumns,
			c.ContactID, c.Name, c.Email, c.Phone, c.Source, nullableTime(c.UpdatedAt),
		)
		if err != nil {
			return err
		}
		updated, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Contact, error) {
			return scanContact(row)
		})
		if err != nil {
			return err
		}
		if len(updated) > 0 {
			out = updated[0]
			return nil
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO contacts (id, customer_id, contact_id, name, email, phone, source, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8::timestamptz, now()), COALESCE($9::timestamptz, now()))
			ON CONFLICT (customer_id, contact_id) DO UPDATE SET
				name = EXCLUDED.name,
				email = EXCLUDED.email,
				phone = EXCLUDED.phone,
				source = EXCLUDED.source,
				updated_at = EXCLUDED.updated_at
			RETURNING `+contactColumns,
			id, c.CustomerID, c.ContactID, c.Name, c.Email, c.Phone, c.Source,
			nullableTime(c.CreatedAt), nullableTime(c.UpdatedAt),
		)
		out, err = scanContact(row)
		return err
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "UpsertContactByExternalID", err, "failed to save contact")
	}
	return out, nil
}

// DeleteContactsByExternalID deletes all contacts with the given contact_id.
func (s *PostgresStore) DeleteContactsByExternalID(ctx context.Context, contactID string) (int64, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM contacts WHERE contact_id = $1", contactID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStore, "DeleteContactsByExternalID", err, "failed to delete contact")
	}
	return tag.RowsAffected(), nil
}

// ListContacts returns one page of contacts for q.CustomerID.
func (s *PostgresStore) ListContacts(ctx context.Context, q models.ListQuery) (*models.Page[models.Contact], error) {
	sql, args, limit := listQuery("contacts", contactColumns, q)
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "ListContacts", err, "failed to fetch contacts")
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Contact, error) {
		c, err := scanContact(row)
		if err != nil {
			return models.Contact{}, err
		}
		return *c, nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "ListContacts", err, "failed to fetch contacts")
	}
	return paginate(items, limit, func(c models.Contact) uuid.UUID { return c.ID }), nil
}

// UpsertEmployee writes an employee keyed by (customer_id, employee_id). An
// empty Dependents is stored as given; the column default only applies to
// inserts that omit it.
func (s *PostgresStore) UpsertEmployee(ctx context.Context, e *models.Employee) (*models.Employee, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "UpsertEmployee", err, "failed to generate id")
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO employees (id, customer_id, employee_id, name, title, email, phone, dependents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (customer_id, employee_id) DO UPDATE SET
			name = EXCLUDED.name,
			title = EXCLUDED.title,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			dependents = EXCLUDED.dependents,
			updated_at = now()
		RETURNING `+employeeColumns,
		id, e.CustomerID, e.EmployeeID, e.Name, e.Title, e.Email, e.Phone, e.Dependents,
	)
	out, err := scanEmployee(row)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "UpsertEmployee", err, "failed to save employee")
	}
	return out, nil
}

// ListEmployees returns one page of employees for q.CustomerID.
func (s *PostgresStore) ListEmployees(ctx context.Context, q models.ListQuery) (*models.Page[models.Employee], error) {
	sql, args, limit := listQuery("employees", employeeColumns, q)
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "ListEmployees", err, "failed to fetch employees")
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Employee, error) {
		e, err := scanEmployee(row)
		if err != nil {
			return models.Employee{}, err
		}
		return *e, nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "ListEmployees", err, "failed to fetch employees")
	}
	return paginate(items, limit, func(e models.Employee) uuid.UUID { return e.ID }), nil
}

// listQuery builds the page query. It fetches limit+1 rows so the caller can
// tell whether another page exists.
func listQuery(table, columns string, q models.ListQuery) (string, []any, int) {
	limit := q.Limit
	if limit <= 0 {
		limit = models.DefaultPageSize
	}

	var sb strings.Builder
	args := []any{q.CustomerID}
	fmt.Fprintf(&sb, "SELECT %s FROM %s WHERE customer_id = $1", columns, table)

	if search := strings.TrimSpace(q.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		n := len(args)
		fmt.Fprintf(&sb, " AND (name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", n, n, n)
	}
	if q.Cursor != nil {
		args = append(args, *q.Cursor)
		fmt.Fprintf(&sb, " AND id < $%d", len(args))
	}

	args = append(args, limit+1)
	fmt.Fprintf(&sb, " ORDER BY id DESC LIMIT $%d", len(args))
	return sb.String(), args, limit
}

func paginate[T any](items []T, limit int, idOf func(T) uuid.UUID) *models.Page[T] {
	page := &models.Page[T]{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		next := idOf(page.Items[limit-1])
		page.NextCursor = &next
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func scanContact(row pgx.Row) (*models.Contact, error) {
	var c models.Contact
	err := row.Scan(&c.ID, &c.CustomerID, &c.ContactID, &c.Name, &c.Email, &c.Phone, &c.Source, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanEmployee(row pgx.Row) (*models.Employee, error) {
	var e models.Employee
	err := row.Scan(&e.ID, &e.CustomerID, &e.EmployeeID, &e.Name, &e.Title, &e.Email, &e.Phone, &e.Dependents, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
