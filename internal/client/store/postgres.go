package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"pawnshop/internal/client/models"
	"pawnshop/internal/platform/database"
	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	"pawnshop/pkg/platform/sentinel"
	txcontext "pawnshop/pkg/platform/tx"
)

const (
	passportConstraint = "clients_passport_number_key"
	clientColumns      = `id, first_name, last_name, middle_name, passport_number, passport_series,
		passport_issue_date, created_at, updated_at`
)

var orderColumns = map[string]string{
	"firstName":      "first_name",
	"lastName":       "last_name",
	"passportNumber": "passport_number",
	"createdAt":      "created_at",
}

// PostgresStore persists clients in PostgreSQL. The unique constraint on
// passport_number and the pawn_transactions foreign key are the authorities
// for duplicates and referenced deletes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Client) error {
	_, err := txcontext.Execer(ctx, s.db).ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.FirstName, c.LastName, c.MiddleName, c.PassportNumber, c.PassportSeries,
		c.PassportIssueDate, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, passportConstraint) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, clientID id.ClientID) (*models.Client, error) {
	row := txcontext.Execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`, clientID)
	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find client by id: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) FindByPassportNumber(ctx context.Context, number string) (*models.Client, error) {
	row := txcontext.Execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE passport_number = $1`, number)
	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find client by passport: %w", err)
	}
	return c, nil
}

// FindByIDs batch-loads clients for transaction projections.
func (s *PostgresStore) FindByIDs(ctx context.Context, ids []id.ClientID) (map[id.ClientID]*models.Client, error) {
	out := make(map[id.ClientID]*models.Client, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, clientID := range ids {
		keys[i] = clientID.String()
	}
	rows, err := txcontext.Execer(ctx, s.db).QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = ANY($1::uuid[])`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("find clients by ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

func (s *PostgresStore) List(ctx context.Context, p query.Params) (query.Page[*models.Client], error) {
	where := ""
	var args []any
	if search := p.Filter("search"); search != "" {
		args = append(args, query.LikePattern(search))
		where = `WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR middle_name ILIKE $1
			OR passport_number ILIKE $1 OR passport_series ILIKE $1`
	}

	exec := txcontext.Execer(ctx, s.db)
	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients `+where, args...).Scan(&total); err != nil {
		return query.Page[*models.Client]{}, fmt.Errorf("count clients: %w", err)
	}

	args = append(args, p.Limit, p.Offset())
	q := fmt.Sprintf(`SELECT %s FROM clients %s %s LIMIT $%d OFFSET $%d`,
		clientColumns, where, query.OrderClause(p, orderColumns, "id"), len(args)-1, len(args))
	rows, err := exec.QueryContext(ctx, q, args...)
	if err != nil {
		return query.Page[*models.Client]{}, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	items := make([]*models.Client, 0, p.Limit)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return query.Page[*models.Client]{}, fmt.Errorf("scan client: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return query.Page[*models.Client]{}, fmt.Errorf("iterate clients: %w", err)
	}
	return query.NewPage(items, total, p), nil
}

func (s *PostgresStore) Update(ctx context.Context, c *models.Client) error {
	res, err := txcontext.Execer(ctx, s.db).ExecContext(ctx, `
		UPDATE clients
		SET first_name = $2, last_name = $3, middle_name = $4, passport_number = $5,
			passport_series = $6, passport_issue_date = $7, updated_at = $8
		WHERE id = $1`,
		c.ID, c.FirstName, c.LastName, c.MiddleName, c.PassportNumber, c.PassportSeries,
		c.PassportIssueDate, c.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, passportConstraint) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update client: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) Delete(ctx context.Context, clientID id.ClientID) error {
	res, err := txcontext.Execer(ctx, s.db).ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, clientID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return sentinel.ErrReferenced
		}
		return fmt.Errorf("delete client: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClient(row scanner) (*models.Client, error) {
	var c models.Client
	if err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.MiddleName, &c.PassportNumber, &c.PassportSeries,
		&c.PassportIssueDate, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.PassportIssueDate = c.PassportIssueDate.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}
