package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"pawnshop/internal/category/models"
	"pawnshop/internal/platform/database"
	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	"pawnshop/pkg/platform/sentinel"
	txcontext "pawnshop/pkg/platform/tx"
)

const (
	nameConstraint  = "item_categories_category_name_key"
	categoryColumns = `id, category_name, notes, created_by, updated_by, created_at, updated_at`
)

var orderColumns = map[string]string{
	"categoryName": "category_name",
	"createdAt":    "created_at",
}

// PostgresStore persists item categories in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Category) error {
	_, err := txcontext.Execer(ctx, s.db).ExecContext(ctx, `
		INSERT INTO item_categories (`+categoryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.CategoryName, c.Notes, c.CreatedBy, c.UpdatedBy, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, nameConstraint) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, categoryID id.CategoryID) (*models.Category, error) {
	row := txcontext.Execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM item_categories WHERE id = $1`, categoryID)
	return findOne(row, "find category by id")
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.Category, error) {
	row := txcontext.Execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM item_categories WHERE category_name = $1`, name)
	return findOne(row, "find category by name")
}

// FindByIDs batch-loads categories for transaction projections.
func (s *PostgresStore) FindByIDs(ctx context.Context, ids []id.CategoryID) (map[id.CategoryID]*models.Category, error) {
	out := make(map[id.CategoryID]*models.Category, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, categoryID := range ids {
		keys[i] = categoryID.String()
	}
	rows, err := txcontext.Execer(ctx, s.db).QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM item_categories WHERE id = ANY($1::uuid[])`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("find categories by ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

func (s *PostgresStore) List(ctx context.Context, p query.Params) (query.Page[*models.Category], error) {
	where := ""
	var args []any
	if search := p.Filter("search"); search != "" {
		args = append(args, query.LikePattern(search))
		where = `WHERE category_name ILIKE $1 OR notes ILIKE $1`
	}

	exec := txcontext.Execer(ctx, s.db)
	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM item_categories `+where, args...).Scan(&total); err != nil {
		return query.Page[*models.Category]{}, fmt.Errorf("count categories: %w", err)
	}

	args = append(args, p.Limit, p.Offset())
	q := fmt.Sprintf(`SELECT %s FROM item_categories %s %s LIMIT $%d OFFSET $%d`,
		categoryColumns, where, query.OrderClause(p, orderColumns, "id"), len(args)-1, len(args))
	rows, err := exec.QueryContext(ctx, q, args...)
	if err != nil {
		return query.Page[*models.Category]{}, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	items := make([]*models.Category, 0, p.Limit)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return query.Page[*models.Category]{}, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return query.Page[*models.Category]{}, fmt.Errorf("iterate categories: %w", err)
	}
	return query.NewPage(items, total, p), nil
}

func (s *PostgresStore) Update(ctx context.Context, c *models.Category) error {
	res, err := txcontext.Execer(ctx, s.db).ExecContext(ctx, `
		UPDATE item_categories
		SET category_name = $2, notes = $3, updated_by = $4, updated_at = $5
		WHERE id = $1`,
		c.ID, c.CategoryName, c.Notes, c.UpdatedBy, c.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, nameConstraint) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update category: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) Delete(ctx context.Context, categoryID id.CategoryID) error {
	res, err := txcontext.Execer(ctx, s.db).ExecContext(ctx, `DELETE FROM item_categories WHERE id = $1`, categoryID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return sentinel.ErrReferenced
		}
		return fmt.Errorf("delete category: %w", err)
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

func findOne(row scanner, op string) (*models.Category, error) {
	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func scanCategory(row scanner) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.CategoryName, &c.Notes, &c.CreatedBy, &c.UpdatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}
