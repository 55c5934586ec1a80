package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pawnshop/internal/pawn/models"
	"pawnshop/internal/platform/database"
	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	"pawnshop/pkg/platform/sentinel"
	txcontext "pawnshop/pkg/platform/tx"
)

const transactionColumns = `id, category_id, client_id, item_description, pawn_date, return_date,
	amount, commission, price_history, created_at, updated_at`

var orderColumns = map[string]string{
	"pawnDate":   "pawn_date",
	"returnDate": "return_date",
	"amount":     "amount",
	"createdAt":  "created_at",
}

// PostgresStore persists pawn transactions in PostgreSQL with the price
// history embedded as a JSONB array. Foreign keys to clients and
// item_categories reject dangling references.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, t *models.Transaction) error {
	history, err := json.Marshal(t.PriceHistory)
	if err != nil {
		return fmt.Errorf("marshal price history: %w", err)
	}
	_, err = txcontext.Execer(ctx, s.db).ExecContext(ctx, `
		INSERT INTO pawn_transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.CategoryID, t.ClientID, t.ItemDescription, t.PawnDate, nullTime(t.ReturnDate),
		t.Amount, t.Commission, string(history), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return sentinel.ErrDanglingReference
		}
		return fmt.Errorf("insert pawn transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	return s.findOne(ctx, `SELECT `+transactionColumns+` FROM pawn_transactions WHERE id = $1`, txID)
}

// FindByIDForUpdate locks the row until the surrounding transaction ends.
// Outside a transaction the lock is released immediately.
func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	return s.findOne(ctx, `SELECT `+transactionColumns+` FROM pawn_transactions WHERE id = $1 FOR UPDATE`, txID)
}

func (s *PostgresStore) findOne(ctx context.Context, q string, txID id.TransactionID) (*models.Transaction, error) {
	t, err := scanTransaction(txcontext.Execer(ctx, s.db).QueryRowContext(ctx, q, txID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find pawn transaction: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) List(ctx context.Context, f models.Filter, p query.Params) (query.Page[*models.Transaction], error) {
	var conds []string
	var args []any
	where := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ClientID != nil {
		where("client_id = $%d", *f.ClientID)
	}
	if f.CategoryID != nil {
		where("category_id = $%d", *f.CategoryID)
	}
	if f.From != nil {
		where("pawn_date >= $%d", *f.From)
	}
	if f.To != nil {
		where("pawn_date <= $%d", *f.To)
	}
	clause := ""
	if len(conds) > 0 {
		clause = "WHERE " + strings.Join(conds, " AND ")
	}

	exec := txcontext.Execer(ctx, s.db)
	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM pawn_transactions `+clause, args...).Scan(&total); err != nil {
		return query.Page[*models.Transaction]{}, fmt.Errorf("count pawn transactions: %w", err)
	}

	args = append(args, p.Limit, p.Offset())
	q := fmt.Sprintf(`SELECT %s FROM pawn_transactions %s %s LIMIT $%d OFFSET $%d`,
		transactionColumns, clause, query.OrderClause(p, orderColumns, "id"), len(args)-1, len(args))
	rows, err := exec.QueryContext(ctx, q, args...)
	if err != nil {
		return query.Page[*models.Transaction]{}, fmt.Errorf("list pawn transactions: %w", err)
	}
	defer rows.Close()

	items := make([]*models.Transaction, 0, p.Limit)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return query.Page[*models.Transaction]{}, fmt.Errorf("scan pawn transaction: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return query.Page[*models.Transaction]{}, fmt.Errorf("iterate pawn transactions: %w", err)
	}
	return query.NewPage(items, total, p), nil
}

func (s *PostgresStore) Update(ctx context.Context, t *models.Transaction) error {
	history, err := json.Marshal(t.PriceHistory)
	if err != nil {
		return fmt.Errorf("marshal price history: %w", err)
	}
	res, err := txcontext.Execer(ctx, s.db).ExecContext(ctx, `
		UPDATE pawn_transactions
		SET category_id = $2, client_id = $3, item_description = $4, pawn_date = $5, return_date = $6,
			amount = $7, commission = $8, price_history = $9, updated_at = $10
		WHERE id = $1`,
		t.ID, t.CategoryID, t.ClientID, t.ItemDescription, t.PawnDate, nullTime(t.ReturnDate),
		t.Amount, t.Commission, string(history), t.UpdatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return sentinel.ErrDanglingReference
		}
		return fmt.Errorf("update pawn transaction: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) Delete(ctx context.Context, txID id.TransactionID) error {
	res, err := txcontext.Execer(ctx, s.db).ExecContext(ctx, `DELETE FROM pawn_transactions WHERE id = $1`, txID)
	if err != nil {
		return fmt.Errorf("delete pawn transaction: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) CountByClient(ctx context.Context, clientID id.ClientID) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM pawn_transactions WHERE client_id = $1`, clientID)
}

func (s *PostgresStore) CountByCategory(ctx context.Context, categoryID id.CategoryID) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM pawn_transactions WHERE category_id = $1`, categoryID)
}

func (s *PostgresStore) count(ctx context.Context, q string, arg any) (int, error) {
	var n int
	if err := txcontext.Execer(ctx, s.db).QueryRowContext(ctx, q, arg).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pawn transactions: %w", err)
	}
	return n, nil
}

// PostgresTx runs ledger read-modify-write sequences in one SQL transaction.
type PostgresTx struct {
	db *sql.DB
}

func NewPostgresTx(db *sql.DB) *PostgresTx {
	return &PostgresTx{db: db}
}

func (t *PostgresTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return txcontext.Run(ctx, t.db, fn)
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

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*models.Transaction, error) {
	var (
		t          models.Transaction
		returnDate sql.NullTime
		history    []byte
	)
	if err := row.Scan(
		&t.ID, &t.CategoryID, &t.ClientID, &t.ItemDescription, &t.PawnDate, &returnDate,
		&t.Amount, &t.Commission, &history, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(history, &t.PriceHistory); err != nil {
		return nil, fmt.Errorf("decode price history: %w", err)
	}
	if returnDate.Valid {
		rd := returnDate.Time.UTC()
		t.ReturnDate = &rd
	}
	for i := range t.PriceHistory {
		t.PriceHistory[i].Date = t.PriceHistory[i].Date.UTC()
	}
	t.PawnDate = t.PawnDate.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}
