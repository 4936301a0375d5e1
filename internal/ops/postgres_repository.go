package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/bxcodec/dbresolver/v2"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// PostgresRepository implements Repository against the transfers table
// (spec §6 "Persisted state layout"), grounded on the same squirrel-builder
// style as ledger.PostgresRepository and wallet.PostgresRepository.
type PostgresRepository struct {
	db      dbresolver.DB
	builder sq.StatementBuilderType
}

// NewPostgresRepository builds a PostgresRepository over an already
// connected resolver.
func NewPostgresRepository(db dbresolver.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *PostgresRepository) Create(ctx context.Context, t *Transfer) error {
	metadata, err := json.Marshal(t.Metadata)
	if err != nil {
		return err
	}

	query, args, err := r.builder.Insert("transfers").
		Columns("id", "tenant_id", "op_type", "from_user_id", "to_user_id", "amount", "currency",
			"fee_amount", "status", "debit_tx_id", "credit_tx_id", "external_ref", "saga_id",
			"metadata", "created_at", "updated_at").
		Values(t.ID, t.TenantID, string(t.Kind), t.FromUserID, t.ToUserID, t.Amount, t.Currency,
			t.FeeAmount, string(t.Status), t.DebitTxID, t.CreditTxID, t.ExternalRef, sqlNullString(t.SagaID),
			metadata, t.CreatedAt, t.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}

	return err
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Transfer, error) {
	query, args, err := r.builder.Select(transferColumns...).
		From("transfers").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	return scanTransfer(r.db.QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) GetByExternalRef(ctx context.Context, tenantID, externalRef string) (*Transfer, error) {
	query, args, err := r.builder.Select(transferColumns...).
		From("transfers").
		Where(sq.Eq{"tenant_id": tenantID, "external_ref": externalRef}).
		ToSql()
	if err != nil {
		return nil, err
	}

	return scanTransfer(r.db.QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status, debitTxID, creditTxID *string) error {
	builder := r.builder.Update("transfers").
		Set("status", string(status)).
		Set("updated_at", sq.Expr("now()"))

	if debitTxID != nil {
		builder = builder.Set("debit_tx_id", *debitTxID)
	}

	if creditTxID != nil {
		builder = builder.Set("credit_tx_id", *creditTxID)
	}

	query, args, err := builder.Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)

	return err
}

func (r *PostgresRepository) ExistsNonTerminal(ctx context.Context, tenantID, idempotencyKey string) (bool, error) {
	query, args, err := r.builder.Select("1").
		From("transfers").
		Where(sq.Eq{"tenant_id": tenantID, "external_ref": idempotencyKey}).
		Where(sq.NotEq{"status": []string{string(StatusCompleted), string(StatusFailed), string(StatusCancelled)}}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, err
	}

	var dummy int

	err = r.db.QueryRowContext(ctx, query, args...).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}

	return false
}

func sqlNullString(s string) any {
	if s == "" {
		return nil
	}

	return s
}
