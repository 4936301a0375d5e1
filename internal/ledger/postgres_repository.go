package ledger

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

// PostgresRepository implements Repository against the accounts,
// ledger_transactions and ledger_entries tables (spec §6 "Persisted state
// layout"), built in a squirrel-builder repository style.
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

func (r *PostgresRepository) BeginTx(ctx context.Context) (Tx, error) {
	return r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
}

// sqlTx recovers the concrete *sql.Tx behind the Tx interface. The only
// production implementation of Tx is the one BeginTx above constructs, so
// this assertion never fails outside of tests that pass their own fake.
func sqlTx(tx Tx) *sql.Tx {
	t, ok := tx.(*sql.Tx)
	if !ok {
		panic("ledger: postgres repository used with a non-*sql.Tx Tx")
	}

	return t
}

func (r *PostgresRepository) GetAccountForUpdate(ctx context.Context, tx Tx, accountID string) (*Account, error) {
	query, args, err := r.builder.Select(accountColumns...).
		From("accounts").
		Where(sq.Eq{"id": accountID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, err
	}

	return scanAccount(sqlTx(tx).QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) GetAccountByKey(ctx context.Context, tenantID, userID string, subtype Subtype, currency string) (*Account, error) {
	query, args, err := r.builder.Select(accountColumns...).
		From("accounts").
		Where(sq.Eq{"tenant_id": tenantID, "user_id": userID, "subtype": string(subtype), "currency": currency}).
		ToSql()
	if err != nil {
		return nil, err
	}

	return scanAccount(r.db.QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	query, args, err := r.builder.Select(accountColumns...).
		From("accounts").
		Where(sq.Eq{"id": accountID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	return scanAccount(r.db.QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) BulkGetAccounts(ctx context.Context, accountIDs []string) ([]Account, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	query, args, err := r.builder.Select(accountColumns...).
		From("accounts").
		Where(sq.Eq{"id": accountIDs}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account

	for rows.Next() {
		acc, err := scanAccountRow(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *acc)
	}

	return out, rows.Err()
}

func (r *PostgresRepository) CreateAccount(ctx context.Context, a *Account) error {
	query, args, err := r.builder.Insert("accounts").
		Columns("id", "tenant_id", "user_id", "subtype", "currency", "balance", "allow_negative", "credit_limit", "status", "created_at").
		Values(a.ID, a.TenantID, a.UserID, string(a.Subtype), a.Currency, a.Balance, a.AllowNegative, a.CreditLimit, string(a.Status), a.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if isUniqueViolation(err) {
		return ErrAccountAlreadyExists
	}

	return err
}

func (r *PostgresRepository) UpdateBalance(ctx context.Context, tx Tx, accountID string, newBalance int64) error {
	query, args, err := r.builder.Update("accounts").
		Set("balance", newBalance).
		Where(sq.Eq{"id": accountID}).
		ToSql()
	if err != nil {
		return err
	}

	_, err = sqlTx(tx).ExecContext(ctx, query, args...)

	return err
}

func (r *PostgresRepository) NextSequence(ctx context.Context, tx Tx, tenantID string) (int64, error) {
	var seq int64

	err := sqlTx(tx).QueryRowContext(ctx, `
		INSERT INTO tenant_sequences (tenant_id, value) VALUES ($1, 1)
		ON CONFLICT (tenant_id) DO UPDATE SET value = tenant_sequences.value + 1
		RETURNING value`, tenantID).Scan(&seq)

	return seq, err
}

func (r *PostgresRepository) GetTransaction(ctx context.Context, txID string) (*Transaction, error) {
	query, args, err := r.builder.Select(txColumns...).
		From("ledger_transactions").
		Where(sq.Eq{"id": txID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	return scanTransaction(r.db.QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) FindTransactionByKey(ctx context.Context, tenantID, externalRef, chargeRole string) (*Transaction, error) {
	query, args, err := r.builder.Select(txColumns...).
		From("ledger_transactions").
		Where(sq.Eq{"tenant_id": tenantID, "external_ref": externalRef, "charge_role": chargeRole}).
		ToSql()
	if err != nil {
		return nil, err
	}

	return scanTransaction(r.db.QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) InsertTransaction(ctx context.Context, tx Tx, t *Transaction) error {
	metadata, err := json.Marshal(t.Metadata)
	if err != nil {
		return err
	}

	query, args, err := r.builder.Insert("ledger_transactions").
		Columns("id", "tenant_id", "type", "from_account_id", "to_account_id", "amount", "currency",
			"external_ref", "charge_role", "parent_tx_id", "metadata", "initiated_by", "status", "created_at", "sequence").
		Values(t.ID, t.TenantID, string(t.Type), t.FromAccountID, t.ToAccountID, t.Amount, t.Currency,
			t.ExternalRef, t.ChargeRole, t.ParentTxID, metadata, t.InitiatedBy, string(t.Status), t.CreatedAt, t.Sequence).
		ToSql()
	if err != nil {
		return err
	}

	_, err = sqlTx(tx).ExecContext(ctx, query, args...)
	if isUniqueViolation(err) {
		return ErrTransactionAlreadyExists
	}

	return err
}

func (r *PostgresRepository) InsertEntry(ctx context.Context, tx Tx, e *Entry) error {
	query, args, err := r.builder.Insert("ledger_entries").
		Columns("id", "transaction_id", "account_id", "direction", "amount", "balance_after", "sequence", "created_at").
		Values(e.ID, e.TransactionID, e.AccountID, string(e.Direction), e.Amount, e.BalanceAfter, e.Sequence, e.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}

	_, err = sqlTx(tx).ExecContext(ctx, query, args...)

	return err
}

func (r *PostgresRepository) ListTransactions(ctx context.Context, tenantID string, cursor *int64, limit int) ([]Transaction, error) {
	b := r.builder.Select(txColumns...).
		From("ledger_transactions").
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("sequence DESC").
		Limit(uint64(limit))

	if cursor != nil {
		b = b.Where(sq.Lt{"sequence": *cursor})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction

	for rows.Next() {
		t, err := scanTransactionRow(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *t)
	}

	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}

	return false
}
