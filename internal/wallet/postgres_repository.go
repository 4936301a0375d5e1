package wallet

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/bxcodec/dbresolver/v2"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// PostgresRepository implements Repository against the wallets table (spec
// §6 "Persisted state layout"), grounded on the same squirrel-builder style
// as ledger.PostgresRepository.
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

func (r *PostgresRepository) GetByKey(ctx context.Context, tenantID, userID, currency string, category Category) (*Wallet, error) {
	query, args, err := r.builder.Select(walletColumns...).
		From("wallets").
		Where(sq.Eq{"tenant_id": tenantID, "user_id": userID, "currency": currency, "category": string(category)}).
		ToSql()
	if err != nil {
		return nil, err
	}

	return scanWallet(r.db.QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) Get(ctx context.Context, walletID string) (*Wallet, error) {
	query, args, err := r.builder.Select(walletColumns...).
		From("wallets").
		Where(sq.Eq{"id": walletID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	return scanWallet(r.db.QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) GetByAccountID(ctx context.Context, accountID string) (*Wallet, error) {
	query, args, err := r.builder.Select(walletColumns...).
		From("wallets").
		Where(sq.Or{
			sq.Eq{"main_account_id": accountID},
			sq.Eq{"bonus_account_id": accountID},
		}).
		ToSql()
	if err != nil {
		return nil, err
	}

	return scanWallet(r.db.QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) BulkGet(ctx context.Context, walletIDs []string) ([]Wallet, error) {
	if len(walletIDs) == 0 {
		return nil, nil
	}

	query, args, err := r.builder.Select(walletColumns...).
		From("wallets").
		Where(sq.Eq{"id": walletIDs}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Wallet

	for rows.Next() {
		w, err := scanWalletRow(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *w)
	}

	return out, rows.Err()
}

func (r *PostgresRepository) ListByUser(ctx context.Context, tenantID, userID string) ([]Wallet, error) {
	query, args, err := r.builder.Select(walletColumns...).
		From("wallets").
		Where(sq.Eq{"tenant_id": tenantID, "user_id": userID}).
		OrderBy("currency", "category").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Wallet

	for rows.Next() {
		w, err := scanWalletRow(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *w)
	}

	return out, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, w *Wallet) error {
	query, args, err := r.builder.Insert("wallets").
		Columns("id", "tenant_id", "user_id", "currency", "category", "main_account_id", "bonus_account_id",
			"balance", "bonus_balance", "locked_balance", "allow_negative", "credit_limit",
			"lifetime_deposits", "lifetime_withdrawals", "lifetime_fees", "status", "updated_at").
		Values(w.ID, w.TenantID, w.UserID, w.Currency, string(w.Category), w.MainAccountID, w.BonusAccountID,
			w.Balance, w.BonusBalance, w.LockedBalance, w.AllowNegative, w.CreditLimit,
			w.LifetimeDeposits, w.LifetimeWithdrawals, w.LifetimeFees, string(w.Status), w.UpdatedAt).
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

func (r *PostgresRepository) UpdateBalances(ctx context.Context, walletID string, balance, bonusBalance int64) error {
	query, args, err := r.builder.Update("wallets").
		Set("balance", balance).
		Set("bonus_balance", bonusBalance).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": walletID}).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)

	return err
}

func (r *PostgresRepository) IncrementLifetimeCounters(ctx context.Context, walletID string, deposits, withdrawals, fees int64) error {
	query, args, err := r.builder.Update("wallets").
		Set("lifetime_deposits", sq.Expr("lifetime_deposits + ?", deposits)).
		Set("lifetime_withdrawals", sq.Expr("lifetime_withdrawals + ?", withdrawals)).
		Set("lifetime_fees", sq.Expr("lifetime_fees + ?", fees)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": walletID}).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)

	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}

	return false
}
