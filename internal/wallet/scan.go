package wallet

import "database/sql"

var walletColumns = []string{
	"id", "tenant_id", "user_id", "currency", "category", "main_account_id", "bonus_account_id",
	"balance", "bonus_balance", "locked_balance", "allow_negative", "credit_limit",
	"lifetime_deposits", "lifetime_withdrawals", "lifetime_fees", "status", "updated_at",
}

type row interface {
	Scan(dest ...any) error
}

func scanWallet(r row) (*Wallet, error) {
	var w Wallet

	var category, status string

	err := r.Scan(&w.ID, &w.TenantID, &w.UserID, &w.Currency, &category, &w.MainAccountID, &w.BonusAccountID,
		&w.Balance, &w.BonusBalance, &w.LockedBalance, &w.AllowNegative, &w.CreditLimit,
		&w.LifetimeDeposits, &w.LifetimeWithdrawals, &w.LifetimeFees, &status, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	w.Category = Category(category)
	w.Status = Status(status)

	return &w, nil
}

func scanWalletRow(r row) (*Wallet, error) {
	return scanWallet(r)
}
