package ledger

import (
	"database/sql"
	"encoding/json"
)

var accountColumns = []string{
	"id", "tenant_id", "user_id", "subtype", "currency", "balance", "allow_negative", "credit_limit", "status", "created_at",
}

var txColumns = []string{
	"id", "tenant_id", "type", "from_account_id", "to_account_id", "amount", "currency",
	"external_ref", "charge_role", "parent_tx_id", "metadata", "initiated_by", "status", "created_at", "sequence",
}

// row is the subset of *sql.Row / *sql.Rows that Scan needs.
type row interface {
	Scan(dest ...any) error
}

func scanAccount(r row) (*Account, error) {
	var a Account

	var subtype, status string

	err := r.Scan(&a.ID, &a.TenantID, &a.UserID, &subtype, &a.Currency, &a.Balance, &a.AllowNegative, &a.CreditLimit, &status, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	a.Subtype = Subtype(subtype)
	a.Status = AccountStatus(status)

	return &a, nil
}

func scanAccountRow(r row) (*Account, error) {
	return scanAccount(r)
}

func scanTransaction(r row) (*Transaction, error) {
	var t Transaction

	var typ, status string

	var metadata []byte

	err := r.Scan(&t.ID, &t.TenantID, &typ, &t.FromAccountID, &t.ToAccountID, &t.Amount, &t.Currency,
		&t.ExternalRef, &t.ChargeRole, &t.ParentTxID, &metadata, &t.InitiatedBy, &status, &t.CreatedAt, &t.Sequence)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	t.Type = TransactionType(typ)
	t.Status = TransactionStatus(status)

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return nil, err
		}
	}

	return &t, nil
}

func scanTransactionRow(r row) (*Transaction, error) {
	return scanTransaction(r)
}
