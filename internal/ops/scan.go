package ops

import (
	"database/sql"
	"encoding/json"
)

var transferColumns = []string{
	"id", "tenant_id", "op_type", "from_user_id", "to_user_id", "amount", "currency",
	"fee_amount", "status", "debit_tx_id", "credit_tx_id", "external_ref", "saga_id",
	"metadata", "created_at", "updated_at",
}

type row interface {
	Scan(dest ...any) error
}

func scanTransfer(r row) (*Transfer, error) {
	return scanTransferRow(r)
}

func scanTransferRow(r row) (*Transfer, error) {
	var (
		t          Transfer
		kind       string
		status     string
		debitTxID  sql.NullString
		creditTxID sql.NullString
		sagaID     sql.NullString
		metadata   []byte
	)

	if err := r.Scan(
		&t.ID, &t.TenantID, &kind, &t.FromUserID, &t.ToUserID, &t.Amount, &t.Currency,
		&t.FeeAmount, &status, &debitTxID, &creditTxID, &t.ExternalRef, &sagaID,
		&metadata, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}

		return nil, err
	}

	t.Kind = Kind(kind)
	t.Status = Status(status)

	if debitTxID.Valid {
		v := debitTxID.String
		t.DebitTxID = &v
	}

	if creditTxID.Valid {
		v := creditTxID.String
		t.CreditTxID = &v
	}

	if sagaID.Valid {
		t.SagaID = sagaID.String
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return nil, err
		}
	}

	return &t, nil
}
