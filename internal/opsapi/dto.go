package opsapi

// moneyRequest is the payload shared by CreateDeposit/Withdrawal/Transfer
// (spec §6 "Operations API"). tenant is never read from the body: it comes
// from the caller's validated bearer token so one tenant can never move
// money on another's behalf by forging a field.
type moneyRequest struct {
	FromUserID  string         `json:"fromUserId" validate:"required"`
	ToUserID    string         `json:"toUserId" validate:"required"`
	Amount      int64          `json:"amount" validate:"required,gt=0"`
	Currency    string         `json:"currency" validate:"required,len=3"`
	Method      string         `json:"method"`
	ExternalRef string         `json:"externalRef"`
	Metadata    map[string]any `json:"metadata"`
}

// resultResponse is the wire shape of every Operations API response (spec
// §6: "{ success, transfer, debitTx, creditTx, sagaId, errors,
// executionTimeMs }").
type resultResponse struct {
	Success         bool              `json:"success"`
	Transfer        *transferResponse `json:"transfer,omitempty"`
	DebitTxID       string            `json:"debitTx,omitempty"`
	CreditTxID      string            `json:"creditTx,omitempty"`
	SagaID          string            `json:"sagaId,omitempty"`
	Errors          []string          `json:"errors,omitempty"`
	ExecutionTimeMs int64             `json:"executionTimeMs"`
}

type transferResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	FromUserID  string `json:"fromUserId"`
	ToUserID    string `json:"toUserId"`
	Amount      int64  `json:"amount"`
	FeeAmount   int64  `json:"feeAmount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	ExternalRef string `json:"externalRef"`
}

type walletBalanceResponse struct {
	WalletID            string `json:"walletId"`
	UserID              string `json:"userId"`
	Currency            string `json:"currency"`
	Balance             int64  `json:"balance"`
	BonusBalance        int64  `json:"bonusBalance"`
	AvailableBalance    int64  `json:"availableBalance"`
	LifetimeDeposits    int64  `json:"lifetimeDeposits"`
	LifetimeWithdrawals int64  `json:"lifetimeWithdrawals"`
	LifetimeFees        int64  `json:"lifetimeFees"`
	Status              string `json:"status"`
}

// bulkWalletBalancesRequest carries the wallet ids for the batched read
// (SPEC_FULL §3 "Bulk account/wallet lookups").
type bulkWalletBalancesRequest struct {
	WalletIDs []string `json:"walletIds" validate:"required,min=1,max=100,dive,required"`
}
