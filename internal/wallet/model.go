// Package wallet implements WAL: the eventually-consistent, read-optimized
// projection of a user's balances. WAL never authorizes a posting; it only
// mirrors what LDG has already committed.
package wallet

import "time"

// Category mirrors the account subtype a wallet's main/bonus legs reference.
type Category string

const (
	CategoryStandard Category = "standard"
)

// Status is the closed set of wallet lifecycle states.
type Status string

const (
	StatusActive Status = "active"
)

// Wallet is the projected view of a user's balances in one currency.
type Wallet struct {
	ID                  string
	TenantID            string
	UserID              string
	Currency            string
	Category            Category
	MainAccountID       string
	BonusAccountID      string
	Balance             int64
	BonusBalance        int64
	LockedBalance       int64
	AllowNegative       bool
	CreditLimit         *int64
	LifetimeDeposits    int64
	LifetimeWithdrawals int64
	LifetimeFees        int64
	Status              Status
	UpdatedAt           time.Time
}

// AvailableBalance is balance minus whatever is currently locked against it.
func (w Wallet) AvailableBalance() int64 {
	return w.Balance - w.LockedBalance
}
