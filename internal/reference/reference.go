// Package reference implements read access to the reconciliation ledger:
// customers, policies, invoices, and transactions. The pipeline treats these
// records as immutable reference data; writes originate from external
// collaborators (ingestion jobs, the seed tool), never from workers.
package reference

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer is a ledger customer record.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Policy is a ledger policy record. CustomerID is nullable: orphaned
// policies are valid.
type Policy struct {
	ID           uuid.UUID  `json:"id"`
	PolicyNumber string     `json:"policy_number"`
	CustomerID   *uuid.UUID `json:"customer_id"`
	PolicyType   string     `json:"policy_type"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Invoice is a ledger invoice record. Amount is fixed-point with two decimals.
type Invoice struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    *uuid.UUID      `json:"customer_id"`
	PolicyID      *uuid.UUID      `json:"policy_id"`
	Amount        decimal.Decimal `json:"amount"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	DueDate       *time.Time      `json:"due_date"`
	Status        string          `json:"status"`
	Description   *string         `json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Transaction is a ledger payment/refund/adjustment record.
type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	TransactionID   string          `json:"transaction_id"`
	InvoiceID       *uuid.UUID      `json:"invoice_id"`
	CustomerID      *uuid.UUID      `json:"customer_id"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate time.Time       `json:"transaction_date"`
	Type            string          `json:"type"`
	PaymentMethod   string          `json:"payment_method"`
	Status          string          `json:"status"`
	ReferenceNumber *string         `json:"reference_number"`
	CreatedAt       time.Time       `json:"created_at"`
}
