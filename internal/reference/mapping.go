package reference

import (
	"github.com/cloudwise/docuproc/pkg/query"
	"github.com/cloudwise/docuproc/pkg/repository"
)

var customerProjection = query.
	NewProjectionMap("public", "customers", "c").
	Project("id", "ID").
	Project("name", "Name").
	Project("email", "Email").
	Project("phone", "Phone").
	Project("created_at", "CreatedAt")

var policyProjection = query.
	NewProjectionMap("public", "policies", "p").
	Project("id", "ID").
	Project("policy_number", "PolicyNumber").
	Project("customer_id", "CustomerID").
	Project("policy_type", "PolicyType").
	Project("status", "Status").
	Project("created_at", "CreatedAt")

var invoiceProjection = query.
	NewProjectionMap("public", "invoices", "i").
	Project("id", "ID").
	Project("invoice_number", "InvoiceNumber").
	Project("customer_id", "CustomerID").
	Project("policy_id", "PolicyID").
	Project("amount", "Amount").
	Project("invoice_date", "InvoiceDate").
	Project("due_date", "DueDate").
	Project("status", "Status").
	Project("description", "Description").
	Project("created_at", "CreatedAt")

var transactionProjection = query.
	NewProjectionMap("public", "transactions", "t").
	Project("id", "ID").
	Project("transaction_id", "TransactionID").
	Project("invoice_id", "InvoiceID").
	Project("customer_id", "CustomerID").
	Project("amount", "Amount").
	Project("transaction_date", "TransactionDate").
	Project("type", "Type").
	Project("payment_method", "PaymentMethod").
	Project("status", "Status").
	Project("reference_number", "ReferenceNumber").
	Project("created_at", "CreatedAt")

// Ledger reads prefer the newest record so that score tie-breaks are
// deterministic without a second query.
var referenceSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

func scanCustomer(s repository.Scanner) (Customer, error) {
	var c Customer
	err := s.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt)
	return c, err
}

func scanPolicy(s repository.Scanner) (Policy, error) {
	var p Policy
	err := s.Scan(&p.ID, &p.PolicyNumber, &p.CustomerID, &p.PolicyType, &p.Status, &p.CreatedAt)
	return p, err
}

func scanInvoice(s repository.Scanner) (Invoice, error) {
	var i Invoice
	err := s.Scan(
		&i.ID,
		&i.InvoiceNumber,
		&i.CustomerID,
		&i.PolicyID,
		&i.Amount,
		&i.InvoiceDate,
		&i.DueDate,
		&i.Status,
		&i.Description,
		&i.CreatedAt,
	)
	return i, err
}

func scanTransaction(s repository.Scanner) (Transaction, error) {
	var t Transaction
	err := s.Scan(
		&t.ID,
		&t.TransactionID,
		&t.InvoiceID,
		&t.CustomerID,
		&t.Amount,
		&t.TransactionDate,
		&t.Type,
		&t.PaymentMethod,
		&t.Status,
		&t.ReferenceNumber,
		&t.CreatedAt,
	)
	return t, err
}
