package reference

import (
	"context"

	"github.com/cloudwise/docuproc/pkg/pagination"
)

// System defines the public contract for ledger access.
//
// The unpaginated methods feed the matching engine and return every record,
// newest first. The List methods back the operator API. The Insert methods
// exist for external loaders (cmd/seed); the pipeline never calls them.
type System interface {
	Customers(ctx context.Context) ([]Customer, error)
	Policies(ctx context.Context) ([]Policy, error)
	Invoices(ctx context.Context) ([]Invoice, error)
	Transactions(ctx context.Context) ([]Transaction, error)

	ListCustomers(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Customer], error)
	ListPolicies(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Policy], error)
	ListInvoices(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Invoice], error)
	ListTransactions(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Transaction], error)

	InsertCustomer(ctx context.Context, c Customer) (*Customer, error)
	InsertPolicy(ctx context.Context, p Policy) (*Policy, error)
	InsertInvoice(ctx context.Context, i Invoice) (*Invoice, error)
	InsertTransaction(ctx context.Context, t Transaction) (*Transaction, error)
}
