package reference

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cloudwise/docuproc/pkg/pagination"
	"github.com/cloudwise/docuproc/pkg/query"
	"github.com/cloudwise/docuproc/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a ledger repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "reference"),
		pagination: pagination,
	}
}

func (r *repo) Customers(ctx context.Context) ([]Customer, error) {
	q, args := query.NewBuilder(customerProjection, referenceSort).Build()
	return repository.QueryMany(ctx, r.db, q, args, scanCustomer)
}

func (r *repo) Policies(ctx context.Context) ([]Policy, error) {
	q, args := query.NewBuilder(policyProjection, referenceSort).Build()
	return repository.QueryMany(ctx, r.db, q, args, scanPolicy)
}

func (r *repo) Invoices(ctx context.Context) ([]Invoice, error) {
	q, args := query.NewBuilder(invoiceProjection, referenceSort).Build()
	return repository.QueryMany(ctx, r.db, q, args, scanInvoice)
}

func (r *repo) Transactions(ctx context.Context) ([]Transaction, error) {
	q, args := query.NewBuilder(transactionProjection, referenceSort).Build()
	return repository.QueryMany(ctx, r.db, q, args, scanTransaction)
}

func (r *repo) ListCustomers(
	ctx context.Context,
	page pagination.PageRequest,
) (*pagination.PageResult[Customer], error) {
	return listPage(ctx, r, customerProjection, page, scanCustomer, "Name", "Email")
}

func (r *repo) ListPolicies(
	ctx context.Context,
	page pagination.PageRequest,
) (*pagination.PageResult[Policy], error) {
	return listPage(ctx, r, policyProjection, page, scanPolicy, "PolicyNumber", "PolicyType")
}

func (r *repo) ListInvoices(
	ctx context.Context,
	page pagination.PageRequest,
) (*pagination.PageResult[Invoice], error) {
	return listPage(ctx, r, invoiceProjection, page, scanInvoice, "InvoiceNumber", "Status")
}

func (r *repo) ListTransactions(
	ctx context.Context,
	page pagination.PageRequest,
) (*pagination.PageResult[Transaction], error) {
	return listPage(ctx, r, transactionProjection, page, scanTransaction, "TransactionID", "PaymentMethod")
}

func listPage[T any](
	ctx context.Context,
	r *repo,
	projection *query.ProjectionMap,
	page pagination.PageRequest,
	scan repository.ScanFunc[T],
	searchFields ...string,
) (*pagination.PageResult[T], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, referenceSort).
		WhereSearch(page.Search, searchFields...)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count reference records: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	records, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scan)
	if err != nil {
		return nil, fmt.Errorf("query reference records: %w", err)
	}

	result := pagination.NewPageResult(records, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) InsertCustomer(ctx context.Context, c Customer) (*Customer, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	q := `
		INSERT INTO customers(id, name, email, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, phone, created_at`

	created, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Customer, error) {
		return repository.QueryOne(ctx, tx, q, []any{c.ID, c.Name, c.Email, c.Phone}, scanCustomer)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &created, nil
}

func (r *repo) InsertPolicy(ctx context.Context, p Policy) (*Policy, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	q := `
		INSERT INTO policies(id, policy_number, customer_id, policy_type, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, policy_number, customer_id, policy_type, status, created_at`

	created, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Policy, error) {
		return repository.QueryOne(
			ctx, tx, q,
			[]any{p.ID, p.PolicyNumber, p.CustomerID, p.PolicyType, p.Status},
			scanPolicy,
		)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &created, nil
}

func (r *repo) InsertInvoice(ctx context.Context, i Invoice) (*Invoice, error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}

	q := `
		INSERT INTO invoices(id, invoice_number, customer_id, policy_id, amount, invoice_date, due_date, status, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, invoice_number, customer_id, policy_id, amount, invoice_date, due_date, status, description, created_at`

	created, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Invoice, error) {
		return repository.QueryOne(
			ctx, tx, q,
			[]any{i.ID, i.InvoiceNumber, i.CustomerID, i.PolicyID, i.Amount, i.InvoiceDate, i.DueDate, i.Status, i.Description},
			scanInvoice,
		)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &created, nil
}

func (r *repo) InsertTransaction(ctx context.Context, t Transaction) (*Transaction, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	q := `
		INSERT INTO transactions(id, transaction_id, invoice_id, customer_id, amount, transaction_date, type, payment_method, status, reference_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, transaction_id, invoice_id, customer_id, amount, transaction_date, type, payment_method, status, reference_number, created_at`

	created, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Transaction, error) {
		return repository.QueryOne(
			ctx, tx, q,
			[]any{t.ID, t.TransactionID, t.InvoiceID, t.CustomerID, t.Amount, t.TransactionDate, t.Type, t.PaymentMethod, t.Status, t.ReferenceNumber},
			scanTransaction,
		)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &created, nil
}
