package reference

import (
	"log/slog"
	"net/http"

	"github.com/cloudwise/docuproc/pkg/handlers"
	"github.com/cloudwise/docuproc/pkg/pagination"
	"github.com/cloudwise/docuproc/pkg/routes"
)

// Handler provides read-only HTTP endpoints for the reconciliation ledger.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and
// pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "reference"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for ledger endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/reference",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/customers", Handler: h.Customers},
			{Method: "GET", Pattern: "/policies", Handler: h.Policies},
			{Method: "GET", Pattern: "/invoices", Handler: h.Invoices},
			{Method: "GET", Pattern: "/transactions", Handler: h.Transactions},
		},
	}
}

// Customers returns a paginated list of ledger customers.
func (h *Handler) Customers(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.ListCustomers(r.Context(), page)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Policies returns a paginated list of ledger policies.
func (h *Handler) Policies(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.ListPolicies(r.Context(), page)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Invoices returns a paginated list of ledger invoices.
func (h *Handler) Invoices(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.ListInvoices(r.Context(), page)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Transactions returns a paginated list of ledger transactions.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.ListTransactions(r.Context(), page)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
