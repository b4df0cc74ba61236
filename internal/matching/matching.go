// Package matching resolves extracted document fields against the ledger.
// Each dimension (customer, policy, invoice) produces an independent match
// score in [0, 1]; a dimension with no extracted fields is not evaluated.
package matching

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cloudwise/docuproc/internal/extraction"
	"github.com/cloudwise/docuproc/internal/reference"
	"github.com/cloudwise/docuproc/pkg/formatting"
)

// Match methods, recorded for operator visibility.
const (
	MethodExactKey   = "exact_key"
	MethodExactEmail = "exact_email"
	MethodFuzzyName  = "fuzzy_name"
	MethodFuzzyKey   = "fuzzy_key"
	MethodAmount     = "amount_epsilon"
)

// partialCap bounds any match not anchored by an exact identifying key.
const partialCap = 0.8

// Match is the outcome for one dimension. TieBreak marks that more than
// one record scored equally and the most recently created one was chosen.
type Match struct {
	Evaluated bool       `json:"evaluated"`
	Score     float64    `json:"score"`
	RecordID  *uuid.UUID `json:"record_id,omitempty"`
	Method    string     `json:"method,omitempty"`
	TieBreak  bool       `json:"tie_break,omitempty"`
}

// Set carries the per-dimension outcomes for one document.
type Set struct {
	Customer Match `json:"customer"`
	Policy   Match `json:"policy"`
	Invoice  Match `json:"invoice"`
}

// Config holds matching tolerances.
type Config struct {
	// AmountEpsilon is the maximum absolute difference for an extracted
	// amount to count as matching an invoice amount.
	AmountEpsilon decimal.Decimal
}

// Engine matches extracted fields against the ledger. Errors are ledger
// read failures and are retryable; an empty ledger is not an error.
type Engine interface {
	Match(ctx context.Context, fields map[extraction.Field]extraction.Candidate) (*Set, error)
}

type engine struct {
	reference reference.System
	config    Config
	logger    *slog.Logger
}

// New creates a matching engine backed by the given ledger.
func New(logger *slog.Logger, ref reference.System, config Config) Engine {
	return &engine{
		reference: ref,
		config:    config,
		logger:    logger.With("system", "matching"),
	}
}

func (e *engine) Match(ctx context.Context, fields map[extraction.Field]extraction.Candidate) (*Set, error) {
	set := &Set{}

	customer, err := e.matchCustomer(ctx, fields)
	if err != nil {
		return nil, err
	}
	set.Customer = customer

	policy, err := e.matchPolicy(ctx, fields)
	if err != nil {
		return nil, err
	}
	set.Policy = policy

	invoice, err := e.matchInvoice(ctx, fields)
	if err != nil {
		return nil, err
	}
	set.Invoice = invoice

	e.logger.Debug(
		"matching complete",
		"customer_score", set.Customer.Score,
		"policy_score", set.Policy.Score,
		"invoice_score", set.Invoice.Score,
	)

	return set, nil
}

func (e *engine) matchCustomer(ctx context.Context, fields map[extraction.Field]extraction.Candidate) (Match, error) {
	email, hasEmail := fields[extraction.FieldCustomerEmail]
	name, hasName := fields[extraction.FieldCustomerName]
	if !hasEmail && !hasName {
		return Match{}, nil
	}

	customers, err := e.reference.Customers(ctx)
	if err != nil {
		return Match{}, fmt.Errorf("load customers: %w", err)
	}

	best := Match{Evaluated: true}
	for _, c := range customers {
		score, method := scoreCustomer(c, email, hasEmail, name, hasName)
		accumulate(&best, score, method, c.ID)
	}

	return best, nil
}

func scoreCustomer(c reference.Customer, email extraction.Candidate, hasEmail bool, name extraction.Candidate, hasName bool) (float64, string) {
	if hasEmail && c.Email != nil {
		for _, v := range email.Values() {
			if normalize(v) == normalize(*c.Email) {
				return 1, MethodExactEmail
			}
		}
	}

	if hasName {
		var bestSim float64
		for _, v := range name.Values() {
			if sim := similarity(v, c.Name); sim > bestSim {
				bestSim = sim
			}
		}
		if bestSim > 0 {
			return min(bestSim, partialCap), MethodFuzzyName
		}
	}

	return 0, ""
}

func (e *engine) matchPolicy(ctx context.Context, fields map[extraction.Field]extraction.Candidate) (Match, error) {
	number, ok := fields[extraction.FieldPolicyNumber]
	if !ok {
		return Match{}, nil
	}

	policies, err := e.reference.Policies(ctx)
	if err != nil {
		return Match{}, fmt.Errorf("load policies: %w", err)
	}

	best := Match{Evaluated: true}
	for _, p := range policies {
		score, method := scoreKey(number, p.PolicyNumber)
		accumulate(&best, score, method, p.ID)
	}

	return best, nil
}

func (e *engine) matchInvoice(ctx context.Context, fields map[extraction.Field]extraction.Candidate) (Match, error) {
	number, hasNumber := fields[extraction.FieldInvoiceNumber]
	amount, hasAmount := fields[extraction.FieldAmount]
	if !hasNumber && !hasAmount {
		return Match{}, nil
	}

	invoices, err := e.reference.Invoices(ctx)
	if err != nil {
		return Match{}, fmt.Errorf("load invoices: %w", err)
	}

	amounts := parseAmounts(amount, hasAmount)

	best := Match{Evaluated: true}
	for _, inv := range invoices {
		score, method := 0.0, ""
		if hasNumber {
			score, method = scoreKey(number, inv.InvoiceNumber)
		}

		if score < 1 {
			if amtScore := e.scoreAmount(amounts, inv.Amount); amtScore > score {
				score, method = amtScore, MethodAmount
			}
		}

		accumulate(&best, score, method, inv.ID)
	}

	return best, nil
}

// scoreKey compares candidate values against an identifying key. An exact
// normalized match is full confidence; anything fuzzy stays under the
// partial cap.
func scoreKey(candidate extraction.Candidate, key string) (float64, string) {
	target := normalizeKey(key)

	var bestSim float64
	for _, v := range candidate.Values() {
		if normalizeKey(v) == target {
			return 1, MethodExactKey
		}
		if sim := similarity(v, key); sim > bestSim {
			bestSim = sim
		}
	}

	if bestSim == 0 {
		return 0, ""
	}
	return min(bestSim, partialCap), MethodFuzzyKey
}

// scoreAmount scores proximity of any extracted amount to the invoice
// amount. Within epsilon the score decays linearly from the partial cap;
// beyond epsilon it contributes nothing.
func (e *engine) scoreAmount(amounts []decimal.Decimal, invoiceAmount decimal.Decimal) float64 {
	eps := e.config.AmountEpsilon
	if eps.IsZero() || eps.IsNegative() {
		return 0
	}

	var best float64
	for _, amt := range amounts {
		diff := amt.Sub(invoiceAmount).Abs()
		if diff.GreaterThan(eps) {
			continue
		}

		ratio, _ := diff.Div(eps).Float64()
		score := partialCap * (1 - ratio)
		if score > best {
			best = score
		}
	}

	return best
}

func parseAmounts(candidate extraction.Candidate, present bool) []decimal.Decimal {
	if !present {
		return nil
	}

	var amounts []decimal.Decimal
	for _, v := range candidate.Values() {
		amt, err := formatting.ParseAmount(v)
		if err != nil {
			continue
		}
		amounts = append(amounts, amt)
	}
	return amounts
}

// accumulate keeps the best-scoring record. Records arrive newest first,
// so on a tie the most recently created record wins and the tie is
// recorded for operator visibility.
func accumulate(best *Match, score float64, method string, id uuid.UUID) {
	if score == 0 {
		return
	}

	if score > best.Score {
		recordID := id
		best.Score = score
		best.Method = method
		best.RecordID = &recordID
		best.TieBreak = false
		return
	}

	if score == best.Score {
		best.TieBreak = true
	}
}
