package extraction

import (
	"regexp"
	"sort"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	dateSepRe    = regexp.MustCompile(`\b(\d{1,2})[\/\-\.](\d{1,2})[\/\-\.](\d{2,4})\b`)

	emailRe  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	amountRe = regexp.MustCompile(`[$€£]\s*\d+(?:,\d{3})*(?:\.\d{2})?`)
	dateRe   = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)

	invoiceLabeledRe = regexp.MustCompile(`(?i)\binvoice\s*(?:number|no\.?|#)?\s*:?\s*([A-Z]{0,3}-?\d{4,10})\b`)
	invoicePrefixRe  = regexp.MustCompile(`\bINV[-\s]?\d{4,10}\b`)

	policyLabeledRe = regexp.MustCompile(`(?i)\bpolicy\s*(?:number|no\.?|#)?\s*:?\s*([A-Z]{1,3}\d{6,10})\b`)
	policyAlphaRe   = regexp.MustCompile(`\b[A-Z]{2,3}\d{6,10}\b`)
	policyShortRe   = regexp.MustCompile(`\b[A-Z]\d{7,9}\b`)

	nameLabeledRe = regexp.MustCompile(`\bName\s*:\s*([A-Z][a-z]+(?: [A-Z][a-z]+)*)`)
	nameDearRe    = regexp.MustCompile(`\bDear\s+([A-Z][a-z]+(?: [A-Z][a-z]+)*)`)
	nameTitleRe   = regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Dr)\.?\s+([A-Z][a-z]+(?: [A-Z][a-z]+)?)`)
)

// NormalizeText collapses whitespace and normalizes date separators so the
// field patterns below see a consistent shape regardless of source format.
func NormalizeText(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = dateSepRe.ReplaceAllString(text, "$1/$2/$3")
	return strings.TrimSpace(text)
}

// ExtractFields recovers candidate field values from normalized text.
// Each field's confidence reflects how the candidate was found: labeled
// values (e.g. "Invoice #12345") rank above bare pattern matches.
func ExtractFields(text string) map[Field]Candidate {
	cs := newCandidateSet()

	for _, m := range emailRe.FindAllString(text, -1) {
		cs.add(FieldCustomerEmail, strings.ToLower(m), 0.9)
	}

	for _, m := range amountRe.FindAllString(text, -1) {
		cs.add(FieldAmount, strings.TrimSpace(m), 0.8)
	}

	for _, m := range dateRe.FindAllString(text, -1) {
		cs.add(FieldDate, m, 0.6)
	}

	for _, m := range invoiceLabeledRe.FindAllStringSubmatch(text, -1) {
		cs.add(FieldInvoiceNumber, strings.ToUpper(m[1]), 0.9)
	}
	for _, m := range invoicePrefixRe.FindAllString(text, -1) {
		cs.add(FieldInvoiceNumber, strings.ToUpper(m), 0.8)
	}

	for _, m := range policyLabeledRe.FindAllStringSubmatch(text, -1) {
		cs.add(FieldPolicyNumber, strings.ToUpper(m[1]), 0.9)
	}
	for _, m := range policyAlphaRe.FindAllString(text, -1) {
		cs.add(FieldPolicyNumber, m, 0.7)
	}
	for _, m := range policyShortRe.FindAllString(text, -1) {
		cs.add(FieldPolicyNumber, m, 0.6)
	}

	for _, m := range nameLabeledRe.FindAllStringSubmatch(text, -1) {
		cs.add(FieldCustomerName, m[1], 0.8)
	}
	for _, m := range nameDearRe.FindAllStringSubmatch(text, -1) {
		cs.add(FieldCustomerName, m[1], 0.7)
	}
	for _, m := range nameTitleRe.FindAllStringSubmatch(text, -1) {
		cs.add(FieldCustomerName, m[1], 0.6)
	}

	return cs.fields()
}

type scoredValue struct {
	value      string
	confidence float64
	order      int
}

type candidateSet struct {
	values map[Field][]scoredValue
	next   int
}

func newCandidateSet() *candidateSet {
	return &candidateSet{values: make(map[Field][]scoredValue)}
}

func (cs *candidateSet) add(field Field, value string, confidence float64) {
	if value == "" {
		return
	}

	for i, existing := range cs.values[field] {
		if existing.value == value {
			if confidence > existing.confidence {
				cs.values[field][i].confidence = confidence
			}
			return
		}
	}

	cs.values[field] = append(cs.values[field], scoredValue{
		value:      value,
		confidence: confidence,
		order:      cs.next,
	})
	cs.next++
}

func (cs *candidateSet) fields() map[Field]Candidate {
	fields := make(map[Field]Candidate, len(cs.values))

	for field, scored := range cs.values {
		sort.SliceStable(scored, func(i, j int) bool {
			if scored[i].confidence != scored[j].confidence {
				return scored[i].confidence > scored[j].confidence
			}
			return scored[i].order < scored[j].order
		})

		c := Candidate{
			Value:      scored[0].value,
			Confidence: scored[0].confidence,
		}
		for _, alt := range scored[1:] {
			c.Alternates = append(c.Alternates, alt.value)
		}
		fields[field] = c
	}

	return fields
}
