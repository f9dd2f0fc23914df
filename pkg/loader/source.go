package loader

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

// Source produces normalised records from some input.
type Source interface {
	// Name identifies the input in logs and status events.
	Name() string

	// Load reads every record. It should respect ctx for cancellation.
	Load(ctx context.Context) ([]model.Record, error)
}

// Schema tells a source which column holds the identifier and which
// columns must be present.
type Schema struct {
	IDField  string            `koanf:"id_field"`
	Required []string          `koanf:"required"`
	Aliases  map[string]string `koanf:"aliases"`
}

// DefaultSchema covers the two payroll exports seen in practice:
// Employee_ID,Name,Mobile,Bank_Acc and employee_id,name,mobile,address,bank_account.
func DefaultSchema() Schema {
	return Schema{
		IDField:  "employee_id",
		Required: []string{"mobile", "bank_account"},
		Aliases: map[string]string{
			"bank_acc":      "bank_account",
			"bank_acct":     "bank_account",
			"account":       "bank_account",
			"phone":         "mobile",
			"mobile_number": "mobile",
			"phone_number":  "mobile",
			"emp_id":        "employee_id",
			"id":            "employee_id",
		},
	}
}

// RequireAttributes returns a copy of s that requires exactly attrs, the
// linking attributes an analysis will group records by.
func (s Schema) RequireAttributes(attrs []string) Schema {
	out := s
	out.Required = make([]string, 0, len(attrs))
	for _, a := range attrs {
		out.Required = append(out.Required, NormalizeHeader(a))
	}
	return out
}

// NormalizeHeader lower-cases a column name and turns spaces and dashes
// into underscores, so "Bank Acc" and "bank-acc" both become "bank_acc".
func NormalizeHeader(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	h = strings.ToLower(h)
	h = strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(h)
	for strings.Contains(h, "__") {
		h = strings.ReplaceAll(h, "__", "_")
	}
	return h
}

// Canonical maps a raw header onto its attribute name.
func (s Schema) Canonical(h string) string {
	n := NormalizeHeader(h)
	if n == s.idField() {
		return n
	}
	if alias, ok := s.Aliases[n]; ok {
		return alias
	}
	return n
}

func (s Schema) idField() string {
	if s.IDField == "" {
		return "employee_id"
	}
	return NormalizeHeader(s.IDField)
}

// checkColumns fails when the id column or any required column is absent.
func (s Schema) checkColumns(source string, present map[string]bool) error {
	var missing []string
	if !present[s.idField()] {
		missing = append(missing, s.idField())
	}
	for _, r := range s.Required {
		if n := NormalizeHeader(r); !present[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s is missing required column(s): %s", model.ErrInvalidInput, source, strings.Join(missing, ", "))
}
