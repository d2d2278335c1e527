package statement

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/Sangvierr/My-Lab/pkg/models"
)

// Field is a canonical FinanceSummary amount.
type Field string

const (
	FieldRevenue         Field = "revenue"
	FieldOperatingProfit Field = "operating_profit"
	FieldNetIncome       Field = "net_income"
)

//go:embed accounts.yaml
var defaultAccountsYAML []byte

// AccountTable maps DART account labels to canonical fields.
type AccountTable struct {
	synonyms map[Field][]string
	byLabel  map[string]Field
}

// DefaultAccountTable returns the embedded label table.
func DefaultAccountTable() *AccountTable {
	t, err := ParseAccountTable(defaultAccountsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded accounts.yaml: %v", err))
	}
	return t
}

// LoadAccountTable reads a label table from a YAML file. An empty path
// returns the embedded default.
func LoadAccountTable(path string) (*AccountTable, error) {
	if path == "" {
		return DefaultAccountTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read account table %s: %w", path, err)
	}
	return ParseAccountTable(data)
}

// ParseAccountTable parses the YAML form `field: [label, ...]`.
func ParseAccountTable(data []byte) (*AccountTable, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse account table: %w", err)
	}

	t := &AccountTable{
		synonyms: make(map[Field][]string),
		byLabel:  make(map[string]Field),
	}
	for key, labels := range raw {
		field := Field(key)
		switch field {
		case FieldRevenue, FieldOperatingProfit, FieldNetIncome:
		default:
			return nil, fmt.Errorf("unknown canonical field %q in account table", key)
		}
		for _, label := range labels {
			label = normalizeLabel(label)
			if label == "" {
				continue
			}
			if prev, dup := t.byLabel[label]; dup && prev != field {
				return nil, fmt.Errorf("label %q mapped to both %s and %s", label, prev, field)
			}
			t.byLabel[label] = field
			t.synonyms[field] = append(t.synonyms[field], label)
		}
	}
	return t, nil
}

// Lookup returns the canonical field for a DART account label.
func (t *AccountTable) Lookup(accountName string) (Field, bool) {
	f, ok := t.byLabel[normalizeLabel(accountName)]
	return f, ok
}

// Synonyms lists the labels mapped to a field.
func (t *AccountTable) Synonyms(f Field) []string {
	out := append([]string(nil), t.synonyms[f]...)
	sort.Strings(out)
	return out
}

// Assign writes an amount into the matching FinanceSummary field.
func Assign(s *models.FinanceSummary, f Field, amount int64) {
	switch f {
	case FieldRevenue:
		s.Revenue = amount
	case FieldOperatingProfit:
		s.OperatingProfit = amount
	case FieldNetIncome:
		s.NetIncome = amount
	}
}

func normalizeLabel(label string) string {
	return strings.Join(strings.Fields(label), " ")
}
