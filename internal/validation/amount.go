package validation

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmount bounds parsed amounts so absurd digit runs cannot overflow.
var maxAmount = decimal.NewFromInt(1<<31 - 1)

// AmountSet is an immutable set of whole-unit amounts a payment may have.
// A nil *AmountSet means no restriction is configured.
type AmountSet struct {
	members map[int]struct{}
}

// NewAmountSet returns a set holding the given amounts.
func NewAmountSet(amounts ...int) *AmountSet {
	members := make(map[int]struct{}, len(amounts))
	for _, a := range amounts {
		members[a] = struct{}{}
	}
	return &AmountSet{members: members}
}

// ParseAmountSet parses a comma separated list such as "10,20,30". An empty
// list yields a nil set.
func ParseAmountSet(list string) (*AmountSet, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	var amounts []int
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("parsing accepted amount %q: %w", field, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("accepted amount %d is negative", n)
		}
		amounts = append(amounts, n)
	}
	if len(amounts) == 0 {
		return nil, nil
	}
	return NewAmountSet(amounts...), nil
}

// Configured reports whether a restriction is in place.
func (s *AmountSet) Configured() bool {
	return s != nil
}

// Allows reports whether amount passes the set. Everything passes a nil set.
func (s *AmountSet) Allows(amount int) bool {
	if s == nil {
		return true
	}
	_, ok := s.members[amount]
	return ok
}

// Values returns the members in ascending order.
func (s *AmountSet) Values() []int {
	if s == nil {
		return nil
	}
	values := make([]int, 0, len(s.members))
	for a := range s.members {
		values = append(values, a)
	}
	sort.Ints(values)
	return values
}

const number = `(\d+[.,]\d{2})`

var amountRules = []rule[int]{
	{name: "valor", tier: TierPriority, pattern: regexp.MustCompile(`(?i)valor\s*[:\s]*r\$\s*` + number), parse: wholeUnits},
	{name: "total", tier: TierPriority, pattern: regexp.MustCompile(`(?i)total\s*[:\s]*r\$\s*` + number), parse: wholeUnits},
	{name: "valor-annotation", tier: TierPriority, pattern: regexp.MustCompile(`(?i)r\$\s*` + number + `\s*\(valor`), parse: wholeUnits},
	{name: "pagamento", tier: TierPriority, pattern: regexp.MustCompile(`(?i)pagamento\s*[:\s]*r\$\s*` + number), parse: wholeUnits},
	{name: "valor-do-pagamento", tier: TierPriority, pattern: regexp.MustCompile(`(?i)valor\s*do\s*pagamento\s*[:\s]*r\$\s*` + number), parse: wholeUnits},

	{name: "currency", tier: TierGeneral, pattern: regexp.MustCompile(`(?i)r\$\s*` + number), parse: wholeUnits},
	{name: "reais", tier: TierGeneral, pattern: regexp.MustCompile(`(?i)` + number + `\s*reais`), parse: wholeUnits},
	{name: "currency-rs", tier: TierGeneral, pattern: regexp.MustCompile(`(?i)rs\s*` + number), parse: wholeUnits},
}

// wholeUnits parses a two-decimal number written with either separator and
// drops the cents without rounding.
func wholeUnits(groups []string) (int, bool) {
	d, err := decimal.NewFromString(strings.Replace(groups[1], ",", ".", 1))
	if err != nil {
		return 0, false
	}
	whole := d.Truncate(0)
	if whole.IsNegative() || whole.GreaterThan(maxAmount) {
		return 0, false
	}
	return int(whole.IntPart()), true
}

// ExtractAmount returns the first amount in text allowed by accepted, trying
// every priority rule before any general one.
func ExtractAmount(text string, accepted *AmountSet) (int, bool) {
	var (
		found int
		ok    bool
	)
	matchRules(amountRules, text, func(r rule[int], amount int) bool {
		if !accepted.Allows(amount) {
			slog.Debug("amount candidate not accepted", "rule", r.name, "tier", r.tier, "amount", amount)
			return true
		}
		slog.Debug("amount found", "rule", r.name, "tier", r.tier, "amount", amount)
		found, ok = amount, true
		return false
	})
	return found, ok
}
