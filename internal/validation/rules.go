package validation

import "regexp"

// Tier orders rules by confidence. Rules of the zero tier are tried first.
type Tier int

const (
	TierPriority Tier = iota
	TierGeneral
)

func (t Tier) String() string {
	switch t {
	case TierPriority:
		return "priority"
	case TierGeneral:
		return "general"
	default:
		return "unknown"
	}
}

// rule turns the submatches of one pattern into a candidate value.
// parse reports false when a match does not hold a usable value.
type rule[T any] struct {
	name    string
	tier    Tier
	pattern *regexp.Regexp
	parse   func(groups []string) (T, bool)
}

// matchRules walks the rules in table order and, within a rule, its matches in
// order of appearance. Every candidate that parses is handed to visit; the walk
// stops as soon as visit returns false.
func matchRules[T any](rules []rule[T], text string, visit func(r rule[T], candidate T) bool) {
	if text == "" {
		return
	}
	for _, r := range rules {
		for _, groups := range r.pattern.FindAllStringSubmatch(text, -1) {
			candidate, ok := r.parse(groups)
			if !ok {
				continue
			}
			if !visit(r, candidate) {
				return
			}
		}
	}
}
