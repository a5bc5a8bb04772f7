package metadata

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Term is one `field = :param` clause of a predicate.
type Term struct {
	Field string
	Param string
}

// Predicate is a conjunction of equality terms over template fields with
// named bound parameters, e.g. "documentType = :docType AND
// purchaseOrderNumber = :poNumber". It is evaluated by the Box metadata query
// endpoint; Matches evaluates it locally against a fetched instance.
type Predicate struct {
	Terms []Term
}

var (
	termRe = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*:([A-Za-z_][A-Za-z0-9_]*)\s*$`)
	andRe  = regexp.MustCompile(`(?i)\s+AND\s+`)
)

// ParsePredicate parses an equality conjunction. Field names and parameter
// names are identifiers; AND is case-insensitive. OR, comparison operators
// and literals are rejected.
func ParsePredicate(s string) (Predicate, error) {
	if strings.TrimSpace(s) == "" {
		return Predicate{}, eris.New("metadata: empty predicate")
	}

	var p Predicate
	seen := make(map[string]bool)
	for _, clause := range andRe.Split(strings.TrimSpace(s), -1) {
		m := termRe.FindStringSubmatch(clause)
		if m == nil {
			return Predicate{}, eris.Errorf("metadata: invalid predicate term %q", strings.TrimSpace(clause))
		}
		if seen[m[1]] {
			return Predicate{}, eris.Errorf("metadata: field %q constrained twice", m[1])
		}
		seen[m[1]] = true
		p.Terms = append(p.Terms, Term{Field: m[1], Param: m[2]})
	}
	return p, nil
}

// MustParsePredicate is ParsePredicate for predicates known at compile time.
func MustParsePredicate(s string) Predicate {
	p, err := ParsePredicate(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String renders the predicate in Box query syntax.
func (p Predicate) String() string {
	parts := make([]string, len(p.Terms))
	for i, t := range p.Terms {
		parts[i] = fmt.Sprintf("%s = :%s", t.Field, t.Param)
	}
	return strings.Join(parts, " AND ")
}

// Fields returns the constrained field keys in predicate order.
func (p Predicate) Fields() []string {
	out := make([]string, len(p.Terms))
	for i, t := range p.Terms {
		out[i] = t.Field
	}
	return out
}

// Bind checks that every parameter has a value and returns only the
// parameters the predicate references.
func (p Predicate) Bind(params map[string]any) (map[string]any, error) {
	bound := make(map[string]any, len(p.Terms))
	var missing []string
	for _, t := range p.Terms {
		v, ok := params[t.Param]
		if !ok || v == nil {
			missing = append(missing, t.Param)
			continue
		}
		bound[t.Param] = v
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, eris.Errorf("metadata: unbound predicate params: %s", strings.Join(missing, ", "))
	}
	return bound, nil
}

// Matches reports whether fields satisfy the predicate under params. Values
// compare by their string form so "920" and 920 are equal.
func (p Predicate) Matches(fields map[string]any, params map[string]any) bool {
	for _, t := range p.Terms {
		got, ok := fields[t.Field]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != fmt.Sprint(params[t.Param]) {
			return false
		}
	}
	return true
}
