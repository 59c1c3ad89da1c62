// Package normalize maps records of arbitrary external shape onto the local
// Contact and Employee schemas.
//
// Each target field is described by a Rule: an ordered list of candidate paths
// into the source record and a default. The first candidate that holds a
// non-empty scalar wins. Supporting a new source shape means adding a path to
// the relevant rule, not writing new code.
package normalize

import (
	"strconv"
	"strings"

	"contact-sync/backend/pkg/models"
)

// Record is an externally sourced record as decoded from JSON.
type Record = map[string]any

// Path addresses a value inside a Record. Numeric segments index into arrays,
// so {"emails", "0", "value"} reads record.emails[0].value.
type Path []string

// Rule resolves one target field.
type Rule struct {
	Field   string
	Paths   []Path
	Default string
}

// Unknown is the placeholder for required text fields with no candidate.
const Unknown = "Unknown"

var (
	idRule = Rule{Field: "id", Paths: []Path{{"id"}}}

	nameRule = Rule{
		Field:   "name",
		Paths:   []Path{{"name"}, {"fullName"}, {"fields", "fullName"}},
		Default: Unknown,
	}
	emailRule = Rule{
		Field: "email",
		Paths: []Path{{"primaryEmail"}, {"emails", "0", "value"}, {"fields", "primaryEmail"}},
	}
	phoneRule = Rule{
		Field: "phone",
		Paths: []Path{{"primaryPhone"}, {"phones", "0", "value"}, {"fields", "primaryPhone"}},
	}
)

// ContactRules are applied by Contact, in order.
var ContactRules = []Rule{
	idRule,
	nameRule,
	emailRule,
	phoneRule,
	{Field: "source", Paths: []Path{{"source"}, {"fields", "source"}}, Default: Unknown},
}

// EmployeeRules are applied by Employee, in order.
var EmployeeRules = []Rule{
	idRule,
	nameRule,
	{Field: "title", Paths: []Path{{"title"}, {"fields", "title"}}},
	emailRule,
	phoneRule,
	{Field: "dependents", Paths: []Path{{"dependents"}, {"fields", "dependents"}}},
}

// Apply resolves every rule against record and returns the values by field.
func Apply(record Record, rules []Rule) map[string]string {
	out := make(map[string]string, len(rules))
	for _, r := range rules {
		out[r.Field] = Resolve(record, r)
	}
	return out
}

// Resolve returns the first non-empty candidate of r in record, or r.Default.
func Resolve(record Record, r Rule) string {
	for _, p := range r.Paths {
		if v, ok := lookup(record, p); ok {
			if s, ok := scalarString(v); ok {
				return s
			}
		}
	}
	return r.Default
}

// Contact normalizes record into a Contact owned by customerID.
func Contact(record Record, customerID string) models.Contact {
	f := Apply(record, ContactRules)
	return models.Contact{
		CustomerID: customerID,
		ContactID:  f["id"],
		Name:       f["name"],
		Email:      f["email"],
		Phone:      f["phone"],
		Source:     f["source"],
	}
}

// Employee normalizes record into an Employee owned by customerID.
func Employee(record Record, customerID string) models.Employee {
	f := Apply(record, EmployeeRules)
	return models.Employee{
		CustomerID: customerID,
		EmployeeID: f["id"],
		Name:       f["name"],
		Title:      f["title"],
		Email:      f["email"],
		Phone:      f["phone"],
		Dependents: f["dependents"],
	}
}

func lookup(v any, p Path) (any, bool) {
	cur := v
	for _, seg := range p {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// scalarString renders JSON scalars as text. Blank strings, null, objects and
// arrays count as empty.
func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return "", false
		}
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case interface{ String() string }:
		// json.Number
		s := x.String()
		return s, s != ""
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}
