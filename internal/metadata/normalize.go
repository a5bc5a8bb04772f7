package metadata

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/sells-group/boxflow/pkg/box"
)

// SuggestionRecord is raw oracle output. A nil value means the oracle had
// no answer for that field.
type SuggestionRecord map[string]any

// Record is a normalized metadata record ready to apply. It always has
// exactly the keys of the defaults table it was built from.
type Record map[string]any

// canonicalLayout is the single textual form of every persisted date.
const canonicalLayout = "2006-01-02T15:04:05Z"

// isoLayouts are the ISO-8601 shapes accepted for date fields. Layouts
// without an offset are read as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalizer cleans oracle suggestions against a defaults table.
type Normalizer struct {
	dateFields map[string]bool
	fields     map[string]FieldSpec
	lenient    bool
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithLenientDates accepts free-form dates such as "Feb 13, 2024" before
// falling back to the default.
func WithLenientDates(on bool) NormalizerOption {
	return func(n *Normalizer) {
		n.lenient = on
	}
}

// WithFields makes the Normalizer coerce suggestions to each field's
// declared type: numbers become strings for string fields, numeric strings
// become numbers for float fields and enum values must name an option.
// Values that cannot be coerced take their default.
func WithFields(fields []FieldSpec) NormalizerOption {
	return func(n *Normalizer) {
		n.fields = make(map[string]FieldSpec, len(fields))
		for _, f := range fields {
			n.fields[f.Key] = f
			if f.Type == box.FieldDate {
				n.dateFields[f.Key] = true
			}
		}
	}
}

// NewNormalizer returns a Normalizer that treats dateFields as dates.
func NewNormalizer(dateFields []string, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{dateFields: make(map[string]bool, len(dateFields))}
	for _, f := range dateFields {
		n.dateFields[f] = true
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize overlays the non-empty suggestions onto defaults. Suggested keys
// missing from defaults are dropped. Date fields that fail to parse take
// their default rather than an error.
func (n *Normalizer) Normalize(raw SuggestionRecord, defaults Defaults) Record {
	out := make(Record, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range raw {
		def, known := defaults[k]
		if !known || isEmpty(v) {
			continue
		}
		if n.dateFields[k] {
			out[k] = n.date(v, def)
			continue
		}
		out[k] = n.coerce(k, v, def)
	}
	return out
}

// Normalize normalizes raw against defaults using the invoice/PO field
// types and strict ISO-8601 date parsing.
func Normalize(raw SuggestionRecord, defaults Defaults) Record {
	return NewNormalizer(nil, WithFields(InvoiceSchema().Fields)).Normalize(raw, defaults)
}

// coerce converts v to the type declared for key. Untyped keys pass through.
func (n *Normalizer) coerce(key string, v, def any) any {
	f, ok := n.fields[key]
	if !ok {
		return v
	}
	switch f.Type {
	case box.FieldString:
		if s, ok := scalarString(v); ok {
			return s
		}
	case box.FieldFloat:
		if x, ok := scalarFloat(v); ok {
			return x
		}
	case box.FieldEnum:
		if s, ok := v.(string); ok {
			for _, o := range f.Options {
				if strings.EqualFold(strings.TrimSpace(s), o) {
					return o
				}
			}
		}
	default:
		return v
	}
	return def
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}

func scalarFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(x), ",", ""), 64)
		return f, err == nil
	}
	return 0, false
}

func (n *Normalizer) date(v, def any) any {
	fallback := DateSentinel
	if s, ok := def.(string); ok && s != "" {
		fallback = s
	}

	switch x := v.(type) {
	case time.Time:
		return CanonicalDate(x)
	case string:
		if t, ok := parseISO(x); ok {
			return CanonicalDate(t)
		}
		if n.lenient {
			if t, err := dateparse.ParseIn(strings.TrimSpace(x), time.UTC); err == nil {
				return CanonicalDate(t)
			}
		}
	}
	return fallback
}

// CanonicalDate formats t as YYYY-MM-DDTHH:MM:SSZ in UTC.
func CanonicalDate(t time.Time) string {
	return t.UTC().Format(canonicalLayout)
}

func parseISO(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	}
	return false
}
