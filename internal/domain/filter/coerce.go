package filter

import (
	"strconv"
	"strings"
	"time"
)

// Coerce converts raw input into the typed value the operator expects on a field of the given kind.
// It is pure and consults no external state.
func Coerce(tag OperatorTag, kind FieldKind, raw RawValue) (CoercedValue, error) {
	op, err := defaultRegistry.Lookup(tag)
	if err != nil {
		return CoercedValue{}, err
	}
	if !op.Supports(kind) {
		return CoercedValue{}, newError(UnsupportedOperator, "", tag, raw.Text,
			"operator %s does not apply to %s fields", tag, kind)
	}

	switch op.class {
	case classText:
		return CoercedValue{Kind: ValueText, Text: strings.TrimSpace(raw.Text)}, nil
	case classNumber:
		return coerceNumber(tag, raw.Text)
	case classDate:
		return coerceDate(tag, raw.Text)
	case classList:
		return coerceList(tag, kind, raw)
	case classRange:
		return coerceRange(tag, kind, raw)
	}
	return CoercedValue{}, newError(UnsupportedOperator, "", tag, raw.Text, "operator %s has no coercion", tag)
}

func coerceNumber(tag OperatorTag, s string) (CoercedValue, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return CoercedValue{}, newError(InvalidNumber, "", tag, s, "%q is not a valid integer", s)
	}
	return CoercedValue{Kind: ValueNumber, Number: n}, nil
}

func coerceDate(tag OperatorTag, s string) (CoercedValue, error) {
	s = strings.TrimSpace(s)
	t, ok := ParseDate(s)
	if !ok {
		return CoercedValue{}, newError(InvalidDate, "", tag, s, "%q is not a valid dd/mm/yyyy date", s)
	}
	return CoercedValue{Kind: ValueDate, Date: t}, nil
}

func coerceList(tag OperatorTag, kind FieldKind, raw RawValue) (CoercedValue, error) {
	parts := raw.List
	if parts == nil {
		parts = []string{raw.Text}
	}

	items := make([]any, 0, len(parts))
	for _, part := range parts {
		for _, el := range strings.Split(part, ",") {
			el = strings.TrimSpace(el)
			if el == "" {
				continue
			}
			switch kind {
			case FieldNumber:
				v, err := coerceNumber(tag, el)
				if err != nil {
					return CoercedValue{}, err
				}
				items = append(items, v.Number)
			case FieldDate:
				v, err := coerceDate(tag, el)
				if err != nil {
					return CoercedValue{}, err
				}
				items = append(items, v.Date)
			default:
				items = append(items, el)
			}
		}
	}
	if len(items) == 0 {
		return CoercedValue{}, newError(EmptyList, "", tag, raw.Text, "list has no elements")
	}
	return CoercedValue{Kind: ValueList, List: items}, nil
}

func coerceRange(tag OperatorTag, kind FieldKind, raw RawValue) (CoercedValue, error) {
	if !raw.IsRange() {
		return CoercedValue{}, newError(EmptyRange, "", tag, raw.Text, "range needs gte or lte")
	}

	bound := func(s string) (*CoercedValue, error) {
		var (
			v   CoercedValue
			err error
		)
		if kind == FieldDate {
			v, err = coerceDate(tag, s)
		} else {
			v, err = coerceNumber(tag, s)
		}
		if err != nil {
			return nil, err
		}
		return &v, nil
	}

	out := CoercedValue{Kind: ValueRange}
	var err error
	if raw.Lower != nil {
		if out.Lower, err = bound(*raw.Lower); err != nil {
			return CoercedValue{}, err
		}
	}
	if raw.Upper != nil {
		if out.Upper, err = bound(*raw.Upper); err != nil {
			return CoercedValue{}, err
		}
	}
	return out, nil
}

// ParseDate accepts dd/mm/yyyy (d/m/yyyy too) or yyyy-mm-dd and returns UTC midnight.
// The components are recomposed so rollovers like 31/02/2024 are rejected.
func ParseDate(s string) (time.Time, bool) {
	var (
		day, month, year int
		ok               bool
	)
	switch {
	case strings.Count(s, "/") == 2:
		p := strings.Split(s, "/")
		day, ok = digits(p[0], 1, 2)
		if !ok {
			return time.Time{}, false
		}
		if month, ok = digits(p[1], 1, 2); !ok {
			return time.Time{}, false
		}
		if year, ok = digits(p[2], 4, 4); !ok {
			return time.Time{}, false
		}
	case strings.Count(s, "-") == 2:
		p := strings.Split(s, "-")
		if year, ok = digits(p[0], 4, 4); !ok {
			return time.Time{}, false
		}
		if month, ok = digits(p[1], 2, 2); !ok {
			return time.Time{}, false
		}
		if day, ok = digits(p[2], 2, 2); !ok {
			return time.Time{}, false
		}
	default:
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders the canonical dd/mm/yyyy form.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func digits(s string, minLen, maxLen int) (int, bool) {
	if len(s) < minLen || len(s) > maxLen {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
