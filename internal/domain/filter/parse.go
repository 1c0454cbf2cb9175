package filter

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ReservedKeys are query parameters that never name a filter.
var ReservedKeys = map[string]struct{}{
	"limit":    {},
	"offset":   {},
	"order_by": {},
	"fields":   {},
}

const orBlock = "or"

// shortOps maps query-string operator keys to tags. Kind-dependent keys resolve in resolveOp.
var shortOps = map[string]OperatorTag{
	"contains":    TextContains,
	"starts_with": TextStartsWith,
	"ends_with":   TextEndsWith,
	"in":          InList,
}

type entry struct {
	block  string
	index  int
	field  string
	op     string
	values []string
}

// ParseValues turns bracket-key parameters into a Description.
//
//	field=v                       exact match by field kind
//	field[op]=v                   conjunct
//	or[i][field][op]=v            one OR group
//	or_<label>[i][field][op]=v    additional OR groups
//
// gte/lte on one field merge into a single range. Keys are processed in sorted order.
// Any other repetition of a field and operator, including a full range key next to
// gte/lte, fails with ConflictingFilter.
func ParseValues(values url.Values, schema *Schema) (Description, error) {
	entries := make([]entry, 0, len(values))
	for key, vals := range values {
		if _, ok := ReservedKeys[key]; ok || len(vals) == 0 {
			continue
		}
		e, err := parseKey(key)
		if err != nil {
			return Description{}, err
		}
		e.values = vals
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].less(entries[j]) })

	var (
		d        Description
		groupIdx = map[string]int{}
		merged   = map[string]*Item{}
		order    []string
		blockOf  = map[string]string{}
		opsOf    = map[string][]string{}
	)

	for _, e := range entries {
		spec, err := schema.Resolve(e.field)
		if err != nil {
			return Description{}, err
		}
		tag, err := resolveOp(e.op, spec)
		if err != nil {
			return Description{}, withField(err, e.field)
		}

		if len(e.values) > 1 && tag != InList {
			return Description{}, newError(ConflictingFilter, e.field, tag, "",
				"%s given %d values", e.key(), len(e.values))
		}

		mergeKey := e.block + "\x00" + strconv.Itoa(e.index) + "\x00" + e.field + "\x00" + string(tag)
		item, seen := merged[mergeKey]
		if !seen {
			item = &Item{Field: e.field, Operator: tag}
			merged[mergeKey] = item
			order = append(order, mergeKey)
			blockOf[mergeKey] = e.block
		} else if !mergesBound(opsOf[mergeKey], e.op) {
			return Description{}, newError(ConflictingFilter, e.field, tag, "",
				"%s repeats %s on %s", e.key(), tag, e.field)
		}
		opsOf[mergeKey] = append(opsOf[mergeKey], e.op)

		switch {
		case tag == Range && e.op == "gte":
			item.Value.Lower = nonEmpty(e.values[0])
		case tag == Range && e.op == "lte":
			item.Value.Upper = nonEmpty(e.values[0])
		case tag == Range:
			// A full "range" key carries "gte,lte".
			lo, hi, _ := strings.Cut(e.values[0], ",")
			item.Value = Bounds(strings.TrimSpace(lo), strings.TrimSpace(hi))
		case tag == InList:
			item.Value = List(e.values...)
		default:
			item.Value = Text(e.values[0])
		}
	}

	for _, key := range order {
		item := *merged[key]
		block := blockOf[key]
		if block == "" {
			d.Items = append(d.Items, item)
			continue
		}
		idx, ok := groupIdx[block]
		if !ok {
			idx = len(d.Groups)
			groupIdx[block] = idx
			d.Groups = append(d.Groups, nil)
		}
		d.Groups[idx] = append(d.Groups[idx], item)
	}
	return d, nil
}

// mergesBound reports whether op is the missing half of a gte/lte pair.
func mergesBound(prev []string, op string) bool {
	if op != "gte" && op != "lte" {
		return false
	}
	for _, p := range prev {
		if p == op || (p != "gte" && p != "lte") {
			return false
		}
	}
	return true
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// parseKey splits "or[0][email][contains]" into its parts.
func parseKey(key string) (entry, error) {
	segs, ok := splitBrackets(key)
	if !ok {
		return entry{}, newError(DisallowedField, key, "", "", "malformed filter key")
	}

	var e entry
	if segs[0] == orBlock || strings.HasPrefix(segs[0], orBlock+"_") {
		e.block = segs[0]
		segs = segs[1:]
		if len(segs) > 0 {
			if n, err := strconv.Atoi(segs[0]); err == nil && n >= 0 {
				e.index = n
				segs = segs[1:]
			}
		}
	}

	switch len(segs) {
	case 1:
		e.field = segs[0]
	case 2:
		e.field, e.op = segs[0], segs[1]
	case 0:
		return entry{}, newError(DisallowedField, key, "", "", "filter key has no field")
	default:
		return entry{}, newError(UnsupportedOperator, key, "", "", "filters nest at most one OR level")
	}
	return e, nil
}

func splitBrackets(key string) ([]string, bool) {
	head, rest, found := strings.Cut(key, "[")
	if head == "" {
		return nil, false
	}
	segs := []string{head}
	if !found {
		return segs, true
	}
	rest = "[" + rest
	for rest != "" {
		if rest[0] != '[' {
			return nil, false
		}
		end := strings.IndexByte(rest, ']')
		if end <= 1 {
			return nil, false
		}
		segs = append(segs, rest[1:end])
		rest = rest[end+1:]
	}
	return segs, true
}

// resolveOp maps a short or full operator key to a tag for the field's kind.
func resolveOp(op string, spec FieldSpec) (OperatorTag, error) {
	if tag, ok := shortOps[op]; ok {
		return tag, nil
	}
	switch op {
	case "", "eq":
		switch spec.Kind {
		case FieldNumber:
			return ExactNumber, nil
		case FieldDate:
			return ExactDate, nil
		default:
			return ExactText, nil
		}
	case "gt", "lt":
		switch {
		case spec.Kind == FieldNumber && op == "gt":
			return NumberGreaterThan, nil
		case spec.Kind == FieldNumber:
			return NumberLessThan, nil
		case spec.Kind == FieldDate && op == "gt":
			return DateAfter, nil
		case spec.Kind == FieldDate:
			return DateBefore, nil
		}
		return "", newError(UnsupportedOperator, "", OperatorTag(op), "", "%s does not apply to %s fields", op, spec.Kind)
	case "gte", "lte":
		return Range, nil
	}
	tag := OperatorTag(op)
	if _, err := defaultRegistry.Lookup(tag); err != nil {
		return "", err
	}
	return tag, nil
}

// key rebuilds the query key for error messages.
func (e entry) key() string {
	var b strings.Builder
	if e.block != "" {
		b.WriteString(e.block)
		b.WriteString("[" + strconv.Itoa(e.index) + "]")
		b.WriteString("[" + e.field + "]")
	} else {
		b.WriteString(e.field)
	}
	if e.op != "" {
		b.WriteString("[" + e.op + "]")
	}
	return b.String()
}

func (e entry) less(o entry) bool {
	if e.block != o.block {
		return blockRank(e.block) < blockRank(o.block) ||
			(blockRank(e.block) == blockRank(o.block) && e.block < o.block)
	}
	if e.index != o.index {
		return e.index < o.index
	}
	if e.field != o.field {
		return e.field < o.field
	}
	return e.op < o.op
}

func blockRank(block string) int {
	switch block {
	case "":
		return 0
	case orBlock:
		return 1
	default:
		return 2
	}
}
