package postgres

import (
	"reflect"
	"slices"
	"sync"
)

// columnCache maps reflect.Type to []column.
var columnCache sync.Map

type column struct {
	index []int
	name  string
}

func columnsOf(t reflect.Type) []column {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := columnCache.Load(t); ok {
		return cached.([]column)
	}

	var cols []column
	if t.Kind() == reflect.Struct {
		for _, f := range reflect.VisibleFields(t) {
			if f.Anonymous {
				continue
			}
			tag := f.Tag.Get("db")
			if tag == "" || tag == "-" {
				continue
			}
			cols = append(cols, column{index: f.Index, name: tag})
		}
	}
	columnCache.Store(t, cols)
	return cols
}

// DBColumns returns the "db" tag names of T in field order, embedded structs included.
func DBColumns[T any]() []string {
	cols := columnsOf(reflect.TypeFor[T]())
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.name
	}
	return out
}

// StructToMap converts a struct to a column map using "db" tags.
// Columns listed in skip are left out.
func StructToMap(v any, skip ...string) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	cols := columnsOf(rv.Type())
	res := make(map[string]any, len(cols))
	for _, c := range cols {
		if slices.Contains(skip, c.name) {
			continue
		}
		res[c.name] = rv.FieldByIndex(c.index).Interface()
	}
	return res
}
