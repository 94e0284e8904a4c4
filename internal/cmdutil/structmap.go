package cmdutil

import (
	"reflect"
	"strings"
	"time"
	"unicode"
)

// StructToMapOptions configures StructToMap.
type StructToMapOptions struct {
	OmitFields       map[string]bool
	KeyOverrides     map[string]string
	JoinStringSlices bool
}

var timeType = reflect.TypeOf(time.Time{})

// StructToMap flattens a struct into a map keyed by snake_case field names,
// the shape the datastore insert API expects. Embedded structs are inlined,
// time.Time renders as its String form, and string slices can optionally be
// joined with commas.
func StructToMap[T any](value T, opts StructToMapOptions) map[string]any {
	result := make(map[string]any)
	v := reflect.Indirect(reflect.ValueOf(value))
	if v.IsValid() {
		addFields(v, result, opts)
	}
	return result
}

func addFields(v reflect.Value, result map[string]any, opts StructToMapOptions) {
	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := range v.NumField() {
		field := t.Field(i)
		if !field.IsExported() || opts.OmitFields[field.Name] {
			continue
		}

		value := v.Field(i)
		if field.Anonymous && value.Kind() == reflect.Struct {
			addFields(value, result, opts)
			continue
		}

		key, ok := opts.KeyOverrides[field.Name]
		if !ok {
			key = toSnakeCase(field.Name)
		}
		result[key] = fieldValue(value, opts)
	}
}

func fieldValue(value reflect.Value, opts StructToMapOptions) any {
	value = reflect.Indirect(value)
	if !value.IsValid() {
		return nil
	}

	switch {
	case value.Type() == timeType:
		return value.Interface().(time.Time).String()
	case opts.JoinStringSlices && value.Kind() == reflect.Slice && value.Type().Elem().Kind() == reflect.String:
		items := make([]string, value.Len())
		for i := range items {
			items[i] = value.Index(i).String()
		}
		return strings.Join(items, ",")
	}

	return value.Interface()
}

// toSnakeCase converts CamelCase field names to snake_case while keeping
// acronym runs together: TableName -> table_name, HTTPServer -> http_server.
func toSnakeCase(input string) string {
	runes := []rune(input)
	var b strings.Builder
	b.Grow(len(runes) + 4)

	for i, r := range runes {
		if !unicode.IsUpper(r) {
			b.WriteRune(r)
			continue
		}
		if i > 0 {
			prev := runes[i-1]
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextIsLower) {
				b.WriteRune('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
