package extract

import (
	"fmt"
	"reflect"
)

const (
	maxAttributes   = 10
	firstItemPrefix = 100
	valuePrefix     = 200
)

// Summarize describes obj in one bounded line. It never panics.
func Summarize(obj any) (summary string) {
	defer func() {
		if r := recover(); r != nil {
			summary = fmt.Sprintf("Error summarizing object: %v", r)
		}
	}()

	if obj == nil {
		return "None"
	}
	v := reflect.ValueOf(obj)
	name := typeName(v.Type())

	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "None"
		}
		if v.Elem().Kind() == reflect.Struct {
			v = v.Elem()
		}
	}

	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		n := min(t.NumField(), maxAttributes)
		attrs := make([]string, 0, n)
		for i := range n {
			attrs = append(attrs, t.Field(i).Name)
		}
		return fmt.Sprintf("%s with attributes: %v", name, attrs)
	case reflect.Slice, reflect.Array, reflect.String:
		if v.Len() == 0 {
			return fmt.Sprintf("%s (empty)", name)
		}
		var first string
		if v.Kind() == reflect.String {
			first = string([]rune(v.String())[0])
		} else {
			first = fmt.Sprint(v.Index(0).Interface())
		}
		return fmt.Sprintf("%s with %d items, first: %s", name, v.Len(), truncate(first, firstItemPrefix))
	case reflect.Map, reflect.Chan:
		return fmt.Sprintf("%s (length: %d)", name, v.Len())
	}
	return fmt.Sprintf("%s: %s", name, truncate(fmt.Sprint(obj), valuePrefix))
}

func typeName(t reflect.Type) string {
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
