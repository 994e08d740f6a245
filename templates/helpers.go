package templates

import (
	"fmt"
	"html/template"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Funcs returns the helper functions available in every view.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"ifCond":     IfCond,
		"formatTime": FormatTime,
		"initial":    initial,
	}
}

// IfCond compares v1 and v2 with operator and is used as a block condition:
//
//	{{if ifCond .gender "==" "female"}}selected{{end}}
//
// Supported operators are == === !== < <= > >= && and ||. Any other operator
// evaluates to false.
func IfCond(v1 any, operator string, v2 any) bool {
	switch operator {
	case "==":
		return looseEqual(v1, v2)
	case "===":
		return strictEqual(v1, v2)
	case "!==":
		return !strictEqual(v1, v2)
	case "<":
		c, ok := compare(v1, v2)
		return ok && c < 0
	case "<=":
		c, ok := compare(v1, v2)
		return ok && c <= 0
	case ">":
		c, ok := compare(v1, v2)
		return ok && c > 0
	case ">=":
		c, ok := compare(v1, v2)
		return ok && c >= 0
	case "&&":
		return truthy(v1) && truthy(v2)
	case "||":
		return truthy(v1) || truthy(v2)
	default:
		return false
	}
}

// looseEqual treats numbers by value and everything else by its printed form,
// so 1 == "1" holds.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			return x == y
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// strictEqual requires the same kind of value: numbers of any Go type compare by
// value, other values must share a type and be deeply equal.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	x, xNum := toFloat(a)
	y, yNum := toFloat(b)
	if xNum || yNum {
		return xNum && yNum && x == y
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two numbers, two strings or two times. A number and a
// numeric string are compared by value.
func compare(a, b any) (int, bool) {
	x, aNum := toFloat(a)
	y, bNum := toFloat(b)
	if aNum && !bNum {
		y, bNum = parseNumeric(b)
	} else if bNum && !aNum {
		x, aNum = parseNumeric(a)
	}
	if aNum || bNum {
		if !aNum || !bNum {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
		return 0, false
	}
	if x, ok := a.(time.Time); ok {
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func parseNumeric(v any) (float64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// truthy follows the template package's notion of truth: zero values, nil and
// empty collections are false.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return !rv.IsZero()
}

// FormatTime renders a timestamp the way tvits show it.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("02 Jan 2006 15:04")
}

// initial returns the first letter of a name, upper-cased, for avatar placeholders.
func initial(s string) string {
	for _, r := range strings.TrimSpace(s) {
		return strings.ToUpper(string(r))
	}
	return ""
}
