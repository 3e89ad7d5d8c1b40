package value

import (
	"fmt"
	"reflect"
	"strconv"
	"unicode/utf16"
)

// Kind identifies the dynamic type of a Value.
type Kind int

const (
	KindFloat Kind = iota + 1
	KindInt
	KindBool
	KindString
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a sealed scalar. Only the types in this package implement it.
type Value interface {
	Kind() Kind
	String() string
	value() // seal
}

// Float is a real-valued node value (frequencies, currents, times).
type Float float64

// Int is an integer node value (attenuator codes, revision ids).
type Int int64

// Bool is a flag node value.
type Bool bool

// Str is a string node value. Enumerations are stored as Str.
type Str string

func (Float) Kind() Kind { return KindFloat }
func (Int) Kind() Kind   { return KindInt }
func (Bool) Kind() Kind  { return KindBool }
func (Str) Kind() Kind   { return KindString }

func (Float) value() {}
func (Int) value()   {}
func (Bool) value()  {}
func (Str) value()   {}

func (v Float) String() string { return FormatFloat(float64(v)) }
func (v Int) String() string   { return strconv.FormatInt(int64(v), 10) }
func (v Bool) String() string  { return strconv.FormatBool(bool(v)) }
func (v Str) String() string   { return string(v) }

// From converts a Go node value into a Value. Named types are converted by
// their underlying kind, so a string enum becomes a Str.
func From(v any) (Value, error) {
	if v == nil {
		return nil, fmt.Errorf("nil is not a node value")
	}
	if val, ok := v.(Value); ok {
		return val, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return Int(int64(rv.Uint())), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return Str(rv.String()), nil
	default:
		return nil, fmt.Errorf("unsupported node value type: %T", v)
	}
}

// MustFrom is like From but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFrom(v any) Value {
	val, err := From(v)
	if err != nil {
		panic(err)
	}
	return val
}

// FormatFloat renders a float deterministically: integral values without an
// exponent or fraction, everything else in shortest round-trip form.
func FormatFloat(f float64) string {
	if f > -1e18 && f < 1e18 && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Object is an ordered-on-output map of values.
type Object map[string]Value

func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			if ua[i] < ub[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ua) < len(ub):
		return -1
	case len(ua) > len(ub):
		return 1
	}
	return 0
}
