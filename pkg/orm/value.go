// pkg/orm/value.go
package orm

import (
	"database/sql/driver"
	"math"
	"reflect"
	"time"
)

// TimestampLayout is the only textual form bound as a timestamp rather than a string.
const TimestampLayout = "2006-01-02 15:04:05"

// Kind is the storage type a Value is bound as.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInteger
	KindBoolean
	KindFloat
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindFloat:
		return "float"
	case KindTimestamp:
		return "timestamp"
	default:
		return "null"
	}
}

// Value is a statement parameter classified into one of the supported storage types.
// The zero Value is Null.
type Value struct {
	kind Kind
	s    string
	i    int64
	b    bool
	f    float64
	t    time.Time
}

// Null returns the SQL NULL value.
func Null() Value { return Value{} }

// String returns a plain text value. Unlike Classify it never yields a timestamp.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Integer returns an integer value.
func Integer(i int64) Value { return Value{kind: KindInteger, i: i} }

// Boolean returns a boolean value.
func Boolean(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Float returns a floating-point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Timestamp returns a temporal value.
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, t: t} }

// Kind reports the storage type of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v binds as NULL.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Arg returns the driver-level argument for v: string, int64, bool, float64, time.Time or nil.
func (v Value) Arg() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInteger:
		return v.i
	case KindBoolean:
		return v.b
	case KindFloat:
		return v.f
	case KindTimestamp:
		return v.t
	default:
		return nil
	}
}

// Value implements driver.Valuer so a Value can be passed straight to database/sql.
func (v Value) Value() (driver.Value, error) {
	return v.Arg(), nil
}

var (
	timeType   = reflect.TypeOf(time.Time{})
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

// Classify turns an arbitrary field value into a Value. It is total: the first
// matching rule wins and anything unrecognised becomes Null.
//
//  1. text: a timestamp if it matches TimestampLayout exactly, otherwise a string
//  2. integer
//  3. boolean
//  4. float
//  5. Null
//
// time.Time binds as a timestamp and driver.Valuer implementations are classified
// by the value they produce.
func Classify(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case string:
		return classifyText(x)
	case []byte:
		if x == nil {
			return Null()
		}
		return classifyText(string(x))
	case int:
		return Integer(int64(x))
	case int8:
		return Integer(int64(x))
	case int16:
		return Integer(int64(x))
	case int32:
		return Integer(int64(x))
	case int64:
		return Integer(x)
	case uint:
		return classifyUnsigned(uint64(x))
	case uint8:
		return Integer(int64(x))
	case uint16:
		return Integer(int64(x))
	case uint32:
		return Integer(int64(x))
	case uint64:
		return classifyUnsigned(x)
	case bool:
		return Boolean(x)
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case time.Time:
		return Timestamp(x)
	case driver.Valuer:
		if rv := reflect.ValueOf(x); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return Null()
		}
		dv, err := x.Value()
		if err != nil {
			return Null()
		}
		return Classify(dv)
	}
	return classifyReflect(reflect.ValueOf(v))
}

// classifyReflect handles named types and pointers that the type switch cannot see.
func classifyReflect(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null()
		}
		return Classify(rv.Elem().Interface())
	case reflect.String:
		return classifyText(rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Integer(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return classifyUnsigned(rv.Uint())
	case reflect.Bool:
		return Boolean(rv.Bool())
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float())
	case reflect.Struct:
		if rv.Type().ConvertibleTo(timeType) {
			return Timestamp(rv.Convert(timeType).Interface().(time.Time))
		}
	}
	return Null()
}

func classifyText(s string) Value {
	if len(s) == len(TimestampLayout) {
		if t, err := time.ParseInLocation(TimestampLayout, s, time.UTC); err == nil {
			return Timestamp(t)
		}
	}
	return String(s)
}

// Unsigned values past the int64 range fall through to float, as a JSON number would.
func classifyUnsigned(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}
	return Integer(int64(u))
}

// Args converts values to driver-level arguments in order.
func Args(values []Value) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v.Arg()
	}
	return args
}
