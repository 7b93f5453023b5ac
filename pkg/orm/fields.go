// pkg/orm/fields.go
package orm

import (
	"fmt"
	"reflect"

	"github.com/jmoiron/sqlx/reflectx"
)

// Field is one column of a serialized record.
type Field struct {
	Column string
	Value  Value
}

// FieldMap is the ordered column → value form of a record. Order follows struct
// declaration order, with embedded structs flattened in place.
type FieldMap []Field

// Columns returns the column names in order.
func (m FieldMap) Columns() []string {
	cols := make([]string, len(m))
	for i, f := range m {
		cols[i] = f.Column
	}
	return cols
}

// Values returns the values in order.
func (m FieldMap) Values() []Value {
	vals := make([]Value, len(m))
	for i, f := range m {
		vals[i] = f.Value
	}
	return vals
}

// Get returns the value stored under column.
func (m FieldMap) Get(column string) (Value, bool) {
	for _, f := range m {
		if f.Column == column {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Without returns a copy of m with column removed.
func (m FieldMap) Without(column string) FieldMap {
	out := make(FieldMap, 0, len(m))
	for _, f := range m {
		if f.Column != column {
			out = append(out, f)
		}
	}
	return out
}

// Serialize reduces record to a FieldMap using mapper's column naming.
// Fields tagged `db:"-"` and unexported fields are skipped.
func Serialize(mapper *reflectx.Mapper, record any) (FieldMap, error) {
	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, fmt.Errorf("%w: nil record", ErrSerialization)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrSerialization, v.Type())
	}

	tm := mapper.TypeMap(v.Type())
	fields, err := collectFields(v, tm.Tree, nil)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s has no columns", ErrSerialization, v.Type())
	}
	return fields, nil
}

func collectFields(v reflect.Value, node *reflectx.FieldInfo, out FieldMap) (FieldMap, error) {
	for pos, child := range node.Children {
		if child == nil || child.Field.Tag.Get("db") == "-" {
			continue
		}
		fv := v.Field(pos)
		ft := child.Field.Type

		if child.Embedded && !isScalar(ft) {
			for fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					break
				}
				fv = fv.Elem()
			}
			if fv.Kind() != reflect.Struct {
				// nil embedded pointer contributes no columns
				continue
			}
			var err error
			if out, err = collectFields(fv, child, out); err != nil {
				return nil, err
			}
			continue
		}

		if !isScalar(ft) {
			return nil, fmt.Errorf("%w: field %s of type %s is not a flat value", ErrSerialization, child.Path, ft)
		}
		out = append(out, Field{Column: child.Name, Value: Classify(fv.Interface())})
	}
	return out, nil
}

// isScalar reports whether a field of type t reduces to a single column value.
func isScalar(t reflect.Type) bool {
	if t.Implements(valuerType) {
		return true
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
		if t.Implements(valuerType) {
			return true
		}
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String, reflect.Interface,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	case reflect.Struct:
		return t == timeType || t.ConvertibleTo(timeType)
	}
	return false
}
