package ordered

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"time"
)

// MaxSafeInteger is the largest integer magnitude a Number can represent
// exactly.
const MaxSafeInteger = 1<<53 - 1

var (
	valueType         = reflect.TypeOf(Value{})
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	timeType          = reflect.TypeOf(time.Time{})
)

// From converts Go data into a Value. It accepts nil, booleans, integers within
// ±MaxSafeInteger, non-NaN floats, strings, time.Time (as Unix milliseconds),
// encoding.TextMarshaler implementations (as strings), slices and arrays of
// convertible values, maps with string keys, and Value itself.
func From(v any) (Value, error) {
	switch v := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case int:
		return fromInt(int64(v))
	case int64:
		return fromInt(v)
	case int32:
		return Number(float64(v)), nil
	case uint64:
		if v > MaxSafeInteger {
			return Value{}, fmt.Errorf("ordered: integer %d exceeds safe range", v)
		}
		return Number(float64(v)), nil
	case float64:
		return fromFloat(v)
	case []any:
		elems := make([]Value, len(v))
		for i, el := range v {
			ev, err := From(el)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			elems[i] = ev
		}
		return Array(elems...), nil
	case map[string]any:
		fields := make([]Field, 0, len(v))
		for k, el := range v {
			ev, err := From(el)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			fields = append(fields, Field{k, ev})
		}
		return Object(fields...), nil
	}
	return fromReflect(reflect.ValueOf(v))
}

// MustFrom is like From, but panics on unsupported input.
func MustFrom(v any) Value {
	val, err := From(v)
	if err != nil {
		panic(err)
	}
	return val
}

func fromInt(n int64) (Value, error) {
	if n > MaxSafeInteger || n < -MaxSafeInteger {
		return Value{}, fmt.Errorf("ordered: integer %d exceeds safe range", n)
	}
	return Number(float64(n)), nil
}

func fromFloat(f float64) (Value, error) {
	if math.IsNaN(f) {
		return Value{}, fmt.Errorf("ordered: NaN is not orderable")
	}
	return Number(f), nil
}

func fromReflect(rv reflect.Value) (Value, error) {
	if !rv.IsValid() {
		return Null(), nil
	}
	typ := rv.Type()
	if typ == valueType {
		return rv.Interface().(Value), nil
	}
	if typ == timeType {
		return Number(float64(rv.Interface().(time.Time).UnixMilli())), nil
	}
	if typ.Implements(textMarshalerType) && typ.Kind() != reflect.Pointer {
		text, err := rv.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return Value{}, err
		}
		return String(string(text)), nil
	}
	switch typ.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return fromReflect(rv.Elem())
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fromInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > MaxSafeInteger {
			return Value{}, fmt.Errorf("ordered: integer %d exceeds safe range", u)
		}
		return Number(float64(u)), nil
	case reflect.Float32, reflect.Float64:
		return fromFloat(rv.Float())
	case reflect.Slice, reflect.Array:
		if typ.Kind() == reflect.Slice && rv.IsNil() {
			return Array(), nil
		}
		n := rv.Len()
		elems := make([]Value, n)
		for i := 0; i < n; i++ {
			ev, err := fromReflect(rv.Index(i))
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			elems[i] = ev
		}
		return Array(elems...), nil
	case reflect.Map:
		if typ.Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("ordered: map keys must be strings, got %v", typ.Key())
		}
		fields := make([]Field, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			ev, err := fromReflect(iter.Value())
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", iter.Key().String(), err)
			}
			fields = append(fields, Field{iter.Key().String(), ev})
		}
		return Object(fields...), nil
	default:
		return Value{}, fmt.Errorf("ordered: cannot encode %v", typ)
	}
}
