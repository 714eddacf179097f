package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Handler converts an argument value into a value a database driver accepts.
type Handler interface {
	Bind(value any) (driver.Value, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(value any) (driver.Value, error)

// Bind calls f(value).
func (f HandlerFunc) Bind(value any) (driver.Value, error) { return f(value) }

// HandlerFactory constructs a handler for the declared Go type, which
// may be nil when the argument carries no type information.
type HandlerFactory func(goType reflect.Type) (Handler, error)

// staticFactory returns a factory that ignores the Go type.
func staticFactory(h Handler) HandlerFactory {
	return func(reflect.Type) (Handler, error) { return h, nil }
}

// Built-in handlers.
var (
	// DefaultHandler defers to database/sql's default conversion.
	DefaultHandler Handler = HandlerFunc(bindDefault)

	StringHandler  Handler = HandlerFunc(bindString)
	IntegerHandler Handler = HandlerFunc(bindInteger)
	FloatHandler   Handler = HandlerFunc(bindFloat)
	BooleanHandler Handler = HandlerFunc(bindBoolean)
	TimeHandler    Handler = HandlerFunc(bindTime)
	BytesHandler   Handler = HandlerFunc(bindBytes)
	UUIDHandler    Handler = HandlerFunc(bindUUID)
	JSONHandler    Handler = HandlerFunc(bindJSON)
)

func bindDefault(v any) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	if valuer, ok := v.(driver.Valuer); ok {
		return valuer.Value()
	}
	if driver.IsValue(v) {
		return v, nil
	}
	out, err := driver.DefaultParameterConverter.ConvertValue(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValueConversion, err)
	}
	return out, nil
}

func bindString(v any) (driver.Value, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case fmt.Stringer:
		return x.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func bindInteger(v any) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrValueConversion, s)
		}
		return n, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil //nolint:gosec // overflow is the caller's concern
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()), nil
	case reflect.Bool:
		if rv.Bool() {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return nil, fmt.Errorf("%w: cannot bind %T as integer", ErrValueConversion, v)
}

func bindFloat(v any) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrValueConversion, s)
		}
		return f, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return nil, fmt.Errorf("%w: cannot bind %T as float", ErrValueConversion, v)
}

func bindBoolean(v any) (driver.Value, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a boolean", ErrValueConversion, x)
		}
		return b, nil
	}
	n, err := bindInteger(v)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot bind %T as boolean", ErrValueConversion, v)
	}
	return n.(int64) != 0, nil
}

func bindTime(v any) (driver.Value, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return x, nil
	case *time.Time:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.DateTime, time.DateOnly} {
			if t, err := time.Parse(layout, x); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("%w: %q is not a timestamp", ErrValueConversion, x)
	case int64:
		return time.UnixMilli(x).UTC(), nil
	}
	return nil, fmt.Errorf("%w: cannot bind %T as time", ErrValueConversion, v)
}

func bindBytes(v any) (driver.Value, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	}
	return nil, fmt.Errorf("%w: cannot bind %T as bytes", ErrValueConversion, v)
}

func bindUUID(v any) (driver.Value, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case uuid.UUID:
		return x.String(), nil
	case string:
		id, err := uuid.Parse(x)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValueConversion, err)
		}
		return id.String(), nil
	case []byte:
		id, err := uuid.FromBytes(x)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValueConversion, err)
		}
		return id.String(), nil
	}
	return nil, fmt.Errorf("%w: cannot bind %T as uuid", ErrValueConversion, v)
}

func bindJSON(v any) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValueConversion, err)
	}
	return string(data), nil
}
