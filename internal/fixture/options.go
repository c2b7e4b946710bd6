package fixture

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// Options is the free-form options object of a case. Keys keep document
// order so hosts can pass them through unchanged.
type Options struct {
	keys   []string
	values map[string]any
}

// NewOptions builds options from alternating key, value pairs.
func NewOptions(kv ...any) Options {
	var o Options

	for i := 0; i+1 < len(kv); i += 2 {
		o.Set(cast.ToString(kv[i]), kv[i+1])
	}

	return o
}

// Set adds or replaces key.
func (o *Options) Set(key string, value any) {
	if o.values == nil {
		o.values = make(map[string]any)
	}

	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}

	o.values[key] = value
}

func (o Options) Len() int { return len(o.keys) }

func (o Options) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

func (o Options) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the option names in document order.
func (o Options) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Map returns a shallow copy of the options.
func (o Options) Map() map[string]any {
	out := make(map[string]any, len(o.values))
	for k, v := range o.values {
		out[k] = v
	}

	return out
}

// Int returns key as an integer, or def when absent.
func (o Options) Int(key string, def int64) (int64, error) {
	v, ok := o.values[key]
	if !ok || v == nil {
		return def, nil
	}

	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, fmt.Errorf("fixture: option %q: %w", key, err)
	}

	return n, nil
}

// Float returns key as a real number, or def when absent.
func (o Options) Float(key string, def float64) (float64, error) {
	v, ok := o.values[key]
	if !ok || v == nil {
		return def, nil
	}

	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("fixture: option %q: %w", key, err)
	}

	return f, nil
}

// String returns key as a string, or def when absent.
func (o Options) String(key, def string) string {
	v, ok := o.values[key]
	if !ok || v == nil {
		return def
	}

	return cast.ToString(v)
}

// Bool returns key as a boolean, or def when absent.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o.values[key]
	if !ok || v == nil {
		return def
	}

	return cast.ToBool(v)
}

// Ints returns key as an integer list. ok is false when the option is absent.
func (o Options) Ints(key string) (values []int64, ok bool, err error) {
	v, ok := o.values[key]
	if !ok || v == nil {
		return nil, false, nil
	}

	items, err := cast.ToSliceE(v)
	if err != nil {
		return nil, true, fmt.Errorf("fixture: option %q: %w", key, err)
	}

	values = make([]int64, len(items))
	for i, item := range items {
		n, err := cast.ToInt64E(item)
		if err != nil {
			return nil, true, fmt.Errorf("fixture: option %q[%d]: %w", key, i, err)
		}
		values[i] = n
	}

	return values, true, nil
}

// Decode copies the options into the struct pointed to by into, matching
// fields by their `option` tag. Numbers are converted to the field type.
func (o Options) Decode(into any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "option",
		WeaklyTypedInput: true,
		Result:           into,
	})
	if err != nil {
		return fmt.Errorf("fixture: options decoder: %w", err)
	}

	if err := dec.Decode(o.values); err != nil {
		return fmt.Errorf("fixture: decode options: %w", err)
	}

	return nil
}

// Operand returns an option that is itself an operand, such as a bias or
// the gemm c matrix.
func (o Options) Operand(key string) (Operand, bool, error) {
	v, ok := o.values[key]
	if !ok || v == nil {
		return Operand{}, false, nil
	}

	if op, isOp := v.(Operand); isOp {
		return op, true, nil
	}

	if _, isObj := v.(map[string]any); !isObj {
		return Operand{}, false, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return Operand{}, true, fmt.Errorf("fixture: option %q: %w", key, err)
	}

	var op Operand
	if err := json.Unmarshal(raw, &op); err != nil {
		return Operand{}, true, fmt.Errorf("fixture: option %q: %w", key, err)
	}

	if op.Name == "" {
		op.Name = key
	}

	return op, true, nil
}

// Truthy reports whether an optional argument was given a value that
// counts as set. Absent, null, false, 0 and "" do not.
func (o Options) Truthy(key string) bool {
	v, ok := o.values[key]
	if !ok || v == nil {
		return false
	}

	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func (o *Options) UnmarshalJSON(b []byte) error {
	var out Options

	err := decodeOrdered(b, func(key string, dec *json.Decoder) error {
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("option %q: %w", key, err)
		}

		out.Set(key, v)

		return nil
	})
	if err != nil {
		return fmt.Errorf("fixture: decode options: %w", err)
	}

	*o = out

	return nil
}

func (o Options) MarshalJSON() ([]byte, error) {
	if o.keys == nil {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}

		val, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}
