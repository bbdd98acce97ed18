// Package gatewaydata holds the canonical field set exchanged with the
// payment provider. Signing and verification both depend on the exact byte
// form produced here, so serialization rules live in one place.
package gatewaydata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

const (
	// FieldSign carries the signature itself and is never part of the
	// content that gets signed.
	FieldSign     = "sign"
	FieldSignType = "sign_type"
)

// Data is a field-name to string-value mapping. The canonical order is
// ascending by field name regardless of insertion order.
type Data struct {
	values map[string]string
}

func New() *Data {
	return &Data{values: make(map[string]string)}
}

// Set stores a field, stringifying the value. Empty values are dropped:
// the provider never signs absent fields, so carrying them would change
// the canonical form.
func (d *Data) Set(key string, value any) {
	s := cast.ToString(value)
	if key == "" || s == "" {
		return
	}
	d.values[key] = s
}

// SetObject flattens a struct into fields using its json tags.
func (d *Data) SetObject(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("flatten object: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("flatten object: %w", err)
	}
	for k, val := range m {
		d.Set(k, val)
	}
	return nil
}

func (d *Data) Get(key string) (string, bool) {
	v, ok := d.values[key]
	return v, ok
}

func (d *Data) Exists(key string) bool {
	_, ok := d.values[key]
	return ok
}

func (d *Data) Remove(key string) {
	delete(d.values, key)
}

func (d *Data) Clear() {
	d.values = make(map[string]string)
}

func (d *Data) Len() int {
	return len(d.values)
}

// Keys returns the field names in canonical (ascending) order.
func (d *Data) Keys() []string {
	keys := make([]string, 0, len(d.values))
	for k := range d.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// QueryString renders the canonical k=v&k=v form. Values are emitted raw,
// not percent-encoded: the signing convention is byte-stable on the raw
// value. With includeSign false the sign field is excluded, which is the
// form used both for signing outgoing requests and re-verifying inbound
// notifications.
func (d *Data) QueryString(includeSign bool) string {
	var b strings.Builder
	first := true
	for _, k := range d.Keys() {
		if !includeSign && k == FieldSign {
			continue
		}
		if !first {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(d.values[k])
		first = false
	}
	return b.String()
}

// URLEncoded renders the fields as a percent-encoded form body for the
// actual HTTP POST. Not used for signing.
func (d *Data) URLEncoded() string {
	form := url.Values{}
	for k, v := range d.values {
		form.Set(k, v)
	}
	return form.Encode()
}

// JSONFragment renders the fields as a compact JSON object with keys in
// canonical order and no HTML escaping, so forward slashes stay literal.
func (d *Data) JSONFragment() (string, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range d.Keys() {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := writeJSONString(&b, k); err != nil {
			return "", err
		}
		b.WriteByte(':')
		if err := writeJSONString(&b, d.values[k]); err != nil {
			return "", err
		}
	}
	b.WriteByte('}')
	return b.String(), nil
}

// Decode reconstructs a typed object from the fields. Provider fields are
// all delivered as strings, so targets declare string fields and convert
// at the edge.
func (d *Data) Decode(target any) error {
	raw, err := json.Marshal(d.values)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode fields: %w", err)
	}
	return nil
}

// ParseForm builds a Data from a decoded form, as delivered by the
// provider's notification callback. Repeated fields keep the first value.
func ParseForm(values url.Values) *Data {
	d := New()
	for k, vs := range values {
		if len(vs) > 0 {
			d.Set(k, vs[0])
		}
	}
	return d
}

// ParseQuery builds a Data from a raw query string.
func ParseQuery(raw string) (*Data, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	return ParseForm(values), nil
}

func writeJSONString(b *bytes.Buffer, s string) error {
	enc := json.NewEncoder(b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline; the fragment must stay compact.
	b.Truncate(b.Len() - 1)
	return nil
}
