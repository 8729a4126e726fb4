package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrUnknownKind = errors.New("unknown document kind")
	ErrNotFound    = errors.New("document not found")
	ErrMissingID   = errors.New("document id is required")
)

// Kind identifies the business document type.
type Kind string

const (
	KindInvoice         Kind = "invoice"
	KindPurchaseOrder   Kind = "purchase-order"
	KindDeliveryReceipt Kind = "delivery-receipt"
)

// Kinds lists every supported kind in canonical order.
var Kinds = []Kind{KindInvoice, KindDeliveryReceipt, KindPurchaseOrder}

func (k Kind) Valid() bool {
	switch k {
	case KindInvoice, KindPurchaseOrder, KindDeliveryReceipt:
		return true
	}

	return false
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}

	return k, nil
}

// Field is a single name/value pair as found in headers, fields and items.
type Field struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type Fields []Field

// Get returns the first value stored under name, rendered as a string.
// Null values are reported as absent.
func (f Fields) Get(name string) (string, bool) {
	for _, field := range f {
		if field.Name != name {
			continue
		}

		s, ok := stringify(field.Value)
		if !ok {
			return "", false
		}

		return s, true
	}

	return "", false
}

// First returns the first non-empty value among the given names.
func (f Fields) First(names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := f.Get(name); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
	}

	return "", false
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprint(t), true
	}
}

// Payload is the canonical wire shape of a document.
type Payload struct {
	ID        string        `json:"id"`
	Kind      string        `json:"kind"`
	Site      string        `json:"site,omitempty"`
	Stage     string        `json:"stage,omitempty"`
	Version   string        `json:"version,omitempty"`
	CreatedAt string        `json:"created_at,omitempty"`
	Headers   Fields        `json:"headers"`
	Fields    Fields        `json:"fields,omitempty"`
	Items     []ItemPayload `json:"items,omitempty"`
}

// ItemPayload is a line item. Items arrive either with a fields list or with
// their values as direct keys; both end up in Fields.
type ItemPayload struct {
	Fields Fields `json:"fields"`
}

func (p *ItemPayload) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding item: %w", err)
	}

	p.Fields = nil

	if rawFields, ok := raw["fields"]; ok {
		if err := json.Unmarshal(rawFields, &p.Fields); err != nil {
			return fmt.Errorf("decoding item fields: %w", err)
		}
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		if k != "fields" {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)

	for _, k := range keys {
		var v any
		if err := json.Unmarshal(raw[k], &v); err != nil {
			return fmt.Errorf("decoding item key %s: %w", k, err)
		}

		switch v.(type) {
		case map[string]any, []any:
			continue
		}

		p.Fields = append(p.Fields, Field{Name: k, Value: v})
	}

	return nil
}

// lookup resolves a document-level value: headers first, then fields.
func (p *Payload) lookup(names ...string) (string, bool) {
	if v, ok := p.Headers.First(names...); ok {
		return v, true
	}

	return p.Fields.First(names...)
}
