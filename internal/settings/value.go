package settings

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Podjisin/saresari-pos/internal/store"
)

// Kind is the stored type of a setting value.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindJSON    Kind = "json"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindString, KindNumber, KindBoolean, KindJSON:
		return true
	}
	return false
}

// ParseKind converts s to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", store.Validation("unknown setting type %q", s)
	}
	return k, nil
}

// InferKind picks the kind a Go value is stored as.
func InferKind(v any) Kind {
	switch v.(type) {
	case string:
		return KindString
	case bool:
		return KindBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number, decimal.Decimal:
		return KindNumber
	default:
		return KindJSON
	}
}

// Encode renders v as the text stored for kind. Strings are stored raw.
func Encode(v any, kind Kind) (string, error) {
	switch kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return fmt.Sprint(v), nil
		}
		return s, nil
	case KindNumber:
		switch n := v.(type) {
		case float64:
			return strconv.FormatFloat(n, 'f', -1, 64), nil
		case float32:
			return strconv.FormatFloat(float64(n), 'f', -1, 32), nil
		case string:
			if _, err := strconv.ParseFloat(n, 64); err != nil {
				return "", store.Validation("%q is not a number", n)
			}
			return n, nil
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number, decimal.Decimal:
			return fmt.Sprint(n), nil
		default:
			return "", store.Validation("%T is not a number", v)
		}
	case KindBoolean:
		switch b := v.(type) {
		case bool:
			return strconv.FormatBool(b), nil
		case string:
			return strconv.FormatBool(strings.EqualFold(b, "true")), nil
		default:
			return "", store.Validation("%T is not a boolean", v)
		}
	case KindJSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", store.Validation("value is not JSON encodable: %v", err)
		}
		return string(raw), nil
	default:
		return "", store.Validation("unknown setting type %q", kind)
	}
}

// Decode converts stored text back into a Go value: number becomes float64,
// boolean is true only for "true" (any case), json is unmarshalled into any.
// A NULL value decodes to nil.
func Decode(raw *string, kind Kind) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch kind {
	case KindNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(*raw), 64)
		if err != nil {
			return nil, fmt.Errorf("decode number %q: %w", *raw, err)
		}
		return f, nil
	case KindBoolean:
		return strings.EqualFold(strings.TrimSpace(*raw), "true"), nil
	case KindJSON:
		var v any
		if err := json.Unmarshal([]byte(*raw), &v); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return v, nil
	default:
		return *raw, nil
	}
}
