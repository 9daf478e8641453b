package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidField is returned when a known field has the wrong JSON type.
	ErrInvalidField = errors.New("invalid field")
	// ErrUnknownField is returned in strict mode for keys outside the schema.
	ErrUnknownField = errors.New("unknown field")
	// ErrMissingFields is returned when a create payload lacks required keys.
	ErrMissingFields = errors.New("missing required fields")
)

// RequiredFields must all be present in a create payload.
var RequiredFields = []string{"type", "amount", "sender", "receiver"}

// Patch is a partial transaction. Nil pointers mean "not provided".
type Patch struct {
	Type      *string
	Amount    *float64
	Sender    *string
	Receiver  *string
	Timestamp *string
	Message   *string

	Extra map[string]json.RawMessage
}

// DecodePatch converts a decoded JSON object into a Patch, field by field.
// The "id" key is always dropped. With strict set, keys outside the schema
// are rejected; otherwise they are carried in Extra.
func DecodePatch(fields map[string]json.RawMessage, strict bool) (Patch, error) {
	var p Patch
	for key, raw := range fields {
		var err error
		switch key {
		case "id":
			continue
		case "type":
			p.Type, err = decodeString(key, raw)
		case "amount":
			p.Amount, err = decodeNumber(key, raw)
		case "sender":
			p.Sender, err = decodeString(key, raw)
		case "receiver":
			p.Receiver, err = decodeString(key, raw)
		case "timestamp":
			p.Timestamp, err = decodeString(key, raw)
		case "message":
			p.Message, err = decodeString(key, raw)
		default:
			if strict {
				return Patch{}, fmt.Errorf("%w %q", ErrUnknownField, key)
			}
			if p.Extra == nil {
				p.Extra = make(map[string]json.RawMessage)
			}
			p.Extra[key] = append(json.RawMessage(nil), raw...)
		}
		if err != nil {
			return Patch{}, err
		}
	}
	return p, nil
}

// CheckRequired reports every required key absent from fields.
func CheckRequired(fields map[string]json.RawMessage) error {
	for _, name := range RequiredFields {
		if _, ok := fields[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(RequiredFields, ", "))
		}
	}
	return nil
}

// NewTransaction builds an unsaved transaction from a create patch.
func NewTransaction(p Patch) *Transaction {
	t := &Transaction{}
	t.Apply(p)
	return t
}

func decodeString(key string, raw json.RawMessage) (*string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %s must be a string", ErrInvalidField, key)
	}
	return &s, nil
}

func decodeNumber(key string, raw json.RawMessage) (*float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidField, key)
	}
	return &f, nil
}
