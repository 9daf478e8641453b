package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// TimestampLayout is the ISO-8601 layout used for server-assigned timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Transaction is one mobile-money record held by the store.
// ID is assigned by the store and never changes after insertion.
type Transaction struct {
	ID        int64   `json:"id"`
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	Sender    string  `json:"sender"`
	Receiver  string  `json:"receiver"`
	Timestamp string  `json:"timestamp"`
	Message   string  `json:"message,omitempty"`

	// Extra holds caller-supplied keys outside the fixed schema when the
	// store runs in passthrough mode. They are emitted inline in JSON.
	Extra map[string]json.RawMessage `json:"-"`
}

// RawRecord is a transaction as produced by the record loader, before an
// identifier has been assigned.
type RawRecord struct {
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	Sender    string  `json:"sender"`
	Receiver  string  `json:"receiver"`
	Timestamp string  `json:"timestamp"`
	Message   string  `json:"message,omitempty"`

	// Extra carries passthrough keys read back from a JSON snapshot.
	Extra map[string]json.RawMessage `json:"-"`
}

// schemaFields are the keys owned by the fixed transaction schema.
var schemaFields = map[string]bool{
	"id": true, "type": true, "amount": true, "sender": true,
	"receiver": true, "timestamp": true, "message": true,
}

// rawRecordFields prevents UnmarshalJSON from recursing.
type rawRecordFields RawRecord

// UnmarshalJSON decodes the schema fields and keeps every other key
// except "id" in Extra.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	var base rawRecordFields
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k, v := range all {
		if schemaFields[k] {
			continue
		}
		if base.Extra == nil {
			base.Extra = make(map[string]json.RawMessage)
		}
		base.Extra[k] = v
	}

	*r = RawRecord(base)
	return nil
}

// FromRaw copies loader output into a Transaction with the given id.
func FromRaw(id int64, r RawRecord) *Transaction {
	t := &Transaction{
		ID:        id,
		Type:      r.Type,
		Amount:    r.Amount,
		Sender:    r.Sender,
		Receiver:  r.Receiver,
		Timestamp: r.Timestamp,
		Message:   r.Message,
	}
	if len(r.Extra) > 0 {
		t.Extra = copyExtra(r.Extra)
	}
	return t
}

// ExtraJSON encodes the passthrough keys as one JSON object, or returns
// nil when there are none.
func (t *Transaction) ExtraJSON() ([]byte, error) {
	if len(t.Extra) == 0 {
		return nil, nil
	}
	return json.Marshal(t.Extra)
}

// Clone returns a deep copy so stored records can't be mutated by callers.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.Extra != nil {
		c.Extra = copyExtra(t.Extra)
	}
	return &c
}

func copyExtra(extra map[string]json.RawMessage) map[string]json.RawMessage {
	c := make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		c[k] = append(json.RawMessage(nil), v...)
	}
	return c
}

// Apply merges the provided patch fields into t. The id is never touched.
func (t *Transaction) Apply(p Patch) {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Sender != nil {
		t.Sender = *p.Sender
	}
	if p.Receiver != nil {
		t.Receiver = *p.Receiver
	}
	if p.Timestamp != nil {
		t.Timestamp = *p.Timestamp
	}
	if p.Message != nil {
		t.Message = *p.Message
	}
	if len(p.Extra) > 0 {
		if t.Extra == nil {
			t.Extra = make(map[string]json.RawMessage, len(p.Extra))
		}
		for k, v := range p.Extra {
			t.Extra[k] = v
		}
	}
}

// transactionFields prevents MarshalJSON from recursing.
type transactionFields Transaction

// MarshalJSON emits the fixed schema followed by any passthrough keys.
// Passthrough keys never shadow schema fields.
func (t Transaction) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(transactionFields(t))
	if err != nil {
		return nil, err
	}
	if len(t.Extra) == 0 {
		return base, nil
	}

	merged := make(map[string]json.RawMessage, len(t.Extra)+7)
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, fmt.Errorf("merge extra fields: %w", err)
	}

	keys := make([]string, 0, len(t.Extra))
	for k := range t.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, exists := merged[k]; exists {
			continue
		}
		merged[k] = t.Extra[k]
	}

	return json.Marshal(merged)
}
