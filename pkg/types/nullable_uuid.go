package types

import (
	"encoding/json"

	"github.com/google/uuid"
)

// NullableUUID distinguishes three PATCH states for an optional reference:
// absent (Valid false), explicit null (Valid true, Value nil) and set.
type NullableUUID struct {
	Valid bool
	Value *uuid.UUID
}

// SetUUID returns a present, non-null value.
func SetUUID(id uuid.UUID) NullableUUID {
	return NullableUUID{Valid: true, Value: &id}
}

// NullUUID returns an explicit null.
func NullUUID() NullableUUID {
	return NullableUUID{Valid: true}
}

// IsNull reports an explicit null.
func (n NullableUUID) IsNull() bool {
	return n.Valid && n.Value == nil
}

// UnmarshalJSON only runs when the key is present, which is what sets Valid.
func (n *NullableUUID) UnmarshalJSON(data []byte) error {
	var raw *uuid.UUID
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.Valid, n.Value = true, raw
	return nil
}

func (n NullableUUID) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value.String())
}
