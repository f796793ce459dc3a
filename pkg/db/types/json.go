package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONText stores pre-encoded JSON in a jsonb column (TEXT under sqlite).
type JSONText json.RawMessage

// Value serializes the payload for the driver.
func (j JSONText) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "{}", nil
	}
	if !json.Valid(j) {
		return nil, fmt.Errorf("invalid json payload")
	}
	return string(j), nil
}

// Scan restores the payload from driver output.
func (j *JSONText) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		*j = append((*j)[:0], v...)
		return nil
	case string:
		*j = JSONText(v)
		return nil
	default:
		return fmt.Errorf("unsupported json source type %T", src)
	}
}

// MarshalJSON emits the raw payload unchanged.
func (j JSONText) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON captures the raw payload unchanged.
func (j *JSONText) UnmarshalJSON(data []byte) error {
	*j = append((*j)[:0], data...)
	return nil
}

// GormDataType hints GORM at the column type for auto-migrated schemas.
func (JSONText) GormDataType() string {
	return "jsonb"
}
