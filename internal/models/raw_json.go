package models

import (
	"database/sql/driver"
	"fmt"
)

// RawJSON is an uninterpreted JSON payload. It is stored and returned
// exactly as received.
type RawJSON []byte

func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func (r *RawJSON) UnmarshalJSON(b []byte) error {
	if r == nil {
		return fmt.Errorf("models.RawJSON: UnmarshalJSON on nil pointer")
	}
	*r = append((*r)[0:0], b...)
	return nil
}

func (r RawJSON) Clone() RawJSON {
	if r == nil {
		return nil
	}
	return append(RawJSON(nil), r...)
}

func (RawJSON) GormDataType() string {
	return "text"
}

func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return string(r), nil
}

func (r *RawJSON) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = nil
	case []byte:
		*r = append(RawJSON(nil), v...)
	case string:
		*r = RawJSON(v)
	default:
		return fmt.Errorf("models.RawJSON: cannot scan %T", src)
	}
	return nil
}
