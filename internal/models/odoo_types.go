package models

import (
	"encoding/json"
	"errors"
)

// OdooString is a custom string type that handles Odoo's dynamic typing.
// Odoo returns `false` (boolean) for empty text fields instead of an empty
// string. This type implements json.Unmarshaler to handle both.
type OdooString string

// UnmarshalJSON handles dynamic typing from Odoo
func (os *OdooString) UnmarshalJSON(data []byte) error {
	// 1. Try string
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*os = OdooString(s)
		return nil
	}

	// 2. Try boolean (Odoo returns false for empty strings)
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if !b {
			*os = ""
			return nil
		}
		*os = "true"
		return nil
	}

	return errors.New("OdooString: cannot unmarshal value into string")
}

// String returns native string value
func (os OdooString) String() string {
	return string(os)
}

// OdooFloat is a numeric field that arrives as false when unset
type OdooFloat float64

// UnmarshalJSON handles dynamic typing from Odoo
func (f *OdooFloat) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = OdooFloat(v)
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil && !b {
		*f = 0
		return nil
	}

	return errors.New("OdooFloat: cannot unmarshal value into float")
}

// Float64 returns the native float value
func (f OdooFloat) Float64() float64 {
	return float64(f)
}

// OdooInt is an integer field that arrives as false when unset
type OdooInt int64

// UnmarshalJSON handles dynamic typing from Odoo
func (i *OdooInt) UnmarshalJSON(data []byte) error {
	var v int64
	if err := json.Unmarshal(data, &v); err == nil {
		*i = OdooInt(v)
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil && !b {
		*i = 0
		return nil
	}

	return errors.New("OdooInt: cannot unmarshal value into int")
}

// Int64 returns the native integer value
func (i OdooInt) Int64() int64 {
	return int64(i)
}

// Many2One is a relation field as returned by Odoo: a [id, label] pair,
// a bare id, or false when unset.
type Many2One struct {
	ID   int64
	Name string
	Set  bool
}

// UnmarshalJSON handles the three wire shapes of a many2one value
func (m *Many2One) UnmarshalJSON(data []byte) error {
	// 1. Try [id, label] pair
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) >= 1 {
			if err := json.Unmarshal(pair[0], &m.ID); err != nil {
				return err
			}
		}
		if len(pair) >= 2 {
			_ = json.Unmarshal(pair[1], &m.Name)
		}
		m.Set = true
		return nil
	}

	// 2. Try bare id
	var id int64
	if err := json.Unmarshal(data, &id); err == nil {
		m.ID = id
		m.Set = true
		return nil
	}

	// 3. Try boolean false (unset relation)
	var b bool
	if err := json.Unmarshal(data, &b); err == nil && !b {
		*m = Many2One{}
		return nil
	}

	return errors.New("Many2One: cannot unmarshal value")
}

// MarshalJSON writes the pair form, or false when unset
func (m Many2One) MarshalJSON() ([]byte, error) {
	if !m.Set {
		return []byte("false"), nil
	}
	return json.Marshal([]interface{}{m.ID, m.Name})
}
