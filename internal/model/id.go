package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrBadID reports an id that is neither a JSON string nor a number.
var ErrBadID = errors.New("id must be a string or number")

// DecodeID reads an id written as a JSON string or number. Documents kept
// by json-server and Canvas exports use integer ids; they are held as text.
// A missing or null id decodes to "".
func DecodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", ErrBadID
}

func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	aux := struct {
		ID json.RawMessage `json:"id"`
		*plain
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, err := DecodeID(aux.ID)
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func (c *Course) UnmarshalJSON(data []byte) error {
	type plain Course
	aux := struct {
		ID json.RawMessage `json:"id"`
		*plain
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, err := DecodeID(aux.ID)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}
