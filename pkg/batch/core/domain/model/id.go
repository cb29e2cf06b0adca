package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ID is an identifier issued by the Flow API. The API emits ids both as JSON
// strings and as bare numbers; both decode to the same textual form.
type ID string

// String returns the identifier text.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the identifier is empty.
func (id ID) IsZero() bool {
	return id == ""
}

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number, got %s", string(data))
	}
	*id = ID(n.String())
	return nil
}

// NewID generates a new random identifier for locally created records such as a run.
func NewID() string {
	return uuid.New().String()
}
