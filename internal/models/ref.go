package models

import (
	"bytes"
	"encoding/json"
)

// Ref is a foreign key that the API returns either as a bare id or as a
// populated document such as {"_id": "...", "name": "..."}.
type Ref struct {
	ID   string
	Name string
}

// UnmarshalJSON accepts both representations.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}
	var doc struct {
		ID       string `json:"_id"`
		Name     string `json:"name"`
		FullName string `json:"fullName"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	name := doc.Name
	if name == "" {
		name = doc.FullName
	}
	*r = Ref{ID: doc.ID, Name: name}
	return nil
}

// MarshalJSON always writes the bare id.
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}
