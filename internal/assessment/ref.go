package assessment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Ref points at another document. On the wire it is either a bare id string
// or a populated object such as {"_id": "...", "name": "..."}.
type Ref struct {
	ID   string
	Name string
}

// IDOf returns the referenced id regardless of which shape was decoded.
func IDOf(r Ref) string { return strings.TrimSpace(r.ID) }

// RefTo is shorthand for a bare reference.
func RefTo(id string) Ref { return Ref{ID: id} }

func (r Ref) IsZero() bool { return r.ID == "" && r.Name == "" }

func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = Ref{}
		return nil
	}
	switch b[0] {
	case '"':
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	case '{':
		var obj struct {
			MongoID string `json:"_id"`
			ID      string `json:"id"`
			Name    string `json:"name"`
			Title   string `json:"title"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		id := obj.ID
		if id == "" {
			id = obj.MongoID
		}
		name := obj.Name
		if name == "" {
			name = obj.Title
		}
		*r = Ref{ID: id, Name: name}
		return nil
	default:
		return fmt.Errorf("reference must be a string or object, got %s", b)
	}
}

// MarshalJSON emits a bare id unless the reference has been populated.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.Name == "" {
		return json.Marshal(r.ID)
	}
	return json.Marshal(struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	}{r.ID, r.Name})
}
