package types

import (
	"encoding/json"
	"reflect"
)

// Relationship is a reference to another entity in a Document
type Relationship struct {
	ID   string `json:"id" bson:"id"`
	Type string `json:"type" bson:"type"`
}

// Document is the external, JSON-API like projection of an audit entry
type Document struct {
	Type          string                  `json:"type" bson:"type"`
	ID            string                  `json:"id,omitempty" bson:"id,omitempty"`
	Attributes    map[string]interface{}  `json:"attributes" bson:"attributes"`
	Relationships map[string]Relationship `json:"relationships" bson:"relationships"`
}

// NewDocument creates an empty document with the given discriminator
func NewDocument(typeName, id string) *Document {
	return &Document{
		Type:          typeName,
		ID:            id,
		Attributes:    make(map[string]interface{}),
		Relationships: make(map[string]Relationship),
	}
}

// HasAttribute reports whether the attribute key is present
func (d *Document) HasAttribute(key string) bool {
	_, ok := d.Attributes[key]
	return ok
}

// Equal reports whether two documents are structurally equal
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	return reflect.DeepEqual(d, other)
}

// MarshalJSON keeps empty mappings as {} instead of null
func (d Document) MarshalJSON() ([]byte, error) {
	type plain Document
	if d.Attributes == nil {
		d.Attributes = map[string]interface{}{}
	}
	if d.Relationships == nil {
		d.Relationships = map[string]Relationship{}
	}
	return json.Marshal(plain(d))
}
