// Package recordstore abstracts the property-typed document database the
// reconciliation engine writes to. The engine depends only on the Store
// interface; the production implementation (notion.go) talks to the Notion
// API, and tests substitute an in-memory fake.
package recordstore

import (
	"context"

	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/textnorm"
)

// PropType is a container property's underlying type as reported by the
// store's schema endpoint.
type PropType string

const (
	TypeTitle    PropType = "title"
	TypeRichText PropType = "rich_text"
	TypeNumber   PropType = "number"
	TypeRollup   PropType = "rollup"
	TypeSelect   PropType = "select"
	TypeEmail    PropType = "email"
	TypePhone    PropType = "phone_number"
	TypeRelation PropType = "relation"
	TypeDate     PropType = "date"
)

// Kind tags a property value being written.
type Kind int

const (
	KindTitle Kind = iota
	KindText
	KindNumber
	KindSelect
	KindEmail
	KindPhone
	KindRelation
	KindDate
)

// Value is a neutral property value. Exactly one of Text, Number, or
// Relation is meaningful depending on Kind; Date values carry the ISO date in
// Text.
type Value struct {
	Kind     Kind
	Text     string
	Number   float64
	Relation []string
}

type Properties map[string]Value

func Title(s string) Value        { return Value{Kind: KindTitle, Text: s} }
func Text(s string) Value         { return Value{Kind: KindText, Text: s} }
func Number(n float64) Value      { return Value{Kind: KindNumber, Number: n} }
func Select(s string) Value       { return Value{Kind: KindSelect, Text: s} }
func Email(s string) Value        { return Value{Kind: KindEmail, Text: s} }
func Phone(s string) Value        { return Value{Kind: KindPhone, Text: s} }
func Relation(ids ...string) Value { return Value{Kind: KindRelation, Relation: ids} }
func Date(iso string) Value       { return Value{Kind: KindDate, Text: iso} }

// Page is a stored document: its id, public URL, and the property values the
// engine reads back (title text, numbers, relation id lists).
type Page struct {
	ID    string
	URL   string
	Props Properties
}

// Relations returns the related page ids of a relation property, nil when
// the property is absent.
func (p *Page) Relations(property string) []string {
	if p == nil {
		return nil
	}
	v, ok := p.Props[property]
	if !ok || v.Kind != KindRelation {
		return nil
	}
	return v.Relation
}

// Schema is a container's live schema: display name plus property names and
// types. Property naming varies by container, so lookups go through Resolve
// rather than exact string equality.
type Schema struct {
	Name  string
	Types map[string]PropType

	index map[string]string
}

func NewSchema(name string, types map[string]PropType) *Schema {
	s := &Schema{Name: name, Types: types, index: make(map[string]string, len(types))}
	for actual := range types {
		s.index[textnorm.Key(actual)] = actual
	}
	return s
}

// Resolve maps a configured property name to the container's actual spelling,
// comparing case-, whitespace-, and Unicode-form-insensitively.
func (s *Schema) Resolve(name string) (string, bool) {
	actual, ok := s.index[textnorm.Key(name)]
	return actual, ok
}

// TypeOf returns the underlying type of an actual property name.
func (s *Schema) TypeOf(actual string) PropType {
	return s.Types[actual]
}

// Store is the operation surface the reconciliation engine needs. Query
// methods page through the container until exhausted. FindBy* return
// (nil, nil) when nothing matches.
type Store interface {
	// Schema retrieves the container's display name and property map.
	Schema(ctx context.Context, databaseID string) (*Schema, error)

	// FindByRegistryCode matches property == code, adapting the filter
	// shape to the property's underlying type (number, rollup-of-number,
	// or text).
	FindByRegistryCode(ctx context.Context, databaseID, property, code string) (*Page, error)

	// FindByTitle matches a title property exactly.
	FindByTitle(ctx context.Context, databaseID, property, title string) (*Page, error)

	// CountByTitle counts entries whose title property equals title.
	CountByTitle(ctx context.Context, databaseID, property, title string) (int, error)

	// CountByRelation counts entries whose relation property contains
	// pageID.
	CountByRelation(ctx context.Context, databaseID, property, pageID string) (int, error)

	// MaxNumber returns the largest value of a number property, 0 when the
	// container is empty.
	MaxNumber(ctx context.Context, databaseID, property string) (int, error)

	// Create inserts a document with typed properties.
	Create(ctx context.Context, databaseID string, props Properties) (*Page, error)

	// Update overwrites the given properties on an existing document.
	Update(ctx context.Context, pageID string, props Properties) (*Page, error)
}
