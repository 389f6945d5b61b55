package mixin

import "github.com/syssam/ardb/schema/field"

// ID contributes an autoincrementing integer primary key. The column is
// named "id" unless Column is set.
type ID struct {
	Column string
}

// Fields implements schema.Mixer.
func (m ID) Fields() []*field.Builder {
	name := m.Column
	if name == "" {
		name = "id"
	}
	return []*field.Builder{
		field.Int(name).Primary().Auto(),
	}
}

// Tenant contributes a required tenant column, "tenant_id" unless Column
// is set.
type Tenant struct {
	Column string
}

// Fields implements schema.Mixer.
func (m Tenant) Fields() []*field.Builder {
	name := m.Column
	if name == "" {
		name = "tenant_id"
	}
	return []*field.Builder{
		field.String(name).Nullable(false),
	}
}

// Columns is an ad-hoc mixin built from a list of field builders.
type Columns []*field.Builder

// Fields implements schema.Mixer.
func (c Columns) Fields() []*field.Builder {
	return c
}
