package field

import "fmt"

// Kind is the semantic kind of a column.
type Kind string

// Column kinds.
const (
	KindInt    Kind = "int"
	KindString Kind = "string"
	KindText   Kind = "text"
	KindList   Kind = "list"
	KindBool   Kind = "bool"
)

// Kinds lists every kind known to the package.
var Kinds = []Kind{KindInt, KindString, KindText, KindList, KindBool}

// Valid reports if k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindInt, KindString, KindText, KindList, KindBool:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (k Kind) String() string { return string(k) }

// Descriptor describes a single column of an entity schema.
type Descriptor struct {
	Name       string            // column name
	Kind       Kind              // semantic kind
	Primary    bool              // primary key column
	Auto       bool              // vendor autoincrement
	Nullable   *bool             // nil when nullability is not declared
	Default    any               // literal default, valid when HasDefault is set
	HasDefault bool              // default clause requested
	SchemaType map[string]string // vendor -> base type override
}

// Bare reports if the descriptor carries no column options.
func (d *Descriptor) Bare() bool {
	return !d.Primary && !d.Auto && d.Nullable == nil && !d.HasDefault
}

// String implements fmt.Stringer.
func (d *Descriptor) String() string {
	return fmt.Sprintf("%s %s", d.Name, d.Kind)
}

// Builder is a fluent builder for a column descriptor.
type Builder struct {
	desc *Descriptor
}

// New returns a builder for a column of the given kind.
func New(name string, kind Kind) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Kind: kind}}
}

// Int returns a builder for an integer column.
func Int(name string) *Builder { return New(name, KindInt) }

// String returns a builder for a short string column.
func String(name string) *Builder { return New(name, KindString) }

// Text returns a builder for an unbounded text column.
func Text(name string) *Builder { return New(name, KindText) }

// List returns a builder for a column holding a comma-joined list of strings.
func List(name string) *Builder { return New(name, KindList) }

// Bool returns a builder for a boolean column.
func Bool(name string) *Builder { return New(name, KindBool) }

// Primary marks the column as the primary key.
func (b *Builder) Primary() *Builder {
	b.desc.Primary = true
	return b
}

// Auto marks the column as autoincrementing.
func (b *Builder) Auto() *Builder {
	b.desc.Auto = true
	return b
}

// Nullable declares the column nullability. Nullable(false) renders NOT NULL.
func (b *Builder) Nullable(null bool) *Builder {
	b.desc.Nullable = &null
	return b
}

// Default sets the literal default of the column.
func (b *Builder) Default(v any) *Builder {
	b.desc.Default = v
	b.desc.HasDefault = true
	return b
}

// SchemaType overrides the base type per vendor.
func (b *Builder) SchemaType(types map[string]string) *Builder {
	b.desc.SchemaType = types
	return b
}

// Descriptor returns the built descriptor.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}
