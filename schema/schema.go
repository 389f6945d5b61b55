package schema

import (
	"errors"
	"fmt"

	"github.com/syssam/ardb/schema/field"
)

var (
	// ErrNoPrimary is returned when a schema declares no primary column.
	ErrNoPrimary = errors.New("schema: no primary column")

	// ErrMultiplePrimary is returned when more than one column is primary.
	ErrMultiplePrimary = errors.New("schema: more than one primary column")
)

// Mixer is implemented by reusable column sets.
type Mixer interface {
	Fields() []*field.Builder
}

// Schema describes the table backing an entity.
type Schema struct {
	// Table is the table name without prefix. It may be empty, in which
	// case the model layer derives it from the entity type name.
	Table string

	// Proxy is the prefix namespace of the table.
	Proxy string

	columns []*field.Descriptor
	index   map[string]int
	primary *field.Descriptor
}

// Option configures a Schema.
type Option func(*Schema) error

// Proxy sets the prefix namespace of the schema.
func Proxy(namespace string) Option {
	return func(s *Schema) error {
		s.Proxy = namespace
		return nil
	}
}

// Fields appends columns to the schema.
func Fields(fields ...*field.Builder) Option {
	return func(s *Schema) error {
		for _, f := range fields {
			if err := s.add(f.Descriptor()); err != nil {
				return err
			}
		}
		return nil
	}
}

// Mixin appends the columns of the given mixins.
func Mixin(mixins ...Mixer) Option {
	return func(s *Schema) error {
		for _, m := range mixins {
			if err := Fields(m.Fields()...)(s); err != nil {
				return err
			}
		}
		return nil
	}
}

// New builds a schema for the given table.
func New(table string, opts ...Option) (*Schema, error) {
	s := &Schema{Table: table, index: make(map[string]int)}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.primary == nil {
		return nil, fmt.Errorf("%w in %q", ErrNoPrimary, table)
	}
	return s, nil
}

// MustNew is like New but panics on error. It is intended for package-level
// schema declarations.
func MustNew(table string, opts ...Option) *Schema {
	s, err := New(table, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) add(d *field.Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("schema: %q: column without name", s.Table)
	}
	if _, ok := s.index[d.Name]; ok {
		return fmt.Errorf("schema: %q: duplicate column %q", s.Table, d.Name)
	}
	if d.Primary {
		if s.primary != nil {
			return fmt.Errorf("%w in %q: %q and %q", ErrMultiplePrimary, s.Table, s.primary.Name, d.Name)
		}
		s.primary = d
	}
	s.index[d.Name] = len(s.columns)
	s.columns = append(s.columns, d)
	return nil
}

// Columns returns the column descriptors in declaration order.
func (s *Schema) Columns() []*field.Descriptor {
	return s.columns
}

// Column returns the descriptor of the named column.
func (s *Schema) Column(name string) (*field.Descriptor, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.columns[i], true
}

// Primary returns the primary column descriptor.
func (s *Schema) Primary() *field.Descriptor {
	return s.primary
}

// PrimaryKey returns the name of the primary column.
func (s *Schema) PrimaryKey() string {
	return s.primary.Name
}
