// Package component implements the component schema registry: component IDs
// are assigned in registration order, and each field of each schema is
// backed by one flat, typed, slot-indexed column.
package component

import "github.com/rotisserie/eris"

// FieldType is the closed set of numeric backing types a schema field may
// declare.
type FieldType uint8

const (
	F32 FieldType = iota
	F64
	I8
	I16
	I32
	U8
	U16
	U32
)

// Size returns the byte width of the backing type.
func (t FieldType) Size() int {
	switch t {
	case F32, I32, U32:
		return 4
	case F64:
		return 8
	case I8, U8:
		return 1
	case I16, U16:
		return 2
	default:
		return 0
	}
}

func (t FieldType) String() string {
	switch t {
	case F32:
		return "f32"
	case F64:
		return "f64"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	default:
		return "unknown"
	}
}

// Field is one named, typed member of a Schema.
type Field struct {
	Name string
	Type FieldType
}

// Schema is an ordered, named list of fields. A Schema with zero fields is a
// tag: it participates in archetype signatures but owns no storage.
type Schema struct {
	Name   string
	Fields []Field
}

// IsTag reports whether the schema has no fields.
func (s Schema) IsTag() bool { return len(s.Fields) == 0 }

// FieldIndex returns the index of the named field, or -1 if absent.
func (s Schema) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// ID is a dense, non-negative component identifier assigned in registration
// order.
type ID int

// ErrUnknownComponent is returned when an operation references a component
// ID that was never registered.
var ErrUnknownComponent = eris.New("component: unknown component")
