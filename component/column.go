package component

import "math"

// Column is a typed, growable flat array. Values are exchanged with callers
// as float64 (every FieldType fits exactly in a float64 mantissa), but the
// backing storage is the field's declared numeric type.
type Column interface {
	// Len returns the column's current valid length.
	Len() int
	// EnsureLen grows the column (doubling capacity) so Len() >= n. Existing
	// values at indices below the old length are preserved; new slots are
	// zero-valued.
	EnsureLen(n int)
	// Get returns the value at row as a float64.
	Get(row int) float64
	// Set writes v (converted to the backing type) at row.
	Set(row int, v float64)
	// CopyRow copies the value at srcRow in src to dstRow in this column.
	// The columns must share the same FieldType.
	CopyRow(src Column, srcRow, dstRow int)
	// Poison overwrites row with a recognizable invalid value: NaN for
	// float columns, all-bits-set for integer columns.
	Poison(row int)
	// Type returns the backing FieldType.
	Type() FieldType
}

// NewColumnFor allocates a Column backed by t's numeric type, with length
// initialCap (zero-valued rows) and no spare capacity beyond that.
func NewColumnFor(t FieldType, initialCap int) Column {
	return newColumn(t, initialCap)
}

func newColumn(t FieldType, initialCap int) Column {
	if initialCap < 0 {
		initialCap = 0
	}
	// Columns are pre-sized to their full initial length (not just
	// capacity): callers index rows directly up to the archetype's or
	// registry's current dense capacity without an intervening EnsureLen
	// call, so Len() must already cover that range.
	switch t {
	case F32:
		return &f32Column{data: make([]float32, initialCap)}
	case F64:
		return &f64Column{data: make([]float64, initialCap)}
	case I8:
		return &i8Column{data: make([]int8, initialCap)}
	case I16:
		return &i16Column{data: make([]int16, initialCap)}
	case I32:
		return &i32Column{data: make([]int32, initialCap)}
	case U8:
		return &u8Column{data: make([]uint8, initialCap)}
	case U16:
		return &u16Column{data: make([]uint16, initialCap)}
	case U32:
		return &u32Column{data: make([]uint32, initialCap)}
	default:
		panic("component: unknown field type")
	}
}

func grow[T any](data []T, n int) []T {
	if n <= len(data) {
		return data
	}
	newCap := cap(data)
	if newCap == 0 {
		newCap = 1
	}
	for newCap < n {
		newCap *= 2
	}
	next := make([]T, n, newCap)
	copy(next, data)
	return next
}

type f32Column struct{ data []float32 }

func (c *f32Column) Len() int          { return len(c.data) }
func (c *f32Column) EnsureLen(n int)   { c.data = grow(c.data, n) }
func (c *f32Column) Get(row int) float64 { return float64(c.data[row]) }
func (c *f32Column) Set(row int, v float64) { c.data[row] = float32(v) }
func (c *f32Column) CopyRow(src Column, srcRow, dstRow int) {
	c.data[dstRow] = src.(*f32Column).data[srcRow]
}
func (c *f32Column) Poison(row int) { c.data[row] = float32(math.NaN()) }
func (c *f32Column) Type() FieldType { return F32 }
func (c *f32Column) Raw() []float32   { return c.data }

type f64Column struct{ data []float64 }

func (c *f64Column) Len() int          { return len(c.data) }
func (c *f64Column) EnsureLen(n int)   { c.data = grow(c.data, n) }
func (c *f64Column) Get(row int) float64 { return c.data[row] }
func (c *f64Column) Set(row int, v float64) { c.data[row] = v }
func (c *f64Column) CopyRow(src Column, srcRow, dstRow int) {
	c.data[dstRow] = src.(*f64Column).data[srcRow]
}
func (c *f64Column) Poison(row int) { c.data[row] = math.NaN() }
func (c *f64Column) Type() FieldType { return F64 }
func (c *f64Column) Raw() []float64   { return c.data }

type i8Column struct{ data []int8 }

func (c *i8Column) Len() int          { return len(c.data) }
func (c *i8Column) EnsureLen(n int)   { c.data = grow(c.data, n) }
func (c *i8Column) Get(row int) float64 { return float64(c.data[row]) }
func (c *i8Column) Set(row int, v float64) { c.data[row] = int8(v) }
func (c *i8Column) CopyRow(src Column, srcRow, dstRow int) {
	c.data[dstRow] = src.(*i8Column).data[srcRow]
}
func (c *i8Column) Poison(row int) { c.data[row] = -1 }
func (c *i8Column) Type() FieldType { return I8 }
func (c *i8Column) Raw() []int8      { return c.data }

type i16Column struct{ data []int16 }

func (c *i16Column) Len() int          { return len(c.data) }
func (c *i16Column) EnsureLen(n int)   { c.data = grow(c.data, n) }
func (c *i16Column) Get(row int) float64 { return float64(c.data[row]) }
func (c *i16Column) Set(row int, v float64) { c.data[row] = int16(v) }
func (c *i16Column) CopyRow(src Column, srcRow, dstRow int) {
	c.data[dstRow] = src.(*i16Column).data[srcRow]
}
func (c *i16Column) Poison(row int) { c.data[row] = -1 }
func (c *i16Column) Type() FieldType { return I16 }
func (c *i16Column) Raw() []int16     { return c.data }

type i32Column struct{ data []int32 }

func (c *i32Column) Len() int          { return len(c.data) }
func (c *i32Column) EnsureLen(n int)   { c.data = grow(c.data, n) }
func (c *i32Column) Get(row int) float64 { return float64(c.data[row]) }
func (c *i32Column) Set(row int, v float64) { c.data[row] = int32(v) }
func (c *i32Column) CopyRow(src Column, srcRow, dstRow int) {
	c.data[dstRow] = src.(*i32Column).data[srcRow]
}
func (c *i32Column) Poison(row int) { c.data[row] = -1 }
func (c *i32Column) Type() FieldType { return I32 }
func (c *i32Column) Raw() []int32     { return c.data }

type u8Column struct{ data []uint8 }

func (c *u8Column) Len() int          { return len(c.data) }
func (c *u8Column) EnsureLen(n int)   { c.data = grow(c.data, n) }
func (c *u8Column) Get(row int) float64 { return float64(c.data[row]) }
func (c *u8Column) Set(row int, v float64) { c.data[row] = uint8(v) }
func (c *u8Column) CopyRow(src Column, srcRow, dstRow int) {
	c.data[dstRow] = src.(*u8Column).data[srcRow]
}
func (c *u8Column) Poison(row int) { c.data[row] = math.MaxUint8 }
func (c *u8Column) Type() FieldType { return U8 }
func (c *u8Column) Raw() []uint8     { return c.data }

type u16Column struct{ data []uint16 }

func (c *u16Column) Len() int          { return len(c.data) }
func (c *u16Column) EnsureLen(n int)   { c.data = grow(c.data, n) }
func (c *u16Column) Get(row int) float64 { return float64(c.data[row]) }
func (c *u16Column) Set(row int, v float64) { c.data[row] = uint16(v) }
func (c *u16Column) CopyRow(src Column, srcRow, dstRow int) {
	c.data[dstRow] = src.(*u16Column).data[srcRow]
}
func (c *u16Column) Poison(row int) { c.data[row] = math.MaxUint16 }
func (c *u16Column) Type() FieldType { return U16 }
func (c *u16Column) Raw() []uint16    { return c.data }

type u32Column struct{ data []uint32 }

func (c *u32Column) Len() int          { return len(c.data) }
func (c *u32Column) EnsureLen(n int)   { c.data = grow(c.data, n) }
func (c *u32Column) Get(row int) float64 { return float64(c.data[row]) }
func (c *u32Column) Set(row int, v float64) { c.data[row] = uint32(v) }
func (c *u32Column) CopyRow(src Column, srcRow, dstRow int) {
	c.data[dstRow] = src.(*u32Column).data[srcRow]
}
func (c *u32Column) Poison(row int) { c.data[row] = math.MaxUint32 }
func (c *u32Column) Type() FieldType { return U32 }
func (c *u32Column) Raw() []uint32    { return c.data }
