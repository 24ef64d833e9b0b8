package component

import (
	"math"
	"testing"

	"gotest.tools/v3/assert"
)

func positionSchema() Schema {
	return Schema{
		Name: "Position",
		Fields: []Field{
			{Name: "x", Type: F32},
			{Name: "y", Type: F32},
		},
	}
}

func tagSchema() Schema {
	return Schema{Name: "Dead"}
}

func TestRegisterAssignsSequentialIDs(t *testing.T) {
	r := NewRegistry()
	a := r.Register(positionSchema())
	b := r.Register(tagSchema())
	assert.Equal(t, a, ID(0))
	assert.Equal(t, b, ID(1))
	assert.Equal(t, r.Count(), 2)
}

func TestTagSchemaHasNoFields(t *testing.T) {
	s := tagSchema()
	assert.Equal(t, s.IsTag(), true)
}

func TestSetAndGetField(t *testing.T) {
	r := NewRegistry()
	pos := r.Register(positionSchema())
	r.EnsureCapacity(4)

	assert.NilError(t, r.Set(pos, 2, []float64{1.5, -2.5}))
	x, err := r.GetField(pos, 2, 0)
	assert.NilError(t, err)
	assert.Equal(t, x, 1.5)
	y, _ := r.GetField(pos, 2, 1)
	assert.Equal(t, y, -2.5)
}

func TestSetFieldUnknownComponentErrors(t *testing.T) {
	r := NewRegistry()
	r.EnsureCapacity(4)
	err := r.SetField(99, 0, 0, 1)
	assert.Assert(t, err != nil)
}

func TestClearPoisonsFields(t *testing.T) {
	r := NewRegistry()
	pos := r.Register(positionSchema())
	r.EnsureCapacity(4)
	_ = r.Set(pos, 0, []float64{3, 4})

	assert.NilError(t, r.Clear(pos, 0))
	x, _ := r.GetField(pos, 0, 0)
	assert.Assert(t, math.IsNaN(x))
}

func TestEnsureCapacityGrowsExistingColumns(t *testing.T) {
	r := NewRegistry()
	pos := r.Register(positionSchema())
	r.EnsureCapacity(2)
	_ = r.Set(pos, 1, []float64{9, 9})

	r.EnsureCapacity(10)
	x, err := r.GetField(pos, 1, 0)
	assert.NilError(t, err)
	assert.Equal(t, x, float64(9))
}

func TestIntegerColumnPoisonIsAllBitsSet(t *testing.T) {
	r := NewRegistry()
	u := r.Register(Schema{Name: "Health", Fields: []Field{{Name: "hp", Type: U16}}})
	r.EnsureCapacity(1)
	_ = r.Set(u, 0, []float64{100})
	_ = r.Clear(u, 0)
	v, _ := r.GetField(u, 0, 0)
	assert.Equal(t, v, float64(math.MaxUint16))
}

func TestGetColumnReturnsSameUnderlyingStorage(t *testing.T) {
	r := NewRegistry()
	pos := r.Register(positionSchema())
	r.EnsureCapacity(4)
	_ = r.Set(pos, 3, []float64{7, 8})

	col, err := r.GetColumn(pos, 0)
	assert.NilError(t, err)
	assert.Equal(t, col.Get(3), float64(7))
	assert.Equal(t, col.Type(), F32)
}

func TestFieldIndexLookup(t *testing.T) {
	s := positionSchema()
	assert.Equal(t, s.FieldIndex("y"), 1)
	assert.Equal(t, s.FieldIndex("z"), -1)
}

func TestFieldTypeSizeAndString(t *testing.T) {
	cases := []struct {
		t    FieldType
		size int
		name string
	}{
		{F32, 4, "f32"},
		{F64, 8, "f64"},
		{I8, 1, "i8"},
		{I16, 2, "i16"},
		{I32, 4, "i32"},
		{U8, 1, "u8"},
		{U16, 2, "u16"},
		{U32, 4, "u32"},
	}
	for _, c := range cases {
		assert.Equal(t, c.t.Size(), c.size)
		assert.Equal(t, c.t.String(), c.name)
	}
}
