package vector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dtolpin/tapead/ad"
	"github.com/dtolpin/tapead/vector"
)

func TestNewIsZeroed(t *testing.T) {
	v := vector.New[float64](3)
	assert.Equal(t, 3, v.Len())
	for i := 0; i < v.Len(); i++ {
		assert.Equal(t, 0.0, v.At(i))
	}
}

func TestSetAndAtRoundTrip(t *testing.T) {
	v := vector.New[int](4)
	v.Set(2, 42)
	assert.Equal(t, 42, v.At(2))
	assert.Equal(t, 0, v.At(0))
}

func TestOfWrapsWithoutCopy(t *testing.T) {
	data := []string{"a", "b", "c"}
	v := vector.Of(data)
	v.Set(1, "z")
	assert.Equal(t, "z", data[1])
}

func TestOutOfRangeAccessPanicsWithUsageError(t *testing.T) {
	v := vector.New[float64](2)
	assert.PanicsWithValue(t, &ad.UsageError{Msg: "vector: index 2 out of range [0,2)"}, func() {
		v.At(2)
	})
	assert.Panics(t, func() { v.Set(-1, 1) })
}

func TestSliceExposesUnderlyingData(t *testing.T) {
	v := vector.New[float64](2)
	v.Set(0, 1.5)
	v.Set(1, 2.5)
	assert.Equal(t, []float64{1.5, 2.5}, v.Slice())
}
