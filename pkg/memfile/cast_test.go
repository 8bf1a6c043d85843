package memfile

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCastableScalarsAndComposites(t *testing.T) {
	type point struct{ X, Y int32 }
	type frame struct {
		Seq    uint64
		Points [16]point
		Flags  [4]bool
	}

	for _, v := range []interface{}{
		int8(0), uint64(0), float32(0), float64(0), true, rune(0), byte(0),
		[32]byte{}, point{}, frame{}, complex128(0),
	} {
		assert.NoError(t, checkCastable(reflect.TypeOf(v)), "%T", v)
	}
}

func TestCastableRejectsPointerBearingKinds(t *testing.T) {
	type withMap struct{ M map[string]int }
	type withSlice struct{ S []byte }
	type nested struct {
		Inner struct{ P *int }
	}

	for _, v := range []interface{}{
		"", []byte(nil), map[string]int(nil), make(chan int), (*int)(nil),
		withMap{}, withSlice{}, nested{},
	} {
		assert.ErrorIs(t, checkCastable(reflect.TypeOf(v)), ErrInvalidCast, "%T", v)
	}
}

func TestCastCheckIsCached(t *testing.T) {
	type cachedProbe struct{ A, B uint16 }
	typ := reflect.TypeOf(cachedProbe{})

	assert.NoError(t, checkCastable(typ))
	cached, ok := castCache.Get(typ.String())
	assert.True(t, ok)
	assert.NoError(t, cached)
}
