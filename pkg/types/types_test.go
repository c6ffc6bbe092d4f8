/*
 *     Copyright (c) 2023. Raft LLC
 *
 *     This program is free software: you can redistribute it and/or modify
 *     it under the terms of the GNU General Public License as published by
 *     the Free Software Foundation, either version 3 of the License, or
 *     (at your option) any later version.
 *
 *     This program is distributed in the hope that it will be useful,
 *     but WITHOUT ANY WARRANTY; without even the implied warranty of
 *     MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *     GNU General Public License for more details.
 *
 *     You should have received a copy of the GNU General Public License
 *     along with this program.  If not, see <https://www.gnu.org/licenses/>.
 *
 */

package types_test

import (
	"errors"
	"math"
	"testing"

	"github.com/European-XFEL/Karabo-sub014/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindRegistry(t *testing.T) {
	assert.Equal(t, uint32(0), types.Bool.ID())
	assert.Equal(t, uint32(12), types.Int32.ID())
	assert.Equal(t, uint32(28), types.String.ID())
	assert.Equal(t, uint32(30), types.Hash.ID())
	assert.Equal(t, uint32(31), types.VectorHash.ID())
	assert.Equal(t, uint32(47), types.Schema.ID())
	assert.Equal(t, uint32(49), types.None.ID())
	assert.Equal(t, uint32(51), types.ByteArray.ID())

	for id := uint32(0); id <= types.VectorHashPointer.ID(); id++ {
		k, err := types.FromID(id)
		require.NoError(t, err)
		byName, err := types.FromName(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, byName)
	}

	_, err := types.FromID(999)
	assert.ErrorIs(t, err, types.ErrUnknownType)
	_, err = types.FromName("VECTOR_FOO")
	assert.ErrorIs(t, err, types.ErrUnknownType)

	assert.False(t, types.PtrInt32.Serializable())
	assert.True(t, types.None.Serializable())
	assert.True(t, types.VectorChar.IsVector())
	assert.True(t, types.VectorChar.IsBytes())

	vk, ok := types.Double.VectorKind()
	assert.True(t, ok)
	assert.Equal(t, types.VectorDouble, vk)
	ek, ok := types.VectorHash.ElementKind()
	assert.True(t, ok)
	assert.Equal(t, types.Hash, ek)
}

func TestNewValue(t *testing.T) {
	v, err := types.NewValue(types.Int32, int32(7))
	require.NoError(t, err)
	assert.Equal(t, types.Int32, v.Kind())

	_, err = types.NewValue(types.Int32, int64(7))
	assert.ErrorIs(t, err, types.ErrType)

	_, err = types.NewValue(types.None, 1)
	assert.ErrorIs(t, err, types.ErrType)

	v, err = types.NewValue(types.VectorDouble, []float64(nil))
	require.NoError(t, err)
	assert.Equal(t, 0, v.Len())
	assert.NotNil(t, v.Data())
}

func TestCopyDoesNotAlias(t *testing.T) {
	src := []int32{1, 2, 3}
	v := types.MustValue(types.VectorInt32, src)
	c := v.Copy()
	src[0] = 99
	assert.Equal(t, []int32{1, 2, 3}, c.Data())
}

func TestConvert(t *testing.T) {

	tests := []struct {
		name string
		from types.Value
		to   types.Kind
		want any
	}{
		{"int to string", types.MustValue(types.Int32, int32(-42)), types.String, "-42"},
		{"string to double", types.MustValue(types.String, " 2.5 "), types.Double, 2.5},
		{"bool to string", types.MustValue(types.Bool, true), types.String, "true"},
		{"string to bool", types.MustValue(types.String, "1"), types.Bool, true},
		{"uint8 widens to int64", types.MustValue(types.Uint8, uint8(200)), types.Int64, int64(200)},
		{"double truncates to int", types.MustValue(types.Double, 3.9), types.Int32, int32(3)},
		{"scalar to vector", types.MustValue(types.Int16, int16(5)), types.VectorInt32, []int32{5}},
		{"vector to vector", types.MustValue(types.VectorInt32, []int32{1, 2}), types.VectorDouble, []float64{1, 2}},
		{"string to vector", types.MustValue(types.String, "1,2,3"), types.VectorUint16, []uint16{1, 2, 3}},
		{"vector to string", types.MustValue(types.VectorDouble, []float64{1.5, -2}), types.String, "1.5,-2"},
		{"vector bool to string", types.MustValue(types.VectorBool, []bool{true, false}), types.String, "1,0"},
		{"hex string", types.MustValue(types.String, "0x1F"), types.Int32, int32(31)},
		{"bytes to uint8 vector", types.MustValue(types.VectorChar, []byte("AB")), types.VectorUint8, []byte{65, 66}},
		{"complex string", types.MustValue(types.String, "(1,-2)"), types.ComplexDouble, complex(1, -2)},
		{"string list", types.MustValue(types.String, "a, b"), types.VectorString, []string{"a", " b"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := types.Convert(tc.from, tc.to)
			require.NoError(t, err)
			assert.Equal(t, tc.to, got.Kind())
			assert.Equal(t, tc.want, got.Data())
		})
	}
}

func TestConvertErrors(t *testing.T) {

	tests := []struct {
		name string
		from types.Value
		to   types.Kind
		want error
	}{
		{"narrowing overflow", types.MustValue(types.Int32, int32(300)), types.Int8, types.ErrRange},
		{"negative to unsigned", types.MustValue(types.Int32, int32(-1)), types.Uint32, types.ErrRange},
		{"unparsable number", types.MustValue(types.String, "abc"), types.Int32, types.ErrType},
		{"out of range text", types.MustValue(types.String, "70000"), types.Int16, types.ErrRange},
		{"float overflow", types.MustValue(types.Double, 1e300), types.Float, types.ErrRange},
		{"nan to int", types.MustValue(types.Double, math.NaN()), types.Int64, types.ErrRange},
		{"imaginary to real", types.MustValue(types.ComplexDouble, complex(1, 1)), types.Double, types.ErrType},
		{"separator in string member", types.MustValue(types.VectorString, []string{"a,b"}), types.String, types.ErrType},
		{"single empty string member", types.MustValue(types.VectorString, []string{""}), types.String, types.ErrType},
		{"vector to scalar", types.MustValue(types.VectorInt32, []int32{1}), types.Int32, types.ErrType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := types.Convert(tc.from, tc.to)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestTextRoundTrip(t *testing.T) {
	values := []types.Value{
		types.MustValue(types.Float, float32(0.1)),
		types.MustValue(types.Double, 1.0/3.0),
		types.MustValue(types.Int64, int64(math.MinInt64)),
		types.MustValue(types.Uint64, uint64(math.MaxUint64)),
		types.MustValue(types.VectorComplexFloat, []complex64{complex(1, 2), complex(-0.5, 0)}),
		types.MustValue(types.Char, byte('x')),
	}
	for _, v := range values {
		s, err := types.ToText(v)
		require.NoError(t, err)
		back, err := types.FromText(s, v.Kind())
		require.NoError(t, err)
		assert.True(t, types.Equal(v, back), "%s did not survive %q", v.Kind(), s)
	}
}

func TestEqual(t *testing.T) {
	nan := math.NaN()
	assert.True(t, types.Equal(types.MustValue(types.Double, nan), types.MustValue(types.Double, nan)))
	assert.False(t, types.Equal(types.MustValue(types.Double, 0.0), types.MustValue(types.Double, math.Copysign(0, -1))))
	assert.False(t, types.Equal(types.MustValue(types.Int32, int32(1)), types.MustValue(types.Int64, int64(1))))
	assert.True(t, types.Equal(
		types.MustValue(types.VectorComplexDouble, []complex128{complex(nan, 1)}),
		types.MustValue(types.VectorComplexDouble, []complex128{complex(nan, 1)})))
	assert.True(t, types.Equal(types.NoneValue(), types.NoneValue()))
}

func TestCompare(t *testing.T) {
	c, err := types.Compare(types.MustValue(types.Int8, int8(-1)), types.MustValue(types.Uint64, uint64(math.MaxUint64)))
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = types.Compare(types.MustValue(types.Uint32, uint32(10)), types.MustValue(types.Double, 9.5))
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = types.Compare(types.MustValue(types.Int64, int64(5)), types.MustValue(types.Uint8, uint8(5)))
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	_, err = types.Compare(types.MustValue(types.String, "1"), types.MustValue(types.Int32, int32(1)))
	assert.ErrorIs(t, err, types.ErrType)

	_, err = types.Compare(types.MustValue(types.Double, math.NaN()), types.MustValue(types.Int32, int32(1)))
	assert.ErrorIs(t, err, types.ErrRange)
}

func TestInfer(t *testing.T) {

	tests := []struct {
		in   any
		kind types.Kind
		data any
	}{
		{nil, types.None, nil},
		{true, types.Bool, true},
		{42, types.Int32, int32(42)},
		{1 << 40, types.Int64, int64(1 << 40)},
		{uint(7), types.Uint32, uint32(7)},
		{3.5, types.Double, 3.5},
		{"x", types.String, "x"},
		{[]byte("ab"), types.VectorChar, []byte("ab")},
		{[]int{1, 2}, types.VectorInt32, []int32{1, 2}},
		{[]int{1, 1 << 40}, types.VectorInt64, []int64{1, 1 << 40}},
		{[]any{1.5, 2.5}, types.VectorDouble, []float64{1.5, 2.5}},
		{[]any{1, 2}, types.VectorInt32, []int32{1, 2}},
		{[]any{}, types.VectorString, []string{}},
	}

	for _, tc := range tests {
		v, err := types.Infer(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.kind, v.Kind(), "%#v", tc.in)
		assert.Equal(t, tc.data, v.Data(), "%#v", tc.in)
	}

	_, err := types.Infer([]any{1, "a"})
	assert.ErrorIs(t, err, types.ErrType)
	_, err = types.Infer([]any{"a", nil})
	assert.ErrorIs(t, err, types.ErrType)
	_, err = types.Infer(struct{}{})
	assert.ErrorIs(t, err, types.ErrType)
}

func TestErrorClasses(t *testing.T) {
	err := types.Wrap(types.NewKeyError("no such key %q", "a.b"), "reading config")
	assert.ErrorIs(t, err, types.ErrKey)
	assert.NotErrorIs(t, err, types.ErrType)
	assert.Contains(t, err.Error(), "a.b")

	var e *types.Error
	require.True(t, errors.As(err, &e))
	assert.True(t, e.IsKeyError())

	perr := types.NewParseError(12, types.Uint32, "short read")
	assert.Equal(t, "parse error: at offset 12 reading UINT32: short read", perr.Error())
	assert.True(t, perr.IsParseError())
}
