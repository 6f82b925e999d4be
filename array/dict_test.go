// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package array_test

import (
	"testing"

	"github.com/colbase/dictenc"
	"github.com/colbase/dictenc/array"
	"github.com/colbase/dictenc/bitutil"
	"github.com/colbase/dictenc/hashing"
	"github.com/colbase/dictenc/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryDictionaryMaterialize(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	m, err := array.NewDictMaterializer(dictenc.BinaryTypes.String)
	require.NoError(t, err)

	memo := m.NewMemoTable().(*hashing.BinaryMemoTable)
	for _, s := range []string{"ab", "cde"} {
		_, _, err := memo.GetOrInsertString(s)
		require.NoError(t, err)
	}
	memo.GetOrInsertNull()

	dict, err := m.Materialize(mem, memo, 0)
	require.NoError(t, err)
	defer dict.Release()

	assert.Equal(t, 3, dict.Len())
	assert.Equal(t, 1, dict.NullN())

	offsets := dictenc.CastFromBytes[int32](dict.Buffers()[1].Bytes())
	assert.Equal(t, []int32{0, 2, 5, 5}, offsets)
	assert.Equal(t, "abcde", string(dict.Buffers()[2].Bytes()))

	bitmap := dict.NullBitmapBytes()
	require.NotNil(t, bitmap)
	assert.True(t, bitutil.BitIsSet(bitmap, 0))
	assert.True(t, bitutil.BitIsSet(bitmap, 1))
	assert.False(t, bitutil.BitIsSet(bitmap, 2))
}

func TestFixedWidthDictionaryMaterialize(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	m, err := array.NewDictMaterializer(dictenc.PrimitiveTypes.Int32)
	require.NoError(t, err)

	memo := m.NewMemoTable().(*hashing.NumericMemoTable[int32])
	for _, v := range []int32{10, 20} {
		_, _, err := memo.GetOrInsert(v)
		require.NoError(t, err)
	}
	memo.GetOrInsertNull()

	dict, err := m.Materialize(mem, memo, 0)
	require.NoError(t, err)
	defer dict.Release()

	assert.Equal(t, 3, dict.Len())
	assert.Equal(t, 1, dict.NullN())

	values := dict.Buffers()[1]
	assert.Equal(t, 12, values.Len())
	assert.Equal(t, []int32{10, 20}, dictenc.CastFromBytes[int32](values.Bytes())[:2])

	bitmap := dict.NullBitmapBytes()
	require.NotNil(t, bitmap)
	assert.True(t, bitutil.BitIsSet(bitmap, 0))
	assert.True(t, bitutil.BitIsSet(bitmap, 1))
	assert.False(t, bitutil.BitIsSet(bitmap, 2))
}

func TestUint64DictionaryMaterialize(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	m, err := array.NewDictMaterializer(dictenc.PrimitiveTypes.Uint64)
	require.NoError(t, err)

	memo := m.NewMemoTable().(*hashing.NumericMemoTable[uint64])
	for _, v := range []uint64{1 << 63, 0, 42} {
		_, _, err := memo.GetOrInsert(v)
		require.NoError(t, err)
	}

	dict, err := m.Materialize(mem, memo, 0)
	require.NoError(t, err)
	defer dict.Release()

	assert.Equal(t, 3, dict.Len())
	assert.Zero(t, dict.NullN())
	assert.Equal(t, []uint64{1 << 63, 0, 42},
		dictenc.CastFromBytes[uint64](dict.Buffers()[1].Bytes()))
}

func TestBooleanDictionaryMaterialize(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	m, err := array.NewDictMaterializer(dictenc.FixedWidthTypes.Boolean)
	require.NoError(t, err)

	memo := m.NewMemoTable().(*hashing.BooleanMemoTable)
	_, _, err = memo.GetOrInsert(true)
	require.NoError(t, err)
	memo.GetOrInsertNull()
	_, _, err = memo.GetOrInsert(false)
	require.NoError(t, err)

	dict, err := m.Materialize(mem, memo, 0)
	require.NoError(t, err)
	defer dict.Release()

	assert.Equal(t, 3, dict.Len())
	assert.Equal(t, 1, dict.NullN())

	values := dict.Buffers()[1].Bytes()
	assert.True(t, bitutil.BitIsSet(values, 0))
	assert.False(t, bitutil.BitIsSet(values, 2))

	bitmap := dict.NullBitmapBytes()
	require.NotNil(t, bitmap)
	assert.True(t, bitutil.BitIsSet(bitmap, 0))
	assert.False(t, bitutil.BitIsSet(bitmap, 1))
	assert.True(t, bitutil.BitIsSet(bitmap, 2))
}

func TestFixedSizeBinaryDictionaryMaterialize(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	m, err := array.NewDictMaterializer(&dictenc.FixedSizeBinaryType{ByteWidth: 3})
	require.NoError(t, err)

	memo := m.NewMemoTable().(*hashing.BinaryMemoTable)
	_, _, err = memo.GetOrInsert([]byte("abc"))
	require.NoError(t, err)
	memo.GetOrInsertNull()
	_, _, err = memo.GetOrInsert([]byte("def"))
	require.NoError(t, err)

	dict, err := m.Materialize(mem, memo, 0)
	require.NoError(t, err)
	defer dict.Release()

	assert.Equal(t, 3, dict.Len())
	assert.Equal(t, 1, dict.NullN())

	values := dict.Buffers()[1].Bytes()
	require.Len(t, values, 9)
	assert.Equal(t, "abc", string(values[0:3]))
	// the null slot's bytes are left zeroed, readers must not inspect them
	assert.Equal(t, []byte{0, 0, 0}, values[3:6])
	assert.Equal(t, "def", string(values[6:9]))

	bitmap := dict.NullBitmapBytes()
	require.NotNil(t, bitmap)
	assert.False(t, bitutil.BitIsSet(bitmap, 1))
}

func TestBinaryDictionaryDelta(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	m, err := array.NewDictMaterializer(dictenc.BinaryTypes.String)
	require.NoError(t, err)

	memo := m.NewMemoTable().(*hashing.BinaryMemoTable)
	for _, s := range []string{"a", "bb"} {
		_, _, err := memo.GetOrInsertString(s)
		require.NoError(t, err)
	}

	initial, err := m.Materialize(mem, memo, 0)
	require.NoError(t, err)
	defer initial.Release()

	_, _, err = memo.GetOrInsertString("ccc")
	require.NoError(t, err)
	memo.GetOrInsertNull()

	delta, err := m.Materialize(mem, memo, 2)
	require.NoError(t, err)
	defer delta.Release()

	assert.Equal(t, 2, initial.Len())
	assert.Zero(t, initial.NullN())
	assert.Nil(t, initial.NullBitmapBytes())
	assert.Equal(t, []int32{0, 1, 3},
		dictenc.CastFromBytes[int32](initial.Buffers()[1].Bytes()))
	assert.Equal(t, "abb", string(initial.Buffers()[2].Bytes()))

	assert.Equal(t, 2, delta.Len())
	assert.Equal(t, 1, delta.NullN())
	assert.Equal(t, []int32{0, 3, 3},
		dictenc.CastFromBytes[int32](delta.Buffers()[1].Bytes()))
	assert.Equal(t, "ccc", string(delta.Buffers()[2].Bytes()))

	bitmap := delta.NullBitmapBytes()
	require.NotNil(t, bitmap)
	assert.True(t, bitutil.BitIsSet(bitmap, 0))
	assert.False(t, bitutil.BitIsSet(bitmap, 1))

	// concatenating the emissions reproduces a full materialization
	full, err := m.Materialize(mem, memo, 0)
	require.NoError(t, err)
	defer full.Release()

	assert.Equal(t, initial.Len()+delta.Len(), full.Len())
	assert.Equal(t, "abbccc", string(full.Buffers()[2].Bytes()))
	assert.Equal(t, initial.NullN()+delta.NullN(), full.NullN())
}

func TestNumericDictionaryDelta(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	m, err := array.NewDictMaterializer(dictenc.PrimitiveTypes.Float64)
	require.NoError(t, err)

	memo := m.NewMemoTable().(*hashing.NumericMemoTable[float64])
	for _, v := range []float64{1.5, -2.25, 3, 4, 5} {
		_, _, err := memo.GetOrInsert(v)
		require.NoError(t, err)
	}

	for _, k := range []int{0, 2, 5} {
		head, err := m.Materialize(mem, memo, 0)
		require.NoError(t, err)

		tail, err := m.Materialize(mem, memo, k)
		require.NoError(t, err)

		headVals := dictenc.CastFromBytes[float64](head.Buffers()[1].Bytes())
		if k < memo.Size() {
			tailVals := dictenc.CastFromBytes[float64](tail.Buffers()[1].Bytes())
			assert.Equal(t, headVals[k:], tailVals)
		} else {
			assert.Nil(t, tail.Buffers()[1])
		}
		assert.Equal(t, memo.Size()-k, tail.Len())

		head.Release()
		tail.Release()
	}
}

func TestMaterializeIdempotent(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	m, err := array.NewDictMaterializer(dictenc.BinaryTypes.Binary)
	require.NoError(t, err)

	memo := m.NewMemoTable().(*hashing.BinaryMemoTable)
	memo.GetOrInsertNull()
	for _, s := range []string{"x", "yy", "zzz"} {
		_, _, err := memo.GetOrInsertString(s)
		require.NoError(t, err)
	}

	first, err := m.Materialize(mem, memo, 1)
	require.NoError(t, err)
	defer first.Release()

	second, err := m.Materialize(mem, memo, 1)
	require.NoError(t, err)
	defer second.Release()

	assert.Equal(t, first.Len(), second.Len())
	assert.Equal(t, first.NullN(), second.NullN())
	for i, buf := range first.Buffers() {
		other := second.Buffers()[i]
		if buf == nil {
			assert.Nil(t, other)
			continue
		}
		assert.Equal(t, buf.Bytes(), other.Bytes())
	}
}

func TestMaterializeEmptyRange(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	tests := []struct {
		name string
		dt   dictenc.DataType
	}{
		{"string", dictenc.BinaryTypes.String},
		{"int64", dictenc.PrimitiveTypes.Int64},
		{"bool", dictenc.FixedWidthTypes.Boolean},
		{"fixed_size_binary", &dictenc.FixedSizeBinaryType{ByteWidth: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := array.NewDictMaterializer(tt.dt)
			require.NoError(t, err)

			memo := m.NewMemoTable()
			dict, err := m.Materialize(mem, memo, memo.Size())
			require.NoError(t, err)
			defer dict.Release()

			assert.Zero(t, dict.Len())
			assert.Zero(t, dict.NullN())
			for _, buf := range dict.Buffers() {
				assert.Nil(t, buf)
			}
		})
	}
}

func TestMaterializeNullAlreadyEmitted(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	m, err := array.NewDictMaterializer(dictenc.PrimitiveTypes.Int16)
	require.NoError(t, err)

	memo := m.NewMemoTable().(*hashing.NumericMemoTable[int16])
	memo.GetOrInsertNull()
	_, _, err = memo.GetOrInsert(int16(7))
	require.NoError(t, err)

	// the null entry lies before the start offset, so the delta is fully valid
	dict, err := m.Materialize(mem, memo, 1)
	require.NoError(t, err)
	defer dict.Release()

	assert.Equal(t, 1, dict.Len())
	assert.Zero(t, dict.NullN())
	assert.Nil(t, dict.NullBitmapBytes())
}

func TestNullCountAcrossDeltas(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	m, err := array.NewDictMaterializer(dictenc.BinaryTypes.String)
	require.NoError(t, err)

	memo := m.NewMemoTable().(*hashing.BinaryMemoTable)
	for _, s := range []string{"a", "b", "c"} {
		_, _, err := memo.GetOrInsertString(s)
		require.NoError(t, err)
	}
	memo.GetOrInsertNull()
	_, _, err = memo.GetOrInsertString("d")
	require.NoError(t, err)

	cuts := []int{0, 2, 4, memo.Size()}
	nulls := 0
	for i := 0; i+1 < len(cuts); i++ {
		// materialize [cuts[i], size) and count only the slice up to the next cut
		dict, err := m.Materialize(mem, memo, cuts[i])
		require.NoError(t, err)
		if bm := dict.NullBitmapBytes(); bm != nil {
			nulls += cuts[i+1] - cuts[i] - bitutil.CountSetBits(bm, cuts[i+1]-cuts[i])
		}
		dict.Release()
	}
	assert.Equal(t, 1, nulls)
}

func TestMaterializeInvalidStartOffset(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	m, err := array.NewDictMaterializer(dictenc.PrimitiveTypes.Uint32)
	require.NoError(t, err)

	memo := m.NewMemoTable().(*hashing.NumericMemoTable[uint32])
	_, _, err = memo.GetOrInsert(uint32(1))
	require.NoError(t, err)

	dict, err := m.Materialize(mem, memo, -1)
	assert.Nil(t, dict)
	assert.ErrorIs(t, err, dictenc.ErrInvalid)
	// rejected before any allocation
	assert.Zero(t, mem.CurrentAlloc())

	dict, err = m.Materialize(mem, memo, memo.Size()+1)
	assert.Nil(t, dict)
	assert.ErrorIs(t, err, dictenc.ErrInvalid)
}

func TestMaterializeMismatchedMemoTable(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	intMat, err := array.NewDictMaterializer(dictenc.PrimitiveTypes.Int32)
	require.NoError(t, err)

	strMat, err := array.NewDictMaterializer(dictenc.BinaryTypes.String)
	require.NoError(t, err)

	dict, err := intMat.Materialize(mem, strMat.NewMemoTable(), 0)
	assert.Nil(t, dict)
	assert.ErrorIs(t, err, dictenc.ErrInvalid)

	dict, err = strMat.Materialize(mem, intMat.NewMemoTable(), 0)
	assert.Nil(t, dict)
	assert.ErrorIs(t, err, dictenc.ErrInvalid)
}

func TestMaterializeAllocationFailure(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	limited := memory.NewLimitedAllocator(mem, 16)

	m, err := array.NewDictMaterializer(dictenc.BinaryTypes.String)
	require.NoError(t, err)

	memo := m.NewMemoTable().(*hashing.BinaryMemoTable)
	for _, s := range []string{"some", "values", "wider", "than", "the", "limit"} {
		_, _, err := memo.GetOrInsertString(s)
		require.NoError(t, err)
	}

	dict, err := m.Materialize(limited, memo, 0)
	assert.Nil(t, dict)
	assert.ErrorIs(t, err, dictenc.ErrOutOfMemory)
}

func TestNewDictMaterializerMemoTablePairing(t *testing.T) {
	tests := []struct {
		dt   dictenc.DataType
		memo interface{}
	}{
		{dictenc.FixedWidthTypes.Boolean, (*hashing.BooleanMemoTable)(nil)},
		{dictenc.PrimitiveTypes.Int8, (*hashing.NumericMemoTable[int8])(nil)},
		{dictenc.PrimitiveTypes.Uint16, (*hashing.NumericMemoTable[uint16])(nil)},
		{dictenc.PrimitiveTypes.Int32, (*hashing.NumericMemoTable[int32])(nil)},
		{dictenc.PrimitiveTypes.Date32, (*hashing.NumericMemoTable[int32])(nil)},
		{dictenc.PrimitiveTypes.Uint64, (*hashing.NumericMemoTable[uint64])(nil)},
		{dictenc.FixedWidthTypes.Timestamps, (*hashing.NumericMemoTable[int64])(nil)},
		{dictenc.FixedWidthTypes.Durations, (*hashing.NumericMemoTable[int64])(nil)},
		{dictenc.PrimitiveTypes.Float32, (*hashing.NumericMemoTable[float32])(nil)},
		{dictenc.PrimitiveTypes.Float64, (*hashing.NumericMemoTable[float64])(nil)},
		{dictenc.BinaryTypes.String, (*hashing.BinaryMemoTable)(nil)},
		{dictenc.BinaryTypes.Binary, (*hashing.BinaryMemoTable)(nil)},
		{&dictenc.FixedSizeBinaryType{ByteWidth: 8}, (*hashing.BinaryMemoTable)(nil)},
		{&dictenc.Decimal128Type{Precision: 10, Scale: 2}, (*hashing.BinaryMemoTable)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.dt.Name(), func(t *testing.T) {
			m, err := array.NewDictMaterializer(tt.dt)
			require.NoError(t, err)
			assert.Same(t, tt.dt, m.ValueType())
			assert.IsType(t, tt.memo, m.NewMemoTable())
		})
	}
}

func TestDeltaEmitter(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	m, err := array.NewDictMaterializer(dictenc.BinaryTypes.String)
	require.NoError(t, err)

	memo := m.NewMemoTable().(*hashing.BinaryMemoTable)
	emitter := array.NewDeltaEmitter(m)

	_, _, err = memo.GetOrInsertString("first")
	require.NoError(t, err)

	dict, err := emitter.Emit(mem, memo)
	require.NoError(t, err)
	assert.Equal(t, 1, dict.Len())
	assert.Equal(t, 1, emitter.Emitted())
	dict.Release()

	_, _, err = memo.GetOrInsertString("second")
	require.NoError(t, err)
	// re-inserting an existing value appends nothing
	_, _, err = memo.GetOrInsertString("first")
	require.NoError(t, err)

	dict, err = emitter.Emit(mem, memo)
	require.NoError(t, err)
	assert.Equal(t, 1, dict.Len())
	assert.Equal(t, "second", string(dict.Buffers()[2].Bytes()))
	dict.Release()

	// nothing new: a zero-length, fully valid dictionary
	dict, err = emitter.Emit(mem, memo)
	require.NoError(t, err)
	assert.Zero(t, dict.Len())
	dict.Release()
}
