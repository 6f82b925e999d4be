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

package array

import (
	"fmt"

	"github.com/JohnCGriffin/overflow"
	"github.com/colbase/dictenc"
	"github.com/colbase/dictenc/bitutil"
	"github.com/colbase/dictenc/hashing"
	"github.com/colbase/dictenc/internal/utils"
	"github.com/colbase/dictenc/memory"
)

// fixedWidthMemoTable is the memo table surface the fixed-width
// materializer copies from.
type fixedWidthMemoTable interface {
	hashing.MemoTable
	WriteOutSubset(offset int, out []byte)
	TypeTraits() hashing.TypeTraits
}

type materializeFn func(mem memory.Allocator, memo hashing.MemoTable, startOffset int) (*Data, error)

// DictMaterializer materializes the value set of a populated memo table
// into the columnar buffers of a dictionary array.
//
// The binding from value type to layout materializer and memo table
// representation is resolved once, at construction; Materialize performs
// no per-call layout branching. A non-zero startOffset materializes only
// the entries appended since a previous call (a delta dictionary).
type DictMaterializer struct {
	dt      dictenc.DataType
	newMemo func() hashing.MemoTable
	fn      materializeFn
}

// NewDictMaterializer binds dt to the materializer for its physical
// layout. Every supported type maps to exactly one of the four layout
// materializers; unsupported types fail here, not at Materialize time.
func NewDictMaterializer(dt dictenc.DataType) (*DictMaterializer, error) {
	m := &DictMaterializer{dt: dt}

	switch dt.Layout() {
	case dictenc.LayoutBoolean:
		m.fn = m.materializeBoolean
		m.newMemo = func() hashing.MemoTable { return hashing.NewBooleanMemoTable(0) }
		return m, nil

	case dictenc.LayoutVariableBinary:
		m.fn = m.materializeVariableBinary
		m.newMemo = func() hashing.MemoTable { return hashing.NewBinaryMemoTable(0, 0) }
		return m, nil

	case dictenc.LayoutFixedSizeBinary:
		if _, ok := dt.(dictenc.FixedWidthDataType); !ok {
			return nil, fmt.Errorf("%w: fixed-size binary type %s carries no byte width",
				dictenc.ErrNotImplemented, dt.Name())
		}
		m.fn = m.materializeFixedSizeBinary
		m.newMemo = func() hashing.MemoTable { return hashing.NewBinaryMemoTable(0, 0) }
		return m, nil
	}

	m.fn = m.materializeFixedWidth
	switch dt.ID() {
	case dictenc.INT8:
		m.newMemo = func() hashing.MemoTable { return hashing.NewInt8MemoTable(0) }
	case dictenc.UINT8:
		m.newMemo = func() hashing.MemoTable { return hashing.NewUint8MemoTable(0) }
	case dictenc.INT16:
		m.newMemo = func() hashing.MemoTable { return hashing.NewInt16MemoTable(0) }
	case dictenc.UINT16:
		m.newMemo = func() hashing.MemoTable { return hashing.NewUint16MemoTable(0) }
	case dictenc.INT32, dictenc.DATE32, dictenc.TIME32:
		m.newMemo = func() hashing.MemoTable { return hashing.NewInt32MemoTable(0) }
	case dictenc.UINT32:
		m.newMemo = func() hashing.MemoTable { return hashing.NewUint32MemoTable(0) }
	case dictenc.INT64, dictenc.DATE64, dictenc.TIME64, dictenc.TIMESTAMP, dictenc.DURATION:
		m.newMemo = func() hashing.MemoTable { return hashing.NewInt64MemoTable(0) }
	case dictenc.UINT64:
		m.newMemo = func() hashing.MemoTable { return hashing.NewUint64MemoTable(0) }
	case dictenc.FLOAT32:
		m.newMemo = func() hashing.MemoTable { return hashing.NewFloat32MemoTable(0) }
	case dictenc.FLOAT64:
		m.newMemo = func() hashing.MemoTable { return hashing.NewFloat64MemoTable(0) }
	default:
		return nil, fmt.Errorf("%w: no dictionary materializer for type %s",
			dictenc.ErrNotImplemented, dt.Name())
	}
	return m, nil
}

// ValueType returns the value type the materializer was bound to.
func (m *DictMaterializer) ValueType() dictenc.DataType { return m.dt }

// NewMemoTable returns an empty memo table of the representation paired
// with the materializer's layout.
func (m *DictMaterializer) NewMemoTable() hashing.MemoTable { return m.newMemo() }

// Materialize copies the memo table entries in [startOffset, Size())
// into freshly allocated buffers and returns them as an immutable Data.
// The memo table is only read; the caller owns the result and must
// Release it. The caller must also guarantee the memo table is not
// mutated concurrently for the duration of the call.
//
// On failure no Data is returned: a negative startOffset is rejected
// before any allocation, and an allocation failure is surfaced as an
// error wrapping dictenc.ErrOutOfMemory.
func (m *DictMaterializer) Materialize(mem memory.Allocator, memo hashing.MemoTable, startOffset int) (dict *Data, err error) {
	if startOffset < 0 {
		return nil, fmt.Errorf("%w: invalid start offset %d", dictenc.ErrInvalid, startOffset)
	}
	if startOffset > memo.Size() {
		return nil, fmt.Errorf("%w: start offset %d exceeds memo table size %d",
			dictenc.ErrInvalid, startOffset, memo.Size())
	}

	defer func() {
		if r := recover(); r != nil {
			dict = nil
			err = fmt.Errorf("%w: %v", dictenc.ErrOutOfMemory,
				utils.FormatRecoveredError("dictionary buffer allocation", r))
		}
	}()

	return m.fn(mem, memo, startOffset)
}

// DeltaEmitter tracks how much of a memo table has already been
// materialized, so streaming encoders can emit an initial dictionary
// followed by deltas holding only newly appended entries.
type DeltaEmitter struct {
	m       *DictMaterializer
	emitted int
}

func NewDeltaEmitter(m *DictMaterializer) *DeltaEmitter {
	return &DeltaEmitter{m: m}
}

// Emitted returns the number of memo table entries already emitted.
func (e *DeltaEmitter) Emitted() int { return e.emitted }

// Emit materializes the entries appended since the previous Emit. The
// first call emits the whole table. On failure the emission point is
// unchanged, so the same delta can be retried.
func (e *DeltaEmitter) Emit(mem memory.Allocator, memo hashing.MemoTable) (*Data, error) {
	dict, err := e.m.Materialize(mem, memo, e.emitted)
	if err != nil {
		return nil, err
	}
	e.emitted = memo.Size()
	return dict, nil
}

// computeNullBitmap builds the validity bitmap of the entries in
// [startOffset, memo.Size()). A dictionary holds at most one null; when
// no null falls inside the range the bitmap is absent (nil) and every
// entry is valid.
func computeNullBitmap(mem memory.Allocator, memo hashing.MemoTable, startOffset, length int) (nullCount int, bitmap *memory.Buffer) {
	nullIdx, ok := memo.GetNull()
	if !ok || nullIdx < startOffset || length == 0 {
		return 0, nil
	}

	bitmap = memory.NewResizableBuffer(mem)
	bitmap.Resize(int(bitutil.BytesForBits(int64(length))))
	memory.Set(bitmap.Bytes(), 0xFF)
	bitutil.ClearBit(bitmap.Bytes(), nullIdx-startOffset)
	return 1, bitmap
}

// materializeFixedWidth bulk-copies the memo table's value storage at
// the type's byte width. The null slot, if any, holds placeholder bytes
// whose content is unspecified; the bitmap marks it invalid and readers
// must not inspect it.
func (m *DictMaterializer) materializeFixedWidth(mem memory.Allocator, memo hashing.MemoTable, startOffset int) (*Data, error) {
	tbl, ok := memo.(fixedWidthMemoTable)
	if !ok {
		return nil, fmt.Errorf("%w: memo table %T cannot feed a fixed-width dictionary",
			dictenc.ErrInvalid, memo)
	}

	dictLen := tbl.Size() - startOffset
	buffers := make([]*memory.Buffer, 2)
	if dictLen == 0 {
		return NewData(m.dt, 0, buffers, 0), nil
	}

	values := memory.NewResizableBuffer(mem)
	defer values.Release()
	values.Resize(tbl.TypeTraits().BytesRequired(dictLen))
	tbl.WriteOutSubset(startOffset, values.Bytes())
	buffers[1] = values

	nullCount, nullBitmap := computeNullBitmap(mem, memo, startOffset, dictLen)
	if nullBitmap != nil {
		defer nullBitmap.Release()
		buffers[0] = nullBitmap
	}

	return NewData(m.dt, dictLen, buffers, nullCount), nil
}

// materializeBoolean appends entry by entry into a bit-packed values
// buffer. A boolean memo table holds at most 3 entries, so explicit
// iteration beats bit-level bulk copy logic.
func (m *DictMaterializer) materializeBoolean(mem memory.Allocator, memo hashing.MemoTable, startOffset int) (*Data, error) {
	tbl, ok := memo.(*hashing.BooleanMemoTable)
	if !ok {
		return nil, fmt.Errorf("%w: memo table %T cannot feed a boolean dictionary",
			dictenc.ErrInvalid, memo)
	}

	dictLen := tbl.Size() - startOffset
	buffers := make([]*memory.Buffer, 2)
	if dictLen == 0 {
		return NewData(m.dt, 0, buffers, 0), nil
	}

	values := memory.NewResizableBuffer(mem)
	defer values.Release()
	values.Resize(int(bitutil.BytesForBits(int64(dictLen))))
	buffers[1] = values

	boolValues := tbl.Values()
	nullIdx, _ := tbl.GetNull()

	// will iterate up to 3 times
	for i := startOffset; i < tbl.Size(); i++ {
		if i == nullIdx {
			continue
		}
		bitutil.SetBitTo(values.Bytes(), i-startOffset, boolValues[i])
	}

	nullCount, nullBitmap := computeNullBitmap(mem, memo, startOffset, dictLen)
	if nullBitmap != nil {
		defer nullBitmap.Release()
		buffers[0] = nullBitmap
	}

	return NewData(m.dt, dictLen, buffers, nullCount), nil
}

// materializeVariableBinary copies the offsets (rebased to zero) and the
// concatenated value bytes of the range. An empty range allocates
// neither buffer; a values buffer is allocated only when the range holds
// value bytes. The null slot contributes a zero-length span but keeps a
// valid offset pair.
func (m *DictMaterializer) materializeVariableBinary(mem memory.Allocator, memo hashing.MemoTable, startOffset int) (*Data, error) {
	tbl, ok := memo.(*hashing.BinaryMemoTable)
	if !ok {
		return nil, fmt.Errorf("%w: memo table %T cannot feed a binary dictionary",
			dictenc.ErrInvalid, memo)
	}

	dictLen := tbl.Size() - startOffset
	buffers := make([]*memory.Buffer, 3)

	if dictLen > 0 {
		nbytes, ok := overflow.Mul(dictLen+1, dictenc.Int32SizeBytes)
		if !ok {
			return nil, fmt.Errorf("%w: offsets buffer size overflows", dictenc.ErrInvalid)
		}

		offsets := memory.NewResizableBuffer(mem)
		defer offsets.Release()
		offsets.Resize(nbytes)
		rawOffsets := dictenc.CastFromBytes[int32](offsets.Bytes())
		tbl.CopyOffsetsSubset(startOffset, rawOffsets)
		buffers[1] = offsets

		if valuesSize := rawOffsets[len(rawOffsets)-1]; valuesSize > 0 {
			values := memory.NewResizableBuffer(mem)
			defer values.Release()
			values.Resize(int(valuesSize))
			tbl.CopyValuesSubset(startOffset, values.Bytes())
			buffers[2] = values
		}
	}

	nullCount, nullBitmap := computeNullBitmap(mem, memo, startOffset, dictLen)
	if nullBitmap != nil {
		defer nullBitmap.Release()
		buffers[0] = nullBitmap
	}

	return NewData(m.dt, dictLen, buffers, nullCount), nil
}

// materializeFixedSizeBinary bulk-copies at the byte width carried by
// the type descriptor. The null slot's width bytes are left zeroed by
// the copy; readers must treat their content as unspecified.
func (m *DictMaterializer) materializeFixedSizeBinary(mem memory.Allocator, memo hashing.MemoTable, startOffset int) (*Data, error) {
	tbl, ok := memo.(*hashing.BinaryMemoTable)
	if !ok {
		return nil, fmt.Errorf("%w: memo table %T cannot feed a fixed-size binary dictionary",
			dictenc.ErrInvalid, memo)
	}

	byteWidth := int(bitutil.BytesForBits(int64(m.dt.(dictenc.FixedWidthDataType).BitWidth())))
	dictLen := tbl.Size() - startOffset
	dataLen, ok := overflow.Mul(dictLen, byteWidth)
	if !ok {
		return nil, fmt.Errorf("%w: values buffer size overflows", dictenc.ErrInvalid)
	}

	buffers := make([]*memory.Buffer, 2)
	if dictLen == 0 {
		return NewData(m.dt, 0, buffers, 0), nil
	}

	values := memory.NewResizableBuffer(mem)
	defer values.Release()
	values.Resize(dataLen)
	tbl.CopyFixedWidthValues(startOffset, byteWidth, values.Bytes())
	buffers[1] = values

	nullCount, nullBitmap := computeNullBitmap(mem, memo, startOffset, dictLen)
	if nullBitmap != nil {
		defer nullBitmap.Release()
		buffers[0] = nullBitmap
	}

	return NewData(m.dt, dictLen, buffers, nullCount), nil
}
