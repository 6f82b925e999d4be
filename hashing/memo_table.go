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

// Package hashing provides insertion-ordered, deduplicating memo tables
// for dictionary encoding. Each distinct inserted value is assigned a
// stable integer index, in first-insertion order, with at most one
// designated null entry. Indices are append-only: once assigned they
// never change, so callers may treat any prefix of the table as already
// emitted when materializing delta dictionaries.
package hashing

import (
	"unsafe"

	"github.com/colbase/dictenc"
)

// FixedWidthValue constrains the Go types storable in a NumericMemoTable.
type FixedWidthValue = dictenc.FixedWidthValue

// KeyNotFound is the constant returned by memo table functions when a
// key isn't found in the table.
const KeyNotFound = -1

// TypeTraits reports the physical size of the values a memo table holds.
type TypeTraits interface {
	BytesRequired(n int) int
}

// MemoTable is the interface the materialization layer consumes. The
// typed copy operations live on the concrete table types.
type MemoTable interface {
	// Size returns the current number of unique values stored in the
	// table, including the null value if one has been inserted.
	Size() int

	// GetNull returns the index of the null entry and whether a null
	// was ever inserted.
	GetNull() (idx int, ok bool)

	// GetOrInsertNull returns the index of the null entry, inserting
	// one if it does not exist yet. found reports whether it existed.
	GetOrInsertNull() (idx int, found bool)

	// Reset drops every entry, returning the table to its freshly
	// constructed state.
	Reset()
}

const (
	sentinel    = -1
	minTableLen = 32
)

// hash table entry; payload holds memo index + 1, 0 marks an empty slot.
type entry struct {
	h       uint64
	payload int32
}

// NumericMemoTable is a memo table for fixed-width values of a single
// Go type, backed by an open-addressing hash table keyed with hashInt.
type NumericMemoTable[T FixedWidthValue] struct {
	values  []T
	tbl     []entry
	mask    uint64
	nullIdx int
}

// NewNumericMemoTable constructs an empty table with space reserved for
// at least initial values.
func NewNumericMemoTable[T FixedWidthValue](initial int) *NumericMemoTable[T] {
	tblLen := minTableLen
	for tblLen < 2*initial {
		tblLen *= 2
	}
	return &NumericMemoTable[T]{
		values:  make([]T, 0, initial),
		tbl:     make([]entry, tblLen),
		mask:    uint64(tblLen - 1),
		nullIdx: sentinel,
	}
}

func NewInt8MemoTable(initial int) *NumericMemoTable[int8] {
	return NewNumericMemoTable[int8](initial)
}
func NewUint8MemoTable(initial int) *NumericMemoTable[uint8] {
	return NewNumericMemoTable[uint8](initial)
}
func NewInt16MemoTable(initial int) *NumericMemoTable[int16] {
	return NewNumericMemoTable[int16](initial)
}
func NewUint16MemoTable(initial int) *NumericMemoTable[uint16] {
	return NewNumericMemoTable[uint16](initial)
}
func NewInt32MemoTable(initial int) *NumericMemoTable[int32] {
	return NewNumericMemoTable[int32](initial)
}
func NewUint32MemoTable(initial int) *NumericMemoTable[uint32] {
	return NewNumericMemoTable[uint32](initial)
}
func NewInt64MemoTable(initial int) *NumericMemoTable[int64] {
	return NewNumericMemoTable[int64](initial)
}
func NewUint64MemoTable(initial int) *NumericMemoTable[uint64] {
	return NewNumericMemoTable[uint64](initial)
}
func NewFloat32MemoTable(initial int) *NumericMemoTable[float32] {
	return NewNumericMemoTable[float32](initial)
}
func NewFloat64MemoTable(initial int) *NumericMemoTable[float64] {
	return NewNumericMemoTable[float64](initial)
}

// Size returns the number of distinct entries, including any null.
func (m *NumericMemoTable[T]) Size() int { return len(m.values) }

// GetNull returns the index of the null entry, if one was inserted.
func (m *NumericMemoTable[T]) GetNull() (int, bool) {
	return m.nullIdx, m.nullIdx != sentinel
}

// GetOrInsertNull reserves the next index for the null entry. The slot
// in the value storage holds an unspecified placeholder; a null bitmap
// marks it invalid downstream, its bytes must not be read.
func (m *NumericMemoTable[T]) GetOrInsertNull() (idx int, found bool) {
	idx, found = m.GetNull()
	if !found {
		idx = m.Size()
		m.nullIdx = idx
		var placeholder T
		m.values = append(m.values, placeholder)
	}
	return
}

// Get returns the index of val if it is in the table.
func (m *NumericMemoTable[T]) Get(val T) (int, bool) {
	h := hashInt(valueBits(val), 0)
	slot := h & m.mask
	for {
		e := &m.tbl[slot]
		if e.payload == 0 {
			return KeyNotFound, false
		}
		if e.h == h && m.values[e.payload-1] == val {
			return int(e.payload - 1), true
		}
		slot = (slot + 1) & m.mask
	}
}

// GetOrInsert returns the index of val, inserting it at the next free
// index if not present. found reports whether the value already existed.
func (m *NumericMemoTable[T]) GetOrInsert(val T) (idx int, found bool, err error) {
	h := hashInt(valueBits(val), 0)
	slot := h & m.mask
	for {
		e := &m.tbl[slot]
		if e.payload == 0 {
			idx = len(m.values)
			m.values = append(m.values, val)
			*e = entry{h: h, payload: int32(idx) + 1}
			m.maybeGrow()
			return idx, false, nil
		}
		if e.h == h && m.values[e.payload-1] == val {
			return int(e.payload - 1), true, nil
		}
		slot = (slot + 1) & m.mask
	}
}

// keep occupancy below half the table to bound probe lengths.
func (m *NumericMemoTable[T]) maybeGrow() {
	if 2*len(m.values) < len(m.tbl) {
		return
	}
	tbl := make([]entry, 2*len(m.tbl))
	mask := uint64(len(tbl) - 1)
	for i, v := range m.values {
		if i == m.nullIdx {
			continue
		}
		h := hashInt(valueBits(v), 0)
		slot := h & mask
		for tbl[slot].payload != 0 {
			slot = (slot + 1) & mask
		}
		tbl[slot] = entry{h: h, payload: int32(i) + 1}
	}
	m.tbl, m.mask = tbl, mask
}

// Reset drops every entry.
func (m *NumericMemoTable[T]) Reset() {
	m.values = m.values[:0]
	m.nullIdx = sentinel
	for i := range m.tbl {
		m.tbl[i] = entry{}
	}
}

// Values returns the value storage in insertion order. The returned
// slice aliases the table and is invalidated by further insertions.
func (m *NumericMemoTable[T]) Values() []T { return m.values }

// CopyValues copies the entire value storage, in insertion order, into out.
func (m *NumericMemoTable[T]) CopyValues(out []T) { m.CopyValuesSubset(0, out) }

// CopyValuesSubset copies the values starting at index start into out.
func (m *NumericMemoTable[T]) CopyValuesSubset(start int, out []T) {
	copy(out, m.values[start:])
}

// WriteOut writes the raw bytes of the value storage into out.
func (m *NumericMemoTable[T]) WriteOut(out []byte) { m.WriteOutSubset(0, out) }

// WriteOutSubset writes the raw bytes of the values starting at index
// start into out. This is the bulk copy the fixed-width materializer
// relies on: flat, order preserving, no per-value branching.
func (m *NumericMemoTable[T]) WriteOutSubset(start int, out []byte) {
	copy(out, dictenc.CastToBytes(m.values[start:]))
}

type numericTraits[T FixedWidthValue] struct{}

func (numericTraits[T]) BytesRequired(n int) int {
	var zero T
	return n * int(unsafe.Sizeof(zero))
}

// TypeTraits returns the size accounting for the table's value type.
func (m *NumericMemoTable[T]) TypeTraits() TypeTraits { return numericTraits[T]{} }

// BooleanMemoTable memoizes booleans. The domain has at most three
// distinct entries (true, false and null) so it is a pair of slots
// rather than a hash table.
type BooleanMemoTable struct {
	values  []bool
	index   [2]int // [false, true], sentinel when absent
	nullIdx int
}

func NewBooleanMemoTable(int) *BooleanMemoTable {
	return &BooleanMemoTable{
		values:  make([]bool, 0, 3),
		index:   [2]int{sentinel, sentinel},
		nullIdx: sentinel,
	}
}

func (m *BooleanMemoTable) Size() int { return len(m.values) }

func (m *BooleanMemoTable) GetNull() (int, bool) {
	return m.nullIdx, m.nullIdx != sentinel
}

func (m *BooleanMemoTable) GetOrInsertNull() (idx int, found bool) {
	idx, found = m.GetNull()
	if !found {
		idx = m.Size()
		m.nullIdx = idx
		m.values = append(m.values, false)
	}
	return
}

func boolSlot(val bool) int {
	if val {
		return 1
	}
	return 0
}

func (m *BooleanMemoTable) Get(val bool) (int, bool) {
	if idx := m.index[boolSlot(val)]; idx != sentinel {
		return idx, true
	}
	return KeyNotFound, false
}

func (m *BooleanMemoTable) GetOrInsert(val bool) (idx int, found bool, err error) {
	if idx, found = m.Get(val); found {
		return idx, true, nil
	}
	idx = len(m.values)
	m.index[boolSlot(val)] = idx
	m.values = append(m.values, val)
	return idx, false, nil
}

func (m *BooleanMemoTable) Reset() {
	m.values = m.values[:0]
	m.index = [2]int{sentinel, sentinel}
	m.nullIdx = sentinel
}

// Values returns the stored booleans in insertion order. The null slot,
// if any, holds false as a placeholder.
func (m *BooleanMemoTable) Values() []bool { return m.values }

var (
	_ MemoTable = (*NumericMemoTable[int32])(nil)
	_ MemoTable = (*BooleanMemoTable)(nil)
)
