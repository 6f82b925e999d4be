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

package hashing

import (
	"bytes"
	"unsafe"
)

// BinaryMemoTable memoizes variable-length byte strings. Value bytes are
// stored contiguously in insertion order alongside a prefix-sum offsets
// vector, so materialization is a pair of flat copies.
type BinaryMemoTable struct {
	tbl     []entry
	mask    uint64
	offsets []int32
	data    []byte
	nullIdx int
}

// NewBinaryMemoTable constructs an empty table with space reserved for
// initial entries totalling valuesize bytes of data.
func NewBinaryMemoTable(initial, valuesize int) *BinaryMemoTable {
	tblLen := minTableLen
	for tblLen < 2*initial {
		tblLen *= 2
	}
	if valuesize <= 0 {
		valuesize = initial * 4
	}
	offsets := make([]int32, 1, initial+1)
	return &BinaryMemoTable{
		tbl:     make([]entry, tblLen),
		mask:    uint64(tblLen - 1),
		offsets: offsets,
		data:    make([]byte, 0, valuesize),
		nullIdx: sentinel,
	}
}

// Size returns the number of distinct entries, including any null.
func (m *BinaryMemoTable) Size() int { return len(m.offsets) - 1 }

// GetNull returns the index of the null entry, if one was inserted.
func (m *BinaryMemoTable) GetNull() (int, bool) {
	return m.nullIdx, m.nullIdx != sentinel
}

// GetOrInsertNull reserves the next index for the null entry. The null
// slot stores a zero-length value so every index keeps a valid offset
// pair.
func (m *BinaryMemoTable) GetOrInsertNull() (idx int, found bool) {
	idx, found = m.GetNull()
	if !found {
		idx = m.Size()
		m.nullIdx = idx
		m.offsets = append(m.offsets, int32(len(m.data)))
	}
	return
}

func (m *BinaryMemoTable) value(i int) []byte {
	return m.data[m.offsets[i]:m.offsets[i+1]]
}

// Get returns the index of val if it is in the table.
func (m *BinaryMemoTable) Get(val []byte) (int, bool) {
	h := Hash(val, 0)
	slot := h & m.mask
	for {
		e := &m.tbl[slot]
		if e.payload == 0 {
			return KeyNotFound, false
		}
		if e.h == h && bytes.Equal(m.value(int(e.payload-1)), val) {
			return int(e.payload - 1), true
		}
		slot = (slot + 1) & m.mask
	}
}

// GetOrInsert returns the index of val, inserting it at the next free
// index if not present. found reports whether the value already existed.
func (m *BinaryMemoTable) GetOrInsert(val []byte) (idx int, found bool, err error) {
	h := Hash(val, 0)
	slot := h & m.mask
	for {
		e := &m.tbl[slot]
		if e.payload == 0 {
			idx = m.Size()
			m.data = append(m.data, val...)
			m.offsets = append(m.offsets, int32(len(m.data)))
			*e = entry{h: h, payload: int32(idx) + 1}
			m.maybeGrow()
			return idx, false, nil
		}
		if e.h == h && bytes.Equal(m.value(int(e.payload-1)), val) {
			return int(e.payload - 1), true, nil
		}
		slot = (slot + 1) & m.mask
	}
}

// GetOrInsertString is GetOrInsert for string keys without copying the
// key to a byte slice first.
func (m *BinaryMemoTable) GetOrInsertString(val string) (idx int, found bool, err error) {
	var buf []byte
	if len(val) > 0 {
		buf = unsafe.Slice(unsafe.StringData(val), len(val))
	}
	return m.GetOrInsert(buf)
}

func (m *BinaryMemoTable) maybeGrow() {
	if 2*m.Size() < len(m.tbl) {
		return
	}
	tbl := make([]entry, 2*len(m.tbl))
	mask := uint64(len(tbl) - 1)
	for i := 0; i < m.Size(); i++ {
		if i == m.nullIdx {
			continue
		}
		h := Hash(m.value(i), 0)
		slot := h & mask
		for tbl[slot].payload != 0 {
			slot = (slot + 1) & mask
		}
		tbl[slot] = entry{h: h, payload: int32(i) + 1}
	}
	m.tbl, m.mask = tbl, mask
}

// Reset drops every entry.
func (m *BinaryMemoTable) Reset() {
	m.offsets = m.offsets[:1]
	m.data = m.data[:0]
	m.nullIdx = sentinel
	for i := range m.tbl {
		m.tbl[i] = entry{}
	}
}

// ValuesSize returns the total byte length of every stored value.
func (m *BinaryMemoTable) ValuesSize() int { return len(m.data) }

// CopyOffsets copies the complete prefix-sum offsets vector into out.
func (m *BinaryMemoTable) CopyOffsets(out []int32) { m.CopyOffsetsSubset(0, out) }

// CopyOffsetsSubset copies the offsets of the entries starting at index
// start into out, rebased so out[0] == 0. out must hold
// Size() - start + 1 elements; the final element is the total byte
// length of the copied range.
func (m *BinaryMemoTable) CopyOffsetsSubset(start int, out []int32) {
	if m.Size() <= start {
		return
	}
	first := m.offsets[start]
	for i, off := range m.offsets[start:] {
		out[i] = off - first
	}
}

// CopyValues copies the contiguous value bytes into out.
func (m *BinaryMemoTable) CopyValues(out []byte) { m.CopyValuesSubset(0, out) }

// CopyValuesSubset copies the value bytes of the entries starting at
// index start into out.
func (m *BinaryMemoTable) CopyValuesSubset(start int, out []byte) {
	if m.Size() <= start {
		return
	}
	copy(out, m.data[m.offsets[start]:])
}

// CopyFixedWidthValues copies entries starting at index start into out
// assuming every entry is width bytes long. The null slot stores a
// zero-length value, so the copy is split around it and its width bytes
// in out are left zeroed.
func (m *BinaryMemoTable) CopyFixedWidthValues(start, width int, out []byte) {
	if m.Size() <= start {
		return
	}

	nullIdx, hasNull := m.GetNull()
	if !hasNull || nullIdx < start {
		m.CopyValuesSubset(start, out)
		return
	}

	leftSize := (nullIdx - start) * width
	if leftSize > 0 {
		copy(out, m.data[m.offsets[start]:m.offsets[nullIdx]])
	}
	rightSize := len(m.data) - int(m.offsets[nullIdx])
	if rightSize > 0 {
		// skip the zero-filled null slot in the output
		copy(out[leftSize+width:], m.data[m.offsets[nullIdx]:])
	}
}

var _ MemoTable = (*BinaryMemoTable)(nil)
