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
	"sync/atomic"

	"github.com/colbase/dictenc"
	"github.com/colbase/dictenc/bitutil"
	"github.com/colbase/dictenc/internal/debug"
	"github.com/colbase/dictenc/memory"
)

// Data holds the materialized buffers and metadata of a dictionary value
// set. It is immutable once returned; the buffer list shape depends on
// the value type's physical layout:
//
//	{null bitmap, values}          fixed width, boolean, fixed-size binary
//	{null bitmap, offsets, values} variable-length binary
//
// Absent buffers (an all-valid bitmap, or the buffers of an empty
// dictionary) are nil entries.
type Data struct {
	refCount int64
	dtype    dictenc.DataType
	nullN    int
	length   int
	buffers  []*memory.Buffer
}

// NewData creates a new Data from the buffers, retaining each non-nil
// buffer. The caller keeps its own reference.
func NewData(dtype dictenc.DataType, length int, buffers []*memory.Buffer, nullN int) *Data {
	for _, b := range buffers {
		if b != nil {
			b.Retain()
		}
	}

	return &Data{
		refCount: 1,
		dtype:    dtype,
		nullN:    nullN,
		length:   length,
		buffers:  buffers,
	}
}

// Retain increases the reference count by 1.
// Retain may be called simultaneously from multiple goroutines.
func (d *Data) Retain() {
	atomic.AddInt64(&d.refCount, 1)
}

// Release decreases the reference count by 1.
// When the reference count goes to zero, the memory is freed.
// Release may be called simultaneously from multiple goroutines.
func (d *Data) Release() {
	debug.Assert(atomic.LoadInt64(&d.refCount) > 0, "too many releases")

	if atomic.AddInt64(&d.refCount, -1) == 0 {
		for _, b := range d.buffers {
			if b != nil {
				b.Release()
			}
		}
		d.buffers = nil
	}
}

// DataType returns the value type of the dictionary.
func (d *Data) DataType() dictenc.DataType { return d.dtype }

// NullN returns the number of null entries (0 or 1 for a dictionary).
func (d *Data) NullN() int { return d.nullN }

// Len returns the number of entries.
func (d *Data) Len() int { return d.length }

// Buffers returns the buffer list. Callers must not mutate the buffers.
func (d *Data) Buffers() []*memory.Buffer { return d.buffers }

// NullBitmapBytes returns the null bitmap bytes, or nil when every entry
// is valid.
func (d *Data) NullBitmapBytes() []byte {
	if d.buffers[0] == nil {
		return nil
	}
	return d.buffers[0].Bytes()
}

// IsNull reports whether entry i is the null entry.
func (d *Data) IsNull(i int) bool {
	return d.nullN > 0 && bitutil.BitIsNotSet(d.NullBitmapBytes(), i)
}
