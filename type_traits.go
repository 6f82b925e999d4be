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

package dictenc

import (
	"unsafe"
)

// FixedWidthValue constrains the Go types that back fixed-width columnar
// storage.
type FixedWidthValue interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 |
		~int64 | ~uint64 | ~float32 | ~float64
}

// CastFromBytes reinterprets the slice b as a slice of T.
//
// NOTE: len(b) must be a multiple of T's size.
func CastFromBytes[T FixedWidthValue](b []byte) []T {
	if cap(b) == 0 {
		return nil
	}
	ptr := (*T)(unsafe.Pointer(unsafe.SliceData(b)))
	size := int(unsafe.Sizeof(*ptr))
	return unsafe.Slice(ptr, cap(b)/size)[:len(b)/size]
}

// CastToBytes reinterprets the slice s as a slice of bytes.
func CastToBytes[T FixedWidthValue](s []T) []byte {
	if cap(s) == 0 {
		return nil
	}
	ptr := (*byte)(unsafe.Pointer(unsafe.SliceData(s)))
	var zero T
	size := int(unsafe.Sizeof(zero))
	return unsafe.Slice(ptr, cap(s)*size)[: len(s)*size : len(s)*size]
}

const Int32SizeBytes = int(unsafe.Sizeof(int32(0)))
