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

// Type is the id of a logical value type. Every type maps onto exactly
// one physical layout (see Layout).
type Type int

const (
	// BOOL is a 1 bit, LSB bit-packed ordering
	BOOL Type = iota

	// UINT8 is an Unsigned 8-bit little-endian integer
	UINT8

	// INT8 is a Signed 8-bit little-endian integer
	INT8

	// UINT16 is an Unsigned 16-bit little-endian integer
	UINT16

	// INT16 is a Signed 16-bit little-endian integer
	INT16

	// UINT32 is an Unsigned 32-bit little-endian integer
	UINT32

	// INT32 is a Signed 32-bit little-endian integer
	INT32

	// UINT64 is an Unsigned 64-bit little-endian integer
	UINT64

	// INT64 is a Signed 64-bit little-endian integer
	INT64

	// FLOAT32 is a 4-byte floating point value
	FLOAT32

	// FLOAT64 is an 8-byte floating point value
	FLOAT64

	// STRING is a UTF8 variable-length string
	STRING

	// BINARY is a Variable-length byte type (no guarantee of UTF8-ness)
	BINARY

	// FIXED_SIZE_BINARY is a binary where each value occupies the same number of bytes
	FIXED_SIZE_BINARY

	// DATE32 is int32 days since the UNIX epoch
	DATE32

	// DATE64 is int64 milliseconds since the UNIX epoch
	DATE64

	// TIMESTAMP is an exact timestamp encoded with int64 since UNIX epoch
	TIMESTAMP

	// TIME32 is a signed 32-bit integer, representing either seconds or
	// milliseconds since midnight
	TIME32

	// TIME64 is a signed 64-bit integer, representing either microseconds or
	// nanoseconds since midnight
	TIME64

	// DURATION is an int64 measure of elapsed time in a given unit
	DURATION

	// DECIMAL128 is a fixed-precision decimal stored as a 128-bit integer
	DECIMAL128
)

// Layout is the physical shape a value type requires in a columnar
// buffer set.
type Layout int8

const (
	// LayoutFixedWidth types have a constant byte width known from the
	// type (integers, floats, dates, times, decimals).
	LayoutFixedWidth Layout = iota

	// LayoutBoolean types are 1-bit values packed LSB-first.
	LayoutBoolean

	// LayoutVariableBinary types are arbitrary-length byte strings and
	// need an offsets buffer.
	LayoutVariableBinary

	// LayoutFixedSizeBinary types are byte strings whose width is a
	// runtime property of the type descriptor.
	LayoutFixedSizeBinary
)

// DataType is implemented by all concrete value types.
type DataType interface {
	ID() Type

	// Name is the canonical lower-case name of the type.
	Name() string

	// Layout reports the physical layout category of the type.
	Layout() Layout
}

// FixedWidthDataType is implemented by types whose values occupy a
// constant number of bits known from the type alone.
type FixedWidthDataType interface {
	DataType

	// BitWidth returns the number of bits required to store a single value.
	BitWidth() int
}

// BinaryDataType is implemented by the variable-length binary types.
type BinaryDataType interface {
	DataType
	binary()
}

// TimeUnit is the granularity of a temporal type.
type TimeUnit int

const (
	Second TimeUnit = iota
	Millisecond
	Microsecond
	Nanosecond
)

func (u TimeUnit) String() string {
	return [...]string{"s", "ms", "us", "ns"}[uint(u)&3]
}
