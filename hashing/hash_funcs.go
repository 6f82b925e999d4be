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
	"math/bits"
	"unsafe"

	"github.com/zeebo/xxh3"
)

// Hash returns a hash of the byte slice with one of two hash algorithms,
// keyed by alg being 0 or 1.
func Hash(b []byte, alg int) uint64 {
	if alg == 0 {
		return xxh3.Hash(b)
	}
	return xxh3.HashSeed(b, uint64(alg))
}

func hashString(val string, alg int) uint64 {
	if len(val) == 0 {
		return Hash(nil, alg)
	}
	buf := unsafe.Slice(unsafe.StringData(val), len(val))
	return Hash(buf, alg)
}

func hashInt(val uint64, alg int) uint64 {
	// Two of xxhash's prime multipliers (which are chosen for their
	// bit dispersion properties)
	var multipliers = [2]uint64{11400714785074694791, 14029467366897019727}
	// Multiplying by the prime number mixes the low bits into the high bits,
	// then byte-swapping (which is a single CPU instruction) allows the
	// combined high and low bits to participate in the initial hash table index.
	return bits.ReverseBytes64(val * multipliers[alg])
}

// valueBits returns the raw bit pattern of a fixed-width value widened
// to 64 bits, suitable as input to hashInt.
func valueBits[T FixedWidthValue](val T) uint64 {
	switch unsafe.Sizeof(val) {
	case 1:
		return uint64(*(*uint8)(unsafe.Pointer(&val)))
	case 2:
		return uint64(*(*uint16)(unsafe.Pointer(&val)))
	case 4:
		return uint64(*(*uint32)(unsafe.Pointer(&val)))
	default:
		return *(*uint64)(unsafe.Pointer(&val))
	}
}
