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

	"github.com/colbase/dictenc"
	"github.com/colbase/dictenc/bitutil"
	"github.com/goccy/go-json"
)

// MarshalJSON renders the dictionary values as a JSON array in insertion
// order, with the null entry rendered as null. Intended for debugging
// and test readback, not as a wire format.
func (d *Data) MarshalJSON() ([]byte, error) {
	vals, err := d.marshalValues()
	if err != nil {
		return nil, err
	}
	return json.Marshal(vals)
}

func (d *Data) marshalValues() ([]interface{}, error) {
	switch d.dtype.ID() {
	case dictenc.BOOL:
		return marshalBits(d), nil
	case dictenc.INT8:
		return marshalFixedWidth[int8](d), nil
	case dictenc.UINT8:
		return marshalFixedWidth[uint8](d), nil
	case dictenc.INT16:
		return marshalFixedWidth[int16](d), nil
	case dictenc.UINT16:
		return marshalFixedWidth[uint16](d), nil
	case dictenc.INT32, dictenc.DATE32, dictenc.TIME32:
		return marshalFixedWidth[int32](d), nil
	case dictenc.UINT32:
		return marshalFixedWidth[uint32](d), nil
	case dictenc.INT64, dictenc.DATE64, dictenc.TIME64, dictenc.TIMESTAMP, dictenc.DURATION:
		return marshalFixedWidth[int64](d), nil
	case dictenc.UINT64:
		return marshalFixedWidth[uint64](d), nil
	case dictenc.FLOAT32:
		return marshalFixedWidth[float32](d), nil
	case dictenc.FLOAT64:
		return marshalFixedWidth[float64](d), nil
	case dictenc.STRING:
		return marshalVariableBinary(d, func(b []byte) interface{} { return string(b) }), nil
	case dictenc.BINARY:
		return marshalVariableBinary(d, func(b []byte) interface{} { return b }), nil
	case dictenc.FIXED_SIZE_BINARY, dictenc.DECIMAL128:
		return marshalFixedSizeBinary(d), nil
	}
	return nil, fmt.Errorf("%w: cannot render type %s", dictenc.ErrNotImplemented, d.dtype.Name())
}

func marshalBits(d *Data) []interface{} {
	vals := make([]interface{}, d.Len())
	if d.Len() == 0 {
		return vals
	}
	bits := d.buffers[1].Bytes()
	for i := range vals {
		if d.IsNull(i) {
			continue
		}
		vals[i] = bitutil.BitIsSet(bits, i)
	}
	return vals
}

func marshalFixedWidth[T dictenc.FixedWidthValue](d *Data) []interface{} {
	vals := make([]interface{}, d.Len())
	if d.Len() == 0 {
		return vals
	}
	values := dictenc.CastFromBytes[T](d.buffers[1].Bytes())
	for i := range vals {
		if d.IsNull(i) {
			continue
		}
		vals[i] = values[i]
	}
	return vals
}

func marshalVariableBinary(d *Data, conv func([]byte) interface{}) []interface{} {
	vals := make([]interface{}, d.Len())
	if d.Len() == 0 {
		return vals
	}
	offsets := dictenc.CastFromBytes[int32](d.buffers[1].Bytes())
	var values []byte
	if d.buffers[2] != nil {
		values = d.buffers[2].Bytes()
	}
	for i := range vals {
		if d.IsNull(i) {
			continue
		}
		vals[i] = conv(values[offsets[i]:offsets[i+1]])
	}
	return vals
}

func marshalFixedSizeBinary(d *Data) []interface{} {
	vals := make([]interface{}, d.Len())
	if d.Len() == 0 {
		return vals
	}
	width := int(bitutil.BytesForBits(int64(d.dtype.(dictenc.FixedWidthDataType).BitWidth())))
	values := d.buffers[1].Bytes()
	for i := range vals {
		if d.IsNull(i) {
			continue
		}
		vals[i] = values[i*width : (i+1)*width]
	}
	return vals
}
