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

import "strconv"

type BinaryType struct{}

func (t *BinaryType) ID() Type       { return BINARY }
func (t *BinaryType) Name() string   { return "binary" }
func (t *BinaryType) String() string { return "binary" }
func (t *BinaryType) Layout() Layout { return LayoutVariableBinary }
func (t *BinaryType) binary()        {}

type StringType struct{}

func (t *StringType) ID() Type       { return STRING }
func (t *StringType) Name() string   { return "utf8" }
func (t *StringType) String() string { return "utf8" }
func (t *StringType) Layout() Layout { return LayoutVariableBinary }
func (t *StringType) binary()        {}

// FixedSizeBinaryType describes binary values of ByteWidth bytes each.
// The width is a property of the type descriptor, not of any Go type.
type FixedSizeBinaryType struct {
	ByteWidth int
}

func (t *FixedSizeBinaryType) ID() Type       { return FIXED_SIZE_BINARY }
func (t *FixedSizeBinaryType) Name() string   { return "fixed_size_binary" }
func (t *FixedSizeBinaryType) Layout() Layout { return LayoutFixedSizeBinary }
func (t *FixedSizeBinaryType) BitWidth() int  { return 8 * t.ByteWidth }
func (t *FixedSizeBinaryType) String() string {
	return t.Name() + "[" + strconv.Itoa(t.ByteWidth) + "]"
}

var BinaryTypes = struct {
	Binary BinaryDataType
	String BinaryDataType
}{
	Binary: &BinaryType{},
	String: &StringType{},
}
