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

import "errors"

var (
	// ErrInvalid is wrapped by errors reporting invalid caller arguments,
	// such as a negative dictionary start offset.
	ErrInvalid = errors.New("invalid")

	// ErrOutOfMemory is wrapped by errors reporting buffer allocation
	// failure. No partial result accompanies it.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrNotImplemented is wrapped by errors reporting value types with
	// no dictionary materializer.
	ErrNotImplemented = errors.New("not implemented")
)
