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

package memory

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"
)

// CheckedAllocator wraps an Allocator and tracks the amount of live
// allocated memory, recording the call site of every outstanding
// allocation so tests can report leaks.
type CheckedAllocator struct {
	mem Allocator
	sz  int64

	allocs sync.Map
}

func NewCheckedAllocator(mem Allocator) *CheckedAllocator {
	return &CheckedAllocator{mem: mem}
}

func (a *CheckedAllocator) CurrentAlloc() int { return int(atomic.LoadInt64(&a.sz)) }

type dalloc struct {
	pc uintptr
	sz int
}

func (a *CheckedAllocator) Allocate(size int) []byte {
	atomic.AddInt64(&a.sz, int64(size))
	out := a.mem.Allocate(size)
	if size == 0 {
		return out
	}

	ptr := uintptr(unsafe.Pointer(&out[0]))
	if pc, _, _, ok := runtime.Caller(1); ok {
		a.allocs.Store(ptr, &dalloc{pc: pc, sz: size})
	}
	return out
}

func (a *CheckedAllocator) Reallocate(size int, b []byte) []byte {
	atomic.AddInt64(&a.sz, int64(size-len(b)))
	if len(b) > 0 {
		a.allocs.Delete(uintptr(unsafe.Pointer(&b[0])))
	}

	out := a.mem.Reallocate(size, b)
	if size == 0 {
		return out
	}

	ptr := uintptr(unsafe.Pointer(&out[0]))
	if pc, _, _, ok := runtime.Caller(1); ok {
		a.allocs.Store(ptr, &dalloc{pc: pc, sz: size})
	}
	return out
}

func (a *CheckedAllocator) Free(b []byte) {
	atomic.AddInt64(&a.sz, int64(len(b)*-1))
	defer a.mem.Free(b)

	if len(b) == 0 {
		return
	}

	a.allocs.Delete(uintptr(unsafe.Pointer(&b[0])))
}

// TestingT is the interface the testing helpers require, implemented by
// *testing.T and *testing.B.
type TestingT interface {
	Errorf(format string, args ...interface{})
	Helper()
}

// AssertSize fails the test if the amount of live allocated memory does
// not match sz, reporting the call site of each leaked allocation.
func (a *CheckedAllocator) AssertSize(t TestingT, sz int) {
	t.Helper()

	a.allocs.Range(func(_, value interface{}) bool {
		info := value.(*dalloc)
		f := runtime.FuncForPC(info.pc)
		if f != nil {
			file, line := f.FileLine(info.pc)
			t.Errorf("LEAK of %d bytes FROM %s line %d", info.sz, file, line)
		} else {
			t.Errorf("LEAK of %d bytes FROM unknown source", info.sz)
		}
		return true
	})

	if got := a.CurrentAlloc(); got != sz {
		t.Errorf("invalid memory size exp=%d, got=%d", sz, got)
	}
}

var _ Allocator = (*CheckedAllocator)(nil)

// LimitedAllocator caps the amount of live memory an inner Allocator may
// hand out, panicking with an OOM error once the limit is crossed. It is
// used in tests to exercise allocation failure paths.
type LimitedAllocator struct {
	mem   Allocator
	limit int64
	sz    int64
}

func NewLimitedAllocator(mem Allocator, limit int64) *LimitedAllocator {
	return &LimitedAllocator{mem: mem, limit: limit}
}

func (a *LimitedAllocator) CurrentAlloc() int { return int(atomic.LoadInt64(&a.sz)) }

func (a *LimitedAllocator) Allocate(size int) []byte {
	if atomic.AddInt64(&a.sz, int64(size)) > a.limit {
		atomic.AddInt64(&a.sz, int64(-size))
		panic(fmt.Errorf("allocation size %d exceeds limit %d", size, a.limit))
	}
	return a.mem.Allocate(size)
}

func (a *LimitedAllocator) Reallocate(size int, b []byte) []byte {
	if atomic.AddInt64(&a.sz, int64(size-len(b))) > a.limit {
		atomic.AddInt64(&a.sz, int64(len(b)-size))
		panic(fmt.Errorf("allocation size %d exceeds limit %d", size, a.limit))
	}
	return a.mem.Reallocate(size, b)
}

func (a *LimitedAllocator) Free(b []byte) {
	atomic.AddInt64(&a.sz, int64(len(b)*-1))
	a.mem.Free(b)
}

var _ Allocator = (*LimitedAllocator)(nil)
