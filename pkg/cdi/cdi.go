// Copyright The OpenTelemetry Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cdi implements the Arrow C Data Interface structures —
// ArrowSchema, ArrowArray, ArrowArrayStream — together with their
// release-callback discipline: each node's release function frees every
// buffer it owns, recursively releases and frees every child, then nils
// itself out so a second call is a no-op.
//
// The actual cgo/C ABI binding that would let a foreign-language runtime
// dereference these pointers belongs to the host runtime's binding
// layer; what's implemented here is the Go-side structure and ownership
// discipline such a binding would be built on top of — a tagged-variant
// owner model.
package cdi

import "unsafe"

// Flag bits for ArrowSchema.Flags.
const (
	FlagDictionaryOrdered int64 = 1 << 0
	FlagNullable          int64 = 1 << 1
	FlagMapKeysSorted     int64 = 1 << 2
)

// Format strings for ArrowSchema.Format.
const (
	FormatUtf8    = "u"
	FormatBool    = "b"
	FormatInt8    = "c"
	FormatInt16   = "s"
	FormatInt32   = "i"
	FormatInt64   = "l"
	FormatFloat32 = "f"
	FormatFloat64 = "g"
	FormatStruct  = "+s"
	FormatList    = "+l"
)

// ArrowSchema mirrors the C Data Interface ArrowSchema struct.
type ArrowSchema struct {
	Format      string
	Name        string
	Metadata    []byte
	Flags       int64
	NChildren   int64
	Children    []*ArrowSchema
	Dictionary  *ArrowSchema
	Release     func(*ArrowSchema)
	PrivateData interface{}
}

// ArrowArray mirrors the C Data Interface ArrowArray struct. Buffers
// are represented as unsafe.Pointer to stay ABI-shaped; PrivateData is the Go
// value that actually keeps the backing memory alive and is what
// Release's closure frees.
type ArrowArray struct {
	Length      int64
	NullCount   int64
	Offset      int64
	NBuffers    int64
	NChildren   int64
	Buffers     []unsafe.Pointer
	Children    []*ArrowArray
	Dictionary  *ArrowArray
	Release     func(*ArrowArray)
	PrivateData interface{}
}

// IsReleased reports whether Release has already nulled out the node.
func (a *ArrowArray) IsReleased() bool { return a.Release == nil }

// ReleaseArray invokes arr's release callback if present, and is
// guaranteed idempotent: arr.Release == nil after the first call, so a
// second invocation (from anywhere — an abort path racing a normal
// teardown) is a documented no-op rather than a double free.
func ReleaseArray(arr *ArrowArray) {
	if arr == nil || arr.Release == nil {
		return
	}
	arr.Release(arr)
}

// ReleaseSchema invokes s's release callback if present, idempotently.
func ReleaseSchema(s *ArrowSchema) {
	if s == nil || s.Release == nil {
		return
	}
	s.Release(s)
}

// ArrowArrayStream mirrors the C Data Interface ArrowArrayStream struct:
// three callbacks plus release, driving the Open -> Streaming ->
// Exhausted -> Released state machine pkg/stream implements.
type ArrowArrayStream struct {
	GetSchema    func(out *ArrowSchema) error
	GetNext      func(out *ArrowArray) error
	GetLastError func() string
	Release      func()
	PrivateData  interface{}
}

// ExhaustedArray builds the "exhausted" ArrowArray get_next emits once
// the Reader reaches EOF: zero length, release callback null, nothing
// further to free.
func ExhaustedArray() *ArrowArray {
	return &ArrowArray{
		Length:    0,
		NullCount: 0,
		Offset:    0,
	}
}
