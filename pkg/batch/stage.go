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

package batch

import (
	"github.com/apache/arrow/go/v12/arrow/bitutil"
	"github.com/apache/arrow/go/v12/arrow/memory"
)

// Initial scratch sizes: 1024 elements for numeric leaves, 4096 bytes
// for string data.
const (
	initialNumericElems = 1024
	initialStringBytes  = 4096
)

// Stage is the common interface every ColumnStage variant satisfies: it
// knows its own row count so Builder and pkg/assemble can
// sanity-check that every sibling column stayed in lock-step.
type Stage interface {
	Len() int
	// release drops every buffer this stage (and its children) own,
	// without flight to an ArrowArray — used on Builder abort paths
	// where a partially staged batch must be freed without ever being
	// emitted.
	release()
}

// growBuffer doubles buf until it can hold at least wantBytes, preserving
// existing contents. Comparisons are against Len, not Cap: Resize rounds
// capacity up to 64-byte multiples, and Bytes() only spans Len, so an
// append must never rely on the rounded-up slack.
func growBuffer(mem memory.Allocator, buf *memory.Buffer, wantBytes int, initialBytes int) *memory.Buffer {
	if buf == nil {
		size := initialBytes
		for size < wantBytes {
			size *= 2
		}
		b := memory.NewResizableBuffer(mem)
		b.Resize(size)
		return b
	}
	if buf.Len() >= wantBytes {
		return buf
	}
	newSize := buf.Len()
	if newSize == 0 {
		newSize = initialBytes
	}
	for newSize < wantBytes {
		newSize *= 2
	}
	buf.Resize(newSize)
	return buf
}

// bitmap is a growable, bit-packed validity buffer shared by every leaf
// and list stage. A nil *memory.Buffer (zero value) means "no nulls
// observed yet"; pkg/assemble emits a nil CDI validity pointer in that
// case (an all-valid column carries no bitmap).
type bitmap struct {
	mem       memory.Allocator
	buf       *memory.Buffer
	nullCount int
}

func (b *bitmap) ensure(length int) {
	if b.buf == nil {
		// No null recorded yet: setNull allocates the bitmap lazily.
		return
	}
	need := int(bitutil.BytesForBits(int64(length)))
	if b.buf.Len() < need {
		prevLen := b.buf.Len()
		b.buf.Resize(need)
		// Newly grown bytes default to 0 (invalid); rows in [0, length)
		// beyond what was previously sized must be marked valid unless
		// they were nulled explicitly (callers clear nulled bits after
		// calling ensure, so defaulting new capacity to valid is safe).
		bitutil.SetBitsTo(b.buf.Bytes(), int64(prevLen*8), int64(length)-int64(prevLen*8), true)
	}
}

func (b *bitmap) setValid(i int) {
	if b.buf == nil {
		return
	}
	bitutil.SetBit(b.buf.Bytes(), i)
}

func (b *bitmap) setNull(i int) {
	if b.buf == nil {
		b.buf = memory.NewResizableBuffer(b.mem)
		b.buf.Resize(int(bitutil.BytesForBits(int64(i + 1))))
		// Every bit defaults to 0 (invalid); rows before the first null
		// were all valid.
		bitutil.SetBitsTo(b.buf.Bytes(), 0, int64(i), true)
	}
	bitutil.ClearBit(b.buf.Bytes(), i)
	b.nullCount++
}

func (b *bitmap) release() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}

// PrimitiveStage stages a fixed-width scalar column: bool, int32, or
// float32.
type PrimitiveStage struct {
	mem      memory.Allocator
	elemSize int
	isBool   bool
	data     *memory.Buffer
	length   int
	validity bitmap
}

func newPrimitiveStage(mem memory.Allocator, elemSize int, isBool bool) *PrimitiveStage {
	return &PrimitiveStage{mem: mem, elemSize: elemSize, isBool: isBool, validity: bitmap{mem: mem}}
}

func (s *PrimitiveStage) Len() int { return s.length }

func (s *PrimitiveStage) ensureData() {
	if s.isBool {
		s.data = growBuffer(s.mem, s.data, int(bitutil.BytesForBits(int64(s.length+1))), initialNumericElems/8)
		return
	}
	wantBytes := (s.length + 1) * s.elemSize
	s.data = growBuffer(s.mem, s.data, wantBytes, initialNumericElems*s.elemSize)
}

// AppendInt32 appends a non-null int32 value.
func (s *PrimitiveStage) AppendInt32(v int32) {
	s.ensureData()
	s.validity.ensure(s.length + 1)
	bytes := s.data.Bytes()
	off := s.length * 4
	bytes[off] = byte(v)
	bytes[off+1] = byte(v >> 8)
	bytes[off+2] = byte(v >> 16)
	bytes[off+3] = byte(v >> 24)
	s.validity.setValid(s.length)
	s.length++
}

// AppendFloat32 appends a non-null float32 value.
func (s *PrimitiveStage) AppendFloat32(bits uint32) {
	s.ensureData()
	s.validity.ensure(s.length + 1)
	bytes := s.data.Bytes()
	off := s.length * 4
	bytes[off] = byte(bits)
	bytes[off+1] = byte(bits >> 8)
	bytes[off+2] = byte(bits >> 16)
	bytes[off+3] = byte(bits >> 24)
	s.validity.setValid(s.length)
	s.length++
}

// AppendBool appends a non-null boolean value.
func (s *PrimitiveStage) AppendBool(v bool) {
	s.ensureData()
	s.validity.ensure(s.length + 1)
	if v {
		bitutil.SetBit(s.data.Bytes(), s.length)
	} else {
		bitutil.ClearBit(s.data.Bytes(), s.length)
	}
	s.validity.setValid(s.length)
	s.length++
}

// AppendNull appends a null scalar value (payload left zero/arbitrary).
func (s *PrimitiveStage) AppendNull() {
	s.ensureData()
	s.validity.ensure(s.length + 1)
	s.validity.setNull(s.length)
	s.length++
}

func (s *PrimitiveStage) release() {
	if s.data != nil {
		s.data.Release()
		s.data = nil
	}
	s.validity.release()
}

// StringStage stages a scalar utf8 column: int32 offsets + concatenated
// data.
type StringStage struct {
	mem      memory.Allocator
	offsets  *memory.Buffer
	data     *memory.Buffer
	dataLen  int
	length   int
	validity bitmap
}

func newStringStage(mem memory.Allocator) *StringStage {
	s := &StringStage{mem: mem, validity: bitmap{mem: mem}}
	s.offsets = memory.NewResizableBuffer(mem)
	s.offsets.Resize((initialNumericElems + 1) * 4)
	s.writeOffset(0, 0)
	return s
}

func (s *StringStage) Len() int { return s.length }

func (s *StringStage) writeOffset(i, v int) {
	b := s.offsets.Bytes()
	off := i * 4
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}

func (s *StringStage) ensureOffsets() {
	want := (s.length + 2) * 4
	if s.offsets.Len() < want {
		s.offsets = growBuffer(s.mem, s.offsets, want, (initialNumericElems+1)*4)
	}
}

func (s *StringStage) ensureData(extra int) {
	s.data = growBuffer(s.mem, s.data, s.dataLen+extra, initialStringBytes)
}

// AppendString appends a non-null string value.
func (s *StringStage) AppendString(v string) {
	s.ensureData(len(v))
	s.validity.ensure(s.length + 1)
	copy(s.data.Bytes()[s.dataLen:], v)
	s.dataLen += len(v)
	s.ensureOffsets()
	s.writeOffset(s.length+1, s.dataLen)
	s.validity.setValid(s.length)
	s.length++
}

// AppendNull appends a null string value (zero-length slice).
func (s *StringStage) AppendNull() {
	s.ensureData(0)
	s.ensureOffsets()
	s.writeOffset(s.length+1, s.dataLen)
	s.validity.ensure(s.length + 1)
	s.validity.setNull(s.length)
	s.length++
}

func (s *StringStage) release() {
	if s.offsets != nil {
		s.offsets.Release()
		s.offsets = nil
	}
	if s.data != nil {
		s.data.Release()
		s.data = nil
	}
	s.validity.release()
}

// ListStage stages a list<child> column: validity + int32 list_offsets
// + a child Stage that accumulates every element across every row
// (offsets[0]=0, monotone, offsets[B] equals the child's final
// length).
type ListStage struct {
	mem      memory.Allocator
	offsets  *memory.Buffer
	length   int
	child    Stage
	validity bitmap
}

func newListStage(mem memory.Allocator, child Stage) *ListStage {
	s := &ListStage{mem: mem, child: child, validity: bitmap{mem: mem}}
	s.offsets = memory.NewResizableBuffer(mem)
	s.offsets.Resize((initialNumericElems + 1) * 4)
	s.writeOffset(0, 0)
	return s
}

func (s *ListStage) Len() int { return s.length }

func (s *ListStage) writeOffset(i, v int) {
	b := s.offsets.Bytes()
	off := i * 4
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}

func (s *ListStage) ensureOffsets() {
	want := (s.length + 2) * 4
	if s.offsets.Len() < want {
		s.offsets = growBuffer(s.mem, s.offsets, want, (initialNumericElems+1)*4)
	}
}

// CloseRow finalizes one row's sublist after its elements have already
// been appended to Child(), recording the child's current length as this
// row's end offset. A non-present/missing list row is still valid
// (length-0 sublist with validity 1) unless MarkNull is used instead.
func (s *ListStage) CloseRow() {
	s.ensureOffsets()
	s.validity.ensure(s.length + 1)
	s.writeOffset(s.length+1, s.child.Len())
	s.validity.setValid(s.length)
	s.length++
}

// MarkNull closes a null list row: the sublist is empty and the
// validity bit is cleared.
func (s *ListStage) MarkNull() {
	s.ensureOffsets()
	s.validity.ensure(s.length + 1)
	s.writeOffset(s.length+1, s.child.Len())
	s.validity.setNull(s.length)
	s.length++
}

// Child returns the element stage new list elements should be appended
// to before calling CloseRow.
func (s *ListStage) Child() Stage { return s.child }

func (s *ListStage) release() {
	if s.offsets != nil {
		s.offsets.Release()
		s.offsets = nil
	}
	s.validity.release()
	s.child.release()
}

// StructStage stages a struct<...> column: children in schema order.
// Struct validity is always all-valid in this engine, so there is no
// bitmap here — pkg/assemble emits a nil validity buffer for every
// struct node.
type StructStage struct {
	Names    []string
	Children []Stage
	length   int
}

func newStructStage(names []string, children []Stage) *StructStage {
	return &StructStage{Names: names, Children: children}
}

// AdvanceRow marks one more struct row as populated (callers must have
// already advanced every child by exactly one row).
func (s *StructStage) AdvanceRow() { s.length++ }

func (s *StructStage) Len() int { return s.length }

func (s *StructStage) release() {
	for _, c := range s.Children {
		c.release()
	}
}
