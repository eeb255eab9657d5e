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

import "github.com/apache/arrow/go/v12/arrow/memory"

// The accessors below expose each ColumnStage's finished buffers to
// pkg/assemble without handing out the stages' mutation methods — once a
// batch is flushed nothing should append to it again, only read and
// transfer ownership.

// Validity returns the bitmap buffer (nil if the column has no nulls
// yet) and the accumulated null count.
func (s *PrimitiveStage) Validity() (*memory.Buffer, int) { return s.validity.buf, s.validity.nullCount }

// Data returns the primitive data buffer.
func (s *PrimitiveStage) Data() *memory.Buffer { return s.data }

// IsBool reports whether this primitive stage is bit-packed bool data.
func (s *PrimitiveStage) IsBool() bool { return s.isBool }

// ElemSize returns the byte width of one element (1 for bit-packed bool).
func (s *PrimitiveStage) ElemSize() int { return s.elemSize }

// Validity returns the bitmap buffer (nil if no nulls yet) and null count.
func (s *StringStage) Validity() (*memory.Buffer, int) { return s.validity.buf, s.validity.nullCount }

// Offsets returns the int32 offsets buffer.
func (s *StringStage) Offsets() *memory.Buffer { return s.offsets }

// Data returns the concatenated string data buffer.
func (s *StringStage) Data() *memory.Buffer { return s.data }

// Validity returns the bitmap buffer (nil if no nulls yet) and null count.
func (s *ListStage) Validity() (*memory.Buffer, int) { return s.validity.buf, s.validity.nullCount }

// Offsets returns the int32 list-offsets buffer.
func (s *ListStage) Offsets() *memory.Buffer { return s.offsets }

// ReleaseOwned frees every buffer this stage owns. It is exported so
// pkg/assemble can free a staged column that is never turned into an
// ArrowArray (assemble.Abort); normal assembly moves the buffers into
// the ArrowArray's Owner instead.
func (s *PrimitiveStage) ReleaseOwned() { s.release() }

// ReleaseOwned frees every buffer this stage owns.
func (s *StringStage) ReleaseOwned() { s.release() }

// ReleaseOwned frees every buffer this stage (and its child) owns.
func (s *ListStage) ReleaseOwned() { s.release() }

// ReleaseOwned frees every buffer this stage's children own.
func (s *StructStage) ReleaseOwned() { s.release() }
