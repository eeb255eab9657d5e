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

package cdi

import (
	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/memory"
)

// Owner is the tagged-variant buffer owner behind every ArrowArray
// node's PrivateData; closing over it is exactly what each node's
// Release callback does.
type Owner interface {
	// release drops this owner's references to its buffers. It is reached
	// at most once per node, since ReleaseFunc's callback nils the node's
	// Release field. Any buffer field may be nil (an all-valid column has
	// no validity bitmap, an empty list child has no data buffer); nil
	// buffers are skipped.
	release()
}

// PrimitiveOwner backs a fixed-width leaf: validity bitmap + data buffer.
type PrimitiveOwner struct {
	Validity *memory.Buffer // nil if the column has no nulls
	Data     *memory.Buffer
}

func (o *PrimitiveOwner) release() {
	if o.Validity != nil {
		o.Validity.Release()
	}
	if o.Data != nil {
		o.Data.Release()
	}
}

// StringOwner backs a utf8 leaf: validity bitmap + int32 offsets + data.
type StringOwner struct {
	Validity *memory.Buffer
	Offsets  *memory.Buffer
	Data     *memory.Buffer
}

func (o *StringOwner) release() {
	if o.Validity != nil {
		o.Validity.Release()
	}
	if o.Offsets != nil {
		o.Offsets.Release()
	}
	if o.Data != nil {
		o.Data.Release()
	}
}

// ListOwner backs a list<T> node: validity bitmap + int32 offsets. The
// child array is released independently as an ArrowArray child, not held
// here.
type ListOwner struct {
	Validity *memory.Buffer
	Offsets  *memory.Buffer
}

func (o *ListOwner) release() {
	if o.Validity != nil {
		o.Validity.Release()
	}
	if o.Offsets != nil {
		o.Offsets.Release()
	}
}

// StructOwner backs a struct node: validity bitmap only (struct validity
// is always all-valid in this engine, but the buffer slot still
// exists per the CDI layout).
type StructOwner struct {
	Validity *memory.Buffer
}

func (o *StructOwner) release() {
	if o.Validity != nil {
		o.Validity.Release()
	}
}

// ReleaseFunc returns an ArrowArray release callback that frees owner's
// buffers, recursively releases every child, then nils the node's own
// Release field so a second invocation is a no-op.
func ReleaseFunc(owner Owner) func(*ArrowArray) {
	return func(a *ArrowArray) {
		for _, child := range a.Children {
			ReleaseArray(child)
		}
		if a.Dictionary != nil {
			ReleaseArray(a.Dictionary)
		}
		if owner != nil {
			owner.release()
		}
		a.Buffers = nil
		a.Children = nil
		a.PrivateData = nil
		a.Release = nil
	}
}

// SchemaFromArrow converts an apache/arrow/go *arrow.Schema into the CDI
// ArrowSchema tree: same child count, same names, same primitive
// formats, same nesting as whatever pkg/vschema produced.
func SchemaFromArrow(schema *arrow.Schema) *ArrowSchema {
	fields := schema.Fields()
	children := make([]*ArrowSchema, len(fields))
	for i := range fields {
		children[i] = fieldToSchema(&fields[i])
	}
	root := &ArrowSchema{
		Format:    FormatStruct,
		Name:      "",
		Flags:     0,
		NChildren: int64(len(children)),
		Children:  children,
	}
	root.Release = func(s *ArrowSchema) {
		for _, c := range s.Children {
			ReleaseSchema(c)
		}
		s.Children = nil
		s.Release = nil
	}
	return root
}

func fieldToSchema(f *arrow.Field) *ArrowSchema {
	s := &ArrowSchema{Name: f.Name}
	if f.Nullable {
		s.Flags |= FlagNullable
	}

	switch dt := f.Type.(type) {
	case *arrow.BooleanType:
		s.Format = FormatBool
	case *arrow.Int32Type:
		s.Format = FormatInt32
	case *arrow.Int64Type:
		s.Format = FormatInt64
	case *arrow.Float32Type:
		s.Format = FormatFloat32
	case *arrow.Float64Type:
		s.Format = FormatFloat64
	case *arrow.StringType:
		s.Format = FormatUtf8
	case *arrow.ListType:
		s.Format = FormatList
		elem := dt.ElemField()
		s.Children = []*ArrowSchema{fieldToSchema(&elem)}
		s.NChildren = 1
	case *arrow.StructType:
		s.Format = FormatStruct
		fs := dt.Fields()
		s.Children = make([]*ArrowSchema, len(fs))
		for i := range fs {
			s.Children[i] = fieldToSchema(&fs[i])
		}
		s.NChildren = int64(len(fs))
	default:
		// Not reachable for schemas produced by pkg/vschema, which only
		// ever emits the types handled above.
		s.Format = FormatUtf8
	}

	s.Release = func(node *ArrowSchema) {
		for _, c := range node.Children {
			ReleaseSchema(c)
		}
		node.Children = nil
		node.Release = nil
	}
	return s
}

// CloneSchema deep-copies an ArrowSchema tree. A stream's get_schema
// must return a fresh deep copy on every call after the first —
// schemas are structurally re-materialized, never ref-shared — so that
// releasing one consumer's copy never affects another's.
func CloneSchema(s *ArrowSchema) *ArrowSchema {
	if s == nil {
		return nil
	}
	clone := &ArrowSchema{
		Format: s.Format,
		Name:   s.Name,
		Flags:  s.Flags,
	}
	if s.Metadata != nil {
		clone.Metadata = append([]byte(nil), s.Metadata...)
	}
	if len(s.Children) > 0 {
		clone.Children = make([]*ArrowSchema, len(s.Children))
		for i, c := range s.Children {
			clone.Children[i] = CloneSchema(c)
		}
		clone.NChildren = int64(len(clone.Children))
	}
	if s.Dictionary != nil {
		clone.Dictionary = CloneSchema(s.Dictionary)
	}
	clone.Release = func(node *ArrowSchema) {
		for _, c := range node.Children {
			ReleaseSchema(c)
		}
		if node.Dictionary != nil {
			ReleaseSchema(node.Dictionary)
		}
		node.Children = nil
		node.Release = nil
	}
	return clone
}
