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

// Package assemble walks a finalized batch.Root in lock-step with the
// arrow.Schema pkg/vschema produced and builds a cdi.ArrowArray tree
// whose buffers, validity, and offsets stay mutually consistent, with
// an Owner-backed release callback on every node.
package assemble

import (
	"unsafe"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/batch"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/cdi"
)

// Assemble converts root into the top-level struct ArrowArray for schema,
// moving ownership of every buffer root's stages hold into the returned
// array's release discipline. After Assemble returns, root must not be
// used again; emission is a move, not a copy.
func Assemble(schema *arrow.Schema, root *batch.Root) *cdi.ArrowArray {
	fields := schema.Fields()
	stages := rootStages(root)

	children := make([]*cdi.ArrowArray, len(fields))
	for i := range fields {
		children[i] = stageToArray(stages[i], &fields[i])
	}

	owner := &cdi.StructOwner{}
	arr := &cdi.ArrowArray{
		Length:      int64(root.Len()),
		NullCount:   0,
		Offset:      0,
		NBuffers:    1,
		NChildren:   int64(len(children)),
		Buffers:     []unsafe.Pointer{nil},
		Children:    children,
		PrivateData: owner,
	}
	arr.Release = cdi.ReleaseFunc(owner)
	return arr
}

// rootStages returns root's top-level ColumnStages in the exact order
// vschema.Build emits schema fields: CHROM, POS, ID, REF, ALT, QUAL,
// FILTER, then INFO and/or samples if present.
func rootStages(root *batch.Root) []batch.Stage {
	stages := []batch.Stage{root.Chrom, root.Pos, root.ID, root.Ref, root.Alt, root.Qual, root.Filter}
	if root.Info != nil {
		stages = append(stages, root.Info)
	}
	if root.Samples != nil {
		stages = append(stages, root.Samples)
	}
	return stages
}

func bufPtr(b *memory.Buffer) unsafe.Pointer {
	if b == nil || b.Len() == 0 {
		return nil
	}
	return unsafe.Pointer(&b.Bytes()[0])
}

// stageToArray dispatches on the concrete ColumnStage type, mirroring the
// arrow.DataType field carries so nested list/struct children get the
// right field metadata for their own recursion.
func stageToArray(stage batch.Stage, field *arrow.Field) *cdi.ArrowArray {
	switch s := stage.(type) {
	case *batch.PrimitiveStage:
		return primitiveArray(s)
	case *batch.StringStage:
		return stringArray(s)
	case *batch.ListStage:
		return listArray(s, field)
	case *batch.StructStage:
		return structArray(s, field)
	default:
		panic("assemble: unknown stage type")
	}
}

func primitiveArray(s *batch.PrimitiveStage) *cdi.ArrowArray {
	validity, nullCount := s.Validity()
	owner := &cdi.PrimitiveOwner{Validity: validity, Data: s.Data()}
	arr := &cdi.ArrowArray{
		Length:      int64(s.Len()),
		NullCount:   int64(nullCount),
		NBuffers:    2,
		Buffers:     []unsafe.Pointer{bufPtr(validity), bufPtr(s.Data())},
		PrivateData: owner,
	}
	arr.Release = cdi.ReleaseFunc(owner)
	return arr
}

func stringArray(s *batch.StringStage) *cdi.ArrowArray {
	validity, nullCount := s.Validity()
	owner := &cdi.StringOwner{Validity: validity, Offsets: s.Offsets(), Data: s.Data()}
	arr := &cdi.ArrowArray{
		Length:      int64(s.Len()),
		NullCount:   int64(nullCount),
		NBuffers:    3,
		Buffers:     []unsafe.Pointer{bufPtr(validity), bufPtr(s.Offsets()), bufPtr(s.Data())},
		PrivateData: owner,
	}
	arr.Release = cdi.ReleaseFunc(owner)
	return arr
}

func listArray(s *batch.ListStage, field *arrow.Field) *cdi.ArrowArray {
	validity, nullCount := s.Validity()
	owner := &cdi.ListOwner{Validity: validity, Offsets: s.Offsets()}

	var childField *arrow.Field
	if lt, ok := field.Type.(*arrow.ListType); ok {
		f := lt.ElemField()
		childField = &f
	}
	child := stageToArray(s.Child(), childField)

	arr := &cdi.ArrowArray{
		Length:      int64(s.Len()),
		NullCount:   int64(nullCount),
		NBuffers:    2,
		NChildren:   1,
		Buffers:     []unsafe.Pointer{bufPtr(validity), bufPtr(s.Offsets())},
		Children:    []*cdi.ArrowArray{child},
		PrivateData: owner,
	}
	arr.Release = cdi.ReleaseFunc(owner)
	return arr
}

func structArray(s *batch.StructStage, field *arrow.Field) *cdi.ArrowArray {
	owner := &cdi.StructOwner{}

	var childFields []arrow.Field
	if st, ok := field.Type.(*arrow.StructType); ok {
		childFields = st.Fields()
	}

	children := make([]*cdi.ArrowArray, len(s.Children))
	for i, c := range s.Children {
		var cf *arrow.Field
		if i < len(childFields) {
			cf = &childFields[i]
		}
		children[i] = stageToArray(c, cf)
	}

	arr := &cdi.ArrowArray{
		Length:      int64(s.Len()),
		NullCount:   0,
		NBuffers:    1,
		NChildren:   int64(len(children)),
		Buffers:     []unsafe.Pointer{nil},
		Children:    children,
		PrivateData: owner,
	}
	arr.Release = cdi.ReleaseFunc(owner)
	return arr
}

// Abort releases every buffer root's stages own without ever building an
// ArrowArray: the staged batch is freed and no ArrowArray is emitted.
func Abort(root *batch.Root) {
	root.Chrom.ReleaseOwned()
	root.Pos.ReleaseOwned()
	root.ID.ReleaseOwned()
	root.Ref.ReleaseOwned()
	root.Alt.ReleaseOwned()
	root.Qual.ReleaseOwned()
	root.Filter.ReleaseOwned()
	if root.Info != nil {
		root.Info.ReleaseOwned()
	}
	if root.Samples != nil {
		root.Samples.ReleaseOwned()
	}
}
