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
	"testing"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaFromArrow_FormatsAndFlags(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "CHROM", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "POS", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		{Name: "QUAL", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "ALT", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: false},
		{Name: "INFO", Type: arrow.StructOf(
			arrow.Field{Name: "DB", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
			arrow.Field{Name: "AC", Type: arrow.ListOf(arrow.PrimitiveTypes.Int32), Nullable: true},
		), Nullable: false},
	}, nil)

	s := SchemaFromArrow(schema)
	defer ReleaseSchema(s)

	require.Equal(t, FormatStruct, s.Format)
	require.Equal(t, int64(5), s.NChildren)

	assert.Equal(t, FormatUtf8, s.Children[0].Format)
	assert.Zero(t, s.Children[0].Flags&FlagNullable)
	assert.Equal(t, FormatInt64, s.Children[1].Format)
	assert.Equal(t, FormatFloat64, s.Children[2].Format)
	assert.Equal(t, FlagNullable, s.Children[2].Flags&FlagNullable)

	alt := s.Children[3]
	assert.Equal(t, FormatList, alt.Format)
	require.Equal(t, int64(1), alt.NChildren)
	assert.Equal(t, FormatUtf8, alt.Children[0].Format)

	info := s.Children[4]
	assert.Equal(t, FormatStruct, info.Format)
	require.Equal(t, int64(2), info.NChildren)
	assert.Equal(t, FormatBool, info.Children[0].Format)
	assert.Equal(t, FormatList, info.Children[1].Format)
	assert.Equal(t, FormatInt32, info.Children[1].Children[0].Format)
}

func TestCloneSchema_IndependentLifetimes(t *testing.T) {
	orig := SchemaFromArrow(arrow.NewSchema([]arrow.Field{
		{Name: "ID", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil))

	clone := CloneSchema(orig)
	require.NotSame(t, orig, clone)
	require.NotSame(t, orig.Children[0], clone.Children[0])
	assert.Equal(t, orig.Children[0].Format, clone.Children[0].Format)

	ReleaseSchema(orig)
	assert.Nil(t, orig.Release)
	assert.Equal(t, "ID", clone.Children[0].Name, "clone survives the original's release")
	ReleaseSchema(clone)
	assert.Nil(t, clone.Release)
}

func TestReleaseSchema_Idempotent(t *testing.T) {
	s := SchemaFromArrow(arrow.NewSchema([]arrow.Field{
		{Name: "REF", Type: arrow.BinaryTypes.String},
	}, nil))
	ReleaseSchema(s)
	assert.NotPanics(t, func() { ReleaseSchema(s) })
}

func TestReleaseFunc_FreesOwnedBuffersOnce(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())

	childData := memory.NewResizableBuffer(mem)
	childData.Resize(32)
	offsets := memory.NewResizableBuffer(mem)
	offsets.Resize(12)

	childOwner := &PrimitiveOwner{Data: childData}
	child := &ArrowArray{Length: 2, NBuffers: 2, PrivateData: childOwner}
	child.Release = ReleaseFunc(childOwner)

	listOwner := &ListOwner{Offsets: offsets}
	parent := &ArrowArray{
		Length:      2,
		NBuffers:    2,
		NChildren:   1,
		Children:    []*ArrowArray{child},
		PrivateData: listOwner,
	}
	parent.Release = ReleaseFunc(listOwner)

	ReleaseArray(parent)
	assert.Nil(t, parent.Release)
	assert.Nil(t, child.Release, "release recurses into children")
	ReleaseArray(parent) // no-op

	mem.AssertSize(t, 0)
}

func TestExhaustedArray(t *testing.T) {
	arr := ExhaustedArray()
	assert.Zero(t, arr.Length)
	assert.Nil(t, arr.Release)
	assert.NotPanics(t, func() { ReleaseArray(arr) })
}
