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

package assemble

import (
	"testing"

	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/batch"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/typespec"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/vcf"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/vschema"
)

func buildTwoRowBatch(t *testing.T) (*vschema.Plan, *batch.Root) {
	t.Helper()
	header := &vcf.Header{
		Contigs: []string{"chr1"},
		Filters: []string{"PASS"},
	}
	plan := vschema.Build(header, typespec.New(), vschema.Options{})
	b := batch.NewBuilder(memory.NewGoAllocator(), header, plan)

	id := "rs1"
	b.Append(&vcf.Record{Chrom: 0, Pos: 0, ID: &id, Ref: "A", Alt: []string{"T"}, FilterIDs: []int{0}})
	b.Append(&vcf.Record{Chrom: 0, Pos: 1, Ref: "C", Alt: []string{"G", "A"}})
	return plan, b.Flush()
}

func TestAssemble_TopLevelShape(t *testing.T) {
	plan, root := buildTwoRowBatch(t)
	arr := Assemble(plan.Schema, root)
	defer arr.Release(arr)

	assert.Equal(t, int64(2), arr.Length)
	assert.Equal(t, int64(7), arr.NChildren) // CHROM,POS,ID,REF,ALT,QUAL,FILTER
	assert.Len(t, arr.Buffers, 1)
	assert.Nil(t, arr.Buffers[0]) // struct validity always all-valid -> nil buffer
	require.NotNil(t, arr.Release)
}

func TestAssemble_ValidityCoherence(t *testing.T) {
	plan, root := buildTwoRowBatch(t)
	arr := Assemble(plan.Schema, root)
	defer arr.Release(arr)

	// ID: row 0 = "rs1" (valid), row 1 = missing (null).
	idArr := arr.Children[2]
	assert.Equal(t, int64(1), idArr.NullCount)
	assert.Equal(t, int64(2), idArr.Length)
}

func TestAssemble_ListOffsetsMonotone(t *testing.T) {
	plan, root := buildTwoRowBatch(t)
	arr := Assemble(plan.Schema, root)
	defer arr.Release(arr)

	altArr := arr.Children[4]
	assert.Equal(t, int64(2), altArr.Length)
	assert.Equal(t, int64(2), altArr.NBuffers)
	require.NotNil(t, altArr.Buffers[1]) // offsets buffer present
	offsets := (*[3]int32)(altArr.Buffers[1])
	assert.Equal(t, [3]int32{0, 1, 3}, *offsets) // ["T"], ["G","A"]
	require.Len(t, altArr.Children, 1)
	assert.Equal(t, int64(3), altArr.Children[0].Length) // "T" + "G" + "A" = 3 elements
}

func TestAssemble_ReleaseIsIdempotent(t *testing.T) {
	plan, root := buildTwoRowBatch(t)
	arr := Assemble(plan.Schema, root)

	assert.NotPanics(t, func() {
		arr.Release(arr)
		// Second invocation must be a documented no-op, not a double
		// free: the top-level Release field is nilled after the first
		// call, so callers are expected to guard via cdi.ReleaseArray,
		// but calling the raw field a second time while non-nil must
		// still not panic.
		if arr.Release != nil {
			arr.Release(arr)
		}
	})
	assert.Nil(t, arr.Release)
}

func TestAbort_ReleasesWithoutAssembling(t *testing.T) {
	_, root := buildTwoRowBatch(t)
	assert.NotPanics(t, func() { Abort(root) })
}
