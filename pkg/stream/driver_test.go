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

package stream

import (
	"errors"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/cdi"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/vcf"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/vcffake"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/werror"
)

func fakeReader(n int) *vcffake.Reader {
	opts := vcffake.DefaultOptions()
	opts.NumRecords = n
	return vcffake.New(opts)
}

// S5: batch_size=3, 7 records -> batches of 3, 3, 1, then exhausted.
func TestNext_S5BatchBoundary(t *testing.T) {
	d, err := Open(fakeReader(7), New(WithBatchSize(3)), nil)
	require.NoError(t, err)
	defer d.Release() //nolint:errcheck

	var lengths []int64
	for {
		arr, err := d.Next()
		require.NoError(t, err)
		if arr == nil {
			break
		}
		lengths = append(lengths, arr.Length)
		cdi.ReleaseArray(arr)
	}
	assert.Equal(t, []int64{3, 3, 1}, lengths)

	// Row conservation: emitted rows == records the reader yielded.
	snap := d.Stats()
	assert.Equal(t, int64(7), snap.RowsEmitted)
	assert.Equal(t, int64(3), snap.BatchesEmitted)

	// After EOF every further call emits exhausted, never errors.
	arr, err := d.Next()
	assert.NoError(t, err)
	assert.Nil(t, arr)
}

// Property 1: two successive get_schema calls produce structurally equal
// schemas, each an independently releasable deep copy.
func TestSchema_StableAndDeepCopied(t *testing.T) {
	d, err := Open(fakeReader(1), New(), nil)
	require.NoError(t, err)
	defer d.Release() //nolint:errcheck

	s1 := d.Schema()
	s2 := d.Schema()
	require.NotSame(t, s1, s2)
	assertSchemaEqual(t, s1, s2)

	// Releasing one copy must not disturb the other.
	cdi.ReleaseSchema(s1)
	assert.Equal(t, "+s", s2.Format)
	assert.NotNil(t, s2.Release)
	cdi.ReleaseSchema(s2)
}

func assertSchemaEqual(t *testing.T, a, b *cdi.ArrowSchema) {
	t.Helper()
	require.Equal(t, a.Format, b.Format)
	require.Equal(t, a.Name, b.Name)
	require.Equal(t, a.Flags, b.Flags)
	require.Equal(t, a.NChildren, b.NChildren)
	require.Len(t, b.Children, len(a.Children))
	for i := range a.Children {
		assertSchemaEqual(t, a.Children[i], b.Children[i])
	}
}

// S3: a FORMAT/AD header declaring Number=1 against spec R must warn
// exactly once, at stream open.
func TestOpen_ReconciliationWarningForwardedOnce(t *testing.T) {
	opts := vcffake.DefaultOptions()
	opts.IncludeAD = true
	opts.ADNumberOne = true

	var warnings []string
	d, err := Open(vcffake.New(opts), New(), func(msg string) { warnings = append(warnings, msg) })
	require.NoError(t, err)
	defer d.Release() //nolint:errcheck

	adWarnings := 0
	for _, w := range warnings {
		if strings.Contains(w, "FORMAT/AD") {
			adWarnings++
		}
	}
	assert.Equal(t, 1, adWarnings, "cardinality warning fires once per field per stream")
}

func TestOpen_InvalidBatchSizeIsUsageError(t *testing.T) {
	_, err := Open(fakeReader(1), New(WithBatchSize(0)), nil)
	require.Error(t, err)
	var w werror.Wrapper
	require.ErrorAs(t, err, &w)
	assert.Equal(t, werror.KindUsage, w.Kind())
}

func TestOpen_InvalidTranscriptModeIsUsageError(t *testing.T) {
	_, err := Open(fakeReader(1), New(WithVEPTranscriptMode("worst")), nil)
	require.Error(t, err)
	var w werror.Wrapper
	require.ErrorAs(t, err, &w)
	assert.Equal(t, werror.KindUsage, w.Kind())
}

func TestRelease_Idempotent(t *testing.T) {
	d, err := Open(fakeReader(1), New(), nil)
	require.NoError(t, err)

	require.NoError(t, d.Release())
	require.NoError(t, d.Release())

	_, err = d.Next()
	assert.Error(t, err, "operations after release are guarded")
}

type failingReader struct {
	header *vcf.Header
}

func (r *failingReader) Header() *vcf.Header { return r.header }
func (r *failingReader) Next() bool          { return false }
func (r *failingReader) Record() *vcf.Record { return nil }
func (r *failingReader) Err() error          { return errors.New("bgzf: corrupt block") }
func (r *failingReader) Close() error        { return nil }

func TestNext_ReaderErrorPropagates(t *testing.T) {
	d, err := Open(&failingReader{header: &vcf.Header{Contigs: []string{"chr1"}, Filters: []string{"PASS"}}}, New(), nil)
	require.NoError(t, err)
	defer d.Release() //nolint:errcheck

	arr, err := d.Next()
	require.Error(t, err)
	assert.Nil(t, arr, "no array is emitted on failure")
	assert.Contains(t, d.LastError().Error(), "corrupt block")

	var w werror.Wrapper
	require.ErrorAs(t, err, &w)
	assert.Equal(t, werror.KindIO, w.Kind())

	// Failure transitions to Exhausted: further calls emit exhausted.
	arr, err = d.Next()
	assert.NoError(t, err)
	assert.Nil(t, arr)
}

func TestArrowArrayStream_Callbacks(t *testing.T) {
	d, err := Open(fakeReader(2), New(WithBatchSize(10)), nil)
	require.NoError(t, err)

	s := NewArrowArrayStream(d)

	var schema cdi.ArrowSchema
	require.NoError(t, s.GetSchema(&schema))
	assert.Equal(t, "+s", schema.Format)
	cdi.ReleaseSchema(&schema)

	var arr cdi.ArrowArray
	require.NoError(t, s.GetNext(&arr))
	assert.Equal(t, int64(2), arr.Length)
	cdi.ReleaseArray(&arr)

	var done cdi.ArrowArray
	require.NoError(t, s.GetNext(&done))
	assert.Equal(t, int64(0), done.Length)
	assert.Nil(t, done.Release, "exhausted array carries no release callback")

	assert.Equal(t, "", s.GetLastError())
	s.Release()
	s.Release() // idempotent through the driver's state machine
}

// Property 5: one full stream lifecycle under a leak-checking allocator
// frees every allocation exactly once.
func TestStream_NoLeaksAfterRelease(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())

	opts := vcffake.DefaultOptions()
	opts.NumRecords = 9
	opts.IncludeAD = true
	opts.IncludeCSQ = true

	d, err := Open(vcffake.New(opts), New(
		WithAllocator(mem),
		WithBatchSize(4),
		WithParseVEP(true),
	), nil)
	require.NoError(t, err)

	schema := d.Schema()
	for {
		arr, err := d.Next()
		require.NoError(t, err)
		if arr == nil {
			break
		}
		cdi.ReleaseArray(arr)
		cdi.ReleaseArray(arr) // second release is a no-op, not a double free
	}
	cdi.ReleaseSchema(schema)
	require.NoError(t, d.Release())

	mem.AssertSize(t, 0)
}

func TestOpen_AnonymizeSamplesRenamesSchemaFields(t *testing.T) {
	d, err := Open(fakeReader(1), New(WithAnonymizeSamples("test-key")), nil)
	require.NoError(t, err)
	defer d.Release() //nolint:errcheck

	schema := d.Schema()
	defer cdi.ReleaseSchema(schema)

	var samples *cdi.ArrowSchema
	for _, c := range schema.Children {
		if c.Name == "samples" {
			samples = c
		}
	}
	require.NotNil(t, samples)
	for _, sampleField := range samples.Children {
		assert.NotEqual(t, "NA12878", sampleField.Name)
		assert.NotEqual(t, "NA12891", sampleField.Name)
	}
}
