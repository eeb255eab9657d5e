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

package typespec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/vcf"
)

func TestLookup(t *testing.T) {
	tbl := New()

	ad, ok := tbl.Lookup(vcf.CategoryFormat, "AD")
	require.True(t, ok)
	assert.Equal(t, vcf.TypeInteger, ad.Type)
	assert.Equal(t, vcf.NumberR, ad.Number.Class)

	_, ok = tbl.Lookup(vcf.CategoryInfo, "NOT_A_REAL_TAG")
	assert.False(t, ok)
}

func TestReconcile_FixedSpec(t *testing.T) {
	tbl := New()
	end, _ := tbl.Lookup(vcf.CategoryInfo, "END")

	// Header agrees: Fixed(1) declared, Fixed(1) spec'd -> no warning.
	r := tbl.Reconcile(end, vcf.TypeInteger, vcf.Number{Class: vcf.NumberFixed, Fixed: 1})
	assert.False(t, r.WarnNumber)
	assert.Equal(t, vcf.NumberFixed, r.CorrectedNumber.Class)
	assert.Equal(t, 1, r.CorrectedNumber.Fixed)

	// Header declares A instead of Fixed(1): disagreement is surfaced,
	// but the spec's fixed cardinality still wins (S3-style correction).
	r = tbl.Reconcile(end, vcf.TypeInteger, vcf.Number{Class: vcf.NumberA})
	assert.True(t, r.WarnNumber)
	assert.Equal(t, vcf.NumberFixed, r.CorrectedNumber.Class)
}

func TestReconcile_VariableClassSpec(t *testing.T) {
	tbl := New()
	ad, _ := tbl.Lookup(vcf.CategoryFormat, "AD")

	// S3: header declares Number=1 for a spec-R field -> warn, corrected to R.
	r := tbl.Reconcile(ad, vcf.TypeInteger, vcf.Number{Class: vcf.NumberFixed, Fixed: 1})
	assert.True(t, r.WarnNumber)
	assert.Equal(t, vcf.NumberR, r.CorrectedNumber.Class)

	// Header agrees on R -> no warning.
	r = tbl.Reconcile(ad, vcf.TypeInteger, vcf.Number{Class: vcf.NumberR})
	assert.False(t, r.WarnNumber)
	assert.Equal(t, vcf.NumberR, r.CorrectedNumber.Class)

	// Header declares the permissive Variable fallback -> tolerated
	// without warning.
	r = tbl.Reconcile(ad, vcf.TypeInteger, vcf.Number{Class: vcf.NumberVariable})
	assert.False(t, r.WarnNumber)
	assert.Equal(t, vcf.NumberR, r.CorrectedNumber.Class)
}

func TestReconcile_TypeWarningIndependentOfNumber(t *testing.T) {
	tbl := New()
	ac, _ := tbl.Lookup(vcf.CategoryInfo, "AC")

	// Header declares a different type (String instead of Integer): warn,
	// but the header's declared type wins for decoding (invariant 7).
	r := tbl.Reconcile(ac, vcf.TypeString, vcf.Number{Class: vcf.NumberA})
	assert.True(t, r.WarnType)
	assert.Equal(t, vcf.TypeString, r.CorrectedType)
}

func TestReconcile_Idempotent(t *testing.T) {
	tbl := New()
	ad, _ := tbl.Lookup(vcf.CategoryFormat, "AD")

	declaredNumber := vcf.Number{Class: vcf.NumberFixed, Fixed: 1}
	r1 := tbl.Reconcile(ad, vcf.TypeInteger, declaredNumber)
	r2 := tbl.Reconcile(ad, vcf.TypeInteger, declaredNumber)
	assert.Equal(t, r1.CorrectedNumber, r2.CorrectedNumber)
	assert.Equal(t, r1.CorrectedType, r2.CorrectedType)
}

func TestReconcileOnce_WarnsOnlyOncePerField(t *testing.T) {
	tbl := New()
	ad, _ := tbl.Lookup(vcf.CategoryFormat, "AD")
	declaredNumber := vcf.Number{Class: vcf.NumberFixed, Fixed: 1}

	first := tbl.ReconcileOnce(ad, vcf.TypeInteger, declaredNumber)
	assert.True(t, first.WarnNumber)

	second := tbl.ReconcileOnce(ad, vcf.TypeInteger, declaredNumber)
	assert.False(t, second.WarnNumber, "warning must fire at most once per field per stream")
	// The corrected cardinality must still be reported correctly even
	// after the warning is suppressed.
	assert.Equal(t, vcf.NumberR, second.CorrectedNumber.Class)

	// A different field's first disagreement still warns.
	ac, _ := tbl.Lookup(vcf.CategoryInfo, "AC")
	other := tbl.ReconcileOnce(ac, vcf.TypeString, vcf.Number{Class: vcf.NumberA})
	assert.True(t, other.WarnType)
}

func TestNumberAndValueTypeStringers(t *testing.T) {
	assert.Equal(t, "A", vcf.Number{Class: vcf.NumberA}.String())
	assert.Equal(t, "G", vcf.Number{Class: vcf.NumberG}.String())
	assert.Equal(t, "R", vcf.Number{Class: vcf.NumberR}.String())
	assert.Equal(t, ".", vcf.Number{Class: vcf.NumberVariable}.String())
	assert.Equal(t, "2", vcf.Number{Class: vcf.NumberFixed, Fixed: 2}.String())

	assert.Equal(t, "Flag", vcf.TypeFlag.String())
	assert.Equal(t, "Integer", vcf.TypeInteger.String())
	assert.Equal(t, "Float", vcf.TypeFloat.String())
	assert.Equal(t, "String", vcf.TypeString.String())

	assert.Equal(t, "INFO", vcf.CategoryInfo.String())
	assert.Equal(t, "FORMAT", vcf.CategoryFormat.String())
}
