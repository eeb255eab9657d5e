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

package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/vcf"
)

const csqDescription = `Consequence annotations from Ensembl VEP. Format: Allele|Consequence|IMPACT|SYMBOL|Gene|DISTANCE|STRAND|AF|MAX_AF`

func TestParse_CSQFormatFragment(t *testing.T) {
	schema, err := Parse(TagCSQ, csqDescription, nil)
	require.NoError(t, err)
	require.Len(t, schema.Fields, 9)

	want := []string{"Allele", "Consequence", "IMPACT", "SYMBOL", "Gene", "DISTANCE", "STRAND", "AF", "MAX_AF"}
	for i, f := range schema.Fields {
		assert.Equal(t, want[i], f.Name)
		assert.Equal(t, i, f.Index)
	}
	assert.Equal(t, TypeInteger, schema.Fields[5].Type) // DISTANCE
	assert.Equal(t, TypeInteger, schema.Fields[6].Type) // STRAND
	assert.Equal(t, TypeFloat, schema.Fields[7].Type)   // AF
	assert.Equal(t, TypeFloat, schema.Fields[8].Type)   // MAX_AF, via the _AF suffix rule
	assert.True(t, schema.Fields[1].IsList)             // Consequence is the one list field
	assert.False(t, schema.Fields[0].IsList)
}

func TestParse_ANNPipeList(t *testing.T) {
	desc := `Functional annotations: 'Allele | Annotation | Gene_Name | HGVS_OFFSET'`
	schema, err := Parse(TagANN, desc, nil)
	require.NoError(t, err)
	require.Len(t, schema.Fields, 4)
	assert.Equal(t, "Allele", schema.Fields[0].Name)
	assert.Equal(t, "HGVS_OFFSET", schema.Fields[3].Name)
	assert.Equal(t, TypeInteger, schema.Fields[3].Type)
}

func TestParse_ColumnSubset(t *testing.T) {
	schema, err := Parse(TagCSQ, csqDescription, []string{"Gene", "IMPACT"})
	require.NoError(t, err)
	require.Len(t, schema.Fields, 2)
	// Subset preserves header declaration order, not the requested order.
	assert.Equal(t, "IMPACT", schema.Fields[0].Name)
	assert.Equal(t, "Gene", schema.Fields[1].Name)
}

func TestParse_NoFormatFragmentIsError(t *testing.T) {
	_, err := Parse(TagCSQ, "no format fragment here", nil)
	assert.Error(t, err)
}

func TestUnknownColumns(t *testing.T) {
	unknown, err := UnknownColumns(TagCSQ, csqDescription, []string{"Gene", "Bogus"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bogus"}, unknown)
}

func TestDetect_PriorityOrder(t *testing.T) {
	header := &vcf.Header{Info: []vcf.HeaderField{{Name: "BCSQ"}, {Name: "ANN"}}}
	assert.Equal(t, TagBCSQ, Detect(header))

	header = &vcf.Header{Info: []vcf.HeaderField{{Name: "CSQ"}, {Name: "BCSQ"}, {Name: "ANN"}}}
	assert.Equal(t, TagCSQ, Detect(header))

	header = &vcf.Header{Info: []vcf.HeaderField{{Name: "ANN"}}}
	assert.Equal(t, TagANN, Detect(header))

	header = &vcf.Header{Info: []vcf.HeaderField{{Name: "DP"}}}
	assert.Equal(t, "", Detect(header))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, TranscriptModeAll, m)

	m, err = ParseMode("all")
	require.NoError(t, err)
	assert.Equal(t, TranscriptModeAll, m)

	m, err = ParseMode("first")
	require.NoError(t, err)
	assert.Equal(t, TranscriptModeFirst, m)

	_, err = ParseMode("bogus")
	assert.Error(t, err)
}

func TestInferType_SuffixAndPrefixRules(t *testing.T) {
	cases := map[string]FieldType{
		"gnomAD_ORFs":             TypeInteger,
		"SpliceAI_pred_DP_AG":     TypeInteger,
		"gnomAD_AF":               TypeFloat,
		"MAX_AF_POPS":             TypeFloat,
		"SpliceAI_pred_DS_AG":     TypeFloat,
		"MOTIF_SCORE_CHANGE":      TypeFloat,
		"SYMBOL":                  TypeString,
		"GENE_PHENO":              TypeInteger,
		"TSL":                     TypeInteger,
	}
	for name, want := range cases {
		assert.Equal(t, want, inferType(name), name)
	}
}
