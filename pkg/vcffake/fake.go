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

// Package vcffake is a gofakeit-driven synthetic vcf.Reader, used by
// tests and by the vcfarrowcat CLI in place of a real VCF/BCF parser.
package vcffake

import (
	"math/rand"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/vcf"
)

// Options configures the synthetic corpus.
type Options struct {
	NumRecords int
	Samples    []string
	Contigs    []string
	// IncludeAD/IncludeCSQ add the corresponding FORMAT/INFO declarations
	// so callers can exercise cardinality reconciliation and annotation
	// parsing without handwriting a header.
	IncludeAD  bool
	IncludeCSQ bool
	// ADNumberOne declares FORMAT/AD as Number=1 instead of the spec's R,
	// to exercise the typespec reconciliation warning path.
	ADNumberOne bool
	Seed        int64
}

// DefaultOptions returns a small, deterministic corpus: 5 records, two
// samples, three contigs.
func DefaultOptions() Options {
	return Options{
		NumRecords: 5,
		Samples:    []string{"NA12878", "NA12891"},
		Contigs:    []string{"chr1", "chr2", "chr3"},
		Seed:       42,
	}
}

// Reader is a vcf.Reader backed by deterministically-seeded gofakeit
// output, generated eagerly at construction (small corpora only — this
// is a test fixture, not a streaming generator).
type Reader struct {
	header  *vcf.Header
	records []vcf.Record
	pos     int
	closed  bool
}

// New builds a Reader whose Header and Records are derived from opts.
// gofakeit.DigitN and friends draw from the package's global source, so
// New seeds it from opts.Seed when that is non-zero (a private math/rand
// source for plain int/bool choices is always seeded from opts.Seed) to
// keep the corpus reproducible across runs.
func New(opts Options) *Reader {
	if opts.Seed != 0 {
		gofakeit.Seed(opts.Seed)
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	header := &vcf.Header{
		Contigs: opts.Contigs,
		Filters: []string{"PASS", "q10", "s50"},
		Samples: opts.Samples,
		Info: []vcf.HeaderField{
			{Name: "DP", Category: vcf.CategoryInfo, DeclaredType: vcf.TypeInteger, DeclaredNumber: vcf.Number{Class: vcf.NumberFixed, Fixed: 1}},
			{Name: "AF", Category: vcf.CategoryInfo, DeclaredType: vcf.TypeFloat, DeclaredNumber: vcf.Number{Class: vcf.NumberA}},
			{Name: "DB", Category: vcf.CategoryInfo, DeclaredType: vcf.TypeFlag, DeclaredNumber: vcf.Number{Class: vcf.NumberFixed, Fixed: 0}},
		},
		Format: []vcf.HeaderField{
			{Name: "GT", Category: vcf.CategoryFormat, DeclaredType: vcf.TypeString, DeclaredNumber: vcf.Number{Class: vcf.NumberFixed, Fixed: 1}},
			{Name: "GQ", Category: vcf.CategoryFormat, DeclaredType: vcf.TypeInteger, DeclaredNumber: vcf.Number{Class: vcf.NumberFixed, Fixed: 1}},
		},
	}
	if opts.IncludeAD {
		num := vcf.Number{Class: vcf.NumberR}
		if opts.ADNumberOne {
			num = vcf.Number{Class: vcf.NumberFixed, Fixed: 1}
		}
		header.Format = append(header.Format, vcf.HeaderField{
			Name: "AD", Category: vcf.CategoryFormat, DeclaredType: vcf.TypeInteger, DeclaredNumber: num,
		})
	}
	if opts.IncludeCSQ {
		header.Info = append(header.Info, vcf.HeaderField{
			Name:           "CSQ",
			Category:       vcf.CategoryInfo,
			DeclaredType:   vcf.TypeString,
			DeclaredNumber: vcf.Number{Class: vcf.NumberVariable},
			Description:    `Consequence annotations from Ensembl VEP. Format: Allele|Consequence|IMPACT|SYMBOL|Gene|DISTANCE|STRAND`,
		})
	}

	r := &Reader{header: header}
	for i := 0; i < opts.NumRecords; i++ {
		r.records = append(r.records, r.fakeRecord(rng, i))
	}
	return r
}

var bases = []string{"A", "C", "G", "T"}

func (r *Reader) fakeRecord(rng *rand.Rand, i int) vcf.Record {
	contig := i % len(r.header.Contigs)
	altCount := 1 + rng.Intn(3)
	alt := make([]string, altCount)
	for j := range alt {
		alt[j] = bases[rng.Intn(len(bases))]
	}

	var id *string
	if rng.Intn(2) == 0 {
		s := "rs" + gofakeit.DigitN(6)
		id = &s
	}

	var qual *float32
	if rng.Intn(2) == 0 {
		q := float32(rng.Float64() * 100)
		qual = &q
	}

	var filterIDs []int
	if rng.Intn(2) == 0 {
		filterIDs = []int{0} // PASS
	} else {
		filterIDs = []int{1 + rng.Intn(2)}
	}

	rec := vcf.Record{
		Chrom:     contig,
		Pos:       int64(1000 + i*100),
		ID:        id,
		Ref:       bases[rng.Intn(len(bases))],
		Alt:       alt,
		Qual:      qual,
		FilterIDs: filterIDs,
		Info:      map[string]vcf.InfoValue{},
		Format:    map[string][]vcf.FormatValue{},
	}

	rec.Info["DP"] = vcf.InfoValue{Present: true, Scalar: int32(5 + rng.Intn(75))}
	afs := make([]interface{}, altCount)
	for j := range afs {
		afs[j] = float32(rng.Float64())
	}
	rec.Info["AF"] = vcf.InfoValue{Present: true, List: afs}
	if rng.Intn(2) == 0 {
		rec.Info["DB"] = vcf.InfoValue{Present: true}
	}
	if _, ok := r.header.InfoField("CSQ"); ok {
		rec.Info["CSQ"] = vcf.InfoValue{Present: true, Scalar: fakeCSQPayload(rng, alt)}
	}

	gts := make([]vcf.FormatValue, len(r.header.Samples))
	gqs := make([]vcf.FormatValue, len(r.header.Samples))
	var ads []vcf.FormatValue
	if _, ok := r.header.FormatField("AD"); ok {
		ads = make([]vcf.FormatValue, len(r.header.Samples))
	}
	for s := range r.header.Samples {
		a0, a1 := rng.Intn(altCount+1), rng.Intn(altCount+1)
		sep := "/"
		if rng.Intn(2) == 0 {
			sep = "|"
		}
		gts[s] = vcf.FormatValue{Present: true, Scalar: strconv.Itoa(a0) + sep + strconv.Itoa(a1)}
		gqs[s] = vcf.FormatValue{Present: true, Scalar: int32(rng.Intn(100))}
		if ads != nil {
			vals := make([]interface{}, altCount+1)
			for k := range vals {
				vals[k] = int32(rng.Intn(41))
			}
			ads[s] = vcf.FormatValue{Present: true, List: vals}
		}
	}
	rec.Format["GT"] = gts
	rec.Format["GQ"] = gqs
	if ads != nil {
		rec.Format["AD"] = ads
	}

	return rec
}

func fakeCSQPayload(rng *rand.Rand, alt []string) string {
	impacts := []string{"HIGH", "MODERATE", "LOW", "MODIFIER"}
	transcripts := make([]string, len(alt))
	for i, a := range alt {
		transcripts[i] = strings.Join([]string{
			a, "missense_variant", impacts[rng.Intn(len(impacts))],
			"GENE" + strconv.Itoa(i), "ENSG0000" + gofakeit.DigitN(5),
			strconv.Itoa(rng.Intn(500)),
		}, "|")
	}
	return strings.Join(transcripts, ",")
}

// Header implements vcf.Reader.
func (r *Reader) Header() *vcf.Header { return r.header }

// Next implements vcf.Reader.
func (r *Reader) Next() bool {
	if r.pos >= len(r.records) {
		return false
	}
	r.pos++
	return true
}

// Record implements vcf.Reader.
func (r *Reader) Record() *vcf.Record { return &r.records[r.pos-1] }

// Err implements vcf.Reader; the fake corpus never fails mid-stream.
func (r *Reader) Err() error { return nil }

// Close implements vcf.Reader.
func (r *Reader) Close() error {
	r.closed = true
	return nil
}
