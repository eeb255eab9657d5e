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

// Package vcf defines the consumer-facing domain model the transcoder
// reads from: decoded VCF/BCF records and header metadata. Parsing the
// on-disk VCF/BCF representation (text or BGZF/BCF binary, header
// grammar, tabix/CSI indexing, region iteration) is out of scope for this
// module; Reader is the seam an external reader implementation plugs
// into.
package vcf

import "math"

// MissingQual is the sentinel QUAL value meaning "no quality score was
// recorded" (VCF's "." QUAL field). It is a quiet NaN; the transcoder
// treats any NaN QUAL as missing, the same as a nil Record.Qual.
var MissingQual = float32(math.NaN())

// Category distinguishes INFO from FORMAT header declarations.
type Category int

const (
	CategoryInfo Category = iota
	CategoryFormat
)

func (c Category) String() string {
	if c == CategoryFormat {
		return "FORMAT"
	}
	return "INFO"
}

// Number is the VCF header cardinality declaration for a field.
type Number struct {
	// Class selects which of the cases below applies.
	Class NumberClass
	// Fixed is meaningful only when Class == NumberFixed.
	Fixed int
}

// NumberClass enumerates the VCF "Number=" cardinality classes.
type NumberClass int

const (
	NumberFixed NumberClass = iota
	NumberA                 // one value per ALT allele
	NumberG                 // one value per genotype
	NumberR                 // one value per allele, including REF
	NumberVariable          // Number=. , unknown/variable cardinality
)

func (n Number) String() string {
	switch n.Class {
	case NumberA:
		return "A"
	case NumberG:
		return "G"
	case NumberR:
		return "R"
	case NumberVariable:
		return "."
	default:
		return itoa(n.Fixed)
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// ValueType is the VCF header "Type=" declaration.
type ValueType int

const (
	TypeFlag ValueType = iota
	TypeInteger
	TypeFloat
	TypeString
)

func (t ValueType) String() string {
	switch t {
	case TypeFlag:
		return "Flag"
	case TypeInteger:
		return "Integer"
	case TypeFloat:
		return "Float"
	default:
		return "String"
	}
}

// HeaderField is a single INFO or FORMAT declaration parsed out of the VCF
// header by the Reader.
type HeaderField struct {
	Name           string
	Category       Category
	DeclaredType   ValueType
	DeclaredNumber Number
	Description    string
}

// Header is the subset of VCF header content the transcoder needs:
// ordered INFO/FORMAT field declarations, contig names, filter ids, and
// sample names. The Reader is responsible for producing it from whatever
// on-disk representation it read.
type Header struct {
	Info    []HeaderField
	Format  []HeaderField
	Samples []string
	// Contigs maps an internal contig id (as used in Record.Chrom) to its
	// declared name.
	Contigs []string
	// Filters maps an internal filter id (as used in Record.FilterIDs) to
	// its declared name. Index 0 is conventionally "PASS".
	Filters []string
}

// InfoField looks up a declared INFO field by name.
func (h *Header) InfoField(name string) (HeaderField, bool) {
	for _, f := range h.Info {
		if f.Name == name {
			return f, true
		}
	}
	return HeaderField{}, false
}

// FormatField looks up a declared FORMAT field by name.
func (h *Header) FormatField(name string) (HeaderField, bool) {
	for _, f := range h.Format {
		if f.Name == name {
			return f, true
		}
	}
	return HeaderField{}, false
}

// InfoValue is a single decoded INFO payload for one record. Present is
// false when the tag was absent from the record altogether (as opposed to
// present with zero values, which can happen for Flag and for empty
// lists).
type InfoValue struct {
	Present bool
	// Scalar holds a single value: int32 / float32 / string / bool
	// depending on the field's reconciled type. Exactly one of Scalar or
	// List is used; which one is determined by the reconciled cardinality,
	// not by what's present here.
	Scalar interface{}
	List   []interface{}
}

// FormatValue is a single sample's decoded FORMAT payload for one record.
type FormatValue struct {
	Present bool
	Scalar  interface{}
	List    []interface{}
}

type endOfVector struct{}

// EndOfVector is the sentinel a Reader places inside a List slice where
// the on-disk encoding carried a vector-end marker: the sample's vector
// stops there, before the declared width. A nil element, by contrast,
// is a missing value inside the vector and decodes as null.
var EndOfVector interface{} = endOfVector{}

// Record is one decoded variant, as yielded by a Reader.
type Record struct {
	// Chrom is the contig id; resolve to a name via Header.Contigs.
	Chrom int
	// Pos is 0-based internal position; the transcoder emits Pos+1.
	Pos int64
	// ID is the VCF ID field; nil means "." (missing).
	ID  *string
	Ref string
	Alt []string
	// Qual is nil when QUAL is missing (".").
	Qual *float32
	// FilterIDs indexes Header.Filters; empty means "." (missing/unfiltered).
	FilterIDs []int

	// Info maps an INFO field name to its decoded value for this record.
	// A name absent from this map means the tag was not present on the
	// record.
	Info map[string]InfoValue

	// Format maps a FORMAT field name to one decoded value per sample, in
	// Header.Samples order. A name absent from this map means the tag was
	// not present in this record's FORMAT column at all.
	Format map[string][]FormatValue
}

// Reader yields decoded Records from a VCF or BCF source, already past
// decompression, header parsing, and any index-driven region restriction.
// Implementations own the on-disk representation; the transcoder only
// calls this interface.
type Reader interface {
	// Header returns the parsed header. It must be stable for the
	// lifetime of the Reader.
	Header() *Header
	// Next advances to the next record and reports whether one was
	// available. When it returns false, Err distinguishes EOF (nil) from
	// failure.
	Next() bool
	// Record returns the record most recently made current by Next.
	Record() *Record
	// Err returns the error that caused Next to return false, or nil at
	// clean EOF.
	Err() error
	// Close releases the Reader's resources (file handles, index, etc).
	Close() error
}
