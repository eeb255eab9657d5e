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

// Package annotation parses VEP/SnpEff-style pipe-delimited annotation
// payloads (CSQ, BCSQ, ANN) carried in a single INFO tag: first the
// header Description string into an ordered, typed field list (Schema),
// then a record's payload into a transcripts x fields value grid
// (ParsePayload).
package annotation

import (
	"errors"
	"strings"

	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/vcf"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/werror"
)

var (
	errNoFormatFragment = errors.New("annotation: no \"Format:\" fragment in description")
	errUnknownTag       = errors.New("annotation: unknown tag")
)

// Tag identifies which of the three well-known annotation INFO tags a
// Schema describes.
type Tag = string

const (
	TagCSQ  Tag = "CSQ"
	TagBCSQ Tag = "BCSQ"
	TagANN  Tag = "ANN"
)

// FieldType is the inferred Arrow-ish type for one annotation field.
type FieldType int

const (
	TypeString FieldType = iota
	TypeInteger
	TypeFloat
	TypeFlag
)

// Field is one column of an annotation transcript, in header-declared
// order.
type Field struct {
	Name   string
	Type   FieldType
	Index  int
	IsList bool
}

// Schema is the ordered field list recovered from an annotation tag's
// Description, plus the tag it was recovered from. DeclaredWidth is how
// many columns the Description declared in total, which can exceed
// len(Fields) when a column subset was requested.
type Schema struct {
	Tag           Tag
	Fields        []Field
	DeclaredWidth int
}

// Detect auto-detects which annotation tag a header declares, with
// priority CSQ > BCSQ > ANN.
func Detect(header *vcf.Header) string {
	var haveBCSQ, haveANN bool
	for _, f := range header.Info {
		switch f.Name {
		case TagCSQ:
			return TagCSQ
		case TagBCSQ:
			haveBCSQ = true
		case TagANN:
			haveANN = true
		}
	}
	if haveBCSQ {
		return TagBCSQ
	}
	if haveANN {
		return TagANN
	}
	return ""
}

// Parse recovers an ordered Schema from an annotation tag's header
// Description. CSQ/BCSQ descriptions carry the fragment "Format: a|b|c";
// ANN descriptions carry a bare "|"-delimited list (conventionally after
// the last ":"). If columns is non-empty, the returned Schema is
// restricted to that subset, preserving header order; names in columns
// that the Description doesn't declare are skipped without an error
// (UnknownColumns reports them).
func Parse(tag, description string, columns []string) (*Schema, error) {
	names, err := splitColumns(tag, description)
	if err != nil {
		return nil, werror.WrapKind(err, werror.KindSchemaConflict, "unparsable annotation description for "+tag)
	}

	schema := &Schema{Tag: tag, DeclaredWidth: len(names)}
	want := toSet(columns)
	for i, name := range names {
		if len(want) > 0 {
			if _, ok := want[name]; !ok {
				continue
			}
		}
		schema.Fields = append(schema.Fields, Field{
			Name:   name,
			Type:   inferType(name),
			Index:  i,
			IsList: name == "Consequence",
		})
	}
	return schema, nil
}

// UnknownColumns reports which entries of columns never matched a field
// the Description declared, for the "unknown annotation fields in
// vep_columns" warning.
func UnknownColumns(tag, description string, columns []string) ([]string, error) {
	names, err := splitColumns(tag, description)
	if err != nil {
		return nil, err
	}
	declared := toSet(names)
	var unknown []string
	for _, c := range columns {
		if _, ok := declared[c]; !ok {
			unknown = append(unknown, c)
		}
	}
	return unknown, nil
}

func toSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func splitColumns(tag, description string) ([]string, error) {
	switch tag {
	case TagCSQ, TagBCSQ:
		const marker = "Format:"
		idx := strings.Index(description, marker)
		if idx < 0 {
			return nil, werror.Wrap(errNoFormatFragment)
		}
		rest := strings.TrimSpace(description[idx+len(marker):])
		rest = strings.Trim(rest, "\"")
		return strings.Split(rest, "|"), nil
	case TagANN:
		idx := strings.LastIndex(description, ":")
		rest := description
		if idx >= 0 {
			rest = description[idx+1:]
		}
		rest = strings.TrimSpace(rest)
		rest = strings.Trim(rest, "\"'. ")
		parts := strings.Split(rest, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	default:
		return nil, werror.WrapWithMsg(errUnknownTag, tag)
	}
}

// inferType infers a field's value type from its name, using
// case-sensitive exact matches plus prefix/suffix rules.
func inferType(name string) FieldType {
	switch name {
	case "DISTANCE", "STRAND", "TSL", "GENE_PHENO", "HGVS_OFFSET", "MOTIF_POS":
		return TypeInteger
	case "AF", "MOTIF_SCORE_CHANGE":
		return TypeFloat
	}
	switch {
	case strings.HasSuffix(name, "_ORFs"):
		return TypeInteger
	case strings.HasPrefix(name, "SpliceAI_pred_DP_"):
		return TypeInteger
	case strings.HasSuffix(name, "_AF"):
		return TypeFloat
	case strings.HasPrefix(name, "MAX_AF"):
		return TypeFloat
	case strings.HasPrefix(name, "SpliceAI_pred_DS_"):
		return TypeFloat
	}
	return TypeString
}

// TranscriptMode selects how an annotation Schema's columns surface in the
// Arrow schema: `all` keeps every transcript as a list<struct>, `first`
// flattens the first (worst/canonical) transcript's values into sibling
// scalar columns. It is decided once, at schema-build time, and frozen
// for the stream's lifetime.
type TranscriptMode int

const (
	TranscriptModeAll TranscriptMode = iota
	TranscriptModeFirst
)

// ParseMode converts the vep_transcript_mode config string.
func ParseMode(s string) (TranscriptMode, error) {
	switch s {
	case "", "all":
		return TranscriptModeAll, nil
	case "first":
		return TranscriptModeFirst, nil
	default:
		return TranscriptModeAll, werror.WrapKind(errUnknownTag, werror.KindUsage, "unknown vep_transcript_mode "+s)
	}
}
