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

// Package vschema projects a VCF header into an Arrow schema tree,
// reconciling header declarations against pkg/typespec so that the
// cached schema and pkg/batch's decode path agree on scalar-vs-list
// cardinality for every INFO/FORMAT field.
package vschema

import (
	"github.com/apache/arrow/go/v12/arrow"

	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/annotation"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/typespec"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/vcf"
)

// FieldPlan records, for one INFO or FORMAT leaf, the decisions made
// while projecting the schema, so pkg/batch can decode the same way
// without re-running reconciliation independently.
type FieldPlan struct {
	Name      string
	Category  vcf.Category
	Type      vcf.ValueType
	Number    vcf.Number
	IsList    bool
	ArrowType arrow.DataType
}

// Plan is the frozen, per-stream outcome of projecting a header: the
// Arrow schema plus the field-by-field decode plan batch.Builder
// consults. It is built once at stream init and cached for the stream's
// lifetime.
type Plan struct {
	Schema *arrow.Schema

	IncludeInfo   bool
	IncludeFormat bool

	InfoFields   []FieldPlan
	FormatFields []FieldPlan

	// Warnings holds the once-per-field reconciliation messages produced
	// while projecting the header, for the stream driver to forward to its
	// warning sink.
	Warnings []string

	// Annotation is non-nil when annotation sub-parsing (parse_vep) is
	// enabled; it replaces the raw annotation INFO tag's FieldPlan.
	Annotation *annotation.Schema
	// AnnotationMode mirrors the stream's vep_transcript_mode, frozen at
	// schema-build time for the stream's lifetime.
	AnnotationMode annotation.TranscriptMode
}

// Options configures Build.
type Options struct {
	IncludeInfo   bool
	IncludeFormat bool

	ParseAnnotation   bool
	AnnotationTag     string // "" = auto-detect CSQ > BCSQ > ANN
	AnnotationColumns []string
	AnnotationMode    annotation.TranscriptMode
}

// primitiveType maps a reconciled VCF value type to its Arrow scalar
// type.
func primitiveType(t vcf.ValueType) arrow.DataType {
	switch t {
	case vcf.TypeFlag:
		return arrow.FixedWidthTypes.Boolean
	case vcf.TypeInteger:
		return arrow.PrimitiveTypes.Int32
	case vcf.TypeFloat:
		return arrow.PrimitiveTypes.Float32
	default:
		return arrow.BinaryTypes.String
	}
}

// isScalar reports whether a reconciled Number should be staged/emitted
// as a scalar column rather than list<T>: Fixed(0) or
// Fixed(1) is scalar, everything else (Fixed(k>1), A, G, R, Variable) is
// a list.
func isScalar(n vcf.Number) bool {
	return n.Class == vcf.NumberFixed && (n.Fixed == 0 || n.Fixed == 1)
}

// Build projects a vcf.Header into a Plan, using spec to reconcile every
// declared INFO/FORMAT field's cardinality and type.
func Build(header *vcf.Header, spec *typespec.Table, opts Options) *Plan {
	plan := &Plan{
		IncludeInfo:    opts.IncludeInfo && len(header.Info) > 0,
		IncludeFormat:  opts.IncludeFormat && len(header.Samples) > 0,
		AnnotationMode: opts.AnnotationMode,
	}

	fields := make([]arrow.Field, 0, 7)
	fields = append(fields,
		arrow.Field{Name: "CHROM", Type: arrow.BinaryTypes.String, Nullable: false},
		arrow.Field{Name: "POS", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		arrow.Field{Name: "ID", Type: arrow.BinaryTypes.String, Nullable: true},
		arrow.Field{Name: "REF", Type: arrow.BinaryTypes.String, Nullable: false},
		arrow.Field{Name: "ALT", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: false},
		arrow.Field{Name: "QUAL", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		arrow.Field{Name: "FILTER", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: true},
	)

	var annotationTag string
	if opts.ParseAnnotation {
		annotationTag = opts.AnnotationTag
		if annotationTag == "" {
			annotationTag = annotation.Detect(header)
		}
	}

	if plan.IncludeInfo {
		infoChildren := make([]arrow.Field, 0, len(header.Info))
		for _, hf := range header.Info {
			if opts.ParseAnnotation && hf.Name == annotationTag {
				schema, err := annotation.Parse(annotationTag, hf.Description, opts.AnnotationColumns)
				if err == nil {
					plan.Annotation = schema
					continue
				}
				// Fall through: if the Description couldn't be parsed,
				// treat the tag like any other INFO field instead of
				// silently dropping it.
			}

			fp := buildFieldPlan(hf, spec, plan)
			plan.InfoFields = append(plan.InfoFields, fp)
			infoChildren = append(infoChildren, arrow.Field{
				Name:     fp.Name,
				Type:     fp.ArrowType,
				Nullable: true,
			})
		}
		// Annotation columns go last so the schema and the batch staging
		// order stay congruent regardless of where the tag was declared in
		// the header.
		if plan.Annotation != nil {
			infoChildren = append(infoChildren, annotationArrowFields(plan.Annotation, opts.AnnotationMode)...)
		}
		fields = append(fields, arrow.Field{
			Name:     "INFO",
			Type:     arrow.StructOf(infoChildren...),
			Nullable: false,
		})
	}

	if plan.IncludeFormat {
		formatChildren := make([]arrow.Field, 0, len(header.Format))
		for _, hf := range header.Format {
			fp := buildFieldPlan(hf, spec, plan)
			plan.FormatFields = append(plan.FormatFields, fp)
			formatChildren = append(formatChildren, arrow.Field{
				Name:     fp.Name,
				Type:     fp.ArrowType,
				Nullable: true,
			})
		}
		sampleStruct := arrow.StructOf(formatChildren...)
		sampleChildren := make([]arrow.Field, 0, len(header.Samples))
		for _, name := range header.Samples {
			sampleChildren = append(sampleChildren, arrow.Field{
				Name:     name,
				Type:     sampleStruct,
				Nullable: false,
			})
		}
		fields = append(fields, arrow.Field{
			Name:     "samples",
			Type:     arrow.StructOf(sampleChildren...),
			Nullable: false,
		})
	}

	plan.Schema = arrow.NewSchema(fields, nil)
	return plan
}

func buildFieldPlan(hf vcf.HeaderField, spec *typespec.Table, plan *Plan) FieldPlan {
	number := hf.DeclaredNumber
	typ := hf.DeclaredType

	if entry, ok := spec.Lookup(hf.Category, hf.Name); ok {
		reconciled := spec.ReconcileOnce(entry, hf.DeclaredType, hf.DeclaredNumber)
		number = reconciled.CorrectedNumber
		typ = reconciled.CorrectedType
		if reconciled.WarnNumber {
			plan.Warnings = append(plan.Warnings,
				hf.Category.String()+"/"+hf.Name+": header Number="+hf.DeclaredNumber.String()+
					" disagrees with spec Number="+entry.Number.String()+"; using spec cardinality")
		}
		if reconciled.WarnType {
			plan.Warnings = append(plan.Warnings,
				hf.Category.String()+"/"+hf.Name+": header Type="+hf.DeclaredType.String()+
					" disagrees with spec Type="+entry.Type.String()+"; decoding with header type")
		}
	}

	scalar := isScalar(number)
	prim := primitiveType(typ)

	var arrowType arrow.DataType = prim
	if !scalar {
		arrowType = arrow.ListOf(prim)
	}

	return FieldPlan{
		Name:      hf.Name,
		Category:  hf.Category,
		Type:      typ,
		Number:    number,
		IsList:    !scalar,
		ArrowType: arrowType,
	}
}

func annotationArrowFields(schema *annotation.Schema, mode annotation.TranscriptMode) []arrow.Field {
	structFields := make([]arrow.Field, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		structFields = append(structFields, arrow.Field{
			Name:     f.Name,
			Type:     annotationFieldArrowType(f),
			Nullable: true,
		})
	}

	if mode == annotation.TranscriptModeFirst {
		return structFields
	}

	transcriptStruct := arrow.StructOf(structFields...)
	return []arrow.Field{{
		Name:     schema.Tag,
		Type:     arrow.ListOf(transcriptStruct),
		Nullable: true,
	}}
}

func annotationFieldArrowType(f annotation.Field) arrow.DataType {
	var prim arrow.DataType
	switch f.Type {
	case annotation.TypeInteger:
		prim = arrow.PrimitiveTypes.Int32
	case annotation.TypeFloat:
		prim = arrow.PrimitiveTypes.Float32
	default:
		prim = arrow.BinaryTypes.String
	}
	if f.IsList {
		return arrow.ListOf(prim)
	}
	return prim
}
