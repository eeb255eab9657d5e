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

// Package batch accumulates decoded vcf.Records into per-column staging
// buffers until a batch is full or the Reader is exhausted, at which
// point pkg/assemble converts the staged buffers into a CDI ArrowArray
// tree.
package batch

import (
	"math"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/annotation"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/vcf"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/vschema"
)

// Root is the top-level struct ColumnStage tree for one batch: the seven
// core columns plus optional INFO and samples sub-structs, in the same
// order vschema.Build emitted them.
type Root struct {
	mem memory.Allocator

	Chrom  *StringStage
	Pos    *PrimitiveStage
	ID     *StringStage
	Ref    *StringStage
	Alt    *ListStage
	Qual   *PrimitiveStage
	Filter *ListStage

	Info    *StructStage // nil if the stream has no INFO columns
	Samples *StructStage // nil if the stream has no FORMAT columns

	length int
}

// Len returns how many rows (records) have been appended to this batch.
func (r *Root) Len() int { return r.length }

// Builder stages records into a fresh Root per batch. It owns the
// frozen per-stream vschema.Plan, so its decode decisions can never
// drift from what the projected schema already committed to.
type Builder struct {
	mem        memory.Allocator
	plan       *vschema.Plan
	header     *vcf.Header
	filterName []string // Header.Filters, cached

	cur *Root

	// warnings accumulated while building the current (or most recent)
	// batch; the stream driver drains and forwards these.
	Warnings []string

	extraDroppedWarned bool
}

// NewBuilder constructs a Builder for one stream. plan must be the same
// Plan vschema.Build produced for this header.
func NewBuilder(mem memory.Allocator, header *vcf.Header, plan *vschema.Plan) *Builder {
	b := &Builder{mem: mem, plan: plan, header: header, filterName: header.Filters}
	b.reset()
	return b
}

func (b *Builder) reset() {
	root := &Root{
		mem:    b.mem,
		Chrom:  newStringStage(b.mem),
		Pos:    newPrimitiveStage(b.mem, 8, false),
		ID:     newStringStage(b.mem),
		Ref:    newStringStage(b.mem),
		Alt:    newListStage(b.mem, newStringStage(b.mem)),
		Qual:   newPrimitiveStage(b.mem, 8, false),
		Filter: newListStage(b.mem, newStringStage(b.mem)),
	}
	if b.plan.IncludeInfo {
		root.Info = b.newInfoStage()
	}
	if b.plan.IncludeFormat {
		root.Samples = b.newSamplesStage()
	}
	b.cur = root
}

func (b *Builder) newInfoStage() *StructStage {
	names := make([]string, 0, len(b.plan.InfoFields))
	children := make([]Stage, 0, len(b.plan.InfoFields))
	for _, fp := range b.plan.InfoFields {
		names = append(names, fp.Name)
		children = append(children, b.newLeafStage(fp))
	}
	if b.plan.Annotation != nil {
		if b.plan.AnnotationMode == annotation.TranscriptModeFirst {
			for _, f := range b.plan.Annotation.Fields {
				names = append(names, f.Name)
				children = append(children, b.newAnnotationFieldStage(f))
			}
		} else {
			names = append(names, b.plan.Annotation.Tag)
			children = append(children, b.newAnnotationTranscriptListStage())
		}
	}
	return newStructStage(names, children)
}

func (b *Builder) newSamplesStage() *StructStage {
	sampleFields := make([]string, 0, len(b.plan.FormatFields))
	for _, fp := range b.plan.FormatFields {
		sampleFields = append(sampleFields, fp.Name)
	}
	names := make([]string, 0, len(b.header.Samples))
	children := make([]Stage, 0, len(b.header.Samples))
	for _, sample := range b.header.Samples {
		sChildren := make([]Stage, 0, len(b.plan.FormatFields))
		for _, fp := range b.plan.FormatFields {
			sChildren = append(sChildren, b.newLeafStage(fp))
		}
		names = append(names, sample)
		children = append(children, newStructStage(sampleFields, sChildren))
	}
	return newStructStage(names, children)
}

func (b *Builder) newLeafStage(fp vschema.FieldPlan) Stage {
	prim := func() Stage {
		switch fp.Type {
		case vcf.TypeFlag:
			return newPrimitiveStage(b.mem, 1, true)
		case vcf.TypeInteger:
			return newPrimitiveStage(b.mem, 4, false)
		case vcf.TypeFloat:
			return newPrimitiveStage(b.mem, 4, false)
		default:
			return newStringStage(b.mem)
		}
	}
	if fp.IsList {
		return newListStage(b.mem, prim())
	}
	return prim()
}

func (b *Builder) newAnnotationFieldStage(f annotation.Field) Stage {
	prim := func() Stage {
		switch f.Type {
		case annotation.TypeInteger:
			return newPrimitiveStage(b.mem, 4, false)
		case annotation.TypeFloat:
			return newPrimitiveStage(b.mem, 4, false)
		default:
			return newStringStage(b.mem)
		}
	}
	if f.IsList {
		return newListStage(b.mem, prim())
	}
	return prim()
}

func (b *Builder) newAnnotationTranscriptListStage() *ListStage {
	names := make([]string, 0, len(b.plan.Annotation.Fields))
	children := make([]Stage, 0, len(b.plan.Annotation.Fields))
	for _, f := range b.plan.Annotation.Fields {
		names = append(names, f.Name)
		children = append(children, b.newAnnotationFieldStage(f))
	}
	return newListStage(b.mem, newStructStage(names, children))
}

// Append decodes one record into the current batch's ColumnStages.
func (b *Builder) Append(rec *vcf.Record) {
	root := b.cur

	root.Chrom.AppendString(b.contigName(rec.Chrom))
	root.Pos.AppendInt64(rec.Pos + 1)

	if rec.ID == nil || *rec.ID == "." {
		root.ID.AppendNull()
	} else {
		root.ID.AppendString(*rec.ID)
	}

	root.Ref.AppendString(rec.Ref)

	for _, a := range rec.Alt {
		root.Alt.Child().(*StringStage).AppendString(a)
	}
	root.Alt.CloseRow()

	if rec.Qual == nil || isMissingFloat32(*rec.Qual) {
		root.Qual.AppendNull()
	} else {
		root.Qual.AppendFloat64(float64(*rec.Qual))
	}

	if len(rec.FilterIDs) == 0 {
		root.Filter.MarkNull()
	} else {
		child := root.Filter.Child().(*StringStage)
		for _, id := range rec.FilterIDs {
			child.AppendString(b.filterNameFor(id))
		}
		root.Filter.CloseRow()
	}

	if root.Info != nil {
		b.appendInfo(root.Info, rec)
	}
	if root.Samples != nil {
		b.appendSamples(root.Samples, rec)
	}

	root.length++
}

func (b *Builder) contigName(id int) string {
	if id >= 0 && id < len(b.header.Contigs) {
		return b.header.Contigs[id]
	}
	return ""
}

func (b *Builder) filterNameFor(id int) string {
	if id >= 0 && id < len(b.filterName) {
		return b.filterName[id]
	}
	return ""
}

func isMissingFloat32(f float32) bool {
	return math.IsNaN(float64(f))
}

func (b *Builder) appendInfo(info *StructStage, rec *vcf.Record) {
	i := 0
	for _, fp := range b.plan.InfoFields {
		stage := info.Children[i]
		i++
		v, present := rec.Info[fp.Name]
		appendLeaf(stage, fp.Type, fp.IsList, present && v.Present, v.Present, v.Scalar, v.List)
	}
	if b.plan.Annotation == nil {
		return
	}
	raw, present := rec.Info[annotationRawKey(b.plan.Annotation.Tag)]
	var payload string
	if present && raw.Present {
		if s, ok := raw.Scalar.(string); ok {
			payload = s
		}
	}
	result := annotation.ParsePayload(b.plan.Annotation, payload)
	if result.ExtraDropped > 0 && !b.extraDroppedWarned {
		b.extraDroppedWarned = true
		b.Warnings = append(b.Warnings, "annotation: dropped "+strconv.Itoa(result.ExtraDropped)+" extra field(s) beyond schema width")
	}
	if b.plan.AnnotationMode == annotation.TranscriptModeFirst {
		var first annotation.Transcript
		if len(result.Transcripts) > 0 {
			first = result.Transcripts[0]
		} else {
			first = annotation.Transcript{Values: make([]annotation.Value, len(b.plan.Annotation.Fields))}
		}
		for fi, f := range b.plan.Annotation.Fields {
			stage := info.Children[i]
			i++
			var val annotation.Value
			if fi < len(first.Values) {
				val = first.Values[fi]
			}
			appendAnnotationLeaf(stage, f, val)
		}
		return
	}

	listStage := info.Children[i].(*ListStage)
	i++
	child := listStage.Child().(*StructStage)
	for _, t := range result.Transcripts {
		for fi, f := range b.plan.Annotation.Fields {
			appendAnnotationLeaf(child.Children[fi], f, t.Values[fi])
		}
		child.AdvanceRow()
	}
	listStage.CloseRow()
}

// annotationRawKey recovers the INFO map key the raw annotation payload
// string is stored under. Readers store it under the tag's own name
// (CSQ/BCSQ/ANN), same as every other INFO field.
func annotationRawKey(tag string) string { return tag }

func appendAnnotationLeaf(stage Stage, f annotation.Field, v annotation.Value) {
	if f.IsList {
		ls := stage.(*ListStage)
		child := ls.Child()
		values, _ := v.([]annotation.Value)
		for _, elem := range values {
			appendScalarValue(child, f.Type == annotation.TypeInteger, f.Type == annotation.TypeFloat, elem)
		}
		if parts, ok := v.([]string); ok {
			sChild := child.(*StringStage)
			for _, p := range parts {
				sChild.AppendString(p)
			}
			ls.CloseRow()
			return
		}
		ls.CloseRow()
		return
	}
	appendScalarValue(stage, f.Type == annotation.TypeInteger, f.Type == annotation.TypeFloat, v)
}

func appendScalarValue(stage Stage, isInt, isFloat bool, v annotation.Value) {
	switch s := stage.(type) {
	case *PrimitiveStage:
		if v == nil {
			s.AppendNull()
			return
		}
		if isInt {
			s.AppendInt32(v.(int32))
		} else if isFloat {
			s.AppendFloat32(math.Float32bits(v.(float32)))
		} else {
			s.AppendBool(v.(bool))
		}
	case *StringStage:
		if v == nil {
			s.AppendNull()
			return
		}
		s.AppendString(v.(string))
	}
}

// appendLeaf writes one record's INFO/FORMAT value into stage, following
// the reconciled (type, isList) decision the schema plan already made.
// present distinguishes "tag absent from the record" from "tag present
// with an empty payload"; both result in a null/empty entry but the
// distinction matters for future diagnostics.
func appendLeaf(stage Stage, typ vcf.ValueType, isList bool, tagPresent, valuePresent bool, scalar interface{}, list []interface{}) {
	if isList {
		ls := stage.(*ListStage)
		if !tagPresent {
			ls.MarkNull()
			return
		}
		child := ls.Child()
		if len(list) == 0 && scalar != nil {
			// Readers may deliver a single value as a scalar even for a
			// reconciled-list field (e.g. AD declared Number=1).
			appendPrimitive(child, typ, scalar)
		}
		for _, v := range list {
			if v == vcf.EndOfVector {
				break
			}
			appendPrimitive(child, typ, v)
		}
		ls.CloseRow()
		return
	}

	if !tagPresent {
		// Flag included: an absent flag key clears the validity bit, so
		// validity reflects presence and the payload bit stays zero.
		appendPrimitive(stage, typ, nil)
		return
	}
	if typ == vcf.TypeFlag {
		stage.(*PrimitiveStage).AppendBool(true)
		return
	}
	appendPrimitive(stage, typ, scalar)
}

func appendPrimitive(stage Stage, typ vcf.ValueType, v interface{}) {
	switch s := stage.(type) {
	case *PrimitiveStage:
		if v == nil {
			s.AppendNull()
			return
		}
		switch typ {
		case vcf.TypeInteger:
			s.AppendInt32(toInt32(v))
		case vcf.TypeFloat:
			s.AppendFloat32(math.Float32bits(toFloat32(v)))
		case vcf.TypeFlag:
			s.AppendBool(true)
		}
	case *StringStage:
		if v == nil {
			s.AppendNull()
			return
		}
		s.AppendString(toStr(v))
	}
}

func toInt32(v interface{}) int32 {
	switch x := v.(type) {
	case int32:
		return x
	case int:
		return int32(x)
	case int64:
		return int32(x)
	default:
		return 0
	}
}

func toFloat32(v interface{}) float32 {
	switch x := v.(type) {
	case float32:
		return x
	case float64:
		return float32(x)
	default:
		return float32(math.NaN())
	}
}

func toStr(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// appendSamples decodes one record's per-sample FORMAT payloads into the
// samples struct stage, one child struct per sample in header order.
func (b *Builder) appendSamples(samples *StructStage, rec *vcf.Record) {
	for si := range samples.Children {
		sampleStruct := samples.Children[si].(*StructStage)
		for fi, fp := range b.plan.FormatFields {
			stage := sampleStruct.Children[fi]
			values := rec.Format[fp.Name]
			var fv vcf.FormatValue
			if si < len(values) {
				fv = values[si]
			}
			if fp.Name == "GT" {
				appendGT(stage.(*StringStage), fv)
				continue
			}
			appendLeaf(stage, fp.Type, fp.IsList, len(values) > 0, fv.Present, fv.Scalar, fv.List)
		}
		sampleStruct.AdvanceRow()
	}
}

// appendGT decodes the GT FORMAT special case: encoded
// genotype integers become a phased "a|b" or unphased "a/b" string, "."
// for a missing allele, and an entirely missing genotype clears the
// validity bit instead of emitting a string.
func appendGT(stage *StringStage, fv vcf.FormatValue) {
	if !fv.Present {
		stage.AppendNull()
		return
	}
	alleles, phased := decodeGT(fv)
	if len(alleles) == 0 {
		stage.AppendNull()
		return
	}
	var sb strings.Builder
	sep := "/"
	if phased {
		sep = "|"
	}
	for i, a := range alleles {
		if i > 0 {
			sb.WriteString(sep)
		}
		if a < 0 {
			sb.WriteByte('.')
		} else {
			sb.WriteString(strconv.Itoa(a))
		}
	}
	stage.AppendString(sb.String())
}

// decodeGT interprets fv's list/scalar payload as genotype allele
// indices. The Reader is expected to deliver GT as a list of ints (or a
// pre-decoded string); both encodings are accepted here so a Reader
// implementation is free to do either.
func decodeGT(fv vcf.FormatValue) ([]int, bool) {
	if s, ok := fv.Scalar.(string); ok {
		return parseGTString(s)
	}
	values := fv.List
	if values == nil && fv.Scalar != nil {
		values = []interface{}{fv.Scalar}
	}
	if len(values) == 0 {
		return nil, false
	}
	alleles := make([]int, 0, len(values))
	phased := false
	for _, v := range values {
		switch x := v.(type) {
		case string:
			if x == "|" {
				phased = true
				continue
			}
			if x == "." {
				alleles = append(alleles, -1)
				continue
			}
			n, err := strconv.Atoi(x)
			if err != nil {
				alleles = append(alleles, -1)
				continue
			}
			alleles = append(alleles, n)
		case int32:
			alleles = append(alleles, int(x))
		case int:
			alleles = append(alleles, x)
		}
	}
	return alleles, phased
}

func parseGTString(s string) ([]int, bool) {
	if s == "" || s == "." {
		return nil, false
	}
	phased := strings.Contains(s, "|")
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == '/' })
	alleles := make([]int, 0, len(parts))
	for _, p := range parts {
		if p == "." {
			alleles = append(alleles, -1)
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			alleles = append(alleles, -1)
			continue
		}
		alleles = append(alleles, n)
	}
	return alleles, phased
}

// AppendInt64 appends a non-null int64 value (used for POS).
func (s *PrimitiveStage) AppendInt64(v int64) {
	s.ensureData()
	s.validity.ensure(s.length + 1)
	bytes := s.data.Bytes()
	off := s.length * 8
	for i := 0; i < 8; i++ {
		bytes[off+i] = byte(v >> (8 * i))
	}
	s.validity.setValid(s.length)
	s.length++
}

// AppendFloat64 appends a non-null float64 value (used for QUAL).
func (s *PrimitiveStage) AppendFloat64(f float64) {
	bits := math.Float64bits(f)
	s.ensureData()
	s.validity.ensure(s.length + 1)
	bytes := s.data.Bytes()
	off := s.length * 8
	for i := 0; i < 8; i++ {
		bytes[off+i] = byte(bits >> (8 * i))
	}
	s.validity.setValid(s.length)
	s.length++
}

// Flush returns the currently staged Root and begins a new, empty batch.
// The caller (pkg/assemble, via pkg/stream) takes ownership of every
// buffer in the returned Root; Builder retains no reference to it.
func (b *Builder) Flush() *Root {
	root := b.cur
	b.reset()
	return root
}

// Abort releases every buffer in the currently staged batch without
// emitting it, used when a Reader error or allocation failure
// interrupts Append mid-batch.
func (b *Builder) Abort() {
	releaseRoot(b.cur)
	b.reset()
}

// Close releases the current staging buffers without starting a new
// batch. The Builder must not be appended to afterwards; the stream
// driver calls this on release so an empty staged batch never outlives
// the stream.
func (b *Builder) Close() {
	if b.cur == nil {
		return
	}
	releaseRoot(b.cur)
	b.cur = nil
}

func releaseRoot(root *Root) {
	root.Chrom.release()
	root.Pos.release()
	root.ID.release()
	root.Ref.release()
	root.Alt.release()
	root.Qual.release()
	root.Filter.release()
	if root.Info != nil {
		root.Info.release()
	}
	if root.Samples != nil {
		root.Samples.release()
	}
}

// DrainWarnings returns and clears accumulated decode-time warnings
// (currently: annotation extra-field drops).
func (b *Builder) DrainWarnings() []string {
	w := b.Warnings
	b.Warnings = nil
	return w
}
