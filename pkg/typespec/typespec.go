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

// Package typespec holds the static, specification-mandated type and
// cardinality tables for the reserved VCF INFO and FORMAT tags, and
// reconciles them against whatever a given file's header actually
// declares. It is consulted by pkg/vschema when projecting the Arrow
// schema and by pkg/batch when deciding how to decode each field, so both
// must be driven from the same reconciled table — see Table.Reconcile.
package typespec

import "github.com/RGenomicsETL/RBCFTools-sub004/pkg/vcf"

// Entry is one reserved tag's specification-mandated type and
// cardinality.
type Entry struct {
	Name     string
	Category vcf.Category
	Type     vcf.ValueType
	Number   vcf.Number
}

func fixed(n int) vcf.Number { return vcf.Number{Class: vcf.NumberFixed, Fixed: n} }

var numA = vcf.Number{Class: vcf.NumberA}
var numG = vcf.Number{Class: vcf.NumberG}
var numR = vcf.Number{Class: vcf.NumberR}

// reserved enumerates the VCF 4.x specification's reserved INFO and
// FORMAT tags relevant to columnar projection. It is not exhaustive of
// every tag ever registered; it covers the commonly-produced set.
var reserved = []Entry{
	// FORMAT
	{Name: "GT", Category: vcf.CategoryFormat, Type: vcf.TypeString, Number: fixed(1)},
	{Name: "GQ", Category: vcf.CategoryFormat, Type: vcf.TypeInteger, Number: fixed(1)},
	{Name: "DP", Category: vcf.CategoryFormat, Type: vcf.TypeInteger, Number: fixed(1)},
	{Name: "HQ", Category: vcf.CategoryFormat, Type: vcf.TypeInteger, Number: fixed(2)},
	{Name: "AD", Category: vcf.CategoryFormat, Type: vcf.TypeInteger, Number: numR},
	{Name: "ADF", Category: vcf.CategoryFormat, Type: vcf.TypeInteger, Number: numR},
	{Name: "ADR", Category: vcf.CategoryFormat, Type: vcf.TypeInteger, Number: numR},
	{Name: "PL", Category: vcf.CategoryFormat, Type: vcf.TypeInteger, Number: numG},
	{Name: "GL", Category: vcf.CategoryFormat, Type: vcf.TypeFloat, Number: numG},
	{Name: "GP", Category: vcf.CategoryFormat, Type: vcf.TypeFloat, Number: numG},
	{Name: "PS", Category: vcf.CategoryFormat, Type: vcf.TypeInteger, Number: fixed(1)},
	{Name: "PQ", Category: vcf.CategoryFormat, Type: vcf.TypeInteger, Number: fixed(1)},
	{Name: "EC", Category: vcf.CategoryFormat, Type: vcf.TypeInteger, Number: numA},
	{Name: "MQ", Category: vcf.CategoryFormat, Type: vcf.TypeInteger, Number: fixed(1)},
	{Name: "FT", Category: vcf.CategoryFormat, Type: vcf.TypeString, Number: fixed(1)},

	// INFO
	{Name: "AC", Category: vcf.CategoryInfo, Type: vcf.TypeInteger, Number: numA},
	{Name: "AF", Category: vcf.CategoryInfo, Type: vcf.TypeFloat, Number: numA},
	{Name: "AN", Category: vcf.CategoryInfo, Type: vcf.TypeInteger, Number: fixed(1)},
	{Name: "BQ", Category: vcf.CategoryInfo, Type: vcf.TypeFloat, Number: fixed(1)},
	{Name: "CIGAR", Category: vcf.CategoryInfo, Type: vcf.TypeString, Number: numA},
	{Name: "DB", Category: vcf.CategoryInfo, Type: vcf.TypeFlag, Number: fixed(0)},
	{Name: "DP", Category: vcf.CategoryInfo, Type: vcf.TypeInteger, Number: fixed(1)},
	{Name: "END", Category: vcf.CategoryInfo, Type: vcf.TypeInteger, Number: fixed(1)},
	{Name: "H2", Category: vcf.CategoryInfo, Type: vcf.TypeFlag, Number: fixed(0)},
	{Name: "H3", Category: vcf.CategoryInfo, Type: vcf.TypeFlag, Number: fixed(0)},
	{Name: "MQ", Category: vcf.CategoryInfo, Type: vcf.TypeFloat, Number: fixed(1)},
	{Name: "MQ0", Category: vcf.CategoryInfo, Type: vcf.TypeInteger, Number: fixed(1)},
	{Name: "NS", Category: vcf.CategoryInfo, Type: vcf.TypeInteger, Number: fixed(1)},
	{Name: "SB", Category: vcf.CategoryInfo, Type: vcf.TypeInteger, Number: fixed(4)},
	{Name: "SOMATIC", Category: vcf.CategoryInfo, Type: vcf.TypeFlag, Number: fixed(0)},
	{Name: "VALIDATED", Category: vcf.CategoryInfo, Type: vcf.TypeFlag, Number: fixed(0)},
	{Name: "1000G", Category: vcf.CategoryInfo, Type: vcf.TypeFlag, Number: fixed(0)},
}

// Table is the reserved-tag lookup table, with per-stream once-only
// warning tracking for Reconcile.
type Table struct {
	byKey  map[tableKey]Entry
	warned map[tableKey]struct{}
}

type tableKey struct {
	name     string
	category vcf.Category
}

// New builds a Table from the standard reserved-tag set.
func New() *Table {
	t := &Table{
		byKey:  make(map[tableKey]Entry, len(reserved)),
		warned: make(map[tableKey]struct{}),
	}
	for _, e := range reserved {
		t.byKey[tableKey{e.Name, e.Category}] = e
	}
	return t
}

// Lookup returns the reserved entry for (category, name), if any.
func (t *Table) Lookup(category vcf.Category, name string) (Entry, bool) {
	e, ok := t.byKey[tableKey{name, category}]
	return e, ok
}

// Reconciled is the outcome of reconciling a header declaration against
// the reserved-tag entry.
type Reconciled struct {
	// CorrectedNumber is the cardinality the schema and decoder must use.
	CorrectedNumber vcf.Number
	// CorrectedType is the type the decoder must use (the header's
	// declared type always wins here — the on-disk representation
	// matches the declared type regardless of what the VCF spec
	// mandates).
	CorrectedType vcf.ValueType
	WarnType      bool
	WarnNumber    bool
}

// Reconcile reconciles a header's declared type/number for a reserved tag
// against the reserved-tag entry: a Fixed spec
// cardinality is corrected to the spec's value unless the header also
// declares a Fixed cardinality (in which case the header's fixed value is
// trusted, since reserved tags like HQ have spec-defined but sometimes
// header-redeclared fixed widths); a spec-A/G/R cardinality always
// resolves to the spec's class, with a number warning unless the header
// declares the same class or the permissive Variable class.
//
// Reconcile is idempotent: calling it twice with the same inputs returns
// the same CorrectedNumber, since it is a
// pure function of (entry, declaredType, declaredNumber) with no hidden
// state beyond the once-per-field warning flag.
func (t *Table) Reconcile(entry Entry, declaredType vcf.ValueType, declaredNumber vcf.Number) Reconciled {
	r := Reconciled{
		CorrectedNumber: entry.Number,
		CorrectedType:   declaredType,
	}

	switch entry.Number.Class {
	case vcf.NumberFixed:
		if declaredNumber.Class == vcf.NumberFixed {
			r.CorrectedNumber = declaredNumber
		} else {
			// A Fixed spec cardinality declared as A/G/R/Variable in the
			// header is always a disagreement worth surfacing; the
			// permissive Variable fallback is scoped to the A/G/R
			// classes only, not to Fixed ones.
			r.WarnNumber = true
		}
	case vcf.NumberA, vcf.NumberG, vcf.NumberR:
		if declaredNumber.Class == entry.Number.Class || declaredNumber.Class == vcf.NumberVariable {
			r.CorrectedNumber = entry.Number
		} else {
			r.CorrectedNumber = entry.Number
			r.WarnNumber = true
		}
	case vcf.NumberVariable:
		r.CorrectedNumber = declaredNumber
	}

	if declaredType != entry.Type {
		r.WarnType = true
	}

	return r
}

// ReconcileOnce behaves like Reconcile but only reports Warn{Type,Number}
// as true the first time a given (category, name) pair disagrees:
// warnings surface at most once per field per stream.
// Subsequent calls for the same field still return the correct
// CorrectedNumber/CorrectedType, just without re-raising the warning.
func (t *Table) ReconcileOnce(entry Entry, declaredType vcf.ValueType, declaredNumber vcf.Number) Reconciled {
	r := t.Reconcile(entry, declaredType, declaredNumber)
	key := tableKey{entry.Name, entry.Category}
	if _, already := t.warned[key]; already {
		r.WarnType = false
		r.WarnNumber = false
		return r
	}
	if r.WarnType || r.WarnNumber {
		t.warned[key] = struct{}{}
	}
	return r
}
