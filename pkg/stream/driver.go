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
	"time"

	"github.com/apache/arrow/go/v12/arrow/memory"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/annotation"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/assemble"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/batch"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/cdi"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/typespec"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/vcf"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/vschema"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/werror"
)

// state is the stream lifecycle state: Open -> Streaming -> Exhausted
// -> Released, with Release reachable from any state and idempotent.
type state int

const (
	stateOpen state = iota
	stateStreaming
	stateExhausted
	stateReleased
)

// WarnFunc receives a warning (type-spec deviation, annotation overflow,
// unknown vep_columns entry) as it's recorded. Exactly one call per
// distinct warning condition per stream.
type WarnFunc func(msg string)

// Driver owns the Reader, the cached schema plan, the batch builder,
// and the lifecycle state machine behind an ArrowArrayStream's four
// callbacks.
type Driver struct {
	reader vcf.Reader
	cfg    *Config
	spec   *typespec.Table
	plan   *vschema.Plan
	header *vcf.Header

	builder *batch.Builder
	anon    *anonymizer

	state     state
	lastErr   error
	warn      WarnFunc
	cachedCDI *cdi.ArrowSchema

	stats *Stats
}

// Open validates cfg, projects the schema plan from reader's header, and
// returns a Driver in the Open state. It does not read any records.
func Open(reader vcf.Reader, cfg *Config, warn WarnFunc) (*Driver, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Pool == nil {
		cfg.Pool = memory.NewGoAllocator()
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if warn == nil {
		warn = func(string) {}
	}

	header := reader.Header()
	if cfg.AnonymizeSamples && len(header.Samples) > 0 {
		anon := newAnonymizer(cfg.AnonymizeKey)
		renamed := make([]string, len(header.Samples))
		for i, s := range header.Samples {
			n, err := anon.Name(s)
			if err != nil {
				warn("anonymize_samples: failed to pseudonymize sample " + s + ", keeping original name")
				n = s
			}
			renamed[i] = n
		}
		clone := *header
		clone.Samples = renamed
		header = &clone
	}

	mode, err := annotation.ParseMode(cfg.VEPTranscriptMode)
	if err != nil {
		return nil, err
	}

	specTable := typespec.New()
	plan := vschema.Build(header, specTable, vschema.Options{
		IncludeInfo:       cfg.IncludeInfo,
		IncludeFormat:     cfg.IncludeFormat,
		ParseAnnotation:   cfg.ParseVEP,
		AnnotationTag:     cfg.VEPTag,
		AnnotationColumns: cfg.VEPColumns,
		AnnotationMode:    mode,
	})

	d := &Driver{
		reader:  reader,
		cfg:     cfg,
		spec:    specTable,
		plan:    plan,
		header:  header,
		builder: batch.NewBuilder(cfg.Pool, header, plan),
		warn:    warn,
		state:   stateOpen,
		stats:   newStats(),
	}
	d.cachedCDI = cdi.SchemaFromArrow(plan.Schema)

	for _, w := range plan.Warnings {
		warn(w)
	}

	if cfg.ParseVEP && plan.Annotation != nil && len(cfg.VEPColumns) > 0 {
		if hf, ok := header.InfoField(plan.Annotation.Tag); ok {
			unknown, uerr := annotation.UnknownColumns(plan.Annotation.Tag, hf.Description, cfg.VEPColumns)
			if uerr == nil {
				for _, u := range unknown {
					warn("vep_columns: unknown annotation field " + u)
				}
			}
		}
	}

	cfg.Log.Debug("stream opened", zap.Int("batch_size", cfg.BatchSize), zap.Bool("include_info", cfg.IncludeInfo), zap.Bool("include_format", cfg.IncludeFormat))
	return d, nil
}

// Schema returns the stream's schema. Every call returns a fresh deep
// clone, so releasing one consumer's copy never affects another's (or
// the cached original).
func (d *Driver) Schema() *cdi.ArrowSchema {
	return cdi.CloneSchema(d.cachedCDI)
}

// Next drives the batch builder until batch_size rows accumulate or the
// Reader is exhausted, then assembles and returns the batch. It returns
// (nil, nil) once the stream is Exhausted and no more rows remain — the
// caller is expected to translate that into cdi.ExhaustedArray(). A
// non-nil error transitions the stream to Exhausted and is also
// recorded for GetLastError.
func (d *Driver) Next() (*cdi.ArrowArray, error) {
	if d.state == stateReleased {
		return nil, werror.WrapKind(werror.PlainError("stream already released"), werror.KindUsage, "")
	}
	if d.state == stateExhausted {
		return nil, nil
	}
	d.state = stateStreaming

	start := time.Now()
	rows := 0
	for rows < d.cfg.BatchSize {
		if !d.reader.Next() {
			if err := d.reader.Err(); err != nil {
				d.builder.Abort()
				d.fail(werror.WrapKind(err, werror.KindIO, "reader failed"))
				return nil, d.lastErr
			}
			d.state = stateExhausted
			break
		}
		rec := d.reader.Record()
		d.builder.Append(rec)
		d.stats.observeRecord(rec)
		rows++
	}

	for _, w := range d.builder.DrainWarnings() {
		d.warn(w)
	}

	if rows == 0 {
		return nil, nil
	}

	root := d.builder.Flush()
	arr := assemble.Assemble(d.plan.Schema, root)
	d.stats.observeBatch(start, rows)
	d.lastErr = nil
	return arr, nil
}

func (d *Driver) fail(err error) {
	d.lastErr = err
	d.state = stateExhausted
	d.cfg.Log.Error("stream failed", zap.Error(err))
}

// LastError returns the most recent error, if any. It is cleared by a
// successful Next call.
func (d *Driver) LastError() error { return d.lastErr }

// Release closes the Reader and frees the cached schema; it is
// idempotent, guarded by the state machine rather than a nil check on a
// single release callback since Driver is a plain Go value, not a C
// struct with a self-nilling field.
func (d *Driver) Release() error {
	if d.state == stateReleased {
		return nil
	}
	d.state = stateReleased
	var errs error
	d.builder.Close()
	if d.cachedCDI != nil {
		cdi.ReleaseSchema(d.cachedCDI)
		d.cachedCDI = nil
	}
	if err := d.reader.Close(); err != nil {
		errs = multierr.Append(errs, werror.WrapKind(err, werror.KindIO, "closing reader"))
	}
	d.cfg.Log.Debug("stream released", zap.Int64("rows_emitted", d.stats.RowsEmitted))
	return errs
}

// Stats returns a point-in-time snapshot of the stream's diagnostics.
// Safe to call at any state, including after Release.
func (d *Driver) Stats() Snapshot { return d.stats.Snapshot() }

// NewArrowArrayStream wires d's methods into a cdi.ArrowArrayStream's
// get_schema/get_next/get_last_error/release callbacks: get_next emits
// an exhausted array (nil release) for zero rows instead of an error,
// and every Release call after the first is a no-op.
func NewArrowArrayStream(d *Driver) *cdi.ArrowArrayStream {
	return &cdi.ArrowArrayStream{
		GetSchema: func(out *cdi.ArrowSchema) error {
			*out = *d.Schema()
			return nil
		},
		GetNext: func(out *cdi.ArrowArray) error {
			arr, err := d.Next()
			if err != nil {
				return err
			}
			if arr == nil {
				*out = *cdi.ExhaustedArray()
				return nil
			}
			*out = *arr
			return nil
		},
		GetLastError: func() string {
			if d.lastErr == nil {
				return ""
			}
			return d.lastErr.Error()
		},
		Release:     func() { _ = d.Release() },
		PrivateData: d,
	}
}
