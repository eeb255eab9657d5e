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

// Package stream drives the ArrowArrayStream lifecycle (get_schema /
// get_next / get_last_error / release) over a vcf.Reader, feeding
// pkg/batch and pkg/assemble.
package stream

import (
	"strings"

	"github.com/apache/arrow/go/v12/arrow/memory"
	"go.uber.org/zap"

	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/annotation"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/werror"
)

// Config is the stream_init configuration.
type Config struct {
	Pool memory.Allocator
	Log  *zap.Logger

	// BatchSize is rows per batch; default 10000.
	BatchSize int
	// Region restricts iteration to a single region; forwarded verbatim
	// to the Reader. Empty means unrestricted.
	Region string
	// Samples is a sample-subset expression forwarded to the Reader.
	Samples string
	// Index is an alternate index path; empty lets the Reader
	// auto-detect.
	Index string
	// Threads is a decompression-thread-count hint forwarded to the
	// Reader.
	Threads int

	IncludeInfo   bool
	IncludeFormat bool

	ParseVEP          bool
	VEPTag            string
	VEPColumns        []string
	VEPTranscriptMode string

	// AnonymizeSamples runs sample names through a format-preserving
	// cipher before they become Arrow field names.
	AnonymizeSamples bool
	// AnonymizeKey seeds the cipher when AnonymizeSamples is set. A
	// fixed default is used if empty, which is fine for reproducible
	// testing but should be overridden for real deployments.
	AnonymizeKey string
}

// Option configures a Config.
type Option func(*Config)

// DefaultConfig returns a Config with:
//   - Pool: memory.NewGoAllocator()
//   - Log: zap.NewNop()
//   - BatchSize: 10000
//   - IncludeInfo, IncludeFormat: true
//   - VEPTranscriptMode: "all"
func DefaultConfig() *Config {
	return &Config{
		Pool:              memory.NewGoAllocator(),
		Log:               zap.NewNop(),
		BatchSize:         10000,
		IncludeInfo:       true,
		IncludeFormat:     true,
		VEPTranscriptMode: "all",
	}
}

// WithAllocator sets the Arrow allocator used for every staged buffer.
func WithAllocator(a memory.Allocator) Option { return func(c *Config) { c.Pool = a } }

// WithLogger sets the structured logger used for stream lifecycle events.
func WithLogger(l *zap.Logger) Option { return func(c *Config) { c.Log = l } }

// WithBatchSize sets rows per batch.
func WithBatchSize(n int) Option { return func(c *Config) { c.BatchSize = n } }

// WithRegion restricts iteration to a single region (requires a
// reader-side index).
func WithRegion(region string) Option { return func(c *Config) { c.Region = region } }

// WithSamples forwards a sample-subset expression to the Reader.
func WithSamples(expr string) Option { return func(c *Config) { c.Samples = expr } }

// WithIndex sets an alternate index path.
func WithIndex(path string) Option { return func(c *Config) { c.Index = path } }

// WithThreads sets the decompression-threads hint forwarded to the Reader.
func WithThreads(n int) Option { return func(c *Config) { c.Threads = n } }

// WithIncludeInfo toggles the INFO sub-struct.
func WithIncludeInfo(v bool) Option { return func(c *Config) { c.IncludeInfo = v } }

// WithIncludeFormat toggles the samples sub-struct.
func WithIncludeFormat(v bool) Option { return func(c *Config) { c.IncludeFormat = v } }

// WithParseVEP enables annotation sub-parsing.
func WithParseVEP(v bool) Option { return func(c *Config) { c.ParseVEP = v } }

// WithVEPTag overrides annotation tag auto-detection.
func WithVEPTag(tag string) Option { return func(c *Config) { c.VEPTag = tag } }

// WithVEPColumns restricts annotation parsing to the given subset of
// fields, in header order.
func WithVEPColumns(cols []string) Option { return func(c *Config) { c.VEPColumns = cols } }

// WithVEPTranscriptMode sets "all" or "first".
func WithVEPTranscriptMode(mode string) Option { return func(c *Config) { c.VEPTranscriptMode = mode } }

// WithAnonymizeSamples enables Feistel-cipher pseudonymization of sample
// names in the emitted schema.
func WithAnonymizeSamples(key string) Option {
	return func(c *Config) {
		c.AnonymizeSamples = true
		c.AnonymizeKey = key
	}
}

// New builds a Config from DefaultConfig plus opts.
func New(opts ...Option) *Config {
	c := DefaultConfig()
	for _, o := range opts {
		o(c)
	}
	return c
}

// Validate checks the option invariants reported as UsageError:
// batch_size > 0, a recognized vep_transcript_mode, and (if
// set) a recognized vep_tag.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return werror.WrapKind(errBatchSize, werror.KindUsage, "batch_size must be > 0")
	}
	if _, err := annotation.ParseMode(c.VEPTranscriptMode); err != nil {
		return err
	}
	if c.VEPTag != "" {
		switch strings.ToUpper(c.VEPTag) {
		case annotation.TagCSQ, annotation.TagBCSQ, annotation.TagANN:
		default:
			return werror.WrapKind(errVEPTag, werror.KindUsage, "unknown vep_tag "+c.VEPTag)
		}
	}
	return nil
}

var (
	errBatchSize = werror.PlainError("invalid batch_size")
	errVEPTag    = werror.PlainError("invalid vep_tag")
)
