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

// Command vcfarrowcat drives a stream over a synthetic (or, eventually,
// a real) vcf.Reader and prints the batches it emits, for manual
// inspection and schema-drift debugging. It is a thin harness over
// pkg/stream, not a substitute for it.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fxamacker/cbor/v2"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/cdi"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/stream"
	"github.com/RGenomicsETL/RBCFTools-sub004/pkg/vcffake"
)

func main() {
	var (
		numRecords     = flag.Int("records", 23, "number of synthetic records to generate")
		batchSize      = flag.Int("batch-size", 10, "rows per emitted batch")
		parseVEP       = flag.Bool("parse-vep", true, "enable CSQ annotation sub-parsing")
		transcriptMode = flag.String("vep-transcript-mode", "all", "all|first")
		anonymize      = flag.Bool("anonymize-samples", false, "pseudonymize sample names")
		dumpSchemaCBOR = flag.Bool("dump-schema-cbor", false, "dump a CBOR-encoded schema snapshot to stderr")
		verbose        = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			logger = l
		}
	}
	defer logger.Sync() //nolint:errcheck

	reader := vcffake.New(vcffake.Options{
		NumRecords: *numRecords,
		Samples:    []string{"NA12878", "NA12891", "NA12892"},
		Contigs:    []string{"chr1", "chr2", "chr3"},
		IncludeAD:  true,
		IncludeCSQ: *parseVEP,
		Seed:       7,
	})

	var warnings []string
	cfg := stream.New(
		stream.WithLogger(logger),
		stream.WithBatchSize(*batchSize),
		stream.WithParseVEP(*parseVEP),
		stream.WithVEPTranscriptMode(*transcriptMode),
	)
	if *anonymize {
		stream.WithAnonymizeSamples("")(cfg)
	}

	driver, err := stream.Open(reader, cfg, func(msg string) { warnings = append(warnings, msg) })
	if err != nil {
		fmt.Fprintln(os.Stderr, "stream open failed:", err)
		os.Exit(1)
	}

	if *dumpSchemaCBOR {
		dumpSchema(driver)
	}

	batchNum := 0
	for {
		arr, err := driver.Next()
		if err != nil {
			fmt.Fprintln(os.Stderr, "get_next failed:", err)
			os.Exit(1)
		}
		if arr == nil {
			break
		}
		batchNum++
		printBatchSummary(batchNum, arr)
		cdi.ReleaseArray(arr)
	}

	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	snap := driver.Stats()
	printStats(snap)

	if err := driver.Release(); err != nil {
		fmt.Fprintln(os.Stderr, "release failed:", err)
		os.Exit(1)
	}
}

func printBatchSummary(batchNum int, arr *cdi.ArrowArray) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"batch", "length", "n_children", "n_buffers"})
	table.SetBorder(false)
	table.Append([]string{
		fmt.Sprintf("%d", batchNum),
		fmt.Sprintf("%d", arr.Length),
		fmt.Sprintf("%d", arr.NChildren),
		fmt.Sprintf("%d", arr.NBuffers),
	})
	table.Render()
}

func printStats(snap stream.Snapshot) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"metric", "value"})
	table.SetBorder(false)
	table.Append([]string{"rows emitted", fmt.Sprintf("%d", snap.RowsEmitted)})
	table.Append([]string{"batches emitted", fmt.Sprintf("%d", snap.BatchesEmitted)})
	table.Append([]string{"mean batch build time", humanize.Comma(int64(snap.BatchBuildMeanNs)) + "ns"})
	table.Append([]string{"p99 batch build time", humanize.Comma(snap.BatchBuildP99Ns) + "ns"})
	table.Append([]string{"distinct ALT alleles (approx)", fmt.Sprintf("%d", snap.DistinctAltAlleles)})
	table.Append([]string{"distinct FILTER ids (approx)", fmt.Sprintf("%d", snap.DistinctFilterIDs)})
	table.Render()
}

// schemaSnapshot is the CBOR-serializable subset of an ArrowSchema tree
// dumped by --dump-schema-cbor for schema-drift debugging: a human can
// diff two runs' hex dumps without a full Arrow IPC reader.
type schemaSnapshot struct {
	Format   string           `cbor:"format"`
	Name     string           `cbor:"name"`
	Flags    int64            `cbor:"flags"`
	Children []schemaSnapshot `cbor:"children,omitempty"`
}

func toSnapshot(s *cdi.ArrowSchema) schemaSnapshot {
	snap := schemaSnapshot{Format: s.Format, Name: s.Name, Flags: s.Flags}
	for _, c := range s.Children {
		snap.Children = append(snap.Children, toSnapshot(c))
	}
	return snap
}

func dumpSchema(d *stream.Driver) {
	schema := d.Schema()
	defer cdi.ReleaseSchema(schema)

	snap := toSnapshot(schema)
	encoded, err := cbor.Marshal(snap)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cbor encode failed:", err)
		return
	}
	fmt.Fprintln(os.Stderr, "schema snapshot (cbor, hex):")
	fmt.Fprintln(os.Stderr, hex.EncodeToString(encoded))
}
