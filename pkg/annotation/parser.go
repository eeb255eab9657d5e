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
	"math"
	"strconv"
	"strings"
)

// Value is one decoded annotation field value. nil means missing.
type Value = interface{}

// Transcript is one comma-separated sub-record of an annotation payload,
// decoded into schema order.
type Transcript struct {
	Values []Value
}

// ParseResult is the outcome of parsing one record's annotation payload:
// n_transcripts x n_fields, plus how many trailing fields were discarded
// because a transcript had more pipe fields than the schema declared.
type ParseResult struct {
	Transcripts  []Transcript
	ExtraDropped int
}

// ParsePayload splits a raw annotation payload into comma-separated
// transcripts, each pipe-separated and positionally aligned to schema.
// A transcript with fewer fields than schema is right-padded with
// missing values; a transcript with more has its excess fields
// discarded (counted in ParseResult.ExtraDropped, warned at most once
// per stream by the caller).
func ParsePayload(schema *Schema, payload string) ParseResult {
	if payload == "" {
		return ParseResult{}
	}

	var result ParseResult
	for _, rawTranscript := range strings.Split(payload, ",") {
		parts := strings.Split(rawTranscript, "|")
		values := make([]Value, len(schema.Fields))

		for i, field := range schema.Fields {
			if field.Index >= len(parts) {
				values[i] = nil
				continue
			}
			raw := parts[field.Index]
			if field.IsList {
				values[i] = parseList(field, raw)
			} else {
				values[i] = parseScalar(field.Type, raw)
			}
		}

		width := schema.DeclaredWidth
		if width == 0 {
			width = maxIndex(schema.Fields) + 1
		}
		if len(parts) > width {
			result.ExtraDropped += len(parts) - width
		}

		result.Transcripts = append(result.Transcripts, Transcript{Values: values})
	}
	return result
}

func maxIndex(fields []Field) int {
	m := -1
	for _, f := range fields {
		if f.Index > m {
			m = f.Index
		}
	}
	return m
}

func parseList(field Field, raw string) Value {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "&")
	if field.Type == TypeString && field.Name != "Consequence" {
		return parts
	}
	out := make([]Value, 0, len(parts))
	for _, p := range parts {
		out = append(out, parseScalar(field.Type, p))
	}
	return out
}

func parseScalar(t FieldType, raw string) Value {
	if raw == "" {
		return nil
	}
	switch t {
	case TypeInteger:
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil
		}
		return int32(v)
	case TypeFloat:
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return float32(v)
	case TypeFlag:
		return true
	default:
		return raw
	}
}

// Serialize re-renders a ParseResult back into pipe/comma-delimited
// text. Re-parsing the output yields an equal value grid, modulo known
// type coercions such as float32 precision; the round-trip tests rely
// on that.
func Serialize(schema *Schema, result ParseResult) string {
	transcripts := make([]string, 0, len(result.Transcripts))
	width := schema.DeclaredWidth
	if width == 0 {
		width = maxIndex(schema.Fields) + 1
	}
	for _, t := range result.Transcripts {
		fields := make([]string, width)
		for i, v := range t.Values {
			fields[schema.Fields[i].Index] = formatValue(v)
		}
		transcripts = append(transcripts, strings.Join(fields, "|"))
	}
	return strings.Join(transcripts, ",")
}

func formatValue(v Value) string {
	switch val := v.(type) {
	case nil:
		return ""
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case string:
		return val
	case bool:
		if val {
			return "1"
		}
		return ""
	case []string:
		return strings.Join(val, "&")
	case []Value:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = formatValue(e)
		}
		return strings.Join(parts, "&")
	default:
		return ""
	}
}
