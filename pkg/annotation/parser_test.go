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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldSchema() *Schema {
	return &Schema{
		Tag: TagCSQ,
		Fields: []Field{
			{Name: "X", Type: TypeString, Index: 0},
			{Name: "Y", Type: TypeString, Index: 1},
			{Name: "Z", Type: TypeString, Index: 2},
		},
	}
}

// S6: CSQ with two transcripts A|B|C,D|E|F and schema [X,Y,Z].
func TestParsePayload_S6TwoTranscripts(t *testing.T) {
	schema := fieldSchema()
	result := ParsePayload(schema, "A|B|C,D|E|F")
	require.Len(t, result.Transcripts, 2)
	assert.Equal(t, []Value{"A", "B", "C"}, result.Transcripts[0].Values)
	assert.Equal(t, []Value{"D", "E", "F"}, result.Transcripts[1].Values)
	assert.Zero(t, result.ExtraDropped)
}

func TestParsePayload_ShortTranscriptPadded(t *testing.T) {
	schema := fieldSchema()
	result := ParsePayload(schema, "A|B")
	require.Len(t, result.Transcripts, 1)
	assert.Equal(t, []Value{"A", "B", nil}, result.Transcripts[0].Values)
}

func TestParsePayload_ExcessFieldsDropped(t *testing.T) {
	schema := fieldSchema()
	result := ParsePayload(schema, "A|B|C|D|E")
	require.Len(t, result.Transcripts, 1)
	assert.Equal(t, []Value{"A", "B", "C"}, result.Transcripts[0].Values)
	assert.Equal(t, 2, result.ExtraDropped)
}

func TestParsePayload_EmptyPayload(t *testing.T) {
	schema := fieldSchema()
	result := ParsePayload(schema, "")
	assert.Nil(t, result.Transcripts)
}

func TestParsePayload_IntegerAndFloatCoercion(t *testing.T) {
	schema := &Schema{
		Tag: TagCSQ,
		Fields: []Field{
			{Name: "DISTANCE", Type: TypeInteger, Index: 0},
			{Name: "AF", Type: TypeFloat, Index: 1},
			{Name: "DISTANCE2", Type: TypeInteger, Index: 2},
		},
	}
	result := ParsePayload(schema, "120|0.25|")
	require.Len(t, result.Transcripts, 1)
	values := result.Transcripts[0].Values
	assert.Equal(t, int32(120), values[0])
	assert.Equal(t, float32(0.25), values[1])
	assert.Nil(t, values[2], "empty field must decode as missing")
}

func TestParsePayload_MalformedNumericIsMissing(t *testing.T) {
	schema := &Schema{Tag: TagCSQ, Fields: []Field{{Name: "DISTANCE", Type: TypeInteger, Index: 0}}}
	result := ParsePayload(schema, "not-a-number")
	assert.Nil(t, result.Transcripts[0].Values[0])
}

func TestParsePayload_ConsequenceIsAmpersandList(t *testing.T) {
	schema := &Schema{
		Tag: TagCSQ,
		Fields: []Field{
			{Name: "Consequence", Type: TypeString, Index: 0, IsList: true},
		},
	}
	result := ParsePayload(schema, "missense_variant&splice_region_variant")
	vals, ok := result.Transcripts[0].Values[0].([]Value)
	require.True(t, ok)
	assert.Equal(t, []Value{"missense_variant", "splice_region_variant"}, vals)
}

// Round trip: re-serializing a parse result with pipe+comma
// delimiters and feeding it back yields a bitwise-equal value grid.
func TestRoundTrip_SerializeThenReparse(t *testing.T) {
	schema := fieldSchema()
	payload := "A|B|C,D|E|F"
	result := ParsePayload(schema, payload)

	reserialized := Serialize(schema, result)
	reparsed := ParsePayload(schema, reserialized)

	assert.Equal(t, result.Transcripts, reparsed.Transcripts)
}

func TestRoundTrip_NumericFields(t *testing.T) {
	schema := &Schema{
		Tag: TagCSQ,
		Fields: []Field{
			{Name: "DISTANCE", Type: TypeInteger, Index: 0},
			{Name: "AF", Type: TypeFloat, Index: 1},
		},
	}
	payload := "42|0.5,|1.25"
	result := ParsePayload(schema, payload)
	reserialized := Serialize(schema, result)
	reparsed := ParsePayload(schema, reserialized)
	assert.Equal(t, result.Transcripts, reparsed.Transcripts)
}
