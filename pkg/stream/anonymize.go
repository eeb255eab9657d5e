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
	"github.com/cyrildever/feistel"
	"github.com/cyrildever/feistel/common/utils/hash"
)

const (
	defaultAnonymizeKey  = "rbcftools-default-sample-anon-key"
	defaultFeistelRounds = 10
)

// anonymizer runs sample names through a format-preserving Feistel
// cipher so a CDI consumer sees a pseudonymous sample identifier
// instead of the real one, when Config.AnonymizeSamples is set.
type anonymizer struct {
	cipher *feistel.FPECipher
}

func newAnonymizer(key string) *anonymizer {
	if key == "" {
		key = defaultAnonymizeKey
	}
	return &anonymizer{cipher: feistel.NewFPECipher(hash.SHA_256, key, defaultFeistelRounds)}
}

// Name returns sample's pseudonym, or sample itself if encryption fails
// (a malformed input is surfaced as a warning by the caller, not a fatal
// stream error, since sample naming doesn't affect data correctness).
func (a *anonymizer) Name(sample string) (string, error) {
	obfuscated, err := a.cipher.Encrypt(sample)
	if err != nil {
		return sample, err
	}
	return obfuscated.String(true), nil
}
