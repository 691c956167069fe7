// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ngrams

import (
	"fmt"
	"os"

	"github.com/sugawarayuuta/sonnet"
)

// DecodeJSON parses corpus statistics in the language file format:
//
//	{"language": "english", "characters": {"e": 0.12, ...},
//	 "bigrams": {"th": 0.03, ...}, "skipgrams": {...},
//	 "skipgrams2": {...}, "skipgrams3": {...}, "trigrams": {"the": 0.02, ...}}
func DecodeJSON(data []byte) (Raw, error) {
	var raw Raw
	if err := sonnet.Unmarshal(data, &raw); err != nil {
		return Raw{}, fmt.Errorf("%w: decode statistics: %w", ErrConfiguration, err)
	}
	return raw, nil
}

// LoadJSON reads and decodes a language statistics file.
func LoadJSON(path string) (Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Raw{}, fmt.Errorf("read statistics %s: %w", path, err)
	}
	raw, err := DecodeJSON(data)
	if err != nil {
		return Raw{}, fmt.Errorf("%s: %w", path, err)
	}
	return raw, nil
}
