// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/buger/jsonparser"
)

// strictResponse mirrors the documented response schema. Pointer fields
// distinguish a missing key from an empty value.
type strictResponse struct {
	Choices []struct {
		Message *struct {
			Role    *string `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// lenientPaths are tried in order against the raw payload.
var lenientPaths = [][]string{
	{"choices", "[0]", "message", "content"},
	{"choices", "[0]", "text"},
}

// decode extracts the reply text: strict schema first, then key paths.
func decode(body []byte) (string, bool) {
	if content, ok := decodeStrict(body); ok {
		return content, true
	}
	return decodeLenient(body)
}

// decodeStrict requires at least one choice and a role and content on every
// choice's message.
func decodeStrict(body []byte) (string, bool) {
	var resp strictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false
	}
	if len(resp.Choices) == 0 {
		return "", false
	}
	for _, choice := range resp.Choices {
		if choice.Message == nil || choice.Message.Role == nil || choice.Message.Content == nil {
			return "", false
		}
	}
	return *resp.Choices[0].Message.Content, true
}

// decodeLenient walks known key paths without a fixed schema.
func decodeLenient(body []byte) (string, bool) {
	for _, path := range lenientPaths {
		if content, err := jsonparser.GetString(body, path...); err == nil {
			return content, true
		}
	}
	return "", false
}

// isText reports whether the payload can be shown as UTF-8 text.
func isText(body []byte) bool {
	return utf8.Valid(body)
}
