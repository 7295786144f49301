// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes committed conversations to standalone files.
//
// Two formats are supported: Markdown for reading and sharing, and JSON
// in the same shape the history file uses.
//
//	exp, err := export.ForFormat("markdown", nil)
//	path, err := export.ExportToFile(conv, exp, &export.Options{OutputDir: "."})
package export
