// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sessions provides the lightweight session cache.
//
// Archived chat sessions are kept as one JSON list under a single key of a
// SQLite key-value table, rewritten on every mutation. This store is
// separate from the committed exchange log in package history: it holds
// whole chat sessions as the user saw them, not individual exchanges.
package sessions
