// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history provides the durable log of completed exchanges.
//
// A Recorder holds every committed conversation, most recent first, and
// rewrites the whole document on each addition:
//
//	rec := history.NewRecorder(cfg.HistoryPath(), logger)
//	rec.Load()
//	rec.Add(history.TitleFor(time.Now()), history.Exchange("hi", "hello", time.Now()))
//
// Read and write failures are logged, never returned to the chat flow; an
// empty history is an acceptable degraded state.
package history
