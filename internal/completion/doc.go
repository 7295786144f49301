// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package completion implements the client for the hosted chat-completions
// endpoint.
//
// The client keeps an append-only log of conversation turns but only ever
// transmits a rolling window of the most recent turns, prefixed by a fixed
// persona instruction that is never logged itself.
//
// # Failure Model
//
// Send never returns an error. Configuration problems, transport failures
// and undecodable replies all resolve to a fixed, human-readable sentence
// that the caller displays like any other reply:
//
//	reply := client.Send(ctx, "I feel anxious today")
//
// Decoding is two-tier: the documented schema is tried first, then a
// permissive key-path lookup on the raw payload. If both fail the raw
// payload is logged for diagnosis.
package completion
