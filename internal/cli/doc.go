// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the line-mode front ends
// for pocket.
//
// # Key Types
//
//   - Command: the top-level commands pocket understands
//   - Args: parsed global flags plus command-specific values
//   - ArgParser: flag and positional parsing shared by every command
//   - REPL: the interactive line-mode chat
//
// # Usage
//
//	cmd, args, err := cli.Parse(os.Args[1:])
//	if err != nil {
//	    os.Exit(cli.ExitCode(err))
//	}
//	err = cli.Run(ctx, cmd, args, os.Stdout)
//
// # Commands
//
//   - tui: full-screen chat (default on a terminal)
//   - chat: line-mode chat with input history
//   - ask: one question, one revealed reply
//   - history: committed conversations (list, show, json)
//   - sessions: archived chats in the session cache (list, show, delete, clear)
//   - config: show, path, init
//   - version, help
package cli
