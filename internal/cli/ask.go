// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jeranaias/pocket-tui/internal/app"
	"github.com/jeranaias/pocket-tui/internal/voice"
)

// speechPoll is how often ask checks whether playback has ended.
const speechPoll = 100 * time.Millisecond

// AskResult is the JSON form of a one-shot exchange.
type AskResult struct {
	Model   string `json:"model"`
	Message string `json:"message"`
	Reply   string `json:"reply"`
	Spoken  bool   `json:"spoken"`
}

// HandleAsk sends one message, prints the revealed reply and waits for
// playback to end.
func HandleAsk(ctx context.Context, args Args, out io.Writer) error {
	a, err := app.New(args.AppOptions())
	if err != nil {
		return configError(err)
	}
	defer a.Close()

	result, err := Ask(ctx, a, args.Query, args.JSON, out)
	if err != nil {
		return err
	}
	if result.Spoken {
		waitForSpeech(ctx, a.Speaker)
	}
	return nil
}

// Ask runs one exchange on a fresh orchestrator. With asJSON the reveal is
// suppressed and the result is printed as JSON.
func Ask(ctx context.Context, a *app.App, message string, asJSON bool, out io.Writer) (AskResult, error) {
	orch := a.NewOrchestrator(ctx)

	reveal := out
	if asJSON {
		reveal = io.Discard
	}
	done, err := Exchange(orch, message, reveal)
	if err != nil {
		return AskResult{}, &CommandError{Command: "ask", Action: "send", Err: err}
	}

	result := AskResult{
		Model:   a.Client.Model(),
		Message: done.UserText,
		Reply:   done.ReplyText,
		Spoken:  done.Spoken,
	}
	if asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return result, err
		}
		fmt.Fprintln(out, string(data))
	}
	return result, nil
}

// waitForSpeech blocks until sp stops speaking or ctx ends, in which case
// playback is stopped.
func waitForSpeech(ctx context.Context, sp voice.Speaker) {
	ticker := time.NewTicker(speechPoll)
	defer ticker.Stop()
	for sp.IsSpeaking() {
		select {
		case <-ctx.Done():
			sp.Stop()
			return
		case <-ticker.C:
		}
	}
}
