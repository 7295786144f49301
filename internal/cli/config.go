// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation for pocket.
//
// Command: config [subcommand]
// Short:   View and create configuration
//
// Subcommands:
//   show (default)      Display the effective configuration
//   path                Show the configuration file path
//   init                Write a default config file
//
// Examples:
//   pocket config                     Show current config (default)
//   pocket config show --json         Config in JSON format
//   pocket config init                Create ~/.pocket/config.toml
//   pocket config init --force        Overwrite an existing file
//   pocket --config ./dev.toml config Show a specific file with overrides
//
// Flags:
//   --json              Output in JSON format
//   --force             Overwrite on init

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/jeranaias/pocket-tui/internal/config"
)

// loadConfig loads the configuration the global flags select.
func loadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, configError(err)
	}
	if args.Model != "" {
		cfg.Completion.Model = args.Model
	}
	if args.NoVoice {
		cfg.Voice.Enabled = false
	}
	return cfg, nil
}

// configPath returns the file config init writes.
func configPath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ConfigPathTOML()
}

// HandleConfig handles "config [show|path|init]".
func HandleConfig(args Args, out io.Writer) error {
	switch args.Subcommand {
	case "show", "":
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		if args.JSON {
			// The API key is tagged json:"-".
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		fmt.Fprint(out, cfg.String())
		return nil

	case "path":
		path, err := configPath(args)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, path)
		return nil

	case "init":
		return handleConfigInit(args, out)

	default:
		return &UsageError{Command: "config", Message: fmt.Sprintf("unknown subcommand %q (show, path, init)", args.Subcommand)}
	}
}

func handleConfigInit(args Args, out io.Writer) error {
	path, err := configPath(args)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !args.Force {
		return &UsageError{Command: "config", Message: path + " already exists (use --force to overwrite)"}
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &CommandError{Command: "config", Action: "init", Err: err}
	}

	if err := config.SaveTOML(config.Default(), path); err != nil {
		return &CommandError{Command: "config", Action: "init", Err: err}
	}
	fmt.Fprintln(out, SuccessStyle.Render("Wrote")+" "+path)
	return nil
}
