// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package main

import (
	"github.com/urfave/cli"
)

var (
	// VerbosityFlag sets the logger verbosity.
	VerbosityFlag = cli.StringFlag{
		Name:  "verbosity",
		Usage: "verbosity",
	}
	// ConfigFlag points at a configuration file.
	ConfigFlag = cli.StringFlag{
		Name:  "config",
		Usage: "lifecoind.toml configuration file",
	}
	// DataDirFlag sets the node's data directory.
	DataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the node",
	}
)

var (
	// CLIFlags are usable in a CLI context.
	CLIFlags = []cli.Flag{
		VerbosityFlag,
	}
	// GlobalFlags are usable in a global context.
	GlobalFlags = []cli.Flag{
		ConfigFlag,
		DataDirFlag,
	}
)
