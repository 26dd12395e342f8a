// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// redirector-cli is the command-line tool for inspecting redirector pools.
package main

import (
	"os"

	"github.com/loganrossus/redirector/cmd/redirector-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
