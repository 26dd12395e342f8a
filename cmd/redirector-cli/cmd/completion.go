// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"github.com/spf13/cobra"
)

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for redirector-cli.

To load completions:

Bash:
  $ source <(redirector-cli completion bash)
  # To load completions for each session, execute once:
  # Linux:
  $ redirector-cli completion bash > /etc/bash_completion.d/redirector-cli
  # macOS:
  $ redirector-cli completion bash > $(brew --prefix)/etc/bash_completion.d/redirector-cli

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  # To load completions for each session, execute once:
  $ redirector-cli completion zsh > "${fpath[1]}/_redirector-cli"
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ redirector-cli completion fish | source
  # To load completions for each session, execute once:
  $ redirector-cli completion fish > ~/.config/fish/completions/redirector-cli.fish

PowerShell:
  PS> redirector-cli completion powershell | Out-String | Invoke-Expression
  # To load completions for every new session, run:
  PS> redirector-cli completion powershell > redirector-cli.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}
}
