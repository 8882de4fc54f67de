package cmd

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/sellerscope/internal/config"
	"github.com/derickschaefer/sellerscope/internal/render"
	"github.com/derickschaefer/sellerscope/internal/transform"
)

// completionCmd wraps Cobra's built-in shell completion generator.
// Running `sellerscope completion bash` prints a script the user can source.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for sellerscope.

To load completions in the current shell session:

  # bash
  source <(sellerscope completion bash)

  # zsh
  source <(sellerscope completion zsh)

  # fish
  sellerscope completion fish | source

Persist across sessions by adding the source line to your shell profile
(~/.bashrc, ~/.zshrc, ~/.config/fish/completions/sellerscope.fish, etc.).

Besides commands and flags, completion offers --format and --domain values,
graph keys for --key, and saved graph IDs for 'graph show' and 'graph delete'.`,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := cmd.Root()
		switch args[0] {
		case "bash":
			return root.GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return root.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return root.GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		default:
			return cmd.Help()
		}
	},
}

// ─── Dynamic completions ──────────────────────────────────────────────────────

func completeFixed(values []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for _, v := range values {
			if strings.HasPrefix(v, toComplete) {
				out = append(out, v)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}

func domainNames() []string {
	names := make([]string, 0, len(config.Domains))
	for k := range config.Domains {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func graphKeys() []string {
	keys := make([]string, len(transform.KeepaSeries))
	for i, s := range transform.KeepaSeries {
		keys[i] = s.Key
	}
	return keys
}

// completeGraphIDs offers IDs of saved graph snapshots, with the ASIN as
// description. A missing or locked store yields no suggestions.
func completeGraphIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	deps, err := buildDeps()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer deps.Close()
	st, err := deps.RequireStore()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	infos, err := st.ListGraphs()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, g := range infos {
		if strings.HasPrefix(g.ID, toComplete) {
			out = append(out, g.ID+"\t"+g.ASIN)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// registerCompletions attaches the dynamic completions. It runs from Execute
// because the flags it targets are declared in other files' init functions.
func registerCompletions() {
	_ = rootCmd.RegisterFlagCompletionFunc("format", completeFixed(render.Formats))
	_ = rootCmd.RegisterFlagCompletionFunc("domain", completeFixed(domainNames()))
	_ = chartCmd.RegisterFlagCompletionFunc("key", completeFixed(graphKeys()))
	_ = graphTrendCmd.RegisterFlagCompletionFunc("key", completeFixed(graphKeys()))

	graphShowCmd.ValidArgsFunction = completeGraphIDs
	graphDeleteCmd.ValidArgsFunction = completeGraphIDs
}
