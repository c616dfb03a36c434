package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// sslModes contains valid PostgreSQL SSL modes for shell completion.
var sslModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// completeSSLModes provides shell completion for SSL mode flag values.
func completeSSLModes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var matches []string
	for _, mode := range sslModes {
		if strings.HasPrefix(mode, toComplete) {
			matches = append(matches, mode)
		}
	}
	return matches, cobra.ShellCompDirectiveNoFileComp
}

// completeProfiles offers the profiles that have a parameter file in the
// script root.
func completeProfiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	root, _ := cmd.Flags().GetString("script-root")
	if root == "" {
		root = os.Getenv(envPrefix + "_SCRIPT_ROOT")
	}
	if root == "" {
		root = "."
	}
	return profilesIn(root, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func profilesIn(root, prefix string) []string {
	paths, err := filepath.Glob(filepath.Join(root, "parameter-*.properties"))
	if err != nil {
		return nil
	}
	var out []string
	for _, p := range paths {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(p), "parameter-"), ".properties")
		if name != "" && strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	return out
}
