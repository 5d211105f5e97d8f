package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"extract", "serve", "rules", "catalog"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "menu-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestExtractCommand_Flags(t *testing.T) {
	for _, name := range []string{"url", "name", "slug", "out", "persist"} {
		require.NotNil(t, extractCmd.Flags().Lookup(name), "extract command should have --%s", name)
	}
	assert.Equal(t, "false", extractCmd.Flags().Lookup("persist").DefValue)

	for _, name := range []string{"url", "name"} {
		ann := extractCmd.Flags().Lookup(name).Annotations
		assert.Contains(t, ann, "cobra_annotation_bash_completion_one_required_flag", "--%s should be required", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRulesCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rulesCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["init"])
	assert.True(t, names["show"])
	require.NotNil(t, rulesInitCmd.Flags().Lookup("force"))
}

func TestCatalogCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range catalogCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["get"])
	assert.True(t, names["list"])
	require.NotNil(t, catalogGetCmd.Flags().Lookup("slug"))
}
