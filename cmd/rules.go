package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/menu-cli/internal/rules"
)

var rulesForce bool

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage extraction rules and strategy history",
}

var rulesInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the built-in rules to the configured rules path",
	RunE: func(cmd *cobra.Command, args []string) error {
		return initRules(cfg.Rules.Path, rulesForce)
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective rules as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := rules.Load(cfg.Rules.Path)
		if err != nil {
			return err
		}
		return printRules(cmd.OutOrStdout(), r)
	},
}

func initRules(path string, force bool) error {
	if path == "" {
		return eris.New("rules.path is not set")
	}
	if _, err := os.Stat(path); err == nil && !force {
		return eris.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := rules.Default().Save(path); err != nil {
		return err
	}
	zap.L().Info("rules written", zap.String("path", path))
	return nil
}

func printRules(w io.Writer, r *rules.Rules) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return eris.Wrap(err, "encode rules")
	}
	return enc.Close()
}

func init() {
	rulesInitCmd.Flags().BoolVar(&rulesForce, "force", false, "overwrite an existing rules file")
	rulesCmd.AddCommand(rulesInitCmd, rulesShowCmd)
	rootCmd.AddCommand(rulesCmd)
}
