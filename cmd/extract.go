package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/menu-cli/internal/pipeline"
)

var (
	extractURL     string
	extractName    string
	extractSlug    string
	extractOut     string
	extractPersist bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract one restaurant's menu into a catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initExtract(ctx, "extract", extractPersist)
		if err != nil {
			return err
		}
		defer env.Close()

		req := pipeline.Request{Restaurant: extractName, Slug: extractSlug, URL: extractURL}
		catalog, updated, err := env.NewPipeline(env.Rules).Run(ctx, req)
		saveRules(updated)
		if err != nil {
			return eris.Wrap(err, "extract")
		}

		if extractPersist {
			if err := env.Store.UpsertCatalog(ctx, catalog); err != nil {
				return eris.Wrap(err, "persist catalog")
			}
		}

		zap.L().Info("extract complete",
			zap.String("slug", catalog.Slug),
			zap.Int("categories", len(catalog.Categories)),
			zap.Int("items", catalog.TotalItems()),
			zap.Bool("persisted", extractPersist),
		)
		return writeOutput(extractOut, catalog)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractURL, "url", "", "menu page URL (required)")
	extractCmd.Flags().StringVar(&extractName, "name", "", "restaurant display name (required)")
	extractCmd.Flags().StringVar(&extractSlug, "slug", "", "catalog identifier (default derived from --name)")
	extractCmd.Flags().StringVar(&extractOut, "out", "", "write catalog JSON to this file instead of stdout")
	extractCmd.Flags().BoolVar(&extractPersist, "persist", false, "upsert the catalog into the configured store")
	_ = extractCmd.MarkFlagRequired("url")
	_ = extractCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(extractCmd)
}
