package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/menu-cli/internal/store"
)

var (
	catalogSlug string
	catalogOut  string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Read stored catalogs",
}

var catalogGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print a stored catalog as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("catalog"); err != nil {
			return err
		}
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		c, err := st.GetCatalog(ctx, catalogSlug)
		if err != nil {
			return err
		}
		return writeOutput(catalogOut, c)
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored catalogs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("catalog"); err != nil {
			return err
		}
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		list, err := st.ListCatalogs(ctx)
		if err != nil {
			return err
		}
		return printSummaries(cmd.OutOrStdout(), list)
	},
}

func printSummaries(w io.Writer, list []store.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tRESTAURANT\tITEMS\tEXTRACTED\tURL") //nolint:errcheck
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", //nolint:errcheck
			s.Slug, s.Restaurant, s.TotalItems, s.ExtractedAt.UTC().Format("2006-01-02 15:04"), s.MenuURL)
	}
	return tw.Flush()
}

func init() {
	catalogGetCmd.Flags().StringVar(&catalogSlug, "slug", "", "catalog identifier (required)")
	catalogGetCmd.Flags().StringVar(&catalogOut, "out", "", "write catalog JSON to this file instead of stdout")
	_ = catalogGetCmd.MarkFlagRequired("slug")
	catalogCmd.AddCommand(catalogGetCmd, catalogListCmd)
	rootCmd.AddCommand(catalogCmd)
}
