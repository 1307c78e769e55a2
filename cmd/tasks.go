package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/folio/internal/build"
)

var sassCmd = &cobra.Command{
	Use:   "sass",
	Short: "Compile stylesheets",
	Long: `Compile every non-partial .scss and .sass file into dist/assets/css,
merging identical media queries, adding vendor prefixes for the configured
browsers and embedding a source map.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, build.Styles)
	},
}

var templatesCmd = &cobra.Command{
	Use:     "templates",
	Aliases: []string{"t"},
	Short:   "Render page templates",
	Long: `Render every page template into dist. Templates whose name starts with
the exclude prefix (default "_") are partials and are not rendered on their
own.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, build.Templates)
	},
}

var svgCmd = &cobra.Command{
	Use:   "generate-svg",
	Short: "Build per-page SVG sprites",
	Long: `Merge the SVG files listed for each page in the site document's
sprite-grouping into dist/assets/images/<page>.svg.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, build.Sprites)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every build task once",
	Long: `Build sprites, then templates and stylesheets, once and exit. No server
is started.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, build.All)
	},
}

func init() {
	rootCmd.AddCommand(sassCmd, templatesCmd, svgCmd, runCmd)
}
