package cmd

import (
	"github.com/spf13/cobra"

	"github.com/derickschaefer/covidchart/internal/render"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "List the metrics that can be charted",
	Long: `List the CSV columns accepted by --metric. The default metric is
marked with *.`,
	Example: `  covidchart metrics
  covidchart metrics --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return render.Metrics(cmd.OutOrStdout(), resolveFormat(cfg.Format))
	},
}

func init() {
	rootCmd.AddCommand(metricsCmd)
}
