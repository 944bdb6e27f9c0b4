// Package cli handles the command-line interface logic
// using the Cobra library.
package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	opts := &Options{}

	rootCmd := &cobra.Command{
		Use:   "commentflow",
		Short: "commentflow - YouTube comments to BigQuery",
		Long: `commentflow harvests every top-level comment of a video, writes them as CSV
to object storage, infers a schema from the first row and bulk-loads the file
into a BigQuery table, provisioning the dataset and table on the way.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	f := rootCmd.PersistentFlags()
	f.StringVarP(&opts.JobFile, "job-file", "j", "", "Path to a JSON job file overriding the environment")
	f.StringVarP(&opts.VideoID, "video", "v", "", "Video id to harvest (overrides VIDEO_ID)")
	f.StringVar(&opts.RunDate, "date", "", "Run date as YYYY-MM-DD used in the table name (default today, UTC)")
	f.StringVar(&opts.Storage, "storage", "", "Object store backend: s3 or local")
	f.StringVar(&opts.Warehouse, "warehouse", "", "Warehouse backend: bigquery or memory")
	f.StringVar(&opts.APIKey, "api-key", "", "YouTube Data API key (overrides YOUTUBE_API_KEY)")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newHarvestCmd(opts),
		newInferCmd(opts),
		newProvisionCmd(opts),
		newLoadCmd(opts),
		newRunsCmd(opts),
		newScheduleCmd(opts),
	)

	return rootCmd
}
