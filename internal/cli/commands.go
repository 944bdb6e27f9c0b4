package cli

import (
	"github.com/spf13/cobra"
)

// Options are the flags shared by every sub-command.
type Options struct {
	JobFile   string
	VideoID   string
	RunDate   string
	Storage   string
	Warehouse string
	APIKey    string
}

func newRunCmd(opts *Options) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Harvest, store, infer, provision and load in one run",
		RunE: func(c *cobra.Command, args []string) error {
			return runPipeline(c, opts, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Stop after schema inference; no warehouse calls")
	return cmd
}

func newHarvestCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Fetch all comments of a video and write them to object storage",
		RunE: func(c *cobra.Command, args []string) error {
			return runHarvest(c, opts)
		},
	}
}

func newInferCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "infer",
		Short: "Infer the schema of the stored CSV object from its first row",
		RunE: func(c *cobra.Command, args []string) error {
			return runInfer(c, opts)
		},
	}
}

func newProvisionCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Create the dataset and table for the stored object (idempotent)",
		RunE: func(c *cobra.Command, args []string) error {
			return runProvision(c, opts)
		},
	}
}

func newLoadCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Submit a load job for the stored object and wait for it",
		RunE: func(c *cobra.Command, args []string) error {
			return runLoad(c, opts)
		},
	}
}

func newRunsCmd(opts *Options) *cobra.Command {
	var limit int64

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs from the run ledger",
		RunE: func(c *cobra.Command, args []string) error {
			return runListRuns(c, opts, limit)
		},
	}
	cmd.Flags().Int64VarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}

func newScheduleCmd(opts *Options) *cobra.Command {
	var expr string
	var runNow bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on a cron schedule, skipping overlapping runs",
		RunE: func(c *cobra.Command, args []string) error {
			return runSchedule(c, opts, expr, runNow)
		},
	}
	cmd.Flags().StringVar(&expr, "cron", "", "Cron expression (default SCHEDULE_CRON or @daily)")
	cmd.Flags().BoolVar(&runNow, "now", false, "Also run once immediately")
	return cmd
}
