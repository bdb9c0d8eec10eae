package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"devicelink/internal/batch"
	"devicelink/internal/export"
	"devicelink/internal/pacing"
	"devicelink/internal/publish"
	"devicelink/internal/tabular"
	"devicelink/pkg/requestcontext"
)

type runFunc func(r *batch.Runner, ctx context.Context, in *tabular.Table) (*batch.Report, error)

func newResolveCommand(a *app) *cobra.Command {
	return newBatchCommand(a, (*batch.Runner).Resolve, &cobra.Command{
		Use:   "resolve --in <file> --out <file>",
		Short: "Resolve formatted identifiers against MDALL",
		Long: `Reads device_identifier and cat_num_cleaned (Manufacturer optional) and
writes one result row per input row with the device name, licence number and
the cascade stage that matched.`,
	})
}

func newRunCommand(a *app) *cobra.Command {
	return newBatchCommand(a, (*batch.Runner).Run, &cobra.Command{
		Use:   "run --in <file> --out <file>",
		Short: "Format and resolve a registry extract in one pass",
		Long: `Reads cat_num_cleaned and Manufacturer, derives device_identifier and
resolves every row. The output matches the resolve command.`,
	})
}

func newBatchCommand(a *app, run runFunc, cmd *cobra.Command) *cobra.Command {
	cmd.Args = cobra.NoArgs
	cmd.DisableAutoGenTag = true
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		in, out, err := ioPaths(cmd)
		if err != nil {
			return err
		}
		cfg := a.cfg
		if err := applyFlags(cmd.Flags(), &cfg); err != nil {
			return err
		}
		uploadTo, _ := cmd.Flags().GetString(flagUpload)
		var loc export.Location
		if uploadTo != "" {
			if loc, err = export.ParseLocation(uploadTo); err != nil {
				return err
			}
		}

		ctx := cmd.Context()
		table, err := tabular.ReadFile(in)
		if err != nil {
			return err
		}

		d, err := a.buildDeps(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := d.Close(); err != nil {
				a.logger.WarnContext(ctx, "close resources", "error", err)
			}
		}()

		opts := []batch.Option{
			batch.WithPacer(pacing.New(cfg.Batch.Pace)),
			batch.WithWorkers(cfg.Batch.Workers),
			batch.WithLogger(a.logger),
			batch.WithMetrics(d.metrics),
		}
		if len(cfg.Publish.Brokers) > 0 {
			pub, err := publish.NewKafka(cfg.Publish.Brokers, cfg.Publish.Topic, publish.WithLogger(a.logger))
			if err != nil {
				return err
			}
			if err := pub.EnsureTopic(ctx); err != nil {
				a.logger.WarnContext(ctx, "outcome topic check failed", "topic", cfg.Publish.Topic, "error", err)
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
				defer cancel()
				if err := pub.Close(closeCtx); err != nil {
					a.logger.WarnContext(ctx, "flush outcome stream", "error", err)
				}
			}()
			opts = append(opts, batch.WithPublisher(pub))
		}

		report, err := run(batch.NewRunner(d.cascade, opts...), ctx, table)
		if err != nil {
			return fmt.Errorf("%s %s: %w", cmd.Name(), in, err)
		}
		if err := tabular.WriteFile(out, report.Table()); err != nil {
			return err
		}
		a.logger.InfoContext(ctx, "wrote results", "path", out, "rows", len(report.Results))

		report.WriteSummary(cmd.OutOrStdout())

		if uploadTo == "" {
			return nil
		}
		uploader, err := export.NewS3(ctx, cfg.Upload)
		if err != nil {
			return err
		}
		uploadCtx := requestcontext.WithRunID(ctx, report.RunID)
		if err := uploader.UploadFile(uploadCtx, loc, out); err != nil {
			return err
		}
		a.logger.InfoContext(ctx, "uploaded results", "location", loc.String())
		return nil
	}
	registerIOFlags(cmd.Flags())
	registerLookupFlags(cmd.Flags())
	registerBatchFlags(cmd.Flags())
	return cmd
}
