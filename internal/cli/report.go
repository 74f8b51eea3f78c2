package cli

import (
	stderrors "errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"swing-trader/internal/digest"
	"swing-trader/internal/errors"
	"swing-trader/internal/snapshot"
	"swing-trader/pkg/utils"
)

// addReportCommands adds snapshot and digest commands.
func addReportCommands(rootCmd *cobra.Command, app *App) {
	snap := &cobra.Command{
		Use:   "snapshot",
		Short: "JSON snapshot export",
		Long:  "Export the full workbook state as JSON tabs and check snapshot freshness.",
	}
	snap.AddCommand(newSnapshotExportCmd(app))
	snap.AddCommand(newSnapshotCheckCmd(app))
	rootCmd.AddCommand(snap)

	dig := &cobra.Command{
		Use:   "digest",
		Short: "Daily watchlist digest",
		Long:  "Build the daily watchlist digest and post it to GitHub or a webhook.",
	}
	dig.AddCommand(newDigestBuildCmd(app))
	dig.AddCommand(newDigestPostCmd(app))
	rootCmd.AddCommand(dig)
}

func (a *App) snapshotExporter() (*snapshot.Exporter, error) {
	s, err := a.requireStore()
	if err != nil {
		return nil, err
	}
	return snapshot.NewExporter(s, a.Config.Snapshot.Dir, a.Config.Risk.SectorCap), nil
}

func newSnapshotExportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export all tabs to the snapshot directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			exporter, err := app.snapshotExporter()
			if err != nil {
				return err
			}
			dir, err := exporter.Export(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"dir": dir})
			}
			output.Success("Snapshot written to %s", dir)
			return nil
		},
	}
}

func newSnapshotCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check snapshot freshness",
		Long: `Compare the latest snapshot manifest against the staleness budget.
Exits non-zero when the snapshot is stale or missing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			exporter, err := app.snapshotExporter()
			if err != nil {
				return err
			}

			dir := exporter.LatestDir(time.Now())
			staleAfter := time.Duration(app.Config.Snapshot.StaleMinutes) * time.Minute
			fresh, err := snapshot.CheckFreshness(dir, staleAfter, time.Now())
			if err != nil && !stderrors.Is(err, errors.ErrSnapshotStale) {
				return err
			}

			if output.IsJSON() {
				if jsonErr := output.JSON(map[string]interface{}{
					"snapshot_at": fresh.SnapshotAt,
					"age_minutes": int(fresh.Age.Minutes()),
					"stale":       fresh.Stale,
				}); jsonErr != nil {
					return jsonErr
				}
				return err
			}

			if fresh.Stale {
				output.Error("Snapshot is STALE: written %s, %d min ago (budget %d min)",
					FormatDateTime(fresh.SnapshotAt), int(fresh.Age.Minutes()), app.Config.Snapshot.StaleMinutes)
				return err
			}
			output.Success("Snapshot is fresh: written %s, %d min ago",
				FormatDateTime(fresh.SnapshotAt), int(fresh.Age.Minutes()))
			return nil
		},
	}
}

// digestBuilder wires the digest builder with the snapshot staleness
// source.
func (a *App) digestBuilder() (*digest.Builder, error) {
	s, err := a.requireStore()
	if err != nil {
		return nil, err
	}
	builder := digest.NewBuilder(s, a.Config.Digest, a.Config.Risk.SectorCap, a.Config.Snapshot.StaleMinutes)
	exporter := snapshot.NewExporter(s, a.Config.Snapshot.Dir, a.Config.Risk.SectorCap)
	builder.SetSnapshotTimeFn(func() (time.Time, error) {
		m, err := snapshot.ReadManifest(exporter.LatestDir(time.Now()))
		if err != nil {
			return time.Time{}, err
		}
		return time.Parse(time.RFC3339, m.SnapshotISO)
	})
	return builder, nil
}

func newDigestBuildCmd(app *App) *cobra.Command {
	var outFile string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render the digest markdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			builder, err := app.digestBuilder()
			if err != nil {
				return err
			}
			body, err := builder.Build(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if outFile != "" {
				if err := os.WriteFile(outFile, []byte(body), 0o644); err != nil {
					return err
				}
				output.Success("Digest written to %s", outFile)
				return nil
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"body": body})
			}
			output.Print("%s", body)
			return nil
		},
	}
	cmd.Flags().StringVar(&outFile, "out", "", "write the digest to a file instead of stdout")
	return cmd
}

func newDigestPostCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "post",
		Short: "Build and publish the digest",
		Long: `Build the digest and post it as a comment on the rolling GitHub
issue, plus the optional webhook.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			builder, err := app.digestBuilder()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			body, err := builder.Build(ctx, time.Now())
			if err != nil {
				return err
			}

			publisher := digest.NewPublisher(digest.PublisherOptions{
				Repo:       app.Config.Digest.GitHubRepo,
				Token:      app.Config.Credentials.GitHub.Token,
				IssueTitle: app.Config.Digest.IssueTitle,
				Labels:     app.Config.Digest.IssueLabels,
				WebhookURL: app.Config.Digest.WebhookURL,
			})
			// GitHub and webhooks flake, retry before giving up.
			if err := utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
				return publisher.Publish(ctx, body)
			}); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]bool{"published": true})
			}
			output.Success("Digest published")
			return nil
		},
	}
}
