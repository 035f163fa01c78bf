// File: cmd/snapshot.go
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/neurodesk/internal/digest"
	"github.com/xkilldash9x/neurodesk/internal/observability"
	"github.com/xkilldash9x/neurodesk/internal/platform"
	"github.com/xkilldash9x/neurodesk/internal/region"
)

// newSnapshotCmd creates the `snapshot` command: sample the desktop once and
// print the rendered context digest. Useful for checking what the agent
// backend would receive without connecting to one.
func newSnapshotCmd() *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Samples the desktop once and prints the context digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			detailRaw, err := flags.GetString("detail")
			if err != nil {
				return err
			}
			detail, err := digest.ParseDetailLevel(detailRaw)
			if err != nil {
				return err
			}
			includeOCR, _ := flags.GetBool("ocr")
			includeVision, _ := flags.GetBool("vision")
			maxItems, _ := flags.GetInt("max-items")

			desk, err := platform.New(cfg.Platform(), logger)
			if err != nil {
				return fmt.Errorf("failed to initialize desktop providers: %w", err)
			}

			exec, err := platform.NewExecutor(cfg.Engine(), logger)
			if err != nil {
				return fmt.Errorf("failed to initialize platform executor: %w", err)
			}

			runCtx, cancel := context.WithCancel(ctx)
			exec.Start(runCtx)
			defer func() {
				cancel()
				exec.Stop()
			}()

			sampler, err := region.NewSampler(desk, exec, cfg.Engine(), logger)
			if err != nil {
				return fmt.Errorf("failed to initialize sampler: %w", err)
			}

			state, err := sampler.Sample(runCtx)
			if err != nil {
				return fmt.Errorf("failed to sample desktop state: %w", err)
			}

			message := digest.NewBuilder(cfg.Digest()).Build(state, digest.Options{
				Detail:              detail,
				IncludeOCR:          includeOCR,
				IncludeVision:       includeVision,
				MaxItemsPerCategory: maxItems,
			})

			fmt.Fprintln(cmd.OutOrStdout(), message)
			return nil
		},
	}

	snapshotCmd.Flags().String("detail", string(digest.DetailStandard), "Digest detail level: minimal, standard, detailed or full.")
	snapshotCmd.Flags().Bool("ocr", true, "Include OCR-derived text blocks in the digest.")
	snapshotCmd.Flags().Bool("vision", false, "Append the vision analysis note.")
	snapshotCmd.Flags().Int("max-items", 0, "Override the per-category listing cap. Zero keeps the configured caps.")
	snapshotCmd.Flags().String("platform-mode", "", "Desktop capability mode, 'simulated' or 'none'. (Overrides config/env)")
	return snapshotCmd
}
