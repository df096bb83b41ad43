package cli

import (
	"context"
	"fmt"

	"github.com/glorpus-work/bucketd/pkg/model"
	"github.com/glorpus-work/bucketd/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [PACKAGE...]",
		Short: "Install a bucket of packages",
		Long: `Install one or more packages as a single bucket.
Dependencies are resolved from the configured catalogs and installed first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), args)
		},
	}

	return cmd
}

func runInstall(ctx context.Context, packages []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	orch, err := orchestrator.Default(cfg)
	if err != nil {
		return err
	}

	bucket := model.Bucket(packages)
	done := make(chan model.Result, 1)
	err = orch.InstallBucket(bucket,
		func(status model.Status, percent int) {
			fmt.Printf("\r%s: %3d%%", status, percent)
		},
		func(res model.Result) {
			done <- res
		})
	if err != nil {
		return err
	}

	select {
	case res := <-done:
		fmt.Println()
		if res.Failed() {
			return fmt.Errorf("failed to install bucket %s: %w", res.Bucket, res.Err)
		}
		fmt.Printf("Installed: %s\n", res.Bucket)
		return nil
	case <-ctx.Done():
		fmt.Println()
		return ctx.Err()
	}
}
