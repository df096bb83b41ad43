package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/glorpus-work/bucketd/pkg/backend/database"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return runList()
		},
	}

	return cmd
}

func runList() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db := database.NewInstalledDatabase()
	if err := db.Load(cfg.InstalledDBPath()); err != nil {
		return fmt.Errorf("failed to load installed-package database: %w", err)
	}

	packages := db.InstalledPackages()
	if len(packages) == 0 {
		fmt.Println("No packages installed.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tINSTALLED")
	for _, pkg := range packages {
		fmt.Fprintf(w, "%s\t%s\t%s\n", pkg.Name, pkg.Version, pkg.InstalledAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
