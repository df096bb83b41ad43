package cli

import (
	"fmt"

	"github.com/glorpus-work/bucketd/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// NewLookupCmd creates the lookup command.
func NewLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup PACKAGE",
		Short: "Show the installed or available state of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runLookup(args[0])
		},
	}

	return cmd
}

func runLookup(name string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	orch, err := orchestrator.Default(cfg)
	if err != nil {
		return err
	}

	state, err := orch.Lookup(name)
	if err != nil {
		return err
	}

	if state.Installed {
		fmt.Printf("%s %s (installed)\n", state.Name, state.Version)
	} else {
		fmt.Printf("%s %s (available)\n", state.Name, state.Version)
	}
	return nil
}
