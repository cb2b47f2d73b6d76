package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/gtuazon18/rxn3d-core/internal/build"
)

// NewVersionCommand returns the command to print the rxn3d version.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Return the rxn3d version",
		Long:  "Return the rxn3d version.",
		RunE:  version,
		Args:  cobra.NoArgs,
	}
}

func version(_ *cobra.Command, _ []string) error {
	log.Printf("rxn3d Version %s Date %s commit id %s", build.Version, build.Date, build.Commit)
	return nil
}
