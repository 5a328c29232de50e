package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cablequest/services/update"
)

// Version is the build version, bumped on release.
const Version = "2.2"

var noUpdateCheck *bool

func init() {
	noUpdateCheck = versionCmd.Flags().Bool("no-update-check", false, "Skip checking GitHub for a newer build.")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the build version and checks for updates.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cablequest v%s\n", Version)
		if *noUpdateCheck {
			return
		}

		release := update.NewChecker(update.Options{}).Check(cmd.Context(), Version)
		if release == nil {
			return
		}
		fmt.Printf("A newer build v%s is available: %s\n", release.Version, release.DownloadUrl)
	},
}
