package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cablequest/lib/serviceutil"
	"cablequest/lib/textutil"
	"cablequest/services/archive"
)

var showDb *string

func init() {
	showDb = showCmd.Flags().String("db", "", "The sqlite archive to read from.")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <cable-id>",
	Short: "Prints one cable from the archive database.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		database := openDatabase(*showDb)
		if database == nil {
			serviceutil.Fatal("no database configured", archive.ErrNoDatabase)
		}
		defer database.Close()

		service := archive.NewService(archive.ServiceOptions{Database: database})
		cable, err := service.StoredCable(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to look up cable", err)
		}

		fmt.Println(cable.CableID)
		if cable.Title != "" {
			fmt.Println(cable.Title)
		}
		if cable.Date != "" {
			fmt.Printf("Date: %s\n", cable.Date)
		}
		if cable.Origin != "" {
			fmt.Printf("Origin: %s\n", cable.Origin)
		}
		fmt.Println()
		fmt.Println(textutil.Reflow(cable.FullText))
	},
}
