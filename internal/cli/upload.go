package cli

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"galleryupload/internal/domain"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Pick images from the gallery and upload each of them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.log.Sync() }()

		images, err := a.session.Pick(ctx)
		if err != nil {
			return err
		}
		a.log.Info("Selected images", zap.Int("count", len(images)))

		if _, err := a.session.Upload(ctx); err != nil {
			return err
		}

		printLogs(cmd.OutOrStdout(), a.session.Logs().Entries())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func printLogs(w io.Writer, entries []domain.UploadLogEntry) {
	for i, e := range entries {
		fmt.Fprintf(w, "%d. %s\n", len(entries)-i, e.Request.Name)
		fmt.Fprintf(w, "   Date: %s\n", e.Timestamp)
		fmt.Fprintf(w, "   Success: %t\n", e.Succeeded())
		fmt.Fprintf(w, "   Attempts: %d\n", e.Attempts)
		if e.Response != nil {
			fmt.Fprintf(w, "   Status: %s\n", e.Response.Status)
		}
		if e.Error != "" {
			fmt.Fprintf(w, "   Error: %s\n", e.Error)
		}
	}
}
