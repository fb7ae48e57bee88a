package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/app"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "import [csv-file]",
		Short: "Run the upload pipeline for a user against the configured database",
		Long: `Import a transaction CSV for an existing account, exactly as an upload
through the API would: the file is merged with the stored history and every
customer of the account is re-segmented.

Examples:
  rfmctl import sales.csv --user bob`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			user, err := a.Users.GetUserByUsername(ctx, username)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var size int64 = -1
			if info, err := f.Stat(); err == nil {
				size = info.Size()
			}
			bar := progressbar.DefaultBytes(size, "importing")

			result, err := a.Segmentation.ProcessUpload(ctx, user.ID, filepath.Base(args[0]), io.TeeReader(f, bar))
			_ = bar.Finish()
			if err != nil {
				return err
			}

			log.Infof("Imported upload %s for %s", result.UploadID, user.Username)
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully processed %d transactions (%d customers), upload %s\n",
				result.Transactions, result.Customers, result.UploadID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "", "username of the owning account")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func resegmentCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "resegment",
		Short: "Re-score the stored history of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			user, err := a.Users.GetUserByUsername(ctx, username)
			if err != nil {
				return err
			}

			n, err := a.Segmentation.Resegment(ctx, user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Re-segmented %d customers for %s\n", n, user.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "", "username of the owning account")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
