// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/kbconvert/internal/cleanup"
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Inspect image attachments in a Markdown vault",
}

var imagesUnusedCmd = &cobra.Command{
	Use:   "unused [dir]",
	Short: "List (and optionally move) images no Markdown file references",
	Long: `Unused walks a vault, collects every image referenced by a Markdown file
(![[x.png]] embeds and ![](x.png) links), and lists image files that nothing
references. With --move they are moved into a separate folder instead of
being deleted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImagesUnused,
}

func runImagesUnused(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	move, _ := cmd.Flags().GetBool("move")
	dest, _ := cmd.Flags().GetString("dest")

	unused, err := cleanup.UnusedImages(root)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, path := range unused {
		fmt.Fprintln(out, path)
	}
	fmt.Fprintf(out, "\nunused images: %d\n", len(unused))

	if !move || len(unused) == 0 {
		return nil
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(root, dest)
	}
	moved, err := cleanup.MoveImages(unused, dest)
	logger.Info("moved unused images", zap.Int("count", len(moved)), zap.String("dest", dest))
	return err
}

func init() {
	imagesUnusedCmd.Flags().Bool("move", false, "move unused images out of the vault folders")
	imagesUnusedCmd.Flags().String("dest", "attachments_not_referenced", "destination folder for --move, relative to dir")

	imagesCmd.AddCommand(imagesUnusedCmd)
	rootCmd.AddCommand(imagesCmd)
}
