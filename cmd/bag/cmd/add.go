package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aweris/bag"
)

var addCmd = &cobra.Command{
	Use:   "add <dir> <dest> <src>",
	Short: "Add a file or directory to a bag",
	Long:  "Stage src as payload content at dest (relative to data/) and save the bag. With --tag, dest is a tag file relative to the bag root.",
	Args:  cobra.ExactArgs(3),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().Bool("tag", false, "add as a tag file instead of payload")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	dir, dest, src := args[0], args[1], args[2]
	asTag, _ := cmd.Flags().GetBool("tag")

	opts, err := configuredOptions()
	if err != nil {
		return err
	}
	b, err := bag.Read(dir, opts...)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if asTag {
		b, err = b.AddTagFile(ctx, dest, src)
	} else {
		b, err = b.AddFile(ctx, dest, src)
	}
	if err != nil {
		return err
	}

	if _, err := b.Save(ctx); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Added %s\n", dest)
	return nil
}
