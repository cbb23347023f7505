package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aweris/bag"
)

var removeCmd = &cobra.Command{
	Use:   "remove <dir> <dest>",
	Short: "Remove a file or fetch reference from a bag",
	Long:  "Remove the payload file at dest (relative to data/) and save the bag. With --tag, dest is a tag file; with --fetch, dest names a fetch destination.",
	Args:  cobra.ExactArgs(2),
	RunE:  runRemove,
}

func init() {
	removeCmd.Flags().Bool("tag", false, "remove a tag file")
	removeCmd.Flags().Bool("fetch", false, "remove a fetch reference")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	dir, dest := args[0], args[1]
	asTag, _ := cmd.Flags().GetBool("tag")
	asFetch, _ := cmd.Flags().GetBool("fetch")
	if asTag && asFetch {
		return fmt.Errorf("--tag and --fetch are mutually exclusive")
	}

	opts, err := configuredOptions()
	if err != nil {
		return err
	}
	b, err := bag.Read(dir, opts...)
	if err != nil {
		return err
	}

	switch {
	case asTag:
		b, err = b.RemoveTagFile(dest)
	case asFetch:
		b, err = b.RemoveFetchByDestination(dest)
	default:
		b, err = b.RemovePayloadFile(dest)
	}
	if err != nil {
		return err
	}

	if _, err := b.Save(context.Background()); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Removed %s\n", dest)
	return nil
}
