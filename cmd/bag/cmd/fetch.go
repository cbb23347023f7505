package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aweris/bag"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <dir> <url> <dest>",
	Short: "Register remote payload content",
	Long:  "Retrieve url once to record its digests, then keep only a fetch reference at dest (relative to data/). Supports http(s) and oci:// digest references.",
	Args:  cobra.ExactArgs(3),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().Int64("size", -1, "expected byte length, enforced when non-negative")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	dir, url, dest := args[0], args[1], args[2]
	size, _ := cmd.Flags().GetInt64("size")

	opts, err := configuredOptions()
	if err != nil {
		return err
	}
	b, err := bag.Read(dir, opts...)
	if err != nil {
		return err
	}

	ctx := context.Background()

	fmt.Fprintf(os.Stderr, "Fetching %s...\n", url)

	b, err = b.AddFetch(ctx, url, size, dest)
	if err != nil {
		return err
	}
	if _, err := b.Save(ctx); err != nil {
		return err
	}

	e, _ := b.Fetch().ByURL(url)
	fmt.Fprintf(os.Stderr, "Done. %d bytes referenced at %s\n", e.Size, e.Path)
	return nil
}
