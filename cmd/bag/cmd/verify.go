package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aweris/bag"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <dir>",
	Short: "Verify every manifest entry against disk",
	Long:  "Recompute the digest of every payload and tag manifest entry and report all mismatches and missing files.",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	dir := args[0]

	opts, err := configuredOptions()
	if err != nil {
		return err
	}
	b, err := bag.Read(dir, opts...)
	if err != nil {
		return err
	}

	if err := b.Verify(context.Background()); err != nil {
		return fmt.Errorf("verification failed:\n%w", err)
	}

	fmt.Fprintln(os.Stderr, "OK")
	return nil
}
