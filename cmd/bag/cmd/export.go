package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aweris/bag"
)

var exportCmd = &cobra.Command{
	Use:   "export <dir> <archive>",
	Short: "Pack a bag into a tar archive",
	Long:  "Serialize the bag directory as a tar archive. Compression follows the archive extension: .tar.gz/.tgz for gzip, .tar.zst/.tzst for zstd, anything else uncompressed.",
	Args:  cobra.ExactArgs(2),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) (err error) {
	dir, archive := args[0], args[1]

	b, err := bag.Read(dir)
	if err != nil {
		return err
	}

	f, err := os.Create(archive)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := b.Export(f, bag.CompressionByExtension(archive)); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Wrote %s\n", archive)
	return nil
}
