package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aweris/bag"
)

var showCmd = &cobra.Command{
	Use:   "show <dir>",
	Short: "Show bag metadata and contents",
	Long:  "Print the declaration, metadata, payload entries, and fetch references of a bag.",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	b, err := bag.Read(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Version:    %s\n", b.Version())
	fmt.Printf("Encoding:   %s\n", b.Encoding())
	fmt.Printf("Algorithms: %v (payload), %v (tag)\n", b.PayloadAlgorithms(), b.TagAlgorithms())
	fmt.Println()

	info := b.Info()
	for _, key := range info.Keys() {
		for _, value := range info.Get(key) {
			fmt.Printf("%s: %s\n", key, value)
		}
	}

	algorithms := b.PayloadAlgorithms()
	if len(algorithms) > 0 {
		m, _ := b.PayloadManifest(algorithms[0])
		fmt.Println()
		for _, path := range m.Paths() {
			digest, _ := m.Digest(path)
			fmt.Printf("%s\t%s\n", path, digest)
		}
	}

	if b.Fetch().Len() > 0 {
		fmt.Println()
		for e := range b.Fetch().Entries() {
			size := "?"
			if e.Size >= 0 {
				size = fmt.Sprint(e.Size)
			}
			fmt.Printf("fetch %s (%s bytes) -> %s\n", e.URL, size, e.Path)
		}
	}

	return nil
}
