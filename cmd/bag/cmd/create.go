package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aweris/bag"
)

var createCmd = &cobra.Command{
	Use:   "create <dir>",
	Short: "Turn a directory into a bag",
	Long:  "Move the directory's contents under data/, digest them, and write the tag files.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

func init() {
	createCmd.Flags().StringArray("info", nil, "metadata entry as Key=Value, repeatable")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	dir := args[0]

	opts, err := configuredOptions()
	if err != nil {
		return err
	}
	pairs, _ := cmd.Flags().GetStringArray("info")
	infoOpts, err := infoOptions(pairs)
	if err != nil {
		return err
	}
	opts = append(opts, infoOpts...)

	ctx := context.Background()

	fmt.Fprintf(os.Stderr, "Bagging %s...\n", dir)

	b, err := bag.CreateFromDirectory(ctx, dir, opts...)
	if err != nil {
		return err
	}
	b, err = b.Save(ctx)
	if err != nil {
		return err
	}

	oxum := b.Info().Get(bag.TagPayloadOxum)
	fmt.Fprintf(os.Stderr, "Done. Payload-Oxum: %s\n", oxum[0])
	return nil
}

func infoOptions(pairs []string) ([]bag.Option, error) {
	var opts []bag.Option
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed --info %q, want Key=Value", p)
		}
		opts = append(opts, bag.WithInfo(key, value))
	}
	return opts, nil
}
