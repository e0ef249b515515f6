package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var decodeType string

var decodeCmd = &cobra.Command{
	Use:   "decode <file>",
	Short: "Decode a stream against a message schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args[0])
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		data, err = maybeUnpack(cmd, data, false)
		if err != nil {
			return err
		}

		a, err := newAccelite(true)
		if err != nil {
			return err
		}
		result, err := a.Parse(data, decodeType)
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", decodeType, err)
		}

		fmt.Fprint(cmd.OutOrStdout(), formatter.Format(result))
		return nil
	},
}

func init() {
	decodeCmd.Flags().StringVarP(&decodeType, "type", "t", "", "message type to decode as")
	_ = decodeCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(decodeCmd)
}
