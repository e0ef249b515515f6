package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anirudhraja/accelite/envelope"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "List the fields of a stream without a schema",
	Long: `Walk a stream field by field and print each field's index, wire type,
offset and payload size. Packed envelopes are detected and unpacked first;
use "-" to read from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args[0])
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		data, err = maybeUnpack(cmd, data, true)
		if err != nil {
			return err
		}

		a, err := newAccelite(false)
		if err != nil {
			return err
		}
		fields, err := a.Inspect(data)
		if err != nil {
			return fmt.Errorf("failed to inspect stream: %w", err)
		}

		fmt.Fprint(cmd.OutOrStdout(), formatter.Format(fields))
		return nil
	},
}

// maybeUnpack returns the stream inside data when data is an envelope, and
// data itself otherwise. When show is set the envelope header is printed.
func maybeUnpack(cmd *cobra.Command, data []byte, show bool) ([]byte, error) {
	if !bytes.HasPrefix(data, []byte("ACB")) {
		return data, nil
	}

	h, err := envelope.ReadHeader(data)
	if err != nil {
		return nil, err
	}
	stream, err := envelope.Unpack(data)
	if err != nil {
		return nil, err
	}

	logger.Debug("unpacked envelope",
		zap.Stringer("compression", h.Compression),
		zap.Int("raw_size", h.RawSize),
		zap.Int("payload_size", h.PayloadSize))
	if show {
		fmt.Fprint(cmd.OutOrStdout(), formatter.Format(h))
	}
	return stream, nil
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
