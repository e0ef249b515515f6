package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anirudhraja/accelite/compress"
	"github.com/anirudhraja/accelite/envelope"
)

var (
	packOut         string
	packCompression string
	unpackOut       string
)

var packCmd = &cobra.Command{
	Use:   "pack <file>",
	Short: "Wrap a stream in a checksummed, optionally compressed envelope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stream, err := readInput(cmd, args[0])
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		name := cfg.Stream.Compression
		if packCompression != "" {
			name = packCompression
		}
		t, err := compress.ParseType(name)
		if err != nil {
			return err
		}

		frame, err := envelope.Pack(stream, t)
		if err != nil {
			return fmt.Errorf("failed to pack stream: %w", err)
		}

		logger.Debug("packed stream",
			zap.Stringer("compression", t),
			zap.Int("raw_size", len(stream)),
			zap.Int("frame_size", len(frame)))
		return writeOutput(cmd, packOut, frame)
	},
}

var unpackCmd = &cobra.Command{
	Use:   "unpack <file>",
	Short: "Verify an envelope and extract its stream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		frame, err := readInput(cmd, args[0])
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		stream, err := envelope.Unpack(frame)
		if err != nil {
			return fmt.Errorf("failed to unpack: %w", err)
		}
		return writeOutput(cmd, unpackOut, stream)
	},
}

func init() {
	packCmd.Flags().StringVar(&packOut, "out", "", "output file (default standard output)")
	packCmd.Flags().StringVarP(&packCompression, "compression", "c", "", "compression: none, zstd, s2, lz4")
	unpackCmd.Flags().StringVar(&unpackOut, "out", "", "output file (default standard output)")
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(unpackCmd)
}
