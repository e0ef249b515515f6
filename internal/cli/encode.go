package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	encodeType string
	encodeOut  string
	encodePack bool
)

var encodeCmd = &cobra.Command{
	Use:   "encode <json-file>",
	Short: "Encode a JSON object as a stream using a message schema",
	Long: `Encode a JSON object into an accel stream. Field names may be the schema
names or their lowerCamel JSON names; bytes fields take base64 strings.
The stream is written to --out, or to standard output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(cmd, args[0])
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		var data map[string]any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return fmt.Errorf("failed to parse JSON input: %w", err)
		}

		a, err := newAccelite(true)
		if err != nil {
			return err
		}
		stream, err := a.Marshal(data, encodeType)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", encodeType, err)
		}

		if encodePack {
			if stream, err = a.Pack(stream); err != nil {
				return fmt.Errorf("failed to pack stream: %w", err)
			}
		}

		logger.Debug("encoded stream",
			zap.String("type", encodeType),
			zap.Int("bytes", len(stream)),
			zap.Bool("packed", encodePack))
		return writeOutput(cmd, encodeOut, stream)
	},
}

func init() {
	encodeCmd.Flags().StringVarP(&encodeType, "type", "t", "", "message type to encode as")
	encodeCmd.Flags().StringVar(&encodeOut, "out", "", "output file (default standard output)")
	encodeCmd.Flags().BoolVar(&encodePack, "pack", false, "wrap the stream in an envelope")
	_ = encodeCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(encodeCmd)
}
