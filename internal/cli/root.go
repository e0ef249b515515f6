// Package cli implements the accelite command line tool.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anirudhraja/accelite"
	"github.com/anirudhraja/accelite/internal/config"
	"github.com/anirudhraja/accelite/internal/observability"
	"github.com/anirudhraja/accelite/internal/output"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
	schemaPath   string
	logLevel     string

	// Shared state set during PersistentPreRun
	cfg       *config.Config
	logger    *zap.Logger
	formatter output.Formatter
)

// rootCmd is the base command for accelite.
var rootCmd = &cobra.Command{
	Use:   "accelite",
	Short: "Inspect, decode and encode accel binary streams",
	Long: `accelite works with accel streams: compact sequences of tagged fields
preceded by a config byte. Streams can be walked without a schema, decoded
and encoded against .proto schemas, and packed into checksummed,
optionally compressed envelopes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Override config with flags
		if outputFormat != "" {
			cfg.Output = outputFormat
		}
		if schemaPath != "" {
			cfg.SchemaPath = schemaPath
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		logger, err = observability.SetupLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}

		formatter = output.NewFormatter(cfg.Output)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// RootCmd returns the root cobra.Command for testing purposes.
func RootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./accelite.yaml or ~/.accelite/accelite.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format: table, json, yaml (default \"table\")")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "schema .proto file or directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// newAccelite builds a facade from the loaded configuration, loading the
// schema when one is configured.
func newAccelite(needSchema bool) (*accelite.Accelite, error) {
	wc, err := cfg.WireConfig()
	if err != nil {
		return nil, err
	}
	comp, err := cfg.Compression()
	if err != nil {
		return nil, err
	}

	a, err := accelite.New(
		accelite.WithLogger(logger),
		accelite.WithConfig(wc),
		accelite.WithCompression(comp),
		accelite.WithDecodeOptions(cfg.Decode),
	)
	if err != nil {
		return nil, err
	}

	if cfg.SchemaPath == "" {
		if needSchema {
			return nil, fmt.Errorf("a schema is required: pass --schema or set schema_path")
		}
		return a, nil
	}
	if err := a.LoadSchema(cfg.SchemaPath); err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return a, nil
}

// readInput reads path, or standard input when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// writeOutput writes data to path, or to the command output when path is
// empty or "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
