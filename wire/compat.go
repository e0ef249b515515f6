package wire

import (
	"os"
	"sync/atomic"
)

// DecodeOptions controls optional behaviors of the schema-driven codec.
// The zero value skips unknown fields silently and leaves absent fields out
// of the result.
type DecodeOptions struct {
	// StrictUnknownFields: when true, a field index the schema does not
	// declare fails the decode instead of being skipped.
	StrictUnknownFields bool `json:"strict_unknown_fields" yaml:"strict_unknown_fields" mapstructure:"strict_unknown_fields"`

	// PopulateDefaults: when true, non-repeated scalar and enum fields that
	// are absent from the payload appear in the result with their zero
	// value.
	PopulateDefaults bool `json:"populate_defaults" yaml:"populate_defaults" mapstructure:"populate_defaults"`

	// PreserveUnknown: when true, the decoded map carries an "__unknown" key
	// holding the concatenated tag and payload bytes of every unknown field.
	PreserveUnknown bool `json:"preserve_unknown" yaml:"preserve_unknown" mapstructure:"preserve_unknown"`
}

// UnknownFieldsKey is the result key PreserveUnknown stores bytes under.
const UnknownFieldsKey = "__unknown"

var defaultDecodeOptions atomic.Pointer[DecodeOptions]

// SetDecodeOptions sets the process-wide options used by DecodeMessage.
func SetDecodeOptions(o DecodeOptions) { defaultDecodeOptions.Store(&o) }

// GetDecodeOptions returns the process-wide decode options.
func GetDecodeOptions() DecodeOptions { return *defaultDecodeOptions.Load() }

func init() {
	var o DecodeOptions

	// Optional env toggles for test harnesses; defaults remain unchanged if unset.
	o.StrictUnknownFields = envEnabled("ACCELITE_STRICT_UNKNOWN")
	o.PopulateDefaults = envEnabled("ACCELITE_POPULATE_DEFAULTS")
	o.PreserveUnknown = envEnabled("ACCELITE_PRESERVE_UNKNOWN")

	SetDecodeOptions(o)
}

func envEnabled(key string) bool {
	v := os.Getenv(key)
	return v == "1" || v == "true"
}
