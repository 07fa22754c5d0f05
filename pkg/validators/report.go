package validators

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/recut/pkg/faults"
)

// Output formats for a validation report.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// MarshalFormat renders the report as the given format.
func (r ValidationReport) MarshalFormat(format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, faults.E(faults.KindInternal, "encode validation report", err)
		}

		return out, nil
	case FormatYAML:
		out, err := yaml.Marshal(r)
		if err != nil {
			return nil, faults.E(faults.KindInternal, "encode validation report", err)
		}

		return out, nil
	default:
		return nil, faults.E(faults.KindInput, fmt.Sprintf("unknown report format %q", format), nil)
	}
}
