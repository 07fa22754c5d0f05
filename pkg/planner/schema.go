package planner

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/recut/pkg/faults"
)

//go:embed cutplan-schema.json
var cutPlanSchema []byte

// EmitJSON serializes the plan and validates it against the embedded schema
// before returning. A plan that fails its own schema is a bug, not an input
// problem.
func EmitJSON(plan CutPlan) ([]byte, error) {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal cut plan: %w", err)
	}

	if err := ValidateJSON(data); err != nil {
		return nil, err
	}

	return data, nil
}

// ValidateJSON checks serialized plan bytes against the embedded schema.
func ValidateJSON(data []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(cutPlanSchema)
	planLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, planLoader)
	if err != nil {
		return faults.E(faults.KindInternal, "cut plan schema validation", err)
	}

	if result.Valid() {
		return nil
	}

	var sb strings.Builder

	for i, verr := range result.Errors() {
		if i > 0 {
			sb.WriteString("; ")
		}

		fmt.Fprintf(&sb, "%s: %s", verr.Field(), verr.Description())
	}

	return faults.E(faults.KindInternal,
		fmt.Sprintf("cut plan violates schema: %s", sb.String()), nil)
}
