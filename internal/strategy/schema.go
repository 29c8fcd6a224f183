package strategy

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// PlanSchema is the JSON Schema for serialized Strategy values. Kept in
// sync with the json tags on the types in this package.
const PlanSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Enhancement Strategy",
  "type": "object",
  "required": ["original_sql", "enhanced_steps", "rollback_strategy", "estimated_duration_seconds", "maintenance_window"],
  "properties": {
    "original_sql": {"type": "string"},
    "enhanced_steps": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["step_number", "description", "sql", "risk_level", "estimated_duration_seconds", "can_rollback", "on_failure"],
        "properties": {
          "step_number": {"type": "integer", "minimum": 1},
          "description": {"type": "string"},
          "sql": {"type": "string"},
          "risk_level": {"enum": ["LOW", "MEDIUM", "HIGH", "CRITICAL"]},
          "estimated_duration_seconds": {"type": "number", "minimum": 0},
          "can_rollback": {"type": "boolean"},
          "dependencies": {"type": "array", "items": {"type": "string"}},
          "validation_queries": {"type": "array", "items": {"type": "string"}},
          "on_failure": {"enum": ["STOP", "ROLLBACK", "CONTINUE"]}
        }
      }
    },
    "rollback_strategy": {
      "type": "object",
      "required": ["can_rollback", "data_backup_required", "rollback_complexity", "rollback_window_seconds"],
      "properties": {
        "can_rollback": {"type": "boolean"},
        "rollback_steps": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["for_step", "description", "sql"],
            "properties": {
              "for_step": {"type": "integer", "minimum": 1},
              "description": {"type": "string"},
              "sql": {"type": "string"}
            }
          }
        },
        "data_backup_required": {"type": "boolean"},
        "rollback_complexity": {"enum": ["SIMPLE", "COMPLEX", "IMPOSSIBLE"]},
        "rollback_window_seconds": {"type": "number", "minimum": 0}
      }
    },
    "pre_flight_checks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["check_name", "query", "expected", "on_failure"],
        "properties": {
          "check_name": {"type": "string"},
          "query": {"type": "string"},
          "expected": {"type": "string"},
          "on_failure": {"enum": ["BLOCK", "WARN"]}
        }
      }
    },
    "post_migration_validation": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["step_name", "query", "condition", "required"],
        "properties": {
          "step_name": {"type": "string"},
          "query": {"type": "string"},
          "condition": {"type": "string"},
          "required": {"type": "boolean"}
        }
      }
    },
    "estimated_duration_seconds": {"type": "number", "minimum": 0},
    "maintenance_window": {
      "type": "object",
      "required": ["recommended", "minimum_duration_seconds", "optimal_duration_seconds"],
      "properties": {
        "recommended": {"type": "boolean"},
        "minimum_duration_seconds": {"type": "number", "minimum": 0},
        "optimal_duration_seconds": {"type": "number", "minimum": 0},
        "considerations": {"type": "array", "items": {"type": "string"}}
      }
    },
    "dependencies": {"type": "array", "items": {"type": "string"}}
  }
}`

// ValidatePlanJSON checks a serialized Strategy against PlanSchema. Returns
// one error listing every violation.
func ValidatePlanJSON(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(PlanSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to run schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("plan does not match schema:\n  %s", strings.Join(problems, "\n  "))
}
