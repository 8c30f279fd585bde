package entity

import (
	"fmt"
	"strings"

	"github.com/civicdesk/caseflow/pkg/fieldcheck"
)

// ValidateData checks submitted values against the step's form schema:
// required fields must be present and non-empty, typed fields must match
// their format. All violations are reported together.
func (s *WorkflowStep) ValidateData(data map[string]interface{}) error {
	var problems []string

	for _, field := range s.FormFields {
		value, present := data[field.Key]

		if !present || value == nil || value == "" {
			if field.Required {
				problems = append(problems, fmt.Sprintf("%s is required", field.Key))
			}
			continue
		}

		switch field.Type {
		case FieldEmail:
			if str, ok := value.(string); !ok {
				problems = append(problems, fmt.Sprintf("%s must be a string", field.Key))
			} else if err := fieldcheck.CheckEmail(str); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", field.Key, err))
			}
		case FieldPhone:
			if str, ok := value.(string); !ok {
				problems = append(problems, fmt.Sprintf("%s must be a string", field.Key))
			} else if err := fieldcheck.CheckPhone(str); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", field.Key, err))
			}
		case FieldNumber:
			if _, err := fieldcheck.CoerceNumber(value); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", field.Key, err))
			}
		case FieldDate:
			if str, ok := value.(string); !ok {
				problems = append(problems, fmt.Sprintf("%s must be a string", field.Key))
			} else if err := fieldcheck.CheckDate(str); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", field.Key, err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}
