package entity

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so definition files can spell estimated
// durations the Go way ("72h", "90m").
type Duration time.Duration

// UnmarshalYAML decodes a duration string; empty means no estimate.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Approval gate required before a step's work is accepted.
const (
	ApprovalNone           = "NONE"
	ApprovalSectionHead    = "SECTION_HEAD"
	ApprovalDepartmentHead = "DEPARTMENT_HEAD"
)

// Form field types a step may declare.
const (
	FieldText   = "text"
	FieldEmail  = "email"
	FieldNumber = "number"
	FieldPhone  = "phone"
	FieldDate   = "date"
)

// FormField describes one data-entry field of a workflow step.
type FormField struct {
	Key      string `json:"key" yaml:"key"`
	Label    string `json:"label" yaml:"label"`
	Type     string `json:"type" yaml:"type"`
	Required bool   `json:"required" yaml:"required"`
}

// WorkflowStep is one unit of work within a workflow definition. Steps are
// authored externally and immutable once loaded.
type WorkflowStep struct {
	ID                  string        `json:"id" yaml:"id"`
	Name                string        `json:"name" yaml:"name"`
	Description         string        `json:"description,omitempty" yaml:"description"`
	SectionID           string        `json:"section_id,omitempty" yaml:"section_id"`
	OfficeID            string        `json:"office_id" yaml:"office_id"`
	FormFields          []FormField   `json:"form_fields,omitempty" yaml:"form_fields"`
	RequiredDocuments   []string      `json:"required_documents,omitempty" yaml:"required_documents"`
	ApprovalType        string        `json:"approval_type" yaml:"approval_type"`
	AssignableOfficeIDs []string      `json:"assignable_office_ids,omitempty" yaml:"assignable_office_ids"`
	EstimatedDuration   Duration      `json:"estimated_duration,omitempty" yaml:"estimated_duration"`
	Parallel            bool          `json:"parallel,omitempty" yaml:"parallel"`
}

// NeedsDepartmentApproval reports whether the step suspends in
// PENDING_APPROVAL after submission. Any other approval type (including
// NONE) routes through section-head review.
func (s *WorkflowStep) NeedsDepartmentApproval() bool {
	return s.ApprovalType == ApprovalDepartmentHead
}

// FirstAssignableOffice returns the step's preferred owning office: the
// first assignable office id when the list is non-empty, otherwise "".
func (s *WorkflowStep) FirstAssignableOffice() string {
	if len(s.AssignableOfficeIDs) > 0 {
		return s.AssignableOfficeIDs[0]
	}
	return ""
}

// WorkflowDefinition is an authored, ordered template of steps for one
// subject/category of citizen request.
type WorkflowDefinition struct {
	ID        string         `json:"id" yaml:"id"`
	Name      string         `json:"name" yaml:"name"`
	SubjectID string         `json:"subject_id" yaml:"subject_id"`
	Version   int            `json:"version" yaml:"version"`
	Active    bool           `json:"active" yaml:"active"`
	Steps     []WorkflowStep `json:"steps" yaml:"steps"`
}

// Validate checks the definition invariants: at least one step and unique
// step ids.
func (d *WorkflowDefinition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("workflow definition has no id")
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("workflow %s has no steps", d.ID)
	}
	seen := make(map[string]bool, len(d.Steps))
	for _, step := range d.Steps {
		if step.ID == "" {
			return fmt.Errorf("workflow %s has a step with no id", d.ID)
		}
		if seen[step.ID] {
			return fmt.Errorf("workflow %s has duplicate step id %s", d.ID, step.ID)
		}
		seen[step.ID] = true
	}
	return nil
}

// FirstStep returns the first step of the ordered sequence.
func (d *WorkflowDefinition) FirstStep() *WorkflowStep {
	return &d.Steps[0]
}

// Step returns the step with the given id, or nil.
func (d *WorkflowDefinition) Step(stepID string) *WorkflowStep {
	for i := range d.Steps {
		if d.Steps[i].ID == stepID {
			return &d.Steps[i]
		}
	}
	return nil
}

// StepIndex returns the position of stepID in the sequence, or -1.
func (d *WorkflowDefinition) StepIndex(stepID string) int {
	for i := range d.Steps {
		if d.Steps[i].ID == stepID {
			return i
		}
	}
	return -1
}

// NextStepAfter returns the step following stepID, or nil when stepID is the
// last step or unknown.
func (d *WorkflowDefinition) NextStepAfter(stepID string) *WorkflowStep {
	idx := d.StepIndex(stepID)
	if idx < 0 || idx+1 >= len(d.Steps) {
		return nil
	}
	return &d.Steps[idx+1]
}
