package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// ServiceRequest is one citizen's in-flight instance of a workflow
// definition. It is mutated exclusively through the workflow engine; the
// version counter is checked and incremented on every write.
type ServiceRequest struct {
	ID                   int64     `json:"id"`
	Reference            string    `json:"reference"`
	SubjectID            string    `json:"subject_id"`
	WorkflowDefinitionID string    `json:"workflow_definition_id"`
	Title                string    `json:"title"`
	ApplicantUserID      string    `json:"applicant_user_id"`
	ApplicantName        string    `json:"applicant_name"`
	Status               string    `json:"status"`
	CurrentStepID        string    `json:"current_step_id"`
	AssignedToOfficeID   string    `json:"assigned_to_office_id,omitempty"`
	AssignedToUserID     string    `json:"assigned_to_user_id,omitempty"`
	FormData             string    `json:"form_data"`
	Version              int64     `json:"version"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DataBag decodes the accumulated key/value data of the request. An empty
// bag is returned for a request with no data yet.
func (r *ServiceRequest) DataBag() (map[string]interface{}, error) {
	if r.FormData == "" {
		return map[string]interface{}{}, nil
	}
	var bag map[string]interface{}
	if err := json.Unmarshal([]byte(r.FormData), &bag); err != nil {
		return nil, fmt.Errorf("decode request data: %w", err)
	}
	return bag, nil
}

// MergeData merges the submitted values into the request's data bag.
// Existing keys are overwritten; history snapshots keep the prior values.
func (r *ServiceRequest) MergeData(data map[string]interface{}) error {
	bag, err := r.DataBag()
	if err != nil {
		return err
	}
	for k, v := range data {
		bag[k] = v
	}
	encoded, err := json.Marshal(bag)
	if err != nil {
		return fmt.Errorf("encode request data: %w", err)
	}
	r.FormData = string(encoded)
	return nil
}

// MarshalData encodes a data map for storage.
func MarshalData(data map[string]interface{}) (string, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode request data: %w", err)
	}
	return string(encoded), nil
}
