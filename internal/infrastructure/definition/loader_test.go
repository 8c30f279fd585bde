package definition

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdesk/caseflow/internal/domain/entity"
)

const sampleYAML = `
id: parking-permit-v1
name: Parking Permit
subject_id: parking-permit
version: 1
active: true
steps:
  - id: intake
    name: Intake
    office_id: front-desk
    approval_type: NONE
    estimated_duration: 48h
    form_fields:
      - key: plate_number
        label: Plate Number
        type: text
        required: true
  - id: decision
    name: Decision
    office_id: directorate
    assignable_office_ids: [directorate, mobility-office]
    approval_type: DEPARTMENT_HEAD
`

func writeDefinition(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeDefinition(t, dir, "parking.yaml", sampleYAML)

	def, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "parking-permit-v1", def.ID)
	assert.Equal(t, "parking-permit", def.SubjectID)
	require.Len(t, def.Steps, 2)

	intake := def.Steps[0]
	assert.Equal(t, 48*time.Hour, intake.EstimatedDuration.Std())
	require.Len(t, intake.FormFields, 1)
	assert.True(t, intake.FormFields[0].Required)

	decision := def.Steps[1]
	assert.Equal(t, entity.ApprovalDepartmentHead, decision.ApprovalType)
	assert.Equal(t, "directorate", decision.FirstAssignableOffice())
}

func TestLoader_LoadFile_InvalidDefinition(t *testing.T) {
	dir := t.TempDir()
	path := writeDefinition(t, dir, "broken.yaml", "id: broken-v1\nname: Broken\nsteps: []\n")

	_, err := NewLoader().LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no steps")
}

func TestLoader_LoadAll(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "parking.yaml", sampleYAML)
	writeDefinition(t, dir, "notes.txt", "not a definition")

	sub := filepath.Join(dir, "archive")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeDefinition(t, sub, "parking_v2.yml", sampleYAML)

	defs, err := NewLoader().LoadAll(dir)
	require.NoError(t, err)
	assert.Len(t, defs, 2)
}

func TestRegistry_SubjectResolution(t *testing.T) {
	v1 := &entity.WorkflowDefinition{
		ID: "permit-v1", SubjectID: "permit", Version: 1, Active: true,
		Steps: []entity.WorkflowStep{{ID: "s1", OfficeID: "a"}},
	}
	v2 := &entity.WorkflowDefinition{
		ID: "permit-v2", SubjectID: "permit", Version: 2, Active: true,
		Steps: []entity.WorkflowStep{{ID: "s1", OfficeID: "a"}},
	}
	retired := &entity.WorkflowDefinition{
		ID: "permit-v3", SubjectID: "permit", Version: 3, Active: false,
		Steps: []entity.WorkflowStep{{ID: "s1", OfficeID: "a"}},
	}

	r, err := NewRegistry([]*entity.WorkflowDefinition{v1, v2, retired})
	require.NoError(t, err)

	// Highest active version wins; inactive definitions stay reachable by id.
	bySubject, err := r.GetBySubject("permit")
	require.NoError(t, err)
	assert.Equal(t, "permit-v2", bySubject.ID)

	byID, err := r.GetByID("permit-v3")
	require.NoError(t, err)
	assert.False(t, byID.Active)

	assert.Len(t, r.All(), 3)
}

func TestRegistry_DuplicateID(t *testing.T) {
	def := &entity.WorkflowDefinition{
		ID: "dup-v1", SubjectID: "dup", Version: 1, Active: true,
		Steps: []entity.WorkflowStep{{ID: "s1", OfficeID: "a"}},
	}

	_, err := NewRegistry([]*entity.WorkflowDefinition{def, def})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestRegistry_Misses(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)

	_, err = r.GetByID("ghost")
	assert.Error(t, err)
	_, err = r.GetBySubject("ghost")
	assert.Error(t, err)
}
