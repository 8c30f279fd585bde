package port

import "github.com/civicdesk/caseflow/internal/domain/entity"

// DefinitionRegistry is the read-only lookup of immutable workflow
// definitions. Authoring happens outside this service.
type DefinitionRegistry interface {
	// GetByID returns the definition with the given id.
	GetByID(id string) (*entity.WorkflowDefinition, error)

	// GetBySubject returns the active definition bound to a subject.
	GetBySubject(subjectID string) (*entity.WorkflowDefinition, error)

	// All returns every loaded definition.
	All() []*entity.WorkflowDefinition
}
