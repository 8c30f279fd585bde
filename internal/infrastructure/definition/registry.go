package definition

import (
	"fmt"

	"github.com/civicdesk/caseflow/internal/application/port"
	"github.com/civicdesk/caseflow/internal/domain/entity"
	"github.com/civicdesk/caseflow/internal/domain/workflow"
)

// Registry indexes immutable workflow definitions by id and by subject.
// It is populated once at startup and never mutated afterwards, so lookups
// need no locking.
type Registry struct {
	byID      map[string]*entity.WorkflowDefinition
	bySubject map[string]*entity.WorkflowDefinition
	all       []*entity.WorkflowDefinition
}

// NewRegistry builds a registry from loaded definitions. For each subject
// only the active definition with the highest version is indexed.
func NewRegistry(defs []*entity.WorkflowDefinition) (*Registry, error) {
	r := &Registry{
		byID:      make(map[string]*entity.WorkflowDefinition, len(defs)),
		bySubject: make(map[string]*entity.WorkflowDefinition),
	}

	for _, def := range defs {
		if _, exists := r.byID[def.ID]; exists {
			return nil, fmt.Errorf("duplicate workflow definition id %s", def.ID)
		}
		r.byID[def.ID] = def
		r.all = append(r.all, def)

		if !def.Active {
			continue
		}
		current, ok := r.bySubject[def.SubjectID]
		if !ok || def.Version > current.Version {
			r.bySubject[def.SubjectID] = def
		}
	}

	return r, nil
}

// GetByID returns the definition with the given id.
func (r *Registry) GetByID(id string) (*entity.WorkflowDefinition, error) {
	def, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: workflow definition %s", workflow.ErrNotFound, id)
	}
	return def, nil
}

// GetBySubject returns the active definition for a subject.
func (r *Registry) GetBySubject(subjectID string) (*entity.WorkflowDefinition, error) {
	def, ok := r.bySubject[subjectID]
	if !ok {
		return nil, fmt.Errorf("%w: no active workflow for subject %s", workflow.ErrNotFound, subjectID)
	}
	return def, nil
}

// All returns every loaded definition.
func (r *Registry) All() []*entity.WorkflowDefinition {
	return r.all
}

var _ port.DefinitionRegistry = (*Registry)(nil)
