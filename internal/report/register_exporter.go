// Package report builds office registers as xlsx workbooks for the
// paper-oriented side of the administration.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/civicdesk/caseflow/internal/application/port"
	"github.com/civicdesk/caseflow/internal/domain/entity"
)

const registerSheet = "Register"

var registerHeader = []string{
	"Reference", "Title", "Subject", "Status", "Current Step",
	"Applicant", "Claimed By", "Created", "Updated",
}

// RegisterExporter renders the work queue of an office as a spreadsheet.
type RegisterExporter struct {
	requests    port.RequestRepository
	definitions port.DefinitionRegistry
	logger      *zap.Logger
}

// NewRegisterExporter creates a register exporter.
func NewRegisterExporter(requests port.RequestRepository, definitions port.DefinitionRegistry, logger *zap.Logger) *RegisterExporter {
	return &RegisterExporter{
		requests:    requests,
		definitions: definitions,
		logger:      logger,
	}
}

// Export builds the register workbook for one office. The caller owns the
// returned file and must Close it.
func (e *RegisterExporter) Export(ctx context.Context, officeID string) (*excelize.File, error) {
	requests, err := e.requests.ListByOffice(ctx, officeID)
	if err != nil {
		return nil, fmt.Errorf("load office register: %w", err)
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", registerSheet)

	for col, title := range registerHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("header cell: %w", err)
		}
		e.setCell(f, cell, title)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(registerHeader), 1)
		if err := f.SetCellStyle(registerSheet, "A1", last, headerStyle); err != nil {
			e.logger.Warn("failed to style register header", zap.Error(err))
		}
	}

	for i, req := range requests {
		row := i + 2
		values := []interface{}{
			req.Reference,
			req.Title,
			req.SubjectID,
			req.Status,
			e.stepName(req),
			req.ApplicantName,
			req.AssignedToUserID,
			req.CreatedAt.Format(time.RFC3339),
			req.UpdatedAt.Format(time.RFC3339),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("register cell: %w", err)
			}
			e.setCell(f, cell, value)
		}
	}

	if err := f.SetColWidth(registerSheet, "A", "B", 36); err != nil {
		e.logger.Warn("failed to size register columns", zap.Error(err))
	}

	e.logger.Info("office register exported",
		zap.String("office_id", officeID),
		zap.Int("rows", len(requests)))
	return f, nil
}

// stepName resolves the display name of the request's current step, falling
// back to the raw step id when the definition is gone.
func (e *RegisterExporter) stepName(req *entity.ServiceRequest) string {
	def, err := e.definitions.GetByID(req.WorkflowDefinitionID)
	if err != nil {
		return req.CurrentStepID
	}
	step := def.Step(req.CurrentStepID)
	if step == nil {
		return req.CurrentStepID
	}
	return step.Name
}

func (e *RegisterExporter) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(registerSheet, cell, value); err != nil {
		e.logger.Warn("failed to set register cell",
			zap.String("cell", cell),
			zap.Error(err))
	}
}
