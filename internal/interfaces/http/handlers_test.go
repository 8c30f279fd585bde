package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicdesk/caseflow/internal/application/engine"
	"github.com/civicdesk/caseflow/internal/domain/entity"
	"github.com/civicdesk/caseflow/internal/domain/workflow"
	"github.com/civicdesk/caseflow/internal/report"
)

// Mocks

type mockEngine struct {
	createFunc     func(ctx context.Context, in engine.CreateRequestInput, actor *entity.User) (*entity.ServiceRequest, error)
	claimFunc      func(ctx context.Context, requestID int64, userID string) (*entity.ServiceRequest, error)
	submitFunc     func(ctx context.Context, requestID int64, userID string, data map[string]interface{}, docs []entity.UploadedDocument) (*entity.ServiceRequest, error)
	approveFunc    func(ctx context.Context, requestID int64, userID, comment, nextOfficeID string) (*entity.ServiceRequest, error)
	rejectFunc     func(ctx context.Context, requestID int64, userID, reason string) (*entity.ServiceRequest, error)
	correctionFunc func(ctx context.Context, requestID int64, userID, targetStepID, comment string) (*entity.ServiceRequest, error)
}

func (m *mockEngine) CreateServiceRequest(ctx context.Context, in engine.CreateRequestInput, actor *entity.User) (*entity.ServiceRequest, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, in, actor)
	}
	return &entity.ServiceRequest{ID: 1, Title: in.Title, Status: "NEW"}, nil
}

func (m *mockEngine) ClaimTask(ctx context.Context, requestID int64, userID string) (*entity.ServiceRequest, error) {
	if m.claimFunc != nil {
		return m.claimFunc(ctx, requestID, userID)
	}
	return &entity.ServiceRequest{ID: requestID, Status: "IN_PROGRESS", AssignedToUserID: userID}, nil
}

func (m *mockEngine) SubmitTaskData(ctx context.Context, requestID int64, userID string, data map[string]interface{}, docs []entity.UploadedDocument) (*entity.ServiceRequest, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, requestID, userID, data, docs)
	}
	return &entity.ServiceRequest{ID: requestID, Status: "PENDING_REVIEW"}, nil
}

func (m *mockEngine) ApproveStep(ctx context.Context, requestID int64, userID, comment, nextOfficeID string) (*entity.ServiceRequest, error) {
	if m.approveFunc != nil {
		return m.approveFunc(ctx, requestID, userID, comment, nextOfficeID)
	}
	return &entity.ServiceRequest{ID: requestID, Status: "COMPLETED"}, nil
}

func (m *mockEngine) RejectStep(ctx context.Context, requestID int64, userID, reason string) (*entity.ServiceRequest, error) {
	if m.rejectFunc != nil {
		return m.rejectFunc(ctx, requestID, userID, reason)
	}
	return &entity.ServiceRequest{ID: requestID, Status: "REJECTED"}, nil
}

func (m *mockEngine) RequestCorrection(ctx context.Context, requestID int64, userID, targetStepID, comment string) (*entity.ServiceRequest, error) {
	if m.correctionFunc != nil {
		return m.correctionFunc(ctx, requestID, userID, targetStepID, comment)
	}
	return &entity.ServiceRequest{ID: requestID, Status: "CORRECTION_REQUESTED"}, nil
}

type mockQueries struct {
	getFunc     func(ctx context.Context, id int64) (*entity.ServiceRequest, error)
	historyFunc func(ctx context.Context, requestID int64) ([]*entity.HistoryEvent, error)
}

func (m *mockQueries) TasksForOffice(ctx context.Context, officeID string) ([]*entity.ServiceRequest, error) {
	return []*entity.ServiceRequest{{ID: 1, AssignedToOfficeID: officeID}}, nil
}

func (m *mockQueries) TasksForUser(ctx context.Context, userID string) ([]*entity.ServiceRequest, error) {
	return []*entity.ServiceRequest{}, nil
}

func (m *mockQueries) GetRequest(ctx context.Context, id int64) (*entity.ServiceRequest, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return &entity.ServiceRequest{ID: id, Status: "NEW"}, nil
}

func (m *mockQueries) GetRequestByReference(ctx context.Context, reference string) (*entity.ServiceRequest, error) {
	return &entity.ServiceRequest{ID: 1, Reference: reference}, nil
}

func (m *mockQueries) History(ctx context.Context, requestID int64) ([]*entity.HistoryEvent, error) {
	if m.historyFunc != nil {
		return m.historyFunc(ctx, requestID)
	}
	return []*entity.HistoryEvent{}, nil
}

func (m *mockQueries) ListRequests(ctx context.Context, limit, offset int) ([]*entity.ServiceRequest, error) {
	return []*entity.ServiceRequest{}, nil
}

type mockRequestRepo struct{}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.ServiceRequest) error { return nil }
func (m *mockRequestRepo) GetByID(ctx context.Context, id int64) (*entity.ServiceRequest, error) {
	return nil, nil
}
func (m *mockRequestRepo) GetByReference(ctx context.Context, reference string) (*entity.ServiceRequest, error) {
	return nil, nil
}
func (m *mockRequestRepo) Update(ctx context.Context, req *entity.ServiceRequest) error { return nil }
func (m *mockRequestRepo) List(ctx context.Context, limit, offset int) ([]*entity.ServiceRequest, error) {
	return nil, nil
}
func (m *mockRequestRepo) ListByOffice(ctx context.Context, officeID string) ([]*entity.ServiceRequest, error) {
	return []*entity.ServiceRequest{{ID: 1, Reference: "ref-1", Title: "Permit", AssignedToOfficeID: officeID}}, nil
}
func (m *mockRequestRepo) ListByUser(ctx context.Context, userID string) ([]*entity.ServiceRequest, error) {
	return nil, nil
}
func (m *mockRequestRepo) ListActive(ctx context.Context) ([]*entity.ServiceRequest, error) {
	return nil, nil
}

type mockRegistry struct{}

func (m *mockRegistry) GetByID(id string) (*entity.WorkflowDefinition, error) {
	return nil, fmt.Errorf("%w: workflow %s", workflow.ErrNotFound, id)
}
func (m *mockRegistry) GetBySubject(subjectID string) (*entity.WorkflowDefinition, error) {
	return nil, fmt.Errorf("%w: subject %s", workflow.ErrNotFound, subjectID)
}
func (m *mockRegistry) All() []*entity.WorkflowDefinition { return nil }

type mockUsers struct {
	users map[string]*entity.User
}

func (m *mockUsers) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return m.users[id], nil
}

type testLogger struct{}

func (l *testLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *testLogger) Error(msg string, keysAndValues ...interface{}) {}

func newTestServer(eng engine.Engine) *Server {
	exporter := report.NewRegisterExporter(&mockRequestRepo{}, &mockRegistry{}, zap.NewNop())
	users := &mockUsers{users: map[string]*entity.User{
		"officer-1": {ID: "officer-1", Name: "Officer One", Role: entity.RoleOfficer, OfficeID: "front-desk"},
	}}
	return NewServer(DefaultServerConfig(), eng, &mockQueries{}, users, exporter, &testLogger{})
}

func doJSON(t *testing.T, s *Server, method, path, actorID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	} else {
		buf.WriteString("{}")
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		req.Header.Set("X-Actor-ID", actorID)
	}

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// Tests

func TestHealthCheck(t *testing.T) {
	s := newTestServer(&mockEngine{})

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

func TestPrincipalMiddleware_MissingHeader(t *testing.T) {
	s := newTestServer(&mockEngine{})

	w := doJSON(t, s, http.MethodPost, "/api/requests/1/claim", "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "X-Actor-ID")
}

func TestPrincipalMiddleware_UnknownActor(t *testing.T) {
	s := newTestServer(&mockEngine{})

	w := doJSON(t, s, http.MethodPost, "/api/requests/1/claim", "ghost", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestClaimTask(t *testing.T) {
	eng := &mockEngine{
		claimFunc: func(ctx context.Context, requestID int64, userID string) (*entity.ServiceRequest, error) {
			assert.Equal(t, int64(7), requestID)
			assert.Equal(t, "officer-1", userID)
			return &entity.ServiceRequest{ID: requestID, Status: "IN_PROGRESS", AssignedToUserID: userID}, nil
		},
	}
	s := newTestServer(eng)

	w := doJSON(t, s, http.MethodPost, "/api/requests/7/claim", "officer-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

func TestClaimTask_InvalidID(t *testing.T) {
	s := newTestServer(&mockEngine{})

	w := doJSON(t, s, http.MethodPost, "/api/requests/abc/claim", "officer-1", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", fmt.Errorf("%w: request 7", workflow.ErrNotFound), http.StatusNotFound},
		{"unauthorized", fmt.Errorf("%w: wrong office", workflow.ErrUnauthorized), http.StatusForbidden},
		{"already claimed", fmt.Errorf("%w: held by x", workflow.ErrAlreadyClaimed), http.StatusConflict},
		{"invalid state", fmt.Errorf("%w: COMPLETED", workflow.ErrInvalidState), http.StatusConflict},
		{"stale version", fmt.Errorf("%w: request 7", workflow.ErrStaleVersion), http.StatusConflict},
		{"validation", fmt.Errorf("%w: email is required", workflow.ErrValidationFailed), http.StatusUnprocessableEntity},
		{"office unresolved", fmt.Errorf("%w: step x", workflow.ErrOfficeUnresolved), http.StatusConflict},
		{"internal", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &mockEngine{
				claimFunc: func(ctx context.Context, requestID int64, userID string) (*entity.ServiceRequest, error) {
					return nil, tt.err
				},
			}
			s := newTestServer(eng)

			w := doJSON(t, s, http.MethodPost, "/api/requests/7/claim", "officer-1", nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			if tt.wantStatus == http.StatusInternalServerError {
				// Internal detail never leaks to clients.
				assert.Equal(t, "internal error", resp.Error)
			}
		})
	}
}

func TestCreateRequest(t *testing.T) {
	eng := &mockEngine{
		createFunc: func(ctx context.Context, in engine.CreateRequestInput, actor *entity.User) (*entity.ServiceRequest, error) {
			assert.Equal(t, "permit", in.SubjectID)
			assert.Equal(t, "officer-1", actor.ID)
			return &entity.ServiceRequest{ID: 1, Title: in.Title, Status: "NEW"}, nil
		},
	}
	s := newTestServer(eng)

	w := doJSON(t, s, http.MethodPost, "/api/requests", "officer-1", map[string]interface{}{
		"subject_id": "permit",
		"title":      "Garage extension",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateRequest_MissingFields(t *testing.T) {
	s := newTestServer(&mockEngine{})

	w := doJSON(t, s, http.MethodPost, "/api/requests", "officer-1", map[string]interface{}{
		"title": "no subject",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitTask(t *testing.T) {
	eng := &mockEngine{
		submitFunc: func(ctx context.Context, requestID int64, userID string, data map[string]interface{}, docs []entity.UploadedDocument) (*entity.ServiceRequest, error) {
			assert.Equal(t, "a@example.gov", data["applicant_email"])
			assert.Len(t, docs, 1)
			return &entity.ServiceRequest{ID: requestID, Status: "PENDING_REVIEW"}, nil
		},
	}
	s := newTestServer(eng)

	w := doJSON(t, s, http.MethodPost, "/api/requests/7/submit", "officer-1", map[string]interface{}{
		"data": map[string]interface{}{"applicant_email": "a@example.gov"},
		"documents": []map[string]interface{}{
			{"id": "doc-1", "name": "identity_card.pdf", "storage_url": "s3://bucket/doc-1"},
		},
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetRequest(t *testing.T) {
	s := newTestServer(&mockEngine{})

	w := doJSON(t, s, http.MethodGet, "/api/requests/5", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

func TestListOfficeTasks(t *testing.T) {
	s := newTestServer(&mockEngine{})

	w := doJSON(t, s, http.MethodGet, "/api/offices/front-desk/tasks", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExportOfficeRegister(t *testing.T) {
	s := newTestServer(&mockEngine{})

	w := doJSON(t, s, http.MethodGet, "/api/offices/front-desk/register", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "register-front-desk")
	assert.NotZero(t, w.Body.Len())
}
