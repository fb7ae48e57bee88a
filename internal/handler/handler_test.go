package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/auth"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/model"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/rfm"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Test errors
var (
	ErrMockDB      = errors.New("connection refused")
	ErrMockStorage = errors.New("pq: relation does not exist")
)

// MockSegmentationService implements service.SegmentationService for testing
type MockSegmentationService struct {
	ProcessUploadFunc func(ctx context.Context, userID, fileName string, r io.Reader) (*service.UploadResult, error)
	ResegmentFunc     func(ctx context.Context, userID string) (int, error)
	DeleteUploadFunc  func(ctx context.Context, userID, uploadID string) error
	DeleteAllDataFunc func(ctx context.Context, userID string) error
	ListUploadsFunc   func(ctx context.Context, userID string) (*model.UploadHistoryResponse, error)
	ListSegmentsFunc  func(ctx context.Context, userID string, filter service.SegmentFilter) (*model.SegmentListResponse, error)
	SummaryFunc       func(ctx context.Context, userID string) (*model.SegmentSummaryResponse, error)
}

func (m *MockSegmentationService) ProcessUpload(ctx context.Context, userID, fileName string, r io.Reader) (*service.UploadResult, error) {
	if m.ProcessUploadFunc != nil {
		return m.ProcessUploadFunc(ctx, userID, fileName, r)
	}
	return &service.UploadResult{}, nil
}

func (m *MockSegmentationService) Resegment(ctx context.Context, userID string) (int, error) {
	if m.ResegmentFunc != nil {
		return m.ResegmentFunc(ctx, userID)
	}
	return 0, nil
}

func (m *MockSegmentationService) DeleteUpload(ctx context.Context, userID, uploadID string) error {
	if m.DeleteUploadFunc != nil {
		return m.DeleteUploadFunc(ctx, userID, uploadID)
	}
	return nil
}

func (m *MockSegmentationService) DeleteAllData(ctx context.Context, userID string) error {
	if m.DeleteAllDataFunc != nil {
		return m.DeleteAllDataFunc(ctx, userID)
	}
	return nil
}

func (m *MockSegmentationService) ListUploads(ctx context.Context, userID string) (*model.UploadHistoryResponse, error) {
	if m.ListUploadsFunc != nil {
		return m.ListUploadsFunc(ctx, userID)
	}
	return &model.UploadHistoryResponse{Uploads: []model.UploadHistory{}}, nil
}

func (m *MockSegmentationService) ListSegments(ctx context.Context, userID string, filter service.SegmentFilter) (*model.SegmentListResponse, error) {
	if m.ListSegmentsFunc != nil {
		return m.ListSegmentsFunc(ctx, userID, filter)
	}
	return &model.SegmentListResponse{Segments: []model.CustomerSegment{}}, nil
}

func (m *MockSegmentationService) Summary(ctx context.Context, userID string) (*model.SegmentSummaryResponse, error) {
	if m.SummaryFunc != nil {
		return m.SummaryFunc(ctx, userID)
	}
	return &model.SegmentSummaryResponse{}, nil
}

// MockAuthenticator implements Authenticator for testing
type MockAuthenticator struct {
	LoginFunc    func(ctx context.Context, username, password string) (*model.LoginResponse, error)
	RegisterFunc func(ctx context.Context, req *model.RegisterRequest) (*model.LoginResponse, error)
}

func (m *MockAuthenticator) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, username, password)
	}
	return nil, service.ErrInvalidCredentials
}

func (m *MockAuthenticator) Register(ctx context.Context, req *model.RegisterRequest) (*model.LoginResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, req)
	}
	return &model.LoginResponse{}, nil
}

// MockPinger implements Pinger for testing
type MockPinger struct {
	Err error
}

func (m *MockPinger) PingContext(ctx context.Context) error { return m.Err }

type testServer struct {
	router       *gin.Engine
	tokens       *auth.Service
	segmentation *MockSegmentationService
	auth         *MockAuthenticator
	pinger       *MockPinger
}

func newTestServer(t *testing.T, maxBytes int64) *testServer {
	t.Helper()

	authz, err := service.NewAuthorizationService(context.Background(), nil)
	require.NoError(t, err)

	s := &testServer{
		tokens:       auth.NewService("test-secret", time.Hour),
		segmentation: &MockSegmentationService{},
		auth:         &MockAuthenticator{},
		pinger:       &MockPinger{},
	}
	s.router = NewRouter(Handlers{
		Auth:    NewAuthHandler(s.auth),
		Upload:  NewUploadHandler(s.segmentation, maxBytes),
		History: NewHistoryHandler(s.segmentation),
		Segment: NewSegmentHandler(s.segmentation),
		Debug:   NewDebugHandler(authz),
		Health:  NewHealthHandler(s.pinger),
		Tokens:  s.tokens,
		Authz:   authz,
	})
	return s
}

func (s *testServer) token(t *testing.T, role string) string {
	t.Helper()
	token, _, err := s.tokens.IssueToken(&model.User{ID: "user-" + role, Username: role, Role: role})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestUpload_Success(t *testing.T) {
	s := newTestServer(t, 1<<20)
	const csv = "customer_id,transaction_date,transaction_amount\nC1,2024-06-01,10\n"

	var gotUser, gotFile, gotContent string
	s.segmentation.ProcessUploadFunc = func(ctx context.Context, userID, fileName string, r io.Reader) (*service.UploadResult, error) {
		content, err := io.ReadAll(r)
		require.NoError(t, err)
		gotUser, gotFile, gotContent = userID, fileName, string(content)
		return &service.UploadResult{UploadID: "up-1", Transactions: 4, Customers: 3}, nil
	}

	w := s.do(uploadRequest(t, "file", "sales.csv", csv), s.token(t, model.RoleAnalyst))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true,"message":"Successfully processed 4 transactions","customers":3,"upload_id":"up-1"}`, w.Body.String())
	assert.Equal(t, "user-analyst", gotUser)
	assert.Equal(t, "sales.csv", gotFile)
	assert.Equal(t, csv, gotContent)
}

func TestUpload_RequiresAuthentication(t *testing.T) {
	s := newTestServer(t, 1<<20)
	called := false
	s.segmentation.ProcessUploadFunc = func(context.Context, string, string, io.Reader) (*service.UploadResult, error) {
		called = true
		return &service.UploadResult{}, nil
	}

	w := s.do(uploadRequest(t, "file", "a.csv", "x"), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)

	w = s.do(uploadRequest(t, "file", "a.csv", "x"), "forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
}

func TestUpload_ViewerIsForbidden(t *testing.T) {
	s := newTestServer(t, 1<<20)
	w := s.do(uploadRequest(t, "file", "a.csv", "x"), s.token(t, model.RoleViewer))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpload_MissingFile(t *testing.T) {
	s := newTestServer(t, 1<<20)
	w := s.do(uploadRequest(t, "attachment", "a.csv", "x"), s.token(t, model.RoleAnalyst))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], `"file"`)
}

func TestUpload_TooLarge(t *testing.T) {
	s := newTestServer(t, 64)
	content := strings.Repeat("C1,2024-06-01,10\n", 100)
	w := s.do(uploadRequest(t, "file", "big.csv", content), s.token(t, model.RoleAdmin))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUpload_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "missing columns",
			err:     &rfm.MissingColumnsError{Columns: []string{"customer_id"}},
			status:  http.StatusBadRequest,
			message: "Missing required columns: customer_id",
		},
		{
			name:    "empty file",
			err:     rfm.ErrEmptyFile,
			status:  http.StatusBadRequest,
			message: "CSV file is empty or invalid",
		},
		{
			name:    "no valid rows",
			err:     rfm.ErrNoValidTransactions,
			status:  http.StatusBadRequest,
			message: "No valid transactions found in CSV",
		},
		{
			name:    "storage",
			err:     &service.StorageError{Op: "store transactions", Err: ErrMockStorage},
			status:  http.StatusInternalServerError,
			message: "Failed to save data, please try again later",
		},
		{
			name:    "unexpected",
			err:     ErrMockDB,
			status:  http.StatusInternalServerError,
			message: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, 1<<20)
			s.segmentation.ProcessUploadFunc = func(context.Context, string, string, io.Reader) (*service.UploadResult, error) {
				return nil, tt.err
			}

			w := s.do(uploadRequest(t, "file", "a.csv", "x"), s.token(t, model.RoleAnalyst))
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, decode(t, w)["error"])
			assert.NotContains(t, w.Body.String(), "pq:")
		})
	}
}

func TestListUploads(t *testing.T) {
	s := newTestServer(t, 1<<20)
	s.segmentation.ListUploadsFunc = func(ctx context.Context, userID string) (*model.UploadHistoryResponse, error) {
		return &model.UploadHistoryResponse{
			Uploads:         []model.UploadHistory{{ID: "up-1", UserID: userID, FileName: "a.csv"}},
			HasOrphanedData: true,
		}, nil
	}

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/uploads", nil), s.token(t, model.RoleViewer))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["has_orphaned_data"])
	assert.Len(t, body["uploads"], 1)
}

func TestDeleteUpload(t *testing.T) {
	s := newTestServer(t, 1<<20)
	var gotID string
	s.segmentation.DeleteUploadFunc = func(ctx context.Context, userID, uploadID string) error {
		gotID = uploadID
		if uploadID == "missing" {
			return service.ErrUploadNotFound
		}
		return nil
	}
	analyst := s.token(t, model.RoleAnalyst)

	w := s.do(httptest.NewRequest(http.MethodDelete, "/api/uploads/up-1", nil), analyst)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "up-1", gotID)

	w = s.do(httptest.NewRequest(http.MethodDelete, "/api/uploads/missing", nil), analyst)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(httptest.NewRequest(http.MethodDelete, "/api/uploads/up-1", nil), s.token(t, model.RoleViewer))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteAllData(t *testing.T) {
	s := newTestServer(t, 1<<20)
	var gotUser string
	s.segmentation.DeleteAllDataFunc = func(ctx context.Context, userID string) error {
		gotUser = userID
		return nil
	}

	w := s.do(httptest.NewRequest(http.MethodDelete, "/api/data", nil), s.token(t, model.RoleAdmin))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-admin", gotUser)
}

func TestListSegments(t *testing.T) {
	s := newTestServer(t, 1<<20)
	var got service.SegmentFilter
	s.segmentation.ListSegmentsFunc = func(ctx context.Context, userID string, filter service.SegmentFilter) (*model.SegmentListResponse, error) {
		got = filter
		return &model.SegmentListResponse{Segments: []model.CustomerSegment{}, Page: 2, Limit: 10}, nil
	}
	viewer := s.token(t, model.RoleViewer)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/segments?segment=At+Risk&page=2&limit=10", nil), viewer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.SegmentFilter{Segment: "At Risk", Page: 2, Limit: 10}, got)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/segments?limit=100000&page=abc", nil), viewer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.SegmentFilter{Limit: maxSegmentPageSize}, got)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/segments?page=9223372036854775807&limit=500", nil), viewer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.SegmentFilter{Page: service.MaxSegmentPage, Limit: maxSegmentPageSize}, got)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/segments?segment=Whales", nil), viewer)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSegmentSummary(t *testing.T) {
	s := newTestServer(t, 1<<20)
	s.segmentation.SummaryFunc = func(ctx context.Context, userID string) (*model.SegmentSummaryResponse, error) {
		return &model.SegmentSummaryResponse{
			Segments:       []model.SegmentSummary{{SegmentName: "Lost", Customers: 2, Percentage: 100}},
			TotalCustomers: 2,
			TotalRevenue:   decimal.RequireFromString("12.5"),
		}, nil
	}

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/segments/summary", nil), s.token(t, model.RoleViewer))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(2), body["total_customers"])
	assert.Equal(t, "12.5", body["total_revenue"])
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, 1<<20)
	s.auth.LoginFunc = func(ctx context.Context, username, password string) (*model.LoginResponse, error) {
		if password != "secret1" {
			return nil, service.ErrInvalidCredentials
		}
		return &model.LoginResponse{Token: "tok", User: model.User{Username: username}}, nil
	}

	ok := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"erin","password":"secret1"}`))
	ok.Header.Set("Content-Type", "application/json")
	w := s.do(ok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok", decode(t, w)["token"])

	bad := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"erin","password":"nope"}`))
	bad.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusUnauthorized, s.do(bad, "").Code)

	invalid := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"erin"}`))
	invalid.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, s.do(invalid, "").Code)
}

func TestRegister(t *testing.T) {
	s := newTestServer(t, 1<<20)
	s.auth.RegisterFunc = func(ctx context.Context, req *model.RegisterRequest) (*model.LoginResponse, error) {
		if req.Username == "taken" {
			return nil, service.ErrUsernameTaken
		}
		return &model.LoginResponse{Token: "tok", User: model.User{Username: req.Username, Role: model.RoleAnalyst}}, nil
	}

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return s.do(req, "")
	}

	assert.Equal(t, http.StatusCreated, post(`{"username":"erin","password":"secret1"}`).Code)
	assert.Equal(t, http.StatusConflict, post(`{"username":"taken","password":"secret1"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"username":"erin","password":"123"}`).Code)
}

func TestCheckUserPermissions(t *testing.T) {
	s := newTestServer(t, 1<<20)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/auth/permissions?resource=uploads&action=write", nil), s.token(t, model.RoleViewer))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["allowed"])
	assert.NotEmpty(t, body["permissions"])
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 1<<20)

	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	s.pinger.Err = ErrMockDB
	w = s.do(httptest.NewRequest(http.MethodGet, "/health", nil), "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
