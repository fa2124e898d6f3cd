package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KNICEX/stock-alert/internal/service/monitor"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockController struct {
	mock.Mock
}

func (m *MockController) Start(ctx context.Context, cfg monitor.Config) (monitor.SessionID, error) {
	args := m.Called(ctx, cfg)
	return args.Get(0).(monitor.SessionID), args.Error(1)
}

func (m *MockController) Stop(id monitor.SessionID) error {
	return m.Called(id).Error(0)
}

func (m *MockController) Remove(id monitor.SessionID) error {
	return m.Called(id).Error(0)
}

func (m *MockController) Get(id monitor.SessionID) (monitor.SessionInfo, error) {
	args := m.Called(id)
	return args.Get(0).(monitor.SessionInfo), args.Error(1)
}

func (m *MockController) List() []monitor.SessionInfo {
	return m.Called().Get(0).([]monitor.SessionInfo)
}

func newTestRouter(ctrl SessionController) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(ctrl, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(router)
	return router
}

func do(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_StartSession(t *testing.T) {
	ctrl := &MockController{}
	ctrl.On("Start", mock.Anything, mock.MatchedBy(func(cfg monitor.Config) bool {
		return cfg.Ticker == "aapl" &&
			cfg.ThresholdPercent.String() == "1.5" &&
			cfg.EmailEnabled &&
			cfg.RecipientEmail == "me@example.com" &&
			cfg.Interval == 30*time.Second
	})).Return(monitor.SessionID("s-1"), nil).Once()
	ctrl.On("Get", monitor.SessionID("s-1")).Return(monitor.SessionInfo{
		ID:       "s-1",
		Snapshot: monitor.Snapshot{Ticker: "AAPL", State: monitor.StateRunning},
	}, nil).Once()

	w := do(newTestRouter(ctrl), http.MethodPost, "/api/v1/sessions", map[string]any{
		"ticker":           "aapl",
		"threshold":        "1.5",
		"email_enabled":    true,
		"recipient_email":  "me@example.com",
		"interval_seconds": 30,
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "s-1", resp["id"])
	assert.Equal(t, "running", resp["state"])
	ctrl.AssertExpectations(t)
}

func TestHandler_StartSessionErrors(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "invalid config", err: fmt.Errorf("%w: threshold must be positive", monitor.ErrInvalidConfig), wantCode: http.StatusBadRequest},
		{name: "no data", err: fmt.Errorf("%w: ZZZZ", monitor.ErrNoData), wantCode: http.StatusUnprocessableEntity},
		{name: "other", err: fmt.Errorf("boom"), wantCode: http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := &MockController{}
			ctrl.On("Start", mock.Anything, mock.Anything).Return(monitor.SessionID(""), tc.err).Once()

			w := do(newTestRouter(ctrl), http.MethodPost, "/api/v1/sessions", map[string]any{"ticker": "ZZZZ", "threshold": 1})

			assert.Equal(t, tc.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tc.err.Error())
		})
	}

	t.Run("missing ticker", func(t *testing.T) {
		ctrl := &MockController{}
		w := do(newTestRouter(ctrl), http.MethodPost, "/api/v1/sessions", map[string]any{"threshold": 1})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		ctrl.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
	})
}

func TestHandler_StopAndStatus(t *testing.T) {
	ctrl := &MockController{}
	ctrl.On("Stop", monitor.SessionID("s-1")).Return(nil).Once()
	ctrl.On("Stop", monitor.SessionID("nope")).Return(fmt.Errorf("%w: nope", monitor.ErrSessionNotFound)).Once()
	ctrl.On("Get", monitor.SessionID("s-1")).Return(monitor.SessionInfo{
		ID:       "s-1",
		Snapshot: monitor.Snapshot{Ticker: "AAPL", State: monitor.StateStopped},
	}, nil).Once()
	ctrl.On("Remove", monitor.SessionID("s-1")).Return(nil).Once()
	ctrl.On("List").Return([]monitor.SessionInfo{}).Once()
	router := newTestRouter(ctrl)

	w := do(router, http.MethodPost, "/api/v1/sessions/s-1/stop", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = do(router, http.MethodPost, "/api/v1/sessions/nope/stop", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodGet, "/api/v1/sessions/s-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"stopped"`)

	w = do(router, http.MethodDelete, "/api/v1/sessions/s-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, http.MethodGet, "/api/v1/sessions", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessions":[]}`, w.Body.String())

	w = do(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	ctrl.AssertExpectations(t)
}
