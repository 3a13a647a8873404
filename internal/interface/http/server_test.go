package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/classquest/classquest/config"
	"github.com/classquest/classquest/internal/application"
	"github.com/classquest/classquest/internal/domain/student"
	"github.com/classquest/classquest/internal/infrastructure/persistence/tablestore"
	"github.com/classquest/classquest/pkg/logger"
)

const testEditorToken = "letmein"

func newTestServer(t *testing.T, readOnly bool) *Server {
	t.Helper()

	log := logger.New(io.Discard, logger.LevelError)
	store := tablestore.NewCache(tablestore.NewMemStore())
	registry := application.NewRegistry(store, log)
	ledger := application.NewLedgerEngine(store, registry, log, nil)
	tracker := application.NewAttendanceTracker(store, registry, log)
	observations := application.NewObservationLog(store, registry, log, nil)
	levels := application.NewLevelService(store, registry, log)

	cfg := config.HTTPConfig{Addr: ":0"}
	if !readOnly {
		hash, err := bcrypt.GenerateFromPassword([]byte(testEditorToken), bcrypt.MinCost)
		require.NoError(t, err)
		cfg.EditorTokenHash = string(hash)
	}

	require.NoError(t, registry.Save(context.Background(),
		student.Student{ID: 7, Name: "Ana", XP: 40, InstitutionID: 1}))

	return NewServer(cfg, log, registry, ledger, tracker, observations, levels)
}

func do(t *testing.T, s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestGetStudent(t *testing.T) {
	s := newTestServer(t, false)

	rec := do(t, s, http.MethodGet, "/api/v1/students/7", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var dto studentDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, "Ana", dto.Name)
	assert.Equal(t, 40, dto.XP)
}

func TestGetStudentNotFound(t *testing.T) {
	s := newTestServer(t, false)

	rec := do(t, s, http.MethodGet, "/api/v1/students/99", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStudentBadID(t *testing.T) {
	s := newTestServer(t, false)

	rec := do(t, s, http.MethodGet, "/api/v1/students/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApplyDeltaRequiresEditorToken(t *testing.T) {
	s := newTestServer(t, false)

	rec := do(t, s, http.MethodPost, "/api/v1/students/7/xp", `{"delta":15,"reason":"quiz"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/students/7/xp", `{"delta":15,"reason":"quiz"}`, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestApplyDeltaWithToken(t *testing.T) {
	s := newTestServer(t, false)

	rec := do(t, s, http.MethodPost, "/api/v1/students/7/xp", `{"delta":15,"reason":"quiz"}`, testEditorToken)
	require.Equal(t, http.StatusCreated, rec.Code)

	var entry entryDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, 15, entry.Delta)
	assert.Equal(t, "quiz", entry.Reason)

	rec = do(t, s, http.MethodGet, "/api/v1/students/7", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var dto studentDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, 55, dto.XP)
}

func TestReadOnlyModeRefusesMutations(t *testing.T) {
	s := newTestServer(t, true)

	rec := do(t, s, http.MethodPost, "/api/v1/students/7/xp", `{"delta":1,"reason":"x"}`, testEditorToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Reads still work.
	rec = do(t, s, http.MethodGet, "/api/v1/students", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestToggleAttendanceEndpoint(t *testing.T) {
	s := newTestServer(t, false)

	rec := do(t, s, http.MethodPost, "/api/v1/students/7/attendance/toggle", `{"date":"2026-03-02"}`, testEditorToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "P", resp["status"])
}

func TestStudentLevelEndpoint(t *testing.T) {
	s := newTestServer(t, false)

	rec := do(t, s, http.MethodGet, "/api/v1/students/7/level", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var lvl levelDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lvl))
	assert.Equal(t, 1, lvl.Level)
	assert.Equal(t, "Madera", lvl.Label)
	assert.Equal(t, "Bronce", lvl.NextLabel)
	assert.Equal(t, 60, lvl.Remaining)
}

func TestRequestIDHeaderEchoed(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	s := newTestServer(t, false)

	rec := do(t, s, http.MethodGet, "/health", "", "")
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}
