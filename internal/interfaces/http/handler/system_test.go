package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/ledgerkeep/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDatabase wraps a sqlmock connection in the persistence.Database type
// so system endpoints can be exercised without a real server.
func newMockDatabase(t *testing.T) (*persistence.Database, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)

	return &persistence.Database{DB: gormDB}, mock
}

func setupSystemTestRouter(t *testing.T) (*gin.Engine, *SystemHandler, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock := newMockDatabase(t)
	handler := NewSystemHandler(db)

	router := gin.New()
	group := router.Group("/api/v1")
	handler.RegisterRoutes(group)
	router.GET("/ready", handler.Ready)

	return router, handler, mock
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	router, _, _ := setupSystemTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/system/info", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool               `json:"success"`
		Data    SystemInfoResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "LedgerKeep Backend API", resp.Data.Name)
	assert.NotEmpty(t, resp.Data.GoVersion)
	require.NotNil(t, resp.Data.DBPool, "info must report connection pool usage")
	assert.GreaterOrEqual(t, resp.Data.DBPool.OpenConnections, 0)
}

func TestSystemHandler_Ping(t *testing.T) {
	router, _, _ := setupSystemTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/system/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}

func TestSystemHandler_Health(t *testing.T) {
	router, _, _ := setupSystemTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestSystemHandler_Ready(t *testing.T) {
	t.Run("ready when the database answers", func(t *testing.T) {
		router, _, mock := setupSystemTestRouter(t)
		mock.ExpectPing()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "ready")
	})

	t.Run("unavailable when the database does not answer", func(t *testing.T) {
		router, _, mock := setupSystemTestRouter(t)
		mock.ExpectPing().WillReturnError(assert.AnError)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_STORAGE_UNAVAILABLE")
	})
}
