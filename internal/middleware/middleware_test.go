package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academia-api/internal/models"
	appErrors "github.com/noah-isme/academia-api/pkg/errors"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token == "good" {
		return &models.JWTClaims{UserID: "u1", Email: "staff@example.com"}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type recordingAudit struct {
	logs []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

type recordingObserver struct {
	paths    []string
	statuses []int
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	r.paths = append(r.paths, path)
	r.statuses = append(r.statuses, status)
}

func newRouter(audit *recordingAudit, observer *recordingObserver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(observer))
	protected := r.Group("/", JWT(stubValidator{}))
	protected.DELETE("/students/:id", Audit(audit, nil, models.AuditActionStudentDelete, "students"), func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusNoContent)
	})
	protected.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": Claims(c).UserID})
	})
	return r
}

func TestJWTRejectsMissingAndBadTokens(t *testing.T) {
	r := newRouter(&recordingAudit{}, &recordingObserver{})

	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer bad"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestJWTStoresClaims(t *testing.T) {
	r := newRouter(&recordingAudit{}, &recordingObserver{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":"u1"}`, rec.Body.String())
}

func TestAuditRecordsSuccessfulDeletesOnly(t *testing.T) {
	audit := &recordingAudit{}
	r := newRouter(audit, &recordingObserver{})

	for _, id := range []string{"s1", "missing"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/students/"+id, nil)
		req.Header.Set("Authorization", "Bearer good")
		r.ServeHTTP(rec, req)
	}

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionStudentDelete, audit.logs[0].Action)
	require.NotNil(t, audit.logs[0].ResourceID)
	assert.Equal(t, "s1", *audit.logs[0].ResourceID)
	require.NotNil(t, audit.logs[0].UserID)
	assert.Equal(t, "u1", *audit.logs[0].UserID)
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	observer := &recordingObserver{}
	r := newRouter(&recordingAudit{}, observer)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/students/s1", nil)
	req.Header.Set("Authorization", "Bearer good")
	r.ServeHTTP(rec, req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, []string{"/students/:id", "unmatched"}, observer.paths)
	assert.Equal(t, http.StatusNoContent, observer.statuses[0])
}

