// internal/router/router_test.go
package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/fabhub/fabhub-backend/internal/config"
	"github.com/fabhub/fabhub-backend/internal/services"
)

type RouterTestSuite struct {
	suite.Suite
	router *gin.Engine
}

func (suite *RouterTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{Environment: "test"}
	cfg.JWT.SecretKey = "test-secret"

	// No database behind these services; only routes that never reach the
	// service layer are exercised here.
	suite.router = Initialize(nil, cfg, &Services{
		Auth:         &services.AuthService{},
		Item:         &services.ItemService{},
		License:      &services.LicenseService{},
		Download:     &services.DownloadService{},
		Purchase:     &services.PurchaseService{},
		Escrow:       &services.EscrowService{},
		Review:       &services.ReviewService{},
		Community:    &services.CommunityService{},
		Analytics:    &services.AnalyticsService{},
		Admin:        &services.AdminService{},
		Notification: &services.NotificationService{},
		Storage:      &services.StorageService{},
	})
}

func (suite *RouterTestSuite) TestHealthCheck() {
	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "healthy")
}

func (suite *RouterTestSuite) TestProtectedRoutesRequireAuth() {
	protected := []struct {
		method string
		path   string
	}{
		{"GET", "/v1/auth/me"},
		{"GET", "/v1/purchases"},
		{"GET", "/v1/downloads"},
		{"GET", "/v1/licenses/grants"},
		{"GET", "/v1/notifications"},
		{"GET", "/v1/admin/users"},
	}

	for _, route := range protected {
		req, _ := http.NewRequest(route.method, route.path, nil)
		w := httptest.NewRecorder()
		suite.router.ServeHTTP(w, req)

		assert.Equal(suite.T(), http.StatusUnauthorized, w.Code,
			"%s %s should require authentication", route.method, route.path)
	}
}

func (suite *RouterTestSuite) TestInvalidTokenRejected() {
	req, _ := http.NewRequest("GET", "/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
