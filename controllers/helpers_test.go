package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/powder-coating-api/config"
	"github.com/kendall-kelly/powder-coating-api/middleware"
	"github.com/kendall-kelly/powder-coating-api/models"
	"github.com/kendall-kelly/powder-coating-api/services"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	config.SetDB(db)
	return db
}

// testEnv wires the package-level collaborators the handlers use
type testEnv struct {
	db       *gorm.DB
	notifier *services.MockNotifier
	dispatch *services.Dispatcher
	feed     *services.MemoryChangeFeed
	s3       *services.MockS3Service
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		db:       setupTestDB(t),
		notifier: services.NewMockNotifier(),
		feed:     services.NewMemoryChangeFeed(),
		s3:       services.NewMockS3Service(),
	}
	env.dispatch = services.NewDispatcher(env.notifier, zap.NewNop())
	services.InitDispatcher(env.dispatch)
	services.InitChangeFeed(env.feed)
	services.InitFileService(env.s3)
	services.InitProvisioner(services.NewMockProvisioner())
	t.Cleanup(func() {
		env.dispatch.Wait()
		services.InitDispatcher(nil)
		services.InitChangeFeed(nil)
		services.InitProvisioner(nil)
	})
	return env
}

func (env *testEnv) user(t *testing.T, auth0ID, name, role string) models.User {
	t.Helper()
	u := models.User{Auth0ID: auth0ID, Name: name, Email: name + "@example.com", Role: role}
	require.NoError(t, env.db.Create(&u).Error)
	return u
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

// mockAuthMiddleware simulates the Auth0 JWT middleware for testing
// It sets up the context exactly as the real EnsureValidToken middleware does
func mockAuthMiddleware(auth0ID, role, accessToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", auth0ID)
		c.Set("access_token", accessToken)

		customClaims := &middleware.CustomClaims{Role: role}
		c.Set("custom_claims", customClaims)
		c.Set("validated_claims", &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{Subject: auth0ID},
			CustomClaims:     customClaims,
		})

		c.Next()
	}
}

// headerAuth reads the caller from X-Test-User so one router can serve many users
func headerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", c.GetHeader("X-Test-User"))
		c.Next()
	}
}

// setupMockAuth0Server creates a mock HTTP server that simulates Auth0's /userinfo endpoint
func setupMockAuth0Server(userInfoMap map[string]*services.Auth0UserInfo) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if len(authHeader) < 7 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		userInfo, exists := userInfoMap[authHeader[7:]]
		if !exists {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(userInfo)
	}))
}

// doJSON sends body (if any) as the user with auth0ID and decodes the envelope
func doJSON(t *testing.T, router http.Handler, method, path, auth0ID string, body any) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Test-User", auth0ID)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return w.Code, response
}

func errorCode(response map[string]interface{}) string {
	e, ok := response["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := e["code"].(string)
	return code
}

// apiRouter mounts every handler the way the server does, behind headerAuth
func apiRouter() *gin.Engine {
	router := setupTestRouter()
	api := router.Group("/api/v1", headerAuth())

	api.GET("/users/me", GetMyProfile)

	api.POST("/orders", CreateOrder)
	api.GET("/orders", ListOrders)
	api.GET("/orders/:id", GetOrder)
	api.PUT("/orders/:id", UpdateOrder)
	api.PUT("/orders/:id/status", UpdateOrderStatus)
	api.GET("/orders/:id/history", GetOrderHistory)
	api.POST("/orders/:id/files", UploadOrderFile)
	api.GET("/orders/:id/quotes", ListQuotes)
	api.POST("/orders/:id/quotes", CreateQuote)
	api.POST("/orders/:id/quotes/accept", AcceptQuote)
	api.POST("/orders/:id/quotes/reject", RejectQuote)
	api.PUT("/orders/:id/assignments", SetOrderAssignments)

	api.GET("/team/assignments", ListMyAssignments)
	api.POST("/team-members", CreateTeamMember)
	api.GET("/team-members", ListTeamMembers)
	api.PATCH("/team-members/:id/availability", UpdateTeamMemberAvailability)

	api.GET("/notifications", ListNotifications)
	api.PATCH("/notifications/:id/read", MarkNotificationRead)

	api.GET("/changes", StreamChanges)
	api.GET("/files/types", AllowedFileTypes)
	return router
}

func orderBody() map[string]interface{} {
	return map[string]interface{}{
		"project_name": "Bike frame",
		"description":  "Steel frame, strip and recoat",
		"quantity":     1,
		"customization": map[string]interface{}{
			"finish":  "glossy",
			"texture": "smooth",
			"color":   "#1A1A1A",
		},
	}
}

// createOrder submits orderBody as auth0ID and returns the new order id
func createOrder(t *testing.T, router http.Handler, auth0ID string) uint {
	t.Helper()
	status, response := doJSON(t, router, http.MethodPost, "/api/v1/orders", auth0ID, orderBody())
	require.Equal(t, http.StatusCreated, status, "response: %v", response)
	return uint(response["data"].(map[string]interface{})["id"].(float64))
}
