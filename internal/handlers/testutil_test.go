package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kiroku/backend/internal/database"
	"github.com/kiroku/backend/internal/middleware"
	"github.com/kiroku/backend/internal/models"
	"github.com/kiroku/backend/internal/services"
	"github.com/kiroku/backend/pkg/logger"
	"github.com/kiroku/backend/pkg/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	syncService := services.NewCategorySyncService(db)
	groupService := services.NewGroupService(db, syncService)
	sharingService := services.NewSharingService(db, groupService)
	rankingService := services.NewRankingService(db, groupService)
	chatService := services.NewChatService(db, groupService)

	authHandler := NewAuthHandler(db)
	categoriesHandler := NewCategoriesHandler(db)
	activitiesHandler := NewActivitiesHandler(db)
	groupsHandler := NewGroupsHandler(groupService, rankingService)
	sharesHandler := NewSharesHandler(sharingService)
	messagesHandler := NewMessagesHandler(chatService)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 1 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS("http://localhost:3000"))
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/me", authMiddleware.RequireAuth, authHandler.UpdateMe)

	categoryRoutes := api.Group("/categories", authMiddleware.RequireAuth)
	categoryRoutes.Get("/", categoriesHandler.List)
	categoryRoutes.Post("/", categoriesHandler.Create)
	categoryRoutes.Put("/:id", categoriesHandler.Update)
	categoryRoutes.Delete("/:id", categoriesHandler.Delete)

	activityRoutes := api.Group("/activities", authMiddleware.RequireAuth)
	activityRoutes.Post("/", activitiesHandler.Create)
	activityRoutes.Get("/", activitiesHandler.List)
	activityRoutes.Post("/:id/share", sharesHandler.Share)
	activityRoutes.Post("/:id/unshare", sharesHandler.Unshare)
	activityRoutes.Get("/:id/groups", sharesHandler.GroupsForActivity)
	activityRoutes.Get("/:id", activitiesHandler.Get)
	activityRoutes.Put("/:id", activitiesHandler.Update)
	activityRoutes.Delete("/:id", activitiesHandler.Delete)

	groupRoutes := api.Group("/groups", authMiddleware.RequireAuth)
	groupRoutes.Post("/", groupsHandler.Create)
	groupRoutes.Get("/", groupsHandler.List)
	groupRoutes.Get("/preview", groupsHandler.Preview)
	groupRoutes.Post("/join", groupsHandler.Join)
	groupRoutes.Delete("/messages/:messageId", messagesHandler.Delete)
	groupRoutes.Get("/:id/activities", sharesHandler.ListGroupActivities)
	groupRoutes.Get("/:id/rankings", groupsHandler.MemberRankings)
	groupRoutes.Post("/:id/messages", messagesHandler.Send)
	groupRoutes.Get("/:id/messages", messagesHandler.List)
	groupRoutes.Post("/:id/invite", groupsHandler.Invite)
	groupRoutes.Post("/:id/invite-code", groupsHandler.RegenerateInviteCode)
	groupRoutes.Post("/:id/leave", groupsHandler.Leave)
	groupRoutes.Delete("/:id/members/:userId", groupsHandler.RemoveMember)
	groupRoutes.Put("/:id/categories", groupsHandler.UpdateSharedCategories)
	groupRoutes.Get("/:id", groupsHandler.Get)
	groupRoutes.Put("/:id", groupsHandler.Update)
	groupRoutes.Delete("/:id", groupsHandler.Delete)

	return &testEnv{app: app, db: db}
}

func createTestUser(t *testing.T, db *gorm.DB, email, username, uniqueID string) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Username:     username,
		UniqueID:     uniqueID,
		AvatarEmoji:  "😀",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user.ID, user.Email)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func createTestCategory(t *testing.T, db *gorm.DB, user *models.User, name, emoji, color string, sortOrder int) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID:    user.ID,
		Name:      name,
		Emoji:     emoji,
		Color:     color,
		SortOrder: sortOrder,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed creating test category: %v", err)
	}
	return category
}

func createTestActivity(t *testing.T, db *gorm.DB, user *models.User, category, date string, minutes, mood int) *models.Activity {
	t.Helper()

	activity := &models.Activity{
		UserID:          user.ID,
		Title:           category + " session",
		Category:        category,
		DurationMinutes: minutes,
		Mood:            mood,
		Date:            date,
	}
	if err := db.Create(activity).Error; err != nil {
		t.Fatalf("failed creating test activity: %v", err)
	}
	return activity
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}

func createTestGroup(t *testing.T, app *fiber.App, token string, name string, categories []string) string {
	t.Helper()

	resp := performJSONRequest(t, app, http.MethodPost, "/api/groups/", map[string]any{
		"name":             name,
		"sharedCategories": categories,
	}, authHeaders(token))
	body := decodeJSONMap(t, resp)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("failed creating test group: status=%d body=%+v", resp.StatusCode, body)
	}

	data := body["data"].(map[string]any)
	return data["id"].(string)
}

func groupInviteCode(t *testing.T, db *gorm.DB, groupID string) string {
	t.Helper()

	var group models.Group
	if err := db.First(&group, "id = ?", groupID).Error; err != nil {
		t.Fatalf("failed loading group: %v", err)
	}
	return group.InviteCode
}
