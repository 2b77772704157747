package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiroku/backend/internal/config"
	"github.com/kiroku/backend/internal/database"
	"github.com/kiroku/backend/internal/handlers"
	"github.com/kiroku/backend/internal/middleware"
	"github.com/kiroku/backend/internal/services"
	"github.com/kiroku/backend/pkg/logger"
	"github.com/kiroku/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	syncService := services.NewCategorySyncService(db)
	groupService := services.NewGroupService(db, syncService)
	sharingService := services.NewSharingService(db, groupService)
	rankingService := services.NewRankingService(db, groupService)
	chatService := services.NewChatService(db, groupService)

	authHandler := handlers.NewAuthHandler(db)
	categoriesHandler := handlers.NewCategoriesHandler(db)
	activitiesHandler := handlers.NewActivitiesHandler(db)
	groupsHandler := handlers.NewGroupsHandler(groupService, rankingService)
	sharesHandler := handlers.NewSharesHandler(sharingService)
	messagesHandler := handlers.NewMessagesHandler(chatService)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 1 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.AllowedOrigins))
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

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Printf("shutdown timed out, exiting")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server failed: %v", err)
		}
	}
}
