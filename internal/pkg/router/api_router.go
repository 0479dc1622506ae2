package router

import (
	"github.com/facilohq/facilo/app/controllers"
	"github.com/facilohq/facilo/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Facilo API",
		})
	})

	// Browser clients authenticate through the session cookie.
	v1 := api.Group("/v1", middleware.RequireAPISessionAuth)

	// Organizations. Creating one needs no tenant scope yet; everything
	// else runs against the member's active organization.
	v1.Post("/organizations", controllers.HandleCreateOrganization)
	v1.Get("/organization", middleware.RequireOrgScope, controllers.HandleGetOrganization)
	v1.Get("/organization/members", middleware.RequireOrgScope, controllers.HandleListMembers)
	v1.Post("/organization/members", middleware.RequireOrgAdmin, controllers.HandleAddMember)
	v1.Delete("/organization/members/:userId", middleware.RequireOrgAdmin, controllers.HandleRevokeMember)

	// Billing. Plan listing only needs a login; checkout changes the
	// organization's plan and is reserved for managers.
	v1.Get("/billing/plans", controllers.HandleListPlans)
	v1.Get("/billing/subscription", middleware.RequireOrgScope, controllers.HandleGetSubscription)
	v1.Post("/billing/checkout", middleware.RequireOrgAdmin, controllers.HandleStartCheckout)

	// Quota introspection.
	v1.Get("/quota", middleware.RequireOrgScope, controllers.HandleGetQuota)
	v1.Get("/quota/:kind", middleware.RequireOrgScope, controllers.HandleCheckQuota)

	// Facility objects with nested sectors and articles.
	objects := v1.Group("/objects", middleware.RequireOrgScope)
	objects.Get("/", controllers.HandleListObjects)
	objects.Post("/", controllers.HandleCreateObject)
	objects.Get("/:id", controllers.HandleGetObject)
	objects.Put("/:id", controllers.HandleUpdateObject)
	objects.Delete("/:id", controllers.HandleDeleteObject)
	objects.Get("/:id/sectors", controllers.HandleListSectors)
	objects.Post("/:id/sectors", controllers.HandleCreateSector)
	objects.Put("/:id/sectors/:sectorId", controllers.HandleUpdateSector)
	objects.Delete("/:id/sectors/:sectorId", controllers.HandleDeleteSector)
	objects.Get("/:id/sectors/:sectorId/articles", controllers.HandleListArticles)
	objects.Post("/:id/sectors/:sectorId/articles", controllers.HandleCreateArticle)
	objects.Put("/:id/sectors/:sectorId/articles/:articleId", controllers.HandleUpdateArticle)
	objects.Delete("/:id/sectors/:sectorId/articles/:articleId", controllers.HandleDeleteArticle)

	// Maintenance tasks.
	tasks := v1.Group("/tasks", middleware.RequireOrgScope)
	tasks.Get("/", controllers.HandleListTasks)
	tasks.Post("/", controllers.HandleCreateTask)
	tasks.Put("/:id", controllers.HandleUpdateTask)
	tasks.Delete("/:id", controllers.HandleDeleteTask)

	// Documents.
	documents := v1.Group("/documents", middleware.RequireOrgScope)
	documents.Get("/", controllers.HandleListDocuments)
	documents.Post("/", controllers.HandleUploadDocument)
	documents.Get("/:uuid/download", controllers.HandleDownloadDocument)
	documents.Delete("/:uuid", controllers.HandleDeleteDocument)

	// Platform administration.
	admin := v1.Group("/admin", middleware.RequireAPIAdmin)
	admin.Get("/organizations/:id/usage", controllers.HandleAdminGetUsage)
	admin.Post("/organizations/:id/recalculate-storage", controllers.HandleAdminRecalculateStorage)
	admin.Put("/organizations/:id/subscription", controllers.HandleAdminOverrideSubscription)
	admin.Delete("/organizations/:id/subscription", controllers.HandleAdminClearOverride)

	// Integrations authenticate with a user API key instead of a session.
	ext := api.Group("/ext/v1", middleware.APIKeyAuthMiddleware(), middleware.RequireOrgScope)
	ext.Get("/quota", controllers.HandleGetQuota)
	ext.Get("/quota/:kind", controllers.HandleCheckQuota)
	ext.Get("/objects", controllers.HandleListObjects)
	ext.Get("/tasks", controllers.HandleListTasks)
	ext.Get("/documents", controllers.HandleListDocuments)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
