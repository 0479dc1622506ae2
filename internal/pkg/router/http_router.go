package router

import (
	"github.com/facilohq/facilo/app/controllers"
	"github.com/facilohq/facilo/internal/pkg/middleware"
	"github.com/facilohq/facilo/internal/pkg/session"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Destination for plans that are sold through sales instead of
	// self-service checkout.
	app.Get("/contact-sales", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Enterprise plans are handled by our sales team.",
			"email":   "sales@facilo.app",
		})
	})

	// Provider callbacks carry their own signature and must stay outside
	// session auth and the API rate limiter.
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
