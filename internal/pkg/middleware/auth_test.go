package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilohq/facilo/internal/pkg/usercontext"
)

func testApp(seed usercontext.UserContext, guards ...fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(usercontext.KeyUserContext, seed)
		c.Locals(usercontext.KeyFromProtected, seed.IsLoggedIn)
		c.Locals(usercontext.KeyIsAdmin, seed.IsAdmin)
		return c.Next()
	})
	handlers := append(guards, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/probe", handlers...)
	return app
}

func TestRequireOrgScope(t *testing.T) {
	tests := []struct {
		name string
		ctx  usercontext.UserContext
		want int
	}{
		{name: "anonymous", ctx: usercontext.UserContext{}, want: fiber.StatusUnauthorized},
		{name: "logged in without org", ctx: usercontext.UserContext{UserID: 1, IsLoggedIn: true}, want: fiber.StatusForbidden},
		{name: "member", ctx: usercontext.UserContext{UserID: 1, IsLoggedIn: true, OrganizationID: 7, OrgRole: "member"}, want: fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testApp(tt.ctx, RequireOrgScope)
			resp, err := app.Test(httptest.NewRequest("GET", "/probe", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRequireOrgAdmin(t *testing.T) {
	member := usercontext.UserContext{UserID: 1, IsLoggedIn: true, OrganizationID: 7, OrgRole: "member"}
	app := testApp(member, RequireOrgAdmin)
	resp, err := app.Test(httptest.NewRequest("GET", "/probe", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	owner := member
	owner.OrgRole = "owner"
	app = testApp(owner, RequireOrgAdmin)
	resp, err = app.Test(httptest.NewRequest("GET", "/probe", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireAPIAdmin(t *testing.T) {
	regular := usercontext.UserContext{UserID: 1, IsLoggedIn: true, OrganizationID: 7}
	app := testApp(regular, RequireAPIAdmin)
	resp, err := app.Test(httptest.NewRequest("GET", "/probe", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	admin := regular
	admin.IsAdmin = true
	app = testApp(admin, RequireAPIAdmin)
	resp, err = app.Test(httptest.NewRequest("GET", "/probe", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
