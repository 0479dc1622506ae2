package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/facilohq/facilo/app/models"
	"github.com/facilohq/facilo/app/repository"
	"github.com/facilohq/facilo/internal/pkg/quota"
	"github.com/facilohq/facilo/internal/pkg/usercontext"
)

type createOrganizationRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type addMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// HandleCreateOrganization creates a tenant with the caller as owner.
func HandleCreateOrganization(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req createOrganizationRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}

	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == "" {
		slug = slugify(req.Name)
	}

	org := &models.Organization{
		Name:    strings.TrimSpace(req.Name),
		Slug:    slug,
		OwnerID: userCtx.UserID,
	}
	if err := org.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", err.Error())
	}

	orgRepo := repository.GetGlobalFactory().GetOrganizationRepository()
	if _, err := orgRepo.GetBySlug(slug); err == nil {
		return jsonError(c, fiber.StatusConflict, "conflict", "Slug is already taken")
	}

	if err := orgRepo.Create(org); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create organization")
	}
	if err := orgRepo.AddMember(&models.OrganizationMember{
		OrganizationID: org.ID,
		UserID:         userCtx.UserID,
		Role:           models.MemberRoleOwner,
	}); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to add owner membership")
	}

	return c.Status(fiber.StatusCreated).JSON(org)
}

// HandleGetOrganization returns the caller's active organization.
func HandleGetOrganization(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	org, err := repository.GetGlobalFactory().GetOrganizationRepository().GetByID(userCtx.OrganizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Organization not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load organization")
	}
	return c.JSON(org)
}

// HandleListMembers lists the organization's members.
func HandleListMembers(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	includeRevoked := c.QueryBool("include_revoked", false)

	members, err := repository.GetGlobalFactory().GetOrganizationRepository().
		ListMembers(userCtx.OrganizationID, includeRevoked)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load members")
	}
	return c.JSON(fiber.Map{"members": members})
}

// HandleAddMember adds a user to the organization. Gated by the user quota:
// the check is advisory (two concurrent adds can both pass), denial is a
// normal decision with an upgrade prompt, not an error.
func HandleAddMember(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req addMemberRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "email is required")
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = models.MemberRoleMember
	}
	switch role {
	case models.MemberRoleOwner, models.MemberRoleAdmin, models.MemberRoleMember:
	default:
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Unknown role")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	decision, err := newQuotaGuard().CheckLimit(ctx, userCtx.OrganizationID, quota.KindUsers, 1)
	if err != nil {
		// I/O failure during a check denies the action.
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Quota check failed")
	}
	if !decision.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":    "quota_exceeded",
			"message":  "Member limit reached for the current plan",
			"decision": decision,
			"upgrade":  "/account/billing",
		})
	}

	factory := repository.GetGlobalFactory()
	user, err := factory.GetUserRepository().GetByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "No user with that email")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "User lookup failed")
	}

	orgRepo := factory.GetOrganizationRepository()
	if existing, err := orgRepo.GetMember(userCtx.OrganizationID, user.ID); err == nil {
		if existing.IsActive() {
			return jsonError(c, fiber.StatusConflict, "conflict", "User is already a member")
		}
		if err := orgRepo.RestoreMember(userCtx.OrganizationID, user.ID); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to restore membership")
		}
		return c.JSON(fiber.Map{"ok": true, "restored": true})
	}

	member := &models.OrganizationMember{
		OrganizationID: userCtx.OrganizationID,
		UserID:         user.ID,
		Role:           role,
	}
	if err := orgRepo.AddMember(member); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to add member")
	}
	return c.Status(fiber.StatusCreated).JSON(member)
}

// HandleRevokeMember revokes a membership. Removals are never quota-checked.
func HandleRevokeMember(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	memberUserID := paramUint(c, "userId")
	if memberUserID == 0 {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid user id")
	}
	if memberUserID == userCtx.UserID {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Cannot revoke your own membership")
	}

	err := repository.GetGlobalFactory().GetOrganizationRepository().
		RevokeMember(userCtx.OrganizationID, memberUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "No active membership for that user")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to revoke member")
	}
	return c.JSON(fiber.Map{"ok": true})
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
