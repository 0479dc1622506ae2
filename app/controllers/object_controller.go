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

type objectRequest struct {
	Name       string `json:"name"`
	ObjectType string `json:"object_type"`
	Address    string `json:"address"`
	Notes      string `json:"notes"`
}

// HandleListObjects lists the organization's facility objects.
func HandleListObjects(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	offset, limit := pagination(c)

	repo := repository.GetGlobalFactory().GetFacilityObjectRepository()
	objs, err := repo.ListByOrg(userCtx.OrganizationID, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load objects")
	}
	total, err := repo.CountByOrg(userCtx.OrganizationID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to count objects")
	}
	return c.JSON(fiber.Map{"objects": objs, "total": total})
}

// HandleCreateObject creates a facility object. Gated by the object quota;
// denial is an upgrade prompt, not an error.
func HandleCreateObject(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req objectRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	decision, err := newQuotaGuard().CheckLimit(ctx, userCtx.OrganizationID, quota.KindObjects, 1)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Quota check failed")
	}
	if !decision.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":    "quota_exceeded",
			"message":  "Object limit reached for the current plan",
			"decision": decision,
			"upgrade":  "/account/billing",
		})
	}

	objectType := strings.TrimSpace(req.ObjectType)
	if objectType == "" {
		objectType = models.ObjectTypeBuilding
	}
	obj := &models.FacilityObject{
		OrganizationID: userCtx.OrganizationID,
		Name:           strings.TrimSpace(req.Name),
		ObjectType:     objectType,
		Address:        strings.TrimSpace(req.Address),
		Notes:          req.Notes,
	}
	if err := obj.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", err.Error())
	}

	if err := repository.GetGlobalFactory().GetFacilityObjectRepository().Create(obj); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create object")
	}
	return c.Status(fiber.StatusCreated).JSON(obj)
}

// HandleGetObject returns one facility object scoped to the caller's org.
func HandleGetObject(c *fiber.Ctx) error {
	obj, err := loadOrgObject(c)
	if err != nil {
		return err
	}
	return c.JSON(obj)
}

// HandleUpdateObject updates name/type/address/notes.
func HandleUpdateObject(c *fiber.Ctx) error {
	obj, err := loadOrgObject(c)
	if err != nil {
		return err
	}

	var req objectRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	if strings.TrimSpace(req.Name) != "" {
		obj.Name = strings.TrimSpace(req.Name)
	}
	if strings.TrimSpace(req.ObjectType) != "" {
		obj.ObjectType = strings.TrimSpace(req.ObjectType)
	}
	obj.Address = strings.TrimSpace(req.Address)
	obj.Notes = req.Notes
	if err := obj.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", err.Error())
	}

	if err := repository.GetGlobalFactory().GetFacilityObjectRepository().Update(obj); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update object")
	}
	return c.JSON(obj)
}

// HandleDeleteObject deletes a facility object. No quota check: removals
// release capacity.
func HandleDeleteObject(c *fiber.Ctx) error {
	obj, err := loadOrgObject(c)
	if err != nil {
		return err
	}
	if err := repository.GetGlobalFactory().GetFacilityObjectRepository().Delete(obj.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete object")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// loadOrgObject loads the :id object and enforces tenant scope.
func loadOrgObject(c *fiber.Ctx) (*models.FacilityObject, error) {
	userCtx := usercontext.GetUserContext(c)
	id := paramUint(c, "id")
	if id == 0 {
		return nil, jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid object id")
	}

	obj, err := repository.GetGlobalFactory().GetFacilityObjectRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Object not found")
		}
		return nil, jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load object")
	}
	if obj.OrganizationID != userCtx.OrganizationID {
		// Cross-tenant probes get the same answer as a miss.
		return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Object not found")
	}
	return obj, nil
}
