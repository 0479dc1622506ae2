package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/facilohq/facilo/app/models"
	"github.com/facilohq/facilo/app/repository"
	"github.com/facilohq/facilo/internal/pkg/usercontext"
)

type sectorRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type articleRequest struct {
	Name         string `json:"name"`
	SerialNumber string `json:"serial_number"`
	Quantity     *int   `json:"quantity"`
}

// HandleListSectors lists the sectors of one facility object.
func HandleListSectors(c *fiber.Ctx) error {
	obj, err := loadOrgObject(c)
	if err != nil {
		return err
	}
	sectors, lerr := repository.GetGlobalFactory().GetSectorRepository().ListByObject(obj.ID)
	if lerr != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load sectors")
	}
	return c.JSON(fiber.Map{"sectors": sectors})
}

// HandleCreateSector adds a sector to a facility object. Sectors are not
// quota-metered; only top-level objects count.
func HandleCreateSector(c *fiber.Ctx) error {
	obj, err := loadOrgObject(c)
	if err != nil {
		return err
	}

	var req sectorRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}

	sector := &models.Sector{
		OrganizationID:   obj.OrganizationID,
		FacilityObjectID: obj.ID,
		Name:             strings.TrimSpace(req.Name),
		Description:      req.Description,
	}
	if err := sector.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", err.Error())
	}

	if err := repository.GetGlobalFactory().GetSectorRepository().Create(sector); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create sector")
	}
	return c.Status(fiber.StatusCreated).JSON(sector)
}

// HandleUpdateSector updates a sector's name/description.
func HandleUpdateSector(c *fiber.Ctx) error {
	sector, err := loadOrgSector(c)
	if err != nil {
		return err
	}

	var req sectorRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	if strings.TrimSpace(req.Name) != "" {
		sector.Name = strings.TrimSpace(req.Name)
	}
	sector.Description = req.Description
	if err := sector.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", err.Error())
	}

	if err := repository.GetGlobalFactory().GetSectorRepository().Update(sector); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update sector")
	}
	return c.JSON(sector)
}

// HandleDeleteSector deletes a sector.
func HandleDeleteSector(c *fiber.Ctx) error {
	sector, err := loadOrgSector(c)
	if err != nil {
		return err
	}
	if err := repository.GetGlobalFactory().GetSectorRepository().Delete(sector.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete sector")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleListArticles lists the articles of one sector.
func HandleListArticles(c *fiber.Ctx) error {
	sector, err := loadOrgSector(c)
	if err != nil {
		return err
	}
	articles, lerr := repository.GetGlobalFactory().GetArticleRepository().ListBySector(sector.ID)
	if lerr != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load articles")
	}
	return c.JSON(fiber.Map{"articles": articles})
}

// HandleCreateArticle adds an inventory article to a sector.
func HandleCreateArticle(c *fiber.Ctx) error {
	sector, err := loadOrgSector(c)
	if err != nil {
		return err
	}

	var req articleRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	article := &models.Article{
		OrganizationID: sector.OrganizationID,
		SectorID:       sector.ID,
		Name:           strings.TrimSpace(req.Name),
		SerialNumber:   strings.TrimSpace(req.SerialNumber),
		Quantity:       quantity,
	}
	if err := article.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", err.Error())
	}

	if err := repository.GetGlobalFactory().GetArticleRepository().Create(article); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create article")
	}
	return c.Status(fiber.StatusCreated).JSON(article)
}

// HandleUpdateArticle updates an article.
func HandleUpdateArticle(c *fiber.Ctx) error {
	article, err := loadOrgArticle(c)
	if err != nil {
		return err
	}

	var req articleRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	if strings.TrimSpace(req.Name) != "" {
		article.Name = strings.TrimSpace(req.Name)
	}
	article.SerialNumber = strings.TrimSpace(req.SerialNumber)
	if req.Quantity != nil {
		article.Quantity = *req.Quantity
	}
	if err := article.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", err.Error())
	}

	if err := repository.GetGlobalFactory().GetArticleRepository().Update(article); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update article")
	}
	return c.JSON(article)
}

// HandleDeleteArticle deletes an article.
func HandleDeleteArticle(c *fiber.Ctx) error {
	article, err := loadOrgArticle(c)
	if err != nil {
		return err
	}
	if err := repository.GetGlobalFactory().GetArticleRepository().Delete(article.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete article")
	}
	return c.JSON(fiber.Map{"ok": true})
}

func loadOrgSector(c *fiber.Ctx) (*models.Sector, error) {
	userCtx := usercontext.GetUserContext(c)
	id := paramUint(c, "sectorId")
	if id == 0 {
		return nil, jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid sector id")
	}

	sector, err := repository.GetGlobalFactory().GetSectorRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Sector not found")
		}
		return nil, jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load sector")
	}
	if sector.OrganizationID != userCtx.OrganizationID {
		return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Sector not found")
	}
	return sector, nil
}

func loadOrgArticle(c *fiber.Ctx) (*models.Article, error) {
	userCtx := usercontext.GetUserContext(c)
	id := paramUint(c, "articleId")
	if id == 0 {
		return nil, jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid article id")
	}

	article, err := repository.GetGlobalFactory().GetArticleRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Article not found")
		}
		return nil, jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load article")
	}
	if article.OrganizationID != userCtx.OrganizationID {
		return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Article not found")
	}
	return article, nil
}
