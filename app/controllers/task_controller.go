package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/facilohq/facilo/app/models"
	"github.com/facilohq/facilo/app/repository"
	"github.com/facilohq/facilo/internal/pkg/usercontext"
)

type taskRequest struct {
	FacilityObjectID uint       `json:"facility_object_id"`
	SectorID         *uint      `json:"sector_id"`
	ArticleID        *uint      `json:"article_id"`
	AssigneeID       *uint      `json:"assignee_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Status           string     `json:"status"`
	Priority         string     `json:"priority"`
	DueAt            *time.Time `json:"due_at"`
}

// HandleListTasks lists maintenance tasks, optionally filtered by status.
func HandleListTasks(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	offset, limit := pagination(c)
	status := strings.TrimSpace(c.Query("status"))

	tasks, err := repository.GetGlobalFactory().GetTaskRepository().
		ListByOrg(userCtx.OrganizationID, status, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load tasks")
	}
	return c.JSON(fiber.Map{"tasks": tasks})
}

// HandleCreateTask creates a maintenance task on a facility object. Tasks
// are not quota-metered.
func HandleCreateTask(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req taskRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}

	obj, err := repository.GetGlobalFactory().GetFacilityObjectRepository().GetByID(req.FacilityObjectID)
	if err != nil || obj.OrganizationID != userCtx.OrganizationID {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Facility object not found")
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = models.TaskStatusOpen
	}
	priority := strings.TrimSpace(req.Priority)
	if priority == "" {
		priority = models.TaskPriorityNormal
	}

	task := &models.MaintenanceTask{
		OrganizationID:   userCtx.OrganizationID,
		FacilityObjectID: obj.ID,
		SectorID:         req.SectorID,
		ArticleID:        req.ArticleID,
		AssigneeID:       req.AssigneeID,
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		Status:           status,
		Priority:         priority,
		DueAt:            req.DueAt,
	}
	if err := task.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", err.Error())
	}

	if err := repository.GetGlobalFactory().GetTaskRepository().Create(task); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create task")
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// HandleUpdateTask updates a task; moving to done stamps CompletedAt.
func HandleUpdateTask(c *fiber.Ctx) error {
	task, err := loadOrgTask(c)
	if err != nil {
		return err
	}

	var req taskRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}

	if strings.TrimSpace(req.Title) != "" {
		task.Title = strings.TrimSpace(req.Title)
	}
	if req.Description != "" {
		task.Description = req.Description
	}
	if req.SectorID != nil {
		task.SectorID = req.SectorID
	}
	if req.ArticleID != nil {
		task.ArticleID = req.ArticleID
	}
	if req.AssigneeID != nil {
		task.AssigneeID = req.AssigneeID
	}
	if req.DueAt != nil {
		task.DueAt = req.DueAt
	}
	if p := strings.TrimSpace(req.Priority); p != "" {
		task.Priority = p
	}
	if s := strings.TrimSpace(req.Status); s != "" && s != task.Status {
		task.Status = s
		if s == models.TaskStatusDone {
			now := time.Now()
			task.CompletedAt = &now
		} else {
			task.CompletedAt = nil
		}
	}
	if err := task.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", err.Error())
	}

	if err := repository.GetGlobalFactory().GetTaskRepository().Update(task); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update task")
	}
	return c.JSON(task)
}

// HandleDeleteTask deletes a task.
func HandleDeleteTask(c *fiber.Ctx) error {
	task, err := loadOrgTask(c)
	if err != nil {
		return err
	}
	if err := repository.GetGlobalFactory().GetTaskRepository().Delete(task.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete task")
	}
	return c.JSON(fiber.Map{"ok": true})
}

func loadOrgTask(c *fiber.Ctx) (*models.MaintenanceTask, error) {
	userCtx := usercontext.GetUserContext(c)
	id := paramUint(c, "id")
	if id == 0 {
		return nil, jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid task id")
	}

	task, err := repository.GetGlobalFactory().GetTaskRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Task not found")
		}
		return nil, jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load task")
	}
	if task.OrganizationID != userCtx.OrganizationID {
		return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Task not found")
	}
	return task, nil
}
