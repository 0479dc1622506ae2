package controllers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/facilohq/facilo/app/models"
	"github.com/facilohq/facilo/app/repository"
	"github.com/facilohq/facilo/internal/pkg/database"
	"github.com/facilohq/facilo/internal/pkg/docstore"
	"github.com/facilohq/facilo/internal/pkg/quota"
	"github.com/facilohq/facilo/internal/pkg/thumbnail"
	"github.com/facilohq/facilo/internal/pkg/usercontext"
)

// HandleListDocuments lists the organization's documents.
func HandleListDocuments(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	offset, limit := pagination(c)

	docs, err := repository.GetGlobalFactory().GetDocumentRepository().
		ListByOrg(userCtx.OrganizationID, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load documents")
	}
	return c.JSON(fiber.Map{"documents": docs})
}

// HandleUploadDocument stores a file. The storage quota is checked with the
// file's byte size as the delta before the upload; the usage snapshot is
// incremented after the metadata row commits. The pre-check is advisory:
// two concurrent uploads can both pass at the boundary.
func HandleUploadDocument(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "file is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	counters := quota.NewGormCounters(database.GetDB())
	decision, err := newQuotaGuard().CheckLimit(ctx, userCtx.OrganizationID, quota.KindStorage, fileHeader.Size)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Quota check failed")
	}
	if !decision.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":    "quota_exceeded",
			"message":  "Storage limit reached for the current plan",
			"decision": decision,
			"upgrade":  "/account/billing",
		})
	}

	store, err := docstore.GetClient()
	if err != nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "storage_unavailable", "Document storage is not configured")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Cannot read uploaded file")
	}
	defer src.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc := &models.Document{
		UUID:           uuid.New().String(),
		OrganizationID: userCtx.OrganizationID,
		UploaderID:     userCtx.UserID,
		FileName:       filepath.Base(fileHeader.Filename),
		ContentType:    contentType,
		FileSize:       fileHeader.Size,
	}
	if objID := uint(c.QueryInt("object_id", 0)); objID > 0 {
		doc.FacilityObjectID = &objID
	}
	if taskID := uint(c.QueryInt("task_id", 0)); taskID > 0 {
		doc.TaskID = &taskID
	}

	now := time.Now()
	cfg, err := docstore.LoadConfig()
	if err != nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "storage_unavailable", "Document storage is not configured")
	}
	doc.ObjectKey = cfg.ObjectKey(doc.OrganizationID, doc.UUID, strings.ToLower(filepath.Ext(doc.FileName)), now)

	// Images are buffered so the thumbnail can be generated from the same
	// bytes; everything else streams straight through.
	if doc.IsImage() {
		data, err := io.ReadAll(src)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Cannot read uploaded file")
		}
		if err := store.Upload(ctx, doc.ObjectKey, doc.ContentType, doc.FileSize, bytes.NewReader(data)); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Upload failed")
		}
		if thumb, terr := thumbnail.Generate(bytes.NewReader(data)); terr == nil {
			key := cfg.ThumbnailKey(doc.OrganizationID, doc.UUID, now)
			if uerr := store.Upload(ctx, key, "image/jpeg", int64(len(thumb)), bytes.NewReader(thumb)); uerr == nil {
				doc.ThumbnailKey = key
			} else {
				log.Warnf("thumbnail upload for document %s failed: %v", doc.UUID, uerr)
			}
		} else {
			log.Warnf("thumbnail generation for document %s failed: %v", doc.UUID, terr)
		}
	} else {
		if err := store.Upload(ctx, doc.ObjectKey, doc.ContentType, doc.FileSize, src); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Upload failed")
		}
	}

	if err := repository.GetGlobalFactory().GetDocumentRepository().Create(doc); err != nil {
		// Roll the object back so storage and metadata stay aligned.
		if derr := store.Delete(ctx, doc.ObjectKey); derr != nil {
			log.Errorf("orphaned object %s after failed metadata insert: %v", doc.ObjectKey, derr)
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save document")
	}

	if err := counters.AddStorageBytes(ctx, doc.OrganizationID, doc.FileSize); err != nil {
		// The snapshot drifts until the next reconciliation run.
		log.Errorf("storage snapshot increment for org %d failed: %v", doc.OrganizationID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(doc)
}

// HandleDownloadDocument streams a stored document.
func HandleDownloadDocument(c *fiber.Ctx) error {
	doc, err := loadOrgDocument(c)
	if err != nil {
		return err
	}

	store, serr := docstore.GetClient()
	if serr != nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "storage_unavailable", "Document storage is not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	body, derr := store.Download(ctx, doc.ObjectKey)
	if derr != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Download failed")
	}

	c.Set(fiber.HeaderContentType, doc.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+doc.FileName+`"`)
	return c.SendStream(body, int(doc.FileSize))
}

// HandleDeleteDocument removes a document and releases its bytes from the
// usage snapshot. Deletions are never quota-checked.
func HandleDeleteDocument(c *fiber.Ctx) error {
	doc, err := loadOrgDocument(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if store, serr := docstore.GetClient(); serr == nil {
		if derr := store.Delete(ctx, doc.ObjectKey); derr != nil {
			log.Warnf("object delete for document %s failed: %v", doc.UUID, derr)
		}
		if doc.ThumbnailKey != "" {
			if derr := store.Delete(ctx, doc.ThumbnailKey); derr != nil {
				log.Warnf("thumbnail delete for document %s failed: %v", doc.UUID, derr)
			}
		}
	}

	if err := repository.GetGlobalFactory().GetDocumentRepository().Delete(doc.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete document")
	}

	counters := quota.NewGormCounters(database.GetDB())
	if err := counters.AddStorageBytes(ctx, doc.OrganizationID, -doc.FileSize); err != nil {
		log.Errorf("storage snapshot decrement for org %d failed: %v", doc.OrganizationID, err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

func loadOrgDocument(c *fiber.Ctx) (*models.Document, error) {
	userCtx := usercontext.GetUserContext(c)
	docUUID := strings.TrimSpace(c.Params("uuid"))
	if docUUID == "" {
		return nil, jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid document id")
	}

	doc, err := repository.GetGlobalFactory().GetDocumentRepository().GetByUUID(docUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Document not found")
		}
		return nil, jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load document")
	}
	if doc.OrganizationID != userCtx.OrganizationID {
		return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Document not found")
	}
	return doc, nil
}
