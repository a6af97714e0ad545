package handlers

import (
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/dto"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/jobs"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ModerationHandler serves the staff endpoints. Routes are gated by
// middleware.StaffRequired.
type ModerationHandler struct {
	queue     *services.ModerationQueue
	reconcile *jobs.ReconcileJob
}

func NewModerationHandler(queue *services.ModerationQueue, reconcile *jobs.ReconcileJob) *ModerationHandler {
	return &ModerationHandler{queue: queue, reconcile: reconcile}
}

func (h *ModerationHandler) ListAll(c *fiber.Ctx) error {
	page := pageFromQuery(c)
	stories, total, err := h.queue.ListAll(c.UserContext(), c.Query("status"), page)
	return h.list(c, stories, total, page, err)
}

func (h *ModerationHandler) ListPending(c *fiber.Ctx) error {
	page := pageFromQuery(c)
	stories, total, err := h.queue.ListPending(c.UserContext(), page)
	return h.list(c, stories, total, page, err)
}

func (h *ModerationHandler) ListReported(c *fiber.Ctx) error {
	page := pageFromQuery(c)
	stories, total, err := h.queue.ListReported(c.UserContext(), page)
	return h.list(c, stories, total, page, err)
}

func (h *ModerationHandler) list(c *fiber.Ctx, stories []models.Story, total int64, page services.Page, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	page = page.Normalize()
	return c.JSON(dto.StoryListResponse{
		Stories: stories,
		Total:   total,
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
}

func (h *ModerationHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.queue.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

func (h *ModerationHandler) Moderate(c *fiber.Ctx) error {
	id, err := storyID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req dto.ModerateStoryRequest
	if err := parseBody(c, &req, false); err != nil {
		return respondError(c, err)
	}

	res, err := h.queue.Moderate(c.UserContext(), id, req.Decision, req.Featured)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *ModerationHandler) BulkModerate(c *fiber.Ctx) error {
	var req dto.BulkModerateRequest
	if err := parseBody(c, &req, false); err != nil {
		return respondError(c, err)
	}

	ids := make([]uuid.UUID, 0, len(req.StoryIDs))
	for _, raw := range req.StoryIDs {
		// Already checked by the uuid rule.
		ids = append(ids, uuid.MustParse(raw))
	}

	res, err := h.queue.BulkModerate(c.UserContext(), ids, req.Decision)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *ModerationHandler) Delete(c *fiber.Ctx) error {
	id, err := storyID(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.queue.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Reconcile runs the counter reconciliation pass synchronously.
func (h *ModerationHandler) Reconcile(c *fiber.Ctx) error {
	report, err := h.reconcile.Reconcile(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

func pageFromQuery(c *fiber.Ctx) services.Page {
	return services.Page{
		Limit:  c.QueryInt("limit", services.DefaultPageSize),
		Offset: c.QueryInt("offset", 0),
	}
}
