package handlers

import (
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/dto"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/services"
	"github.com/gofiber/fiber/v2"
)

// StoryHandler serves the public submission and engagement endpoints.
type StoryHandler struct {
	intake  *services.Intake
	store   *services.StoryStore
	tracker *services.EngagementTracker
}

func NewStoryHandler(intake *services.Intake, store *services.StoryStore, tracker *services.EngagementTracker) *StoryHandler {
	return &StoryHandler{intake: intake, store: store, tracker: tracker}
}

// Submit never reveals moderation state to the submitter.
func (h *StoryHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitStoryRequest
	if err := parseBody(c, &req, false); err != nil {
		return respondError(c, err)
	}

	id, _ := middleware.GetIdentity(c)
	story, err := h.intake.Submit(c.UserContext(), id, services.Submission{
		Title:    req.Title,
		Body:     req.Body,
		Category: req.Category,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SubmitStoryResponse{
		Message: "Thanks! Your story was received.",
		ID:      story.ID,
	})
}

func (h *StoryHandler) Get(c *fiber.Ctx) error {
	id, err := storyID(c)
	if err != nil {
		return respondError(c, err)
	}
	story, err := h.store.GetPublic(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(story)
}

func (h *StoryHandler) Featured(c *fiber.Ctx) error {
	story, err := h.store.Featured(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(story)
}

func (h *StoryHandler) View(c *fiber.Ctx) error {
	id, err := storyID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req dto.EngagementRequest
	if err := parseBody(c, &req, true); err != nil {
		return respondError(c, err)
	}

	who := h.identity(c, req.SessionID)
	res, err := h.tracker.RecordView(c.UserContext(), id, who)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ViewResponse{Recorded: res.Recorded, SessionID: who.SessionToken})
}

func (h *StoryHandler) Like(c *fiber.Ctx) error {
	id, err := storyID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req dto.EngagementRequest
	if err := parseBody(c, &req, true); err != nil {
		return respondError(c, err)
	}

	who := h.identity(c, req.SessionID)
	res, err := h.tracker.ToggleLike(c.UserContext(), id, who)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.LikeResponse{Liked: res.Liked, LikeCount: res.LikeCount, SessionID: who.SessionToken})
}

// Report answers the same way whether or not this identity already reported.
func (h *StoryHandler) Report(c *fiber.Ctx) error {
	id, err := storyID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req dto.ReportStoryRequest
	if err := parseBody(c, &req, false); err != nil {
		return respondError(c, err)
	}

	who := h.identity(c, req.SessionID)
	res, err := h.tracker.RecordReport(c.UserContext(), id, who, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ReportResponse{Success: true, ReportCount: res.ReportCount, SessionID: who.SessionToken})
}

// identity lets a session id sent in the body stand in for the header.
func (h *StoryHandler) identity(c *fiber.Ctx, bodySession string) services.Identity {
	id, _ := middleware.GetIdentity(c)
	id = id.WithSession(bodySession)
	middleware.SetIdentity(c, id)
	return id
}
