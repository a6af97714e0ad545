package dto

import "github.com/google/uuid"

// Raw size caps only. Length policy is applied after markup is stripped.
type SubmitStoryRequest struct {
	Title    string `json:"title" validate:"required,max=2000"`
	Body     string `json:"body" validate:"required,max=20000"`
	Category string `json:"category" validate:"omitempty,max=30"`
}

type SubmitStoryResponse struct {
	Message string    `json:"message"`
	ID      uuid.UUID `json:"id"`
}

type EngagementRequest struct {
	SessionID string `json:"session_id"`
}

type ReportStoryRequest struct {
	Reason    string `json:"reason"`
	SessionID string `json:"session_id"`
}

type ViewResponse struct {
	Recorded  bool   `json:"recorded"`
	SessionID string `json:"session_id"`
}

type LikeResponse struct {
	Liked     bool   `json:"liked"`
	LikeCount int64  `json:"like_count"`
	SessionID string `json:"session_id"`
}

type ReportResponse struct {
	Success     bool   `json:"success"`
	ReportCount int64  `json:"report_count"`
	SessionID   string `json:"session_id"`
}
