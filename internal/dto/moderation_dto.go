package dto

type ModerateStoryRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved declined"`
	Featured bool   `json:"featured"`
}

type BulkModerateRequest struct {
	StoryIDs []string `json:"story_ids" validate:"required,min=1,max=100,dive,uuid"`
	Decision string   `json:"decision" validate:"required,oneof=approved declined"`
}

type StoryListResponse struct {
	Stories any   `json:"stories"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
}
