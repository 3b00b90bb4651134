package api

import (
	"github.com/starford/clubqa/internal/identity"
	"github.com/starford/clubqa/internal/models"
)

// CreateQuestionRequest is the request body for creating a question.
type CreateQuestionRequest struct {
	Title  string  `json:"title" example:"SQL Injection 방어 방법" validate:"required"`
	Body   string  `json:"body" example:"Prepared statements are not an option here because..." validate:"required"`
	TagIDs []int64 `json:"tag_ids" example:"1,5" validate:"required"`
}

// UpdateQuestionRequest is the request body for editing a question. Omitted
// fields are left unchanged.
type UpdateQuestionRequest struct {
	Title  *string `json:"title,omitempty" example:"SQL Injection 방어 방법 (MySQL)"`
	Body   *string `json:"body,omitempty"`
	TagIDs []int64 `json:"tag_ids,omitempty" example:"1"`
}

// TextRequest is the request body for answers and comments.
type TextRequest struct {
	Body string `json:"body" example:"Use parameterized queries." validate:"required"`
}

// Question is the full question response type (aliased from the domain layer).
type Question = models.Question

// Answer is a single answer response (aliased from the domain layer).
type Answer = models.Answer

// Comment is a single comment response (aliased from the domain layer).
type Comment = models.Comment

// QuestionPage is one page of question summaries.
type QuestionPage = models.Page[models.QuestionSummary]

// AnswerPage is one page of answers.
type AnswerPage = models.Page[models.Answer]

// TagListResponse wraps the tag catalog.
type TagListResponse struct {
	Tags []models.Tag `json:"tags" validate:"required"`
}

// CommentListResponse wraps a comment thread.
type CommentListResponse struct {
	Comments []models.Comment `json:"comments" validate:"required"`
}

// MeResponse describes the resolved caller.
type MeResponse struct {
	identity.Principal
	Guest bool `json:"guest"`
}
