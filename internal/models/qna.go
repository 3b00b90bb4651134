// Package models defines the domain types for the Q&A board.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/clubqa/internal/identity"
)

// Tag is an entry of the closed tag catalog.
type Tag struct {
	ID    int64  `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Style string `json:"style,omitempty" yaml:"style"`
}

// ParentType identifies what a comment is attached to.
type ParentType string

const (
	ParentQuestion ParentType = "QUESTION"
	ParentAnswer   ParentType = "ANSWER"
)

// ParseParentType accepts QUESTION or ANSWER case-insensitively.
func ParseParentType(s string) (ParentType, error) {
	switch ParentType(strings.ToUpper(strings.TrimSpace(s))) {
	case ParentQuestion:
		return ParentQuestion, nil
	case ParentAnswer:
		return ParentAnswer, nil
	}
	return "", fmt.Errorf("unknown parent type %q", s)
}

// Question is a top-level post with its answers and comments.
type Question struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	Body              string        `json:"body"`
	AuthorID          string        `json:"author_id"`
	AuthorRole        identity.Role `json:"author_role"`
	Tags              []Tag         `json:"tags"`
	ViewCount         int64         `json:"view_count"`
	AnswerCount       int           `json:"answer_count"`
	HasAcceptedAnswer bool          `json:"has_accepted_answer"`
	Bookmarked        bool          `json:"bookmarked"`
	Checksum          string        `json:"checksum"`
	Answers           []Answer      `json:"answers"`
	Comments          []Comment     `json:"comments"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Answer is a response to a question.
type Answer struct {
	ID         string        `json:"id"`
	QuestionID string        `json:"question_id"`
	Body       string        `json:"body"`
	AuthorID   string        `json:"author_id"`
	AuthorRole identity.Role `json:"author_role"`
	IsAccepted bool          `json:"is_accepted"`
	Upvotes    int           `json:"upvotes"`
	HasUpvoted bool          `json:"has_upvoted"`
	Comments   []Comment     `json:"comments"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Comment is attached to exactly one question or answer.
type Comment struct {
	ID         string        `json:"id"`
	ParentType ParentType    `json:"parent_type"`
	ParentID   string        `json:"parent_id"`
	Body       string        `json:"body"`
	AuthorID   string        `json:"author_id"`
	AuthorRole identity.Role `json:"author_role"`
	CreatedAt  time.Time     `json:"created_at"`
}

// QuestionSummary is the listing representation of a question.
type QuestionSummary struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Excerpt           string    `json:"excerpt"`
	AuthorID          string    `json:"author_id"`
	Tags              []Tag     `json:"tags"`
	AnswerCount       int       `json:"answer_count"`
	ViewCount         int64     `json:"view_count"`
	HasAcceptedAnswer bool      `json:"has_accepted_answer"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Page is one offset page of results.
type Page[T any] struct {
	Items         []T `json:"items"`
	Page          int `json:"page"`
	Size          int `json:"size"`
	TotalElements int `json:"total_elements"`
	TotalPages    int `json:"total_pages"`
}

// NewPage builds a Page, computing TotalPages from total and size.
func NewPage[T any](items []T, page, size, total int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return &Page[T]{
		Items:         items,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    pages,
	}
}

// AcceptResult describes the acceptance state after an accept toggle.
type AcceptResult struct {
	QuestionID        string `json:"question_id"`
	AnswerID          string `json:"answer_id"`
	Accepted          bool   `json:"accepted"`
	HasAcceptedAnswer bool   `json:"has_accepted_answer"`
	Replayed          bool   `json:"-"`
}

// VoteResult is the caller's view of an answer's upvotes after a toggle.
type VoteResult struct {
	AnswerID   string `json:"answer_id"`
	Count      int    `json:"count"`
	HasUpvoted bool   `json:"has_upvoted"`
	Replayed   bool   `json:"-"`
}

// BookmarkResult is the caller's bookmark flag after a toggle.
type BookmarkResult struct {
	QuestionID string `json:"question_id"`
	Bookmarked bool   `json:"bookmarked"`
	Replayed   bool   `json:"-"`
}
