package models

import (
	"fmt"
	"strings"
)

// Status filters questions on their derived acceptance flag.
type Status string

const (
	StatusAll        Status = "ALL"
	StatusAnswered   Status = "ANSWERED"
	StatusUnanswered Status = "UNANSWERED"
)

// SortField names a sortable question attribute.
type SortField string

const (
	SortCreatedAt   SortField = "createdAt"
	SortUpdatedAt   SortField = "updatedAt"
	SortViewCount   SortField = "viewCount"
	SortAnswerCount SortField = "answerCount"
	SortTitle       SortField = "title"
)

// SortDirection is ASC or DESC.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// SearchQuery is the input of the question search.
type SearchQuery struct {
	Page          int
	Size          int
	SortBy        SortField
	SortDirection SortDirection
	Status        Status
	Keyword       string
	TagIDs        []int64
}

// ParseStatus accepts status names case-insensitively; empty means ALL.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusAnswered:
		return StatusAnswered, nil
	case StatusUnanswered:
		return StatusUnanswered, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// ParseSortField accepts camelCase or snake_case field names; empty means
// createdAt.
func ParseSortField(s string) (SortField, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	switch key {
	case "", "createdat":
		return SortCreatedAt, nil
	case "updatedat":
		return SortUpdatedAt, nil
	case "viewcount", "views":
		return SortViewCount, nil
	case "answercount", "answers":
		return SortAnswerCount, nil
	case "title":
		return SortTitle, nil
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// ParseSortDirection accepts asc/desc case-insensitively; empty yields def.
func ParseSortDirection(s string, def SortDirection) (SortDirection, error) {
	switch SortDirection(strings.ToUpper(strings.TrimSpace(s))) {
	case "":
		return def, nil
	case SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}
