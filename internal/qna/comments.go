package qna

import (
	"context"

	"github.com/starford/clubqa/internal/apperr"
	"github.com/starford/clubqa/internal/identity"
	"github.com/starford/clubqa/internal/models"
)

// AddComment appends a comment to a question or an answer. Comments are
// append-only.
func (s *Service) AddComment(ctx context.Context, p identity.Principal, parentType models.ParentType, parentID, body string) (*models.Comment, error) {
	if !identity.CanCreate(p) {
		return nil, apperr.LoginRequired()
	}
	body, err := validateText(body)
	if err != nil {
		return nil, err
	}
	c := models.Comment{
		ID:         s.newID(),
		ParentType: parentType,
		ParentID:   parentID,
		Body:       body,
		AuthorID:   p.ID,
		AuthorRole: p.Role,
		CreatedAt:  s.timestamp(),
	}
	questionID, err := s.repo.InsertComment(ctx, c)
	if err != nil {
		return nil, err
	}
	answerID := ""
	if parentType == models.ParentAnswer {
		answerID = parentID
	}
	s.emit(EventCommentCreated, questionID, answerID)
	return &c, nil
}

// ListComments returns a parent's comments in creation order.
func (s *Service) ListComments(ctx context.Context, parentType models.ParentType, parentID string) ([]models.Comment, error) {
	if _, err := s.repo.CommentParent(ctx, parentType, parentID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, parentType, parentID)
}
