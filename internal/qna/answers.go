package qna

import (
	"context"
	"strings"

	"github.com/starford/clubqa/internal/apperr"
	"github.com/starford/clubqa/internal/identity"
	"github.com/starford/clubqa/internal/models"
	"github.com/starford/clubqa/internal/store"
)

// AnswerQuery selects a page of a question's answers. SortBy is createdAt
// (default, oldest first) or upvotes (default, most upvoted first).
type AnswerQuery struct {
	Page          int
	Size          int
	SortBy        string
	SortDirection string
}

// AddAnswer appends an answer to a question.
func (s *Service) AddAnswer(ctx context.Context, p identity.Principal, questionID, body string) (*models.Answer, error) {
	if !identity.CanCreate(p) {
		return nil, apperr.LoginRequired()
	}
	body, err := validateText(body)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(questionID)
	defer unlock()

	now := s.timestamp()
	a := models.Answer{
		ID:         s.newID(),
		QuestionID: questionID,
		Body:       body,
		AuthorID:   p.ID,
		AuthorRole: p.Role,
		Comments:   []models.Comment{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertAnswer(ctx, a); err != nil {
		return nil, err
	}
	s.emit(EventAnswerCreated, questionID, a.ID)
	return &a, nil
}

// ListAnswers returns one page of a question's answers as seen by viewer.
func (s *Service) ListAnswers(ctx context.Context, questionID string, viewer identity.Principal, q AnswerQuery) (*models.Page[models.Answer], error) {
	page, size, offset, err := s.pageBounds(q.Page, q.Size)
	if err != nil {
		return nil, err
	}
	var order store.AnswerOrder
	switch strings.ToLower(strings.TrimSpace(q.SortBy)) {
	case "", "createdat", "created_at":
	case "upvotes":
		order.ByUpvotes = true
		order.Desc = true
	default:
		return nil, apperr.Validation(apperr.CodeInvalidQuery, "answers sort by createdAt or upvotes")
	}
	def := models.SortAsc
	if order.Desc {
		def = models.SortDesc
	}
	dir, err := models.ParseSortDirection(q.SortDirection, def)
	if err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidQuery, err.Error())
	}
	order.Desc = dir == models.SortDesc

	if _, err := s.repo.QuestionAuthor(ctx, questionID); err != nil {
		return nil, err
	}
	answers, total, err := s.repo.ListAnswers(ctx, questionID, viewerID(viewer), order, offset, size)
	if err != nil {
		return nil, err
	}
	return models.NewPage(answers, page, size, total), nil
}

// UpdateAnswer replaces an answer's body. Only the author or an admin may
// edit.
func (s *Service) UpdateAnswer(ctx context.Context, p identity.Principal, answerID, body string) (*models.Answer, error) {
	if p.IsGuest() {
		return nil, apperr.LoginRequired()
	}
	body, err := validateText(body)
	if err != nil {
		return nil, err
	}
	a, err := s.repo.GetAnswer(ctx, answerID, p.ID)
	if err != nil {
		return nil, err
	}
	if !identity.CanModify(p, a.AuthorID) {
		return nil, apperr.Forbidden(apperr.CodeNotOwner, "only the author or an admin may edit this answer")
	}
	a.Body = body
	a.UpdatedAt = s.timestamp()
	if err := s.repo.UpdateAnswerBody(ctx, *a); err != nil {
		return nil, err
	}
	s.emit(EventAnswerUpdated, a.QuestionID, a.ID)
	return a, nil
}

// DeleteAnswer removes an answer and recomputes its question's acceptance
// flag. Only the author or an admin may delete.
func (s *Service) DeleteAnswer(ctx context.Context, p identity.Principal, answerID string) error {
	if p.IsGuest() {
		return apperr.LoginRequired()
	}
	a, err := s.repo.GetAnswer(ctx, answerID, "")
	if err != nil {
		return err
	}
	if !identity.CanModify(p, a.AuthorID) {
		return apperr.Forbidden(apperr.CodeNotOwner, "only the author or an admin may delete this answer")
	}

	unlock := s.locks.Lock(a.QuestionID)
	defer unlock()
	if _, err := s.repo.DeleteAnswer(ctx, a.QuestionID, answerID); err != nil {
		return err
	}
	s.emit(EventAnswerDeleted, a.QuestionID, answerID)
	return nil
}

// AcceptAnswer toggles acceptance of answerID on questionID. Only the
// question's author may call it. Accepting clears every other answer of the
// question in the same step; accepting the accepted answer clears it.
//
// A non-empty key makes the call retry-safe: repeating it with the same key
// returns the recorded outcome without toggling again or notifying.
func (s *Service) AcceptAnswer(ctx context.Context, p identity.Principal, questionID, answerID, key string) (*models.AcceptResult, error) {
	if p.IsGuest() {
		return nil, apperr.LoginRequired()
	}

	unlock := s.locks.Lock(questionID)
	defer unlock()

	author, err := s.repo.QuestionAuthor(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if !identity.CanAccept(p, author) {
		return nil, apperr.Forbidden(apperr.CodeNotQuestionAuthor, "only the question author may accept answers")
	}

	res, err := s.repo.ToggleAcceptance(ctx, questionID, answerID, p.ID, key)
	if err != nil {
		return nil, err
	}
	if !res.Replayed {
		kind := EventAnswerUnaccepted
		if res.Accepted {
			kind = EventAnswerAccepted
		}
		s.emit(kind, questionID, answerID)
	}
	return res, nil
}

// ToggleUpvote flips p's upvote on an answer and returns the new count and
// p's own flag.
func (s *Service) ToggleUpvote(ctx context.Context, p identity.Principal, answerID, key string) (*models.VoteResult, error) {
	if !identity.CanVote(p) {
		return nil, apperr.LoginRequired()
	}
	res, questionID, err := s.repo.ToggleUpvote(ctx, answerID, p.ID, key)
	if err != nil {
		return nil, err
	}
	if !res.Replayed {
		s.emit(EventAnswerVoted, questionID, answerID)
	}
	return res, nil
}
