package qna

import (
	"context"
	"log/slog"
	"math"

	"github.com/starford/clubqa/internal/apperr"
	"github.com/starford/clubqa/internal/checksum"
	"github.com/starford/clubqa/internal/identity"
	"github.com/starford/clubqa/internal/models"
	"github.com/starford/clubqa/internal/store"
)

// CreateQuestionInput is the user-supplied part of a new question.
type CreateQuestionInput struct {
	Title  string
	Body   string
	TagIDs []int64
}

// UpdateQuestionInput carries the fields to change. Nil fields are kept.
type UpdateQuestionInput struct {
	Title  *string
	Body   *string
	TagIDs []int64
}

// CreateQuestion validates and stores a new question authored by p.
func (s *Service) CreateQuestion(ctx context.Context, p identity.Principal, in CreateQuestionInput) (*models.Question, error) {
	if !identity.CanCreate(p) {
		return nil, apperr.LoginRequired()
	}
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	body, err := validateQuestionBody(in.Body)
	if err != nil {
		return nil, err
	}
	tags, err := s.catalog.ValidateSelection(in.TagIDs)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	row := store.QuestionRow{
		ID:         s.newID(),
		Title:      title,
		Body:       body,
		AuthorID:   p.ID,
		AuthorRole: p.Role,
		TagIDs:     tags,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertQuestion(ctx, row); err != nil {
		return nil, err
	}
	s.emit(EventQuestionCreated, row.ID, "")
	return s.toQuestion(&row), nil
}

// GetQuestion returns the full question detail as seen by viewer. It does
// not count a view.
func (s *Service) GetQuestion(ctx context.Context, id string, viewer identity.Principal) (*models.Question, error) {
	row, err := s.repo.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	vid := viewerID(viewer)

	answers, _, err := s.repo.ListAnswers(ctx, id, vid, store.AnswerOrder{}, 0, -1)
	if err != nil {
		return nil, err
	}
	answerComments, err := s.repo.ListAnswerComments(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.repo.ListComments(ctx, models.ParentQuestion, id)
	if err != nil {
		return nil, err
	}
	bookmarked, err := s.repo.IsBookmarked(ctx, id, vid)
	if err != nil {
		return nil, err
	}

	q := s.toQuestion(row)
	accepted := false
	for i := range answers {
		if c, ok := answerComments[answers[i].ID]; ok {
			answers[i].Comments = c
		}
		accepted = accepted || answers[i].IsAccepted
	}
	// The answers were read in one statement; derive the flags from them so
	// the detail never contradicts itself.
	q.Answers = answers
	q.AnswerCount = len(answers)
	q.HasAcceptedAnswer = accepted
	q.Comments = comments
	q.Bookmarked = bookmarked
	return q, nil
}

// ViewQuestion is GetQuestion plus a best-effort view count increment.
// Counter failures are logged and never returned.
func (s *Service) ViewQuestion(ctx context.Context, id string, viewer identity.Principal) (*models.Question, error) {
	q, err := s.GetQuestion(ctx, id, viewer)
	if err != nil {
		return nil, err
	}
	pending, err := s.views.Incr(ctx, id)
	if err != nil {
		s.log.Warn("view count increment failed", slog.String("question", id), slog.String("error", err.Error()))
		return q, nil
	}
	q.ViewCount += pending
	return q, nil
}

// UpdateQuestion edits a question. Only the author or an admin may edit.
// A non-empty ifMatch must equal the current checksum.
func (s *Service) UpdateQuestion(ctx context.Context, p identity.Principal, id string, in UpdateQuestionInput, ifMatch string) (*models.Question, error) {
	if p.IsGuest() {
		return nil, apperr.LoginRequired()
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	row, err := s.repo.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if !identity.CanModify(p, row.AuthorID) {
		return nil, apperr.Forbidden(apperr.CodeNotOwner, "only the author or an admin may edit this question")
	}
	if ifMatch != "" && ifMatch != checksum.Question(row.Title, row.Body, row.TagIDs, row.UpdatedAt) {
		return nil, apperr.New(apperr.ErrConflict, apperr.CodeChecksumMismatch, "question was modified since it was read")
	}

	if in.Title != nil {
		if row.Title, err = validateTitle(*in.Title); err != nil {
			return nil, err
		}
	}
	if in.Body != nil {
		if row.Body, err = validateQuestionBody(*in.Body); err != nil {
			return nil, err
		}
	}
	if in.TagIDs != nil {
		if row.TagIDs, err = s.catalog.ValidateSelection(in.TagIDs); err != nil {
			return nil, err
		}
	}
	row.UpdatedAt = s.timestamp()
	if err := s.repo.UpdateQuestion(ctx, *row); err != nil {
		return nil, err
	}
	s.emit(EventQuestionUpdated, id, "")
	return s.GetQuestion(ctx, id, p)
}

// DeleteQuestion removes a question with everything attached to it. Only
// the author or an admin may delete.
func (s *Service) DeleteQuestion(ctx context.Context, p identity.Principal, id string) error {
	if p.IsGuest() {
		return apperr.LoginRequired()
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	author, err := s.repo.QuestionAuthor(ctx, id)
	if err != nil {
		return err
	}
	if !identity.CanModify(p, author) {
		return apperr.Forbidden(apperr.CodeNotOwner, "only the author or an admin may delete this question")
	}
	if err := s.repo.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	s.emit(EventQuestionDeleted, id, "")
	return nil
}

// ToggleBookmark flips p's bookmark on a question. A repeated key replays
// the first outcome.
func (s *Service) ToggleBookmark(ctx context.Context, p identity.Principal, questionID, key string) (*models.BookmarkResult, error) {
	if !identity.CanVote(p) {
		return nil, apperr.LoginRequired()
	}
	return s.repo.ToggleBookmark(ctx, questionID, p.ID, key)
}

// ListBookmarks returns p's bookmarked questions, newest bookmark first.
func (s *Service) ListBookmarks(ctx context.Context, p identity.Principal, page, size int) (*models.Page[models.QuestionSummary], error) {
	if p.IsGuest() {
		return nil, apperr.LoginRequired()
	}
	page, size, offset, err := s.pageBounds(page, size)
	if err != nil {
		return nil, err
	}
	rows, total, err := s.repo.ListBookmarks(ctx, p.ID, offset, size)
	if err != nil {
		return nil, err
	}
	return models.NewPage(s.toSummaries(rows), page, size, total), nil
}

// Search returns one page of question summaries matching q.
func (s *Service) Search(ctx context.Context, q models.SearchQuery) (*models.Page[models.QuestionSummary], error) {
	page, size, offset, err := s.pageBounds(q.Page, q.Size)
	if err != nil {
		return nil, err
	}
	sortBy, err := models.ParseSortField(string(q.SortBy))
	if err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidQuery, err.Error())
	}
	dir, err := models.ParseSortDirection(string(q.SortDirection), models.SortDesc)
	if err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidQuery, err.Error())
	}
	status, err := models.ParseStatus(string(q.Status))
	if err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidQuery, err.Error())
	}
	tags, err := s.catalog.ValidateFilter(q.TagIDs)
	if err != nil {
		return nil, err
	}

	rows, total, err := s.repo.Search(ctx, store.SearchParams{
		Keyword: q.Keyword,
		Status:  status,
		TagIDs:  tags,
		SortBy:  sortBy,
		Desc:    dir == models.SortDesc,
		Offset:  offset,
		Limit:   size,
	})
	if err != nil {
		return nil, err
	}
	return models.NewPage(s.toSummaries(rows), page, size, total), nil
}

// pageBounds applies the default and maximum page sizes and returns the row
// offset of page. An offset past math.MaxInt saturates, which the store
// treats as past the end.
func (s *Service) pageBounds(page, size int) (int, int, int, error) {
	if page < 0 {
		return 0, 0, 0, apperr.Validation(apperr.CodeInvalidQuery, "page must not be negative")
	}
	if size < 0 {
		return 0, 0, 0, apperr.Validation(apperr.CodeInvalidQuery, "size must not be negative")
	}
	if size == 0 {
		size = s.defaultSize
	}
	if size > s.maxSize {
		size = s.maxSize
	}
	offset := math.MaxInt
	if page <= math.MaxInt/size {
		offset = page * size
	}
	return page, size, offset, nil
}
