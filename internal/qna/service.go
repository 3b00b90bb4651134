// Package qna implements the question and answer board: question lifecycle,
// answer acceptance, upvotes, comment threads, bookmarks and search.
package qna

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/clubqa/internal/checksum"
	"github.com/starford/clubqa/internal/identity"
	"github.com/starford/clubqa/internal/keylock"
	"github.com/starford/clubqa/internal/models"
	"github.com/starford/clubqa/internal/parser"
	"github.com/starford/clubqa/internal/store"
	"github.com/starford/clubqa/internal/tagcatalog"
)

// Event kinds emitted after applied mutations.
const (
	EventQuestionCreated  = "question.created"
	EventQuestionUpdated  = "question.updated"
	EventQuestionDeleted  = "question.deleted"
	EventAnswerCreated    = "answer.created"
	EventAnswerUpdated    = "answer.updated"
	EventAnswerDeleted    = "answer.deleted"
	EventAnswerAccepted   = "answer.accepted"
	EventAnswerUnaccepted = "answer.unaccepted"
	EventAnswerVoted      = "answer.voted"
	EventCommentCreated   = "comment.created"
)

// Event describes a change to the board.
type Event struct {
	Kind       string `json:"kind"`
	QuestionID string `json:"question_id"`
	AnswerID   string `json:"answer_id,omitempty"`
}

// ViewCounter records question views. Incr returns how many recorded views
// are not yet reflected in a store read taken before the call.
type ViewCounter interface {
	Incr(ctx context.Context, questionID string) (int64, error)
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
	excerptRunes    = 140
)

// Service coordinates the store, the tag catalog and per-question locking.
type Service struct {
	repo    store.Repository
	catalog *tagcatalog.Catalog
	locks   keylock.Map

	views  ViewCounter
	notify func(Event)
	log    *slog.Logger
	now    func() time.Time
	newID  func() string

	defaultSize int
	maxSize     int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for best-effort failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithViewCounter replaces the default store-backed view counter.
func WithViewCounter(v ViewCounter) Option {
	return func(s *Service) { s.views = v }
}

// WithNotifier registers a callback invoked after every applied mutation.
// Replayed idempotent requests do not notify.
func WithNotifier(fn func(Event)) Option {
	return func(s *Service) { s.notify = fn }
}

// WithPageSizes overrides the default and maximum listing page sizes.
func WithPageSizes(def, max int) Option {
	return func(s *Service) {
		if def > 0 {
			s.defaultSize = def
		}
		if max > 0 {
			s.maxSize = max
		}
	}
}

// WithClock overrides time.Now, used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a board service over repo and catalog.
func NewService(repo store.Repository, catalog *tagcatalog.Catalog, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		catalog:     catalog,
		notify:      func(Event) {},
		log:         slog.Default(),
		now:         time.Now,
		newID:       uuid.NewString,
		defaultSize: defaultPageSize,
		maxSize:     maxPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.views == nil {
		s.views = storeViews{repo: repo}
	}
	if s.defaultSize > s.maxSize {
		s.defaultSize = s.maxSize
	}
	return s
}

// ListTags returns the tag catalog in display order.
func (s *Service) ListTags() []models.Tag {
	return s.catalog.List()
}

// storeViews writes views straight to the store.
type storeViews struct {
	repo store.Repository
}

func (v storeViews) Incr(ctx context.Context, questionID string) (int64, error) {
	if _, err := v.repo.IncrViews(ctx, questionID); err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

func (s *Service) emit(kind, questionID, answerID string) {
	s.notify(Event{Kind: kind, QuestionID: questionID, AnswerID: answerID})
}

// viewerID returns the id used for per-viewer flags; guests have none.
func viewerID(p identity.Principal) string {
	if p.IsGuest() {
		return ""
	}
	return p.ID
}

func (s *Service) toQuestion(row *store.QuestionRow) *models.Question {
	return &models.Question{
		ID:                row.ID,
		Title:             row.Title,
		Body:              row.Body,
		AuthorID:          row.AuthorID,
		AuthorRole:        row.AuthorRole,
		Tags:              s.catalog.Resolve(row.TagIDs),
		ViewCount:         row.ViewCount,
		AnswerCount:       row.AnswerCount,
		HasAcceptedAnswer: row.HasAcceptedAnswer,
		Checksum:          checksum.Question(row.Title, row.Body, row.TagIDs, row.UpdatedAt),
		Answers:           []models.Answer{},
		Comments:          []models.Comment{},
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

func (s *Service) toSummaries(rows []store.SummaryRow) []models.QuestionSummary {
	out := make([]models.QuestionSummary, len(rows))
	for i, r := range rows {
		out[i] = models.QuestionSummary{
			ID:                r.ID,
			Title:             r.Title,
			Excerpt:           parser.Excerpt(r.Body, excerptRunes),
			AuthorID:          r.AuthorID,
			Tags:              s.catalog.Resolve(r.TagIDs),
			AnswerCount:       r.AnswerCount,
			ViewCount:         r.ViewCount,
			HasAcceptedAnswer: r.HasAcceptedAnswer,
			CreatedAt:         r.CreatedAt,
			UpdatedAt:         r.UpdatedAt,
		}
	}
	return out
}
