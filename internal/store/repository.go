package store

import (
	"context"
	"time"

	"github.com/starford/clubqa/internal/models"
)

// Repository defines the persistence operations the Q&A service needs.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type Repository interface {
	InsertQuestion(ctx context.Context, q QuestionRow) error
	UpdateQuestion(ctx context.Context, q QuestionRow) error
	DeleteQuestion(ctx context.Context, id string) error
	GetQuestion(ctx context.Context, id string) (*QuestionRow, error)
	QuestionAuthor(ctx context.Context, id string) (string, error)

	InsertAnswer(ctx context.Context, a models.Answer) error
	GetAnswer(ctx context.Context, id, viewer string) (*models.Answer, error)
	ListAnswers(ctx context.Context, questionID, viewer string, order AnswerOrder, offset, limit int) ([]models.Answer, int, error)
	UpdateAnswerBody(ctx context.Context, a models.Answer) error
	DeleteAnswer(ctx context.Context, questionID, answerID string) (bool, error)
	ToggleAcceptance(ctx context.Context, questionID, answerID, actor, key string) (*models.AcceptResult, error)

	ToggleUpvote(ctx context.Context, answerID, voter, key string) (*models.VoteResult, string, error)

	CommentParent(ctx context.Context, parentType models.ParentType, parentID string) (string, error)
	InsertComment(ctx context.Context, c models.Comment) (string, error)
	ListComments(ctx context.Context, parentType models.ParentType, parentID string) ([]models.Comment, error)
	ListAnswerComments(ctx context.Context, questionID string) (map[string][]models.Comment, error)

	ToggleBookmark(ctx context.Context, questionID, user, key string) (*models.BookmarkResult, error)
	IsBookmarked(ctx context.Context, questionID, user string) (bool, error)
	ListBookmarks(ctx context.Context, user string, offset, limit int) ([]SummaryRow, int, error)

	Search(ctx context.Context, p SearchParams) ([]SummaryRow, int, error)

	IncrViews(ctx context.Context, questionID string) (int64, error)
	AddViewCounts(ctx context.Context, batchID string, deltas map[string]int64) error
	PruneViewBatches(ctx context.Context, cutoff time.Time) (int64, error)
	PruneIdempotencyKeys(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}

// Verify *DB satisfies Repository at compile time.
var _ Repository = (*DB)(nil)
