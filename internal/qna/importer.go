package qna

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/clubqa/internal/apperr"
	"github.com/starford/clubqa/internal/checksum"
	"github.com/starford/clubqa/internal/identity"
	"github.com/starford/clubqa/internal/parser"
)

// ImportReport counts the outcome of an import run.
type ImportReport struct {
	Imported int
	Failed   int
}

// ImportPosts creates one question per Markdown file in fsys. Frontmatter
// supplies title, tags (catalog names) and an optional author; files without
// an author are attributed to fallback. Files that fail validation are
// logged and counted, and the walk continues.
func (s *Service) ImportPosts(ctx context.Context, fsys fs.FS, fallback identity.Principal) (*ImportReport, error) {
	report := &ImportReport{}
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(path.Ext(p), ".md") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		q, err := s.importPost(ctx, data, fallback)
		if err != nil {
			report.Failed++
			s.log.Warn("import failed", slog.String("file", p), slog.String("error", err.Error()))
			return nil
		}
		report.Imported++
		s.log.Info("imported",
			slog.String("file", p),
			slog.String("question", q),
			slog.String("sha256", checksum.Sum(data)),
		)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("import: %w", err)
	}
	return report, nil
}

func (s *Service) importPost(ctx context.Context, data []byte, fallback identity.Principal) (string, error) {
	post, err := parser.Parse(data)
	if err != nil {
		return "", err
	}
	author := fallback
	if post.Author != "" {
		author = identity.Principal{ID: post.Author, Role: identity.RoleMember}
	}

	tagIDs := make([]int64, 0, len(post.Tags))
	for _, name := range post.Tags {
		t, ok := s.catalog.LookupName(name)
		if !ok {
			return "", apperr.Validation(apperr.CodeUnknownTag, fmt.Sprintf("unknown tag %q", name))
		}
		tagIDs = append(tagIDs, t.ID)
	}

	q, err := s.CreateQuestion(ctx, author, CreateQuestionInput{
		Title:  post.Title,
		Body:   post.Body,
		TagIDs: tagIDs,
	})
	if err != nil {
		return "", err
	}
	return q.ID, nil
}
