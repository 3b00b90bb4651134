package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/clubqa/internal/apperr"
	"github.com/starford/clubqa/internal/identity"
	"github.com/starford/clubqa/internal/models"
	"github.com/starford/clubqa/internal/qna"
)

// HeaderIdempotencyKey lets clients retry toggles safely.
const HeaderIdempotencyKey = "Idempotency-Key"

// Handler holds API route handlers.
type Handler struct {
	svc *qna.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *qna.Service) *Handler {
	return &Handler{svc: svc}
}

func principal(r *http.Request) identity.Principal {
	return identity.FromContext(r.Context())
}

func idempotencyKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
}

func invalidQuery(msg string) error {
	return apperr.Validation(apperr.CodeInvalidQuery, msg)
}

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidQuery(name + " must be an integer")
	}
	return n, nil
}

// tagIDsParam accepts repeated and comma-separated tagIds values.
func tagIDsParam(r *http.Request) ([]int64, error) {
	var out []int64
	for _, v := range r.URL.Query()["tagIds"] {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, invalidQuery("tagIds must be integers")
			}
			out = append(out, id)
		}
	}
	return out, nil
}

// Me handles GET /api/me.
//
//	@Summary		Describe the resolved caller
//	@Tags			identity
//	@Produce		json
//	@Success		200	{object}	MeResponse
//	@Router			/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	writeJSON(w, http.StatusOK, MeResponse{Principal: p, Guest: p.IsGuest()})
}

// ListTags handles GET /api/tags.
//
//	@Summary		List the tag catalog
//	@Tags			tags
//	@Produce		json
//	@Success		200	{object}	TagListResponse
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TagListResponse{Tags: h.svc.ListTags()})
}

// SearchQuestions handles GET /api/questions.
//
//	@Summary		Search and list questions
//	@Tags			questions
//	@Produce		json
//	@Param			page			query		int		false	"Zero-based page"
//	@Param			size			query		int		false	"Page size (default 10, max 100)"
//	@Param			sortBy			query		string	false	"Sort field"	Enums(createdAt, updatedAt, viewCount, answerCount, title)
//	@Param			sortDirection	query		string	false	"Sort direction"	Enums(ASC, DESC)
//	@Param			status			query		string	false	"Answer status"	Enums(ALL, ANSWERED, UNANSWERED)
//	@Param			keyword			query		string	false	"Keyword in title or body"
//	@Param			tagIds			query		[]int	false	"Tag ids; matches any"
//	@Success		200				{object}	QuestionPage
//	@Failure		400				{object}	errResponse
//	@Router			/questions [get]
func (h *Handler) SearchQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(r, "page")
	if err != nil {
		writeError(w, r, "search", err, false)
		return
	}
	size, err := intParam(r, "size")
	if err != nil {
		writeError(w, r, "search", err, false)
		return
	}
	tags, err := tagIDsParam(r)
	if err != nil {
		writeError(w, r, "search", err, false)
		return
	}

	result, err := h.svc.Search(r.Context(), models.SearchQuery{
		Page:          page,
		Size:          size,
		SortBy:        models.SortField(q.Get("sortBy")),
		SortDirection: models.SortDirection(q.Get("sortDirection")),
		Status:        models.Status(q.Get("status")),
		Keyword:       q.Get("keyword"),
		TagIDs:        tags,
	})
	if err != nil {
		writeError(w, r, "search", err, false)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CreateQuestion handles POST /api/questions.
//
//	@Summary		Create a question
//	@Tags			questions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateQuestionRequest	true	"Question to create"
//	@Success		201		{object}	Question
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Router			/questions [post]
func (h *Handler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req CreateQuestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	q, err := h.svc.CreateQuestion(r.Context(), principal(r), qna.CreateQuestionInput{
		Title:  req.Title,
		Body:   req.Body,
		TagIDs: req.TagIDs,
	})
	if err != nil {
		writeError(w, r, "create question", err, false)
		return
	}
	w.Header().Set("ETag", strconv.Quote(q.Checksum))
	writeJSON(w, http.StatusCreated, q)
}

// GetQuestion handles GET /api/questions/{questionID}. Each call counts a view.
//
//	@Summary		Get a question with answers and comments
//	@Tags			questions
//	@Produce		json
//	@Param			questionID	path		string	true	"Question id"
//	@Success		200			{object}	Question
//	@Failure		404			{object}	errResponse
//	@Router			/questions/{questionID} [get]
func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.ViewQuestion(r.Context(), chi.URLParam(r, "questionID"), principal(r))
	if err != nil {
		writeError(w, r, "get question", err, false)
		return
	}
	w.Header().Set("ETag", strconv.Quote(q.Checksum))
	writeJSON(w, http.StatusOK, q)
}

// UpdateQuestion handles PUT /api/questions/{questionID}.
//
//	@Summary		Edit a question with optimistic concurrency
//	@Tags			questions
//	@Accept			json
//	@Produce		json
//	@Param			questionID	path		string					true	"Question id"
//	@Param			If-Match	header		string					false	"Checksum from the last read"
//	@Param			body		body		UpdateQuestionRequest	true	"Fields to change"
//	@Success		200			{object}	Question
//	@Failure		400			{object}	errResponse
//	@Failure		403			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Router			/questions/{questionID} [put]
func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	q, err := h.svc.UpdateQuestion(r.Context(), principal(r), chi.URLParam(r, "questionID"), qna.UpdateQuestionInput{
		Title:  req.Title,
		Body:   req.Body,
		TagIDs: req.TagIDs,
	}, ifMatch)
	if err != nil {
		writeError(w, r, "update question", err, false)
		return
	}
	w.Header().Set("ETag", strconv.Quote(q.Checksum))
	writeJSON(w, http.StatusOK, q)
}

// DeleteQuestion handles DELETE /api/questions/{questionID}.
//
//	@Summary		Delete a question with its answers and comments
//	@Tags			questions
//	@Param			questionID	path	string	true	"Question id"
//	@Success		204			"Question deleted"
//	@Failure		403			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Router			/questions/{questionID} [delete]
func (h *Handler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteQuestion(r.Context(), principal(r), chi.URLParam(r, "questionID")); err != nil {
		writeError(w, r, "delete question", err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAnswers handles GET /api/questions/{questionID}/answers.
//
//	@Summary		List a question's answers
//	@Tags			answers
//	@Produce		json
//	@Param			questionID		path		string	true	"Question id"
//	@Param			page			query		int		false	"Zero-based page"
//	@Param			size			query		int		false	"Page size"
//	@Param			sortBy			query		string	false	"Sort field"	Enums(createdAt, upvotes)
//	@Param			sortDirection	query		string	false	"Sort direction"	Enums(ASC, DESC)
//	@Success		200				{object}	AnswerPage
//	@Router			/questions/{questionID}/answers [get]
func (h *Handler) ListAnswers(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page")
	if err != nil {
		writeError(w, r, "list answers", err, false)
		return
	}
	size, err := intParam(r, "size")
	if err != nil {
		writeError(w, r, "list answers", err, false)
		return
	}
	q := r.URL.Query()
	result, err := h.svc.ListAnswers(r.Context(), chi.URLParam(r, "questionID"), principal(r), qna.AnswerQuery{
		Page:          page,
		Size:          size,
		SortBy:        q.Get("sortBy"),
		SortDirection: q.Get("sortDirection"),
	})
	if err != nil {
		writeError(w, r, "list answers", err, false)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// AddAnswer handles POST /api/questions/{questionID}/answers.
//
//	@Summary		Answer a question
//	@Tags			answers
//	@Accept			json
//	@Produce		json
//	@Param			questionID	path		string		true	"Question id"
//	@Param			body		body		TextRequest	true	"Answer body"
//	@Success		201			{object}	Answer
//	@Router			/questions/{questionID}/answers [post]
func (h *Handler) AddAnswer(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.svc.AddAnswer(r.Context(), principal(r), chi.URLParam(r, "questionID"), req.Body)
	if err != nil {
		writeError(w, r, "add answer", err, false)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// UpdateAnswer handles PUT /api/answers/{answerID}.
//
//	@Summary		Edit an answer
//	@Tags			answers
//	@Accept			json
//	@Produce		json
//	@Param			answerID	path		string		true	"Answer id"
//	@Param			body		body		TextRequest	true	"New body"
//	@Success		200			{object}	Answer
//	@Router			/answers/{answerID} [put]
func (h *Handler) UpdateAnswer(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.svc.UpdateAnswer(r.Context(), principal(r), chi.URLParam(r, "answerID"), req.Body)
	if err != nil {
		writeError(w, r, "update answer", err, false)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeleteAnswer handles DELETE /api/answers/{answerID}.
//
//	@Summary		Delete an answer
//	@Tags			answers
//	@Param			answerID	path	string	true	"Answer id"
//	@Success		204			"Answer deleted"
//	@Router			/answers/{answerID} [delete]
func (h *Handler) DeleteAnswer(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAnswer(r.Context(), principal(r), chi.URLParam(r, "answerID")); err != nil {
		writeError(w, r, "delete answer", err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AcceptAnswer handles POST /api/questions/{questionID}/answers/{answerID}/accept.
//
//	@Summary		Toggle acceptance of an answer
//	@Tags			answers
//	@Produce		json
//	@Param			questionID		path		string	true	"Question id"
//	@Param			answerID		path		string	true	"Answer id"
//	@Param			Idempotency-Key	header		string	false	"Repeat-safe request key"
//	@Success		200				{object}	models.AcceptResult
//	@Failure		403				{object}	errResponse
//	@Failure		404				{object}	errResponse
//	@Router			/questions/{questionID}/answers/{answerID}/accept [post]
func (h *Handler) AcceptAnswer(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.AcceptAnswer(r.Context(), principal(r),
		chi.URLParam(r, "questionID"), chi.URLParam(r, "answerID"), idempotencyKey(r))
	if err != nil {
		writeError(w, r, "accept answer", err, true)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ToggleUpvote handles POST /api/answers/{answerID}/upvote.
//
//	@Summary		Toggle the caller's upvote on an answer
//	@Tags			answers
//	@Produce		json
//	@Param			answerID		path		string	true	"Answer id"
//	@Param			Idempotency-Key	header		string	false	"Repeat-safe request key"
//	@Success		200				{object}	models.VoteResult
//	@Router			/answers/{answerID}/upvote [post]
func (h *Handler) ToggleUpvote(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ToggleUpvote(r.Context(), principal(r), chi.URLParam(r, "answerID"), idempotencyKey(r))
	if err != nil {
		writeError(w, r, "upvote", err, true)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListComments returns a handler for GET .../{id}/comments on the given
// parent type.
//
//	@Summary		List comments of a question or answer
//	@Tags			comments
//	@Produce		json
//	@Success		200	{object}	CommentListResponse
//	@Router			/questions/{questionID}/comments [get]
//	@Router			/answers/{answerID}/comments [get]
func (h *Handler) ListComments(parent models.ParentType, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		comments, err := h.svc.ListComments(r.Context(), parent, chi.URLParam(r, param))
		if err != nil {
			writeError(w, r, "list comments", err, false)
			return
		}
		writeJSON(w, http.StatusOK, CommentListResponse{Comments: comments})
	}
}

// AddComment returns a handler for POST .../{id}/comments on the given
// parent type.
//
//	@Summary		Comment on a question or answer
//	@Tags			comments
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TextRequest	true	"Comment body"
//	@Success		201		{object}	Comment
//	@Router			/questions/{questionID}/comments [post]
//	@Router			/answers/{answerID}/comments [post]
func (h *Handler) AddComment(parent models.ParentType, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TextRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		c, err := h.svc.AddComment(r.Context(), principal(r), parent, chi.URLParam(r, param), req.Body)
		if err != nil {
			writeError(w, r, "add comment", err, false)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

// ToggleBookmark handles POST /api/questions/{questionID}/bookmark.
//
//	@Summary		Toggle the caller's bookmark on a question
//	@Tags			bookmarks
//	@Produce		json
//	@Param			questionID		path		string	true	"Question id"
//	@Param			Idempotency-Key	header		string	false	"Repeat-safe request key"
//	@Success		200				{object}	models.BookmarkResult
//	@Router			/questions/{questionID}/bookmark [post]
func (h *Handler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ToggleBookmark(r.Context(), principal(r), chi.URLParam(r, "questionID"), idempotencyKey(r))
	if err != nil {
		writeError(w, r, "bookmark", err, true)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListBookmarks handles GET /api/me/bookmarks.
//
//	@Summary		List the caller's bookmarked questions
//	@Tags			bookmarks
//	@Produce		json
//	@Param			page	query		int	false	"Zero-based page"
//	@Param			size	query		int	false	"Page size"
//	@Success		200		{object}	QuestionPage
//	@Router			/me/bookmarks [get]
func (h *Handler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page")
	if err != nil {
		writeError(w, r, "list bookmarks", err, false)
		return
	}
	size, err := intParam(r, "size")
	if err != nil {
		writeError(w, r, "list bookmarks", err, false)
		return
	}
	result, err := h.svc.ListBookmarks(r.Context(), principal(r), page, size)
	if err != nil {
		writeError(w, r, "list bookmarks", err, false)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
