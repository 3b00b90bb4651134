package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/clubqa/internal/models"
	"github.com/starford/clubqa/internal/qna"
)

// RouterConfig controls authentication and optional endpoints.
type RouterConfig struct {
	// TokenGate enforces a shared Bearer token before identity resolution.
	TokenGate bool
	Token     string
	// Auth resolves the caller; nil trusts gateway headers.
	Auth Authenticator
	// Events, if non-nil, is mounted at GET /events.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *qna.Service, cfg RouterConfig) chi.Router {
	h := NewHandler(svc)
	auth := cfg.Auth
	if auth == nil {
		auth = HeaderAuth{}
	}

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.TokenGate, cfg.Token))
	r.Use(IdentityMiddleware(auth))

	r.Get("/me", h.Me)
	r.Get("/me/bookmarks", h.ListBookmarks)
	r.Get("/tags", h.ListTags)

	r.Route("/questions", func(r chi.Router) {
		r.Get("/", h.SearchQuestions)
		r.Post("/", h.CreateQuestion)

		r.Route("/{questionID}", func(r chi.Router) {
			r.Get("/", h.GetQuestion)
			r.Put("/", h.UpdateQuestion)
			r.Delete("/", h.DeleteQuestion)

			r.Get("/answers", h.ListAnswers)
			r.Post("/answers", h.AddAnswer)
			r.Post("/answers/{answerID}/accept", h.AcceptAnswer)

			r.Get("/comments", h.ListComments(models.ParentQuestion, "questionID"))
			r.Post("/comments", h.AddComment(models.ParentQuestion, "questionID"))

			r.Post("/bookmark", h.ToggleBookmark)
		})
	})

	r.Route("/answers/{answerID}", func(r chi.Router) {
		r.Put("/", h.UpdateAnswer)
		r.Delete("/", h.DeleteAnswer)
		r.Post("/upvote", h.ToggleUpvote)
		r.Get("/comments", h.ListComments(models.ParentAnswer, "answerID"))
		r.Post("/comments", h.AddComment(models.ParentAnswer, "answerID"))
	})

	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}

	return r
}
