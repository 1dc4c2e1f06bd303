// Package api serves the operator HTTP surface: store status, live question
// listings, manual answers, on-demand suggestions, and the audit log.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"sellerdesk/internal/answer"
	"sellerdesk/internal/config"
	"sellerdesk/internal/dispatch"
	"sellerdesk/internal/filter"
	"sellerdesk/internal/knowledge"
	"sellerdesk/internal/marketplace"
	"sellerdesk/internal/panel"
)

const maxRequestBodySize = 1 << 20 // 1MB

// SnapshotSource serves the latest automation pass result.
type SnapshotSource interface {
	Latest() panel.Snapshot
}

// KnowledgeReader is the read-only slice of the knowledge store the API
// needs.
type KnowledgeReader interface {
	ListTemplates() ([]knowledge.Template, error)
	RecentAnswers(limit int) ([]knowledge.AnswerRecord, error)
}

// Deps holds the API handler dependencies.
type Deps struct {
	Token     string
	Stores    []panel.Store
	Snapshots SnapshotSource
	Tracker   *dispatch.Tracker
	Generator panel.Generator
	Knowledge KnowledgeReader
}

// NewHandler returns the operator API handler. Everything except /health
// requires the bearer token.
func NewHandler(deps Deps) http.Handler {
	byName := make(map[string]panel.Store, len(deps.Stores))
	for _, st := range deps.Stores {
		byName[st.Config.Name] = st
	}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/status", handleStatus(deps))
		r.Get("/stores", handleStores(deps))
		r.Get("/stores/{store}/questions", handleQuestions(deps, byName))
		r.Post("/stores/{store}/questions/{id}/answer", handleAnswer(deps, byName))
		r.Post("/stores/{store}/questions/{id}/suggest", handleSuggest(deps, byName))
		r.Get("/templates", handleTemplates(deps))
		r.Get("/answers", handleAnswers(deps))
	})

	return r
}

type storeInfo struct {
	Name          string `json:"name"`
	SellerID      string `json:"seller_id"`
	ApproveClaims bool   `json:"approve_claims"`
	AutoAnswer    bool   `json:"auto_answer"`
	Notify        bool   `json:"notify"`
	DelayMinutes  int    `json:"delay_minutes"`
}

func storeInfoFrom(cfg config.StoreConfig) storeInfo {
	return storeInfo{
		Name:          cfg.Name,
		SellerID:      cfg.SellerID,
		ApproveClaims: cfg.ApproveClaims,
		AutoAnswer:    cfg.AutoAnswer,
		Notify:        cfg.Notify,
		DelayMinutes:  cfg.DelayMinutes,
	}
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stores := make([]storeInfo, len(deps.Stores))
		for i, st := range deps.Stores {
			stores[i] = storeInfoFrom(st.Config)
		}
		writeJSON(w, map[string]any{
			"snapshot": deps.Snapshots.Latest(),
			"stores":   stores,
		})
	}
}

func handleStores(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stores := make([]storeInfo, len(deps.Stores))
		for i, st := range deps.Stores {
			stores[i] = storeInfoFrom(st.Config)
		}
		writeJSON(w, stores)
	}
}

func handleQuestions(deps Deps, byName map[string]panel.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok := byName[chi.URLParam(r, "store")]
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "unknown store")
			return
		}

		questions, err := st.Client.WaitingQuestions(r.Context())
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "fetching questions: %v", err)
			return
		}

		type questionInfo struct {
			ID      int64  `json:"id"`
			Product string `json:"product"`
			Text    string `json:"text"`
			Handled bool   `json:"handled"`
		}
		out := make([]questionInfo, len(questions))
		for i, q := range questions {
			out[i] = questionInfo{
				ID:      q.ID,
				Product: q.ProductName,
				Text:    q.Text,
				Handled: deps.Tracker.HandledQuestion(st.Config.Name, q.ID),
			}
		}
		writeJSON(w, out)
	}
}

type answerBody struct {
	Text string `json:"text"`
}

func handleAnswer(deps Deps, byName map[string]panel.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, questionID, ok := storeAndQuestion(w, r, byName)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var body answerBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		text := strings.TrimSpace(body.Text)
		if text == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "text is required")
			return
		}

		if ok, why := filter.Check(text); !ok {
			httpError(w, http.StatusUnprocessableEntity, "content_policy_error", "answer rejected: %s", why)
			return
		}

		out := deps.Tracker.DispatchAnswer(r.Context(), st.Client, st.Config.Name, questionID, text, "api")
		switch out.Status {
		case dispatch.StatusSent:
			writeJSON(w, map[string]string{"status": string(out.Status)})
		case dispatch.StatusAlreadyHandled:
			httpError(w, http.StatusConflict, "conflict", "question %d was already answered", questionID)
		default:
			httpError(w, http.StatusBadGateway, "api_error", "sending answer: %v", out.Err)
		}
	}
}

func handleSuggest(deps Deps, byName map[string]panel.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, questionID, ok := storeAndQuestion(w, r, byName)
		if !ok {
			return
		}

		questions, err := st.Client.WaitingQuestions(r.Context())
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "fetching questions: %v", err)
			return
		}
		var q marketplace.Question
		found := false
		for _, cand := range questions {
			if cand.ID == questionID {
				q = cand
				found = true
				break
			}
		}
		if !found {
			httpError(w, http.StatusNotFound, "not_found", "question %d is not waiting for an answer", questionID)
			return
		}

		res := deps.Generator.Generate(r.Context(), q.ProductName, q.Text)
		switch res.Reason {
		case answer.ReasonNone:
			writeJSON(w, map[string]string{"text": res.Text})
		case answer.ReasonServiceError:
			httpError(w, http.StatusBadGateway, "api_error", "generation failed: %s", res.Detail)
		default:
			httpError(w, http.StatusUnprocessableEntity, "generation_refused", "%s: %s", res.Reason, res.Detail)
		}
	}
}

func handleTemplates(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templates, err := deps.Knowledge.ListTemplates()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing templates: %v", err)
			return
		}
		if templates == nil {
			templates = []knowledge.Template{}
		}
		writeJSON(w, templates)
	}
}

func handleAnswers(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		answers, err := deps.Knowledge.RecentAnswers(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing answers: %v", err)
			return
		}
		if answers == nil {
			answers = []knowledge.AnswerRecord{}
		}
		writeJSON(w, answers)
	}
}

// storeAndQuestion resolves the {store} and {id} URL params, writing the
// error response itself when either is invalid.
func storeAndQuestion(w http.ResponseWriter, r *http.Request, byName map[string]panel.Store) (panel.Store, int64, bool) {
	st, ok := byName[chi.URLParam(r, "store")]
	if !ok {
		httpError(w, http.StatusNotFound, "not_found", "unknown store")
		return panel.Store{}, 0, false
	}
	questionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid question id")
		return panel.Store{}, 0, false
	}
	return st, questionID, true
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
