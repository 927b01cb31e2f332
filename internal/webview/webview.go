// Package webview serves a recorded pipeline run for operator inspection:
// the rendered HTML reports plus JSON views of the question bank, the
// question-to-header mappings (including below-threshold near misses), and
// the resolved answer letters.
package webview

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kevinhitt/canvas-grading/internal/model"
	"github.com/kevinhitt/canvas-grading/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store      *store.Store
	reportsDir string
}

// New creates a new Handler serving the given store and reports directory.
func New(s *store.Store, reportsDir string) *Handler {
	return &Handler{store: s, reportsDir: reportsDir}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/run", h.handleRun)
	r.Get("/api/questions", h.handleQuestions)
	r.Get("/api/mappings", h.handleMappings)
	r.Get("/api/resolutions", h.handleResolutions)
	r.Handle("/*", http.FileServer(http.Dir(h.reportsDir)))
}

type runView struct {
	SourceXML      string  `json:"source_xml"`
	Gradebook      string  `json:"gradebook"`
	Threshold      float64 `json:"threshold"`
	FuzzyThreshold float64 `json:"fuzzy_threshold"`
	CompletedAt    string  `json:"completed_at"`
}

type choiceView struct {
	Letter     string `json:"letter"`
	ResponseID string `json:"response_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
}

type questionView struct {
	QuestionID   string       `json:"question_id"`
	QuestionText string       `json:"question_text"`
	CorrectLabel string       `json:"correct_label,omitempty"`
	Choices      []choiceView `json:"choices"`
}

type mappingView struct {
	Group         int     `json:"xml_group"`
	MatchedHeader *string `json:"matched_header"`
	Score         float64 `json:"score"`
	Snippet       string  `json:"xml_snippet"`
}

type resolutionView struct {
	Student string `json:"student"`
	Header  string `json:"header"`
	Letter  string `json:"letter"`
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	info, err := h.store.GetRunInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, runView{
		SourceXML:      info.SourceXML,
		Gradebook:      info.Gradebook,
		Threshold:      info.Threshold,
		FuzzyThreshold: info.FuzzyThreshold,
		CompletedAt:    info.CompletedAt,
	})
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListItems()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]questionView, 0, len(items))
	for _, it := range items {
		qv := questionView{
			QuestionID:   it.QuestionID,
			QuestionText: it.QuestionText,
			CorrectLabel: it.CorrectLabel(),
		}
		for i, c := range it.Choices {
			qv.Choices = append(qv.Choices, choiceView{
				Letter:     model.Letter(i),
				ResponseID: c.ResponseID,
				Text:       c.Text,
				IsCorrect:  c.IsCorrect,
			})
		}
		views = append(views, qv)
	}
	writeJSON(w, views)
}

func (h *Handler) handleMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.store.ListMappings()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]mappingView, 0, len(mappings))
	for _, m := range mappings {
		mv := mappingView{Group: m.Group, Score: m.Score, Snippet: m.Snippet}
		if m.Matched() {
			header := m.Header
			mv.MatchedHeader = &header
		}
		views = append(views, mv)
	}
	writeJSON(w, views)
}

func (h *Handler) handleResolutions(w http.ResponseWriter, r *http.Request) {
	resolutions, err := h.store.ListResolutions()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]resolutionView, 0, len(resolutions))
	for _, res := range resolutions {
		views = append(views, resolutionView(res))
	}
	writeJSON(w, views)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
