// Package httpapi exposes the debate orchestration service over a JSON HTTP
// API, including a server-sent-events stream of session snapshots.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/openpodium/podium/internal/debate/domain"
	"github.com/openpodium/podium/internal/debate/service"
	"github.com/openpodium/podium/internal/platform/errors"
)

// Handler serves the debate HTTP API.
type Handler struct {
	service     *service.Service
	broadcaster *Broadcaster
	mux         *http.ServeMux
}

// New builds the API handler. The broadcaster should be the same instance
// the service notifies through.
func New(svc *service.Service, broadcaster *Broadcaster) *Handler {
	h := &Handler{
		service:     svc,
		broadcaster: broadcaster,
		mux:         http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /api/sessions", h.createSession)
	h.mux.HandleFunc("GET /api/sessions", h.listSessions)
	h.mux.HandleFunc("GET /api/sessions/active", h.activeSession)
	h.mux.HandleFunc("GET /api/sessions/{id}", h.getSession)
	h.mux.HandleFunc("DELETE /api/sessions/{id}", h.deleteSession)
	h.mux.HandleFunc("POST /api/sessions/{id}/select", h.selectSession)
	h.mux.HandleFunc("POST /api/sessions/{id}/motion", h.submitMotion)
	h.mux.HandleFunc("POST /api/sessions/{id}/prep/start", h.startPrep)
	h.mux.HandleFunc("POST /api/sessions/{id}/prep/pause", h.pausePrep)
	h.mux.HandleFunc("POST /api/sessions/{id}/prep/skip", h.skipPrep)
	h.mux.HandleFunc("PATCH /api/sessions/{id}/speakers/{speakerID}", h.renameSpeaker)
	h.mux.HandleFunc("POST /api/sessions/{id}/speakers/{speakerID}/timer/start", h.startSpeechTimer)
	h.mux.HandleFunc("POST /api/sessions/{id}/speakers/{speakerID}/timer/pause", h.pauseSpeechTimer)
	h.mux.HandleFunc("POST /api/sessions/{id}/speakers/{speakerID}/timer/reset", h.resetSpeechTimer)
	h.mux.HandleFunc("POST /api/sessions/{id}/speakers/{speakerID}/speech", h.submitSpeech)
	h.mux.HandleFunc("POST /api/sessions/{id}/finish", h.finishDebate)
	h.mux.HandleFunc("GET /api/sessions/{id}/events", h.streamEvents)

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type speakerPayload struct {
	ID                 string  `json:"id"`
	Role               string  `json:"role"`
	Team               string  `json:"team"`
	Name               string  `json:"name"`
	Completed          bool    `json:"completed"`
	SpeechSecondsLeft  int     `json:"speechSecondsLeft"`
	SpeechTimerRunning bool    `json:"speechTimerRunning"`
	Transcription      string  `json:"transcription,omitempty"`
	Score              float64 `json:"score"`
	Feedback           string  `json:"feedback,omitempty"`
	AudioRef           string  `json:"audioRef,omitempty"`
}

type motionContextPayload struct {
	Language   string   `json:"language"`
	Criteria   []string `json:"criteria"`
	Background string   `json:"background"`
}

type teamResultPayload struct {
	Team       string  `json:"team"`
	Rank       int     `json:"rank"`
	TotalScore float64 `json:"totalScore"`
	Reasoning  string  `json:"reasoning"`
}

type sessionPayload struct {
	ID                string                `json:"id"`
	Title             string                `json:"title"`
	CreatedAt         time.Time             `json:"createdAt"`
	Motion            string                `json:"motion"`
	MotionContext     *motionContextPayload `json:"motionContext,omitempty"`
	Phase             string                `json:"phase"`
	PrepSecondsLeft   int                   `json:"prepSecondsLeft"`
	PrepTimerRunning  bool                  `json:"prepTimerRunning"`
	Adjudicating      bool                  `json:"adjudicating"`
	Speakers          []speakerPayload      `json:"speakers"`
	CompletedSpeakers int                   `json:"completedSpeakers"`
	FinalRankings     []teamResultPayload   `json:"finalRankings,omitempty"`
	Adjudication      string                `json:"adjudication,omitempty"`
}

func toSessionPayload(session domain.Session) sessionPayload {
	payload := sessionPayload{
		ID:                session.ID,
		Title:             session.Title,
		CreatedAt:         session.CreatedAt,
		Motion:            session.Motion,
		Phase:             string(session.Phase),
		PrepSecondsLeft:   session.PrepSecondsLeft,
		PrepTimerRunning:  session.PrepTimerRunning,
		Adjudicating:      session.Adjudicating,
		CompletedSpeakers: session.CompletedSpeakers(),
		Adjudication:      session.Adjudication,
	}
	if session.MotionContext != nil {
		payload.MotionContext = &motionContextPayload{
			Language:   session.MotionContext.Language,
			Criteria:   session.MotionContext.Criteria,
			Background: session.MotionContext.Background,
		}
	}
	payload.Speakers = make([]speakerPayload, 0, len(session.Speakers))
	for _, sp := range session.Speakers {
		payload.Speakers = append(payload.Speakers, speakerPayload{
			ID:                 sp.ID,
			Role:               string(sp.Role),
			Team:               string(sp.Team),
			Name:               sp.Name,
			Completed:          sp.Completed,
			SpeechSecondsLeft:  sp.SpeechSecondsLeft,
			SpeechTimerRunning: sp.SpeechTimerRunning,
			Transcription:      sp.Transcription,
			Score:              sp.Score,
			Feedback:           sp.Feedback,
			AudioRef:           sp.AudioRef,
		})
	}
	for _, result := range session.FinalRankings {
		payload.FinalRankings = append(payload.FinalRankings, teamResultPayload{
			Team:       string(result.Team),
			Rank:       result.Rank,
			TotalScore: result.TotalScore,
			Reasoning:  result.Reasoning,
		})
	}
	return payload
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)
	var payload errorPayload
	payload.Error.Code = string(code)
	payload.Error.Message = err.Error()
	writeJSON(w, code.HTTPStatus(), payload)
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeError(w, errors.Wrap(errors.CodeUnknown, "invalid request body", err))
		return false
	}
	return true
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if r.ContentLength != 0 && !decodeBody(w, r, &body) {
		return
	}
	session, err := h.service.CreateSession(r.Context(), body.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionPayload(session))
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListSessions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	payloads := make([]sessionPayload, 0, len(sessions))
	for _, session := range sessions {
		payloads = append(payloads, toSessionPayload(session))
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionPayload(session))
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) selectSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SelectSession(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activeSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.ActiveSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionPayload(session))
}

func (h *Handler) submitMotion(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Motion   string `json:"motion"`
		SkipPrep bool   `json:"skipPrep"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	session, err := h.service.SubmitMotion(r.Context(), r.PathValue("id"), body.Motion, body.SkipPrep)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionPayload(session))
}

func (h *Handler) startPrep(w http.ResponseWriter, r *http.Request) {
	h.sessionAction(w, r, h.service.StartPrep)
}

func (h *Handler) pausePrep(w http.ResponseWriter, r *http.Request) {
	h.sessionAction(w, r, h.service.PausePrep)
}

func (h *Handler) skipPrep(w http.ResponseWriter, r *http.Request) {
	h.sessionAction(w, r, h.service.SkipPrep)
}

func (h *Handler) finishDebate(w http.ResponseWriter, r *http.Request) {
	h.sessionAction(w, r, h.service.FinishDebate)
}

func (h *Handler) sessionAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, sessionID string) (domain.Session, error)) {
	session, err := action(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionPayload(session))
}

func (h *Handler) renameSpeaker(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	session, err := h.service.RenameSpeaker(r.Context(), r.PathValue("id"), r.PathValue("speakerID"), body.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionPayload(session))
}

func (h *Handler) startSpeechTimer(w http.ResponseWriter, r *http.Request) {
	h.speakerAction(w, r, h.service.StartSpeechTimer)
}

func (h *Handler) pauseSpeechTimer(w http.ResponseWriter, r *http.Request) {
	h.speakerAction(w, r, h.service.PauseSpeechTimer)
}

func (h *Handler) resetSpeechTimer(w http.ResponseWriter, r *http.Request) {
	h.speakerAction(w, r, h.service.ResetSpeechTimer)
}

func (h *Handler) speakerAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, sessionID, speakerID string) (domain.Session, error)) {
	session, err := action(r.Context(), r.PathValue("id"), r.PathValue("speakerID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionPayload(session))
}

func (h *Handler) submitSpeech(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AudioRef string `json:"audioRef"`
		Audio    []byte `json:"audio"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	session, err := h.service.SubmitSpeech(r.Context(), service.SubmitSpeechInput{
		SessionID: r.PathValue("id"),
		SpeakerID: r.PathValue("speakerID"),
		Audio:     body.Audio,
		AudioRef:  body.AudioRef,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionPayload(session))
}

// streamEvents serves an SSE stream of session snapshots: one event on
// connect, then one per change signal. The stream ends when the client goes
// away or the session is deleted.
func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errors.New(errors.CodeUnknown, "streaming unsupported"))
		return
	}

	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	signals, cancel := h.broadcaster.Subscribe(sessionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if !writeEvent(w, flusher, session) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case <-signals:
			session, err := h.service.GetSession(r.Context(), sessionID)
			if err != nil {
				// Deleted; end the stream.
				return
			}
			if !writeEvent(w, flusher, session) {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, session domain.Session) bool {
	data, err := json.Marshal(toSessionPayload(session))
	if err != nil {
		log.Printf("marshal session event: %v", err)
		return false
	}
	if _, err := fmt.Fprintf(w, "event: session\ndata: %s\n\n", data); err != nil {
		return false
	}
	flusher.Flush()
	return true
}
