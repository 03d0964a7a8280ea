package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/CodeCubCA/voicechat/internal/assistant"
	"github.com/CodeCubCA/voicechat/internal/config"
	"github.com/CodeCubCA/voicechat/internal/observability"
	"github.com/CodeCubCA/voicechat/internal/persona"
	"github.com/CodeCubCA/voicechat/internal/protocol"
	"github.com/CodeCubCA/voicechat/internal/session"
)

// Engine processes one UI event against a session and returns the rendered
// view.
type Engine interface {
	Process(ctx context.Context, s *session.Session, ev assistant.Event) assistant.View
}

const (
	wsReadTimeout  = 120 * time.Second
	wsPingInterval = 45 * time.Second
)

type Server struct {
	cfg          config.Config
	sessions     *session.Manager
	engine       Engine
	catalog      *persona.Catalog
	metrics      *observability.Metrics
	upgrader     websocket.Upgrader
	static       http.Handler
	pingInterval time.Duration
}

func New(cfg config.Config, sessions *session.Manager, engine Engine, catalog *persona.Catalog, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:          cfg,
		sessions:     sessions,
		engine:       engine,
		catalog:      catalog,
		metrics:      metrics,
		static:       newStaticHandler(),
		pingInterval: wsPingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other websites cannot drive a user's chat
				// session if the service is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Handle("/ui/*", http.StripPrefix("/ui/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/v1/chat/catalog", s.handleCatalog)

	r.Post("/v1/chat/session", s.handleCreateSession)
	r.Get("/v1/chat/session/ws", s.handleSessionWS)
	r.Get("/v1/chat/session/{id}", s.handleGetView)
	r.Post("/v1/chat/session/{id}/end", s.handleEndSession)
	r.Post("/v1/chat/session/{id}/message", s.handleMessage)
	r.Post("/v1/chat/session/{id}/recording", s.handleRecording)
	r.Post("/v1/chat/session/{id}/settings", s.handleSettings)
	r.Post("/v1/chat/session/{id}/reset", s.handleReset)
	r.Get("/v1/chat/session/{id}/audio/{turn}", s.handleTurnAudio)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"active_sessions": s.sessions.ActiveCount(),
	})
}

type catalogResponse struct {
	Personalities []persona.Personality `json:"personalities"`
	Languages     []persona.Language    `json:"languages"`
	Voices        []persona.Voice       `json:"voices"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	voices := s.catalog.Voices
	if tag := strings.TrimSpace(r.URL.Query().Get("language")); tag != "" {
		voices = s.catalog.VoicesForLanguage(tag)
	}
	respondJSON(w, http.StatusOK, catalogResponse{
		Personalities: s.catalog.Personalities,
		Languages:     s.catalog.Languages,
		Voices:        voices,
	})
}

type createSessionRequest struct {
	PersonalityID string `json:"personality_id"`
	LanguageID    string `json:"language_id"`
	VoiceID       string `json:"voice_id"`
}

type createSessionResponse struct {
	SessionID       string         `json:"session_id"`
	Status          session.Status `json:"status"`
	PersonalityID   string         `json:"personality_id"`
	LanguageID      string         `json:"language_id"`
	VoiceID         string         `json:"voice_id"`
	StartedAt       time.Time      `json:"started_at"`
	InactivityTTLMS int64          `json:"inactivity_ttl_ms"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	personality := s.catalog.DefaultPersonality()
	if id := strings.TrimSpace(req.PersonalityID); id != "" {
		p, ok := s.catalog.Personality(id)
		if !ok {
			respondError(w, http.StatusBadRequest, "unknown_personality", id)
			return
		}
		personality = p
	}
	language := s.catalog.DefaultLanguage()
	if id := strings.TrimSpace(req.LanguageID); id != "" {
		l, ok := s.catalog.Language(id)
		if !ok {
			respondError(w, http.StatusBadRequest, "unknown_language", id)
			return
		}
		language = l
	}
	voiceID := ""
	if v, ok := s.catalog.DefaultVoice(language.Tag); ok {
		voiceID = v.ID
	}
	if id := strings.TrimSpace(req.VoiceID); id != "" {
		v, ok := s.catalog.Voice(id)
		if !ok || !strings.EqualFold(v.Language, language.Tag) {
			respondError(w, http.StatusBadRequest, "unknown_voice", id)
			return
		}
		voiceID = v.ID
	}

	sess := s.sessions.Create(personality.ID, language.ID, voiceID)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()

	respondJSON(w, http.StatusCreated, createSessionResponse{
		SessionID:       sess.ID,
		Status:          sess.Status,
		PersonalityID:   sess.PersonalityID,
		LanguageID:      sess.LanguageID,
		VoiceID:         sess.VoiceID,
		StartedAt:       sess.StartedAt,
		InactivityTTLMS: s.cfg.SessionInactivityTimeout.Milliseconds(),
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.engine.Process(r.Context(), sess, nil))
}

type messageRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "empty_message", "text is required")
		return
	}
	s.metrics.SessionEvents.WithLabelValues("message").Inc()
	respondJSON(w, http.StatusOK, s.engine.Process(r.Context(), sess, assistant.TextSubmitted{Text: req.Text}))
}

// handleRecording accepts the raw recording bytes as the request body, the
// way the browser recorder uploads them.
func (s *Server) handleRecording(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, int64(s.cfg.MaxRecordingBytes)+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	defer r.Body.Close()
	if len(body) > s.cfg.MaxRecordingBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "recording_too_large", "recording exceeds size limit")
		return
	}
	if len(body) == 0 {
		respondError(w, http.StatusBadRequest, "empty_recording", "recording body is required")
		return
	}
	s.metrics.SessionEvents.WithLabelValues("recording").Inc()
	respondJSON(w, http.StatusOK, s.engine.Process(r.Context(), sess, assistant.RecordingCaptured{Audio: body}))
}

type settingsRequest struct {
	PersonalityID string `json:"personality_id"`
	LanguageID    string `json:"language_id"`
	VoiceID       string `json:"voice_id"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.engine.Process(r.Context(), sess, assistant.SettingsChanged{
		PersonalityID: req.PersonalityID,
		LanguageID:    req.LanguageID,
		VoiceID:       req.VoiceID,
	}))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.engine.Process(r.Context(), sess, assistant.ResetRequested{}))
}

// handleTurnAudio streams the cached synthesis for one turn. Audio is only
// ever served from the cache; a miss means the turn has no speech yet.
func (s *Server) handleTurnAudio(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	turn, err := strconv.Atoi(chi.URLParam(r, "turn"))
	if err != nil || turn < 0 {
		respondError(w, http.StatusBadRequest, "invalid_turn_index", chi.URLParam(r, "turn"))
		return
	}

	sess.Lock()
	entry, found := sess.Audio.Get(turn)
	sess.Unlock()
	if !found {
		respondError(w, http.StatusNotFound, "audio_not_found", "no cached audio for turn")
		return
	}

	w.Header().Set("Content-Type", entry.Clip.MIMEType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(entry.Clip.Audio)
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	defer s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()

	conn.SetReadLimit(int64(s.cfg.MaxRecordingBytes) * 2)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	out := &wsWriter{conn: conn}

	// Keepalive pings extend the read deadline through the pong handler, so
	// an idle browser tab is not severed at the read timeout.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if out.write(websocket.PingMessage, nil) != nil {
					return
				}
			}
		}
	}()

	// Push the current view immediately so a reconnecting client repaints.
	if !out.writeView(s.engine.Process(r.Context(), sess, nil)) {
		return
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_ = s.sessions.Touch(sessionID)
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			if !out.writeFrame(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Detail:    err.Error(),
			}) {
				return
			}
			continue
		}

		ev, err := s.eventFromMessage(parsed)
		if err != nil {
			if !out.writeFrame(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Detail:    err.Error(),
			}) {
				return
			}
			continue
		}

		if !out.writeView(s.engine.Process(r.Context(), sess, ev)) {
			return
		}
	}
}

// wsWriter serializes writes on one websocket connection; the view/error
// frames and the keepalive pings come from different goroutines.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) write(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.conn.WriteMessage(messageType, data)
}

func (w *wsWriter) writeFrame(v any) bool {
	frame, err := protocol.MarshalServerMessage(v)
	if err != nil {
		return false
	}
	return w.write(websocket.TextMessage, frame) == nil
}

func (w *wsWriter) writeView(view assistant.View) bool {
	return w.writeFrame(protocol.ViewUpdate{Type: protocol.TypeViewUpdate, View: view})
}

// eventFromMessage maps a parsed protocol frame to an engine event. A nil
// event is a plain re-render.
func (s *Server) eventFromMessage(parsed any) (assistant.Event, error) {
	switch m := parsed.(type) {
	case protocol.TextSubmitted:
		return assistant.TextSubmitted{Text: m.Text}, nil
	case protocol.RecordingCaptured:
		audio, err := m.Audio()
		if err != nil {
			return nil, err
		}
		if len(audio) > s.cfg.MaxRecordingBytes {
			return nil, errors.New("recording exceeds size limit")
		}
		return assistant.RecordingCaptured{Audio: audio}, nil
	case protocol.SettingsChanged:
		return assistant.SettingsChanged{
			PersonalityID: m.PersonalityID,
			LanguageID:    m.LanguageID,
			VoiceID:       m.VoiceID,
		}, nil
	case protocol.ResetRequested:
		return assistant.ResetRequested{}, nil
	case protocol.Refresh:
		return nil, nil
	default:
		return nil, protocol.ErrUnsupportedType
	}
}

// lookupSession resolves the session and stamps activity through the manager,
// which owns the lifecycle fields.
func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return nil, false
	}
	_ = s.sessions.Touch(id)
	return sess, true
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
