// apps/go-server/internal/httpserver/server.go
//
// HTTP server wiring for the memory game backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs,
//     request metrics).
//   - Public endpoints: "/", "/health", "/metrics", "/debug/categories".
//   - Round endpoints: POST /rounds creates a round and hands out a session
//     token; everything under /rounds/{id} requires that token.
//   - Render feed: GET /rounds/{id}/ws (see ws.go).
//
// Notes:
//   - The server makes no game decisions. Handlers translate requests into
//     orchestrator calls and orchestrator snapshots into views.
//   - Session tokens are HS256 JWTs naming one round. They are accepted from
//     the Authorization header, ?token= (websockets), or the session cookie.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/apps/go-server/internal/categories"
	"github.com/robalobadob/memory/apps/go-server/internal/daily"
	"github.com/robalobadob/memory/apps/go-server/internal/game"
	"github.com/robalobadob/memory/apps/go-server/internal/metrics"
	"github.com/robalobadob/memory/apps/go-server/internal/orchestrator"
	"github.com/robalobadob/memory/apps/go-server/internal/store"
)

const (
	cookieName = "memory_token"

	ModeClassic = "classic"
	ModeDaily   = "daily"
)

// Options carries everything the server needs from configuration.
type Options struct {
	ClientOrigin string
	JWTSecret    string
	DailySalt    string
	Production   bool
	SessionTTL   time.Duration
	RevealDelay  time.Duration
	TickInterval time.Duration
	Categories   []categories.Category

	// Scheduler and Now are replaced in tests.
	Scheduler orchestrator.Scheduler
	Now       func() time.Time
}

// Server bundles router, round store and options.
type Server struct {
	r     *chi.Mux
	store store.Store
	opts  Options
	names []string
	logos map[string]string
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, opts Options) *Server {
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = "http://localhost:5173"
	}
	if opts.JWTSecret == "" {
		opts.JWTSecret = "dev_secret_change_me"
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{r: chi.NewRouter(), store: st, opts: opts, logos: make(map[string]string)}
	for _, c := range opts.Categories {
		s.names = append(s.names, c.Name)
		s.logos[c.Name] = c.Logo
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(countRequests)   // memory_http_requests_total
	s.r.Use(jsonContentType) // default JSON responses
	s.r.Use(s.cors)          // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"memory-go","endpoints":["/health","/metrics","POST /rounds","/rounds/{id}","/rounds/{id}/ws"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	s.r.Get("/debug/categories", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"source":     categories.Source(),
			"categories": s.opts.Categories,
			"rounds":     s.store.Len(),
		})
	})

	// --- rounds ---
	s.r.With(chimw.Timeout(10*time.Second)).Post("/rounds", s.handleNewRound)
	s.r.Route("/rounds/{id}", func(r chi.Router) {
		r.Use(s.requireRound)
		r.Get("/ws", s.handleWS) // long-lived; no handler timeout

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
			r.Get("/", s.handleGetRound)
			r.Post("/start", s.handleRestart)
			r.Post("/reveal", s.handleReveal)
			r.Delete("/", s.handleDeleteRound)
		})
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.opts.ClientOrigin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// countRequests records one memory_http_requests_total sample per request,
// labelled with the matched route pattern rather than the raw path.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
			if websocket.IsWebSocketUpgrade(r) {
				code = http.StatusSwitchingProtocols
			}
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	})
}

// ctxRoundKey is the context key type for the authorized round.
type ctxRoundKey struct{}

// requireRound enforces a valid session token for the {id} in the path and
// injects the round into the request context.
func (s *Server) requireRound(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		tok := bearerOrCookie(r)
		if tok == "" {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		rid, err := s.parseRoundToken(tok)
		if err != nil || rid != id {
			http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
			return
		}
		o, err := s.store.Get(r.Context(), id)
		if err != nil {
			http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
			return
		}
		o.Touch()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxRoundKey{}, o)))
	})
}

func roundFrom(r *http.Request) *orchestrator.Orchestrator {
	o, _ := r.Context().Value(ctxRoundKey{}).(*orchestrator.Orchestrator)
	return o
}

// ------------------------------ ROUNDS -------------------------------------

type newRoundReq struct {
	Mode string `json:"mode"` // "classic" (default) | "daily"
}

type newRoundRes struct {
	RoundID string    `json:"roundId"`
	Token   string    `json:"token"`
	State   roundView `json:"state"`
}

// handleNewRound deals a deck, starts a round and issues its session token.
func (s *Server) handleNewRound(w http.ResponseWriter, r *http.Request) {
	var req newRoundReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if req.Mode == "" {
		req.Mode = ModeClassic
	}

	deck, err := s.newDeck(req.Mode)
	if err != nil {
		if errors.Is(err, errBadMode) {
			http.Error(w, `{"error":"bad_mode"}`, http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Msg("build deck")
		http.Error(w, `{"error":"deck_failed"}`, http.StatusInternalServerError)
		return
	}

	o := orchestrator.New(deck, orchestrator.Options{
		Mode:         req.Mode,
		RevealDelay:  s.opts.RevealDelay,
		TickInterval: s.opts.TickInterval,
		Scheduler:    s.opts.Scheduler,
		Now:          s.opts.Now,
	})
	if err := s.store.Save(r.Context(), o); err != nil {
		log.Error().Err(err).Msg("save round")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	tok, exp, err := s.signRoundToken(o.ID)
	if err != nil {
		_ = s.store.Delete(r.Context(), o.ID)
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	s.setSessionCookie(w, tok, exp)

	o.Start()
	_ = json.NewEncoder(w).Encode(newRoundRes{
		RoundID: o.ID,
		Token:   tok,
		State:   s.buildView(o.ID, o.Mode, o.State()),
	})
}

var errBadMode = errors.New("unknown mode")

// newDeck builds the deck for mode. Daily decks shuffle from a generator
// seeded by today's date so every player starts from the same layout.
func (s *Server) newDeck(mode string) (*game.Deck, error) {
	switch mode {
	case ModeClassic:
		return game.NewDeck(s.names, nil)
	case ModeDaily:
		return game.NewDeck(s.names, daily.Rand(s.opts.Now(), s.opts.DailySalt))
	default:
		return nil, errBadMode
	}
}

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	o := roundFrom(r)
	_ = json.NewEncoder(w).Encode(s.buildView(o.ID, o.Mode, o.State()))
}

// handleRestart deals a fresh deck into the same round ("play again").
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	o := roundFrom(r)
	o.Start()
	_ = json.NewEncoder(w).Encode(s.buildView(o.ID, o.Mode, o.State()))
}

type revealReq struct {
	CardID string `json:"cardId"`
}

type revealRes struct {
	Accepted bool      `json:"accepted"`
	State    roundView `json:"state"`
}

// handleReveal turns one card up. Reveals the round cannot take (wrong
// phase, two cards already pending, card already up) are reported with
// accepted=false rather than as errors.
func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	var req revealReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	cardID, err := uuid.Parse(strings.TrimSpace(req.CardID))
	if err != nil {
		http.Error(w, `{"error":"bad_card_id"}`, http.StatusBadRequest)
		return
	}
	o := roundFrom(r)
	ok := o.Click(cardID)
	_ = json.NewEncoder(w).Encode(revealRes{Accepted: ok, State: s.buildView(o.ID, o.Mode, o.State())})
}

func (s *Server) handleDeleteRound(w http.ResponseWriter, r *http.Request) {
	o := roundFrom(r)
	if err := s.store.Delete(r.Context(), o.ID); err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	s.clearSessionCookie(w)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// ------------------------------ JWT & cookies ------------------------------

// signRoundToken creates an HS256 JWT naming one round, valid for SessionTTL.
func (s *Server) signRoundToken(roundID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.opts.SessionTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"rid": roundID,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	})
	ss, err := t.SignedString([]byte(s.opts.JWTSecret))
	return ss, exp, err
}

// parseRoundToken validates tok and returns the round id it names.
func (s *Server) parseRoundToken(tok string) (string, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.opts.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !t.Valid {
		return "", errors.New("invalid token")
	}
	rid, _ := claims["rid"].(string)
	if rid == "" {
		return "", errors.New("token names no round")
	}
	return rid, nil
}

func (s *Server) sameSite() http.SameSite {
	if s.opts.Production {
		return http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	return http.SameSiteLaxMode
}

// setSessionCookie writes the session token cookie.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Production,
		SameSite: s.sameSite(),
		Expires:  exp,
	})
}

// clearSessionCookie deletes the session token cookie.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Production,
		SameSite: s.sameSite(),
		MaxAge:   -1,
	})
}

// bearerOrCookie extracts a token from the Authorization header, the token
// query parameter, or the session cookie, in that order.
func bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
