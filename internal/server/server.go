// Package server exposes HUD figures over HTTP for overlay clients and
// pushes import events to them over a websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
	"github.com/rs/zerolog/log"

	"github.com/pable/go-hud-stats/internal/cache"
	"github.com/pable/go-hud-stats/internal/hud"
	"github.com/pable/go-hud-stats/internal/logging"
	"github.com/pable/go-hud-stats/internal/model"
	"github.com/pable/go-hud-stats/internal/stats"
	"github.com/pable/go-hud-stats/internal/storage"
)

// HandStore loads stored hands by site number. *storage.DB implements it.
type HandStore interface {
	HandByNumber(ctx context.Context, site string, handNo int64) (*storage.StoredHandDetail, error)
}

type handlers struct {
	hud   *hud.Service
	hands HandStore
	site  string
}

// NewRouter builds the API. ws serves the live event stream; nil leaves
// /ws unrouted.
func NewRouter(svc *hud.Service, hands HandStore, defaultSite string, ws http.Handler) *chi.Mux {
	h := &handlers{hud: svc, hands: hands, site: defaultSite}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(apiLogMiddleware()).Get("/healthz", h.health)
	if ws != nil {
		r.Method(http.MethodGet, "/ws", ws)
	}
	r.Route("/api", func(r chi.Router) {
		r.Use(apiLogMiddleware())
		r.Get("/stats", h.statNames)
		r.Get("/players/{name}/stats", h.playerStats)
		r.Get("/players/{name}/trend/{stat}", h.playerTrend)
		r.Get("/players/{name}/sessions", h.playerSessions)
		r.Get("/hands/{site}/{handNo}", h.hand)
	})
	return r
}

func apiLogMiddleware() func(http.Handler) http.Handler {
	return httplog.RequestLogger(
		slog.New(slog.NewJSONHandler(logging.Writer(), &slog.HandlerOptions{})),
		&httplog.Options{
			Level:              slog.LevelInfo,
			Schema:             httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
			LogRequestBody:     func(*http.Request) bool { return false },
			LogResponseBody:    func(*http.Request) bool { return false },
			LogRequestHeaders:  []string{},
			LogResponseHeaders: []string{},
			LogExtraAttrs: func(req *http.Request, _ string, _ int) []slog.Attr {
				rc := chi.RouteContext(req.Context())
				route := req.URL.Path
				if rc != nil && rc.RoutePattern() != "" {
					route = rc.RoutePattern()
				}
				return []slog.Attr{
					slog.String("request_id", chimw.GetReqID(req.Context())),
					slog.String("method", req.Method),
					slog.String("route", route),
				}
			},
		},
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeHTTPError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{"error": code})
}

// writeLookupError maps service errors onto status codes.
func writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeHTTPError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, hud.ErrNoSession):
		writeHTTPError(w, http.StatusNotFound, "no_session")
	case errors.Is(err, stats.ErrUnknownStat):
		writeHTTPError(w, http.StatusBadRequest, "unknown_stat")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("api_request_failed")
		writeHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) statNames(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"stats": h.hud.Registry().Names()})
}

// query reads the shared player query parameters: site, stats, style,
// agg, pos, minSeats and maxSeats.
func (h *handlers) query(r *http.Request) (hud.Query, error) {
	v := r.URL.Query()
	q := hud.Query{Site: v.Get("site"), Player: chi.URLParam(r, "name")}
	if q.Site == "" {
		q.Site = h.site
	}
	if s := v.Get("stats"); s != "" {
		q.Stats = strings.Split(s, ",")
	}
	if s := v.Get("style"); s != "" {
		style, err := cache.ParseStyle(strings.ToUpper(s))
		if err != nil {
			return q, err
		}
		q.Style = style
	}
	if s := v.Get("agg"); s != "" {
		level, err := cache.ParseAggLevel(strings.ToLower(s))
		if err != nil {
			return q, err
		}
		q.AggLevel = level
	}
	if s := v.Get("pos"); s != "" {
		for _, p := range strings.Split(s, ",") {
			q.Positions = append(q.Positions, model.PositionClass(strings.ToUpper(p)))
		}
	}
	for key, dst := range map[string]*int{"minSeats": &q.MinSeats, "maxSeats": &q.MaxSeats} {
		if s := v.Get(key); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return q, err
			}
			*dst = n
		}
	}
	return q, nil
}

func (h *handlers) playerStats(w http.ResponseWriter, r *http.Request) {
	q, err := h.query(r)
	if err != nil {
		writeHTTPError(w, http.StatusBadRequest, "bad_query")
		return
	}
	ps, err := h.hud.Player(r.Context(), q)
	if err != nil {
		writeLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *handlers) playerTrend(w http.ResponseWriter, r *http.Request) {
	q, err := h.query(r)
	if err != nil {
		writeHTTPError(w, http.StatusBadRequest, "bad_query")
		return
	}
	days, err := h.hud.Trend(r.Context(), q, chi.URLParam(r, "stat"))
	if err != nil {
		writeLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"player": q.Player, "days": days})
}

type sessionJSON struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	Hands       int    `json:"hands"`
	TotalProfit int64  `json:"totalProfit"`
}

func (h *handlers) playerSessions(w http.ResponseWriter, r *http.Request) {
	site := r.URL.Query().Get("site")
	if site == "" {
		site = h.site
	}
	name := chi.URLParam(r, "name")
	sessions, err := h.hud.Sessions(r.Context(), site, name)
	if err != nil {
		writeLookupError(w, r, err)
		return
	}
	out := make([]sessionJSON, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionJSON{
			Start:       s.Start.Format("2006-01-02T15:04:05Z"),
			End:         s.End.Format("2006-01-02T15:04:05Z"),
			Hands:       s.Hands,
			TotalProfit: s.TotalProfit,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"player": name, "sessions": out})
}

type handPlayerJSON struct {
	Name        string `json:"name"`
	Seat        int    `json:"seat"`
	Position    string `json:"position"`
	MadeHand    string `json:"madeHand,omitempty"`
	VPIP        bool   `json:"vpip"`
	PFR         bool   `json:"pfr"`
	SawShowdown bool   `json:"sawShowdown"`
	Winnings    int64  `json:"winnings"`
	TotalProfit int64  `json:"totalProfit"`
}

type handJSON struct {
	Site     string           `json:"site"`
	HandNo   int64            `json:"handNo"`
	Start    string           `json:"start"`
	Table    string           `json:"table"`
	Game     string           `json:"game"`
	Pot      int64            `json:"pot"`
	Board    []string         `json:"board"`
	Excluded bool             `json:"excluded"`
	Warnings []string         `json:"warnings,omitempty"`
	Players  []handPlayerJSON `json:"players"`
}

func (h *handlers) hand(w http.ResponseWriter, r *http.Request) {
	handNo, err := strconv.ParseInt(chi.URLParam(r, "handNo"), 10, 64)
	if err != nil {
		writeHTTPError(w, http.StatusBadRequest, "bad_hand_no")
		return
	}
	d, err := h.hands.HandByNumber(r.Context(), chi.URLParam(r, "site"), handNo)
	if err != nil {
		writeLookupError(w, r, err)
		return
	}
	out := handJSON{
		Site:     d.Site,
		HandNo:   d.HandNo,
		Start:    d.Start.Format("2006-01-02T15:04:05Z"),
		Table:    d.TableName,
		Game:     d.Game,
		Pot:      d.Pot,
		Board:    d.Board,
		Excluded: d.Excluded,
		Warnings: d.Warnings,
	}
	for _, p := range d.Players {
		out.Players = append(out.Players, handPlayerJSON{
			Name:        p.Name,
			Seat:        p.Stat.SeatNo,
			Position:    string(p.Stat.Position),
			MadeHand:    d.MadeHand(p),
			VPIP:        p.Stat.VPIP,
			PFR:         p.Stat.Aggr[0],
			SawShowdown: p.Stat.SawShowdown,
			Winnings:    p.Stat.Winnings,
			TotalProfit: p.Stat.TotalProfit,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
