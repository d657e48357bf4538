package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hlsproxy/internal/apierr"
	"hlsproxy/internal/scraper"
)

var errInvalidID = errors.New("invalid animeEpisodeId")

// Handlers wires the episode/anime/search/home endpoints to a scraper
// client, its cache, and a prewarmer.
type Handlers struct {
	Client    *scraper.Client
	Cache     *scraper.Cache
	Prewarmer *scraper.Prewarmer
}

// Servers handles GET /episode/servers.
func (h *Handlers) Servers(w http.ResponseWriter, r *http.Request) {
	id, err := SanitizeEpisodeID(r.URL.Query().Get("animeEpisodeId"))
	if err != nil {
		apierr.WriteError(w, apierr.New(apierr.BadRequest, "invalid animeEpisodeId"))
		return
	}

	data, err := h.Client.Servers(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"data": data})
}

// Sources handles GET /episode/sources, consulting the scraper cache
// before falling through to the collaborator, and serving a stale
// record with stale:true when a refresh attempt fails.
func (h *Handlers) Sources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := SanitizeEpisodeID(q.Get("animeEpisodeId"))
	if err != nil {
		apierr.WriteError(w, apierr.New(apierr.BadRequest, "invalid animeEpisodeId"))
		return
	}
	category := scraper.NormalizeCategory(q.Get("category"))
	server := scraper.NormalizeServer(q.Get("server"))

	key := scraper.CompositeKey(id, category, server)
	if rec, ok := h.Cache.Get(key); ok && rec.Fresh(time.Now()) {
		apierr.WriteJSON(w, http.StatusOK, map[string]any{"data": rec.Payload, "fromCache": true})
		return
	}

	payload, fetchErr := h.Client.Sources(r.Context(), id, category, server)
	if fetchErr != nil {
		if rec, ok := h.Cache.Get(key); ok {
			apierr.WriteJSON(w, http.StatusOK, map[string]any{
				"data":      rec.Payload,
				"fromCache": true,
				"stale":     true,
			})
			return
		}
		apierr.WriteError(w, fetchErr)
		return
	}

	h.Cache.Upsert(scraper.Record{
		EpisodeID: id,
		Category:  category,
		Server:    server,
		Payload:   payload,
		FetchedAt: time.Now(),
	})
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"data": payload, "fromCache": false})
}

type prewarmRequest struct {
	EpisodeIDs []string `json:"episodeIds"`
	Category   string   `json:"category"`
	Server     string   `json:"server"`
}

// Prewarm handles POST /episode/prewarm.
func (h *Handlers) Prewarm(w http.ResponseWriter, r *http.Request) {
	var req prewarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.New(apierr.BadRequest, "invalid request body"))
		return
	}

	category := scraper.NormalizeCategory(req.Category)
	server := scraper.NormalizeServer(req.Server)

	targets := make([]scraper.Target, 0, len(req.EpisodeIDs))
	for _, raw := range req.EpisodeIDs {
		id, err := SanitizeEpisodeID(raw)
		if err != nil {
			continue
		}
		targets = append(targets, scraper.Target{EpisodeID: id, Category: category, Server: server})
	}

	count := h.Prewarmer.Schedule(r.Context(), targets)
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"status": "scheduled", "count": count})
}

// Anime handles GET /anime/{id}.
func (h *Handlers) Anime(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		apierr.WriteError(w, apierr.New(apierr.BadRequest, "missing id"))
		return
	}
	data, err := h.Client.Anime(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"data": data})
}

// Search handles GET /search.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		apierr.WriteError(w, apierr.New(apierr.BadRequest, "missing q"))
		return
	}
	data, err := h.Client.Search(r.Context(), q)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"data": data})
}

// Home handles GET /home.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	data, err := h.Client.Home(r.Context())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"data": data})
}
