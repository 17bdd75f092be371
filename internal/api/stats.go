package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Retcom59/heritage-app/pkg/tracker"
)

// StatsHandler serves collaborator usage statistics.
type StatsHandler struct {
	tracker *tracker.Tracker
}

func NewStatsHandler(t *tracker.Tracker) *StatsHandler {
	return &StatsHandler{tracker: t}
}

type CollaboratorStatsDTO struct {
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	APISuccess    int64 `json:"api_success"`
	APIZeroResult int64 `json:"api_zero"`
	APIFailures   int64 `json:"api_errors"`
	HitRate       int64 `json:"hit_rate"`
}

type StatsResponse struct {
	Collaborators map[string]CollaboratorStatsDTO `json:"collaborators"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := h.tracker.Snapshot()

	resp := StatsResponse{
		Collaborators: make(map[string]CollaboratorStatsDTO, len(snapshot)),
	}
	for name, st := range snapshot {
		dto := CollaboratorStatsDTO{
			CacheHits:     st.CacheHits,
			CacheMisses:   st.CacheMisses,
			APISuccess:    st.APISuccess,
			APIZeroResult: st.APIEmpty,
			APIFailures:   st.APIFailures,
		}
		if total := dto.CacheHits + dto.CacheMisses; total > 0 {
			dto.HitRate = dto.CacheHits * 100 / total
		}
		resp.Collaborators[name] = dto
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode stats response", "error", err)
	}
}
