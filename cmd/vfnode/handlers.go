package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"time"

	"vfnode/internal/settlement"
	"vfnode/internal/store"
	"vfnode/internal/vrf"
	"vfnode/internal/wire"

	"github.com/rs/zerolog/log"
)

const (
	serviceName    = "vfnode"
	serviceVersion = "0.1.0"
)

func coinflipHandler(eng *vrf.Engine, pipe *settlement.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req wire.CoinflipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}

		resp, err := eng.Process(&req)
		if err != nil {
			if errors.Is(err, wire.ErrInvalidInput) {
				writeHTTPError(w, http.StatusBadRequest, "invalid_input")
				return
			}
			log.Error().Err(err).Msg("coinflip processing failed")
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		// The engine only measures its own work; the reported figure covers
		// the whole handler.
		resp.ProcessingTimeMS = uint64(time.Since(start).Milliseconds())

		// Settlement is fire-and-forget: a full or closed pipeline must not
		// fail a flip that already resolved.
		if err := pipe.Enqueue(resp, &req); err != nil {
			log.Warn().Err(err).Msg("settlement enqueue failed")
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func healthHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":  "unavailable",
				"service": serviceName,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"service":   serviceName,
			"version":   serviceVersion,
			"runtime":   runtime.Version(),
			"timestamp": time.Now().Unix(),
		})
	}
}

func infoHandler(eng *vrf.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"node_pubkey":     eng.NodePubkey(),
			"service":         serviceName,
			"version":         serviceVersion,
			"supported_games": []string{"coinflip"},
			"max_concurrent":  10,
			"features":        []string{"concurrent", "async-settlement", "verifiable-proofs"},
		})
	}
}

func settlementStatsHandler(pipe *settlement.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, pipe.Stats())
	}
}

func settlementSummaryHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := st.SettlementSummary(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("settlement summary query failed")
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeHTTPError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code})
}
