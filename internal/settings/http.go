package settings

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type errResponse struct {
	Error string `json:"error"`
}

type valueEnvelope struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func RegisterRoutes(r chi.Router, s *Store) {
	r.Get("/settings", getAll(s))
	r.Get("/settings/{key}", getKey(s))
	r.Put("/settings/{key}", putKey(s))
}

func getAll(s *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, http.StatusOK, s.All())
	}
}

func getKey(s *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		key := chi.URLParam(r, "key")
		v, err := s.Get(key)
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
			return
		}
		writeJSON(w, http.StatusOK, valueEnvelope{Key: key, Value: v})
	}
}

func putKey(s *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var body valueEnvelope
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}

		key := chi.URLParam(r, "key")
		if err := s.Set(key, body.Value); err != nil {
			writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
			return
		}
		writeJSON(w, http.StatusOK, valueEnvelope{Key: key, Value: body.Value})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
