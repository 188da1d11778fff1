package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

func newRouter(store *readingStore, m *sensorMetrics, logger *slog.Logger) *mux.Router {
	writeJSON := func(w http.ResponseWriter, v any) {
		jsonStr, err := json.Marshal(v)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(jsonStr); err != nil {
			logger.Warn("couldn't send response", "err", err)
		}
	}

	r := mux.NewRouter()
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		reading, _, ok := store.get()
		if !ok {
			http.Error(w, "no reading yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, reading)
	}).Methods(http.MethodGet)

	r.HandleFunc("/raw", func(w http.ResponseWriter, r *http.Request) {
		_, raw, ok := store.get()
		if !ok {
			http.Error(w, "no reading yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, raw)
	}).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := store.get(); !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)

	r.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		m.writePrometheus(w)
	}).Methods(http.MethodGet)

	return r
}
