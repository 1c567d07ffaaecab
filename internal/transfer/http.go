package transfer

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/taskmasterpro/taskmaster-api/internal/tasks"
)

var tasksImportedTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "taskmaster_tasks_imported_total",
	Help: "Total number of tasks inserted via import",
})

func init() {
	prometheus.MustRegister(tasksImportedTotal)
}

type errResponse struct {
	Error string `json:"error"`
}

func RegisterRoutes(r chi.Router, repo tasks.Repository) {
	exp := NewExporter(repo)
	imp := NewImporter(repo)
	r.Get("/tasks/export", exportHandler(exp))
	r.Post("/tasks/import", importHandler(imp))
}

func exportHandler(exp *Exporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := r.URL.Query().Get("format")
		body, contentType, err := exp.Export(r.Context(), format)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			if errors.Is(err, ErrUnknownFormat) {
				writeJSON(w, http.StatusBadRequest, errResponse{Error: "unknown_format"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

func importHandler(imp *Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var (
			res ImportResult
			err error
		)
		switch {
		case strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv"):
			res, err = imp.ImportCSV(r.Context(), r.Body)
		default:
			res, err = imp.ImportJSON(r.Context(), r.Body)
		}
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
