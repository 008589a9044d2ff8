package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/saleemayman/city-temperatures-service/internal/temperature"
)

const (
	defaultRangeStart = "2000-01-01"
	defaultRangeEnd   = "2013-01-01"
	defaultTopN       = 1

	maxBodyBytes = 1 << 20

	indexPage = `<html><head></head><body>Global City Temperatures "REST" API.</body></html>`
)

//go:embed templates/top_cities.html
var topCitiesPage string

var topCitiesTemplate = template.Must(template.New("top_cities").Funcs(template.FuncMap{
	"formatDate":  temperature.FormatDate,
	"formatValue": temperature.FormatValue,
}).Parse(topCitiesPage))

var topCitiesHeaders = []string{
	"dt", "avg_temperature", "avg_temperature_uncertainty",
	"city", "country", "latitude", "longitude",
}

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	store TemperatureStore
	log   *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(store TemperatureStore, log *slog.Logger) *Handlers {
	return &Handlers{
		store: store,
		log:   log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code. Storage failures are logged and
// reported without detail.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, temperature.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, temperature.ErrConstraintViolation):
		return http.StatusConflict
	case errors.Is(err, temperature.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON request body into v. Every failure wraps
// temperature.ErrValidation.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("%w: request body must be JSON", temperature.ErrValidation)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", temperature.ErrValidation, err)
	}
	return nil
}

// Index handles GET /.
func (h *Handlers) Index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, indexPage)
}

type newRecordRequest struct {
	Date                      string   `json:"dt"`
	AvgTemperature            *float64 `json:"avg_temperature"`
	AvgTemperatureUncertainty *float64 `json:"avg_temperature_uncertainty"`
	City                      string   `json:"city"`
	Country                   string   `json:"country"`
	Lat                       string   `json:"lat"`
	Lon                       string   `json:"lon"`
}

// CreateRecord handles POST /new.
func (h *Handlers) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req newRecordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Date == "" {
		h.writeError(w, r, fmt.Errorf("%w: dt is required", temperature.ErrValidation))
		return
	}

	date, err := temperature.ParseDate(req.Date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.store.Insert(r.Context(), temperature.Record{
		Date:                      date,
		AvgTemperature:            req.AvgTemperature,
		AvgTemperatureUncertainty: req.AvgTemperatureUncertainty,
		City:                      req.City,
		Country:                   req.Country,
		Latitude:                  req.Lat,
		Longitude:                 req.Lon,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": res.Message})
}

type updateRequest struct {
	Date          string   `json:"dt"`
	City          string   `json:"city"`
	FieldToUpdate string   `json:"field_to_update"`
	FieldNewValue *float64 `json:"field_new_value"`
}

// UpdateRecord handles PUT /update.
func (h *Handlers) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	date, err := temperature.ParseDate(req.Date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	field, err := temperature.ParseField(req.FieldToUpdate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.FieldNewValue == nil {
		h.writeError(w, r, fmt.Errorf("%w: field_new_value must be a number", temperature.ErrValidation))
		return
	}

	res, err := h.store.UpdateField(r.Context(), date, req.City, field, *req.FieldNewValue)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// TopCities handles GET /topNcities. The response is JSON unless the client
// asks for HTML with format=html or an Accept header naming text/html.
func (h *Handlers) TopCities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := temperature.ParseDate(queryOr(q.Get("dtstart"), defaultRangeStart))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	end, err := temperature.ParseDate(queryOr(q.Get("dtend"), defaultRangeEnd))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	n := defaultTopN
	if v := q.Get("topn"); v != "" {
		n, err = strconv.Atoi(v)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: topn must be an integer, got %q", temperature.ErrValidation, v))
			return
		}
	}

	records, err := h.store.TopNByTemperature(r.Context(), start, end, n)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []temperature.Record{}
	}

	if !wantsHTML(r) {
		writeJSON(w, http.StatusOK, records)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = topCitiesTemplate.Execute(w, struct {
		Headers []string
		Records []temperature.Record
	}{topCitiesHeaders, records})
	if err != nil {
		h.log.Error("rendering top cities", "err", err)
	}
}

func queryOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func wantsHTML(r *http.Request) bool {
	if format := r.URL.Query().Get("format"); format != "" {
		return format == "html"
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// HealthHandlerFunc returns an http.HandlerFunc that checks database connectivity.
func HealthHandlerFunc(db dbPinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			log.Error("health check: db ping failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "db": "error"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "db": "ok"})
	}
}
