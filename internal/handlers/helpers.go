package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/logsight/internal/models"
)

// RequireMethod validates the HTTP method, writing a 405 on mismatch.
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteQueryError maps query validation failures to 400 and everything else
// to 500.
func WriteQueryError(w http.ResponseWriter, err error) error {
	var queryErr *models.QueryError
	if errors.As(err, &queryErr) {
		return WriteError(w, http.StatusBadRequest, queryErr.Error())
	}
	return WriteError(w, http.StatusInternalServerError, err.Error())
}

// PathSegment extracts segment i of the URL path after trimming the prefix.
// Returns "" when the path has no such segment.
func PathSegment(r *http.Request, prefix string, i int) string {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if rest == "" {
		return ""
	}
	parts := strings.Split(rest, "/")
	if i >= len(parts) {
		return ""
	}
	return parts[i]
}

// ParseFilterQuery builds a FilterQuery from the request's query string.
// Unparseable values are rejected rather than ignored so a bad filter never
// silently widens the result set.
func ParseFilterQuery(r *http.Request) (*models.FilterQuery, error) {
	q := r.URL.Query()
	filter := &models.FilterQuery{
		Keyword:  strings.TrimSpace(q.Get("keyword")),
		EventID:  strings.TrimSpace(q.Get("event_id")),
		Provider: strings.TrimSpace(q.Get("provider")),
	}

	for name, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		parsed, err := parseTime(raw)
		if err != nil {
			return nil, &models.QueryError{Reason: name + " is not a valid timestamp"}
		}
		*dst = &parsed
	}

	if raw := q.Get("severity"); raw != "" {
		severity, err := parseSeverityName(raw)
		if err != nil {
			return nil, err
		}
		filter.Severity = &severity
		filter.SeverityAtLeast = q.Get("severity_at_least") == "true"
	}

	for name, dst := range map[string]*int{"page": &filter.Page, "page_size": &filter.PageSize} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &models.QueryError{Reason: name + " is not a number"}
		}
		*dst = value
	}

	return filter, nil
}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errors.New("unrecognized timestamp")
}

func parseSeverityName(raw string) (models.Severity, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "informational":
		return models.SeverityInformational, nil
	case "warning":
		return models.SeverityWarning, nil
	case "error":
		return models.SeverityError, nil
	case "critical":
		return models.SeverityCritical, nil
	default:
		return 0, &models.QueryError{Reason: "unknown severity " + strconv.Quote(raw)}
	}
}
