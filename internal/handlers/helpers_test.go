package handlers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/logsight/internal/models"
)

func TestParseFilterQuery(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr string
		check   func(t *testing.T, filter *models.FilterQuery)
	}{
		{
			name: "empty query",
			url:  "/api/logfiles/abc/events",
			check: func(t *testing.T, filter *models.FilterQuery) {
				assert.Empty(t, filter.Keyword)
				assert.Nil(t, filter.From)
				assert.Nil(t, filter.Severity)
				assert.Equal(t, 0, filter.Page)
			},
		},
		{
			name: "all fields",
			url:  "/e?keyword=logon&event_id=4625&provider=Security&from=2024-01-02&to=2024-01-02T15:04:05Z&severity=warning&severity_at_least=true&page=3&page_size=25",
			check: func(t *testing.T, filter *models.FilterQuery) {
				assert.Equal(t, "logon", filter.Keyword)
				assert.Equal(t, "4625", filter.EventID)
				assert.Equal(t, "Security", filter.Provider)
				require.NotNil(t, filter.From)
				assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), *filter.From)
				require.NotNil(t, filter.To)
				assert.Equal(t, time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), *filter.To)
				require.NotNil(t, filter.Severity)
				assert.Equal(t, models.SeverityWarning, *filter.Severity)
				assert.True(t, filter.SeverityAtLeast)
				assert.Equal(t, 3, filter.Page)
				assert.Equal(t, 25, filter.PageSize)
			},
		},
		{
			name: "space separated timestamp",
			url:  "/e?from=2024-06-01%2008:30:00",
			check: func(t *testing.T, filter *models.FilterQuery) {
				require.NotNil(t, filter.From)
				assert.Equal(t, time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC), *filter.From)
			},
		},
		{
			name: "keyword is trimmed",
			url:  "/e?keyword=%20%20mimikatz%20",
			check: func(t *testing.T, filter *models.FilterQuery) {
				assert.Equal(t, "mimikatz", filter.Keyword)
			},
		},
		{
			name:    "bad from timestamp",
			url:     "/e?from=yesterday",
			wantErr: "from is not a valid timestamp",
		},
		{
			name:    "bad severity",
			url:     "/e?severity=catastrophic",
			wantErr: `unknown severity "catastrophic"`,
		},
		{
			name:    "bad page",
			url:     "/e?page=first",
			wantErr: "page is not a number",
		},
		{
			name:    "bad page size",
			url:     "/e?page_size=ten",
			wantErr: "page_size is not a number",
		},
		{
			name: "severity_at_least ignored without severity",
			url:  "/e?severity_at_least=true",
			check: func(t *testing.T, filter *models.FilterQuery) {
				assert.Nil(t, filter.Severity)
				assert.False(t, filter.SeverityAtLeast)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			filter, err := ParseFilterQuery(r)
			if tt.wantErr != "" {
				require.Error(t, err)
				var queryErr *models.QueryError
				require.ErrorAs(t, err, &queryErr)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, filter)
		})
	}
}

func TestParseSeverityName(t *testing.T) {
	for name, want := range map[string]models.Severity{
		"informational": models.SeverityInformational,
		"Warning":       models.SeverityWarning,
		" ERROR ":       models.SeverityError,
		"critical":      models.SeverityCritical,
	} {
		got, err := parseSeverityName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestPathSegment(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/logfiles/abc-123/events", nil)
	assert.Equal(t, "abc-123", PathSegment(r, "/api/logfiles", 0))
	assert.Equal(t, "events", PathSegment(r, "/api/logfiles", 1))
	assert.Equal(t, "", PathSegment(r, "/api/logfiles", 2))

	root := httptest.NewRequest("GET", "/api/logfiles/", nil)
	assert.Equal(t, "", PathSegment(root, "/api/logfiles", 0))
}
