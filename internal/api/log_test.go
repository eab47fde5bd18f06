package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsbglobe/pkg/logging"
)

func TestFormatLogLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Info",
			input: `time=2026-01-18T06:50:46.074+01:00 level=INFO msg="Cycle applied" spawned=3 window_start=2025-12-28T00:00:10 population=120 error="a long error message that is dropped"`,
			want:  "06:50:46 Cycle applied (population=120, spawned=3, window_start=2025-12-28T00:00:10)",
		},
		{
			name:  "Warn",
			input: `time=2026-01-18T06:50:46.074+01:00 level=WARN msg="Fetch failed, treating window as empty" component=ingest`,
			want:  "06:50:46 [WARN] Fetch failed, treating window as empty (component=ingest)",
		},
		{
			name:  "NotSlog",
			input: "plain text",
			want:  "plain text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatLogLine(tt.input))
		})
	}
}

func TestHandleLog(t *testing.T) {
	_, _ = logging.Recent.Write([]byte(`time=2026-01-18T06:50:46.074+01:00 level=INFO msg="Frame loop started" interval=100ms` + "\n"))

	rec := httptest.NewRecorder()
	handleLog(rec, httptest.NewRequest(http.MethodGet, "/api/log?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Lines []string `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Lines, 1)
	assert.Equal(t, "06:50:46 Frame loop started (interval=100ms)", body.Lines[0])

	rec = httptest.NewRecorder()
	handleLog(rec, httptest.NewRequest(http.MethodGet, "/api/log?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
