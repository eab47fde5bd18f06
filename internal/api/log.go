package api

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"adsbglobe/pkg/logging"
)

// Regex to capture key=value or key="value with spaces"
var logRegex = regexp.MustCompile(`([a-zA-Z0-9_\-.]+)=(?:"([^"]*)"|([^ ]+))`)

// handleLatestLog returns the last captured log line.
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"log": formatLogLine(logging.Recent.LastLine()),
	})
}

// handleLog returns recent log lines, newest first. ?limit=N caps the count.
func handleLog(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	lines := logging.Recent.Lines(limit)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = formatLogLine(l)
	}
	writeJSON(w, map[string][]string{"lines": out})
}

// maxParamLen drops long values (errors, URLs) from the one-line view.
const maxParamLen = 20

// formatLogLine condenses a slog text line to
// "HH:MM:SS [LEVEL] msg (key=value, ...)" with params sorted by key.
// INFO is implied and not printed. Lines that are not slog text pass through.
func formatLogLine(raw string) string {
	var clock, level, msg string
	var params []string

	for _, m := range logRegex.FindAllStringSubmatch(raw, -1) {
		key, val := m[1], m[2]
		if val == "" {
			val = m[3]
		}
		val = strings.TrimSpace(val)

		switch key {
		case "time":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				clock = t.Format("15:04:05")
			}
		case "level":
			if val != "INFO" {
				level = val
			}
		case "msg":
			msg = val
		default:
			if len(val) <= maxParamLen {
				params = append(params, key+"="+val)
			}
		}
	}
	if msg == "" {
		return raw
	}
	sort.Strings(params)

	var b strings.Builder
	if clock != "" {
		b.WriteString(clock + " ")
	}
	if level != "" {
		fmt.Fprintf(&b, "[%s] ", level)
	}
	b.WriteString(msg)
	if len(params) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(params, ", "))
	}
	return b.String()
}
