package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fincast/internal/core"
	"fincast/internal/engine"
)

// parsePeriod resolves the period query parameters against the reference
// date. Explicit start/end bounds win over a preset.
func parsePeriod(r *http.Request, referenceDate time.Time) (engine.Period, error) {
	q := r.URL.Query()
	startStr := strings.TrimSpace(q.Get("start"))
	endStr := strings.TrimSpace(q.Get("end"))

	if startStr != "" || endStr != "" {
		if startStr == "" || endStr == "" {
			return engine.Period{}, fmt.Errorf("custom period needs both start and end")
		}
		start, err := parseDate(startStr)
		if err != nil {
			return engine.Period{}, fmt.Errorf("invalid start date %q, want YYYY-MM-DD", startStr)
		}
		end, err := parseDate(endStr)
		if err != nil {
			return engine.Period{}, fmt.Errorf("invalid end date %q, want YYYY-MM-DD", endStr)
		}
		return engine.ResolveCustomPeriod(start, end, referenceDate), nil
	}

	preset := engine.Preset(strings.TrimSpace(q.Get("period")))
	if preset == "" {
		preset = engine.PresetThisMonth
	}
	return engine.ResolvePeriod(preset, referenceDate), nil
}

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(dateStr string) (time.Time, error) {
	return time.Parse("2006-01-02", dateStr)
}

// FormatEuros renders an amount as a Euro currency string (e.g. "€12,34").
// It is the currency formatter injected into insight generation.
func FormatEuros(m core.Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	euros := cents / 100
	rem := cents % 100
	s := strconv.FormatInt(euros, 10) + "," + fmt.Sprintf("%02d", rem)
	if neg {
		return "-€" + s
	}
	return "€" + s
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
