package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"splitlens/internal/report"
)

// ParseReportParams extracts report parameters from query values, using
// the current month as the default period. Malformed values are errors
// rather than silent fallbacks so a bad link does not render the wrong
// month's numbers.
func ParseReportParams(query url.Values) (report.Params, error) {
	now := time.Now()
	p := report.Params{
		Year:  now.Year(),
		Month: int(now.Month()),
		Mode:  report.ModeCalendar,
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return report.Params{}, fmt.Errorf("invalid year %q", v)
		}
		p.Year = y
	}
	if p.Year < 2000 || p.Year > 2100 {
		return report.Params{}, fmt.Errorf("year %d out of range", p.Year)
	}

	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return report.Params{}, fmt.Errorf("invalid month %q", v)
		}
		p.Month = m
	}
	if p.Month < 1 || p.Month > 12 {
		return report.Params{}, fmt.Errorf("month %d out of range", p.Month)
	}

	if v := strings.TrimSpace(query.Get("group")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 0 {
			return report.Params{}, fmt.Errorf("invalid group %q", v)
		}
		p.GroupID = id
	}
	p.GroupName = strings.TrimSpace(query.Get("group_name"))

	if v := strings.TrimSpace(query.Get("mode")); v != "" {
		mode := report.Mode(v)
		if !mode.IsValid() {
			return report.Params{}, fmt.Errorf("invalid mode %q", v)
		}
		p.Mode = mode
	}

	return p, nil
}

// parseParams applies the configured default group on top of
// ParseReportParams. An explicit group=0 still means non-group expenses;
// the default only fills in when the request omits the parameter.
func (s *Server) parseParams(query url.Values) (report.Params, error) {
	p, err := ParseReportParams(query)
	if err != nil {
		return p, err
	}
	if s.defaultGroupID != 0 && !query.Has("group") {
		p.GroupID = s.defaultGroupID
	}
	return p, nil
}
