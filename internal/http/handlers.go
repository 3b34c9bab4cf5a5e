package http

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"splitlens/internal/core"
	"splitlens/internal/report"
)

type categoryRow struct {
	Name   string
	Amount string
	Share  int // percent of the report total
	Width  int // percent of the largest category, for bar scaling
}

type dailyRow struct {
	Date   string
	Amount string
	Width  int
}

type recordRow struct {
	Date        string
	Description string
	Category    string
	Amount      string
}

type groupOption struct {
	ID       int64
	Name     string
	Selected bool
}

type reportView struct {
	Year        int
	Month       int
	MonthName   string
	GroupID     int64
	GroupName   string
	Mode        string
	RangeStart  string
	RangeEnd    string
	UserName    string
	Empty       bool
	Total       string
	Records     []recordRow
	Categories  []categoryRow
	Daily       []dailyRow
	GeneratedAt string
}

func buildReportView(rep *report.Report) reportView {
	view := reportView{
		Year:        rep.Params.Year,
		Month:       rep.Params.Month,
		MonthName:   time.Month(rep.Params.Month).String(),
		GroupID:     rep.Params.GroupID,
		GroupName:   rep.Params.GroupName,
		Mode:        string(rep.Params.Mode),
		RangeStart:  rep.Range.Start.Key(),
		RangeEnd:    rep.Range.End.Key(),
		UserName:    rep.User.Name,
		Empty:       rep.Empty(),
		Total:       core.FormatDollars(rep.Total.Cents),
		GeneratedAt: rep.GeneratedAt.Format(time.RFC3339),
	}
	if view.GroupName == "" {
		view.GroupName = "Non-group expenses"
	}

	for _, rec := range rep.Records {
		view.Records = append(view.Records, recordRow{
			Date:        rec.Date.Key(),
			Description: rec.Description,
			Category:    rec.Category,
			Amount:      core.FormatDollars(rec.Amount.Cents),
		})
	}

	var maxCategory int64
	for _, ct := range rep.Categories {
		if ct.Amount.Cents > maxCategory {
			maxCategory = ct.Amount.Cents
		}
	}
	for _, ct := range rep.Categories {
		view.Categories = append(view.Categories, categoryRow{
			Name:   ct.Category,
			Amount: core.FormatDollars(ct.Amount.Cents),
			Share:  scaledPercent(ct.Amount.Cents, rep.Total.Cents),
			Width:  scaledPercent(ct.Amount.Cents, maxCategory),
		})
	}

	var maxDaily int64
	for _, dt := range rep.Daily {
		if dt.Amount.Cents > maxDaily {
			maxDaily = dt.Amount.Cents
		}
	}
	for _, dt := range rep.Daily {
		view.Daily = append(view.Daily, dailyRow{
			Date:   dt.Date.Key(),
			Amount: core.FormatDollars(dt.Amount.Cents),
			Width:  scaledPercent(dt.Amount.Cents, maxDaily),
		})
	}

	return view
}

// scaledPercent returns cents as a rounded percentage of max, clamped
// to [2, 100] for nonzero values so tiny bars stay visible.
func scaledPercent(cents, max int64) int {
	if max <= 0 || cents <= 0 {
		return 0
	}
	pct := int((cents*100 + max/2) / max)
	if pct < 2 {
		pct = 2
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}

type indexView struct {
	Year   int
	Month  int
	Years  []int
	Months []int
	Groups []groupOption
	Mode   string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	p, err := s.parseParams(r.URL.Query())
	if err != nil {
		now := time.Now()
		p = report.Params{Year: now.Year(), Month: int(now.Month()), Mode: report.ModeCalendar}
	}

	data := indexView{
		Year:   p.Year,
		Month:  p.Month,
		Months: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		Mode:   string(p.Mode),
	}
	for y := time.Now().Year(); y >= time.Now().Year()-5; y-- {
		data.Years = append(data.Years, y)
	}

	data.Groups = append(data.Groups, groupOption{ID: 0, Name: "Non-group expenses", Selected: p.GroupID == 0})
	groups, err := s.getGroups(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Group list error", "error", err)
	}
	for _, g := range groups {
		data.Groups = append(data.Groups, groupOption{ID: g.ID, Name: g.Name, Selected: g.ID == p.GroupID})
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleReportPartial renders the report partial for the dashboard.
func (s *Server) handleReportPartial(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	p, err := s.parseParams(r.URL.Query())
	if err != nil {
		slog.WarnContext(r.Context(), "Invalid report parameters", "error", err, "query", r.URL.RawQuery)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid report parameters: ` + template.HTMLEscapeString(err.Error()) + `</div>`))
		return
	}
	s.resolveGroupName(r, &p)

	rep, err := s.getReport(r.Context(), p)
	if err != nil {
		slog.ErrorContext(r.Context(), "Report error", "error", err, "key", p.Key())
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<div class="error">Could not load expenses. Check the connection to Splitwise and try again.</div>`))
		return
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<div class="placeholder">Total: ` + core.FormatDollars(rep.Total.Cents) + `</div>`))
		return
	}

	if err := s.templates.ExecuteTemplate(w, "report.html", buildReportView(rep)); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "report.html", "key", p.Key())
		_, _ = w.Write([]byte(`<div class="error">Error rendering report</div>`))
	}
}

type reportResponse struct {
	Year       int                  `json:"year"`
	Month      int                  `json:"month"`
	Mode       string               `json:"mode"`
	GroupID    int64                `json:"group_id"`
	GroupName  string               `json:"group_name"`
	RangeStart string               `json:"range_start"`
	RangeEnd   string               `json:"range_end"`
	TotalCents int64                `json:"total_cents"`
	Records    []recordResponse     `json:"records"`
	Categories []categoryResponse   `json:"categories"`
	Daily      []dailyValueResponse `json:"daily"`
}

type recordResponse struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
}

type categoryResponse struct {
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
}

type dailyValueResponse struct {
	Date        string `json:"date"`
	AmountCents int64  `json:"amount_cents"`
}

// handleReportJSON serves the computed report as JSON for charting.
func (s *Server) handleReportJSON(w http.ResponseWriter, r *http.Request) {
	p, err := s.parseParams(r.URL.Query())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.resolveGroupName(r, &p)

	rep, err := s.getReport(r.Context(), p)
	if err != nil {
		slog.ErrorContext(r.Context(), "Report error", "error", err, "key", p.Key())
		writeJSONError(w, http.StatusBadGateway, "could not load expenses from upstream")
		return
	}

	resp := reportResponse{
		Year:       rep.Params.Year,
		Month:      rep.Params.Month,
		Mode:       string(rep.Params.Mode),
		GroupID:    rep.Params.GroupID,
		GroupName:  rep.Params.GroupName,
		RangeStart: rep.Range.Start.Key(),
		RangeEnd:   rep.Range.End.Key(),
		TotalCents: rep.Total.Cents,
		Records:    []recordResponse{},
		Categories: []categoryResponse{},
		Daily:      []dailyValueResponse{},
	}
	for _, rec := range rep.Records {
		resp.Records = append(resp.Records, recordResponse{
			Date:        rec.Date.Key(),
			Description: rec.Description,
			Category:    rec.Category,
			AmountCents: rec.Amount.Cents,
		})
	}
	for _, ct := range rep.Categories {
		resp.Categories = append(resp.Categories, categoryResponse{Category: ct.Category, AmountCents: ct.Amount.Cents})
	}
	for _, dt := range rep.Daily {
		resp.Daily = append(resp.Daily, dailyValueResponse{Date: dt.Date.Key(), AmountCents: dt.Amount.Cents})
	}

	writeJSON(w, http.StatusOK, resp)
}

type groupResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// handleGroups serves the selectable groups as JSON.
func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.getGroups(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Group list error", "error", err)
		writeJSONError(w, http.StatusBadGateway, "could not load groups from upstream")
		return
	}

	resp := []groupResponse{{ID: 0, Name: "Non-group expenses"}}
	for _, g := range groups {
		resp = append(resp, groupResponse{ID: g.ID, Name: g.Name})
	}

	writeJSON(w, http.StatusOK, resp)
}

// resolveGroupName fills in the display name for a selected group ID.
// Failure to resolve is cosmetic only.
func (s *Server) resolveGroupName(r *http.Request, p *report.Params) {
	if p.GroupID == 0 || p.GroupName != "" {
		return
	}
	groups, err := s.getGroups(r.Context())
	if err != nil {
		slog.WarnContext(r.Context(), "Could not resolve group name", "group_id", p.GroupID, "error", err)
		return
	}
	for _, g := range groups {
		if g.ID == p.GroupID {
			p.GroupName = g.Name
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
