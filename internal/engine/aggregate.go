package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/AISystem01/404TurfBot/internal/domain"
)

const (
	// MinLeaderboardResponses is how much history a user needs before
	// ranking on the leaderboard.
	MinLeaderboardResponses = 5
	// LeaderboardSize caps the number of ranked users returned.
	LeaderboardSize = 5
)

// SummaryLine pairs a name with the reason shown next to it.
type SummaryLine struct {
	Name   string
	Reason string
}

// SummaryPayload is today's aggregate, grouped by status in response
// insertion order, plus the rendered text for posting.
type SummaryPayload struct {
	Date     domain.Date
	Yes      []string
	YesLater []SummaryLine
	No       []SummaryLine
	Text     string
}

// Summarize recomputes the aggregate from the current response set.
// Idempotent; callable any number of times per cycle.
func (e *Engine) Summarize() SummaryPayload {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := SummaryPayload{Date: e.Today()}
	for _, id := range e.order {
		r, ok := e.responses[id]
		if !ok {
			continue
		}
		switch r.Status {
		case domain.StatusYes:
			p.Yes = append(p.Yes, r.Name)
		case domain.StatusYesLater:
			p.YesLater = append(p.YesLater, SummaryLine{Name: r.Name, Reason: r.Reason})
		case domain.StatusNo:
			p.No = append(p.No, SummaryLine{Name: r.Name, Reason: r.Reason})
		}
	}
	p.Text = renderSummary(p)
	return p
}

func renderSummary(p SummaryPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Turf Availability Summary (%s)\n\n", p.Date.Display())

	fmt.Fprintf(&b, "✅ Yes (%d):\n", len(p.Yes))
	if len(p.Yes) == 0 {
		b.WriteString("None")
	} else {
		b.WriteString(strings.Join(p.Yes, ", "))
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "⏰ Yes but later (%d):\n", len(p.YesLater))
	writeLines(&b, p.YesLater)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "❌ No (%d):\n", len(p.No))
	writeLines(&b, p.No)
	return b.String()
}

func writeLines(b *strings.Builder, lines []SummaryLine) {
	if len(lines) == 0 {
		b.WriteString("None")
		return
	}
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(b, "%s – %s", l.Name, l.Reason)
	}
}

// StatsPayload is one user's lifetime attendance figures.
type StatsPayload struct {
	UserID       string
	Name         string
	Total        int
	Yes          int
	No           int
	Percent      float64 // 100*yes/total, one decimal; 0 with no history
	CommonReason string  // most frequent non-empty reason, "N/A" if none
}

// Stats computes attendance figures over the user's full history.
// Anything that is not a plain Yes counts against attendance.
func (e *Engine) Stats(userID, name string) StatsPayload {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := e.history[userID]
	p := StatsPayload{UserID: userID, Name: name, Total: len(entries), CommonReason: "N/A"}
	for _, h := range entries {
		if h.Status == domain.StatusYes {
			p.Yes++
		}
	}
	p.No = p.Total - p.Yes
	p.Percent = attendancePercent(p.Yes, p.Total)

	// Mode over non-empty reasons; ties break first-seen.
	counts := make(map[string]int)
	best := 0
	for _, h := range entries {
		if h.Reason == "" {
			continue
		}
		counts[h.Reason]++
		if counts[h.Reason] > best {
			best = counts[h.Reason]
			p.CommonReason = h.Reason
		}
	}
	return p
}

// LeaderboardRow is one ranked user.
type LeaderboardRow struct {
	UserID  string
	Name    string
	Percent float64
	Total   int
}

// Leaderboard ranks users with enough history by attendance percentage,
// descending. Equal percentages keep sorted user-ID order.
func (e *Engine) Leaderboard() []LeaderboardRow {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, len(e.history))
	for id := range e.history {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var rows []LeaderboardRow
	for _, id := range ids {
		entries := e.history[id]
		if len(entries) < MinLeaderboardResponses {
			continue
		}
		yes := 0
		for _, h := range entries {
			if h.Status == domain.StatusYes {
				yes++
			}
		}
		name := e.names[id]
		if name == "" {
			name = id
		}
		rows = append(rows, LeaderboardRow{
			UserID:  id,
			Name:    name,
			Percent: attendancePercent(yes, len(entries)),
			Total:   len(entries),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Percent > rows[j].Percent })
	if len(rows) > LeaderboardSize {
		rows = rows[:LeaderboardSize]
	}
	return rows
}

func attendancePercent(yes, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(yes)/float64(total)*1000) / 10
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
