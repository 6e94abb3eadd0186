package engine

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AISystem01/404TurfBot/internal/domain"
	"github.com/AISystem01/404TurfBot/internal/store"
)

// testClock is a settable clock for driving the engine through a day.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Set(t time.Time)         { c.now = t }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine(t *testing.T) (*Engine, *testClock, string) {
	t.Helper()
	dir := t.TempDir()
	clock := &testClock{now: time.Date(2025, time.May, 20, 20, 0, 0, 0, time.UTC)}
	e, err := New(Options{DataDir: dir, Location: time.UTC, Now: clock.Now})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, clock, dir
}

func TestRecordResponse_LOAOverridesSubmission(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if _, err := e.RecordLOA("u1", "Alice", "20/05/2025", "22/05/2025", "holiday"); err != nil {
		t.Fatalf("RecordLOA: %v", err)
	}
	ack, err := e.RecordResponse("u1", "Alice", "yes", "")
	if err != nil {
		t.Fatalf("RecordResponse: %v", err)
	}
	if ack.Record.Status != domain.StatusNo {
		t.Fatalf("status = %s, want no", ack.Record.Status)
	}
	if ack.Record.Reason != domain.OnLeaveReason {
		t.Fatalf("reason = %q, want %q", ack.Record.Reason, domain.OnLeaveReason)
	}
}

func TestRecordResponse_AutoLOASynthesis(t *testing.T) {
	e, _, _ := newTestEngine(t)
	today := e.Today()

	ack, err := e.RecordResponse("u1", "Alice", "no", "sick")
	if err != nil {
		t.Fatalf("RecordResponse: %v", err)
	}
	if !ack.LOAAdded {
		t.Fatal("first decline should synthesize an LOA")
	}
	if !e.IsOnLOA("u1", today) {
		t.Fatal("user should be on LOA today")
	}
	if n := len(e.ListLOAs()); n != 1 {
		t.Fatalf("ledger rows = %d, want 1", n)
	}

	// Declining again the same day must not append a second entry.
	ack, err = e.RecordResponse("u1", "Alice", "no", "still sick")
	if err != nil {
		t.Fatalf("second RecordResponse: %v", err)
	}
	if ack.LOAAdded {
		t.Fatal("second decline synthesized a duplicate LOA")
	}
	if n := len(e.ListLOAs()); n != 1 {
		t.Fatalf("ledger rows = %d, want 1", n)
	}
}

func TestRecordResponse_ChangeAnnotation(t *testing.T) {
	e, clock, _ := newTestEngine(t)

	if _, err := e.RecordResponse("u1", "Alice", "yes", ""); err != nil {
		t.Fatalf("yes: %v", err)
	}
	clock.Advance(37 * time.Minute)
	ack, err := e.RecordResponse("u1", "Alice", "no", "sick")
	if err != nil {
		t.Fatalf("no: %v", err)
	}
	if !strings.Contains(ack.Record.Reason, "(changed at 20:37:00)") {
		t.Fatalf("reason = %q, want change annotation", ack.Record.Reason)
	}

	// No -> No must not stack annotations.
	ack, err = e.RecordResponse("u1", "Alice", "no", "sick")
	if err != nil {
		t.Fatalf("no again: %v", err)
	}
	if strings.Contains(ack.Record.Reason, "changed at") {
		t.Fatalf("No->No annotated: %q", ack.Record.Reason)
	}
}

func TestRecordResponse_FirstNoNotAnnotated(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ack, err := e.RecordResponse("u1", "Alice", "no", "sick")
	if err != nil {
		t.Fatalf("RecordResponse: %v", err)
	}
	if strings.Contains(ack.Record.Reason, "changed at") {
		t.Fatalf("first submission annotated: %q", ack.Record.Reason)
	}
}

func TestRecordResponse_YesLaterReason(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ack, err := e.RecordResponse("u1", "Alice", "yes but later", "9pm")
	if err != nil {
		t.Fatalf("RecordResponse: %v", err)
	}
	if ack.Record.Status != domain.StatusYesLater {
		t.Fatalf("status = %s", ack.Record.Status)
	}
	if ack.Record.Reason != "Will join later: 9pm" {
		t.Fatalf("reason = %q", ack.Record.Reason)
	}
	if ack.LOAAdded {
		t.Fatal("yes-later must not synthesize an LOA")
	}
}

func TestRecordResponse_InvalidStatusMutatesNothing(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if _, err := e.RecordResponse("u1", "Alice", "maybe", ""); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("want ErrInvalidStatus, got %v", err)
	}
	if p := e.Stats("u1", "Alice"); p.Total != 0 {
		t.Fatalf("history written despite invalid input: %+v", p)
	}
	if s := e.Summarize(); len(s.Yes)+len(s.No)+len(s.YesLater) != 0 {
		t.Fatal("response set mutated despite invalid input")
	}
}

func TestRecordResponse_HistoryLogsEverySubmission(t *testing.T) {
	e, _, _ := newTestEngine(t)
	for _, s := range []string{"yes", "no", "yes"} {
		reason := ""
		if s == "no" {
			reason = "sick"
		}
		if _, err := e.RecordResponse("u1", "Alice", s, reason); err != nil {
			t.Fatalf("RecordResponse(%s): %v", s, err)
		}
	}
	if p := e.Stats("u1", "Alice"); p.Total != 3 {
		t.Fatalf("history rows = %d, want 3", p.Total)
	}
}

func TestRecordLOA_InvalidRangeLeavesLedgerUnchanged(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.RecordLOA("u1", "Alice", "22/05/2025", "20/05/2025", "oops")
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("want ErrInvalidRange, got %v", err)
	}
	if n := len(e.ListLOAs()); n != 0 {
		t.Fatalf("ledger rows = %d, want 0", n)
	}
}

func TestRecordLOA_BadDateFormat(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if _, err := e.RecordLOA("u1", "Alice", "2025-05-20", "2025-05-22", "x"); !errors.Is(err, domain.ErrInvalidDate) {
		t.Fatalf("want ErrInvalidDate, got %v", err)
	}
}

func TestRecordLOA_CoveringTodayForcesResponse(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if _, err := e.RecordLOA("u1", "Alice", "19/05/2025", "21/05/2025", "away"); err != nil {
		t.Fatalf("RecordLOA: %v", err)
	}
	// The forced response goes through the normal rules, so the LOA
	// override supplies the stored reason.
	s := e.Summarize()
	if len(s.No) != 1 || s.No[0].Reason != domain.OnLeaveReason {
		t.Fatalf("today's response not forced: %+v", s.No)
	}
}

func TestRecordLOA_FutureRangeDoesNotTouchToday(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if _, err := e.RecordLOA("u1", "Alice", "25/05/2025", "26/05/2025", "away"); err != nil {
		t.Fatalf("RecordLOA: %v", err)
	}
	if s := e.Summarize(); len(s.No) != 0 {
		t.Fatalf("future LOA forced a response today: %+v", s.No)
	}
}

func TestRemoveLOA(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if _, err := e.RecordLOA("u1", "Alice", "25/05/2025", "26/05/2025", "away"); err != nil {
		t.Fatalf("RecordLOA: %v", err)
	}
	if _, err := e.RemoveLOA("u1", 3); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("want ErrOutOfRange, got %v", err)
	}
	removed, err := e.RemoveLOA("u1", 0)
	if err != nil {
		t.Fatalf("RemoveLOA: %v", err)
	}
	if removed.Reason != "away" {
		t.Fatalf("removed = %+v", removed)
	}
	if n := len(e.ListLOAs()); n != 0 {
		t.Fatalf("ledger rows = %d, want 0", n)
	}
}

func TestRemoveAllLOA(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if _, err := e.RecordLOA("u1", "Alice", "25/05/2025", "26/05/2025", "away"); err != nil {
		t.Fatalf("RecordLOA: %v", err)
	}
	if _, err := e.RecordLOA("u1", "Alice", "28/05/2025", "28/05/2025", "trip"); err != nil {
		t.Fatalf("RecordLOA: %v", err)
	}
	n, err := e.RemoveAllLOA("u1")
	if err != nil {
		t.Fatalf("RemoveAllLOA: %v", err)
	}
	if n != 2 {
		t.Fatalf("removed %d, want 2", n)
	}
	if n, _ := e.RemoveAllLOA("u1"); n != 0 {
		t.Fatalf("second removal returned %d", n)
	}
}

func TestRolloverDay_IdempotentOnDate(t *testing.T) {
	e, clock, dir := newTestEngine(t)
	if _, err := e.RecordResponse("u1", "Alice", "yes", ""); err != nil {
		t.Fatalf("RecordResponse: %v", err)
	}

	// Past midnight; the day being closed is the 20th.
	clock.Set(time.Date(2025, time.May, 21, 0, 1, 0, 0, time.UTC))
	res, err := e.RolloverDay()
	if err != nil {
		t.Fatalf("RolloverDay: %v", err)
	}
	if !res.Archived {
		t.Fatal("first rollover should archive")
	}
	if res.Date.String() != "2025-05-20" {
		t.Fatalf("archived date = %s, want 2025-05-20", res.Date)
	}

	res, err = e.RolloverDay()
	if err != nil {
		t.Fatalf("second RolloverDay: %v", err)
	}
	if res.Archived {
		t.Fatal("second rollover archived again")
	}

	snap, err := store.NewArchiveStore(dir).Read(res.Date)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if len(snap) != 1 || snap["u1"].Status != domain.StatusYes {
		t.Fatalf("snapshot = %+v", snap)
	}

	if s := e.Summarize(); len(s.Yes) != 0 {
		t.Fatal("response set not cleared by rollover")
	}
}

func TestAnnounceClearsResponseSet(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if _, err := e.RecordResponse("u1", "Alice", "yes", ""); err != nil {
		t.Fatalf("RecordResponse: %v", err)
	}
	prompt := e.Announce()
	if prompt.Text != domain.DefaultAnnouncement {
		t.Fatalf("prompt = %q", prompt.Text)
	}
	if s := e.Summarize(); len(s.Yes) != 0 {
		t.Fatal("announce did not clear the response set")
	}
}

func TestLedgerRoundTripAcrossRestart(t *testing.T) {
	e, clock, dir := newTestEngine(t)
	if _, err := e.RecordLOA("u1", "Alice", "25/05/2025", "26/05/2025", "away"); err != nil {
		t.Fatalf("RecordLOA: %v", err)
	}
	if _, err := e.RecordResponse("u2", "Bob", "no", "sick"); err != nil {
		t.Fatalf("RecordResponse: %v", err)
	}

	reloaded, err := New(Options{DataDir: dir, Location: time.UTC, Now: clock.Now})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.IsOnLOA("u1", mustDate(t, "2025-05-25")) {
		t.Fatal("u1 range lost on reload")
	}
	if !reloaded.IsOnLOA("u2", mustDate(t, "2025-05-20")) {
		t.Fatal("u2 auto-LOA lost on reload")
	}
	if p := reloaded.Stats("u2", "Bob"); p.Total != 1 || p.CommonReason != "sick" {
		t.Fatalf("history lost on reload: %+v", p)
	}
}

func TestClearHistory(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if _, err := e.RecordResponse("u1", "Alice", "no", "sick"); err != nil {
		t.Fatalf("RecordResponse: %v", err)
	}
	if _, err := e.RecordResponse("u2", "Bob", "yes", ""); err != nil {
		t.Fatalf("RecordResponse: %v", err)
	}

	if err := e.ClearHistory("u1"); err != nil {
		t.Fatalf("ClearHistory(u1): %v", err)
	}
	if p := e.Stats("u1", "Alice"); p.Total != 0 {
		t.Fatal("u1 history survived")
	}
	if e.IsOnLOA("u1", e.Today()) {
		t.Fatal("u1 ledger survived")
	}
	if p := e.Stats("u2", "Bob"); p.Total != 1 {
		t.Fatal("u2 history clobbered")
	}

	if err := e.ClearHistory(""); err != nil {
		t.Fatalf("ClearHistory(all): %v", err)
	}
	if p := e.Stats("u2", "Bob"); p.Total != 0 {
		t.Fatal("clear-all left history behind")
	}
	if s := e.Summarize(); len(s.Yes)+len(s.No) != 0 {
		t.Fatal("clear-all left responses behind")
	}
}

func TestSetPollTime(t *testing.T) {
	e, _, dir := newTestEngine(t)
	if err := e.SetPollTime(24, 0); !errors.Is(err, domain.ErrInvalidTime) {
		t.Fatalf("want ErrInvalidTime, got %v", err)
	}
	if err := e.SetPollTime(19, 45); err != nil {
		t.Fatalf("SetPollTime: %v", err)
	}
	cfg, err := store.NewSettingsStore(dir).Load()
	if err != nil {
		t.Fatalf("reload settings: %v", err)
	}
	if cfg.Hour != 19 || cfg.Minute != 45 {
		t.Fatalf("persisted %02d:%02d, want 19:45", cfg.Hour, cfg.Minute)
	}
}

func TestPollCycleScenario(t *testing.T) {
	e, _, _ := newTestEngine(t)

	e.Announce()
	if _, err := e.RecordResponse("a", "Alice", "yes", ""); err != nil {
		t.Fatalf("Alice: %v", err)
	}
	if _, err := e.RecordResponse("b", "Bob", "no", "sick"); err != nil {
		t.Fatalf("Bob: %v", err)
	}

	s := e.Summarize()
	if len(s.Yes) != 1 || s.Yes[0] != "Alice" {
		t.Fatalf("yes group = %v", s.Yes)
	}
	if len(s.No) != 1 || s.No[0].Name != "Bob" || s.No[0].Reason != "sick" {
		t.Fatalf("no group = %+v", s.No)
	}
	if !e.IsOnLOA("b", e.Today()) {
		t.Fatal("Bob should have a one-day LOA")
	}
	listed := e.ListLOAs()
	if len(listed) != 1 || listed[0].UserID != "b" {
		t.Fatalf("ledger = %+v", listed)
	}
}

func mustDate(t *testing.T, s string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}
