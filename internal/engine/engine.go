package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AISystem01/404TurfBot/internal/domain"
	"github.com/AISystem01/404TurfBot/internal/store"
)

var (
	ErrInvalidRange = errors.New("leave range ends before it starts")
	ErrOutOfRange   = errors.New("leave index out of range")
	ErrStorage      = errors.New("storage unavailable")
)

// Engine is the availability and leave reconciliation core. It owns all
// in-memory poll state; the stores are passive persistence adapters it
// writes through on every mutation. One mutex serializes every operation.
type Engine struct {
	mu  sync.Mutex
	log *zap.Logger
	loc *time.Location
	now func() time.Time

	settings      domain.Settings
	settingsStore *store.SettingsStore
	loas          map[string][]domain.LOAEntry
	loaStore      *store.LOAStore
	history       map[string][]domain.HistoryEntry
	historyStore  *store.HistoryStore
	archive       *store.ArchiveStore

	responses map[string]domain.AvailabilityRecord
	order     []string          // insertion order of responses
	names     map[string]string // last seen display name per user
}

// Options configures a new Engine.
type Options struct {
	DataDir  string
	Location *time.Location
	Log      *zap.Logger
	Now      func() time.Time // defaults to time.Now
}

// New loads persisted state and returns a ready engine. Missing or corrupt
// stores fall back to defaults with a warning; the first write replaces them.
func New(opts Options) (*Engine, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	e := &Engine{
		log:           opts.Log,
		loc:           opts.Location,
		now:           opts.Now,
		settingsStore: store.NewSettingsStore(opts.DataDir),
		loaStore:      store.NewLOAStore(opts.DataDir),
		historyStore:  store.NewHistoryStore(opts.DataDir),
		archive:       store.NewArchiveStore(opts.DataDir),
		responses:     make(map[string]domain.AvailabilityRecord),
		names:         make(map[string]string),
	}

	var err error
	if e.settings, err = e.settingsStore.Load(); err != nil {
		e.log.Warn("settings unreadable, using defaults", zap.Error(err))
	}
	if e.loas, err = e.loaStore.Load(); err != nil {
		e.log.Warn("loa ledger unreadable, starting empty", zap.Error(err))
	}
	if e.history, err = e.historyStore.Load(); err != nil {
		e.log.Warn("history unreadable, starting empty", zap.Error(err))
	}
	return e, nil
}

// PromptPayload is the announcement the adapter posts when a poll opens.
type PromptPayload struct {
	Text string
}

// ResponseAck reports what RecordResponse did.
type ResponseAck struct {
	Record   domain.AvailabilityRecord
	LOAAdded bool // a one-day LOA was synthesized for the decline
}

// RolloverResult reports what RolloverDay did.
type RolloverResult struct {
	Date     domain.Date
	Archived bool
}

// Today returns the current calendar day in the group's timezone.
func (e *Engine) Today() domain.Date {
	return domain.DateOf(e.now().In(e.loc))
}

// Settings returns a copy of the current configuration.
func (e *Engine) Settings() domain.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.settings
	s.AdminIDs = append([]int64(nil), e.settings.AdminIDs...)
	return s
}

// EnsureChats fills any unset chat binding from the given defaults and
// persists if something changed. Called once at startup.
func (e *Engine) EnsureChats(poll, log, loa int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	changed := false
	if e.settings.PollChat == 0 && poll != 0 {
		e.settings.PollChat = poll
		changed = true
	}
	if e.settings.LogChat == 0 && log != 0 {
		e.settings.LogChat = log
		changed = true
	}
	if e.settings.LOAChat == 0 && loa != 0 {
		e.settings.LOAChat = loa
		changed = true
	}
	if !changed {
		return nil
	}
	return e.persistSettings()
}

// EnsureAdmins merges the given user IDs into the admin set and persists
// if something changed. Called once at startup from the environment.
func (e *Engine) EnsureAdmins(ids []int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	changed := false
	for _, id := range ids {
		if !e.settings.IsAdmin(id) {
			e.settings.AdminIDs = append(e.settings.AdminIDs, id)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return e.persistSettings()
}

// Announce opens a new poll cycle: the response set is cleared and the
// announcement text is returned for the adapter to post. The previous
// cycle's posted summary is deliberately left alone.
func (e *Engine) Announce() PromptPayload {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses = make(map[string]domain.AvailabilityRecord)
	e.order = nil
	return PromptPayload{Text: e.settings.Announcement}
}

// RecordResponse records one user's answer for today, applying the
// response/LOA consistency rules:
//
//  1. an LOA covering today forces No / "On Leave of Absence"
//  2. otherwise the submitted status is normalized and the reason shaped
//  3. a No with a reason synthesizes a one-day LOA unless one covers today
//  4. a same-day Yes -> No flip gets a change-time annotation
//  5. the response set record is overwritten
//  6. a history entry is appended unconditionally
func (e *Engine) RecordResponse(userID, name, rawStatus, rawReason string) (ResponseAck, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	status, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return ResponseAck{}, err
	}
	return e.applyResponse(userID, name, status, shapeReason(status, rawReason))
}

// shapeReason applies the per-status reason rules: Yes clears it, No keeps
// it trimmed, YesLater formats the optional detail.
func shapeReason(status domain.Status, raw string) string {
	raw = trim(raw)
	switch status {
	case domain.StatusNo:
		return raw
	case domain.StatusYesLater:
		if raw == "" {
			return ""
		}
		return "Will join later: " + raw
	default:
		return ""
	}
}

// applyResponse is the shared write path for RecordResponse and the forced
// response of a same-day RecordLOA. Caller holds the lock.
func (e *Engine) applyResponse(userID, name string, status domain.Status, reason string) (ResponseAck, error) {
	today := e.Today()

	if e.isOnLOA(userID, today) {
		status = domain.StatusNo
		reason = domain.OnLeaveReason
	}

	ack := ResponseAck{}
	var storeErr error

	if status == domain.StatusNo && reason != "" && !e.isOnLOA(userID, today) {
		e.loas[userID] = append(e.loas[userID], domain.LOAEntry{Start: today, End: today, Reason: reason})
		if err := e.loaStore.Save(e.loas); err != nil {
			storeErr = fmt.Errorf("%w: loa ledger: %v", ErrStorage, err)
		}
		ack.LOAAdded = true
	}

	ts := e.now().In(e.loc).Format("15:04:05")
	stored := reason
	if prev, ok := e.responses[userID]; ok {
		if prev.Status == domain.StatusYes && status == domain.StatusNo && reason != "" {
			stored = reason + " (changed at " + ts + ")"
		}
	} else {
		e.order = append(e.order, userID)
	}

	rec := domain.AvailabilityRecord{Name: name, Status: status, Reason: stored}
	e.responses[userID] = rec
	e.names[userID] = name
	ack.Record = rec

	// History keeps the bare reason, without the change annotation.
	e.history[userID] = append(e.history[userID], domain.HistoryEntry{
		Date:   today,
		Status: status,
		Reason: reason,
		Time:   ts,
	})
	if err := e.historyStore.Save(e.history); err != nil && storeErr == nil {
		storeErr = fmt.Errorf("%w: history: %v", ErrStorage, err)
	}
	return ack, storeErr
}

// RecordLOA validates and appends a leave range. A range covering today
// immediately forces today's response to No with the leave reason.
func (e *Engine) RecordLOA(userID, name, startText, endText, reason string) (domain.LOAEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start, err := domain.ParseInputDate(startText)
	if err != nil {
		return domain.LOAEntry{}, err
	}
	end, err := domain.ParseInputDate(endText)
	if err != nil {
		return domain.LOAEntry{}, err
	}
	if end.Before(start) {
		return domain.LOAEntry{}, fmt.Errorf("%w: %s to %s", ErrInvalidRange, start.Display(), end.Display())
	}

	entry := domain.LOAEntry{Start: start, End: end, Reason: trim(reason)}
	e.loas[userID] = append(e.loas[userID], entry)
	e.names[userID] = name
	if err := e.loaStore.Save(e.loas); err != nil {
		return entry, fmt.Errorf("%w: loa ledger: %v", ErrStorage, err)
	}

	if entry.Covers(e.Today()) {
		if _, err := e.applyResponse(userID, name, domain.StatusNo, entry.Reason); err != nil {
			return entry, err
		}
	}
	return entry, nil
}

// RemoveLOA deletes one entry by index in the user's list. Past responses
// and history are left as recorded.
func (e *Engine) RemoveLOA(userID string, index int) (domain.LOAEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := e.loas[userID]
	if index < 0 || index >= len(entries) {
		return domain.LOAEntry{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, index, len(entries))
	}
	removed := entries[index]
	entries = append(entries[:index], entries[index+1:]...)
	if len(entries) == 0 {
		delete(e.loas, userID)
	} else {
		e.loas[userID] = entries
	}
	if err := e.loaStore.Save(e.loas); err != nil {
		return removed, fmt.Errorf("%w: loa ledger: %v", ErrStorage, err)
	}
	return removed, nil
}

// RemoveAllLOA deletes every entry for the user and returns how many went.
func (e *Engine) RemoveAllLOA(userID string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.loas[userID])
	if n == 0 {
		return 0, nil
	}
	delete(e.loas, userID)
	if err := e.loaStore.Save(e.loas); err != nil {
		return n, fmt.Errorf("%w: loa ledger: %v", ErrStorage, err)
	}
	return n, nil
}

// IsOnLOA reports whether any of the user's leave ranges covers the date.
func (e *Engine) IsOnLOA(userID string, d domain.Date) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isOnLOA(userID, d)
}

func (e *Engine) isOnLOA(userID string, d domain.Date) bool {
	for _, entry := range e.loas[userID] {
		if entry.Covers(d) {
			return true
		}
	}
	return false
}

// LOAListing is one ledger row for display.
type LOAListing struct {
	UserID string
	Name   string
	Entry  domain.LOAEntry
}

// ListLOAs returns active and upcoming entries (end on or after today),
// in sorted user-ID order.
func (e *Engine) ListLOAs() []LOAListing {
	e.mu.Lock()
	defer e.mu.Unlock()

	today := e.Today()
	ids := make([]string, 0, len(e.loas))
	for id := range e.loas {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []LOAListing
	for _, id := range ids {
		name := e.names[id]
		if name == "" {
			name = id
		}
		for _, entry := range e.loas[id] {
			if entry.End.Before(today) {
				continue
			}
			out = append(out, LOAListing{UserID: id, Name: name, Entry: entry})
		}
	}
	return out
}

// RolloverDay closes the calendar day that just ended: its response set is
// archived (skipped if a snapshot for that date already exists) and the set
// is cleared for the new day. Safe to call more than once per date.
func (e *Engine) RolloverDay() (RolloverResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ending := e.Today().AddDays(-1)
	res := RolloverResult{Date: ending}
	var storeErr error
	if !e.archive.Exists(ending) {
		if err := e.archive.Write(ending, e.responses); err != nil {
			storeErr = fmt.Errorf("%w: archive %s: %v", ErrStorage, ending, err)
		} else {
			res.Archived = true
		}
	}
	e.responses = make(map[string]domain.AvailabilityRecord)
	e.order = nil
	return res, storeErr
}

// ClearHistory wipes recorded outcomes. An empty userID clears everything:
// history, ledger, response set and archive snapshots. Otherwise only that
// user's rows go.
func (e *Engine) ClearHistory(userID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if userID == "" {
		e.history = make(map[string][]domain.HistoryEntry)
		e.loas = make(map[string][]domain.LOAEntry)
		e.responses = make(map[string]domain.AvailabilityRecord)
		e.order = nil
		if err := e.archive.Clear(); err != nil {
			return fmt.Errorf("%w: archive: %v", ErrStorage, err)
		}
	} else {
		delete(e.history, userID)
		delete(e.loas, userID)
		if _, ok := e.responses[userID]; ok {
			delete(e.responses, userID)
			for i, id := range e.order {
				if id == userID {
					e.order = append(e.order[:i], e.order[i+1:]...)
					break
				}
			}
		}
	}
	if err := e.historyStore.Save(e.history); err != nil {
		return fmt.Errorf("%w: history: %v", ErrStorage, err)
	}
	if err := e.loaStore.Save(e.loas); err != nil {
		return fmt.Errorf("%w: loa ledger: %v", ErrStorage, err)
	}
	return nil
}

// SetPollTime updates the daily announcement time.
func (e *Engine) SetPollTime(hour, minute int) error {
	if err := domain.ValidatePollTime(hour, minute); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.Hour = hour
	e.settings.Minute = minute
	return e.persistSettings()
}

// SetAnnouncement updates the announcement template.
func (e *Engine) SetAnnouncement(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.Announcement = trim(text)
	return e.persistSettings()
}

func (e *Engine) persistSettings() error {
	if err := e.settingsStore.Save(e.settings); err != nil {
		return fmt.Errorf("%w: settings: %v", ErrStorage, err)
	}
	return nil
}
