package telegram

import (
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/AISystem01/404TurfBot/internal/domain"
	"github.com/AISystem01/404TurfBot/internal/engine"
)

func (r *Router) isAdmin(userID int64) bool {
	return r.eng.Settings().IsAdmin(userID)
}

// --- availability flow ---

func (r *Router) handleCallback(cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	switch cb.Data {
	case cbYes:
		r.answerCallback(cb.ID, "Recorded!")
		r.record(cb.From, chatID, "yes", "")
	case cbNo:
		r.answerCallback(cb.ID, "")
		r.setPending(cb.From.ID, pendingReasonNo)
		r.reply(chatID, displayName(cb.From)+askNoReason)
	case cbLater:
		r.answerCallback(cb.ID, "")
		r.setPending(cb.From.ID, pendingReasonLater)
		r.reply(chatID, displayName(cb.From)+askLaterDetail)
	default:
		// Unknown callback, ignore.
	}
}

func (r *Router) handleFreeForm(msg *tgbotapi.Message, text string) {
	switch r.getPending(msg.From.ID) {
	case pendingReasonNo:
		r.clearPending(msg.From.ID)
		r.record(msg.From, msg.Chat.ID, "no", text)
	case pendingReasonLater:
		r.clearPending(msg.From.ID)
		if text == "-" {
			text = ""
		}
		r.record(msg.From, msg.Chat.ID, "yes but later", text)
	case pendingLOA:
		r.clearPending(msg.From.ID)
		r.submitLOA(msg, text)
	default:
		// No pending flow: ignore free-form message.
	}
}

// record runs one submission through the engine and refreshes the posted
// summary, plus the LOA display when a one-day leave was synthesized.
func (r *Router) record(user *tgbotapi.User, chatID int64, rawStatus, rawReason string) {
	// A decline always carries a reason; blank gets the stock default.
	if s, err := domain.ParseStatus(rawStatus); err == nil && s == domain.StatusNo && strings.TrimSpace(rawReason) == "" {
		rawReason = "No reason given"
	}

	ack, err := r.eng.RecordResponse(userKey(user.ID), displayName(user), rawStatus, rawReason)
	switch {
	case errors.Is(err, domain.ErrInvalidStatus):
		r.reply(chatID, invalidStatusText)
		return
	case err != nil:
		r.log.Error("record response failed", zap.Error(err), zap.Int64("user", user.ID))
		r.reply(chatID, storageErrText)
		return
	}
	r.reply(chatID, recordedText)
	if ack.LOAAdded {
		r.refreshLOAList()
	}
	r.postSummary()
}

// --- LOA flows ---

func (r *Router) handleLOACommand(msg *tgbotapi.Message, args string) {
	if args == "" {
		r.setPending(msg.From.ID, pendingLOA)
		r.reply(msg.Chat.ID, askLOAText)
		return
	}
	r.submitLOA(msg, args)
}

func (r *Router) submitLOA(msg *tgbotapi.Message, text string) {
	fields := strings.Fields(text)
	if len(fields) < 3 {
		r.reply(msg.Chat.ID, invalidLOAText)
		return
	}
	start, end := fields[0], fields[1]
	reason := strings.Join(fields[2:], " ")

	entry, err := r.eng.RecordLOA(userKey(msg.From.ID), displayName(msg.From), start, end, reason)
	switch {
	case errors.Is(err, domain.ErrInvalidDate):
		r.reply(msg.Chat.ID, invalidDateText)
		return
	case errors.Is(err, engine.ErrInvalidRange):
		r.reply(msg.Chat.ID, invalidRangeText)
		return
	case err != nil:
		r.log.Error("record loa failed", zap.Error(err), zap.Int64("user", msg.From.ID))
		r.reply(msg.Chat.ID, storageErrText)
		return
	}
	r.reply(msg.Chat.ID, "✅ LOA recorded from "+entry.Start.Display()+" to "+entry.End.Display()+".")
	r.refreshLOAList()
	r.postSummary()
}

func (r *Router) handleRemoveLOA(msg *tgbotapi.Message, args string) {
	uid := userKey(msg.From.ID)
	if args == "" {
		var own []engine.LOAListing
		for _, l := range r.eng.ListLOAs() {
			if l.UserID == uid {
				own = append(own, l)
			}
		}
		if len(own) == 0 {
			r.reply(msg.Chat.ID, noLOAsText)
			return
		}
		var b strings.Builder
		b.WriteString("Your LOAs:\n")
		for i, l := range own {
			b.WriteString(strconv.Itoa(i+1) + ". " + l.Entry.Start.Display() + " to " + l.Entry.End.Display() + " – " + l.Entry.Reason + "\n")
		}
		b.WriteString("\nRemove one with /removeloa <number>.")
		r.reply(msg.Chat.ID, b.String())
		return
	}

	n, err := strconv.Atoi(args)
	if err != nil {
		r.reply(msg.Chat.ID, invalidSelectionText)
		return
	}
	removed, err := r.eng.RemoveLOA(uid, n-1)
	switch {
	case errors.Is(err, engine.ErrOutOfRange):
		r.reply(msg.Chat.ID, invalidSelectionText)
		return
	case err != nil:
		r.log.Error("remove loa failed", zap.Error(err), zap.Int64("user", msg.From.ID))
		r.reply(msg.Chat.ID, storageErrText)
		return
	}
	r.reply(msg.Chat.ID, "✅ Removed LOA from "+removed.Start.Display()+" to "+removed.End.Display()+".")
	r.refreshLOAList()
}

func (r *Router) handleClearLOA(msg *tgbotapi.Message) {
	n, err := r.eng.RemoveAllLOA(userKey(msg.From.ID))
	if err != nil {
		r.log.Error("clear loa failed", zap.Error(err), zap.Int64("user", msg.From.ID))
		r.reply(msg.Chat.ID, storageErrText)
		return
	}
	if n == 0 {
		r.reply(msg.Chat.ID, noLOAsText)
		return
	}
	r.reply(msg.Chat.ID, "✅ Your LOAs have been removed.")
	r.refreshLOAList()
}

func (r *Router) handleListLOAs(msg *tgbotapi.Message) {
	r.reply(msg.Chat.ID, loaListText(r.eng.ListLOAs()))
}

func (r *Router) handleMemberLeft(u *tgbotapi.User) {
	n, err := r.eng.RemoveAllLOA(userKey(u.ID))
	if err != nil {
		r.log.Error("departed member cleanup failed", zap.Error(err), zap.Int64("user", u.ID))
		return
	}
	if n > 0 {
		r.log.Info("removed LOAs of departed member", zap.Int64("user", u.ID), zap.Int("count", n))
		r.refreshLOAList()
	}
}

// --- stats ---

func (r *Router) handleStats(msg *tgbotapi.Message) {
	p := r.eng.Stats(userKey(msg.From.ID), displayName(msg.From))
	r.reply(msg.Chat.ID, statsText(p))
}

func (r *Router) handleLeaderboard(msg *tgbotapi.Message) {
	r.reply(msg.Chat.ID, leaderboardText(r.eng.Leaderboard()))
}

// --- admin operations ---

func (r *Router) handleTestPoll(msg *tgbotapi.Message) {
	if !r.isAdmin(msg.From.ID) {
		r.reply(msg.Chat.ID, notPermittedText)
		return
	}
	r.postPrompt()
	r.reply(msg.Chat.ID, "✅ Turf test sent.")
}

func (r *Router) handleForceSummary(msg *tgbotapi.Message) {
	if !r.isAdmin(msg.From.ID) {
		r.reply(msg.Chat.ID, notPermittedText)
		return
	}
	r.refreshLOAList()
	r.postSummary()
	r.reply(msg.Chat.ID, "✅ Summary updated.")
}

func (r *Router) handleSetTime(msg *tgbotapi.Message, args string) {
	if !r.isAdmin(msg.From.ID) {
		r.reply(msg.Chat.ID, notPermittedText)
		return
	}
	hour, minute, err := domain.ParseClock(args)
	if err != nil {
		r.reply(msg.Chat.ID, invalidTimeText)
		return
	}
	if err := r.eng.SetPollTime(hour, minute); err != nil {
		r.log.Error("set poll time failed", zap.Error(err))
		r.reply(msg.Chat.ID, storageErrText)
		return
	}
	r.reply(msg.Chat.ID, "✅ Turf time updated to "+domain.FormatClock(hour, minute)+".")
}

func (r *Router) handleSetMessage(msg *tgbotapi.Message, args string) {
	if !r.isAdmin(msg.From.ID) {
		r.reply(msg.Chat.ID, notPermittedText)
		return
	}
	if args == "" {
		r.reply(msg.Chat.ID, "Usage: /setmessage <announcement text>")
		return
	}
	if err := r.eng.SetAnnouncement(args); err != nil {
		r.log.Error("set announcement failed", zap.Error(err))
		r.reply(msg.Chat.ID, storageErrText)
		return
	}
	r.reply(msg.Chat.ID, "✅ Announcement message updated.")
}

func (r *Router) handleClearHistory(msg *tgbotapi.Message, args string) {
	if !r.isAdmin(msg.From.ID) {
		r.reply(msg.Chat.ID, notPermittedText)
		return
	}
	target := ""
	if args != "" && args != "all" {
		target = args
	}
	if err := r.eng.ClearHistory(target); err != nil {
		r.log.Error("clear history failed", zap.Error(err))
		r.reply(msg.Chat.ID, storageErrText)
		return
	}
	if target == "" {
		r.reply(msg.Chat.ID, "✅ Cleared all history, LOAs and responses.")
	} else {
		r.reply(msg.Chat.ID, "✅ Cleared history, LOAs and responses for user "+target+".")
	}
	r.refreshLOAList()
	r.postSummary()
}

func (r *Router) handleRemoveLOAUser(msg *tgbotapi.Message, args string) {
	if !r.isAdmin(msg.From.ID) {
		r.reply(msg.Chat.ID, notPermittedText)
		return
	}
	if args == "" {
		r.reply(msg.Chat.ID, "Usage: /removeloauser <user id>")
		return
	}
	n, err := r.eng.RemoveAllLOA(args)
	if err != nil {
		r.log.Error("remove user loas failed", zap.Error(err))
		r.reply(msg.Chat.ID, storageErrText)
		return
	}
	if n == 0 {
		r.reply(msg.Chat.ID, "❌ No LOAs found for user "+args+".")
		return
	}
	r.reply(msg.Chat.ID, "✅ LOAs for user "+args+" removed.")
	r.refreshLOAList()
}

// --- posted message maintenance ---

// postPrompt opens a poll cycle: the engine clears the response set and
// the fresh prompt replaces the previous one in the poll chat.
func (r *Router) postPrompt() {
	cfg := r.eng.Settings()
	if cfg.PollChat == 0 {
		r.log.Warn("poll chat not configured")
		return
	}
	prompt := r.eng.Announce()

	r.mu.Lock()
	old := r.promptMsg
	r.mu.Unlock()
	if old != 0 {
		r.deleteMessage(cfg.PollChat, old)
	}

	out := tgbotapi.NewMessage(cfg.PollChat, prompt.Text)
	out.ReplyMarkup = availabilityKeyboard()
	sent, err := r.bot.Send(out)
	if err != nil {
		r.log.Error("post prompt failed", zap.Error(err))
		return
	}
	r.mu.Lock()
	r.promptMsg = sent.MessageID
	r.mu.Unlock()
}

// postSummary recomputes the aggregate and replaces the posted summary
// (delete then resend; sent messages cannot be mutated in place).
func (r *Router) postSummary() {
	cfg := r.eng.Settings()
	if cfg.LogChat == 0 {
		return
	}
	payload := r.eng.Summarize()

	r.mu.Lock()
	old := r.summary
	r.mu.Unlock()
	if old != 0 {
		r.deleteMessage(cfg.LogChat, old)
	}

	sent, err := r.bot.Send(tgbotapi.NewMessage(cfg.LogChat, payload.Text))
	if err != nil {
		r.log.Error("post summary failed", zap.Error(err))
		return
	}
	r.mu.Lock()
	r.summary = sent.MessageID
	r.mu.Unlock()
}

// refreshLOAList replaces the posted LOA display.
func (r *Router) refreshLOAList() {
	cfg := r.eng.Settings()
	if cfg.LOAChat == 0 {
		return
	}

	r.mu.Lock()
	old := r.loaList
	r.mu.Unlock()
	if old != 0 {
		r.deleteMessage(cfg.LOAChat, old)
	}

	sent, err := r.bot.Send(tgbotapi.NewMessage(cfg.LOAChat, loaListText(r.eng.ListLOAs())))
	if err != nil {
		r.log.Error("post loa list failed", zap.Error(err))
		return
	}
	r.mu.Lock()
	r.loaList = sent.MessageID
	r.mu.Unlock()
}

// StartupRefresh posts the LOA display once the bot is up.
func (r *Router) StartupRefresh() {
	r.refreshLOAList()
}
