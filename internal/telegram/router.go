package telegram

import (
	"context"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/AISystem01/404TurfBot/internal/engine"
)

// Pending state keys used in conversational flows.
const (
	pendingReasonNo    = "await_reason_no"
	pendingReasonLater = "await_reason_later"
	pendingLOA         = "await_loa_text"
)

// Callback data on the poll prompt buttons.
const (
	cbYes   = "avail:yes"
	cbNo    = "avail:no"
	cbLater = "avail:later"
)

// Router wires Telegram updates to engine operations and keeps the
// message-id bookkeeping for the prompt, summary and LOA list, which are
// replaced by delete-then-resend whenever they change.
type Router struct {
	bot *tgbotapi.BotAPI
	log *zap.Logger
	eng *engine.Engine

	mu        sync.RWMutex
	state     map[int64]string // userID -> pending state
	promptMsg int
	summary   int
	loaList   int
}

// NewRouter creates a new Telegram router.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, eng *engine.Engine) *Router {
	return &Router{
		bot:   bot,
		log:   log,
		eng:   eng,
		state: make(map[int64]string),
	}
}

func (r *Router) setPending(userID int64, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[userID] = s
}

func (r *Router) getPending(userID int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[userID]
}

func (r *Router) clearPending(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, userID)
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		msg := upd.Message

		// Departed members lose their LOAs.
		if msg.LeftChatMember != nil {
			r.handleMemberLeft(msg.LeftChatMember)
			return
		}
		if msg.From == nil {
			return
		}

		text := strings.TrimSpace(msg.Text)
		args := strings.TrimSpace(msg.CommandArguments())
		switch msg.Command() {
		case "start", "help":
			r.reply(msg.Chat.ID, helpText)
		case "loa":
			r.handleLOACommand(msg, args)
		case "removeloa":
			r.handleRemoveLOA(msg, args)
		case "clearloa":
			r.handleClearLOA(msg)
		case "loas":
			r.handleListLOAs(msg)
		case "stats":
			r.handleStats(msg)
		case "leaderboard":
			r.handleLeaderboard(msg)
		case "testpoll":
			r.handleTestPoll(msg)
		case "forcesummary":
			r.handleForceSummary(msg)
		case "settime":
			r.handleSetTime(msg, args)
		case "setmessage":
			r.handleSetMessage(msg, args)
		case "clearhistory":
			r.handleClearHistory(msg, args)
		case "removeloauser":
			r.handleRemoveLOAUser(msg, args)
		case "":
			r.handleFreeForm(msg, text)
		default:
			// Unknown command, ignore.
		}
		return
	}

	if upd.CallbackQuery != nil {
		r.handleCallback(upd.CallbackQuery)
	}
}

// PollDue opens the daily poll: a fresh prompt replaces the previous one
// and the summary is (re)posted. Satisfies scheduler.Trigger.
func (r *Router) PollDue(ctx context.Context) {
	r.postPrompt()
	r.postSummary()
}

// RolloverDue archives the finished day, drops the posted summary and
// refreshes the LOA display. Satisfies scheduler.Trigger.
func (r *Router) RolloverDue(ctx context.Context) {
	res, err := r.eng.RolloverDay()
	if err != nil {
		r.log.Error("rollover failed", zap.Error(err))
	}
	if res.Archived {
		r.log.Info("day archived", zap.String("date", res.Date.String()))
	}

	cfg := r.eng.Settings()
	r.mu.Lock()
	old := r.summary
	r.summary = 0
	r.mu.Unlock()
	if old != 0 && cfg.LogChat != 0 {
		r.deleteMessage(cfg.LogChat, old)
	}
	r.refreshLOAList()
}

// --- shared send helpers ---

func (r *Router) reply(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Error("send failed", zap.Error(err), zap.Int64("chat", chatID))
	}
}

func (r *Router) deleteMessage(chatID int64, messageID int) {
	if _, err := r.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		r.log.Warn("delete failed", zap.Error(err), zap.Int("msg", messageID))
	}
}

func (r *Router) answerCallback(id, text string) {
	if _, err := r.bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		r.log.Warn("answer callback failed", zap.Error(err))
	}
}

func userKey(id int64) string { return strconv.FormatInt(id, 10) }

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.UserName != "" {
		return u.UserName
	}
	return userKey(u.ID)
}
