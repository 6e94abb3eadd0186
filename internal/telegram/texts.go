package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/AISystem01/404TurfBot/internal/engine"
)

// UI texts
const (
	helpText = "👋 I run the daily turf availability poll.\n\n" +
		"When the poll appears, answer with the buttons. Other commands:\n" +
		"/loa – log a leave of absence\n" +
		"/removeloa – remove one of your LOAs\n" +
		"/clearloa – remove all your LOAs\n" +
		"/loas – view active and upcoming LOAs\n" +
		"/stats – your attendance stats\n" +
		"/leaderboard – attendance leaderboard\n\n" +
		"Admins: /testpoll, /forcesummary, /settime HH:MM, /setmessage <text>, " +
		"/clearhistory [user|all], /removeloauser <user>"

	askNoReason    = ", why not? Reply with a short reason."
	askLaterDetail = ", what time will you join? Reply with a time, or - to skip."
	askLOAText     = "Send your LOA in one message: <start> <end> <reason>, dates as dd/mm/yyyy.\nExample: 20/05/2025 22/05/2025 family trip"

	recordedText         = "✅ Your response has been recorded!"
	invalidStatusText    = "❌ Please answer Yes, No or Yes but later."
	invalidLOAText       = "❌ Invalid LOA format. Use: <start> <end> <reason>, dates as dd/mm/yyyy."
	invalidDateText      = "❌ Invalid date format. Use dd/mm/yyyy."
	invalidRangeText     = "❌ End date is before start date."
	invalidTimeText      = "❌ Invalid time. Use HH:MM with hour 0-23 and minute 0-59."
	invalidSelectionText = "❌ Invalid selection."
	noLOAsText           = "❌ You have no LOAs to remove."
	notPermittedText     = "❌ Not permitted."
	storageErrText       = "⚠️ Something went wrong saving that. Please try again."
)

// availabilityKeyboard is the inline keyboard attached to the poll prompt.
func availabilityKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Yes", cbYes),
			tgbotapi.NewInlineKeyboardButtonData("⏰ Yes but later", cbLater),
			tgbotapi.NewInlineKeyboardButtonData("❌ No", cbNo),
		),
	)
}

func loaListText(listings []engine.LOAListing) string {
	if len(listings) == 0 {
		return "📋 Current and Upcoming LOAs:\n✅ No active LOAs."
	}
	var b strings.Builder
	b.WriteString("📋 Current and Upcoming LOAs:\n")
	for _, l := range listings {
		fmt.Fprintf(&b, "📅 %s — %s to %s – %s\n",
			l.Name, l.Entry.Start.Display(), l.Entry.End.Display(), l.Entry.Reason)
	}
	return strings.TrimRight(b.String(), "\n")
}

func statsText(p engine.StatsPayload) string {
	return fmt.Sprintf(
		"📊 Stats for %s\nTotal responses: %d\n✅ Yes: %d\n❌ No: %d\n📈 Attendance: %.1f%%\n📝 Most common reason: %s",
		p.Name, p.Total, p.Yes, p.No, p.Percent, p.CommonReason)
}

func leaderboardText(rows []engine.LeaderboardRow) string {
	if len(rows) == 0 {
		return "No sufficient data for leaderboard."
	}
	var b strings.Builder
	b.WriteString("🏆 Attendance Leaderboard:\n")
	for i, r := range rows {
		fmt.Fprintf(&b, "%d. %s - %.1f%% attendance (%d responses)\n", i+1, r.Name, r.Percent, r.Total)
	}
	return strings.TrimRight(b.String(), "\n")
}
