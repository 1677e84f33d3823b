package ui

import (
	"strconv"
	"strings"

	"github.com/NikitaDmitryuk/mediagram/internal/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback actions carried by inline buttons.
const (
	ActionPick    = "pick"
	ActionConfirm = "ok"
	ActionTarget  = "target"
	ActionLang    = "lang"
	ActionCancel  = "cancel"
)

const (
	callbackSep   = "|"
	maxLabelRunes = 48
)

// Callback is a decoded inline button press.
type Callback struct {
	FlowID string
	Action string
	Arg    string
}

// Index returns Arg as a list index.
func (c Callback) Index() (int, bool) {
	i, err := strconv.Atoi(c.Arg)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// CallbackData encodes a button payload. Telegram caps it at 64 bytes, so arguments are
// indexes or short tokens, never file names.
func CallbackData(flowID, action, arg string) string {
	return flowID + callbackSep + action + callbackSep + arg
}

func ParseCallback(data string) (Callback, bool) {
	parts := strings.SplitN(data, callbackSep, 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return Callback{}, false
	}
	return Callback{FlowID: parts[0], Action: parts[1], Arg: parts[2]}, true
}

func cancelRow(flowID string) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", CallbackData(flowID, ActionCancel, "")),
	)
}

// ChoiceKeyboard lists labels one per row; each button carries its index.
func ChoiceKeyboard(flowID, action string, labels []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(labels)+1)
	for i, label := range labels {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(utils.Truncate(label, maxLabelRunes), CallbackData(flowID, action, strconv.Itoa(i))),
		))
	}
	rows = append(rows, cancelRow(flowID))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// TokenKeyboard puts the quick-select tokens on one row.
func TokenKeyboard(flowID string, tokens []string) tgbotapi.InlineKeyboardMarkup {
	buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(tokens))
	for _, token := range tokens {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(token, CallbackData(flowID, ActionPick, token)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(buttons, cancelRow(flowID))
}

func ConfirmKeyboard(flowID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Yes", CallbackData(flowID, ActionConfirm, "")),
			tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", CallbackData(flowID, ActionCancel, "")),
		),
	)
}

// LanguageKeyboard offers one button per language code on a single row.
func LanguageKeyboard(flowID string, languages []string) tgbotapi.InlineKeyboardMarkup {
	buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(languages))
	for _, l := range languages {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(strings.ToUpper(l), CallbackData(flowID, ActionLang, l)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(buttons, cancelRow(flowID))
}

// Commands is the command menu registered with Telegram at startup.
func Commands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "help", Description: "📝 Description"},
		{Command: "alive", Description: "⚪ HealthCheck"},
		{Command: "status", Description: "📡 Active downloads"},
		{Command: "search", Description: "🔍 Search torrents"},
		{Command: "list", Description: "📂 List media files"},
		{Command: "delete", Description: "❌ Delete a file"},
		{Command: "move", Description: "📦 Move a file"},
		{Command: "subtitles", Description: "💬 Fetch subtitles"},
		{Command: "df", Description: "💽 Disk usage"},
		{Command: "history", Description: "🗂️ Download history"},
		{Command: "cancel", Description: "✖️ Cancel the current menu"},
		{Command: "clear", Description: "🧹 Remove every transfer"},
		{Command: "stop", Description: "🔴 Kill the bot"},
		{Command: "restart", Description: "🔵 Restart the bot"},
	}
}
