package handlers

import (
	"strings"

	"github.com/NikitaDmitryuk/mediagram/internal/bot"
	"github.com/NikitaDmitryuk/mediagram/internal/config"
	"github.com/NikitaDmitryuk/mediagram/internal/database"
	"github.com/NikitaDmitryuk/mediagram/internal/downloader"
	"github.com/NikitaDmitryuk/mediagram/internal/downloader/manager"
	"github.com/NikitaDmitryuk/mediagram/internal/filesystem"
	"github.com/NikitaDmitryuk/mediagram/internal/handlers/session"
	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/search"
	"github.com/NikitaDmitryuk/mediagram/internal/shutdown"
	"github.com/NikitaDmitryuk/mediagram/internal/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// ExitReason tells the entrypoint what to do once the run is over.
type ExitReason int

const (
	ExitStop ExitReason = iota
	ExitRestart
)

// Options are the collaborators of a Handler. Torrents, Subtitles and History may be nil
// when the feature is not configured.
type Options struct {
	ChatID      int64
	Bot         bot.Service
	Lifecycle   *shutdown.Lifecycle
	Adapter     *downloader.Adapter
	Sessions    *manager.Manager
	Store       *filesystem.Store
	Flow        *session.Context
	Torrents    *search.Torrents
	Subtitles   *search.Subtitles
	History     database.HistoryReader
	MoveTargets []config.MoveTarget
	Languages   []string
}

// Handler routes chat updates. It is driven by one dispatch loop, so updates are handled
// one at a time.
type Handler struct {
	chatID      int64
	bot         bot.Service
	lifecycle   *shutdown.Lifecycle
	adapter     *downloader.Adapter
	sessions    *manager.Manager
	store       *filesystem.Store
	flow        *session.Context
	torrents    *search.Torrents
	subtitles   *search.Subtitles
	history     database.HistoryReader
	moveTargets []config.MoveTarget
	languages   []string

	exit ExitReason
}

func NewHandler(opts Options) *Handler {
	return &Handler{
		chatID:      opts.ChatID,
		bot:         opts.Bot,
		lifecycle:   opts.Lifecycle,
		adapter:     opts.Adapter,
		sessions:    opts.Sessions,
		store:       opts.Store,
		flow:        opts.Flow,
		torrents:    opts.Torrents,
		subtitles:   opts.Subtitles,
		history:     opts.History,
		moveTargets: opts.MoveTargets,
		languages:   opts.Languages,
		exit:        ExitStop,
	}
}

// ExitReason is ExitRestart only after /restart.
func (h *Handler) ExitReason() ExitReason {
	return h.exit
}

func (h *Handler) Router(update *tgbotapi.Update) {
	if update.CallbackQuery != nil {
		cq := update.CallbackQuery
		if cq.Message == nil || !h.authorized(cq.Message.Chat) {
			logutils.Log.WithField("callback_id", cq.ID).Warn("Callback from an unauthorized chat ignored")
			return
		}
		h.handleCallback(cq)
		return
	}

	msg := update.Message
	if msg == nil {
		return
	}
	if !h.authorized(msg.Chat) {
		logMessage(msg).Warn("Message from an unauthorized chat ignored")
		return
	}
	logMessage(msg).Info("Message received")

	switch {
	case msg.IsCommand():
		h.handleCommand(msg)
	case msg.Document != nil:
		h.handleTorrentFile(msg.Document)
	case utils.IsMagnetLink(msg.Text):
		h.handleMagnetLink(strings.TrimSpace(msg.Text))
	case h.flow.Stage() == session.StageSearchResults && isQuickToken(strings.TrimSpace(msg.Text)):
		h.pickTorrent(strings.TrimSpace(msg.Text))
	default:
		h.send("⚠️ Unknown command. Send /help for the list.")
	}
}

func (h *Handler) authorized(chat *tgbotapi.Chat) bool {
	return chat != nil && chat.ID == h.chatID
}

func logMessage(msg *tgbotapi.Message) *logrus.Entry {
	fields := map[string]any{"chat_id": int64(0), "text": msg.Text}
	if msg.Chat != nil {
		fields["chat_id"] = msg.Chat.ID
	}
	if msg.From != nil {
		fields["user"] = msg.From.UserName
	}
	if msg.Document != nil {
		fields["document"] = msg.Document.FileName
	}
	return logutils.Log.WithFields(fields)
}

func isQuickToken(text string) bool {
	for _, token := range search.QuickTokens {
		if token == text {
			return true
		}
	}
	return false
}

// send posts a standalone message outside any flow.
func (h *Handler) send(text string) {
	if _, err := h.bot.SendMessage(text, nil); err != nil {
		logutils.Log.WithError(err).Warn("Failed to send reply")
	}
}
