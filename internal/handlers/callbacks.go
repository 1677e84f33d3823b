package handlers

import (
	"github.com/NikitaDmitryuk/mediagram/internal/handlers/session"
	"github.com/NikitaDmitryuk/mediagram/internal/handlers/ui"
	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleCallback dispatches a button press on the stage of the running flow. Buttons of a
// finished or cancelled flow carry a stale flow id and are rejected.
func (h *Handler) handleCallback(cq *tgbotapi.CallbackQuery) {
	cb, ok := ui.ParseCallback(cq.Data)
	if !ok || !h.flow.Owns(cb.FlowID) {
		logutils.Log.WithField("data", cq.Data).Info("Stale button pressed")
		h.bot.AnswerCallback(cq.ID, "⚠️ This menu has expired.")
		return
	}
	h.bot.AnswerCallback(cq.ID, "")

	if cb.Action == ui.ActionCancel {
		h.flow.Cancel(h.bot)
		return
	}

	stage := h.flow.Stage()
	index, hasIndex := cb.Index()
	switch {
	case stage == session.StageSearchResults && cb.Action == ui.ActionPick:
		h.pickTorrent(cb.Arg)
	case stage == session.StageSearchConfirm && cb.Action == ui.ActionConfirm:
		h.confirmTorrent()
	case stage == session.StageDeletePick && cb.Action == ui.ActionPick && hasIndex:
		h.pickDelete(index)
	case stage == session.StageDeleteConfirm && cb.Action == ui.ActionConfirm:
		h.confirmDelete()
	case stage == session.StageMovePick && cb.Action == ui.ActionPick && hasIndex:
		h.pickMove(index)
	case stage == session.StageMoveTarget && cb.Action == ui.ActionTarget && hasIndex:
		h.confirmMove(index)
	case stage == session.StageSubtitlePick && cb.Action == ui.ActionPick && hasIndex:
		h.pickSubtitleFile(index)
	case stage == session.StageSubtitleLang && cb.Action == ui.ActionLang && h.knownLanguage(cb.Arg):
		h.searchSubtitles(cb.Arg)
	case stage == session.StageSubtitleResults && cb.Action == ui.ActionPick:
		h.downloadSubtitle(cb.Arg)
	default:
		logutils.Log.WithFields(map[string]any{"stage": string(stage), "action": cb.Action}).Debug("Button does not match the current step")
	}
}
