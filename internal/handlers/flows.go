package handlers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/NikitaDmitryuk/mediagram/internal/downloader"
	"github.com/NikitaDmitryuk/mediagram/internal/downloader/manager"
	"github.com/NikitaDmitryuk/mediagram/internal/handlers/session"
	"github.com/NikitaDmitryuk/mediagram/internal/handlers/ui"
	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/search"
	"github.com/NikitaDmitryuk/mediagram/internal/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Flow-scoped keys of session.Context.
const (
	keyEntries   = "entries"
	keyTorrents  = "torrents"
	keyToken     = "token"
	keySubtitles = "subtitles"
	keyLanguage  = "language"
)

var videoExtensions = map[string]bool{".mkv": true, ".mp4": true, ".avi": true, ".m4v": true, ".mov": true, ".webm": true}

// beginFlow refuses to start while another flow is open.
func (h *Handler) beginFlow(stage session.Stage) (string, bool) {
	flowID, err := h.flow.Begin(stage)
	if err != nil {
		h.send("⚠️ Another menu is open. Send /cancel to close it.")
		return "", false
	}
	return flowID, true
}

// abortFlow ends a flow that has not shown any prompt yet.
func (h *Handler) abortFlow(text string) {
	h.flow.Cancel(h.bot)
	h.send(text)
}

// prompt sends a flow message and records it for retraction.
func (h *Handler) prompt(stage session.Stage, text string, keyboard tgbotapi.InlineKeyboardMarkup) bool {
	id, err := h.bot.SendMessage(text, keyboard)
	if err != nil {
		logutils.Log.WithError(err).WithField("stage", stage).Warn("Failed to send flow prompt")
		h.flow.Cancel(h.bot)
		h.send("❌ Could not show the menu: " + utils.RootError(err).Error())
		return false
	}
	h.flow.Push(stage, id)
	return true
}

// finishFlow retracts the intermediate prompts and turns the last one into the final message.
func (h *Handler) finishFlow(text string) {
	last, ok := h.flow.Last()
	h.flow.Clear(h.bot)
	if !ok {
		h.send(text)
		return
	}
	if err := h.bot.EditMessage(last.MessageID, text, nil); err != nil {
		h.send(text)
	}
}

func (h *Handler) entryNames() ([]string, error) {
	entries, err := h.store.ListEntries()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names, nil
}

// startFilePick opens a flow whose first step picks a download directory entry.
func (h *Handler) startFilePick(stage session.Stage, question string) {
	flowID, ok := h.beginFlow(stage)
	if !ok {
		return
	}
	names, err := h.entryNames()
	if err != nil {
		h.abortFlow(h.storeErrorText(err))
		return
	}
	if len(names) == 0 {
		h.abortFlow("📂 The download directory is empty.")
		return
	}
	h.flow.Set(keyEntries, names)
	h.prompt(stage, question, ui.ChoiceKeyboard(flowID, ui.ActionPick, names))
}

func (h *Handler) pickedEntry(index int) (string, bool) {
	names, _ := h.flow.Get(keyEntries).([]string)
	if index < 0 || index >= len(names) {
		return "", false
	}
	h.flow.SetSelectedFile(names[index])
	return names[index], true
}

// inFlight returns the daemon transfer writing to entry, if any.
func (h *Handler) inFlight(entry string) (downloader.TorrentStatus, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	status, found, err := h.adapter.ByName(ctx, entry)
	if err != nil {
		logutils.Log.WithError(err).WithField("entry", entry).Warn("Could not check the daemon for the entry")
		return downloader.TorrentStatus{}, false
	}
	return status, found
}

// Search

func (h *Handler) startSearch(query string) {
	if h.torrents == nil {
		h.send("⚠️ Torrent search is not configured.")
		return
	}
	if query == "" {
		h.send("⚠️ Usage: /search <query>")
		return
	}
	flowID, ok := h.beginFlow(session.StageSearchResults)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(h.lifecycle.Context(), searchTimeout)
	defer cancel()
	results, err := h.torrents.Query(ctx, query)
	if err != nil {
		if errors.Is(err, utils.ErrNoResult) {
			h.abortFlow(fmt.Sprintf("🔍❌ No result for \"%s\".", query))
			return
		}
		h.abortFlow("❌ Search failed: " + utils.RootError(err).Error())
		return
	}

	tokens := search.QuickTokens[:len(results)]
	magnets := make(map[string]string, len(results))
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Results for \"%s\"\n", query)
	for i, t := range results {
		magnets[tokens[i]] = t.Magnet
		fmt.Fprintf(&b, "\n%s. %s\n🌱 %d/%d 💾 %s", tokens[i], t.Name, t.Seeders, t.Leechers, downloader.FormatSize(t.Size))
		if !t.Published.IsZero() {
			fmt.Fprintf(&b, " 📅 %s", t.Published.Format("2006-01-02"))
		}
		b.WriteString("\n")
	}
	h.flow.SetMagnets(magnets)
	h.flow.Set(keyTorrents, results)
	h.prompt(session.StageSearchResults, b.String(), ui.TokenKeyboard(flowID, tokens))
}

func (h *Handler) pickTorrent(token string) {
	if _, ok := h.flow.Magnet(token); !ok {
		return
	}
	t, ok := h.torrentFor(token)
	if !ok {
		return
	}
	h.flow.Set(keyToken, token)
	h.prompt(session.StageSearchConfirm,
		fmt.Sprintf("⬇️ Download %s?\n🌱 %d/%d 💾 %s", t.Name, t.Seeders, t.Leechers, downloader.FormatSize(t.Size)),
		ui.ConfirmKeyboard(h.flow.FlowID()))
}

func (h *Handler) torrentFor(token string) (search.Torrent, bool) {
	results, _ := h.flow.Get(keyTorrents).([]search.Torrent)
	for i, t := range results {
		if search.QuickTokens[i] == token {
			return t, true
		}
	}
	return search.Torrent{}, false
}

func (h *Handler) confirmTorrent() {
	token, _ := h.flow.Get(keyToken).(string)
	uri, ok := h.flow.Magnet(token)
	t, found := h.torrentFor(token)
	if !ok || !found {
		return
	}
	name := t.Name
	if utils.IsMagnetLink(uri) {
		if dn, err := downloader.MagnetDisplayName(uri); err == nil && dn != "" {
			name = dn
		}
	}

	sub := manager.Submission{
		Kind:        downloader.KindMagnet,
		DisplayName: name,
		InfoHash:    downloader.MagnetInfoHash(uri),
	}
	err := h.submit(sub, func(ctx context.Context) error {
		return h.adapter.AddFromMagnet(ctx, uri)
	})
	if err != nil {
		h.finishFlow(h.submitErrorText(err, name))
		return
	}
	h.finishFlow("⬇️ " + name + " sent to the daemon.")
}

// Delete

func (h *Handler) startDelete() {
	h.startFilePick(session.StageDeletePick, "❌ Which file should be deleted?")
}

func (h *Handler) pickDelete(index int) {
	name, ok := h.pickedEntry(index)
	if !ok {
		return
	}
	h.prompt(session.StageDeleteConfirm, "❌ Delete "+name+"?", ui.ConfirmKeyboard(h.flow.FlowID()))
}

// confirmDelete also removes a matching transfer from the daemon, so its session ends as vanished.
func (h *Handler) confirmDelete() {
	name := h.flow.SelectedFile()
	if status, found := h.inFlight(name); found {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		err := h.adapter.Delete(ctx, status.ID, true)
		cancel()
		if err != nil {
			logutils.Log.WithError(err).WithField("torrent_id", status.ID).Warn("Failed to remove the transfer of a deleted entry")
		}
	}
	if err := h.store.RemoveEntry(name); err != nil {
		h.finishFlow("❌ Could not delete " + name + ": " + utils.RootError(err).Error())
		return
	}
	h.finishFlow("🗑️ " + name + " deleted.")
}

// Move

func (h *Handler) startMove() {
	if len(h.moveTargets) == 0 {
		h.send("⚠️ No move target is configured.")
		return
	}
	h.startFilePick(session.StageMovePick, "📦 Which file should be moved?")
}

func (h *Handler) pickMove(index int) {
	name, ok := h.pickedEntry(index)
	if !ok {
		return
	}
	labels := make([]string, 0, len(h.moveTargets))
	for _, t := range h.moveTargets {
		labels = append(labels, t.Label)
	}
	h.prompt(session.StageMoveTarget, "📦 Move "+name+" to?", ui.ChoiceKeyboard(h.flow.FlowID(), ui.ActionTarget, labels))
}

func (h *Handler) confirmMove(index int) {
	if index < 0 || index >= len(h.moveTargets) {
		return
	}
	target := h.moveTargets[index]
	name := h.flow.SelectedFile()
	if _, found := h.inFlight(name); found {
		h.finishFlow("⚠️ " + name + " is still downloading.")
		return
	}
	if err := h.store.Move(name, target.Path); err != nil {
		if errors.Is(err, utils.ErrMissingDirectory) {
			h.finishFlow("⚠️ Missing directory: " + target.Path)
			return
		}
		h.finishFlow("❌ Could not move " + name + ": " + utils.RootError(err).Error())
		return
	}
	h.finishFlow("📦 " + name + " moved to " + target.Label + ".")
}

// Subtitles

func (h *Handler) startSubtitles() {
	if h.subtitles == nil {
		h.send("⚠️ Subtitle search is not configured.")
		return
	}
	h.startFilePick(session.StageSubtitlePick, "💬 Subtitles for which file?")
}

func (h *Handler) pickSubtitleFile(index int) {
	name, ok := h.pickedEntry(index)
	if !ok {
		return
	}
	if len(h.languages) == 1 {
		h.searchSubtitles(h.languages[0])
		return
	}
	h.prompt(session.StageSubtitleLang, "💬 Which language for "+name+"?", ui.LanguageKeyboard(h.flow.FlowID(), h.languages))
}

func (h *Handler) knownLanguage(language string) bool {
	for _, l := range h.languages {
		if l == language {
			return true
		}
	}
	return false
}

func (h *Handler) searchSubtitles(language string) {
	name := h.flow.SelectedFile()
	ctx, cancel := context.WithTimeout(h.lifecycle.Context(), searchTimeout)
	defer cancel()
	results, err := h.subtitles.Query(ctx, subtitleQuery(name), language)
	if err != nil {
		if errors.Is(err, utils.ErrNoResult) {
			h.finishFlow("🔍❌ No " + strings.ToUpper(language) + " subtitles for " + name + ".")
			return
		}
		h.finishFlow("❌ Subtitle search failed: " + utils.RootError(err).Error())
		return
	}

	tokens := search.QuickTokens[:len(results)]
	var b strings.Builder
	fmt.Fprintf(&b, "💬 %s subtitles for %s\n", strings.ToUpper(language), name)
	for i, s := range results {
		fmt.Fprintf(&b, "\n%s. %s\n📥 %d downloads", tokens[i], s.Name, s.DownloadCount)
	}
	h.flow.Set(keySubtitles, results)
	h.flow.Set(keyLanguage, language)
	h.prompt(session.StageSubtitleResults, b.String(), ui.TokenKeyboard(h.flow.FlowID(), tokens))
}

func (h *Handler) downloadSubtitle(token string) {
	results, _ := h.flow.Get(keySubtitles).([]search.Subtitle)
	language, _ := h.flow.Get(keyLanguage).(string)
	var picked *search.Subtitle
	for i := range results {
		if search.QuickTokens[i] == token {
			picked = &results[i]
			break
		}
	}
	if picked == nil {
		return
	}

	name := h.flow.SelectedFile()
	ctx, cancel := context.WithTimeout(h.lifecycle.Context(), searchTimeout)
	defer cancel()
	data, err := h.subtitles.Download(ctx, *picked)
	if err != nil {
		logutils.Log.WithError(err).WithField("file_id", picked.FileID).Error("Subtitle download failed")
		h.finishFlow("❌ Subtitle download failed: " + utils.RootError(err).Error())
		return
	}
	fileName := subtitleQuery(name) + "." + language + "." + picked.Ext
	if _, err := h.store.SaveBeside(name, fileName, data); err != nil {
		h.finishFlow("❌ Could not save " + fileName + ": " + utils.RootError(err).Error())
		return
	}
	h.finishFlow("💬 " + fileName + " saved.")
}

// subtitleQuery strips a video extension and keeps release names like Movie.2020.1080p intact.
func subtitleQuery(name string) string {
	ext := filepath.Ext(name)
	if videoExtensions[strings.ToLower(ext)] {
		return strings.TrimSuffix(name, ext)
	}
	return name
}
