package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/database"
	"github.com/NikitaDmitryuk/mediagram/internal/downloader"
	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/utils"
	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	requestTimeout = 15 * time.Second
	searchTimeout  = time.Minute
	historyLimit   = 10
	startedLayout  = "2006-01-02 15:04:05"
)

const helpText = `📝 Send a .torrent file or a magnet link to download it.

/search <query> 🔍 search torrents
/status 📡 active downloads
/list 📂 downloaded files
/delete ❌ delete a file
/move 📦 move a file to a library
/subtitles 💬 fetch subtitles for a file
/df 💽 disk usage
/history 🗂️ last downloads
/cancel ✖️ close the current menu
/clear 🧹 remove every transfer from the daemon
/alive ⚪ health check
/stop 🔴 kill the bot
/restart 🔵 restart the bot`

func (h *Handler) handleCommand(msg *tgbotapi.Message) {
	command := strings.ToLower(msg.Command())
	switch command {
	case "start", "alive":
		h.alive()
	case "help":
		h.send(helpText)
	case "stop":
		h.requestExit(ExitStop)
	case "restart":
		h.requestExit(ExitRestart)
	case "status":
		h.status()
	case "clear":
		h.clearDaemon()
	case "list":
		h.listEntries()
	case "delete":
		h.startDelete()
	case "move":
		h.startMove()
	case "subtitles":
		h.startSubtitles()
	case "search":
		h.startSearch(strings.TrimSpace(msg.CommandArguments()))
	case "df":
		h.diskUsage()
	case "history":
		h.showHistory()
	case "cancel":
		h.cancelFlow()
	default:
		logutils.Log.Warnf("Unknown command: %s", command)
		h.send("⚠️ Unknown command. Send /help for the list.")
	}
}

func (h *Handler) alive() {
	started := h.lifecycle.StartedAt()
	h.send(fmt.Sprintf("⏰ Started at %s (%s)\n🟢 Running...", started.Format(startedLayout), humanize.Time(started)))
}

// requestExit only flips the lifecycle flag; the entrypoint drains sessions once the
// dispatch loop sees it.
func (h *Handler) requestExit(reason ExitReason) {
	h.exit = reason
	if reason == ExitRestart {
		h.send("🔵 Restarting... ")
	} else {
		h.send("🟠 Stopping... ")
	}
	h.lifecycle.RequestShutdown()
}

func (h *Handler) status() {
	active := h.sessions.Active()
	if len(active) == 0 {
		h.send("💤 No active download.")
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📡 %d active download(s)\n", len(active))
	for _, s := range active {
		fmt.Fprintf(&b, "\n🌍 %s\n🔥 %s, started %s", s.DisplayName, s.Kind, humanize.Time(s.StartedAt))
	}
	h.send(b.String())
}

func (h *Handler) clearDaemon() {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := h.adapter.PurgeAll(ctx); err != nil {
		h.send("❌ Could not clear the daemon: " + utils.RootError(err).Error())
		return
	}
	h.send("🧹 Every transfer was removed.")
}

func (h *Handler) listEntries() {
	entries, err := h.store.ListEntries()
	if err != nil {
		h.send(h.storeErrorText(err))
		return
	}
	if len(entries) == 0 {
		h.send("📂 The download directory is empty.")
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📂 %d file(s)\n", len(entries))
	for _, e := range entries {
		icon := "📄"
		if e.IsDir {
			icon = "📁"
		}
		fmt.Fprintf(&b, "\n%s %s 💾 %s", icon, e.Name, downloader.FormatSize(e.Size))
	}
	h.send(b.String())
}

func (h *Handler) diskUsage() {
	usage, err := h.store.DiskUsage()
	if err != nil {
		logutils.Log.WithError(err).Error("Failed to read disk usage")
		h.send(h.storeErrorText(err))
		return
	}
	h.send(fmt.Sprintf("💽 %s / %s (%.1f %%)\n🆓 %s free",
		downloader.FormatSize(usage.Used),
		downloader.FormatSize(usage.Total),
		usage.UsedPercent,
		downloader.FormatSize(usage.Free),
	))
}

func (h *Handler) showHistory() {
	if h.history == nil {
		h.send("⚠️ Download history is disabled.")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	downloads, err := h.history.RecentDownloads(ctx, historyLimit)
	if err != nil {
		logutils.Log.WithError(err).Error("Failed to read download history")
		h.send("❌ Could not read the download history.")
		return
	}
	if len(downloads) == 0 {
		h.send("🗂️ No download yet.")
		return
	}
	var b strings.Builder
	b.WriteString("🗂️ Last downloads\n")
	for _, d := range downloads {
		fmt.Fprintf(&b, "\n%s %s 💾 %s, %s", outcomeGlyph(d.Outcome), d.Name, downloader.FormatSize(d.Size), humanize.Time(d.FinishedAt))
	}
	h.send(b.String())
}

func outcomeGlyph(outcome string) string {
	switch outcome {
	case database.OutcomeDone:
		return "✅"
	case database.OutcomeAborted:
		return "🛑"
	case database.OutcomeVanished:
		return "👻"
	default:
		return "❔"
	}
}

func (h *Handler) cancelFlow() {
	if !h.flow.Active() {
		h.send("⚠️ Nothing to cancel.")
		return
	}
	n := h.flow.Cancel(h.bot)
	logutils.Log.WithField("retracted", n).Info("Flow cancelled")
}

func (h *Handler) storeErrorText(err error) string {
	if errors.Is(err, utils.ErrMissingDirectory) {
		return "⚠️ Missing directory: " + h.store.Root()
	}
	return "❌ " + utils.RootError(err).Error()
}
