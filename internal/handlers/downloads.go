package handlers

import (
	"context"
	"errors"

	"github.com/NikitaDmitryuk/mediagram/internal/downloader"
	"github.com/NikitaDmitryuk/mediagram/internal/downloader/manager"
	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (h *Handler) handleTorrentFile(doc *tgbotapi.Document) {
	if !utils.IsTorrentFile(doc.MimeType, doc.FileName) {
		logutils.Log.Warnf("Unsupported document type: %s (%s)", doc.FileName, doc.MimeType)
		h.send("⚠️ Unsupported file. Send a .torrent file or a magnet link.")
		return
	}
	if err := h.checkDownloadAllowed(); err != nil {
		h.send(h.submitErrorText(err, doc.FileName))
		return
	}

	body, err := h.bot.DownloadFile(doc.FileID)
	if err != nil {
		h.send("❌ Could not fetch " + doc.FileName)
		return
	}
	meta, err := downloader.ParseTorrentFile(body)
	if err != nil {
		logutils.Log.WithError(err).WithField("file", doc.FileName).Warn("Rejected torrent upload")
		h.send("❌ Invalid torrent file: " + doc.FileName)
		return
	}

	sub := manager.Submission{Kind: downloader.KindFile, DisplayName: meta.Name, InfoHash: meta.InfoHash}
	err = h.submit(sub, func(ctx context.Context) error {
		return h.adapter.AddFromFile(ctx, doc.FileName, body)
	})
	if err != nil {
		h.send(h.submitErrorText(err, meta.Name))
	}
}

func (h *Handler) handleMagnetLink(uri string) {
	name, err := downloader.MagnetDisplayName(uri)
	if err != nil {
		h.send("⚠️ Invalid magnet link.")
		return
	}
	if err := h.checkDownloadAllowed(); err != nil {
		h.send(h.submitErrorText(err, name))
		return
	}

	sub := manager.Submission{
		Kind:        downloader.KindMagnet,
		DisplayName: name,
		InfoHash:    downloader.MagnetInfoHash(uri),
	}
	err = h.submit(sub, func(ctx context.Context) error {
		return h.adapter.AddFromMagnet(ctx, uri)
	})
	if err != nil {
		h.send(h.submitErrorText(err, name))
	}
}

// checkDownloadAllowed holds the preconditions of every submission.
func (h *Handler) checkDownloadAllowed() error {
	if h.lifecycle.IsShuttingDown() {
		return utils.ErrShuttingDown
	}
	return h.store.EnsureRoot()
}

// submit hands a transfer to the daemon and starts watching it. No session exists when it
// returns an error.
func (h *Handler) submit(sub manager.Submission, add func(ctx context.Context) error) error {
	if err := h.checkDownloadAllowed(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	err := add(ctx)
	cancel()
	if err != nil {
		logutils.Log.WithError(err).WithField("name", sub.DisplayName).Error("Failed to submit download")
		return err
	}
	logutils.Log.WithFields(map[string]any{"name": sub.DisplayName, "kind": sub.Kind.String()}).Info("Download submitted")

	if _, err := h.sessions.Start(sub); err != nil {
		logutils.Log.WithError(err).WithField("name", sub.DisplayName).Error("Failed to start download session")
		return err
	}
	return nil
}

func (h *Handler) submitErrorText(err error, name string) string {
	switch {
	case errors.Is(err, utils.ErrShuttingDown):
		return "⚠️ Shutting down, " + name + " was not downloaded."
	case errors.Is(err, utils.ErrMissingDirectory):
		return "⚠️ Missing directory: " + h.store.Root()
	case errors.Is(err, utils.ErrAlreadyTracked):
		return "⚠️ " + name + " is already downloading."
	default:
		return "❌ Download failed for " + name + ": " + utils.RootError(err).Error()
	}
}
