package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram refuses getFile for anything bigger.
const maxDownloadSize = 20 << 20

// Service is the notifier used by sessions and handlers. Every call targets the operator chat.
type Service interface {
	SendMessage(text string, keyboard any) (int, error)
	EditMessage(messageID int, text string, keyboard any) error
	DeleteMessage(messageID int) error
	DownloadFile(fileID string) ([]byte, error)
	AnswerCallback(callbackID, text string)
}

// Bot is the tgbotapi implementation of Service, bound to a single chat.
type Bot struct {
	Api        *tgbotapi.BotAPI
	chatID     int64
	httpClient *http.Client
}

var _ Service = (*Bot)(nil)

func NewBot(botToken string, chatID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		logutils.Log.WithError(err).Error("Error creating bot")
		return nil, fmt.Errorf("error creating bot: %w", err)
	}
	logutils.Log.Infof("Authorized on account %s", api.Self.UserName)
	return &Bot{
		Api:        api,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: time.Minute},
	}, nil
}

func (b *Bot) ChatID() int64 {
	return b.chatID
}

func (b *Bot) SendMessage(text string, keyboard any) (int, error) {
	msg := tgbotapi.NewMessage(b.chatID, text)
	switch k := keyboard.(type) {
	case tgbotapi.ReplyKeyboardMarkup:
		msg.ReplyMarkup = k
	case tgbotapi.ReplyKeyboardRemove:
		msg.ReplyMarkup = k
	case tgbotapi.InlineKeyboardMarkup:
		msg.ReplyMarkup = k
	case *tgbotapi.InlineKeyboardMarkup:
		if k != nil {
			msg.ReplyMarkup = *k
		}
	}
	sent, err := b.Api.Send(msg)
	if err != nil {
		logutils.Log.WithError(err).Errorf("Message not sent: %s", text)
		return 0, err
	}
	return sent.MessageID, nil
}

// EditMessage replaces text and inline keyboard. Telegram's "message is not modified" is not an error here.
func (b *Bot) EditMessage(messageID int, text string, keyboard any) error {
	var edit tgbotapi.EditMessageTextConfig
	switch k := keyboard.(type) {
	case tgbotapi.InlineKeyboardMarkup:
		edit = tgbotapi.NewEditMessageTextAndMarkup(b.chatID, messageID, text, k)
	case *tgbotapi.InlineKeyboardMarkup:
		edit = tgbotapi.NewEditMessageText(b.chatID, messageID, text)
		edit.ReplyMarkup = k
	default:
		edit = tgbotapi.NewEditMessageText(b.chatID, messageID, text)
	}
	if _, err := b.Api.Request(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		logutils.Log.WithError(err).WithField("message_id", messageID).Error("Failed to edit message")
		return err
	}
	return nil
}

func (b *Bot) DeleteMessage(messageID int) error {
	if _, err := b.Api.Request(tgbotapi.NewDeleteMessage(b.chatID, messageID)); err != nil {
		logutils.Log.WithError(err).Errorf("Failed to delete message %d in chat %d", messageID, b.chatID)
		return err
	}
	return nil
}

// DownloadFile fetches an uploaded document into memory.
func (b *Bot) DownloadFile(fileID string) ([]byte, error) {
	file, err := b.Api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		logutils.Log.WithError(err).Error("Failed to get file")
		return nil, err
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, file.Link(b.Api.Token), http.NoBody)
	if err != nil {
		return nil, err
	}
	// #nosec G107 -- URL is built by the Bot API from the bot token
	resp, err := b.httpClient.Do(req)
	if err != nil {
		logutils.Log.WithError(err).Error("Failed to download file")
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("download file: larger than %d bytes", maxDownloadSize)
	}
	return data, nil
}

func (b *Bot) AnswerCallback(callbackID, text string) {
	if _, err := b.Api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		logutils.Log.WithError(err).Error("Failed to answer callback query")
	}
}

// SetCommands replaces the command menu shown by Telegram clients.
func (b *Bot) SetCommands(commands []tgbotapi.BotCommand) error {
	if _, err := b.Api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	return nil
}

// Updates starts long polling.
func (b *Bot) Updates(timeout int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	return b.Api.GetUpdatesChan(u)
}

// StopReceiving closes the update channel returned by Updates.
func (b *Bot) StopReceiving() {
	b.Api.StopReceivingUpdates()
}
