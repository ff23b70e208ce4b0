// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package notify delivers operator alerts over Telegram. All sends are
// best-effort: delivery failures are logged and swallowed, never propagated
// into the recording or streaming paths.
package notify

import (
	"context"

	"github.com/ManuGH/pisentry/internal/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Telegram sends text and video alerts to a single operator chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegram connects the bot. It fails only on an unusable token; later
// delivery errors are absorbed per send.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:    bot,
		chatID: chatID,
		logger: log.WithComponent("notify"),
	}, nil
}

// SendText delivers a text alert.
func (t *Telegram) SendText(_ context.Context, message string) {
	t.logger.Debug().Str("event", "notify.text").Msg("sending telegram message")
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, message)); err != nil {
		t.logger.Warn().
			Err(err).
			Str("event", "notify.text_failed").
			Msg("could not send telegram message")
	}
}

// SendVideo uploads a video file to the operator chat.
func (t *Telegram) SendVideo(_ context.Context, path string) {
	t.logger.Debug().
		Str("event", "notify.video").
		Str("path", path).
		Msg("sending telegram video")
	if _, err := t.bot.Send(tgbotapi.NewVideo(t.chatID, tgbotapi.FilePath(path))); err != nil {
		t.logger.Warn().
			Err(err).
			Str("event", "notify.video_failed").
			Str("path", path).
			Msg("could not send telegram video")
	}
}

// Noop is used when no Telegram credentials are configured. Alerts degrade
// to log lines.
type Noop struct {
	logger zerolog.Logger
}

// NewNoop creates a logging-only notifier.
func NewNoop() *Noop {
	return &Noop{logger: log.WithComponent("notify")}
}

// SendText logs the alert that would have been sent.
func (n *Noop) SendText(_ context.Context, message string) {
	n.logger.Info().
		Str("event", "notify.skipped").
		Str("message", message).
		Msg("telegram not configured, alert not sent")
}

// SendVideo logs the video that would have been sent.
func (n *Noop) SendVideo(_ context.Context, path string) {
	n.logger.Info().
		Str("event", "notify.skipped").
		Str("path", path).
		Msg("telegram not configured, video not sent")
}
