package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/achimid/web-page-notify-api/internal/model"
)

type TelegramConfig struct {
	Token         string
	DefaultChatID int64
	// Offline skips the getMe call on construction; used in tests.
	Offline bool
}

// Telegram delivers messages through the Bot API. The channel target is a
// chat ID; when empty the configured default chat is used.
type Telegram struct {
	bot         *tele.Bot
	defaultChat int64
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: cfg.Offline,
		Client:  nil,
		Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, defaultChat: cfg.DefaultChatID}, nil
}

func (t *Telegram) Deliver(ctx context.Context, ch model.Channel, msg Message) error {
	chatID := t.defaultChat
	if s := strings.TrimSpace(ch.Target); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("telegram target %q: %w", ch.Target, err)
		}
		chatID = id
	}
	if chatID == 0 {
		return errors.New("telegram chat id not configured")
	}
	_, err := t.bot.Send(&tele.Chat{ID: chatID}, msg.Text)
	return err
}
