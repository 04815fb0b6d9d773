package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// SessionFactory builds the session a chat drives the first time it writes.
type SessionFactory func(chatID int64) *Session

// maxMessageLength is Telegram's limit for one message, in characters.
const maxMessageLength = 4096

type Bot struct {
	api        *tgbotapi.BotAPI
	newSession SessionFactory
	logger     *zap.Logger
	queues     *chatQueues

	mu       sync.Mutex
	sessions map[int64]*Session
}

func New(token string, newSession SessionFactory, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:        api,
		newSession: newSession,
		logger:     logger,
		queues:     newChatQueues(32),
		sessions:   make(map[int64]*Session),
	}, nil
}

// Start polls for updates until ctx is done. Messages of one chat are
// handled in arrival order. On return every accepted message has been
// handled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Bot started", zap.String("username", b.api.Self.UserName))
	defer b.queues.Close()

	// Accepted messages finish even when ctx is cancelled mid-way.
	handleCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			message := update.Message
			b.queues.Do(message.Chat.ID, func() { b.handleMessage(handleCtx, message) })
		}
	}
}

func (b *Bot) session(ctx context.Context, chatID int64) *Session {
	b.mu.Lock()
	s, ok := b.sessions[chatID]
	if !ok {
		s = b.newSession(chatID)
		b.sessions[chatID] = s
	}
	b.mu.Unlock()

	if !ok {
		if err := Resume(ctx, s); err != nil {
			b.logger.Error("Failed to restore session",
				zap.Error(err),
				zap.Int64("chat_id", chatID))
		}
	}
	return s
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	s := b.session(ctx, message.Chat.ID)

	var command, args string
	if message.IsCommand() {
		command, args = message.Command(), message.CommandArguments()
		b.logger.Debug("Handling command",
			zap.String("command", command),
			zap.Int64("chat_id", message.Chat.ID))
	} else {
		args = message.Text
		if message.Caption != "" {
			args = message.Caption
		}
	}

	reply := Dispatch(ctx, s, command, args)
	b.sendReply(message.Chat.ID, message.MessageID, reply)
}

func (b *Bot) sendReply(chatID int64, replyToID int, reply Reply) {
	for i, chunk := range splitMessage(reply.Text, maxMessageLength) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if i == 0 {
			msg.ReplyToMessageID = replyToID
		}
		if reply.Markdown {
			msg.ParseMode = tgbotapi.ModeMarkdownV2
		}

		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error("Failed to send message",
				zap.Error(err),
				zap.Int64("chat_id", chatID),
				zap.Int("part", i))
			return
		}
	}
}

// splitMessage cuts text into parts of at most limit runes, preferring to
// break after a newline in the second half of a part. A cut never leaves a
// MarkdownV2 escape backslash dangling at the end of a part.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i >= limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		if cut == limit {
			backslashes := 0
			for i := cut - 1; i >= 0 && runes[i] == '\\'; i-- {
				backslashes++
			}
			if backslashes%2 == 1 && cut > 1 {
				cut--
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

// escapeMarkdown escapes special characters for MarkdownV2.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}
