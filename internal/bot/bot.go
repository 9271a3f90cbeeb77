package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/clobrano/briefbot/internal/metrics"
	"github.com/clobrano/briefbot/internal/models"
	"github.com/clobrano/briefbot/internal/notifier"
	"github.com/clobrano/briefbot/internal/processor"
)

const (
	msgLoadFailed    = "Failed to load URL"
	msgProcessFailed = "Failed to process request"
)

// Sender is the part of the Telegram API the bot writes through.
// *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Loader turns request text into a document.
type Loader interface {
	Load(ctx context.Context, text string) (models.Document, error)
}

type Assistant interface {
	Summarize(ctx context.Context, text string) (string, error)
	Translate(ctx context.Context, text, lang string) (string, error)
	TranslateAndExplain(ctx context.Context, text, lang string) (string, error)
	Polish(ctx context.Context, text string) (string, error)
}

type Quoter interface {
	QueryTickers(ctx context.Context, symbols []string) string
}

// Request is one incoming command.
type Request struct {
	ChatID    int64
	MessageID int
	Command   string
	Args      string
	Replied   string
	Message   *tgbotapi.Message
}

// Text is the argument text followed by the replied-to text.
func (r Request) Text() string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(r.Args); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(r.Replied); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n")
}

type Options struct {
	Sender          Sender
	Loader          Loader
	Assistant       Assistant
	Quoter          Quoter
	AllowList       []int64
	DeveloperChatID int64
	MaxConcurrent   int
	Notifier        *notifier.Notifier
	Metrics         *metrics.Metrics
}

type Bot struct {
	sender          Sender
	loader          Loader
	assistant       Assistant
	quoter          Quoter
	developerChatID int64
	notifier        *notifier.Notifier
	metrics         *metrics.Metrics

	allowed  atomic.Pointer[map[int64]struct{}]
	sem      chan struct{}
	commands map[string]command
	order    []string
}

func New(opts Options) *Bot {
	limit := opts.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}
	b := &Bot{
		sender:          opts.Sender,
		loader:          opts.Loader,
		assistant:       opts.Assistant,
		quoter:          opts.Quoter,
		developerChatID: opts.DeveloperChatID,
		notifier:        opts.Notifier,
		metrics:         opts.Metrics,
		sem:             make(chan struct{}, limit),
	}
	b.SetAllowList(opts.AllowList)
	b.registerCommands()
	return b
}

// SetAllowList replaces the set of chats the bot answers. It is safe to call
// while updates are being handled.
func (b *Bot) SetAllowList(ids []int64) {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	b.allowed.Store(&set)
	log.Info().Int("chats", len(set)).Msg("allow-list updated")
}

func (b *Bot) Allowed(chatID int64) bool {
	set := b.allowed.Load()
	if set == nil {
		return false
	}
	_, ok := (*set)[chatID]
	return ok
}

// Run handles updates until ctx is done or the channel is closed, with at
// most MaxConcurrent handlers in flight. It returns after in-flight handlers
// finish.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			select {
			case b.sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-b.sem }()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate dispatches one update. Panics in handlers are recovered and
// reported.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	if !msg.IsCommand() {
		if b.Allowed(msg.Chat.ID) {
			log.Info().Int64("chat_id", msg.Chat.ID).Int("message_id", msg.MessageID).Str("text", msg.Text).Msg("message update")
		}
		return
	}

	req := newRequest(msg)
	cmd, ok := b.commands[req.Command]
	if !ok {
		return
	}
	if !cmd.public && !b.Allowed(req.ChatID) {
		log.Debug().Int64("chat_id", req.ChatID).Str("command", req.Command).Msg("chat not in allow-list")
		b.metrics.ObserveCommand(req.Command, "denied")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.metrics.ObserveCommand(req.Command, "panic")
			b.reportPanic(ctx, req, r)
		}
	}()

	logger := log.With().Int64("chat_id", req.ChatID).Str("command", req.Command).Logger()
	logger.Info().Msg("handling command")

	reply, err := cmd.handle(ctx, req)
	switch {
	case err != nil && processor.IsNothingToDo(err):
		logger.Info().Err(err).Msg("nothing to reply")
		b.metrics.ObserveCommand(req.Command, "skipped")
	case err != nil:
		logger.Error().Err(err).Msg("command failed")
		b.metrics.ObserveCommand(req.Command, "error")
		b.reply(req, failureMessage(err))
		b.notifyFailure(ctx, req, err.Error())
	case reply == "":
		b.metrics.ObserveCommand(req.Command, "skipped")
	default:
		logger.Info().Int("length", len(reply)).Msg("replying")
		b.metrics.ObserveCommand(req.Command, "ok")
		b.reply(req, reply)
	}
}

func newRequest(msg *tgbotapi.Message) Request {
	req := Request{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Command:   strings.ToLower(msg.Command()),
		Args:      msg.CommandArguments(),
		Message:   msg,
	}
	if r := msg.ReplyToMessage; r != nil {
		req.Replied = r.Text
		if req.Replied == "" {
			req.Replied = r.Caption
		}
	}
	return req
}

func failureMessage(err error) string {
	if errors.Is(err, processor.ErrLoadFailed) {
		return msgLoadFailed
	}
	return msgProcessFailed
}

// reply sends text as one or more messages, the first one threaded to the
// request.
func (b *Bot) reply(req Request, text string) {
	for i, chunk := range splitMessage(text, MaxMessageLength) {
		out := tgbotapi.NewMessage(req.ChatID, chunk)
		if i == 0 {
			out.ReplyToMessageID = req.MessageID
		}
		if _, err := b.sender.Send(out); err != nil {
			log.Error().Err(err).Int64("chat_id", req.ChatID).Msg("failed to send reply")
			return
		}
	}
}

func (b *Bot) reportPanic(ctx context.Context, req Request, r any) {
	log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Int64("chat_id", req.ChatID).Str("command", req.Command).Msg("panic while handling update")

	raw, _ := json.MarshalIndent(req.Message, "", "  ")
	report := fmt.Sprintf(
		"An exception was raised while handling an update\n<pre>update = %s</pre>\n\n<pre>error = %s</pre>",
		html.EscapeString(truncate(string(raw), 3000)),
		html.EscapeString(fmt.Sprint(r)),
	)

	if b.developerChatID != 0 {
		out := tgbotapi.NewMessage(b.developerChatID, report)
		out.ParseMode = tgbotapi.ModeHTML
		if _, err := b.sender.Send(out); err != nil {
			log.Error().Err(err).Msg("failed to report panic to developer chat")
		}
	}

	b.reply(req, msgProcessFailed)
	b.notifyFailure(ctx, req, fmt.Sprintf("panic: %v", r))
}

func (b *Bot) notifyFailure(ctx context.Context, req Request, detail string) {
	err := b.notifier.SendFailure(ctx, notifier.Failure{
		Command: req.Command,
		ChatID:  req.ChatID,
		Detail:  detail,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to send failure notification")
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
