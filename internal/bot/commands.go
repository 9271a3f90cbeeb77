package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type command struct {
	name   string
	help   string
	public bool
	handle func(ctx context.Context, req Request) (string, error)
}

func (b *Bot) registerCommands() {
	cmds := []command{
		{name: "help", help: "Show this help message", handle: b.handleHelp},
		{name: "sum", help: "Summarize a document", handle: b.handleSummarize},
		{name: "jp", help: "Translate text to Japanese", handle: b.translateTo("日文")},
		{name: "tc", help: "Translate text to Traditional Chinese", handle: b.translateTo("繁體中文")},
		{name: "en", help: "Translate text to English", handle: b.translateTo("英文")},
		{name: "polish", help: "Polish text", handle: b.handlePolish},
		{name: "yf", help: "Look up stock tickers", handle: b.handleQuote},
		{name: "echo", help: "Echo the message", public: true, handle: b.handleEcho},
	}

	b.commands = make(map[string]command, len(cmds))
	b.order = make([]string, 0, len(cmds))
	for _, c := range cmds {
		b.commands[c.name] = c
		b.order = append(b.order, c.name)
	}
}

func (b *Bot) handleHelp(context.Context, Request) (string, error) {
	var sb strings.Builder
	for _, name := range b.order {
		fmt.Fprintf(&sb, "/%s - %s\n", name, b.commands[name].help)
	}
	return sb.String(), nil
}

func (b *Bot) handleSummarize(ctx context.Context, req Request) (string, error) {
	text := req.Text()
	if text == "" {
		return "", nil
	}

	doc, err := b.loader.Load(ctx, text)
	if err != nil {
		return "", err
	}

	summary, err := b.assistant.Summarize(ctx, doc.Text)
	if err != nil {
		return "", fmt.Errorf("failed to summarize: %w", err)
	}
	return summary, nil
}

// translateTo builds a handler for one target language. A leading "explain"
// argument switches to translate-and-explain and is not translated itself.
func (b *Bot) translateTo(lang string) func(context.Context, Request) (string, error) {
	return func(ctx context.Context, req Request) (string, error) {
		explain := false
		if fields := strings.Fields(req.Args); len(fields) > 0 && fields[0] == "explain" {
			explain = true
			req.Args = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(req.Args), "explain"))
		}

		text := req.Text()
		if text == "" {
			return "", nil
		}

		if explain {
			return b.assistant.TranslateAndExplain(ctx, text, lang)
		}
		return b.assistant.Translate(ctx, text, lang)
	}
}

func (b *Bot) handlePolish(ctx context.Context, req Request) (string, error) {
	text := req.Text()
	if text == "" {
		return "", nil
	}
	return b.assistant.Polish(ctx, text)
}

func (b *Bot) handleQuote(ctx context.Context, req Request) (string, error) {
	symbols := strings.Fields(req.Args)
	if len(symbols) == 0 {
		return "", nil
	}
	return b.quoter.QueryTickers(ctx, symbols), nil
}

func (b *Bot) handleEcho(_ context.Context, req Request) (string, error) {
	raw, err := json.MarshalIndent(req.Message, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}
	return string(raw), nil
}
