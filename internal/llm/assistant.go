package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyReply is returned when the model answers with only whitespace.
var ErrEmptyReply = errors.New("empty reply from model")

const SummarizePrompt = `You are summarizing a document for a chat message. Write the summary in Traditional Chinese (繁體中文) and include:

1. **Main Topic**: What is the document about?
2. **Key Points**: The main arguments, ideas, or information presented
3. **Conclusion**: The main takeaways

Keep it concise. Use bullet points where appropriate.`

const TranslatePrompt = `Translate the following text into %s. Reply with the translation only.`

const TranslateAndExplainPrompt = `Translate the following text into %s. After the translation, explain in %s any idioms, slang, grammar points or cultural references a learner would need to understand the original.`

const PolishPrompt = `Polish the following text. Fix grammar, spelling and awkward phrasing while keeping the original language, meaning and tone. Reply with the polished text only.`

// Assistant runs the fixed text tasks the bot offers on top of a Provider.
type Assistant struct {
	provider Provider
}

func NewAssistant(provider Provider) *Assistant {
	return &Assistant{provider: provider}
}

func (a *Assistant) Summarize(ctx context.Context, text string) (string, error) {
	return a.run(ctx, SummarizePrompt, text)
}

// Translate translates text into lang, where lang is the human-readable
// language name placed into the prompt.
func (a *Assistant) Translate(ctx context.Context, text, lang string) (string, error) {
	return a.run(ctx, fmt.Sprintf(TranslatePrompt, lang), text)
}

func (a *Assistant) TranslateAndExplain(ctx context.Context, text, lang string) (string, error) {
	return a.run(ctx, fmt.Sprintf(TranslateAndExplainPrompt, lang, lang), text)
}

func (a *Assistant) Polish(ctx context.Context, text string) (string, error) {
	return a.run(ctx, PolishPrompt, text)
}

func (a *Assistant) run(ctx context.Context, instruction, text string) (string, error) {
	reply, err := a.provider.Complete(ctx, buildPrompt(instruction, text))
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

func buildPrompt(instruction, text string) string {
	return fmt.Sprintf("%s\n\n---\n\n%s", instruction, text)
}
