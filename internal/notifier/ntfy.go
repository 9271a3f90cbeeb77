package notifier

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultServer = "https://ntfy.sh"

// Failure describes a request the bot could not complete.
type Failure struct {
	Command string
	ChatID  int64
	Detail  string
}

type Notifier struct {
	server string
	topic  string
	client *http.Client
}

// New returns nil when topic is empty. All methods are no-ops on a nil
// Notifier.
func New(server, topic string) *Notifier {
	if topic == "" {
		return nil
	}
	if server == "" {
		server = defaultServer
	}
	return &Notifier{
		server: strings.TrimRight(server, "/"),
		topic:  topic,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (n *Notifier) SendStarted(ctx context.Context, version string) error {
	if n == nil || n.topic == "" {
		return nil
	}

	title := "briefbot: started"
	message := fmt.Sprintf("briefbot %s is running.", version)

	return n.send(ctx, title, message, "low", "rocket")
}

func (n *Notifier) SendFailure(ctx context.Context, f Failure) error {
	if n == nil || n.topic == "" {
		return nil
	}

	title := fmt.Sprintf("briefbot: /%s failed", f.Command)
	message := fmt.Sprintf("Failed to handle /%s in chat %d\n\nError: %s", f.Command, f.ChatID, f.Detail)

	return n.send(ctx, title, message, "high", "x")
}

func (n *Notifier) send(ctx context.Context, title, message, priority, tags string) error {
	url := fmt.Sprintf("%s/%s", n.server, n.topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(message))
	if err != nil {
		return err
	}

	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}

	return nil
}
