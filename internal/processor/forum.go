package processor

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/clobrano/briefbot/internal/models"
)

// ForumStrategy extracts a PTT-style bulletin board post. The request carries
// the age-gate cookie configured in headers.
type ForumStrategy struct {
	client          *http.Client
	headers         RequestHeaders
	maxBytes        int64
	includeComments bool
}

func NewForumStrategy(client *http.Client, headers RequestHeaders, maxBytes int64, includeComments bool) *ForumStrategy {
	return &ForumStrategy{
		client:          client,
		headers:         headers,
		maxBytes:        maxBytes,
		includeComments: includeComments,
	}
}

func (s *ForumStrategy) Kind() models.ContentKind {
	return models.ContentKindForum
}

func (s *ForumStrategy) Acquire(ctx context.Context, u models.SourceURL) models.Result {
	var buf bytes.Buffer
	if _, err := fetch(ctx, s.client, u.String(), s.headers, s.maxBytes, &buf); err != nil {
		return models.Failed(fmt.Errorf("failed to fetch forum post: %w", err))
	}

	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return models.Failed(fmt.Errorf("failed to parse forum post: %w", err))
	}

	post := doc.Find("#main-content").First()
	if post.Length() == 0 {
		return models.Declined("no post body on page")
	}

	fragments := []models.Fragment{{Text: postTitle(doc, post), Label: "title"}}

	var comments []models.Fragment
	post.Find("div.push").Each(func(i int, sel *goquery.Selection) {
		tag := strings.TrimSpace(sel.Find(".push-tag").Text())
		user := strings.TrimSpace(sel.Find(".push-userid").Text())
		content := strings.TrimSpace(sel.Find(".push-content").Text())
		comments = append(comments, models.Fragment{
			Text:  strings.TrimSpace(fmt.Sprintf("%s %s%s", tag, user, content)),
			Label: fmt.Sprintf("comment %d", i+1),
		})
	})

	body := post.Clone()
	body.Find(".article-metaline, .article-metaline-right, div.push, span.f2").Remove()
	fragments = append(fragments, models.Fragment{Text: body.Text(), Label: "body"})

	if s.includeComments {
		fragments = append(fragments, comments...)
	}

	return models.Success(Reduce(fragments))
}

func postTitle(doc *goquery.Document, post *goquery.Selection) string {
	var title string
	post.Find(".article-metaline").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.TrimSpace(sel.Find(".article-meta-tag").Text()) == "標題" {
			title = sel.Find(".article-meta-value").Text()
			return false
		}
		return true
	})
	if strings.TrimSpace(title) == "" {
		title = doc.Find("title").First().Text()
	}
	return title
}
