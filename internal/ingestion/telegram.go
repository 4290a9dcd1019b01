package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	messageTextClass = "tgme_widget_message_text"
	userAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0 Safari/537.36"
)

// Feed returns the most recent message of a channel. ok is false when the
// channel has no messages.
type Feed interface {
	LastMessage(ctx context.Context, channel string) (text string, ok bool, err error)
}

// TelegramFeed reads the public web preview of a channel (<base>/s/<name>).
type TelegramFeed struct {
	client  *http.Client
	baseURL string
}

func NewTelegramFeed(baseURL string, timeout time.Duration) *TelegramFeed {
	return &TelegramFeed{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (f *TelegramFeed) LastMessage(ctx context.Context, channel string) (string, bool, error) {
	u := f.baseURL + "/s/" + url.PathEscape(channel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", false, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("error doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("error parsing page: %w", err)
	}

	node := lastByClass(doc, messageTextClass)
	if node == nil {
		return "", false, nil
	}
	text := nodeText(node)
	return text, text != "", nil
}

func lastByClass(n *html.Node, class string) *html.Node {
	var last *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, class) {
			last = n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return last
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

// nodeText joins the trimmed, non-empty text nodes under n with line breaks.
func nodeText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, "\n")
}
