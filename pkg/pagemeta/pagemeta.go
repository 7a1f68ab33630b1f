// Package pagemeta reads basic video metadata (title, thumbnail, channel)
// from the HTML of a video page.
package pagemeta

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

const maxPageBytes = 4 << 20

type PageData struct {
	Title     string
	Thumbnail string
	Channel   string
}

type Reader struct {
	client    *http.Client
	userAgent string
}

// NewReader creates a Reader. An empty userAgent leaves the Go default.
func NewReader(client *http.Client, userAgent string) *Reader {
	if client == nil {
		client = http.DefaultClient
	}

	return &Reader{client: client, userAgent: userAgent}
}

func (r *Reader) Get(ctx context.Context, pageURL string) (*PageData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, err
	}

	return parse(doc), nil
}

func parse(doc *html.Node) *PageData {
	var data PageData
	data.Title = getMetaContent(doc, "property", "og:title")
	if data.Title == "" {
		data.Title = getTitle(doc)
	}
	data.Thumbnail = getMetaContent(doc, "property", "og:image")
	data.Channel = getLinkContent(doc)
	if data.Channel == "" {
		data.Channel = getMetaContent(doc, "name", "author")
	}

	return &data
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}

	return "", false
}

func getTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
		return strings.TrimSpace(n.FirstChild.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := getTitle(c); title != "" {
			return title
		}
	}
	return ""
}

func getMetaContent(n *html.Node, key, value string) string {
	if n.Type == html.ElementNode && n.Data == "meta" {
		if v, ok := attr(n, key); ok && v == value {
			content, _ := attr(n, "content")
			return content
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if content := getMetaContent(c, key, value); content != "" {
			return content
		}
	}
	return ""
}

// getLinkContent finds the channel name YouTube publishes as
// <link itemprop="name" content="...">.
func getLinkContent(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "link" {
		if v, ok := attr(n, "itemprop"); ok && v == "name" {
			content, _ := attr(n, "content")
			return content
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if content := getLinkContent(c); content != "" {
			return content
		}
	}
	return ""
}
