// Package discovery consumes the editor's capability-advertisement XML
// (the /hosting/discovery document of Collabora Online and compatible
// suites) to find the browser action URL for a given MIME type. The
// document is fetched lazily and cached with a TTL so the view flow does
// not hit the editor on every page load.
package discovery

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/learnweb/moodle-assignsubmission-collabora/internal/logger"
)

// discoveryDoc mirrors the subset of the discovery XML we consume. Apps are
// keyed by MIME type in the name attribute; each carries one or more
// actions with a urlsrc.
type discoveryDoc struct {
	XMLName  xml.Name `xml:"wopi-discovery"`
	NetZones []struct {
		Apps []struct {
			Name    string `xml:"name,attr"`
			Actions []struct {
				Ext    string `xml:"ext,attr"`
				Name   string `xml:"name,attr"`
				URLSrc string `xml:"urlsrc,attr"`
			} `xml:"action"`
		} `xml:"app"`
	} `xml:"net-zone"`
}

// Client fetches and caches the discovery document.
type Client struct {
	baseURL    string
	httpClient *http.Client
	ttl        time.Duration

	mu        sync.Mutex
	doc       *discoveryDoc
	fetchedAt time.Time
}

// NewClient creates a discovery client against the editor's base URL
// (scheme and host, e.g. "https://collabora.example.edu"). ttl bounds how
// long a fetched document is reused; zero defaults to 1 hour.
func NewClient(baseURL string, ttl time.Duration) *Client {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		ttl:        ttl,
	}
}

// ActionURL returns the editor launch URL for documents of the given MIME
// type. The WOPISrc and access_token parameters are appended by the caller.
func (c *Client) ActionURL(ctx context.Context, mimeType string) (string, error) {
	doc, err := c.document(ctx)
	if err != nil {
		return "", err
	}

	for _, zone := range doc.NetZones {
		for _, app := range zone.Apps {
			if app.Name != mimeType {
				continue
			}
			for _, action := range app.Actions {
				if action.URLSrc != "" {
					return action.URLSrc, nil
				}
			}
		}
	}
	return "", fmt.Errorf("no editor action advertised for MIME type %q", mimeType)
}

func (c *Client) document(ctx context.Context) (*discoveryDoc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.doc != nil && time.Since(c.fetchedAt) < c.ttl {
		return c.doc, nil
	}

	url := c.baseURL + "/hosting/discovery"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build discovery request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A stale document beats no document while the editor is briefly
		// unreachable.
		if c.doc != nil {
			logger.Warn("discovery fetch failed, serving stale document: %v", err)
			return c.doc, nil
		}
		return nil, fmt.Errorf("failed to fetch discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery endpoint returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read discovery document: %w", err)
	}

	var doc discoveryDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse discovery document: %w", err)
	}

	c.doc = &doc
	c.fetchedAt = time.Now()
	logger.Debug("discovery document refreshed from %s", url)
	return c.doc, nil
}
