package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const sampleDiscovery = `<?xml version="1.0" encoding="utf-8"?>
<wopi-discovery>
  <net-zone name="external-http">
    <app name="application/vnd.oasis.opendocument.text">
      <action ext="odt" name="edit" urlsrc="http://editor.test/loleaflet/abc/loleaflet.html?"/>
    </app>
    <app name="application/vnd.openxmlformats-officedocument.wordprocessingml.document">
      <action ext="docx" name="edit" urlsrc="http://editor.test/loleaflet/abc/loleaflet.html?"/>
    </app>
  </net-zone>
</wopi-discovery>`

func newDiscoveryServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/hosting/discovery" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(sampleDiscovery))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestActionURL(t *testing.T) {
	var hits atomic.Int32
	srv := newDiscoveryServer(t, &hits)
	client := NewClient(srv.URL, time.Hour)

	url, err := client.ActionURL(context.Background(), "application/vnd.oasis.opendocument.text")
	if err != nil {
		t.Fatalf("ActionURL failed: %v", err)
	}
	want := "http://editor.test/loleaflet/abc/loleaflet.html?"
	if url != want {
		t.Errorf("ActionURL = %q, want %q", url, want)
	}
}

func TestActionURL_UnknownMimeType(t *testing.T) {
	var hits atomic.Int32
	srv := newDiscoveryServer(t, &hits)
	client := NewClient(srv.URL, time.Hour)

	if _, err := client.ActionURL(context.Background(), "image/png"); err == nil {
		t.Fatal("Expected error for unadvertised MIME type")
	}
}

func TestActionURL_CachesDocument(t *testing.T) {
	var hits atomic.Int32
	srv := newDiscoveryServer(t, &hits)
	client := NewClient(srv.URL, time.Hour)

	for i := 0; i < 3; i++ {
		if _, err := client.ActionURL(context.Background(), "application/vnd.oasis.opendocument.text"); err != nil {
			t.Fatalf("ActionURL failed: %v", err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("Discovery endpoint hit %d times, want 1 (cached)", got)
	}
}

func TestActionURL_FetchError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Hour)

	if _, err := client.ActionURL(context.Background(), "application/vnd.oasis.opendocument.text"); err == nil {
		t.Fatal("Expected error when the editor is unreachable")
	}
}
