package mediaserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/driftwood/driftwood/internal/testutil"
)

func TestRefreshChangedLibraries(t *testing.T) {
	var refreshes []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != `MediaBrowser Token="key123"` {
			t.Errorf("Authorization = %q", auth)
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/Library/VirtualFolders":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[
				{"Name": "Films", "ItemId": "lib-1", "CollectionType": "movies"},
				{"Name": "Shows", "ItemId": "lib-2", "CollectionType": "tvshows"},
				{"Name": "Music", "ItemId": "lib-3", "CollectionType": "music"}
			]`))
		case r.Method == http.MethodPost && r.URL.Path == "/Items/lib-1/Refresh":
			if r.URL.Query().Get("Recursive") != "true" {
				t.Errorf("query = %s, want Recursive=true", r.URL.RawQuery)
			}
			refreshes = append(refreshes, "lib-1")
		case r.Method == http.MethodPost && r.URL.Path == "/Items/lib-2/Refresh":
			refreshes = append(refreshes, "lib-2")
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "key123", testutil.NewTestLogger(t))
	c.Refresh(context.Background(), true, false)

	if len(refreshes) != 1 || refreshes[0] != "lib-1" {
		t.Errorf("refreshes = %v, want only the movies library", refreshes)
	}

	refreshes = nil
	c.Refresh(context.Background(), true, true)
	if len(refreshes) != 2 {
		t.Errorf("refreshes = %v, want both libraries", refreshes)
	}
}

func TestRefreshWithoutAPIKeyIsSilent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}))
	defer srv.Close()

	c := New(srv.URL, "", testutil.NewTestLogger(t))
	c.Refresh(context.Background(), true, true)
}

func TestRefreshNoChangesNoRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}))
	defer srv.Close()

	c := New(srv.URL, "key123", testutil.NewTestLogger(t))
	c.Refresh(context.Background(), false, false)
}
