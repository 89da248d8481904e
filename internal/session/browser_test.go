package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBrowserStoreLifecycle(t *testing.T) {
	store := NewBrowserStore(time.Hour)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	sid, err := store.Load(w, r)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sid == "" {
		t.Fatal("empty session id")
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != cookieName {
		t.Fatalf("cookies = %v, want one %q cookie", cookies, cookieName)
	}
	if cookies[0].Value != sid {
		t.Errorf("cookie value = %q, want %q", cookies[0].Value, sid)
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}

	// A request carrying the cookie resolves to the same session.
	w2 := httptest.NewRecorder()
	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(cookies[0])

	sid2, err := store.Load(w2, r2)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sid2 != sid {
		t.Errorf("second load returned %q, want %q", sid2, sid)
	}
}

func TestBrowserStoreSetGetPop(t *testing.T) {
	store := NewBrowserStore(time.Hour)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sid, err := store.Load(w, r)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	store.Set(sid, KeyNextURL, "http://example.com/")
	store.Set(sid, KeyVoucherToken, "tok-1")

	if got := store.Get(sid, KeyVoucherToken); got != "tok-1" {
		t.Errorf("get token = %q", got)
	}
	// Get does not consume.
	if got := store.Get(sid, KeyVoucherToken); got != "tok-1" {
		t.Errorf("repeated get token = %q", got)
	}

	if got := store.Pop(sid, KeyNextURL); got != "http://example.com/" {
		t.Errorf("pop = %q", got)
	}
	if got := store.Pop(sid, KeyNextURL); got != "" {
		t.Errorf("second pop = %q, want empty", got)
	}
}

func TestBrowserStoreUnknownSession(t *testing.T) {
	store := NewBrowserStore(time.Hour)

	store.Set("nope", KeyNextURL, "x")
	if got := store.Get("nope", KeyNextURL); got != "" {
		t.Errorf("get on unknown session = %q", got)
	}
	if got := store.Pop("nope", KeyNextURL); got != "" {
		t.Errorf("pop on unknown session = %q", got)
	}
}

func TestBrowserStoreExpiry(t *testing.T) {
	store := NewBrowserStore(time.Nanosecond)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sid, err := store.Load(w, r)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	store.Set(sid, KeyVoucherToken, "tok-1")

	time.Sleep(time.Millisecond)

	// A later load with the stale cookie sweeps the session and mints
	// a fresh one.
	w2 := httptest.NewRecorder()
	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(w.Result().Cookies()[0])

	sid2, err := store.Load(w2, r2)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sid2 == sid {
		t.Error("expired session was reused")
	}
	if got := store.Get(sid2, KeyVoucherToken); got != "" {
		t.Errorf("fresh session carries value %q", got)
	}
}
