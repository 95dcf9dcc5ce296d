package daemon

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/guildhub/guildhub/internal/auth"
	"github.com/guildhub/guildhub/internal/bus"
	"github.com/guildhub/guildhub/internal/config"
	"github.com/guildhub/guildhub/internal/dispatch"
	"github.com/guildhub/guildhub/internal/event"
	"github.com/guildhub/guildhub/internal/presence"
	"github.com/guildhub/guildhub/internal/store"
	"github.com/guildhub/guildhub/internal/ws"
	"go.uber.org/zap"
)

func testServer(t *testing.T) (*Server, *store.DB, *presence.Registry, *bus.Bus) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"

	reg := presence.NewRegistry()
	b := bus.New()
	router := dispatch.NewRouter(reg, db, b, zap.NewNop())
	wsHandler := ws.NewHandler(cfg.AllowedOrigins, auth.New(cfg.JWTSecret, db), router, zap.NewNop())
	return NewServer(cfg, zap.NewNop(), wsHandler, router, b), db, reg, b
}

func TestHealthz(t *testing.T) {
	srv, _, _, _ := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestPresenceEndpoint(t *testing.T) {
	srv, _, reg, _ := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	check := func(wantOnline bool) {
		t.Helper()
		resp, err := http.Get(ts.URL + "/internal/presence/u1")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var body struct {
			UserID string `json:"userId"`
			Online bool   `json:"online"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.UserID != "u1" || body.Online != wantOnline {
			t.Errorf("got %+v, want online=%v", body, wantOnline)
		}
	}

	check(false)
	reg.Register("u1", nopHandle{})
	check(true)
}

type nopHandle struct{}

func (nopHandle) Push(event.Outbound) error { return nil }

func TestNotifyPersistsBeforeAck(t *testing.T) {
	srv, db, _, _ := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body, _ := json.Marshal(map[string]string{
		"type":        store.NotifConnectionRequest,
		"recipientId": "u2",
		"senderId":    "u1",
		"relatedId":   "req-1",
	})
	resp, err := http.Post(ts.URL+"/internal/notify", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	// By the time the 202 arrives the notification row must already exist,
	// even with nobody connected to receive a push.
	notifs, err := db.ListNotifications("u2", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(notifs) != 1 {
		t.Fatalf("got %d notifications, want 1", len(notifs))
	}
	n := notifs[0]
	if n.Type != store.NotifConnectionRequest || n.SenderID != "u1" || n.RelatedID != "req-1" {
		t.Errorf("notification = %+v", n)
	}
}

type brokenNotifStores struct{ *store.DB }

func (brokenNotifStores) CreateNotification(*store.Notification) error {
	return errors.New("disk full")
}

func TestNotifyPersistFailureReturns500(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"

	reg := presence.NewRegistry()
	b := bus.New()
	router := dispatch.NewRouter(reg, brokenNotifStores{db}, b, zap.NewNop())
	wsHandler := ws.NewHandler(cfg.AllowedOrigins, auth.New(cfg.JWTSecret, db), router, zap.NewNop())
	srv := NewServer(cfg, zap.NewNop(), wsHandler, router, b)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body, _ := json.Marshal(map[string]string{
		"type":        store.NotifConnectionRequest,
		"recipientId": "u2",
		"senderId":    "u1",
	})
	resp, err := http.Post(ts.URL+"/internal/notify", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestNotifyRejectsBadRequests(t *testing.T) {
	srv, _, _, _ := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tests := []struct {
		desc string
		body string
	}{
		{"invalid json", `{`},
		{"missing ids", `{"type":"connection_request"}`},
		{"unknown type", `{"type":"poke","recipientId":"u2","senderId":"u1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/internal/notify", "application/json", bytes.NewReader([]byte(tt.body)))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestEnchantmentPublishesOnBus(t *testing.T) {
	srv, _, _, b := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ch, unsub := b.Subscribe("enchantment.", 4)
	defer unsub()

	body, _ := json.Marshal(map[string]any{"userId": "u1", "count": 7})
	resp, err := http.Post(ts.URL+"/internal/enchantment", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	select {
	case evt := <-ch:
		ench, ok := evt.Payload.(bus.Enchantment)
		if !ok || ench.UserID != "u1" || ench.Count != 7 {
			t.Errorf("payload = %#v", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for bus event")
	}
}
