package telegram

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendMessage(t *testing.T) {
	var got sendMessageReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("token", srv.URL)
	if err := c.SendMessage(42, "urgent"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ChatID != 42 || got.Text != "urgent" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestSendDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken/sendDocument" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.FormValue("chat_id") != "7" {
			t.Errorf("unexpected chat_id %q", r.FormValue("chat_id"))
		}
		f, hdr, err := r.FormFile("document")
		if err != nil {
			t.Errorf("missing document: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "report.pdf" || string(data) != "%PDF" {
			t.Errorf("unexpected file %s %q", hdr.Filename, data)
		}
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("token", srv.URL)
	if err := c.SendDocument(7, []byte("%PDF"), "report.pdf"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSendMessageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewClientWithBaseURL("token", srv.URL).SendMessage(1, "x")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected telegram error body, got %v", err)
	}
}

func TestConfigured(t *testing.T) {
	if NewClient("").Configured() {
		t.Fatal("empty token should not be configured")
	}
	if !NewClient("abc").Configured() {
		t.Fatal("token should be configured")
	}
}
