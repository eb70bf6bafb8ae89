package mockserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/leonardotrapani/hyprcaptions/internal/transport"
	"go.uber.org/zap/zaptest"
)

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	cfg.Seed = 1
	srv := httptest.NewServer(New(cfg, zaptest.NewLogger(t)).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func isPhrase(s string) bool {
	for _, p := range phrases {
		if p == s {
			return true
		}
	}
	return false
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWS_SendsPhrasesWhileAudioArrives(t *testing.T) {
	tests := []struct {
		name string
		json bool
	}{
		{"plain text", false},
		{"structured", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, Config{PhraseInterval: 30 * time.Millisecond, JSON: tt.json})
			conn := dial(t, srv)

			// one second of audio at 16 kHz
			if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 32000)); err != nil {
				t.Fatalf("write: %v", err)
			}

			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			mt, data, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("read: %v", err)
			}

			msg, err := transport.Decode(mt, data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			res := msg.Result()
			if !isPhrase(res.Text) {
				t.Errorf("unexpected phrase %q", res.Text)
			}
			if res.Structured != tt.json {
				t.Errorf("Structured = %v, want %v", res.Structured, tt.json)
			}
			if tt.json && res.Time != "00:00-00:01" {
				t.Errorf("Time = %q, want 00:00-00:01", res.Time)
			}
		})
	}
}

func TestWS_SilentWithoutAudio(t *testing.T) {
	srv := newTestServer(t, Config{PhraseInterval: 20 * time.Millisecond})
	conn := dial(t, srv)

	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("server should not send phrases without audio")
	}
}

func TestREST(t *testing.T) {
	srv := newTestServer(t, Config{})

	post := func(path, body string) *http.Response {
		t.Helper()
		resp, err := http.Post(srv.URL+path, "application/json", bytes.NewBufferString(body))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	t.Run("translate", func(t *testing.T) {
		resp := post("/api/translate", `{"text":"привет","source_lang":"Russian","target_lang":"English"}`)
		var out map[string]string
		json.NewDecoder(resp.Body).Decode(&out)
		if out["translation"] != "[English] привет" {
			t.Errorf("translation = %q", out["translation"])
		}
	})

	t.Run("translate missing target", func(t *testing.T) {
		resp := post("/api/translate", `{"text":"привет"}`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("summarize", func(t *testing.T) {
		resp := post("/api/summarize", `{"content":"текст"}`)
		var out map[string]string
		json.NewDecoder(resp.Body).Decode(&out)
		if out["summary"] == "" {
			t.Error("empty summary")
		}
	})

	t.Run("tts", func(t *testing.T) {
		resp := post("/api/tts", `{"text":"hello","language":"en"}`)
		if ct := resp.Header.Get("Content-Type"); ct != "audio/wav" {
			t.Errorf("Content-Type = %q", ct)
		}
		var buf bytes.Buffer
		buf.ReadFrom(resp.Body)
		if !bytes.HasPrefix(buf.Bytes(), []byte("RIFF")) {
			t.Error("tts payload is not a WAV file")
		}
	})

	t.Run("summaries", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/summaries")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()
		var out map[string][]string
		json.NewDecoder(resp.Body).Decode(&out)
		if n := len(out["summaries"]); n < 2 || n > 3 {
			t.Errorf("got %d summaries, want 2 or 3", n)
		}
	})
}

func TestSilentWAV(t *testing.T) {
	wav := silentWAV(16000, 250*time.Millisecond)
	if len(wav) != 44+8000 {
		t.Errorf("len = %d, want %d", len(wav), 44+8000)
	}
}

func TestClock(t *testing.T) {
	if got := clock(75); got != "01:15" {
		t.Errorf("clock(75) = %q", got)
	}
}
