package notify

import (
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type call struct {
	name string
	args []string
}

func recordingDesktop(calls *[]call) *Desktop {
	return &Desktop{
		Messages: Defaults(),
		Run: func(name string, args ...string) error {
			*calls = append(*calls, call{name, args})
			return nil
		},
	}
}

func TestDesktop_Send(t *testing.T) {
	var calls []call
	d := recordingDesktop(&calls)

	d.Send(MsgSessionStarted)
	d.Send(MessageType(99))

	if len(calls) != 1 {
		t.Fatalf("got %d notify-send calls, want 1", len(calls))
	}
	want := []string{"-a", "Hyprcaptions", "Hyprcaptions", "Субтитры включены"}
	if calls[0].name != "notify-send" || !reflect.DeepEqual(calls[0].args, want) {
		t.Errorf("call = %+v, want notify-send %v", calls[0], want)
	}
}

func TestDesktop_Error(t *testing.T) {
	var calls []call
	d := recordingDesktop(&calls)

	d.Error("Камера не найдена")

	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	args := calls[0].args
	if args[2] != "-u" || args[3] != "critical" {
		t.Errorf("error notification should be critical: %v", args)
	}
	if args[len(args)-1] != "Камера не найдена" {
		t.Errorf("body = %q", args[len(args)-1])
	}
}

func TestLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := New(true, "log", nil, zap.New(core))

	n.Send(MsgConfigReloaded)
	n.Error("Доступ к камере запрещён")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	if entries[0].Message != "Настройки обновлены" {
		t.Errorf("first entry = %q", entries[0].Message)
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Errorf("error entry level = %v", entries[1].Level)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		kind    string
		want    string
	}{
		{"disabled", false, "desktop", "notify.Nop"},
		{"desktop", true, "desktop", "*notify.Desktop"},
		{"log", true, "log", "*notify.Log"},
		{"none", true, "none", "notify.Nop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reflect.TypeOf(New(tt.enabled, tt.kind, nil, nil)).String()
			if got != tt.want {
				t.Errorf("New() type = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNop(t *testing.T) {
	var n Notifier = Nop{}
	n.Send(MsgSessionStopped)
	n.Error("ignored")
}
