package notify

import (
	"os/exec"

	"go.uber.org/zap"
)

const appName = "Hyprcaptions"

type MessageType int

const (
	MsgSessionStarted MessageType = iota
	MsgSessionStopped
	MsgPermissionDenied
	MsgConfigReloaded
	MsgSummaryToggled
)

type Message struct {
	Title   string
	Body    string
	IsError bool
}

// MessageDef describes a notification and the [notifications.messages] key
// that overrides it.
type MessageDef struct {
	Type         MessageType
	ConfigKey    string
	DefaultTitle string
	DefaultBody  string
	IsError      bool
}

var MessageDefs = []MessageDef{
	{MsgSessionStarted, "session_started", appName, "Субтитры включены", false},
	{MsgSessionStopped, "session_stopped", appName, "Субтитры выключены", false},
	{MsgPermissionDenied, "permission_denied", appName + ": ошибка", "Ошибка доступа к камере", true},
	{MsgConfigReloaded, "config_reloaded", appName, "Настройки обновлены", false},
	{MsgSummaryToggled, "summary_toggled", appName, "Режим сводки переключён", false},
}

// Defaults returns the built-in text of every message.
func Defaults() map[MessageType]Message {
	out := make(map[MessageType]Message, len(MessageDefs))
	for _, d := range MessageDefs {
		out[d.Type] = Message{Title: d.DefaultTitle, Body: d.DefaultBody, IsError: d.IsError}
	}
	return out
}

type Notifier interface {
	Send(mt MessageType)
	// Error reports msg with the title of MsgPermissionDenied.
	Error(msg string)
}

// New picks a notifier for the [notifications] type.
func New(enabled bool, kind string, messages map[MessageType]Message, logger *zap.Logger) Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if messages == nil {
		messages = Defaults()
	}
	if !enabled {
		return Nop{}
	}
	switch kind {
	case "desktop":
		return &Desktop{Messages: messages, logger: logger.Named("notify")}
	case "log":
		return &Log{Messages: messages, logger: logger.Named("notify")}
	default:
		return Nop{}
	}
}

type Desktop struct {
	Messages map[MessageType]Message
	// Run executes notify-send; tests replace it.
	Run    func(name string, args ...string) error
	logger *zap.Logger
}

func (d *Desktop) Send(mt MessageType) {
	msg, ok := d.Messages[mt]
	if !ok {
		return
	}
	d.send(msg)
}

func (d *Desktop) Error(text string) {
	msg := d.Messages[MsgPermissionDenied]
	msg.Body = text
	msg.IsError = true
	d.send(msg)
}

func (d *Desktop) send(msg Message) {
	args := []string{"-a", appName}
	if msg.IsError {
		args = append(args, "-u", "critical")
	}
	args = append(args, msg.Title, msg.Body)

	run := d.Run
	if run == nil {
		run = func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		}
	}
	if err := run("notify-send", args...); err != nil && d.logger != nil {
		d.logger.Warn("failed to send notification", zap.Error(err))
	}
}

// Log writes notifications to the logger instead of the desktop.
type Log struct {
	Messages map[MessageType]Message
	logger   *zap.Logger
}

func (l *Log) Send(mt MessageType) {
	msg, ok := l.Messages[mt]
	if !ok {
		return
	}
	l.logger.Info(msg.Body, zap.String("title", msg.Title))
}

func (l *Log) Error(text string) {
	l.logger.Error(text, zap.String("title", l.Messages[MsgPermissionDenied].Title))
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) Send(MessageType) {}
func (Nop) Error(string)     {}
