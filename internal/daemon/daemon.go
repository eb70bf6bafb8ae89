package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/leonardotrapani/hyprcaptions/internal/bus"
	"github.com/leonardotrapani/hyprcaptions/internal/capture"
	"github.com/leonardotrapani/hyprcaptions/internal/config"
	"github.com/leonardotrapani/hyprcaptions/internal/language"
	"github.com/leonardotrapani/hyprcaptions/internal/notify"
	"github.com/leonardotrapani/hyprcaptions/internal/session"
	"go.uber.org/zap"
)

// SessionFactory builds a fresh, unstarted session from the current config.
type SessionFactory func(cfg *config.Config) (*session.Session, error)

// ConfigSource is satisfied by *config.Manager.
type ConfigSource interface {
	GetConfig() *config.Config
}

// prefs survive a stop/start cycle of the session.
type prefs struct {
	language  *language.Code
	autoVoice *bool
	summary   *bool
}

type Daemon struct {
	mu       sync.Mutex
	endpoint bus.Endpoint
	configs  ConfigSource
	factory  SessionFactory
	notifier notify.Notifier
	logger   *zap.Logger

	session *session.Session
	running bool
	lastErr string
	prefs   prefs

	ctx    context.Context
	cancel context.CancelFunc
}

func New(endpoint bus.Endpoint, configs ConfigSource, factory SessionFactory, n notify.Notifier, logger *zap.Logger) *Daemon {
	if n == nil {
		n = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		endpoint: endpoint,
		configs:  configs,
		factory:  factory,
		notifier: n,
		logger:   logger.Named("daemon"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (d *Daemon) Run() error {
	if err := d.endpoint.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := d.endpoint.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := d.endpoint.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer d.endpoint.RemovePidFile()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			d.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	d.logger.Info("daemon started", zap.String("socket", d.endpoint.SockPath()))

	var conns sync.WaitGroup
	defer func() {
		d.stopSession()
		conns.Wait()
	}()

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				d.logger.Info("shutdown requested")
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		conns.Add(1)
		go func() {
			defer conns.Done()
			d.handle(c)
		}()
	}
}

// Shutdown makes Run return.
func (d *Daemon) Shutdown() {
	d.cancel()
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		d.logger.Warn("client read error", zap.Error(err))
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	req, err := bus.ParseRequest(line)
	if err != nil {
		fmt.Fprintf(c, "ERR %v\n", err)
		return
	}
	d.logger.Debug("command", zap.String("request", req.String()))

	switch req.Verb {
	case bus.CmdToggle, bus.CmdSummary, bus.CmdAutoVoice, bus.CmdLanguage, bus.CmdSpeak:
		msg, err := d.apply(req)
		reply(c, msg, err)
	case bus.CmdStatus:
		fmt.Fprintf(c, "STATUS %s\n", d.statusLine())
	case bus.CmdTranscript, bus.CmdSummaries:
		d.writeLog(c, req.Verb == bus.CmdSummaries)
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		d.logger.Warn("unknown command", zap.String("verb", string(req.Verb)))
		fmt.Fprintf(c, "ERR unknown=%q\n", req.Verb)
	}
}

// apply runs the verbs that answer with OK or ERR.
func (d *Daemon) apply(req bus.Request) (string, error) {
	switch req.Verb {
	case bus.CmdToggle:
		return d.toggle()
	case bus.CmdSummary:
		return d.setSummary(req.Arg)
	case bus.CmdAutoVoice:
		return d.setAutoVoice(req.Arg)
	case bus.CmdLanguage:
		return d.setLanguage(req.Arg)
	case bus.CmdSpeak:
		return d.speak(req.Arg)
	}
	return "", fmt.Errorf("unknown=%q", req.Verb)
}

func reply(c net.Conn, msg string, err error) {
	if err != nil {
		fmt.Fprintf(c, "ERR %v\n", err)
		return
	}
	fmt.Fprintf(c, "OK %s\n", msg)
}

// active returns the running session, if any.
func (d *Daemon) active() *session.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil
	}
	return d.session
}

func (d *Daemon) toggle() (string, error) {
	if d.stopSession() {
		d.notifier.Send(notify.MsgSessionStopped)
		return "stopped", nil
	}
	return d.startSession()
}

func (d *Daemon) startSession() (string, error) {
	s, err := d.factory(d.configs.GetConfig())
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		s.Stop()
		return "", session.ErrAlreadyStarted
	}
	d.session = s
	d.running = true
	d.lastErr = ""
	p := d.prefs
	d.mu.Unlock()

	if err := s.Start(d.ctx); err != nil {
		d.mu.Lock()
		if d.session == s {
			d.running = false
		}
		d.mu.Unlock()

		if errors.Is(err, session.ErrStopped) {
			return "stopped", nil
		}
		msg := err.Error()
		if pe, ok := capture.AsPermissionError(err); ok {
			msg = pe.Kind.Message()
		}
		d.mu.Lock()
		d.lastErr = msg
		d.mu.Unlock()

		s.Stop()
		d.notifier.Error(msg)
		d.logger.Warn("session failed to start", zap.Error(err))
		return "", errors.New(msg)
	}

	if p.language != nil {
		s.Dispatch(session.SetLanguage{Code: *p.language})
	}
	if p.autoVoice != nil {
		s.Dispatch(session.SetAutoVoice{On: *p.autoVoice})
	}
	if p.summary != nil {
		s.Dispatch(session.SetSummary{On: *p.summary})
	}

	d.notifier.Send(notify.MsgSessionStarted)
	return "started id=" + s.ID(), nil
}

// stopSession reports whether a running session was stopped.
func (d *Daemon) stopSession() bool {
	d.mu.Lock()
	s := d.session
	wasRunning := d.running
	d.running = false
	d.mu.Unlock()

	if s == nil || !wasRunning {
		return false
	}
	s.Stop()
	return true
}

func (d *Daemon) statusLine() string {
	d.mu.Lock()
	s := d.session
	lastErr := d.lastErr
	d.mu.Unlock()

	if s == nil {
		line := "phase=idle"
		if lastErr != "" {
			line += fmt.Sprintf(" error=%q", lastErr)
		}
		return line
	}

	st := s.Status()
	if st.Error == "" {
		st.Error = lastErr
	}
	parts := []string{
		"phase=" + st.Phase.String(),
		"transport=" + st.Transport.String(),
		"language=" + string(st.Language),
		"auto_voice=" + strconv.FormatBool(st.AutoVoice),
		"summary=" + strconv.FormatBool(st.Summary),
		"entries=" + strconv.Itoa(st.Entries),
		"summaries=" + strconv.Itoa(st.Summaries),
		"frames=" + strconv.FormatUint(st.FramesSent, 10),
		"lost=" + strconv.FormatUint(st.FramesLost, 10),
		"id=" + st.ID,
	}
	if st.Error != "" {
		parts = append(parts, fmt.Sprintf("error=%q", st.Error))
	}
	return strings.Join(parts, " ")
}

// parseSwitch returns the requested value for an on/off argument; an empty
// argument flips current.
func parseSwitch(arg string, current bool) (bool, error) {
	switch strings.ToLower(arg) {
	case "":
		return !current, nil
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid switch %q (use on or off)", arg)
}

func (d *Daemon) setSummary(arg string) (string, error) {
	s := d.active()
	current := false
	if s != nil {
		current = s.Status().Summary
	}
	on, err := parseSwitch(arg, current)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	d.prefs.summary = &on
	d.mu.Unlock()
	if s != nil {
		s.Dispatch(session.SetSummary{On: on})
	}
	d.notifier.Send(notify.MsgSummaryToggled)
	return "summary=" + strconv.FormatBool(on), nil
}

func (d *Daemon) setAutoVoice(arg string) (string, error) {
	s := d.active()
	current := d.configs.GetConfig().Subtitles.AutoVoice
	if s != nil {
		current = s.Status().AutoVoice
	}
	on, err := parseSwitch(arg, current)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	d.prefs.autoVoice = &on
	d.mu.Unlock()
	if s != nil {
		s.Dispatch(session.SetAutoVoice{On: on})
	}
	return "auto_voice=" + strconv.FormatBool(on), nil
}

func (d *Daemon) setLanguage(arg string) (string, error) {
	code, err := language.Parse(arg)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	d.prefs.language = &code
	d.mu.Unlock()
	if s := d.active(); s != nil {
		s.Dispatch(session.SetLanguage{Code: code})
	}
	return "language=" + string(code), nil
}

func (d *Daemon) writeLog(c net.Conn, summaries bool) {
	d.mu.Lock()
	s := d.session
	d.mu.Unlock()
	if s == nil {
		return
	}

	log := s.Transcript()
	if summaries {
		log = s.Summaries()
	}
	if err := log.WriteJSONLines(c); err != nil {
		d.logger.Warn("failed to write log", zap.Error(err))
	}
}

func (d *Daemon) speak(arg string) (string, error) {
	index := -1
	if arg != "" {
		i, err := strconv.Atoi(arg)
		if err != nil {
			return "", fmt.Errorf("invalid index %q", arg)
		}
		index = i
	}

	s := d.active()
	if s == nil {
		return "", errors.New("no active session")
	}
	if err := s.Speak(d.ctx, index); err != nil {
		return "", err
	}
	return "spoken", nil
}

// ApplyConfig forwards settings-level changes from a config reload to the
// running session. It is registered with config.Manager.OnReload.
func (d *Daemon) ApplyConfig(old, new *config.Config) {
	s := d.active()
	if s == nil {
		d.notifier.Send(notify.MsgConfigReloaded)
		return
	}

	if old == nil || old.Subtitles.Display != new.Subtitles.Display {
		s.Dispatch(session.UpdateSettings{Settings: new.Subtitles.Display})
	}
	if old == nil || old.Subtitles.Language != new.Subtitles.Language {
		if code, err := language.Parse(new.Subtitles.Language); err == nil {
			s.Dispatch(session.SetLanguage{Code: code})
		}
	}
	if old == nil || old.Subtitles.AutoVoice != new.Subtitles.AutoVoice {
		s.Dispatch(session.SetAutoVoice{On: new.Subtitles.AutoVoice})
	}
	d.notifier.Send(notify.MsgConfigReloaded)
}
