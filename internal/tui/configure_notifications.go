package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprcaptions/internal/config"
	"github.com/leonardotrapani/hyprcaptions/internal/notify"
)

// editNotifications handles the notifications section edit with type and custom messages
func editNotifications(cfg *config.Config) error {
	enabled := cfg.Notifications.Enabled

	desc := "Show notifications when captions start, stop or fail"
	if cfg.Notifications.Enabled {
		desc = fmt.Sprintf("Currently: enabled (%s). %s", cfg.Notifications.Type, desc)
	} else {
		desc = "Currently: disabled. " + desc
	}

	notifType := cfg.Notifications.Type
	if notifType == "" {
		notifType = "desktop"
	}
	var configureMessages bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Description(desc).
				Value(&enabled),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Notification Type").
				Description("How should notifications be displayed?").
				Options(
					huh.NewOption("Desktop notifications (notify-send)", "desktop"),
					huh.NewOption("Log to console only", "log"),
					huh.NewOption("None (silent)", "none"),
				).
				Value(&notifType),
			huh.NewConfirm().
				Title("Configure custom notification messages?").
				Affirmative("Yes").
				Negative("No, use defaults").
				Value(&configureMessages),
		).WithHideFunc(func() bool { return !enabled }),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Notifications.Enabled = enabled
	if !enabled {
		return nil
	}
	cfg.Notifications.Type = notifType

	if configureMessages {
		return editNotificationMessages(cfg)
	}
	return nil
}

// messageField returns the [notifications.messages] entry for configKey.
func messageField(cfg *config.Config, configKey string) *config.MessageConfig {
	m := &cfg.Notifications.Messages
	switch configKey {
	case "session_started":
		return &m.SessionStarted
	case "session_stopped":
		return &m.SessionStopped
	case "permission_denied":
		return &m.PermissionDenied
	case "config_reloaded":
		return &m.ConfigReloaded
	case "summary_toggled":
		return &m.SummaryToggled
	}
	return nil
}

// editNotificationMessages allows editing individual notification messages
func editNotificationMessages(cfg *config.Config) error {
	for {
		var options []huh.Option[string]
		for _, def := range notify.MessageDefs {
			currentBody := def.DefaultBody
			if f := messageField(cfg, def.ConfigKey); f != nil && f.Body != "" {
				currentBody = f.Body
			}

			displayBody := []rune(currentBody)
			if len(displayBody) > 30 {
				displayBody = append(displayBody[:30], []rune("...")...)
			}

			label := fmt.Sprintf("%s: \"%s\"", def.ConfigKey, string(displayBody))
			options = append(options, huh.NewOption(label, def.ConfigKey))
		}
		options = append(options, huh.NewOption("Back", "back"))

		var selected string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Notification Messages").
					Description("Select a message to edit").
					Options(options...).
					Value(&selected),
			),
		).WithTheme(getTheme())

		if err := form.Run(); err != nil {
			return err
		}

		if selected == "back" {
			return nil
		}

		if err := editSingleMessage(cfg, selected); err != nil {
			continue
		}
	}
}

// editSingleMessage edits a single notification message
func editSingleMessage(cfg *config.Config, configKey string) error {
	var def notify.MessageDef
	for _, d := range notify.MessageDefs {
		if d.ConfigKey == configKey {
			def = d
			break
		}
	}
	field := messageField(cfg, configKey)
	if field == nil {
		return fmt.Errorf("unknown message %q", configKey)
	}

	title := field.Title
	if title == "" {
		title = def.DefaultTitle
	}
	body := field.Body
	if body == "" {
		body = def.DefaultBody
	}

	var fields []huh.Field
	fields = append(fields, huh.NewInput().
		Title("Title").
		Description(fmt.Sprintf("Default: %s", def.DefaultTitle)).
		Placeholder(def.DefaultTitle).
		Value(&title))
	if !def.IsError {
		// error bodies carry the failure text
		fields = append(fields, huh.NewInput().
			Title("Body").
			Description(fmt.Sprintf("Default: %s", def.DefaultBody)).
			Placeholder(def.DefaultBody).
			Value(&body))
	}

	form := huh.NewForm(
		huh.NewGroup(fields...),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	*field = config.MessageConfig{Title: title, Body: body}
	return nil
}
