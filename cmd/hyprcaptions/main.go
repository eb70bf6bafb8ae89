package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/leonardotrapani/hyprcaptions/internal/bus"
	"github.com/leonardotrapani/hyprcaptions/internal/config"
	"github.com/leonardotrapani/hyprcaptions/internal/daemon"
	"github.com/leonardotrapani/hyprcaptions/internal/deps"
	"github.com/leonardotrapani/hyprcaptions/internal/mockserver"
	"github.com/leonardotrapani/hyprcaptions/internal/notify"
	"github.com/leonardotrapani/hyprcaptions/internal/render"
	"github.com/leonardotrapani/hyprcaptions/internal/session"
	"github.com/leonardotrapani/hyprcaptions/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var debug bool

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "hyprcaptions",
		Short:        "Live captions, translation and summaries for Wayland/Hyprland",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		serveCmd(),
		toggleCmd(),
		statusCmd(),
		summaryCmd(),
		autoVoiceCmd(),
		languageCmd(),
		transcriptCmd(),
		speakCmd(),
		versionCmd(),
		stopCmd(),
		runCmd(),
		configureCmd(),
		mockServerCmd(),
		doctorCmd(),
	)
	return root
}

// send forwards one verb to the daemon and prints the answer.
func send(verb byte, arg, action string) error {
	e, err := bus.DefaultEndpoint()
	if err != nil {
		return err
	}
	resp, err := e.Send(verb, arg)
	if err != nil {
		return fmt.Errorf("failed to %s: %w (is `hyprcaptions serve` running?)", action, err)
	}
	fmt.Print(resp)
	if len(resp) >= 3 && resp[:3] == "ERR" {
		return errors.New("daemon reported an error")
	}
	return nil
}

func simpleCmd(use, short string, verb byte, action string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(verb, "", action)
		},
	}
}

func switchCmd(use, short string, verb byte, action string) *cobra.Command {
	return &cobra.Command{
		Use:       use + " [on|off]",
		Short:     short,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			return send(verb, arg, action)
		},
	}
}

func toggleCmd() *cobra.Command {
	return simpleCmd("toggle", "Start or stop the captioning session", bus.CmdToggle, "toggle captions")
}

func statusCmd() *cobra.Command {
	return simpleCmd("status", "Get current session status", bus.CmdStatus, "get status")
}

func versionCmd() *cobra.Command {
	return simpleCmd("version", "Get protocol version", bus.CmdVersion, "get version")
}

func stopCmd() *cobra.Command {
	return simpleCmd("stop", "Stop the daemon", bus.CmdQuit, "stop daemon")
}

func summaryCmd() *cobra.Command {
	return switchCmd("summary", "Toggle periodic summaries", bus.CmdSummary, "toggle summaries")
}

func autoVoiceCmd() *cobra.Command {
	return switchCmd("autovoice", "Toggle speaking every new subtitle", bus.CmdAutoVoice, "toggle auto voice")
}

func languageCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "language <source|ru|en|es|zh>",
		Short:     "Select the subtitle language",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"source", "ru", "en", "es", "zh"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.CmdLanguage, args[0], "set language")
		},
	}
}

func transcriptCmd() *cobra.Command {
	var summaries bool
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Print the transcript as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verb := bus.CmdTranscript
			if summaries {
				verb = bus.CmdSummaries
			}
			return send(verb, "", "read transcript")
		},
	}
	cmd.Flags().BoolVar(&summaries, "summary", false, "Print the summary log instead")
	return cmd
}

func speakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "speak [index]",
		Short: "Voice a transcript entry (default: the last one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			return send(bus.CmdSpeak, arg, "speak")
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, mgr, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if missing := deps.Missing(deps.CheckAll(deps.Tools)); len(missing) > 0 {
				logger.Warn("required tools not found; run `hyprcaptions doctor`", zap.Strings("missing", missing))
			}

			cfg := mgr.GetConfig()
			notifier := notify.New(cfg.Notifications.Enabled, cfg.Notifications.Type,
				cfg.Notifications.Messages.Resolve(), logger)

			endpoint, err := bus.DefaultEndpoint()
			if err != nil {
				return err
			}

			factory := func(c *config.Config) (*session.Session, error) {
				return buildSession(c, nil, logger)
			}
			d := daemon.New(endpoint, mgr, factory, notifier, logger)
			mgr.OnReload(d.ApplyConfig)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if err := mgr.StartWatching(ctx); err != nil {
				logger.Warn("config watching disabled", zap.Error(err))
			}
			defer mgr.Stop()

			return d.Run()
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a captioning session in this terminal until Ctrl+C",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, mgr, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			term := render.NewTerminal(os.Stdout, render.DefaultOptions(), logger)
			s, err := buildSession(mgr.GetConfig(), term, logger)
			if err != nil {
				return err
			}
			defer s.Stop()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mgr.OnReload(func(old, new *config.Config) {
				s.Dispatch(session.UpdateSettings{Settings: new.Subtitles.Display})
			})
			if err := mgr.StartWatching(ctx); err != nil {
				logger.Warn("config watching disabled", zap.Error(err))
			}
			defer mgr.Stop()

			if err := s.Start(ctx); err != nil {
				fmt.Fprintln(os.Stderr, render.Status(s.Status()))
				return err
			}

			<-ctx.Done()
			s.Stop()
			fmt.Println()
			fmt.Println(render.Status(s.Status()))
			return nil
		},
	}
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration editor for hyprcaptions.
This lets you set:
- Subtitle language and auto voice
- Subtitle font, colors and position
- Summary interval
- Transcription and backend endpoints, API keys
- Notification preferences`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	logger := newLogger(zap.NewAtomicLevelAt(zap.WarnLevel))
	cfg, err := config.Load(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration editor error: %w", err)
	}
	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}
	if err := config.Save(result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("Configuration saved successfully!")
	fmt.Println()
	showNextSteps()
	return nil
}

func showNextSteps() {
	serviceRunning := false
	if err := exec.Command("systemctl", "--user", "is-active", "--quiet", "hyprcaptions.service").Run(); err == nil {
		serviceRunning = true
	}

	fmt.Println("Next Steps:")
	if serviceRunning {
		fmt.Println("1. Subtitle settings were applied to the running daemon")
	} else {
		fmt.Println("1. Start the service: systemctl --user start hyprcaptions.service")
	}
	fmt.Println("2. Start captions: hyprcaptions toggle")
	fmt.Println()

	configPath, _ := config.GetConfigPath()
	fmt.Printf("Config file location: %s\n", configPath)
}

func mockServerCmd() *cobra.Command {
	var addr string
	var jsonMode bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run a mock transcription and collaborator backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, mgr, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			cfg := mgr.GetConfig().ToMockServerConfig()
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("json") {
				cfg.JSON = jsonMode
			}
			if cmd.Flags().Changed("interval") {
				cfg.PhraseInterval = interval
			}

			srv := mockserver.New(cfg, logger)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from [mock_server])")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "send structured {time,text,timestamp} messages")
	cmd.Flags().DurationVar(&interval, "interval", 0, "time between phrases")
	return cmd
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the external programs hyprcaptions needs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reports := deps.CheckAll(deps.Tools)
			for _, r := range reports {
				mark := "ok"
				detail := r.Status.Path
				switch {
				case !r.Status.Installed && r.Tool.Required:
					mark, detail = "MISSING", "required"
				case !r.Status.Installed:
					mark, detail = "missing", "optional"
				case r.Status.Version != "":
					detail += " (" + r.Status.Version + ")"
				}
				fmt.Printf("%-8s %-12s %-28s %s\n", mark, r.Tool.Name, r.Tool.Purpose, detail)
			}
			if missing := deps.Missing(reports); len(missing) > 0 {
				return fmt.Errorf("missing required tools: %v", missing)
			}
			return nil
		},
	}
}
