package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirechat-nowplaying/audiomatch"
	"github.com/vovakirdan/wirechat-nowplaying/config"
	"github.com/vovakirdan/wirechat-nowplaying/conversation"
	"github.com/vovakirdan/wirechat-nowplaying/transport"
	"github.com/vovakirdan/wirechat-nowplaying/ui"
	"github.com/vovakirdan/wirechat-nowplaying/wirechat"
)

type options struct {
	configPath string
	plain      bool
	cfg        config.Config
	logCloser  io.Closer
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "nowplaying-chat",
		Short:        "Chat with one partner and share what music is playing around you",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg)
			opts.cfg = cfg
			return opts.setupLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logCloser != nil {
				_ = opts.logCloser.Close()
			}
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", config.DefaultPath(), "config file")
	f.BoolVar(&opts.plain, "plain", false, "line mode instead of the full-screen UI")
	f.StringP("conversation", "c", "", "room to join")
	f.String("partner", "", "name shown in the title")
	f.String("url", "", "WebSocket URL")
	f.String("rest-url", "", "REST API base URL")
	f.String("user", "", "user name sent in hello")
	f.String("token", "", "JWT sent in hello and REST calls")
	f.Int("page-size", 0, "events loaded on join")
	f.String("match-feed", "", `JSON-lines recognizer feed, "-" for stdin`)
	f.String("log-level", "", "trace, debug, info, warn, error")
	f.String("log-file", "", "write logs to this file")
	return cmd
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	str("conversation", &cfg.Conversation)
	str("partner", &cfg.Partner)
	str("url", &cfg.Server.URL)
	str("rest-url", &cfg.Server.RESTBaseURL)
	str("user", &cfg.Server.User)
	str("token", &cfg.Server.Token)
	str("match-feed", &cfg.MatchFeed)
	str("log-level", &cfg.LogLevel)
	str("log-file", &cfg.LogFile)
	if f.Changed("page-size") {
		cfg.PageSize, _ = f.GetInt("page-size")
	}
}

// useScreen picks the full-screen UI when stdout is a terminal. The
// screen reads keys from the TTY, leaving stdin free for a match feed.
func (o *options) useScreen() bool {
	return !o.plain && isatty.IsTerminal(os.Stdout.Fd())
}

// setupLogging keeps stderr clean while the full-screen UI owns the
// terminal: logs go to log_file, or nowhere.
func (o *options) setupLogging() error {
	level := zerolog.InfoLevel
	if o.cfg.LogLevel != "" {
		var err error
		if level, err = zerolog.ParseLevel(o.cfg.LogLevel); err != nil {
			return errors.Wrapf(err, "log level %q", o.cfg.LogLevel)
		}
	}
	zerolog.SetGlobalLevel(level)

	switch {
	case o.cfg.LogFile != "":
		f, err := os.OpenFile(o.cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}
		o.logCloser = f
		log.Logger = zerolog.New(f).With().Timestamp().Logger()
	case o.useScreen():
		log.Logger = zerolog.New(io.Discard)
	default:
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return nil
}

func run(ctx context.Context, o *options) error {
	cfg := o.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}
	screen := o.useScreen()
	if !screen && cfg.MatchFeed == "-" {
		return errors.New(`match feed "-" needs stdin, which line mode uses for input`)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := wirechat.NewClient(cfg.Wirechat())
	client.SetLogger(wirechat.NewZerologLogger(log.Logger))
	client.OnStateChanged(func(ev wirechat.StateEvent) {
		log.Info().Str("from", ev.OldState.String()).Str("to", ev.NewState.String()).AnErr("cause", ev.Error).Msg("connection state")
	})
	defer client.Close()

	sessionOpts := []conversation.Option{
		conversation.WithPageSize(cfg.PageSize),
		conversation.WithLogger(log.Logger),
	}

	g, ctx := errgroup.WithContext(ctx)
	if cfg.MatchFeed != "" {
		feed, closeFeed, err := openFeed(cfg.MatchFeed)
		if err != nil {
			return err
		}
		defer closeFeed()
		m := audiomatch.NewFeedMatcher(feed)
		sessionOpts = append(sessionOpts, conversation.WithMatcher(m))
		g.Go(func() error { return m.Run(ctx) })
	}

	// the display needs Submit, the session needs the display
	var session *conversation.Session
	submit := func(text string) { session.Submit(text) }
	tr := transport.NewWirechat(client, log.Logger)

	if screen {
		s := ui.NewScreen(ctx, cfg.Title(), submit, tea.WithInputTTY())
		session = conversation.NewSession(tr, s, sessionOpts...)
		g.Go(func() error {
			defer stop()
			return s.Run()
		})
	} else {
		session = conversation.NewSession(tr, ui.NewPlain(os.Stdout), sessionOpts...)
		g.Go(func() error {
			defer stop()
			return pipeInput(ctx, os.Stdin, session)
		})
	}
	log.Info().Str("session_id", session.ID()).Str("conversation", cfg.Conversation).Msg("starting session")
	g.Go(func() error { return session.Run(ctx, cfg.Conversation) })

	return g.Wait()
}

// pipeInput submits each line of r and, once r is exhausted or /quit is
// read, waits for the queued messages to go out.
func pipeInput(ctx context.Context, r io.Reader, session *conversation.Session) error {
	if err := ui.ReadInput(ctx, r, session.Submit); err != nil {
		return err
	}
	if err := session.Drain(ctx); err != nil {
		log.Debug().Err(err).Msg("stopped before queued messages were sent")
	}
	return nil
}

func openFeed(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open match feed")
	}
	return f, func() { _ = f.Close() }, nil
}
