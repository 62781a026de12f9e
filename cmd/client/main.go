package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/voice-client/internal/adapters/audio"
	"github.com/dkeye/voice-client/internal/adapters/device"
	router "github.com/dkeye/voice-client/internal/adapters/http"
	"github.com/dkeye/voice-client/internal/adapters/rtc"
	voicesignal "github.com/dkeye/voice-client/internal/adapters/signal"
	"github.com/dkeye/voice-client/internal/adapters/surface"
	"github.com/dkeye/voice-client/internal/app"
	"github.com/dkeye/voice-client/internal/app/monitor"
	"github.com/dkeye/voice-client/internal/app/orch"
	"github.com/dkeye/voice-client/internal/config"
	"github.com/dkeye/voice-client/internal/domain"
	"github.com/dkeye/voice-client/internal/logging"
	"github.com/dkeye/voice-client/internal/metrics"
)

var flags = []cli.Flag{
	&cli.StringFlag{
		Name:  "config",
		Usage: "path to config file, defaults to config/config.$CONFIG_ENV.yaml",
	},
	&cli.StringFlag{
		Name:    "room",
		Usage:   "room to join",
		EnvVars: []string{"VOICE_ROOM"},
	},
	&cli.StringFlag{
		Name:    "participant",
		Usage:   "local participant id",
		EnvVars: []string{"VOICE_PARTICIPANT"},
	},
	&cli.StringFlag{
		Name:  "signal-url",
		Usage: "signaling WebSocket url, the negotiation channel is disabled when empty",
	},
	&cli.StringFlag{
		Name:  "control-url",
		Usage: "signaling server base url for session control requests",
	},
	&cli.IntFlag{
		Name:  "port",
		Usage: "port for the local UI bridge",
	},
	&cli.BoolFlag{
		Name:  "dev",
		Usage: "console log output and debug level",
	},
}

func main() {
	app := &cli.App{
		Name:   "voice-client",
		Usage:  "headless conference participant with a local UI bridge",
		Flags:  flags,
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if c.IsSet("room") {
		cfg.Room = c.String("room")
	}
	if c.IsSet("participant") {
		cfg.Participant = c.String("participant")
	}
	if c.IsSet("signal-url") {
		cfg.SignalURL = c.String("signal-url")
	}
	if c.IsSet("control-url") {
		cfg.ControlURL = c.String("control-url")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.Bool("dev") {
		cfg.Mode = "debug"
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func run(c *cli.Context) error {
	logging.Setup("info", true)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel, true)

	iceServers, err := config.ParseICEServersJSON(cfg.ICEServers)
	if err != nil {
		return fmt.Errorf("ice_servers: %w", err)
	}

	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()
	clk := clock.New()

	layout := surface.NewMemory()
	layout.Register(domain.LocalSurfaceID)

	interactions := audio.NewInteractions()
	mon := monitor.New(
		layout,
		audio.Backend{StartSuspended: cfg.Audio.StartSuspended},
		interactions,
		clk,
		m,
		monitor.Settings{
			FrameInterval: cfg.Monitor.FrameInterval,
			Threshold:     cfg.Monitor.Threshold,
			Hold:          cfg.Monitor.Hold,
		},
	)
	defer mon.StopAll()

	api, err := rtc.NewAPI(logging.PionFactory{Level: zerolog.WarnLevel})
	if err != nil {
		return fmt.Errorf("webrtc api: %w", err)
	}

	hub := router.NewEventHub()
	notify := app.NewNotifications(hub)
	defer notify.Stop()

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Capture: app.NewCaptureManager(device.Synthetic{
			VideoBusy:     cfg.Device.VideoBusy,
			Denied:        cfg.Device.Denied,
			ToneAmplitude: cfg.Device.ToneAmplitude,
		}),
		Monitor:     mon,
		Surfaces:    layout,
		Peers:       &rtc.Factory{API: api, DefaultICE: iceServers},
		Control:     voicesignal.NewHTTPControl(cfg.ControlURL),
		Notify:      notify,
		Metrics:     m,
		Clock:       clk,
		SurfaceWait: cfg.Surface.Wait,
		SurfacePoll: cfg.Surface.Poll,
	}
	o.SetSession(domain.RoomID(cfg.Room), domain.ParticipantID(cfg.Participant))
	o.SetForceLeave(func(ctx context.Context, reason string) error {
		o.HandleRemoteLeave(context.WithoutCancel(ctx), reason)
		return nil
	})

	bridge := &router.Bridge{
		Orch:         o,
		Interactions: interactions,
		Events:       hub,
		Metrics:      m,
		Limiter:      router.NewRateLimiter(cfg.RateLimit.Count, cfg.RateLimit.Interval, clk),
	}
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router.SetupRouter(cfg, bridge),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("module", "main").Str("addr", addr).Msg("ui bridge started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.SignalURL != "" && cfg.Room != "" && cfg.Participant != "" {
		client := &voicesignal.Client{
			URL:        cfg.SignalURL,
			Room:       domain.RoomID(cfg.Room),
			Self:       domain.ParticipantID(cfg.Participant),
			ICEServers: iceServers,
			Orch:       o,
		}
		notify.Add(client)
		g.Go(func() error {
			if _, err := o.AcquireLocalMedia(ctx, nil); err != nil {
				log.Warn().Err(err).Str("module", "main").Msg("joining without local media")
			}
			return client.Run(ctx)
		})
	} else {
		log.Info().Str("module", "main").Msg("signaling disabled, waiting for the ui bridge")
	}

	err = g.Wait()
	log.Info().Str("module", "main").Msg("client exited")
	return err
}
