package app

import (
	"context"
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog/log"

	"github.com/davekiss/hue-midi-sub000/internal/bridge"
	"github.com/davekiss/hue-midi-sub000/internal/color"
	"github.com/davekiss/hue-midi-sub000/internal/config"
	"github.com/davekiss/hue-midi-sub000/internal/effects"
	"github.com/davekiss/hue-midi-sub000/internal/stream"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// External collaborators
	Client   *bridge.Client
	Resolver *bridge.LegacyResolver
	Fallback *bridge.Fallback

	// Streaming core, assembled at Start once the zone is known
	Renderer *stream.Renderer
	Router   *stream.Router

	// Effect system
	Registry *effects.Registry
	Runner   *effects.Runner
}

// NewServices creates the bridge-facing services. The streaming core is
// assembled in Start, after the entertainment zone has been selected.
func NewServices(cfg *config.Config) (*Services, error) {
	client := bridge.NewClient(cfg.Hue.Bridge, cfg.Hue.AppKey, cfg.Hue.Timeout.Duration())

	return &Services{
		cfg:      cfg,
		Client:   client,
		Resolver: bridge.NewLegacyResolver(client, cfg.Hue.Timeout.Duration()),
		Fallback: bridge.NewFallback(client, cfg.Hue.Bridge, cfg.Hue.AppKey, cfg.Fallback.RateLimitRPS),
		Registry: effects.NewRegistry(),
	}, nil
}

// Start connects to the bridge, selects the entertainment zone, builds the
// streaming pipeline and opens the stream session.
func (s *Services) Start(ctx context.Context) error {
	if err := s.Client.Connect(ctx); err != nil {
		return err
	}
	log.Info().Str("bridge", s.cfg.Hue.Bridge).Msg("Connected to Hue bridge")

	zone, err := s.selectZone(ctx)
	if err != nil {
		return err
	}

	mapping, err := s.Client.ChannelMap(ctx, zone)
	if err != nil {
		return fmt.Errorf("failed to load channel mapping: %w", err)
	}
	if len(mapping) == 0 {
		return fmt.Errorf("entertainment zone %q has no channels", zone.ID)
	}

	space := stream.ColorSpaceRGB
	if strings.EqualFold(s.cfg.Stream.ColorSpace, "xy") {
		space = stream.ColorSpaceXY
	}
	encoder, err := stream.NewEncoder(zone.ID, space)
	if err != nil {
		return err
	}

	conn, err := stream.NewConnection(stream.ConnectionConfig{
		Address:          s.cfg.Hue.Bridge,
		Identity:         s.cfg.Hue.AppKey,
		ClientKey:        s.cfg.Hue.ClientKey,
		HandshakeTimeout: s.cfg.Stream.HandshakeTimeout.Duration(),
		ReconnectDelay:   s.cfg.Stream.ReconnectDelay.Duration(),
		MaxReconnects:    s.cfg.Stream.MaxReconnects,
		// Effects keep running after a terminal loss - they write into a
		// buffer nobody is sending, so reconnecting resumes visually
		// where the stream left off.
		OnLost: func(err error) {
			log.Error().Err(err).Msg("Stream connection lost")
		},
	})
	if err != nil {
		return err
	}

	zoneID := zone.ID
	s.Renderer = stream.NewRenderer(encoder, conn, stream.RendererConfig{
		Interval:  s.cfg.Stream.Interval.Duration(),
		Keepalive: s.cfg.Stream.Keepalive.Duration(),
		Activate: func(ctx context.Context) error {
			return s.Client.StartStream(ctx, zoneID)
		},
		Deactivate: func(ctx context.Context) error {
			return s.Client.StopStream(ctx, zoneID)
		},
	})

	s.Router = stream.NewRouter(s.Renderer, s.Resolver)
	// the legacy id table belongs to the mapping generation being swapped in
	s.Resolver.Invalidate()
	s.Router.SetMapping(mapping)

	s.Runner = effects.NewRunner(s.Registry, s.Router, s.Fallback)

	if err := s.Renderer.Start(ctx); err != nil {
		return err
	}

	s.startScenes()
	return nil
}

// selectZone returns the configured zone, or the first available one when
// none is configured.
func (s *Services) selectZone(ctx context.Context) (*bridge.EntertainmentConfiguration, error) {
	if s.cfg.Hue.Zone != "" {
		return s.Client.GetEntertainmentConfiguration(ctx, s.cfg.Hue.Zone)
	}

	zones, err := s.Client.GetEntertainmentConfigurations(ctx)
	if err != nil {
		return nil, err
	}
	if len(zones) == 0 {
		return nil, fmt.Errorf("bridge has no entertainment zones configured")
	}
	log.Info().
		Str("zone", zones[0].ID).
		Str("name", zones[0].Metadata.Name).
		Msg("No zone configured, using first available")
	return &zones[0], nil
}

// startScenes launches the effects declared in the config.
func (s *Services) startScenes() {
	for _, scene := range s.cfg.Scenes {
		opts := effects.Options{
			Speed:      scene.Speed,
			Brightness: scene.Brightness,
			Intensity:  scene.Intensity,
		}
		for _, hexColor := range scene.Colors {
			c, err := colorful.Hex(hexColor)
			if err != nil {
				log.Warn().Str("color", hexColor).Str("light", scene.Light).Msg("Invalid scene color, skipping")
				continue
			}
			opts.Colors = append(opts.Colors, color.FromColorful(c))
		}

		if err := s.Runner.Start(scene.Light, scene.Effect, opts); err != nil {
			log.Error().Err(err).
				Str("light", scene.Light).
				Str("effect", scene.Effect).
				Msg("Failed to start scene effect")
		}
	}
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	if s.Runner != nil {
		s.Runner.StopAll()
	}

	var err error
	if s.Renderer != nil {
		err = s.Renderer.Stop()
	}

	if s.Client != nil {
		s.Client.Close()
	}
	return err
}
