// Package wol provides Wake-on-LAN operations for a remote backup target.
package wol

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/fgeck/blue-backup/internal/models"
	"github.com/mdlayher/wol"
	"github.com/rs/zerolog"
)

// Service defines the interface for Wake-on-LAN operations.
type Service interface {
	Wake(ctx context.Context, cfg models.WOLConfig) error
}

// Client wraps the wol library for mocking.
type Client interface {
	Wake(broadcastIP string, mac net.HardwareAddr) error
}

// DefaultClient is the default implementation using mdlayher/wol.
type DefaultClient struct{}

// Wake sends a magic packet to the specified MAC address.
func (c *DefaultClient) Wake(broadcastIP string, mac net.HardwareAddr) error {
	client, err := wol.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create WOL client: %w", err)
	}
	defer func() { _ = client.Close() }()

	ip := net.ParseIP(broadcastIP)
	if ip == nil {
		return fmt.Errorf("invalid broadcast IP: %s", broadcastIP)
	}

	if err := client.Wake(ip.String()+":9", mac); err != nil {
		return fmt.Errorf("failed to send WOL packet: %w", err)
	}

	return nil
}

// Impl implements the WOL Service interface.
type Impl struct {
	wolClient Client
	logger    zerolog.Logger
}

// New creates a new WOL service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{wolClient: &DefaultClient{}, logger: logger}
}

// NewWithClient creates a new WOL service with a custom client (for testing).
func NewWithClient(logger zerolog.Logger, client Client) *Impl {
	return &Impl{wolClient: client, logger: logger}
}

// Wake sends a WOL packet and sleeps for the configured boot wait before
// the SSH connection is attempted. There is no readiness probe: the target
// is a bare file server without an HTTP surface.
func (s *Impl) Wake(ctx context.Context, cfg models.WOLConfig) error {
	mac, err := net.ParseMAC(cfg.MACAddress)
	if err != nil {
		return fmt.Errorf("invalid MAC address %q: %w", cfg.MACAddress, err)
	}

	s.logger.Info().
		Str("mac", cfg.MACAddress).
		Str("broadcast", cfg.Broadcast).
		Msg("sending WOL packet")

	if err := s.wolClient.Wake(cfg.Broadcast, mac); err != nil {
		return err
	}

	if cfg.Wait > 0 {
		s.logger.Debug().Str("wait", cfg.Wait.Round(time.Millisecond).String()).Msg("waiting for target to boot")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.Wait):
		}
	}

	return nil
}
