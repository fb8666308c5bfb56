// Package ngrok shares the local server through an ngrok endpoint.
package ngrok

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"songforge/internal/config"

	"github.com/sirupsen/logrus"
	"golang.ngrok.com/ngrok/v2"
)

// ErrNoAuthToken is returned when the tunnel is enabled without a token.
var ErrNoAuthToken = errors.New("ngrok auth token not found; set NGROK_AUTHTOKEN or [ngrok] auth_token")

// Service represents the ngrok tunnel service. A nil *Service is a disabled
// tunnel and every method is a no-op on it.
type Service struct {
	config config.NgrokConfig
	agent  ngrok.Agent
	logger *logrus.Logger

	mu     sync.RWMutex
	tunnel ngrok.EndpointForwarder
}

// NewService creates a tunnel service, or returns nil when disabled.
func NewService(cfg config.NgrokConfig, logger *logrus.Logger) (*Service, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.AuthToken == "" {
		return nil, ErrNoAuthToken
	}

	agent, err := ngrok.NewAgent(ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		return nil, fmt.Errorf("failed to create ngrok agent: %w", err)
	}

	return &Service{
		config: cfg,
		agent:  agent,
		logger: logger,
	}, nil
}

// StartTunnel forwards the public endpoint to localAddress.
func (s *Service) StartTunnel(ctx context.Context, localAddress string) error {
	if s == nil {
		return nil
	}

	s.logger.Info("Starting ngrok tunnel")

	var endpointOpts []ngrok.EndpointOption
	if s.config.Domain != "" {
		endpointOpts = append(endpointOpts, ngrok.WithURL(s.config.Domain))
	}

	tunnel, err := s.agent.Forward(ctx, ngrok.WithUpstream(localAddress), endpointOpts...)
	if err != nil {
		return fmt.Errorf("failed to create ngrok tunnel: %w", err)
	}

	s.mu.Lock()
	s.tunnel = tunnel
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"public_url": tunnel.URL().String(),
		"upstream":   localAddress,
	}).Info("Ngrok tunnel active")
	return nil
}

// PublicURL returns the tunnel URL, or "" when no tunnel is running.
func (s *Service) PublicURL() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tunnel == nil {
		return ""
	}
	return s.tunnel.URL().String()
}

// Stop closes the tunnel.
func (s *Service) Stop() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	tunnel := s.tunnel
	s.tunnel = nil
	s.mu.Unlock()
	if tunnel == nil {
		return nil
	}

	s.logger.Info("Stopping ngrok tunnel")
	if err := tunnel.Close(); err != nil {
		return err
	}
	<-tunnel.Done()
	return nil
}
