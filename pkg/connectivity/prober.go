package connectivity

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Prober derives connectivity from an HTTP health endpoint
type Prober struct {
	*broadcaster
	url    string
	client *http.Client
}

// NewProber creates a prober. It starts in the given state until the first Probe.
func NewProber(url string, timeout time.Duration, initial bool) *Prober {
	return &Prober{
		broadcaster: newBroadcaster(initial),
		url:         url,
		client:      &http.Client{Timeout: timeout},
	}
}

// Probe checks the endpoint once and emits a transition if the state changed.
// Any response below 500 counts as online: the network path works.
func (p *Prober) Probe(ctx context.Context) bool {
	online := p.check(ctx)
	if p.set(online) {
		log.Info().Str("url", p.url).Bool("online", online).Msg("Connectivity changed")
	}
	return online
}

func (p *Prober) check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		log.Error().Err(err).Str("url", p.url).Msg("Invalid health URL")
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", p.url).Msg("Health probe failed")
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
