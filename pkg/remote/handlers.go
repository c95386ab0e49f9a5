package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/agrione/offline-sync/pkg/queue"
	"github.com/agrione/offline-sync/pkg/telemetry"
)

// Deliverer turns typed actions into requests against a Sender
type Deliverer struct {
	sender            Sender
	classifyPermanent bool
}

// NewDeliverer creates a Deliverer. With classifyPermanent, 4xx responses are
// returned as queue.ErrPermanent so the sync pass can skip further retries.
func NewDeliverer(sender Sender, classifyPermanent bool) *Deliverer {
	return &Deliverer{sender: sender, classifyPermanent: classifyPermanent}
}

// RegisterHandlers maps every known action type to its endpoint
func (d *Deliverer) RegisterHandlers(r *queue.Registry) {
	queue.Register(r, func(ctx context.Context, id string, a queue.SetPriceAlert) error {
		return d.deliver(ctx, id, a, http.MethodPost, "/prices/alerts")
	})
	queue.Register(r, func(ctx context.Context, id string, a queue.ContactDealer) error {
		if a.DealerID == "" {
			return queue.Permanent(fmt.Errorf("contact-dealer: missing dealerId"))
		}
		return d.deliver(ctx, id, a, http.MethodPost, "/dealers/"+url.PathEscape(a.DealerID)+"/contact")
	})
	queue.Register(r, func(ctx context.Context, id string, a queue.SubmitReview) error {
		if a.ProductID == "" {
			return queue.Permanent(fmt.Errorf("submit-review: missing productId"))
		}
		return d.deliver(ctx, id, a, http.MethodPost, "/products/"+url.PathEscape(a.ProductID)+"/reviews")
	})
	queue.Register(r, func(ctx context.Context, id string, a queue.SaveFavorite) error {
		if a.ProductID == "" {
			return queue.Permanent(fmt.Errorf("save-favorite: missing productId"))
		}
		return d.deliver(ctx, id, a, http.MethodPost, "/products/"+url.PathEscape(a.ProductID)+"/favorite")
	})
}

func (d *Deliverer) deliver(ctx context.Context, id string, a queue.Action, method, path string) error {
	body, err := json.Marshal(a)
	if err != nil {
		return queue.Permanent(err)
	}
	req := Request{
		ActionID:   id,
		ActionType: a.ActionType(),
		Method:     method,
		Path:       path,
		Body:       body,
	}

	resp, err := d.sender.Send(ctx, req)
	if err != nil {
		return err
	}
	if resp.IsSuccess() {
		telemetry.LoggerFromContext(ctx).Debug().Str("request", req.String()).Int("status", resp.Status).Msg("Delivered")
		return nil
	}

	err = fmt.Errorf("%s: %s: %s", req, resp, truncate(resp.Body, 200))
	if d.classifyPermanent && resp.IsPermanentError() {
		return queue.Permanent(err)
	}
	return err
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
