package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nerrad567/scale-registry/internal/device"
	"github.com/nerrad567/scale-registry/internal/registry"
)

// Pull fetches the published config of id from a public export endpoint and
// returns it as a registry entry ready for Store.Add.
//
// The request is a plain GET of baseURL/<Model>-<Serial> without credentials.
// Status and error mapping match Client. An invalid id is rejected with
// device.ErrUnknownModel or device.ErrInvalidFormat before any request.
func Pull(ctx context.Context, baseURL string, id device.Identity, opts ...Option) (registry.Entry, error) {
	c := New(baseURL, "", opts...)
	return c.pull(ctx, id)
}

func (c *Client) pull(ctx context.Context, id device.Identity) (registry.Entry, error) {
	if err := id.Validate(); err != nil {
		return registry.Entry{}, err
	}
	target := c.baseURL + "/" + url.PathEscape(id.String())

	var cfg device.Config
	if err := c.do(ctx, http.MethodGet, target, false, nil, http.StatusOK, &cfg); err != nil {
		return registry.Entry{}, err
	}
	return registry.Entry{Identity: id, Config: cfg}, nil
}

// PullAsync is the asynchronous form of Pull.
func PullAsync(ctx context.Context, baseURL string, id device.Identity, opts ...Option) <-chan Result[registry.Entry] {
	c := New(baseURL, "", opts...)
	return goResult(func() (registry.Entry, error) {
		return c.pull(ctx, id)
	})
}
