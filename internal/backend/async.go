package backend

import (
	"context"

	"github.com/nerrad567/scale-registry/internal/device"
)

// Result carries the outcome of an asynchronous call.
type Result[T any] struct {
	Value T
	Err   error
}

// AsyncClient runs Client calls on their own goroutine. Each method returns a
// channel that receives exactly one Result and is then closed.
//
// Cancel through the ctx passed in. An abandoned call still delivers its
// Result to the buffered channel, so no goroutine leaks; whatever the single
// underlying request achieved at the server stands.
type AsyncClient struct {
	c *Client
}

// Async returns the asynchronous view of c.
func (c *Client) Async() *AsyncClient {
	return &AsyncClient{c: c}
}

// CreateDevice is the asynchronous form of Client.CreateDevice.
func (a *AsyncClient) CreateDevice(ctx context.Context, model device.Model, cfg device.Config) <-chan Result[device.Identity] {
	return goResult(func() (device.Identity, error) {
		return a.c.CreateDevice(ctx, model, cfg)
	})
}

// GetConfig is the asynchronous form of Client.GetConfig.
func (a *AsyncClient) GetConfig(ctx context.Context, id device.Identity) <-chan Result[device.Config] {
	return goResult(func() (device.Config, error) {
		return a.c.GetConfig(ctx, id)
	})
}

// UpdateConfig is the asynchronous form of Client.UpdateConfig.
func (a *AsyncClient) UpdateConfig(ctx context.Context, id device.Identity, cfg device.Config) <-chan Result[struct{}] {
	return goResult(func() (struct{}, error) {
		return struct{}{}, a.c.UpdateConfig(ctx, id, cfg)
	})
}

// GetAddress is the asynchronous form of Client.GetAddress.
func (a *AsyncClient) GetAddress(ctx context.Context, id device.Identity) <-chan Result[string] {
	return goResult(func() (string, error) {
		return a.c.GetAddress(ctx, id)
	})
}

// SetAddress is the asynchronous form of Client.SetAddress.
func (a *AsyncClient) SetAddress(ctx context.Context, id device.Identity, address string) <-chan Result[struct{}] {
	return goResult(func() (struct{}, error) {
		return struct{}{}, a.c.SetAddress(ctx, id, address)
	})
}

func goResult[T any](fn func() (T, error)) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	go func() {
		defer close(ch)
		v, err := fn()
		ch <- Result[T]{Value: v, Err: err}
	}()
	return ch
}
