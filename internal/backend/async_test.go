package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/scale-registry/internal/device"
	"github.com/nerrad567/scale-registry/internal/registry"
)

func TestAsyncClient_RoundTrip(t *testing.T) {
	_, srv := newFakeMirror(t)
	a := New(srv.URL+"/mise", testToken).Async()
	ctx := context.Background()

	created := <-a.CreateDevice(ctx, device.ModelLibraV0, device.DefaultConfig())
	if created.Err != nil {
		t.Fatalf("CreateDevice() error = %v", created.Err)
	}

	cfg := device.DefaultConfig()
	cfg.Offset = -3
	if res := <-a.UpdateConfig(ctx, created.Value, cfg); res.Err != nil {
		t.Fatalf("UpdateConfig() error = %v", res.Err)
	}

	got := <-a.GetConfig(ctx, created.Value)
	if got.Err != nil {
		t.Fatalf("GetConfig() error = %v", got.Err)
	}
	if got.Value != cfg {
		t.Errorf("GetConfig() = %+v, want %+v", got.Value, cfg)
	}

	if res := <-a.SetAddress(ctx, created.Value, "10.1.1.1"); res.Err != nil {
		t.Fatalf("SetAddress() error = %v", res.Err)
	}
	addr := <-a.GetAddress(ctx, created.Value)
	if addr.Err != nil || addr.Value != "10.1.1.1" {
		t.Errorf("GetAddress() = %q, %v", addr.Value, addr.Err)
	}
}

func TestAsyncClient_DeliversOnceAndCloses(t *testing.T) {
	_, srv := newFakeMirror(t)
	a := New(srv.URL+"/mise", testToken).Async()

	ch := a.GetConfig(context.Background(), device.Identity{Model: device.ModelLibraV0, Serial: "404"})
	res, ok := <-ch
	if !ok {
		t.Fatal("channel closed before delivering a result")
	}
	if status, _ := registry.StatusOf(res.Err); status != http.StatusNotFound {
		t.Errorf("GetConfig() error = %v, want BackendError{404}", res.Err)
	}
	if _, ok := <-ch; ok {
		t.Error("channel delivered a second result")
	}
}

func TestAsyncClient_Cancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	ch := New(srv.URL, testToken).Async().GetConfig(ctx, device.Identity{Model: device.ModelLibraV0, Serial: "1"})
	cancel()

	select {
	case res := <-ch:
		if !errors.Is(res.Err, registry.ErrTransport) || !errors.Is(res.Err, context.Canceled) {
			t.Errorf("GetConfig() error = %v, want transport error wrapping %v", res.Err, context.Canceled)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled call did not resume")
	}
}

func TestPullAsync(t *testing.T) {
	m, srv := newFakeMirror(t)
	id := device.Identity{Model: device.ModelIchibuV1, Serial: "3"}
	m.configs[id] = device.DefaultConfig()

	res := <-PullAsync(context.Background(), srv.URL+"/export", id)
	if res.Err != nil {
		t.Fatalf("PullAsync() error = %v", res.Err)
	}
	if res.Value.Identity != id {
		t.Errorf("PullAsync().Identity = %v, want %v", res.Value.Identity, id)
	}
}
