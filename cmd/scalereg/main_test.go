package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/scale-registry/internal/api"
	"github.com/nerrad567/scale-registry/internal/auth"
	"github.com/nerrad567/scale-registry/internal/device"
	"github.com/nerrad567/scale-registry/internal/infrastructure/config"
	"github.com/nerrad567/scale-registry/internal/infrastructure/database"
	"github.com/nerrad567/scale-registry/internal/infrastructure/logging"
	"github.com/nerrad567/scale-registry/internal/infrastructure/mqtt"
	"github.com/nerrad567/scale-registry/internal/mirror"
	"github.com/nerrad567/scale-registry/internal/registry"
	"github.com/nerrad567/scale-registry/migrations"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// cli runs scalereg against a private registry file.
type cli struct {
	t        *testing.T
	registry string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("NO_COLOR", "1")
	t.Setenv(configEnv, filepath.Join(dir, "absent.yaml"))
	return &cli{t: t, registry: filepath.Join(dir, "scales.toml")}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--registry", c.registry}, args...)
	err := run(context.Background(), full, &stdout, &stderr)
	return stdout.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("scalereg %s error = %v", strings.Join(args, " "), err)
	}
	return out
}

func (c *cli) entries() []registry.Entry {
	c.t.Helper()
	var entries []registry.Entry
	if err := json.Unmarshal([]byte(c.mustRun("list", "--json")), &entries); err != nil {
		c.t.Fatalf("json.Unmarshal() error = %v", err)
	}
	return entries
}

// ============================================================================
// Local Registry Commands
// ============================================================================

func TestLocalLifecycle(t *testing.T) {
	c := newCLI(t)

	c.mustRun("init", "LibraV0-1")
	c.mustRun("add", "LibraV0-2", "--gain", "5", "--location", "pantry")
	c.mustRun("edit", "LibraV0-2", "--ingredient", "Sugar", "--heartbeat", "90s")

	var shown registry.Entry
	if err := json.Unmarshal([]byte(c.mustRun("show", "LibraV0-2", "--json")), &shown); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	want := device.DefaultConfig()
	want.Gain = 5
	want.Location = "pantry"
	want.Ingredient = "Sugar"
	want.HeartbeatPeriod = device.Duration(90 * time.Second)
	if shown.Config != want {
		t.Errorf("show config = %+v, want %+v", shown.Config, want)
	}

	if got := c.entries(); len(got) != 2 || got[0].Identity.String() != "LibraV0-1" {
		t.Fatalf("list = %+v, want LibraV0-1 then LibraV0-2", got)
	}

	c.mustRun("remove", "LibraV0-1")
	got := c.entries()
	if len(got) != 1 || got[0].Identity.String() != "LibraV0-2" {
		t.Errorf("list after remove = %+v", got)
	}

	out := c.mustRun("list")
	if !strings.Contains(out, "LibraV0-2") || !strings.Contains(out, "pantry") {
		t.Errorf("list table = %q", out)
	}
}

func TestLocalErrors(t *testing.T) {
	c := newCLI(t)

	if _, err := c.run("add", "LibraV0-1"); !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("add before init error = %v, want ErrNotFound", err)
	}

	c.mustRun("init")

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"init twice", []string{"init"}, registry.ErrAlreadyExists},
		{"bad identity", []string{"show", "Nope-1"}, device.ErrUnknownModel},
		{"missing record", []string{"show", "LibraV0-9"}, registry.ErrRecordNotFound},
		{"remove missing", []string{"remove", "LibraV0-9"}, registry.ErrRecordNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.run(tt.args...); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	c.mustRun("add", "LibraV0-1")
	before := c.mustRun("show", "LibraV0-1", "--json")
	if _, err := c.run("edit", "LibraV0-1"); !errors.Is(err, errNothingToChange) {
		t.Errorf("edit without flags error = %v, want %v", err, errNothingToChange)
	}
	if after := c.mustRun("show", "LibraV0-1", "--json"); after != before {
		t.Errorf("edit without flags changed the record:\n%s\n%s", before, after)
	}
}

func TestListEmpty(t *testing.T) {
	c := newCLI(t)
	c.mustRun("init")

	if out := c.mustRun("list", "--json"); strings.TrimSpace(out) != "[]" {
		t.Errorf("list --json = %q, want []", out)
	}
	if out := c.mustRun("list"); !strings.Contains(out, "No devices") {
		t.Errorf("list = %q", out)
	}
}

// ============================================================================
// Token Command
// ============================================================================

func TestToken(t *testing.T) {
	c := newCLI(t)
	t.Setenv("SCALEREG_JWT_SECRET", testSecret)

	out := c.mustRun("token", "line-2", "--role", "writer", "--ttl", "1h")
	claims, err := auth.ParseToken(strings.TrimSpace(out), []byte(testSecret))
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "line-2" || claims.Role != auth.RoleWriter {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := c.run("token", "line-2", "--role", "chef"); !errors.Is(err, auth.ErrUnknownRole) {
		t.Errorf("unknown role error = %v", err)
	}
}

func TestToken_ShortSecret(t *testing.T) {
	c := newCLI(t)
	t.Setenv("SCALEREG_JWT_SECRET", "short")

	if _, err := c.run("token", "line-2"); !errors.Is(err, auth.ErrSecretTooShort) {
		t.Errorf("error = %v, want ErrSecretTooShort", err)
	}
}

// ============================================================================
// Remote Commands
// ============================================================================

// startMirror serves an in-memory mirror and points the CLI at it.
func startMirror(t *testing.T, role auth.Role) *mirror.SQLiteRepository {
	t.Helper()

	db, err := database.Open(
		database.Config{Path: database.MemoryPath, BusyTimeout: 5},
		database.WithMigrations(migrations.FS, "."),
	)
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	repo := mirror.NewSQLiteRepository(db.DB)
	srv, err := api.New(api.Deps{
		Config:   config.APIConfig{BasePath: "/mise", PublicExport: true},
		Security: config.SecurityConfig{JWT: config.JWTConfig{Secret: testSecret}},
		Logger:   logging.Discard(),
		Repo:     repo,
	})
	if err != nil {
		t.Fatalf("api.New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	token, err := auth.GenerateToken("cli-test", role, []byte(testSecret), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	t.Setenv("SCALEREG_BACKEND_URL", ts.URL+"/mise")
	t.Setenv("SCALEREG_BACKEND_TOKEN", token)
	return repo
}

func TestRemoteRoundtrip(t *testing.T) {
	c := newCLI(t)
	repo := startMirror(t, auth.RoleWriter)
	c.mustRun("init")

	out := c.mustRun("remote", "create", "LibraV0", "--phidget-id", "716", "--save")
	if !strings.Contains(out, "LibraV0-1") {
		t.Errorf("remote create output = %q", out)
	}
	if got := c.entries(); len(got) != 1 || got[0].Config.PhidgetID != 716 {
		t.Fatalf("local registry after --save = %+v", got)
	}

	c.mustRun("remote", "put", "LibraV0-1", "--ingredient", "Rice")
	cfg, err := repo.Get(context.Background(), device.Identity{Model: device.ModelLibraV0, Serial: "1"})
	if err != nil {
		t.Fatalf("repo.Get() error = %v", err)
	}
	if cfg.Ingredient != "Rice" || cfg.PhidgetID != 716 {
		t.Errorf("mirror config = %+v", cfg)
	}

	var fetched registry.Entry
	if err := json.Unmarshal([]byte(c.mustRun("remote", "get", "LibraV0-1", "--json")), &fetched); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if fetched.Config != cfg {
		t.Errorf("remote get = %+v, want %+v", fetched.Config, cfg)
	}

	c.mustRun("remote", "address", "set", "LibraV0-1", "10.1.2.3")
	if out := c.mustRun("remote", "address", "get", "LibraV0-1"); strings.TrimSpace(out) != "10.1.2.3" {
		t.Errorf("remote address get = %q", out)
	}

	c.mustRun("pull", "LibraV0-1", "--save")
	if got := c.entries(); got[0].Config.Ingredient != "Rice" {
		t.Errorf("local record after pull --save = %+v", got[0].Config)
	}
}

func TestRemotePut_FromLocal(t *testing.T) {
	c := newCLI(t)
	repo := startMirror(t, auth.RoleWriter)

	id, err := repo.Create(context.Background(), device.ModelIchibuV1, device.DefaultConfig())
	if err != nil {
		t.Fatalf("repo.Create() error = %v", err)
	}
	c.mustRun("init")
	c.mustRun("add", id.String(), "--location", "walk-in")
	c.mustRun("remote", "put", id.String(), "--from-local")

	cfg, err := repo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("repo.Get() error = %v", err)
	}
	if cfg.Location != "walk-in" {
		t.Errorf("mirror location = %q, want walk-in", cfg.Location)
	}
}

func TestRemoteErrors(t *testing.T) {
	c := newCLI(t)
	startMirror(t, auth.RoleReader)

	_, err := c.run("remote", "create", "LibraV0")
	if status, _ := registry.StatusOf(err); status != http.StatusForbidden {
		t.Errorf("reader create error = %v, want 403", err)
	}

	_, err = c.run("remote", "get", "LibraV0-5")
	if status, _ := registry.StatusOf(err); status != http.StatusNotFound {
		t.Errorf("get missing error = %v, want 404", err)
	}

	t.Setenv("SCALEREG_BACKEND_TOKEN", "")
	if _, err := c.run("remote", "get", "LibraV0-5"); !errors.Is(err, registry.ErrEnvMissing) {
		t.Errorf("missing token error = %v, want ErrEnvMissing", err)
	}
}

// ============================================================================
// Feed and Serve
// ============================================================================

func TestFeedHandler(t *testing.T) {
	var out bytes.Buffer
	a := newApp(&out, &out)
	cfg, err := config.LoadOptional("")
	if err != nil {
		t.Fatalf("LoadOptional() error = %v", err)
	}
	a.cfg = cfg
	a.log = logging.Discard()

	store := registry.Open(filepath.Join(t.TempDir(), "scales.toml"))
	if err := store.Create(context.Background(), nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	handle := a.feedHandler(context.Background(), store)
	id := device.Identity{Model: device.ModelIchibuV2, Serial: "9"}

	first := device.DefaultConfig()
	if err := handle(mqtt.ConfigEvent{Device: id, Config: first}); err != nil {
		t.Fatalf("handler(add) error = %v", err)
	}
	second := first
	second.Ingredient = "Oats"
	if err := handle(mqtt.ConfigEvent{Device: id, Config: second}); err != nil {
		t.Fatalf("handler(edit) error = %v", err)
	}

	entry, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry.Config != second {
		t.Errorf("stored = %+v, want %+v", entry.Config, second)
	}
	if !strings.Contains(out.String(), "added") || !strings.Contains(out.String(), "updated") {
		t.Errorf("output = %q", out.String())
	}
}

func TestAddressHandler(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var out bytes.Buffer
	a := newApp(&out, &out)

	id := device.Identity{Model: device.ModelLibraV0, Serial: "3"}
	if err := a.addressHandler()(mqtt.AddressEvent{Device: id, Address: "10.0.0.9"}); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !strings.Contains(out.String(), "LibraV0-3") || !strings.Contains(out.String(), "10.0.0.9") {
		t.Errorf("output = %q", out.String())
	}
}

func TestMigrate(t *testing.T) {
	c := newCLI(t)
	t.Setenv("SCALEREG_DATABASE_PATH", filepath.Join(t.TempDir(), "mirror.db"))

	out := c.mustRun("migrate", "status")
	if strings.Count(out, "pending") != 2 || strings.Contains(out, "applied") {
		t.Errorf("migrate status (fresh) = %q, want two pending", out)
	}

	if out := c.mustRun("migrate", "up"); !strings.Contains(out, "Applied 2 migration(s)") {
		t.Errorf("migrate up = %q", out)
	}
	if out := c.mustRun("migrate", "status"); strings.Count(out, "applied") != 2 {
		t.Errorf("migrate status (migrated) = %q, want two applied", out)
	}

	if out := c.mustRun("migrate", "down"); !strings.Contains(out, "audit_logs") {
		t.Errorf("migrate down = %q, want audit_logs reverted", out)
	}
	if out := c.mustRun("migrate", "down"); !strings.Contains(out, "devices") {
		t.Errorf("migrate down = %q, want devices reverted", out)
	}
	if out := c.mustRun("migrate", "down"); !strings.Contains(out, "No migrations applied") {
		t.Errorf("migrate down (empty) = %q", out)
	}
}

func TestServe_RequiresSecret(t *testing.T) {
	c := newCLI(t)
	t.Setenv("SCALEREG_JWT_SECRET", "")

	if _, err := c.run("serve"); err == nil || !strings.Contains(err.Error(), "jwt.secret") {
		t.Errorf("serve error = %v, want jwt secret error", err)
	}
}

func TestServe_SeedAndShutdown(t *testing.T) {
	c := newCLI(t)
	c.mustRun("init", "LibraV0-4")

	port := freePort(t)
	t.Setenv("SCALEREG_JWT_SECRET", testSecret)
	t.Setenv("SCALEREG_DATABASE_PATH", filepath.Join(t.TempDir(), "mirror.db"))
	t.Setenv("SCALEREG_API_HOST", "127.0.0.1")
	t.Setenv("SCALEREG_API_PORT", fmt.Sprint(port))
	t.Setenv("SCALEREG_MQTT_ENABLED", "false")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		var stdout, stderr bytes.Buffer
		done <- run(ctx, []string{"--registry", c.registry, "serve", "--seed"}, &stdout, &stderr)
	}()

	base := fmt.Sprintf("http://127.0.0.1:%d/mise", port)
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	token, err := auth.GenerateToken("cli-test", auth.RoleReader, []byte(testSecret), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, base+"/LibraV0/4", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET seeded device error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET seeded device status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}
