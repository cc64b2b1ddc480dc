package app

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/verinode/token-registry-server/internal/service/mocks"
)

// newTestApp wires a RegistryApp around a mocked service so no database is
// needed. The app is built through the same buildHTTPServer path production
// uses.
func newTestApp(t *testing.T, addr string) *RegistryApp {
	t.Helper()

	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockTokenRegistry(ctrl)
	cfg := createValidTestConfig()

	b := &builderState{
		config:         cfg,
		address:        addr,
		requestTimeout: 10 * time.Second,
		readTimeout:    10 * time.Second,
		writeTimeout:   15 * time.Second,
		idleTimeout:    60 * time.Second,
		authMiddleware: passthroughAuth,
	}

	server, err := buildHTTPServer(context.Background(), b, mockSvc)
	require.NoError(t, err)

	appCtx, cancel := context.WithCancel(context.Background())
	return &RegistryApp{
		config:     cfg,
		components: &Components{TokenService: mockSvc},
		httpServer: server,
		ctx:        appCtx,
		cancelFunc: cancel,
	}
}

// reserveAddr grabs an ephemeral port and frees it again so the server
// under test can bind a known address
func reserveAddr(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	return addr
}

// startApp runs Start in the background and blocks until the listener
// accepts connections
func startApp(t *testing.T, app *RegistryApp) <-chan error {
	t.Helper()

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start()
	}()

	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", app.httpServer.Addr, 50*time.Millisecond)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 20*time.Millisecond, "server never came up on %s", app.httpServer.Addr)

	return errChan
}

func TestRegistryApp_StartServesAndStops(t *testing.T) {
	t.Parallel()

	addr := reserveAddr(t)
	app := newTestApp(t, addr)
	errChan := startApp(t, app)

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, app.Stop(5*time.Second))

	select {
	case startErr := <-errChan:
		assert.NoError(t, startErr, "a server closed through Stop must not report an error")
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}

func TestRegistryApp_StopCancelsContext(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, reserveAddr(t))
	errChan := startApp(t, app)

	require.NoError(t, app.Stop(5*time.Second))
	<-errChan

	assert.ErrorIs(t, app.ctx.Err(), context.Canceled,
		"Stop must cancel the application context so owned resources are released")
}

func TestRegistryApp_StopWithoutStart(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, reserveAddr(t))

	require.NoError(t, app.Stop(time.Second))
	assert.ErrorIs(t, app.ctx.Err(), context.Canceled)
}

func TestRegistryApp_StopTwice(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, reserveAddr(t))
	errChan := startApp(t, app)

	require.NoError(t, app.Stop(5*time.Second))
	<-errChan

	// The second Stop shuts down an already closed server. It may report an
	// error but must not panic.
	assert.NotPanics(t, func() {
		_ = app.Stop(5 * time.Second)
	})
}

func TestRegistryApp_StopWithNilCancelFunc(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, reserveAddr(t))
	app.cancelFunc = nil

	require.NoError(t, app.Stop(time.Second))
}

func TestRegistryApp_Getters(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, ":8080")

	cfg := app.GetConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "token-registry", cfg.Auth.Realm)
	assert.Equal(t, 1, cfg.Server.GetWorkers())

	server := app.GetHTTPServer()
	require.NotNil(t, server)
	assert.Equal(t, ":8080", server.Addr)
}

func TestRegistryApp_StartFailsWhenPortTaken(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	app := newTestApp(t, listener.Addr().String())

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start()
	}()

	select {
	case startErr := <-errChan:
		require.Error(t, startErr)
		assert.Contains(t, startErr.Error(), "HTTP server failed")
	case <-time.After(5 * time.Second):
		_ = app.Stop(time.Second)
		t.Fatal("expected Start() to fail while the port is taken")
	}
}
