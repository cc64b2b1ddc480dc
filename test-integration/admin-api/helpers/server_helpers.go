// Package helpers provides shared utilities for the admin API integration tests.
package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/gomega"

	v1 "github.com/verinode/token-registry-server/internal/api/v1"
	registryapp "github.com/verinode/token-registry-server/internal/app"
	"github.com/verinode/token-registry-server/internal/config"
	"github.com/verinode/token-registry-server/internal/tokens"
)

// AdminServerConfig holds the pieces needed to render a server config file.
type AdminServerConfig struct {
	// ConnStr is the Postgres URL of the test database
	ConnStr string

	// Workers caps concurrent request execution; 1 matches the production
	// default
	Workers int

	// Realm is reported in authentication challenges
	Realm string

	// Secret signs admin credentials
	Secret string
}

// WriteServerConfig renders a config file plus its secret files into dir and
// returns the config path. Secrets go into files rather than the
// environment, so parallel suites cannot trample each other.
func WriteServerConfig(dir string, cfg AdminServerConfig) string {
	parsed, err := url.Parse(cfg.ConnStr)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	password, _ := parsed.User.Password()
	passwordFile := filepath.Join(dir, "db-password")
	gomega.Expect(os.WriteFile(passwordFile, []byte(password), 0o600)).To(gomega.Succeed())

	secretFile := filepath.Join(dir, "auth-secret")
	gomega.Expect(os.WriteFile(secretFile, []byte(cfg.Secret), 0o600)).To(gomega.Succeed())

	port := 5432
	if parsed.Port() != "" {
		_, err := fmt.Sscanf(parsed.Port(), "%d", &port)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
	}

	configContent := fmt.Sprintf(`server:
  workers: %d

auth:
  realm: %s
  secretFile: %s

database:
  host: %s
  port: %d
  user: %s
  passwordFile: %s
  database: %s
  sslMode: disable
`,
		cfg.Workers,
		cfg.Realm,
		secretFile,
		parsed.Hostname(),
		port,
		parsed.User.Username(),
		passwordFile,
		strings.TrimPrefix(parsed.Path, "/"),
	)

	configPath := filepath.Join(dir, "config.yaml")
	gomega.Expect(os.WriteFile(configPath, []byte(configContent), 0o600)).To(gomega.Succeed())
	return configPath
}

// FreePort reserves an ephemeral port and returns it.
func FreePort() int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	defer func() {
		_ = l.Close()
	}()
	return l.Addr().(*net.TCPAddr).Port
}

// ServerTestHelper drives one admin server instance through a suite:
// start, readiness, authenticated requests, stop.
type ServerTestHelper struct {
	ctx        context.Context
	configPath string
	baseURL    string
	httpClient *http.Client
	app        *registryapp.RegistryApp
	port       int
	secret     []byte
}

// NewServerTestHelper prepares a helper bound to the given config and port.
// Nothing runs until StartServer.
func NewServerTestHelper(ctx context.Context, configPath string, port int, secret string) *ServerTestHelper {
	return &ServerTestHelper{
		ctx:        ctx,
		configPath: configPath,
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", port),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		port:   port,
		secret: []byte(secret),
	}
}

// StartServer builds the app from the config file and launches it in the
// background. Use WaitForServerReady before issuing requests.
func (s *ServerTestHelper) StartServer() error {
	cfg, err := config.LoadConfig(config.WithConfigPath(s.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app, err := registryapp.NewRegistryApp(s.ctx,
		registryapp.WithConfig(cfg),
		registryapp.WithAddress(fmt.Sprintf("127.0.0.1:%d", s.port)),
	)
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}

	s.app = app

	go func() {
		if err := app.Start(); err != nil {
			// A startup failure surfaces when the suite cannot connect.
			fmt.Fprintf(os.Stderr, "Server start failed: %v\n", err)
		}
	}()

	return nil
}

// StopServer drains in-flight requests and shuts the server down
func (s *ServerTestHelper) StopServer() error {
	if s.app != nil {
		return s.app.Stop(5 * time.Second)
	}
	return nil
}

// WaitForServerReady polls /health until the listener answers or the
// timeout expires.
func (s *ServerTestHelper) WaitForServerReady(timeout time.Duration) {
	gomega.Eventually(func() error {
		resp, err := s.httpClient.Get(s.baseURL + "/health")
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return nil
	}, timeout, 500*time.Millisecond).Should(gomega.Succeed(), "Server should be ready")
}

// MintCredential signs a credential for the given subject, valid for ttl
// from now, using the server's configured secret.
func (s *ServerTestHelper) MintCredential(subject string, ttl time.Duration) string {
	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return signed
}

func (s *ServerTestHelper) do(method, path, credential string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(s.ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	return s.httpClient.Do(req)
}

// RegisterToken makes a POST request to /tokens
func (s *ServerTestHelper) RegisterToken(credential string, body v1.RegisterTokenRequest) (*http.Response, error) {
	return s.do(http.MethodPost, "/tokens", credential, body)
}

// RegisterTokenRaw makes a POST request to /tokens with a raw body
func (s *ServerTestHelper) RegisterTokenRaw(credential, body string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.baseURL+"/tokens", strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
	return s.httpClient.Do(req)
}

// GetToken makes a GET request to /tokens/{id}
func (s *ServerTestHelper) GetToken(credential string, id uint16) (*http.Response, error) {
	return s.do(http.MethodGet, fmt.Sprintf("/tokens/%d", id), credential, nil)
}

// GetTokenPath makes a GET request to /tokens/{path} with an arbitrary path segment
func (s *ServerTestHelper) GetTokenPath(credential, path string) (*http.Response, error) {
	return s.do(http.MethodGet, "/tokens/"+path, credential, nil)
}

// ListTokens makes a GET request to /tokens
func (s *ServerTestHelper) ListTokens(credential string) (*http.Response, error) {
	return s.do(http.MethodGet, "/tokens", credential, nil)
}

// GetHealth probes /health without credentials
func (s *ServerTestHelper) GetHealth() (*http.Response, error) {
	return s.do(http.MethodGet, "/health", "", nil)
}

// GetBaseURL exposes the server root for requests built outside the helper
func (s *ServerTestHelper) GetBaseURL() string {
	return s.baseURL
}

// DecodeToken decodes a token record from the response body and closes it.
func DecodeToken(resp *http.Response) tokens.Token {
	defer func() {
		_ = resp.Body.Close()
	}()
	var tok tokens.Token
	gomega.Expect(json.NewDecoder(resp.Body).Decode(&tok)).To(gomega.Succeed())
	return tok
}

// DecodeTokenList decodes a token list from the response body and closes it.
func DecodeTokenList(resp *http.Response) []tokens.Token {
	defer func() {
		_ = resp.Body.Close()
	}()
	var list []tokens.Token
	gomega.Expect(json.NewDecoder(resp.Body).Decode(&list)).To(gomega.Succeed())
	return list
}

// ReadBody reads and closes the response body.
func ReadBody(resp *http.Response) string {
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(resp.Body)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return string(data)
}
