package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"verichain/internal/agent"
	"verichain/internal/agent/agenttest"
	"verichain/internal/binding"
	"verichain/internal/credential/issuance"
	"verichain/internal/credential/store"
	"verichain/internal/credential/verification"
	"verichain/internal/fingerprint"
	"verichain/internal/ledger/ledgertest"
	"verichain/internal/platform/health"
	"verichain/internal/session"
	httptransport "verichain/internal/transport/http"
	"verichain/pkg/platform/middleware/auth"
	request "verichain/pkg/platform/middleware/request"
)

const (
	// IssuerAddress is the initially active wallet identity and the only
	// authorized issuer on the in-process ledger.
	IssuerAddress = "0x1111111111111111111111111111111111111111"
	// HolderAddress is a second identity the wallet holds a key for.
	HolderAddress = "0x2222222222222222222222222222222222222222"

	jwtSecret = "e2e-secret"
)

// TestContext holds state between test steps
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte
	AccessToken      string
	Saved            map[string]string

	server  *httptest.Server
	adapter *agent.Adapter
}

// NewTestContext targets BASE_URL when set. Otherwise it starts the full
// router in-process over an in-memory wallet and registry.
func NewTestContext() *TestContext {
	tc := &TestContext{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Saved:      map[string]string{},
	}
	if baseURL := os.Getenv("BASE_URL"); baseURL != "" {
		tc.BaseURL = strings.TrimRight(baseURL, "/")
		return tc
	}
	tc.startInProcess()
	return tc
}

func (tc *TestContext) startInProcess() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	provider := agenttest.New(agent.Network{Name: "devnet", ChainID: 1337}, IssuerAddress)
	tc.adapter = agent.New(provider, agent.WithResubscribeBackoff(10*time.Millisecond))
	chain := ledgertest.NewChain(common.HexToAddress(IssuerAddress))
	sess := session.New(tc.adapter, binding.New(chain), session.WithLogger(logger))

	hasher, err := fingerprint.New(fingerprint.Keccak256)
	if err != nil {
		panic(err)
	}
	list := store.NewInMemoryStore(0)
	issuer := issuance.New(sess, hasher, issuance.WithCredentialList(list), issuance.WithLogger(logger))
	verifier := verification.New(sess, verification.WithLogger(logger))
	reconciler := store.NewReconciler(list, verifier, sess, store.WithLogger(logger))

	reg := prometheus.NewRegistry()
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         logger,
		Session:        httptransport.NewSessionHandler(sess, provider, logger),
		Credentials:    httptransport.NewCredentialHandler(issuer, verifier, list, reconciler, sess, logger),
		Health:         health.New("e2e"),
		Validator:      auth.NewHMACValidator(jwtSecret),
		Metrics:        request.NewMetrics(reg),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	tc.server = httptest.NewServer(router)
	tc.BaseURL = tc.server.URL
}

// Close stops the in-process server, if any.
func (tc *TestContext) Close() {
	if tc.server != nil {
		tc.server.Close()
	}
	if tc.adapter != nil {
		tc.adapter.Close()
	}
}

// MintToken returns an operator token accepted by the in-process server.
// Against BASE_URL it signs with E2E_JWT_SECRET.
func (tc *TestContext) MintToken(subject string) (string, error) {
	secret := jwtSecret
	if tc.server == nil {
		secret = os.Getenv("E2E_JWT_SECRET")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
}

// POST makes a POST request with the current access token, if any.
func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.do(http.MethodPost, path, body)
}

// POSTRaw sends body verbatim.
func (tc *TestContext) POSTRaw(path, body string) error {
	return tc.send(http.MethodPost, path, strings.NewReader(body))
}

// GET makes a GET request.
func (tc *TestContext) GET(path string) error {
	return tc.send(http.MethodGet, path, nil)
}

func (tc *TestContext) do(method, path string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	return tc.send(method, path, bytes.NewReader(data))
}

func (tc *TestContext) send(method, path string, body io.Reader) error {
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.AccessToken)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a field from the JSON response. Dotted paths
// descend into objects and numeric segments index arrays.
func (tc *TestContext) GetResponseField(path string) (interface{}, error) {
	var data interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	for _, seg := range strings.Split(path, ".") {
		switch node := data.(type) {
		case map[string]interface{}:
			v, ok := node[seg]
			if !ok {
				return nil, fmt.Errorf("field %s not found in response", path)
			}
			data = v
		case []interface{}:
			var i int
			if _, err := fmt.Sscanf(seg, "%d", &i); err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %s out of range in %s", seg, path)
			}
			data = node[i]
		default:
			return nil, fmt.Errorf("field %s not found in response", path)
		}
	}
	return data, nil
}

// Getter methods for step package interfaces

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}

func (tc *TestContext) SetAccessToken(token string) {
	tc.AccessToken = token
}

func (tc *TestContext) Save(key, value string) {
	tc.Saved[key] = value
}

func (tc *TestContext) Recall(key string) (string, bool) {
	v, ok := tc.Saved[key]
	return v, ok
}
