package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	gwconfig "restakevault/gateway/config"
	"restakevault/native/custodian"
	"restakevault/native/strategy"
	"restakevault/native/vault"
	"restakevault/state"
	"restakevault/storage"
)

var (
	testVaultAddr     = [20]byte{0x01}
	testOperatorAddr  = [20]byte{0x02}
	testTreasuryAddr  = [20]byte{0x03}
	testStrategyAddr  = [20]byte{0x04}
	testCustodianAddr = [20]byte{0x05}
	testAliceAddr     = [20]byte{0xaa}
)

func hexAddr(addr [20]byte) string {
	return fmt.Sprintf("0x%x", addr)
}

type testStack struct {
	server     *Server
	handler    http.Handler
	engine     *vault.Engine
	manager    *state.Manager
	collateral *state.CollateralLedger
	rewards    *state.RewardLedger
}

func newTestStack(t *testing.T, cfg gwconfig.Config) *testStack {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	collateral := state.NewCollateralLedger(manager)
	rewards := state.NewRewardLedger(manager)

	venue := strategy.NewVenue(testStrategyAddr)
	venue.SetState(manager)
	venue.SetCollateral(collateral)

	queue := custodian.NewQueue(testCustodianAddr)
	queue.SetState(manager)
	queue.SetCollateral(collateral)

	engine := vault.NewEngine(testVaultAddr)
	engine.SetState(manager)
	engine.SetCollaborators(collateral, rewards, venue, queue)
	engine.SetOperator(testOperatorAddr)
	engine.SetRewardSource(testTreasuryAddr)
	engine.SetStrategyAddress(testStrategyAddr)

	server := NewServer(engine, venue, queue, cfg, NewEventHub(), nil)
	return &testStack{
		server:     server,
		handler:    server.Router(),
		engine:     engine,
		manager:    manager,
		collateral: collateral,
		rewards:    rewards,
	}
}

func (s *testStack) call(t *testing.T, method string, params interface{}, headers map[string]string) (*httptest.ResponseRecorder, RPCResponse) {
	t.Helper()
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, req)

	var resp RPCResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	return recorder, resp
}

func TestHandleRejectsUnknownMethod(t *testing.T) {
	stack := newTestStack(t, gwconfig.Default())
	recorder, resp := stack.call(t, "vault_doesNotExist", nil, nil)
	require.Equal(t, http.StatusNotFound, recorder.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestHandleRejectsEmptyBody(t *testing.T) {
	stack := newTestStack(t, gwconfig.Default())
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(nil))
	recorder := httptest.NewRecorder()
	stack.handler.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestDepositAndQueryFlow(t *testing.T) {
	stack := newTestStack(t, gwconfig.Default())
	require.NoError(t, stack.collateral.Mint(testAliceAddr, big.NewInt(100)))

	_, resp := stack.call(t, "vault_deposit", map[string]string{
		"from":     hexAddr(testAliceAddr),
		"receiver": hexAddr(testAliceAddr),
		"assets":   "100",
	}, nil)
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "100", result["shares"])

	_, resp = stack.call(t, "vault_totalShares", nil, nil)
	require.Nil(t, resp.Error)
	result, ok = resp.Result.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "100", result["totalShares"])

	_, resp = stack.call(t, "vault_balanceOf", map[string]string{
		"address": hexAddr(testAliceAddr),
	}, nil)
	require.Nil(t, resp.Error)
	result, ok = resp.Result.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "100", result["shares"])
}

func TestRedeemReportsWithdrawalsDisabled(t *testing.T) {
	stack := newTestStack(t, gwconfig.Default())
	_, resp := stack.call(t, "vault_redeem", map[string]string{
		"caller": hexAddr(testAliceAddr),
		"amount": "10",
	}, nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeServerError, resp.Error.Code)
	require.Contains(t, resp.Error.Message, "disabled")
}

func TestDepositRejectsMalformedParams(t *testing.T) {
	stack := newTestStack(t, gwconfig.Default())
	_, resp := stack.call(t, "vault_deposit", map[string]string{
		"from":     "not-an-address",
		"receiver": hexAddr(testAliceAddr),
		"assets":   "100",
	}, nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestPrivilegedMethodRequiresToken(t *testing.T) {
	cfg := gwconfig.Default()
	cfg.Auth = gwconfig.AuthConfig{Enabled: true, HMACSecret: "rpc-test-secret"}
	stack := newTestStack(t, cfg)

	recorder, resp := stack.call(t, "vault_notifyRewardAmount", map[string]string{
		"caller": hexAddr(testOperatorAddr),
		"amount": "1000",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestPrivilegedMethodAcceptsScopedToken(t *testing.T) {
	cfg := gwconfig.Default()
	cfg.Auth = gwconfig.AuthConfig{Enabled: true, HMACSecret: "rpc-test-secret"}
	stack := newTestStack(t, cfg)
	require.NoError(t, stack.rewards.Mint(testTreasuryAddr, big.NewInt(1_000_000)))
	stack.engine.SetRewardsDuration(1000)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp":   time.Now().Add(time.Hour).Unix(),
		"scope": ScopeOperate,
	})
	signed, err := token.SignedString([]byte("rpc-test-secret"))
	require.NoError(t, err)

	_, resp := stack.call(t, "vault_notifyRewardAmount", map[string]string{
		"caller": hexAddr(testOperatorAddr),
		"amount": "1000000",
	}, map[string]string{"Authorization": "Bearer " + signed})
	require.Nil(t, resp.Error)
}

func TestRateLimitedMethodReturns429(t *testing.T) {
	cfg := gwconfig.Default()
	cfg.RateLimits = []gwconfig.RateLimitConfig{{
		ID:                "query",
		RequestsPerMinute: 1,
		Burst:             1,
		Methods:           []string{"vault_totalShares"},
	}}
	stack := newTestStack(t, cfg)
	headers := map[string]string{"X-Real-IP": "198.51.100.9"}

	recorder, _ := stack.call(t, "vault_totalShares", nil, headers)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder, resp := stack.call(t, "vault_totalShares", nil, headers)
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeRateLimited, resp.Error.Code)
}

func TestRequestIDEchoedInResponse(t *testing.T) {
	stack := newTestStack(t, gwconfig.Default())
	recorder, _ := stack.call(t, "vault_totalShares", nil, map[string]string{"X-Request-ID": "req-42"})
	require.Equal(t, "req-42", recorder.Header().Get("X-Request-ID"))

	recorder, _ = stack.call(t, "vault_totalShares", nil, nil)
	require.NotEmpty(t, recorder.Header().Get("X-Request-ID"))
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	stack := newTestStack(t, gwconfig.Default())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	recorder := httptest.NewRecorder()
	stack.handler.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	recorder = httptest.NewRecorder()
	stack.handler.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)
}
