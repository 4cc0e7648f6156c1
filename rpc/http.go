package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	gwconfig "restakevault/gateway/config"
	"restakevault/gateway/middleware"
	"restakevault/native/custodian"
	"restakevault/native/strategy"
	"restakevault/native/vault"
	"restakevault/observability/metrics"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeRateLimited    = -32020
)

// ScopeOperate guards privileged vault methods behind JWT auth.
const ScopeOperate = "vault.operate"

// Server exposes the vault engine over JSON-RPC.
type Server struct {
	engine *vault.Engine
	venue  *strategy.Venue
	queue  *custodian.Queue

	logger  *slog.Logger
	auth    *middleware.Authenticator
	limiter *middleware.RateLimiter
	obs     *middleware.Observability
	hub     *EventHub
	metrics *metrics.VaultMetrics

	rateBuckets map[string]string
}

// NewServer wires the RPC surface from the engine, its collaborator modules
// and the gateway configuration.
func NewServer(engine *vault.Engine, venue *strategy.Venue, queue *custodian.Queue, cfg gwconfig.Config, hub *EventHub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if hub == nil {
		hub = NewEventHub()
	}

	limits := make(map[string]middleware.RateLimit, len(cfg.RateLimits))
	buckets := make(map[string]string)
	for _, entry := range cfg.RateLimits {
		limits[entry.ID] = middleware.RateLimit{
			RequestsPerMinute: entry.RequestsPerMinute,
			Burst:             entry.Burst,
		}
		for _, method := range entry.Methods {
			buckets[strings.TrimSpace(method)] = entry.ID
		}
	}

	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName:   cfg.Observability.ServiceName,
		MetricsPrefix: cfg.Observability.MetricsPrefix,
		LogRequests:   cfg.Observability.LogRequests,
		Enabled:       cfg.Observability.Metrics || cfg.Observability.Tracing,
	}, logger)

	return &Server{
		engine:      engine,
		venue:       venue,
		queue:       queue,
		logger:      logger,
		auth:        NewAuthenticatorFromConfig(cfg.Auth, logger),
		limiter:     middleware.NewRateLimiter(limits),
		obs:         obs,
		hub:         hub,
		metrics:     metrics.Vault(),
		rateBuckets: buckets,
	}
}

// NewAuthenticatorFromConfig adapts the gateway auth settings to the
// middleware authenticator.
func NewAuthenticatorFromConfig(cfg gwconfig.AuthConfig, logger *slog.Logger) *middleware.Authenticator {
	return middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:    cfg.Enabled,
		HMACSecret: cfg.HMACSecret,
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		ScopeClaim: cfg.ScopeClaim,
		ClockSkew:  cfg.ClockSkew,
	}, logger)
}

// Hub returns the event hub backing the websocket stream.
func (s *Server) Hub() *EventHub {
	return s.hub
}

// Router assembles the chi router serving RPC, metrics, health and the
// websocket event stream.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodPost, "/", s.obs.Middleware("rpc")(http.HandlerFunc(s.handle)))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/metrics/gateway", s.obs.MetricsHandler())
	r.Get("/ws/events", s.handleEventsWS)
	return otelhttp.NewHandler(r, "vault-rpc")
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string, cfg gwconfig.Config) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("json-rpc server listening", "addr", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// RPCRequest is a JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError carries a JSON-RPC error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

var privilegedMethods = map[string]struct{}{
	"vault_delegateToStrategy":          {},
	"vault_notifyRewardAmount":          {},
	"vault_initiateCustodianWithdrawal": {},
	"vault_claimCustodianWithdrawal":    {},
	"vault_initiateStrategyWithdrawal":  {},
	"vault_claimStrategyWithdrawal":     {},
	"custodian_registerWithdrawal":      {},
	"strategy_creditYield":              {},
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	if bucket, ok := s.rateBuckets[req.Method]; ok {
		if !s.limiter.Allow(bucket, r) {
			writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", nil)
			return
		}
	}
	if _, privileged := privilegedMethods[req.Method]; privileged {
		if err := s.auth.Authorize(r, ScopeOperate); err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, middleware.ErrInsufficientScope) {
				status = http.StatusForbidden
			}
			writeError(w, status, req.ID, codeUnauthorized, err.Error(), nil)
			return
		}
	}

	s.logger.Debug("rpc request", "method", req.Method, "request_id", requestID)

	switch req.Method {
	case "vault_deposit":
		s.handleDeposit(w, req)
	case "vault_transferShares":
		s.handleTransferShares(w, req)
	case "vault_redeem":
		s.handleRedeem(w, req)
	case "vault_withdraw":
		s.handleWithdraw(w, req)
	case "vault_delegateToStrategy":
		s.handleDelegateToStrategy(w, req)
	case "vault_initiateCustodianWithdrawal":
		s.handleInitiateCustodianWithdrawal(w, req)
	case "vault_claimCustodianWithdrawal":
		s.handleClaimCustodianWithdrawal(w, req)
	case "vault_initiateStrategyWithdrawal":
		s.handleInitiateStrategyWithdrawal(w, req)
	case "vault_claimStrategyWithdrawal":
		s.handleClaimStrategyWithdrawal(w, req)
	case "vault_notifyRewardAmount":
		s.handleNotifyRewardAmount(w, req)
	case "vault_claimRewards":
		s.handleClaimRewards(w, req)
	case "vault_totalAssets":
		s.handleTotalAssets(w, req)
	case "vault_totalShares":
		s.handleTotalShares(w, req)
	case "vault_pricePerShare":
		s.handlePricePerShare(w, req)
	case "vault_externalLockedAmount":
		s.handleExternalLockedAmount(w, req)
	case "vault_balanceOf":
		s.handleBalanceOf(w, req)
	case "vault_pendingPoints":
		s.handlePendingPoints(w, req)
	case "vault_earned":
		s.handleEarned(w, req)
	case "vault_rewardPerToken":
		s.handleRewardPerToken(w, req)
	case "custodian_registerWithdrawal":
		s.handleCustodianRegister(w, req)
	case "strategy_creditYield":
		s.handleStrategyCreditYield(w, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
	}
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected a single params object, got %d", len(req.Params))
	}
	decoder := json.NewDecoder(bytes.NewReader(req.Params[0]))
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}
