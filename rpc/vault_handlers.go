package rpc

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"net/http"

	"restakevault/config"
	"restakevault/native/vault"
)

type depositParams struct {
	From     string `json:"from"`
	Receiver string `json:"receiver"`
	Assets   string `json:"assets"`
}

type transferSharesParams struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Shares string `json:"shares"`
}

type redeemParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type delegateParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type notifyRewardParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type custodianBatchParams struct {
	Caller string   `json:"caller"`
	IDs    []string `json:"ids"`
}

type custodianRegisterParams struct {
	ID          string `json:"id"`
	Beneficiary string `json:"beneficiary"`
	Amount      string `json:"amount"`
}

type strategyInitiateParams struct {
	Caller string `json:"caller"`
	Shares string `json:"shares"`
}

type descriptorPayload struct {
	Staker     string   `json:"staker"`
	Withdrawer string   `json:"withdrawer"`
	Nonce      uint64   `json:"nonce"`
	StartTime  uint64   `json:"startTime"`
	Strategies []string `json:"strategies"`
	Shares     []string `json:"shares"`
}

type strategyClaimParams struct {
	Caller          string            `json:"caller"`
	Descriptor      descriptorPayload `json:"descriptor"`
	Tokens          []string          `json:"tokens"`
	MiddlewareIndex uint64            `json:"middlewareIndex"`
}

type accountParams struct {
	Address string `json:"address"`
}

type creditYieldParams struct {
	Source string `json:"source"`
	Amount string `json:"amount"`
}

type withdrawalTicketResult struct {
	Root       string            `json:"root"`
	Descriptor descriptorPayload `json:"descriptor"`
}

func parseAmount(field, raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("%s must be a base-10 integer", field)
	}
	return value, nil
}

func descriptorFromPayload(payload descriptorPayload) (*vault.WithdrawalDescriptor, error) {
	staker, err := config.ParseAddress(payload.Staker)
	if err != nil {
		return nil, err
	}
	withdrawer, err := config.ParseAddress(payload.Withdrawer)
	if err != nil {
		return nil, err
	}
	descriptor := &vault.WithdrawalDescriptor{
		Staker:     staker,
		Withdrawer: withdrawer,
		Nonce:      payload.Nonce,
		StartTime:  payload.StartTime,
	}
	for _, raw := range payload.Strategies {
		id, err := config.ParseStrategyID(raw)
		if err != nil {
			return nil, err
		}
		descriptor.Strategies = append(descriptor.Strategies, id)
	}
	for i, raw := range payload.Shares {
		shares, err := parseAmount(fmt.Sprintf("shares[%d]", i), raw)
		if err != nil {
			return nil, err
		}
		descriptor.Shares = append(descriptor.Shares, shares)
	}
	return descriptor, nil
}

func descriptorToPayload(descriptor *vault.WithdrawalDescriptor) descriptorPayload {
	payload := descriptorPayload{
		Staker:     "0x" + hex.EncodeToString(descriptor.Staker[:]),
		Withdrawer: "0x" + hex.EncodeToString(descriptor.Withdrawer[:]),
		Nonce:      descriptor.Nonce,
		StartTime:  descriptor.StartTime,
	}
	for _, id := range descriptor.Strategies {
		payload.Strategies = append(payload.Strategies, "0x"+hex.EncodeToString(id[:]))
	}
	for _, shares := range descriptor.Shares {
		payload.Shares = append(payload.Shares, shares.String())
	}
	return payload
}

func (s *Server) writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	writeError(w, http.StatusOK, id, codeServerError, err.Error(), nil)
}

func (s *Server) publishTotals() {
	assets, err := s.engine.TotalAssets()
	if err != nil {
		return
	}
	shares, err := s.engine.TotalShares()
	if err != nil {
		return
	}
	price := 0.0
	if pps, err := s.engine.PricePerShare(); err == nil {
		price, _ = new(big.Float).SetInt(pps).Float64()
	}
	assetsF, _ := new(big.Float).SetInt(assets).Float64()
	sharesF, _ := new(big.Float).SetInt(shares).Float64()
	s.metrics.SetTotals(assetsF, sharesF, price)
}

func (s *Server) handleDeposit(w http.ResponseWriter, req *RPCRequest) {
	var params depositParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	from, err := config.ParseAddress(params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	receiver, err := config.ParseAddress(params.Receiver)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	assets, err := parseAmount("assets", params.Assets)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	shares, err := s.engine.Deposit(from, receiver, assets)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	assetsF, _ := new(big.Float).SetInt(assets).Float64()
	s.metrics.ObserveDeposit(assetsF)
	s.publishTotals()
	writeResult(w, req.ID, map[string]string{"shares": shares.String()})
}

func (s *Server) handleTransferShares(w http.ResponseWriter, req *RPCRequest) {
	var params transferSharesParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	from, err := config.ParseAddress(params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	to, err := config.ParseAddress(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	shares, err := parseAmount("shares", params.Shares)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.TransferShares(from, to, shares); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleRedeem(w http.ResponseWriter, req *RPCRequest) {
	var params redeemParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if _, err := s.engine.Redeem(caller, amount); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, req *RPCRequest) {
	var params redeemParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if _, err := s.engine.Withdraw(caller, amount); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleDelegateToStrategy(w http.ResponseWriter, req *RPCRequest) {
	var params delegateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	venueShares, err := s.engine.DelegateToStrategy(caller, amount)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	s.publishTotals()
	writeResult(w, req.ID, map[string]string{"strategyShares": venueShares.String()})
}

func (s *Server) handleInitiateCustodianWithdrawal(w http.ResponseWriter, req *RPCRequest) {
	var params custodianBatchParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ids, err := parseRequestIDs(params.IDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.InitiateCustodianWithdrawal(caller, ids); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]int{"initiated": len(ids)})
}

func (s *Server) handleClaimCustodianWithdrawal(w http.ResponseWriter, req *RPCRequest) {
	var params custodianBatchParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ids, err := parseRequestIDs(params.IDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.ClaimCustodianWithdrawal(caller, ids); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	s.metrics.ObserveWithdrawalClaim("custodian")
	s.publishTotals()
	writeResult(w, req.ID, map[string]int{"claimed": len(ids)})
}

func parseRequestIDs(raw []string) ([]*big.Int, error) {
	ids := make([]*big.Int, 0, len(raw))
	for i, entry := range raw {
		id, err := parseAmount(fmt.Sprintf("ids[%d]", i), entry)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Server) handleInitiateStrategyWithdrawal(w http.ResponseWriter, req *RPCRequest) {
	var params strategyInitiateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	shares, err := parseAmount("shares", params.Shares)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	descriptor, root, err := s.engine.InitiateStrategyWithdrawal(caller, shares)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, withdrawalTicketResult{
		Root:       "0x" + hex.EncodeToString(root[:]),
		Descriptor: descriptorToPayload(descriptor),
	})
}

func (s *Server) handleClaimStrategyWithdrawal(w http.ResponseWriter, req *RPCRequest) {
	var params strategyClaimParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	descriptor, err := descriptorFromPayload(params.Descriptor)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tokens := make([][20]byte, 0, len(params.Tokens))
	for _, raw := range params.Tokens {
		token, err := config.ParseAddress(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		tokens = append(tokens, token)
	}
	if err := s.engine.ClaimStrategyWithdrawal(caller, descriptor, tokens, params.MiddlewareIndex); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	s.metrics.ObserveWithdrawalClaim("strategy")
	s.publishTotals()
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleNotifyRewardAmount(w http.ResponseWriter, req *RPCRequest) {
	var params notifyRewardParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.NotifyRewardAmount(caller, amount); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	s.metrics.ObserveRewardsFunded()
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleClaimRewards(w http.ResponseWriter, req *RPCRequest) {
	var params accountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := config.ParseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	paid, err := s.engine.ClaimRewards(addr)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	if paid.Sign() > 0 {
		paidF, _ := new(big.Float).SetInt(paid).Float64()
		s.metrics.ObserveRewardClaim(paidF)
	}
	writeResult(w, req.ID, map[string]string{"paid": paid.String()})
}

func (s *Server) handleTotalAssets(w http.ResponseWriter, req *RPCRequest) {
	total, err := s.engine.TotalAssets()
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"totalAssets": total.String()})
}

func (s *Server) handleTotalShares(w http.ResponseWriter, req *RPCRequest) {
	total, err := s.engine.TotalShares()
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"totalShares": total.String()})
}

func (s *Server) handlePricePerShare(w http.ResponseWriter, req *RPCRequest) {
	price, err := s.engine.PricePerShare()
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"pricePerShare": price.String()})
}

func (s *Server) handleExternalLockedAmount(w http.ResponseWriter, req *RPCRequest) {
	locked, err := s.engine.ExternalLockedAmount()
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"externalLocked": locked.String()})
}

func (s *Server) handleBalanceOf(w http.ResponseWriter, req *RPCRequest) {
	var params accountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := config.ParseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	balance, err := s.engine.BalanceOf(addr)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"shares": balance.String()})
}

func (s *Server) handlePendingPoints(w http.ResponseWriter, req *RPCRequest) {
	var params accountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := config.ParseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	points, err := s.engine.PendingPoints(addr)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"points": points.String()})
}

func (s *Server) handleEarned(w http.ResponseWriter, req *RPCRequest) {
	var params accountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := config.ParseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	earned, err := s.engine.Earned(addr)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"earned": earned.String()})
}

func (s *Server) handleRewardPerToken(w http.ResponseWriter, req *RPCRequest) {
	rpt, err := s.engine.RewardPerToken()
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"rewardPerToken": rpt.String()})
}

func (s *Server) handleCustodianRegister(w http.ResponseWriter, req *RPCRequest) {
	var params custodianRegisterParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := parseAmount("id", params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	beneficiary, err := config.ParseAddress(params.Beneficiary)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.queue.RegisterWithdrawal(id, beneficiary, amount); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleStrategyCreditYield(w http.ResponseWriter, req *RPCRequest) {
	var params creditYieldParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	source, err := config.ParseAddress(params.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.venue.CreditYield(source, amount); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	s.publishTotals()
	writeResult(w, req.ID, map[string]bool{"ok": true})
}
