// Package httpapi exposes the custodial wallet REST API. Handlers stay
// thin: decode, call a service, map errors to status codes.
package httpapi

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/evmkeeper/custodial-wallet/internal/errs"
	"github.com/evmkeeper/custodial-wallet/internal/service"
)

// Server wires services into HTTP handlers.
type Server struct {
	registry  service.WalletRegistry
	coord     service.Coordinator
	verifyKey *rsa.PublicKey
	log       *zap.Logger
}

// New constructs the API server with injected services.
func New(registry service.WalletRegistry, coord service.Coordinator, verifyKey *rsa.PublicKey, log *zap.Logger) *Server {
	return &Server{registry: registry, coord: coord, verifyKey: verifyKey, log: log}
}

// Routes builds the router with logging, recovery and per-route auth.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(Recover(s.log), Logging(s.log))

	auth := Auth(s.verifyKey)
	r.Route("/custodial", func(r chi.Router) {
		r.With(auth).Get("/wallets", s.handleListWallets)
		r.With(auth).Post("/wallet", s.handleCreateWallet)
		r.Get("/wallet/balance/{chainId}/{address}", s.handleGetBalance)
		r.With(auth).Post("/wallet/signMessage", s.handleSignMessage)
		r.With(auth).Post("/wallet/sendTransaction", s.handleSendTransaction)
		r.With(auth).Get("/wallet/messages/{address}", s.handleMessageHistory)
		r.Get("/wallet/transactions/{chainId}/{address}", s.handleTransactionHistory)
	})
	return r
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no auth")
		return
	}
	out, err := s.registry.ListWallets(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no auth")
		return
	}
	out, err := s.registry.CreateWallet(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	chainID, err := strconv.ParseUint(chi.URLParam(r, "chainId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad request", "chainId must be an integer")
		return
	}
	out, err := s.coord.GetBalance(r.Context(), chainID, chi.URLParam(r, "address"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type signMessageRequest struct {
	Address string `json:"address"`
	Message string `json:"message"`
}

func (s *Server) handleSignMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no auth")
		return
	}
	var req signMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" {
		writeError(w, http.StatusBadRequest, "bad request", "address and message are required")
		return
	}
	out, err := s.coord.SignMessage(r.Context(), userID, req.Address, req.Message)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

type sendTransactionRequest struct {
	ChainID     uint64  `json:"chainId"`
	Address     string  `json:"address"`
	To          string  `json:"to"`
	AmountInEth float64 `json:"amountInEth"`
}

func (s *Server) handleSendTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no auth")
		return
	}
	var req sendTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" || req.To == "" {
		writeError(w, http.StatusBadRequest, "bad request", "chainId, address, to and amountInEth are required")
		return
	}
	out, err := s.coord.SendTransaction(r.Context(), userID, req.ChainID, req.Address, req.To, req.AmountInEth)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleMessageHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no auth")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	out, err := s.coord.GetMessageHistory(r.Context(), userID, chi.URLParam(r, "address"), page, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTransactionHistory(w http.ResponseWriter, r *http.Request) {
	chainID, err := strconv.ParseUint(chi.URLParam(r, "chainId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad request", "chainId must be an integer")
		return
	}
	out, err := s.coord.GetTransactionHistory(r.Context(), chainID, chi.URLParam(r, "address"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// writeServiceError maps domain errors to transport status codes. Nothing is
// swallowed: unclassified errors become a 500 with a generic body and the
// cause logged.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrWalletNotFound):
		writeError(w, http.StatusNotFound, "Wallet not found", err.Error())
	case errors.Is(err, errs.ErrInvalidChainID):
		writeError(w, http.StatusBadRequest, "Invalid chain ID", err.Error())
	case errors.Is(err, errs.ErrHasPendingTransaction):
		writeError(w, http.StatusBadRequest, "HasPendingTransaction", err.Error())
	case errors.Is(err, errs.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, "Insufficient funds", err.Error())
	case errors.Is(err, errs.ErrRateLimited):
		writeError(w, http.StatusBadRequest, "Interaction too frequent", err.Error())
	default:
		s.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorBody{Error: kind, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
