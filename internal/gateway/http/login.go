package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/denkrupka/portalgate/internal/gateway/service"
	"github.com/denkrupka/portalgate/internal/gateway/upstream"
	"github.com/denkrupka/portalgate/pkg/gatesdk"
	"github.com/denkrupka/portalgate/pkg/httpx"
	"github.com/denkrupka/portalgate/pkg/slogx"
)

// LoginHandler handles the three-step login flow: credentials, SMS code,
// and resend.
type LoginHandler struct {
	Gateway *service.Gateway
}

// HandleLogin handles POST /v1/login.
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req gatesdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.Username == "" || req.Password == "" {
		gatesdk.ErrInvalidRequest.WithDescription("username and password are required").WriteError(w)
		return
	}

	result, err := h.Gateway.Login(ctx, req.Username, req.Password)
	if err != nil {
		log.Warn("login attempt failed", "user", req.Username, "err", err)
		writeLoginError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse(result))
}

// HandleCode handles POST /v1/login/code.
func (h *LoginHandler) HandleCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req gatesdk.CodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.TempID == "" || req.Code == "" {
		gatesdk.ErrInvalidRequest.WithDescription("tempId and code are required").WriteError(w)
		return
	}

	result, err := h.Gateway.SubmitCode(ctx, req.TempID, req.Code)
	if err != nil {
		log.Warn("code submission failed", "challenge_id", req.TempID, "err", err)
		writeLoginError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse(result))
}

// HandleResend handles POST /v1/login/resend.
func (h *LoginHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req gatesdk.ResendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.TempID == "" {
		gatesdk.ErrInvalidRequest.WithDescription("tempId is required").WriteError(w)
		return
	}

	info, err := h.Gateway.Resend(ctx, req.TempID)
	if err != nil {
		log.Warn("resend failed", "challenge_id", req.TempID, "err", err)
		writeLoginError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, gatesdk.ResendResponse{
		TempID:      info.TempID,
		WaitSeconds: info.WaitSeconds,
		Message:     info.Message,
	})
}

func loginResponse(result *service.LoginResult) gatesdk.LoginResponse {
	resp := gatesdk.LoginResponse{
		Authenticated: result.Authenticated,
		SessionID:     result.SessionID,
	}
	if result.Authenticated {
		resp.Profile = &gatesdk.Profile{
			UserName:     result.Profile.UserName,
			Email:        result.Profile.Email,
			CustomerName: result.Profile.CustomerName,
			CustomerID:   result.Profile.CustomerID,
			PriceTier:    result.Profile.PriceTier,
		}
	}
	if sf := result.SecondFactor; sf != nil {
		resp.SecondFactor = &gatesdk.SecondFactor{
			TempID:      sf.TempID,
			CodeLength:  sf.CodeLength,
			WaitSeconds: sf.WaitSeconds,
			Message:     sf.Message,
		}
	}
	return resp
}

// writeLoginError maps service and upstream failures onto the API error
// vocabulary.
func writeLoginError(w http.ResponseWriter, err error) {
	var loginErr *service.LoginFailedError
	var codeErr *service.InvalidCodeError

	switch {
	case errors.Is(err, service.ErrChallengeNotFound):
		gatesdk.ErrChallengeExpired.WriteError(w)
	case errors.As(err, &loginErr):
		gatesdk.ErrLoginFailed.WithDescription(loginErr.Error()).WriteError(w)
	case errors.As(err, &codeErr):
		gatesdk.ErrInvalidCode.WithDescription(codeErr.Error()).WriteError(w)
	default:
		writeUpstreamError(w, err)
	}
}

// writeUpstreamError maps transport-level failures against the portal.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var netErr *upstream.NetworkError
	var statusErr *upstream.StatusError

	switch {
	case errors.As(err, &netErr) && netErr.Timeout:
		gatesdk.ErrUpstreamTimeout.WriteError(w)
	case errors.As(err, &netErr):
		gatesdk.ErrUpstreamFailure.WriteError(w)
	case errors.As(err, &statusErr):
		gatesdk.ErrUpstreamFailure.WithDescription(statusErr.Error()).WriteError(w)
	default:
		gatesdk.ErrServerError.WriteError(w)
	}
}
