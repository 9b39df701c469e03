package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/bizchat/bizchat-api/internal/model"
	"github.com/bizchat/bizchat-api/internal/session"
	"github.com/bizchat/bizchat-api/internal/usecase"
	"github.com/bizchat/bizchat-api/shared/provider"
	"github.com/bizchat/bizchat-api/shared/validator"
)

// identityProvider abstracts the external OAuth provider exchange.
type identityProvider interface {
	Authenticate(ctx context.Context, idToken string) (*provider.ExternalIdentity, error)
}

// AccountHandler exposes the account lifecycle over HTTP.
type AccountHandler struct {
	accountUsecase usecase.AccountUsecase
	provider       identityProvider
	sessions       *session.Issuer
	validate       *validator.Validator
	logger         *zerolog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(
	accountUsecase usecase.AccountUsecase,
	identityProvider identityProvider,
	sessions *session.Issuer,
	validate *validator.Validator,
	logger *zerolog.Logger,
) *AccountHandler {
	return &AccountHandler{
		accountUsecase: accountUsecase,
		provider:       identityProvider,
		sessions:       sessions,
		validate:       validate,
		logger:         logger,
	}
}

// RegisterRoutes mounts the account endpoints on the router.
func (h *AccountHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/auth/callback/google", h.GoogleCallback)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireSession)
		r.Get("/api/auth/session", h.Session)
		r.Post("/api/auth/complete-profile", h.CompleteProfile)
		r.Post("/api/auth/resend-verification", h.ResendVerification)
		r.Post("/api/auth/verify-email", h.VerifyEmail)
	})
}

type googleCallbackRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type completeProfileRequest struct {
	Phone        string `json:"phone"        validate:"required,min=10"`
	Role         string `json:"role"         validate:"required,oneof=customer employee vendor owner"`
	BusinessRole string `json:"businessRole"`
}

type verifyEmailRequest struct {
	Code string `json:"code" validate:"required,len=6"`
}

// GoogleCallback exchanges a Google ID token for a session. A provider
// rejection refuses the sign-in outright; a store failure refuses it too,
// since an unrecorded identity is not considered authenticated.
func (h *AccountHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	var req googleCallbackRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	identity, err := h.provider.Authenticate(r.Context(), req.IDToken)
	if err != nil {
		h.logger.Error().Err(err).Msg("google token exchange failed")
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.accountUsecase.SignIn(r.Context(), identity)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}

	token, err := h.sessions.Issue(user)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to issue session token")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	state := user.LifecycleState()
	writeJSON(w, http.StatusOK, signInResponse{
		Token:    token,
		User:     user,
		State:    state,
		Redirect: session.ScreenFor(state),
	})
}

// Session returns the materialized session with refreshed claims and the
// screen the route guard should send the user to.
func (h *AccountHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	state := claims.LifecycleState()
	writeJSON(w, http.StatusOK, sessionResponse{
		Token: tokenFromContext(r.Context()),
		Session: sessionInfo{
			ID:       claims.Subject,
			Email:    claims.Email,
			Verified: claims.Verified,
			Role:     claims.Role,
		},
		State:    state,
		Redirect: session.ScreenFor(state),
	})
}

// CompleteProfile persists the profile fields and issues the first
// verification code. The code is echoed in the response for deployments
// without email delivery configured.
func (h *AccountHandler) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req completeProfileRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	code, err := h.accountUsecase.CompleteProfile(r.Context(), claims.Subject, usecase.CompleteProfileParams{
		Phone:        req.Phone,
		Role:         model.Role(req.Role),
		BusinessRole: req.BusinessRole,
	})
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verificationResponse{
		Message:          "Profile updated successfully",
		VerificationCode: code,
	})
}

// ResendVerification reissues the verification code. Resending on an
// already-verified account is an informational success, not an error.
func (h *AccountHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	code, err := h.accountUsecase.ResendVerification(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, usecase.ErrAlreadyVerified) {
			writeMessage(w, http.StatusOK, "Email already verified")
			return
		}

		h.writeLifecycleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verificationResponse{
		Message:          "Verification code sent",
		VerificationCode: code,
	})
}

// VerifyEmail consumes a verification code. Replaying a consumed code
// reports the account as already verified rather than succeeding twice.
func (h *AccountHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req verifyEmailRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.accountUsecase.VerifyEmail(r.Context(), claims.Subject, req.Code); err != nil {
		if errors.Is(err, usecase.ErrAlreadyVerified) {
			writeMessage(w, http.StatusOK, "Email already verified")
			return
		}

		h.writeLifecycleError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Email verified successfully")
}

// decodeAndValidate decodes the JSON body into v and validates it,
// writing a field-level 400 on failure.
func (h *AccountHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}

	if fields := h.validate.Struct(v); fields != nil {
		writeJSON(w, http.StatusBadRequest, fieldErrorResponse{
			Message: "Validation failed",
			Fields:  fields,
		})
		return false
	}

	return true
}

// writeLifecycleError maps usecase errors to HTTP statuses. Business
// outcomes get a human-readable reason; store failures get a distinct 503
// so callers can tell "try later" from "your input was wrong".
func (h *AccountHandler) writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidPhone), errors.Is(err, usecase.ErrInvalidRole):
		writeMessage(w, http.StatusBadRequest, "Phone and role are required")
	case errors.Is(err, usecase.ErrInvalidCode):
		writeMessage(w, http.StatusBadRequest, "Invalid verification code")
	case errors.Is(err, usecase.ErrCodeExpired):
		writeMessage(w, http.StatusBadRequest, "Verification code expired")
	case errors.Is(err, usecase.ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, "User not found")
	case errors.Is(err, usecase.ErrStoreUnavailable):
		h.logger.Error().Err(err).Msg("user store unavailable")
		writeMessage(w, http.StatusServiceUnavailable, "Database not configured")
	default:
		h.logger.Error().Err(err).Msg("unexpected lifecycle error")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
