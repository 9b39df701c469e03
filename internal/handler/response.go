package handler

import (
	"encoding/json"
	"net/http"

	"github.com/bizchat/bizchat-api/internal/model"
)

type messageResponse struct {
	Message string `json:"message"`
}

type fieldErrorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type verificationResponse struct {
	Message          string `json:"message"`
	VerificationCode string `json:"verificationCode"`
}

type signInResponse struct {
	Token    string               `json:"token"`
	User     *model.User          `json:"user"`
	State    model.LifecycleState `json:"state"`
	Redirect string               `json:"redirect"`
}

type sessionInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Verified bool   `json:"isVerified"`
	Role     string `json:"role,omitempty"`
}

type sessionResponse struct {
	Token    string               `json:"token"`
	Session  sessionInfo          `json:"session"`
	State    model.LifecycleState `json:"state"`
	Redirect string               `json:"redirect"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}
