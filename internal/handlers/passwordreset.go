package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/alumnihub/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// PasswordResetHandler exposes the OTP request/verify/reset triple.
type PasswordResetHandler struct {
	resetService *services.PasswordResetService
}

func NewPasswordResetHandler(resetService *services.PasswordResetService) *PasswordResetHandler {
	return &PasswordResetHandler{resetService: resetService}
}

// PasswordResetRouter registers password-reset routes on the given router.
func PasswordResetRouter(r chi.Router, resetService *services.PasswordResetService) {
	handler := NewPasswordResetHandler(resetService)

	r.Post("/request", handler.Request)
	r.Post("/verify", handler.Verify)
	r.Post("/reset", handler.Reset)
}

type PasswordResetRequest struct {
	Email       string `json:"email"`
	Otp         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

type PasswordResetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Request issues a reset code and mails it to the account holder.
func (h *PasswordResetHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, PasswordResetResponse{Success: false, Message: "invalid request"})
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, PasswordResetResponse{Success: false, Message: "Email is required"})
		return
	}

	if err := h.resetService.Request(r.Context(), req.Email); err != nil {
		if errors.Is(err, services.ErrUnknownEmail) {
			writeJSON(w, http.StatusNotFound, PasswordResetResponse{Success: false, Message: "User with this email does not exist"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, PasswordResetResponse{Success: false, Message: "Failed to send OTP"})
		return
	}

	writeJSON(w, http.StatusOK, PasswordResetResponse{Success: true, Message: "OTP sent to your email"})
}

// Verify checks a code without consuming it.
func (h *PasswordResetHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, PasswordResetResponse{Success: false, Message: "invalid request"})
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Otp == "" {
		writeJSON(w, http.StatusBadRequest, PasswordResetResponse{Success: false, Message: "Email and OTP are required"})
		return
	}

	if err := h.resetService.Verify(r.Context(), req.Email, req.Otp); err != nil {
		if errors.Is(err, services.ErrInvalidOtp) {
			writeJSON(w, http.StatusBadRequest, PasswordResetResponse{Success: false, Message: "Invalid or expired OTP"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, PasswordResetResponse{Success: false, Message: "Failed to verify OTP"})
		return
	}

	writeJSON(w, http.StatusOK, PasswordResetResponse{Success: true})
}

// Reset replaces the password after re-verifying and consuming the code.
func (h *PasswordResetHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, PasswordResetResponse{Success: false, Message: "invalid request"})
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Otp == "" || req.NewPassword == "" {
		writeJSON(w, http.StatusBadRequest, PasswordResetResponse{Success: false, Message: "Email, OTP and new password are required"})
		return
	}

	if err := h.resetService.Reset(r.Context(), req.Email, req.Otp, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidOtp):
			writeJSON(w, http.StatusBadRequest, PasswordResetResponse{Success: false, Message: "Invalid or expired OTP"})
		case errors.Is(err, services.ErrUnknownEmail):
			writeJSON(w, http.StatusNotFound, PasswordResetResponse{Success: false, Message: "User with this email does not exist"})
		default:
			writeJSON(w, http.StatusInternalServerError, PasswordResetResponse{Success: false, Message: "Failed to reset password"})
		}
		return
	}

	writeJSON(w, http.StatusOK, PasswordResetResponse{Success: true, Message: "Password reset successful"})
}
