package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alumnihub/apiserver/internal/auth"
	"github.com/alumnihub/apiserver/internal/oauth"
	"github.com/alumnihub/apiserver/internal/services"
	"github.com/alumnihub/apiserver/internal/storage"
	"github.com/alumnihub/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	oauthStateCookie = "oauthstate"
	oauthStateMaxAge = 10 * time.Minute
)

// OAuthHandler drives the three-phase federated flow: redirect to the
// provider, callback (login or hand off a signup-completion token),
// and completion of a first-time signup.
type OAuthHandler struct {
	provider    oauth.Provider
	userService *services.UserService
	codec       *auth.TokenCodec
	cookies     CookiePolicy
	frontendURL string
	avatars     *storage.Storage
}

func NewOAuthHandler(
	provider oauth.Provider,
	userService *services.UserService,
	codec *auth.TokenCodec,
	cookies CookiePolicy,
	frontendURL string,
	avatars *storage.Storage,
) *OAuthHandler {
	return &OAuthHandler{
		provider:    provider,
		userService: userService,
		codec:       codec,
		cookies:     cookies,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		avatars:     avatars,
	}
}

// OAuthRouter registers the federated login routes on the given router.
func OAuthRouter(
	r chi.Router,
	provider oauth.Provider,
	userService *services.UserService,
	codec *auth.TokenCodec,
	cookies CookiePolicy,
	frontendURL string,
	avatars *storage.Storage,
) {
	handler := NewOAuthHandler(provider, userService, codec, cookies, frontendURL, avatars)

	r.Get("/google", handler.Redirect)
	r.Get("/google/callback", handler.Callback)
	r.Post("/google/complete-signup", handler.CompleteSignup)
}

// Redirect sends the browser to the provider's consent screen with a
// fresh anti-forgery state bound to a cookie.
func (h *OAuthHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		h.redirectFailure(w, r)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(oauthStateMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// Callback finishes the provider round trip. An existing account is
// logged straight in; an unknown email gets a short-lived
// signup-completion token. Mid-navigation failures always end in a
// redirect, never a raw JSON error.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		log.Println("oauth callback: state mismatch")
		h.redirectFailure(w, r)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectFailure(w, r)
		return
	}

	claims, err := h.provider.Authenticate(r.Context(), code)
	if err != nil {
		log.Println("oauth callback: provider authentication failed:", err)
		h.redirectFailure(w, r)
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), claims.Email)
	switch {
	case err == nil:
		token, err := h.codec.IssueSession(user.ID, user.Email)
		if err != nil {
			h.redirectFailure(w, r)
			return
		}
		http.SetCookie(w, h.cookies.sessionCookie(token, auth.SessionTTL))
		http.Redirect(w, r, h.frontendURL+"/oauth/success", http.StatusFound)

	case errors.Is(err, store.ErrNotFound):
		token, err := h.codec.IssueSignup(claims.Email, claims.Name, claims.Picture)
		if err != nil {
			h.redirectFailure(w, r)
			return
		}
		// The claims are provider-public display data; the token alone
		// is the capability to complete signup.
		params := url.Values{}
		params.Set("token", token)
		params.Set("email", claims.Email)
		params.Set("name", claims.Name)
		if claims.Picture != "" {
			params.Set("picture", claims.Picture)
		}
		http.Redirect(w, r, h.frontendURL+"/oauth/complete-signup?"+params.Encode(), http.StatusFound)

	default:
		log.Println("oauth callback: user lookup failed:", err)
		h.redirectFailure(w, r)
	}
}

type CompleteSignupRequest struct {
	TempToken      string `json:"tempToken"`
	UserType       string `json:"userType"`
	Gender         string `json:"gender"`
	BatchYear      int    `json:"batchYear"`
	Course         string `json:"course"`
	Status         string `json:"status"`
	EnrollmentYear int    `json:"enrollmentYear"`
	CurrentYear    int    `json:"currentYear"`
	RollNumber     string `json:"rollNumber"`
}

type CompleteSignupResponse struct {
	SignupStatus bool   `json:"signupStatus"`
	LoginStatus  bool   `json:"loginStatus"`
	UserID       int    `json:"userId,omitempty"`
	UserType     string `json:"userType,omitempty"`
	UserName     string `json:"userName,omitempty"`
	Email        string `json:"email,omitempty"`
	Error        string `json:"error,omitempty"`
}

// CompleteSignup turns a signup-completion token plus role details into
// an account and logs it straight in. Reached by a direct request, so
// failures are structured JSON rather than redirects.
func (h *OAuthHandler) CompleteSignup(w http.ResponseWriter, r *http.Request) {
	var req CompleteSignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	claims, err := h.codec.ParseSignup(req.TempToken)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, CompleteSignupResponse{Error: "Signup session expired or invalid"})
		return
	}

	profile := auth.Profile{
		Role:           req.UserType,
		Gender:         req.Gender,
		BatchYear:      req.BatchYear,
		Course:         req.Course,
		Status:         req.Status,
		EnrollmentYear: req.EnrollmentYear,
		CurrentYear:    req.CurrentYear,
		RollNumber:     req.RollNumber,
	}
	if err := auth.ValidateProfile(profile, time.Now()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The email may have been registered between token issue and this
	// request (a second completion racing the first, or a direct
	// signup). Re-check, then rely on the store's uniqueness for the
	// remaining window.
	if _, err := h.userService.GetByEmail(r.Context(), claims.Email); err == nil {
		writeJSON(w, http.StatusConflict, CompleteSignupResponse{Email: claims.Email, Error: "Email already registered"})
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to check user")
		return
	}

	// The provider already verified the identity; the local password is
	// a random placeholder the user can replace via password reset.
	placeholder, err := randomPassword()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(placeholder), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user := newUserFromProfile(claims.Name, claims.Email, string(hashed), profile)
	created, err := h.userService.Create(r.Context(), user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeJSON(w, http.StatusConflict, CompleteSignupResponse{Email: claims.Email, Error: "Email already registered"})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	if h.avatars != nil && claims.Picture != "" {
		if _, err := storage.MirrorAvatar(r.Context(), h.avatars, nil, created.ID, claims.Picture); err != nil {
			log.Println("oauth complete-signup: avatar mirror failed:", err)
		}
	}

	token, err := h.codec.IssueSession(created.ID, created.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	http.SetCookie(w, h.cookies.sessionCookie(token, auth.SessionTTL))
	writeJSON(w, http.StatusCreated, CompleteSignupResponse{
		SignupStatus: true,
		LoginStatus:  true,
		UserID:       created.ID,
		UserType:     created.Role,
		UserName:     created.Name,
		Email:        created.Email,
	})
}

func (h *OAuthHandler) redirectFailure(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.frontendURL+"/login?error=oauth_failed", http.StatusFound)
}

func randomState() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(buf[:]), nil
}

func randomPassword() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
