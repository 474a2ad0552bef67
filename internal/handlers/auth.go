package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alumnihub/apiserver/internal/auth"
	"github.com/alumnihub/apiserver/internal/services"
	"github.com/alumnihub/apiserver/internal/store"
	"github.com/alumnihub/apiserver/types"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookieName = "token"

// CookiePolicy fixes the session cookie attributes for the deployment
// environment. Production runs cross-site (Secure + SameSite=None);
// everything else keeps Lax so plain-http dev setups work.
type CookiePolicy struct {
	Secure   bool
	SameSite http.SameSite
}

func NewCookiePolicy(production bool) CookiePolicy {
	if production {
		return CookiePolicy{Secure: true, SameSite: http.SameSiteNoneMode}
	}
	return CookiePolicy{Secure: false, SameSite: http.SameSiteLaxMode}
}

func (p CookiePolicy) sessionCookie(token string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	}
}

// AuthHandler provides credential login, signup, logout, and session
// introspection endpoints.
type AuthHandler struct {
	userService *services.UserService
	codec       *auth.TokenCodec
	cookies     CookiePolicy
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, codec *auth.TokenCodec, cookies CookiePolicy) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		codec:       codec,
		cookies:     cookies,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, codec *auth.TokenCodec, cookies CookiePolicy) {
	handler := NewAuthHandler(userService, codec, cookies)

	r.Post("/login", handler.Login)
	r.Post("/signup", handler.Signup)
	r.Post("/logout", handler.Logout)
	r.Get("/session", handler.Session)
}

// RequireSession constructs middleware that verifies the session token
// and injects the asserted identity into the request context. It never
// trusts a role claim; authorization re-reads the user row.
func RequireSession(codec *auth.TokenCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, email, err := sessionFromRequest(r, codec)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), contextUserIDKey, userID)
			ctx = context.WithValue(ctx, contextEmailKey, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole constructs middleware enforcing that the requester
// currently holds one of the given roles. The role is read live from
// the store so a stale token cannot retain revoked privileges.
func RequireRole(userService *services.UserService, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := userIDFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			user, err := userService.GetByID(r.Context(), userID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to authorize")
				return
			}

			for _, role := range roles {
				if strings.EqualFold(user.Role, role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "insufficient role")
		})
	}
}

func sessionFromRequest(r *http.Request, codec *auth.TokenCodec) (int, string, error) {
	tokenString := ""
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		tokenString = cookie.Value
	}
	if tokenString == "" {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			tokenString = strings.TrimSpace(parts[1])
		}
	}
	if tokenString == "" {
		return 0, "", errors.New("missing session token")
	}
	return codec.ParseSession(tokenString)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	LoginStatus bool           `json:"loginStatus"`
	UserID      int            `json:"userId,omitempty"`
	UserType    string         `json:"userType,omitempty"`
	UserName    string         `json:"userName,omitempty"`
	Profile     map[string]any `json:"profile,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Login verifies credentials and sets the session cookie.
// Unknown email and wrong password produce the same response so the
// endpoint cannot be used to probe for accounts.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusUnauthorized, LoginResponse{LoginStatus: false, Error: "Invalid email or password"})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, LoginResponse{LoginStatus: false, Error: "Invalid email or password"})
		return
	}

	token, err := h.codec.IssueSession(user.ID, user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	http.SetCookie(w, h.cookies.sessionCookie(token, auth.SessionTTL))
	writeJSON(w, http.StatusOK, LoginResponse{
		LoginStatus: true,
		UserID:      user.ID,
		UserType:    user.Role,
		UserName:    user.Name,
		Profile:     user.RoleProfile(),
	})
}

type SignupRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	UserType       string `json:"userType"`
	Gender         string `json:"gender"`
	BatchYear      int    `json:"batchYear"`
	Course         string `json:"course"`
	Status         string `json:"status"`
	EnrollmentYear int    `json:"enrollmentYear"`
	CurrentYear    int    `json:"currentYear"`
	RollNumber     string `json:"rollNumber"`
}

func (r SignupRequest) profile() auth.Profile {
	return auth.Profile{
		Role:           r.UserType,
		Gender:         r.Gender,
		BatchYear:      r.BatchYear,
		Course:         r.Course,
		Status:         r.Status,
		EnrollmentYear: r.EnrollmentYear,
		CurrentYear:    r.CurrentYear,
		RollNumber:     r.RollNumber,
	}
}

type SignupResponse struct {
	SignupStatus bool   `json:"signupStatus"`
	Message      string `json:"message,omitempty"`
	UserID       int    `json:"userId,omitempty"`
	Email        string `json:"email,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Signup creates a new account. It does not log the caller in; the
// client follows up with Login.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	if err := auth.ValidateProfile(req.profile(), time.Now()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user := newUserFromProfile(req.Name, req.Email, string(hashed), req.profile())
	created, err := h.userService.Create(r.Context(), user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeJSON(w, http.StatusConflict, SignupResponse{Email: req.Email, Error: "Email already registered"})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, SignupResponse{
		SignupStatus: true,
		Message:      "Signup successful",
		UserID:       created.ID,
	})
}

// Logout clears the session cookie. Stateless tokens cannot be revoked
// server-side; the cookie simply stops being sent.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie := h.cookies.sessionCookie("", 0)
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        int    `json:"userId,omitempty"`
	UserType      string `json:"userType,omitempty"`
	UserName      string `json:"userName,omitempty"`
	Email         string `json:"email,omitempty"`
}

// Session reports whether the request carries a valid session and, if
// so, who it belongs to.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	userID, _, err := sessionFromRequest(r, h.codec)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, SessionResponse{Authenticated: false})
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusUnauthorized, SessionResponse{Authenticated: false})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		Authenticated: true,
		UserID:        user.ID,
		UserType:      user.Role,
		UserName:      user.Name,
		Email:         user.Email,
	})
}

func newUserFromProfile(name, email, passwordHash string, profile auth.Profile) types.User {
	user := types.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	}
	profile.Apply(&user)
	return user
}
