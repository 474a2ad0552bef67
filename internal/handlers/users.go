package handlers

import (
	"errors"
	"net/http"

	"github.com/alumnihub/apiserver/internal/services"
	"github.com/alumnihub/apiserver/internal/store"
	"github.com/alumnihub/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// UserHandler provides the authenticated user endpoints.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers the current-user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService, sessionMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(userService)

	r.With(sessionMiddleware).Get("/me", handler.Me)
}

// AdminRouter registers admin-only routes. The role check reads the
// current role from the store on every request.
func AdminRouter(r chi.Router, userService *services.UserService, sessionMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(userService)

	r.With(sessionMiddleware, RequireRole(userService, types.RoleAdmin)).Get("/users", handler.ListUsers)
}

// Me returns the requester's own account.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type UserListResponse struct {
	Items []types.User `json:"items"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

// ListUsers pages through all accounts.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, err := h.userService.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, UserListResponse{
		Items: users,
		Page:  page,
		Limit: limit,
	})
}
