// Copyright (c) 2026 Registra. All rights reserved.

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/solvik/registra/internal/platform/middleware"
	requestutil "github.com/solvik/registra/internal/platform/request"
	"github.com/solvik/registra/internal/platform/respond"
	"github.com/solvik/registra/internal/platform/validate"
)

// # HTTP Delivery

// Handler implements the authentication HTTP endpoints.
//
// This layer is strictly responsible for transport concerns (status codes,
// headers, JSON); every security decision lives in [Service] and [Sessions].
type Handler struct {
	authService *Service
	sessions    *Sessions
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(service *Service, sessions *Sessions) *Handler {
	return &Handler{authService: service, sessions: sessions}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - POST /register            : Creates a new account.
//   - POST /login               : Authenticates and rotates the session cookie.
//   - POST /logout              : Destroys the session cookie. Idempotent.
//   - GET  /me                  : Returns the authenticated identity.
//   - POST /sessions/invalidate : Logs the caller out of every device.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/logout", handler.logout)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/me", handler.me)
		r.Post("/sessions/invalidate", handler.invalidateSessions)
	})

	return router
}

// # Response Payloads

// loginResponse is the flat login result clients branch on. Login does not
// use the standard data envelope: the in-app login form reads the top-level
// success flag and redirect target directly.
type loginResponse struct {
	Success  bool         `json:"success"`
	Redirect string       `json:"redirect"`
	User     *userProfile `json:"user,omitempty"`
}

// userProfile is the client-safe projection of a user record.
type userProfile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

func profileOf(user *User) *userProfile {
	return &userProfile{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
	}
}

// registerRequest is the body for POST /register.
type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// # Endpoint Implementations

/*
register handles the creation of a new user account.

POST /api/v1/auth/register

Response:
  - 201: userProfile: Created account
  - 400: Validation failure (including username conflicts)
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, 3).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Register(request.Context(), RegisterInput{
		Username:    input.Username,
		Password:    input.Password,
		DisplayName: input.DisplayName,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, profileOf(user))
}

// login handles POST /login.
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input LoginInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Login(request.Context(), writer, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusOK, loginResponse{
		Success:  true,
		Redirect: "/",
		User:     profileOf(user),
	})
}

// logout handles POST /logout. Deliberately public: destroying an absent or
// invalid session is a harmless no-op, and requiring a fresh session to log
// out would strand clients holding a revoked cookie.
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	handler.authService.Logout(writer)

	respond.JSON(writer, http.StatusOK, loginResponse{
		Success:  true,
		Redirect: "/login",
	})
}

// me handles GET /me.
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	session, err := requestutil.RequiredSession(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.users.FindByID(request.Context(), session.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profileOf(user))
}

// invalidateSessions handles POST /sessions/invalidate: "log me out
// everywhere". Bumps the caller's session version, then destroys the current
// cookie too so the caller lands on the login page like every other device.
func (handler *Handler) invalidateSessions(writer http.ResponseWriter, request *http.Request) {
	session, err := requestutil.RequiredSession(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if _, err := handler.sessions.InvalidateUser(request.Context(), session.UserID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.sessions.Destroy(writer)

	respond.JSON(writer, http.StatusOK, loginResponse{
		Success:  true,
		Redirect: "/login",
	})
}
