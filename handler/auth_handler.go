package handler

import (
	"context"
	"errors"
	"net/http"

	"go-employee-api/common"
	"go-employee-api/logger"
	"go-employee-api/model"
	"go-employee-api/service"
)

// Authenticator is the slice of service.AuthService the HTTP layer uses.
type Authenticator interface {
	Register(ctx context.Context, req model.RegisterRequest) error
	Authenticate(ctx context.Context, username, password string) (*model.TokenPair, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*model.TokenPair, error)
	Revoke(ctx context.Context, username string) error
	GetUser(ctx context.Context, username string) (*model.User, error)
	IssueBearerToken(ctx context.Context, username, password string) (*model.BearerToken, error)
}

// AuthHandler holds dependencies for authentication handlers.
type AuthHandler struct {
	service Authenticator
}

// NewAuthHandler creates a new AuthHandler with its dependencies.
func NewAuthHandler(s Authenticator) *AuthHandler {
	return &AuthHandler{service: s}
}

// mapAuthError converts a service error into the response the client sees.
// unauthorized is the message for 401s so that every credential failure on
// an endpoint reads the same.
func mapAuthError(err error, unauthorized string) *common.AppError {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return common.NewAppError(http.StatusBadRequest, validationErr.Reason, nil)
	case errors.Is(err, service.ErrConflict):
		return common.NewAppError(http.StatusBadRequest, "Username or email already exists", nil)
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		return common.NewAppError(http.StatusUnauthorized, unauthorized, nil)
	case errors.Is(err, service.ErrNotFound):
		return common.NewAppError(http.StatusNotFound, "User not found", nil)
	case errors.Is(err, service.ErrTooManyAttempts):
		return common.NewAppError(http.StatusTooManyRequests, "Too many failed login attempts, try again later", nil)
	default:
		return common.NewAppError(http.StatusInternalServerError, "Internal error while processing the request", err)
	}
}

// Register godoc
// @Summary      Register a new user
// @Description  Creates a user account. No token is issued; call login afterwards.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        user body model.RegisterRequest true "Registration details"
// @Success      201  {object}  model.MessageResponse
// @Failure      400  {object}  common.AppError "Validation failure or username/email already taken"
// @Failure      500  {object}  common.AppError
// @Router       /api/v1/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}
	// Roles are only assignable through the v2 endpoint.
	req.Role = ""

	if err := h.service.Register(r.Context(), req); err != nil {
		return mapAuthError(err, "Unauthorized")
	}

	common.WriteJSON(w, http.StatusCreated, model.MessageResponse{Message: "User registered successfully"})
	return nil
}

// Login godoc
// @Summary      Log in
// @Description  Verifies username and password and returns an access token and a refresh token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials body model.LoginRequest true "Username and password"
// @Success      200  {object}  model.TokenPair
// @Failure      400  {object}  common.AppError
// @Failure      401  {object}  common.AppError "Invalid username or password"
// @Failure      429  {object}  common.AppError "Too many failed attempts"
// @Failure      500  {object}  common.AppError
// @Router       /api/v1/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	pair, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		return mapAuthError(err, "Invalid username or password")
	}

	common.WriteJSON(w, http.StatusOK, pair)
	return nil
}

// RefreshToken godoc
// @Summary      Rotate tokens
// @Description  Exchanges the last access token (expired or not) and the current refresh token for a new pair. Each refresh token works once.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        tokens body model.RefreshRequest true "Current token pair"
// @Success      200  {object}  model.TokenPair
// @Failure      400  {object}  common.AppError
// @Failure      401  {object}  common.AppError "Invalid or expired token"
// @Failure      500  {object}  common.AppError
// @Router       /api/v1/auth/refresh-token [post]
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RefreshRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	pair, err := h.service.Refresh(r.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		return mapAuthError(err, "Invalid or expired token")
	}

	common.WriteJSON(w, http.StatusOK, pair)
	return nil
}

// Revoke godoc
// @Summary      Revoke refresh token
// @Description  Clears the refresh token of the authenticated user. Access tokens already issued stay valid until they expire.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.MessageResponse
// @Failure      401  {object}  common.AppError "Missing or invalid access token"
// @Failure      404  {object}  common.AppError
// @Failure      500  {object}  common.AppError
// @Router       /api/v1/auth/revoke [post]
func (h *AuthHandler) Revoke(w http.ResponseWriter, r *http.Request) *common.AppError {
	username, ok := UsernameFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid username in token", nil)
	}

	if err := h.service.Revoke(r.Context(), username); err != nil {
		return mapAuthError(err, "Unauthorized")
	}

	logger.Log.WithField("username", username).Info("Revoke request completed")
	common.WriteJSON(w, http.StatusOK, model.MessageResponse{Message: "Token revoked successfully"})
	return nil
}

// Me godoc
// @Summary      Current user
// @Description  Returns the profile of the authenticated user.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.User
// @Failure      401  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Router       /api/v1/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) *common.AppError {
	username, ok := UsernameFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid username in token", nil)
	}

	user, err := h.service.GetUser(r.Context(), username)
	if err != nil {
		return mapAuthError(err, "Unauthorized")
	}

	common.WriteJSON(w, http.StatusOK, user)
	return nil
}

// RegisterV2 godoc
// @Summary      Register a new user with a role
// @Tags         auth-v2
// @Accept       json
// @Produce      json
// @Param        user body model.RegisterRequest true "Registration details; role is admin or user"
// @Success      201  {object}  model.MessageResponse
// @Failure      400  {object}  common.AppError
// @Failure      409  {object}  common.AppError "Username already exists"
// @Failure      500  {object}  common.AppError
// @Router       /api/v2/auth/register [post]
func (h *AuthHandler) RegisterV2(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	if err := h.service.Register(r.Context(), req); err != nil {
		if errors.Is(err, service.ErrConflict) {
			return common.NewAppError(http.StatusConflict, "Username already exists", nil)
		}
		return mapAuthError(err, "Unauthorized")
	}

	common.WriteJSON(w, http.StatusCreated, model.MessageResponse{Message: "User created successfully"})
	return nil
}

// LoginV2 godoc
// @Summary      Log in for a bearer token
// @Description  Returns one signed token carrying the user's role, valid for hours. No refresh token is issued.
// @Tags         auth-v2
// @Accept       json
// @Produce      json
// @Param        credentials body model.LoginRequest true "Username and password"
// @Success      200  {object}  model.BearerToken
// @Failure      400  {object}  common.AppError
// @Failure      401  {object}  common.AppError
// @Failure      429  {object}  common.AppError
// @Router       /api/v2/auth/login [post]
func (h *AuthHandler) LoginV2(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	token, err := h.service.IssueBearerToken(r.Context(), req.Username, req.Password)
	if err != nil {
		return mapAuthError(err, "Invalid credentials")
	}

	common.WriteJSON(w, http.StatusOK, token)
	return nil
}
