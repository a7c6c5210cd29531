package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/staffdesk/employee-api/internal/httputil"
	"github.com/staffdesk/employee-api/internal/logging"
	"github.com/staffdesk/employee-api/internal/user"
)

// Handler contains the HTTP handlers for the authentication endpoints
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// SignupRequest is the signup request body
type SignupRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	EmployeeID string `json:"employee_id"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// SignupResponse echoes the identity fields of the new account. The password
// hash is never part of any response.
type SignupResponse struct {
	Message    string    `json:"message"`
	UserID     uuid.UUID `json:"userId"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	EmployeeID string    `json:"employee_id"`
	Email      string    `json:"email"`
}

// LoginRequest is the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the login success envelope
type LoginResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Data    LoginData `json:"data"`
}

type LoginData struct {
	User  LoginUser `json:"user"`
	Token string    `json:"token"`
}

type LoginUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

const authFailedMessage = "Authentication failed. Please check your credentials."

// Signup handles POST /signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid signup request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	newUser, err := h.service.Register(r.Context(), req.FirstName, req.LastName, req.EmployeeID, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidEmailFormat):
			logger.Warn("signup failed: invalid email format")
			httputil.RespondErrorWithCode(w, "Invalid email format", httputil.CodeInvalidEmailFormat, http.StatusBadRequest)
		case errors.Is(err, user.ErrDuplicateEmail):
			logger.Warn("signup failed: email already registered")
			httputil.RespondErrorWithCode(w, "Email already registered", httputil.CodeEmailAlreadyExists, http.StatusBadRequest)
		default:
			// Internal detail stays in the logs; the caller gets a fixed
			// message.
			logger.Error("signup failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to register user", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user registered successfully", "user_id", newUser.ID)

	httputil.RespondJSON(w, SignupResponse{
		Message:    "User registered successfully",
		UserID:     newUser.ID,
		FirstName:  newUser.FirstName,
		LastName:   newUser.LastName,
		EmployeeID: newUser.EmployeeID,
		Email:      newUser.Email,
	}, http.StatusCreated)
}

// Login handles POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		httputil.RespondJSON(w, map[string]string{"message": "Please provide both email and password."}, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailRequired), errors.Is(err, ErrPasswordRequired):
			logger.Warn("login failed: missing credentials")
			httputil.RespondJSON(w, map[string]string{"message": "Please provide both email and password."}, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidCredentials):
			logger.Warn("login failed: invalid credentials")
			httputil.RespondJSON(w, map[string]string{
				"status":  "error",
				"message": authFailedMessage,
			}, http.StatusUnauthorized)
		default:
			logger.Error("login failed: internal error", "error", err.Error())
			httputil.RespondJSON(w, map[string]string{"message": "Internal server error."}, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user logged in successfully", "user_id", result.UserID)

	httputil.RespondJSON(w, LoginResponse{
		Status:  "success",
		Message: "Login successful",
		Data: LoginData{
			User: LoginUser{
				ID:    result.UserID,
				Email: result.Email,
			},
			Token: result.Token,
		},
	}, http.StatusOK)
}

// Me handles GET /me; it reports the identity of the presented token
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserIDFromContext(r.Context())
	email, _ := GetUserEmailFromContext(r.Context())

	httputil.RespondJSON(w, map[string]any{
		"user_id": userID,
		"email":   email,
	}, http.StatusOK)
}
