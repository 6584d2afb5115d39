package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"

	"blog-service/internal/observability"
)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	service       *Service
	logger        *observability.Logger
	validate      *validator.Validate
	accessCookie  string
	refreshCookie string
}

func NewHandler(service *Service, logger *observability.Logger, accessCookie, refreshCookie string) *Handler {
	return &Handler{
		service:       service,
		logger:        logger,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		accessCookie:  accessCookie,
		refreshCookie: refreshCookie,
	}
}

type signupRequest struct {
	Username string `json:"username" validate:"required,min=4,max=30"`
	Email    string `json:"email" validate:"required,email,min=5,max=50"`
	Password string `json:"password" validate:"required"`
	ImageRef string `json:"userImg" validate:"required,url"`
}

type loginRequest struct {
	Username string `json:"username" validate:"omitempty,min=4,max=30,required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email,required_without=Username"`
	Password string `json:"password" validate:"required"`
}

// Endpoints lists the authentication routes. Kept so clients can probe
// the auth surface with a plain GET.
func (h *Handler) Endpoints(w http.ResponseWriter, r *http.Request) {
	writeResult(w, http.StatusOK, map[string]string{
		"login":  "/auth/login",
		"signup": "/auth/signup",
	})
}

func (h *Handler) LoginHint(w http.ResponseWriter, r *http.Request) {
	writeResult(w, http.StatusOK, "Send a POST request with your username and password to this endpoint.")
}

func (h *Handler) SignupHint(w http.ResponseWriter, r *http.Request) {
	writeResult(w, http.StatusOK, "User creation requires a POST request with username, email, password and userImg.")
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var body signupRequest
	if !h.decode(w, r, &body) {
		return
	}

	user, err := h.service.Signup(r.Context(), body.Username, body.Email, body.Password, body.ImageRef)
	if err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			writeError(w, http.StatusConflict, "User with the provided email/username already exists.")
			return
		}
		sentry.CaptureException(err)
		h.logger.Error("signup_failed", map[string]any{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "failed to sign up")
		return
	}

	h.logger.Info("user_created", map[string]any{"username": user.Username})
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  http.StatusOK,
		"result":  user.View(),
		"message": "New user created successfully. Please login.",
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !h.decode(w, r, &body) {
		return
	}

	user, pair, err := h.service.Login(r.Context(), body.Username, body.Email, body.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found.")
		case errors.Is(err, ErrInvalidPassword):
			writeError(w, http.StatusUnauthorized, "Password is incorrect.")
		default:
			sentry.CaptureException(err)
			h.logger.Error("login_failed", map[string]any{"error": err.Error()})
			writeError(w, http.StatusInternalServerError, "failed to login")
		}
		return
	}

	h.setCookie(w, h.accessCookie, pair.Access, int(h.service.tokens.AccessTTL().Seconds()))
	h.setCookie(w, h.refreshCookie, pair.Refresh, int(h.service.tokens.RefreshTTL().Seconds()))

	h.logger.Info("user_login", map[string]any{"username": user.Username})
	writeMessage(w, http.StatusOK, "Login successful", nil)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.refreshCookie)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		writeError(w, http.StatusForbidden, "Refresh Token is required")
		return
	}

	access, err := h.service.Refresh(cookie.Value)
	if err != nil {
		// The cause (expired, forged, malformed) stays server-side.
		writeError(w, http.StatusForbidden, "Invalid Refresh Token")
		return
	}

	h.setCookie(w, h.accessCookie, access, int(h.service.tokens.AccessTTL().Seconds()))
	writeMessage(w, http.StatusOK, "Refreshed access token.", nil)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}

	return true
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return strings.ToLower(fe.Field()) + " failed validation on '" + fe.Tag() + "'"
	}
	return "invalid request body"
}
