package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/mehmetcc/todox/internal/httpx"
	"github.com/mehmetcc/todox/internal/person"
	"github.com/mehmetcc/todox/internal/session"
	"github.com/mehmetcc/todox/internal/token"
	"github.com/mehmetcc/todox/pkg/id"
	"go.uber.org/zap"
)

const (
	LoginPath    = "/auth/login"
	RegisterPath = "/auth/register"
	HomePath     = "/"

	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72
)

// Authenticator is the account logic behind the handlers.
type Authenticator interface {
	Register(ctx context.Context, email, username, password string) (id.PublicID, error)
	Login(ctx context.Context, username, password string) (*person.Person, error)
}

// Issuer mints session tokens.
type Issuer interface {
	Issue(claims token.Claims) (*token.IssueResult, error)
}

type HandlerOptions struct {
	Cookies session.CookieOptions
	// RateLimit caps login and register posts per IP per minute; zero disables it.
	RateLimit int
}

type Handler struct {
	logger    *zap.Logger
	auth      Authenticator
	issuer    Issuer
	validator *validator.Validate
	opts      HandlerOptions
}

func NewHandler(auth Authenticator, issuer Issuer, opts HandlerOptions, l *zap.Logger) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	// max= counts runes, bcrypt counts bytes
	_ = v.RegisterValidation("bcryptmax", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxPasswordBytes
	})
	return &Handler{
		logger:    l,
		auth:      auth,
		issuer:    issuer,
		validator: v,
		opts:      opts,
	}
}

// Routes is mounted at /auth, outside the session gate.
func (a *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/login", a.LoginPage)
	r.Get("/register", a.RegisterPage)
	r.Post("/logout", a.Logout)

	r.Group(func(r chi.Router) {
		if a.opts.RateLimit > 0 {
			r.Use(httprate.LimitByIP(a.opts.RateLimit, time.Minute))
		}
		r.Post("/login", a.Login)
		r.Post("/register", a.Register)
	})
	return r
}

func (a *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	httpx.WriteHTML(w, http.StatusOK, httpx.PageLogin, httpx.FormData{})
}

func (a *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	httpx.WriteHTML(w, http.StatusOK, httpx.PageRegister, httpx.FormData{})
}

func (a *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var req loginRequest
	asJSON, ok := a.decode(w, r, &req, httpx.PageLogin)
	if !ok {
		return
	}
	form := httpx.FormData{Username: req.Username}

	if err := a.validator.Struct(req); err != nil {
		a.logger.Debug("login validation failed", zap.Error(err))
		a.fail(w, asJSON, http.StatusUnprocessableEntity, httpx.ErrValidationFailed, "validation failed",
			httpx.PageLogin, form, httpx.ValidationDetails(err))
		return
	}

	p, err := a.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			a.fail(w, asJSON, http.StatusUnauthorized, httpx.ErrUnauthorized, "invalid username or password",
				httpx.PageLogin, form, nil)
		case errors.Is(err, ErrUserNotActive):
			a.fail(w, asJSON, http.StatusForbidden, httpx.ErrForbidden, "account is not active",
				httpx.PageLogin, form, nil)
		default:
			a.logger.Error("login failed", zap.Error(err))
			a.fail(w, asJSON, http.StatusInternalServerError, httpx.ErrInternal, "internal server error",
				httpx.PageLogin, form, nil)
		}
		return
	}

	issued, err := a.issuer.Issue(token.Claims{UserID: p.PublicID.String()})
	if err != nil {
		a.logger.Error("failed to issue session token", zap.Error(err))
		a.fail(w, asJSON, http.StatusInternalServerError, httpx.ErrInternal, "internal server error",
			httpx.PageLogin, form, nil)
		return
	}
	session.Attach(w, issued.Token, issued.ExpiresAt, a.opts.Cookies)
	a.logger.Info("session issued", zap.String("public_id", p.PublicID.String()))

	if asJSON {
		httpx.WriteJSON(w, http.StatusOK, loginResponse{
			UserID:    p.PublicID.String(),
			ExpiresAt: issued.ExpiresAt,
		})
		return
	}
	httpx.RedirectAfterPost(w, r, HomePath)
}

func (a *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var req registerPersonRequest
	asJSON, ok := a.decode(w, r, &req, httpx.PageRegister)
	if !ok {
		return
	}
	form := httpx.FormData{Email: req.Email, Username: req.Username}

	if err := a.validator.Struct(req); err != nil {
		a.logger.Warn("register validation failed", zap.Error(err))
		a.fail(w, asJSON, http.StatusUnprocessableEntity, httpx.ErrValidationFailed, "validation failed",
			httpx.PageRegister, form, httpx.ValidationDetails(err))
		return
	}

	publicID, err := a.auth.Register(ctx, req.Email, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrPasswordTooLong):
			a.fail(w, asJSON, http.StatusUnprocessableEntity, httpx.ErrValidationFailed, "validation failed",
				httpx.PageRegister, form, []httpx.FieldError{{Field: "Password", Rule: "bcryptmax"}})
		case errors.Is(err, person.ErrDuplicateEmail):
			a.logger.Debug("duplicate email", zap.String("email", req.Email))
			a.fail(w, asJSON, http.StatusConflict, httpx.ErrConflict, "email already exists",
				httpx.PageRegister, form, nil)
		case errors.Is(err, person.ErrDuplicateUsername):
			a.logger.Debug("duplicate username", zap.String("username", req.Username))
			a.fail(w, asJSON, http.StatusConflict, httpx.ErrConflict, "username already exists",
				httpx.PageRegister, form, nil)
		default:
			a.logger.Error("failed to register user", zap.Error(err))
			a.fail(w, asJSON, http.StatusInternalServerError, httpx.ErrInternal, "internal server error",
				httpx.PageRegister, form, nil)
		}
		return
	}

	if asJSON {
		httpx.WriteJSON(w, http.StatusCreated, registerPersonResponse{
			PublicID: publicID.String(),
		})
		return
	}
	httpx.RedirectAfterPost(w, r, LoginPath)
}

func (a *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session.Clear(w, a.opts.Cookies)
	httpx.RedirectAfterPost(w, r, LoginPath)
}

// decode fills dst from a JSON or form body. It writes the error response
// itself and reports ok=false when the body is unusable.
func (a *Handler) decode(w http.ResponseWriter, r *http.Request, dst formDecoder, page httpx.Page) (asJSON bool, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(dst); err != nil {
			a.logger.Warn("failed to decode request body", zap.Error(err))
			a.fail(w, true, http.StatusBadRequest, httpx.ErrInvalidJSON, "invalid request body", page, httpx.FormData{}, nil)
			return true, false
		}
		if err := dec.Decode(&struct{}{}); err != io.EOF { // check if there's any trailing data
			a.logger.Warn("trailing data after JSON body", zap.Error(err))
			a.fail(w, true, http.StatusBadRequest, httpx.ErrInvalidJSON, "request body must contain a single JSON object", page, httpx.FormData{}, nil)
			return true, false
		}
		return true, true
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			a.logger.Warn("failed to parse form", zap.Error(err))
			a.fail(w, false, http.StatusBadRequest, httpx.ErrInvalidForm, "invalid form", page, httpx.FormData{}, nil)
			return false, false
		}
		dst.fromForm(r.PostForm)
		return false, true
	default:
		a.fail(w, false, http.StatusUnsupportedMediaType, httpx.ErrUnsupportedMedia,
			"Content-Type must be application/json or a form", page, httpx.FormData{}, nil)
		return false, false
	}
}

// fail answers JSON clients with the error envelope and browsers with the
// page re-rendered.
func (a *Handler) fail(w http.ResponseWriter, asJSON bool, status int, code httpx.ErrorCode, msg string,
	page httpx.Page, form httpx.FormData, fields []httpx.FieldError) {
	if asJSON {
		if fields != nil {
			httpx.WriteError(w, status, httpx.ErrorResponse[[]httpx.FieldError]{
				Code:    code,
				Message: msg,
				Details: fields,
			})
			return
		}
		httpx.WriteError(w, status, httpx.ErrorResponse[any]{
			Code:    code,
			Message: msg,
		})
		return
	}
	form.Error = msg
	form.Fields = fields
	httpx.WriteHTML(w, status, page, form)
}

type formDecoder interface {
	fromForm(v url.Values)
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=32"`
	Password string `json:"password" validate:"required,bcryptmax"`
}

func (l *loginRequest) fromForm(v url.Values) {
	l.Username = v.Get("username")
	l.Password = v.Get("password")
}

type loginResponse struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

type registerPersonRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Username string `json:"username" validate:"required,min=8,max=32,alphanum"`
	Password string `json:"password" validate:"required,min=8,bcryptmax"`
}

func (p *registerPersonRequest) fromForm(v url.Values) {
	p.Email = v.Get("email")
	p.Username = v.Get("username")
	p.Password = v.Get("password")
}

type registerPersonResponse struct {
	PublicID string `json:"public_id"`
}
