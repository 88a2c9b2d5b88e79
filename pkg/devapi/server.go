package devapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/idm-forms/pkg/catalog"
	"github.com/tendant/idm-forms/pkg/errors"
	"github.com/tendant/idm-forms/pkg/form"
	"github.com/tendant/idm-forms/pkg/ratelimit"
	"github.com/tendant/idm-forms/pkg/validate"
)

// Route paths served by the dev API.
const (
	LoginPath   = form.DefaultLoginEndpoint
	SignupPath  = form.DefaultSignupEndpoint
	MePath      = "/api/auth/me"
	LaptopsPath = "/laptops"
)

const (
	MsgInvalidCredentials = "Invalid email or password."
	MsgInvalidBody        = "Request body must be valid JSON."
	MsgLaptopNotFound     = "Laptop not found."
	MsgUnauthorized       = "Authentication required."
	msgInternal           = "Something went wrong. Please try again."
)

// Default token lifetimes.
const (
	DefaultTokenTTL    = time.Hour
	DefaultRememberTTL = 30 * 24 * time.Hour
)

// LoginResponse is the 200 body of a successful login.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

// Server serves the login, signup and listing endpoints the form client talks to.
type Server struct {
	users       *UserStore
	tokens      *TokenIssuer
	laptops     *LaptopStore
	loginLimit  *ratelimit.Limiter
	userLimit   *ratelimit.Limiter
	tokenTTL    time.Duration
	rememberTTL time.Duration
	logger      *slog.Logger
}

type Option func(*Server)

func WithUserStore(s *UserStore) Option {
	return func(srv *Server) {
		srv.users = s
	}
}

func WithTokenIssuer(t *TokenIssuer) Option {
	return func(srv *Server) {
		srv.tokens = t
	}
}

func WithLaptopStore(s *LaptopStore) Option {
	return func(srv *Server) {
		srv.laptops = s
	}
}

// WithLoginLimiter limits login attempts per email address. Nil disables it.
func WithLoginLimiter(l *ratelimit.Limiter) Option {
	return func(srv *Server) {
		srv.loginLimit = l
	}
}

// WithUserLimiter limits authenticated requests per token subject. Nil disables it.
func WithUserLimiter(l *ratelimit.Limiter) Option {
	return func(srv *Server) {
		srv.userLimit = l
	}
}

// WithTokenTTL sets the token lifetime for normal and remembered logins.
func WithTokenTTL(ttl, remember time.Duration) Option {
	return func(srv *Server) {
		if ttl > 0 {
			srv.tokenTTL = ttl
		}
		if remember > 0 {
			srv.rememberTTL = remember
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(srv *Server) {
		srv.logger = l
	}
}

// NewServer returns a server with empty stores and a development signing key
// unless options say otherwise.
func NewServer(opts ...Option) *Server {
	s := &Server{
		tokenTTL:    DefaultTokenTTL,
		rememberTTL: DefaultRememberTTL,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.users == nil {
		s.users = NewUserStore(nil)
	}
	if s.tokens == nil {
		s.tokens = NewTokenIssuer("very-secure-jwt-secret", "idm-forms-devapi")
	}
	if s.laptops == nil {
		s.laptops = NewLaptopStore()
	}
	return s
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Post(LoginPath, s.Login)
	r.Post(SignupPath, s.Signup)
	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(s.tokens.JWTAuth()))
		r.Use(s.authenticate)
		if s.userLimit != nil {
			r.Use(ratelimit.Middleware(s.userLimit, "user", ratelimit.KeyBySubject))
		}
		r.Get(MePath, s.Me)
	})
	r.Get(LaptopsPath, s.ListLaptops)
	r.Get(LaptopsPath+"/{id}", s.GetLaptop)
}

// Handler returns a standalone router with Routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Routes(r)
	return r
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req form.LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.writeError(w, r, "message", errors.New(errors.ErrCodeInvalidFormat, MsgInvalidBody))
		return
	}

	if errs := validate.LoginFields(validate.LoginValues{Email: req.Email, Password: req.Password}); errs.HasErrors() {
		s.writeError(w, r, "message", errors.New(errors.ErrCodeValidationFailed, errs[0].Message))
		return
	}

	key := strings.ToLower(strings.TrimSpace(req.Email))
	if s.loginLimit != nil {
		if ok, wait := s.loginLimit.Allow(key); !ok {
			s.logger.Warn("Login rate limit exceeded", "email", key)
			ratelimit.TooManyRequests(w, r, wait)
			return
		}
	}

	user, err := s.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeInvalidCredentials) {
			s.logger.Info("Login rejected", "email", key)
		}
		s.writeError(w, r, "message", err)
		return
	}
	if s.loginLimit != nil {
		s.loginLimit.Reset(key)
	}

	ttl := s.tokenTTL
	if req.Remember {
		ttl = s.rememberTTL
	}
	token, expiresAt, err := s.tokens.Issue(user, ttl)
	if err != nil {
		s.writeError(w, r, "message", err)
		return
	}

	s.logger.Info("Login succeeded", "user_id", user.ID, "remember", req.Remember)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, LoginResponse{
		AccessToken: token,
		TokenType:   TokenType,
		ExpiresAt:   expiresAt,
		User:        user,
	})
}

func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	var req form.SignupRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.writeError(w, r, "error", errors.New(errors.ErrCodeInvalidFormat, MsgInvalidBody))
		return
	}

	// The client never sends the confirmation, it only checks it locally.
	errs := validate.SignupFields(validate.SignupValues{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.Password,
	})
	if errs.HasErrors() {
		s.writeError(w, r, "error", errors.New(errors.ErrCodeValidationFailed, errs[0].Message))
		return
	}

	user, err := s.users.Create(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, "error", err)
		return
	}

	s.logger.Info("User registered", "user_id", user.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, user)
}

// authenticate rejects requests whose bearer token jwtauth.Verifier could not
// verify, with the same JSON body as every other error.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			s.logger.Debug("Rejected bearer token", "path", r.URL.Path, "err", err)
			s.writeError(w, r, "message", errors.New(errors.ErrCodeTokenInvalid, MsgUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		s.writeError(w, r, "message", errors.Wrap(err, errors.ErrCodeTokenInvalid, "invalid token"))
		return
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		s.writeError(w, r, "message", errors.New(errors.ErrCodeTokenInvalid, "invalid token subject"))
		return
	}
	user, err := s.users.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "message", err)
		return
	}
	render.JSON(w, r, user)
}

func (s *Server) ListLaptops(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.laptops.List())
}

func (s *Server) GetLaptop(w http.ResponseWriter, r *http.Request) {
	id := catalog.ID(chi.URLParam(r, "id"))
	laptop, ok := s.laptops.Get(id)
	if !ok {
		s.writeError(w, r, "message", errors.New(errors.ErrCodeNotFound, MsgLaptopNotFound))
		return
	}
	render.JSON(w, r, laptop)
}

// writeError renders err as {field: message} with the status its code maps to.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, field string, err error) {
	status := errors.MapErrorCodeToHTTPStatus(errors.GetCode(err))
	msg := errors.GetMessage(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		msg = msgInternal
	}
	render.Status(r, status)
	render.JSON(w, r, map[string]string{field: msg})
}
