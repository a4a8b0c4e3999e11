package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts the session and registration endpoints plus the
// admin registry management surface. The admin routes are expected to sit
// behind the guard middleware with an admin policy; the controller still
// re-checks the decoded claims so the routes fail closed when mounted bare.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).
		SetName("sign-out.get")

	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Get(controller.Routes.Session, controller.SessionShow).
		SetName("session.get")

	app.Get(controller.Routes.Admins, controller.AdminList).
		SetName("admins.list")
	app.Post(controller.Routes.Admins, controller.AdminGrant).
		SetName("admins.grant")
	app.Delete(controller.Routes.Admins+"/:email", controller.AdminRevoke).
		SetName("admins.revoke")
}

type AuthControllerRoutes struct {
	Login    string
	Logout   string
	Register string
	Session  string
	Admins   string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Registry     *Registry
	Routes       *AuthControllerRoutes
	Auther       HTTPAuthenticator
	ContextKey   string
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithRepositoryManager(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithRegistry(registry *Registry) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Registry = registry
		return c
	}
}

func WithHTTPAuthenticator(auther HTTPAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithContextKey(key string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.ContextKey = key
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		ContextKey:   "session",
		Routes: &AuthControllerRoutes{
			Login:    "/login",
			Logout:   "/logout",
			Register: "/register",
			Session:  "/session",
			Admins:   "/admins",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	if c.Registry == nil {
		c.Registry = NewRegistry(c.Repo)
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Email      string `form:"email" json:"email"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

func (r LoginRequest) GetEmail() string { return r.Email }

func (r LoginRequest) GetPassword() string { return r.Password }

func (r LoginRequest) GetExtendedSession() bool { return r.RememberMe }

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// LoginPost verifies the credential pair, sets the session cookie, and
// returns the signed-in profile. Every failed verification gets the same
// response body and status so the endpoint never confirms whether an
// account exists.
func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"error": "failed to parse request body",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"error":      "invalid payload",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	identity, err := a.Auther.Login(ctx, payload)
	if err != nil {
		// one body for every verification failure
		return ctx.JSON(fiber.StatusUnauthorized, router.ViewContext{
			"error": "invalid credentials",
		})
	}

	return ctx.JSON(fiber.StatusOK, router.ViewContext{
		"profile": router.ViewContext{
			"id":    identity.ID(),
			"email": identity.Email(),
			"role":  identity.Role(),
		},
		"redirect": a.Auther.GetRedirect(ctx, "/"),
	})
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.JSON(fiber.StatusOK, router.ViewContext{
		"signed_out": true,
	})
}

// SessionShow introspects the current session from the request token alone.
// An anonymous request gets an empty session, not an error, so clients can
// poll it without handling 401s.
func (a *AuthController) SessionShow(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, a.ContextKey)
	if !ok {
		return ctx.JSON(fiber.StatusOK, router.ViewContext{
			"session": nil,
		})
	}

	return ctx.JSON(fiber.StatusOK, router.ViewContext{
		"session": router.ViewContext{
			"user_id":    claims.UserID(),
			"email":      claims.Email(),
			"role":       claims.Role(),
			"expires_at": claims.Expires(),
		},
	})
}

// RegistrationCreatePayload is the sign-up payload
type RegistrationCreatePayload struct {
	Name            string `form:"name" json:"name"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload", "error", err)
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"error": "failed to parse request body",
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload", "error", err)
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"error":      "invalid payload",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	var created *User
	req := RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		OnUser: func(u *User) {
			created = u
		},
	}

	registerUser := RegisterUserHandler{repo: a.Repo}
	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register user error", "error", err)
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, router.ViewContext{
		"profile": router.ViewContext{
			"id":    created.ID.String(),
			"email": created.Email,
			"role":  string(created.Role),
		},
	})
}

// AdminGrantPayload names the account to promote
type AdminGrantPayload struct {
	Email           string `form:"email" json:"email"`
	InitialPassword string `form:"initial_password" json:"initial_password"`
}

// Validate will validate the payload
func (r AdminGrantPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) AdminGrant(ctx router.Context) error {
	if !IsAdminRequest(ctx, a.ContextKey) {
		return ctx.JSON(fiber.StatusForbidden, router.ViewContext{
			"error": "forbidden",
		})
	}

	payload := new(AdminGrantPayload)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"error": "failed to parse request body",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"error":      "invalid payload",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	user, err := a.Registry.GrantAdmin(ctx.Context(), payload.Email, payload.InitialPassword)
	if err != nil {
		a.Logger.Error("admin grant error", "email", NormalizeEmail(payload.Email), "error", err)
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, router.ViewContext{
		"admin": router.ViewContext{
			"id":    user.ID.String(),
			"email": user.Email,
			"role":  string(user.Role),
		},
	})
}

func (a *AuthController) AdminList(ctx router.Context) error {
	if !IsAdminRequest(ctx, a.ContextKey) {
		return ctx.JSON(fiber.StatusForbidden, router.ViewContext{
			"error": "forbidden",
		})
	}

	entries, err := a.Registry.ListAdmins(ctx.Context())
	if err != nil {
		a.Logger.Error("admin list error", "error", err)
		return a.renderError(ctx, err)
	}

	admins := make([]router.ViewContext, 0, len(entries))
	for _, e := range entries {
		admins = append(admins, router.ViewContext{
			"email":      e.Email,
			"created_at": e.CreatedAt,
		})
	}

	return ctx.JSON(fiber.StatusOK, router.ViewContext{
		"admins": admins,
	})
}

func (a *AuthController) AdminRevoke(ctx router.Context) error {
	if !IsAdminRequest(ctx, a.ContextKey) {
		return ctx.JSON(fiber.StatusForbidden, router.ViewContext{
			"error": "forbidden",
		})
	}

	email := ctx.Param("email", "")
	if email == "" {
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"error": "missing email",
		})
	}

	if claims, ok := GetRouterClaims(ctx, a.ContextKey); ok {
		if NormalizeEmail(claims.Email()) == NormalizeEmail(email) {
			return ctx.JSON(fiber.StatusConflict, router.ViewContext{
				"error": "cannot revoke your own admin access",
			})
		}
	}

	if err := a.Registry.RevokeAdmin(ctx.Context(), email); err != nil {
		a.Logger.Error("admin revoke error", "email", NormalizeEmail(email), "error", err)
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, router.ViewContext{
		"revoked": NormalizeEmail(email),
	})
}

// renderError maps the error taxonomy onto HTTP statuses. Unknown errors
// collapse to a generic 500 with no detail.
func (a *AuthController) renderError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return ctx.JSON(fiber.StatusInternalServerError, router.ViewContext{
			"error": "internal error",
		})
	}

	status := fiber.StatusInternalServerError
	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		status = fiber.StatusBadRequest
	case goerrors.CategoryAuth:
		status = fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		status = fiber.StatusForbidden
	case goerrors.CategoryConflict:
		status = fiber.StatusConflict
	}

	if richErr.TextCode == TextCodeStoreUnavailable {
		status = fiber.StatusServiceUnavailable
	}

	return ctx.JSON(status, router.ViewContext{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return goerrors.New("values must match", goerrors.CategoryValidation)
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors to field:message
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["payload"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.JSON(fiber.StatusInternalServerError, router.ViewContext{
		"error": err.Error(),
	})
}
