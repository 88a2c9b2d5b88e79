package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tendant/idm-forms/pkg/catalog"
	"github.com/tendant/idm-forms/pkg/config"
	"github.com/tendant/idm-forms/pkg/errors"
	"github.com/tendant/idm-forms/pkg/form"
	"github.com/tendant/idm-forms/pkg/prompt"
	"github.com/tendant/idm-forms/pkg/submit"
	"github.com/tendant/idm-forms/pkg/tui"
	"github.com/tendant/idm-forms/pkg/validate"
	"github.com/tendant/idm-forms/pkg/view"
)

// ErrRejected is returned when a form ends with errors. They have already been printed.
var ErrRejected = errors.New(errors.ErrCodeValidationFailed, "form was not accepted")

// App holds what the commands share.
type App struct {
	Driver     prompt.Driver
	Logger     *slog.Logger
	TeaOptions []tea.ProgramOption
	configPath string
	baseURL    string
	catalogURL string
	timeout    string
	noInput    bool
}

type Option func(*App)

// WithDriver replaces the interactive prompter.
func WithDriver(d prompt.Driver) Option {
	return func(a *App) {
		a.Driver = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

// WithTeaOptions are passed to every bubbletea program the tui commands start.
func WithTeaOptions(opts ...tea.ProgramOption) Option {
	return func(a *App) {
		a.TeaOptions = opts
	}
}

// NewRootCommand builds the idmforms command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	app := &App{
		Driver: prompt.SurveyDriver{},
		Logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(app)
	}

	root := &cobra.Command{
		Use:           "idmforms",
		Short:         "Log in, sign up and browse laptops from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&app.configPath, "config", "", "YAML config file (environment variables still apply)")
	pf.StringVar(&app.baseURL, "base-url", "", "auth API base URL (overrides IDMFORMS_BASE_URL)")
	pf.StringVar(&app.catalogURL, "catalog-url", "", "laptop listing base URL (overrides IDMFORMS_CATALOG_URL)")
	pf.StringVar(&app.timeout, "timeout", "", "request timeout, e.g. 30s or PT30S")
	pf.BoolVar(&app.noInput, "no-input", false, "never prompt for missing values")

	root.AddCommand(
		app.loginCommand(),
		app.signupCommand(),
		app.laptopsCommand(),
		app.tuiCommand(),
	)
	return root
}

// clientConfig loads the config and applies flag overrides.
func (a *App) clientConfig() (config.ClientConfig, error) {
	cfg, err := config.LoadClient(a.configPath)
	if err != nil {
		return config.ClientConfig{}, err
	}
	if a.baseURL != "" {
		cfg.BaseURL = a.baseURL
	}
	if a.catalogURL != "" {
		cfg.CatalogURL = a.catalogURL
	}
	if a.timeout != "" {
		cfg.RequestTimeout = a.timeout
	}
	if err := cfg.Validate(); err != nil {
		return config.ClientConfig{}, err
	}
	return cfg, nil
}

func (a *App) submitter(cfg config.ClientConfig) (*submit.Submitter, error) {
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}
	return submit.New(
		submit.WithBaseURL(cfg.BaseURL),
		submit.WithTimeout(timeout),
		submit.WithLogger(a.Logger),
	), nil
}

func (a *App) prompter() prompt.Driver {
	if a.noInput {
		return nil
	}
	return a.Driver
}

// runForm submits f, printing the busy line while it runs and the outcome after.
func runForm(ctx context.Context, out io.Writer, f interface {
	Subscribe(func(form.Snapshot)) func()
	Submit(context.Context) error
	State() form.State
}, busy string) error {
	unsubscribe := f.Subscribe(func(s form.Snapshot) {
		if s.State.Loading {
			fmt.Fprintln(out, busy)
		}
	})
	defer unsubscribe()

	if err := f.Submit(ctx); err != nil {
		return err
	}
	st := f.State()
	view.RenderState(out, st, busy)
	if len(st.Errors) > 0 {
		return ErrRejected
	}
	return nil
}

func (a *App) loginCommand() *cobra.Command {
	var (
		email, password string
		remember        bool
		printToken      bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.clientConfig()
			if err != nil {
				return err
			}
			if d := a.prompter(); d != nil {
				if err := prompt.Fill(cmd.Context(), d, prompt.Fields{Email: &email, Password: &password, Remember: &remember}); err != nil {
					return err
				}
			}
			poster, err := a.submitter(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			f := form.NewLoginForm(poster,
				form.WithEndpoint(cfg.LoginEndpoint),
				form.WithLogger(a.Logger),
				form.WithOnSuccess(func(payload any) {
					fmt.Fprintln(out, loginGreeting(payload))
					if printToken {
						if token := payloadString(payload, "access_token"); token != "" {
							fmt.Fprintln(out, token)
						}
					}
				}),
			)
			if err := setFields(f,
				field{validate.FieldEmail, email},
				field{validate.FieldPassword, password},
				field{validate.FieldRemember, remember},
			); err != nil {
				return err
			}
			return runForm(cmd.Context(), out, f, "Signing in...")
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().BoolVar(&remember, "remember", false, "ask for a long-lived session")
	cmd.Flags().BoolVar(&printToken, "print-token", false, "print the access token after a successful login")
	return cmd
}

func (a *App) signupCommand() *cobra.Command {
	var name, email, password, confirm string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.clientConfig()
			if err != nil {
				return err
			}
			if d := a.prompter(); d != nil {
				if err := prompt.Fill(cmd.Context(), d, prompt.Fields{Name: &name, Email: &email, Password: &password, ConfirmPassword: &confirm}); err != nil {
					return err
				}
			}
			poster, err := a.submitter(cfg)
			if err != nil {
				return err
			}

			f := form.NewSignupForm(poster, form.WithEndpoint(cfg.SignupEndpoint), form.WithLogger(a.Logger))
			if err := setFields(f,
				field{validate.FieldName, name},
				field{validate.FieldEmail, email},
				field{validate.FieldPassword, password},
				field{validate.FieldConfirmPassword, confirm},
			); err != nil {
				return err
			}
			return runForm(cmd.Context(), cmd.OutOrStdout(), f, "Creating account...")
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&confirm, "confirm-password", "", "password again")
	return cmd
}

func (a *App) laptopsCommand() *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "laptops [id...]",
		Short: "List laptops, or show the given ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.clientConfig()
			if err != nil {
				return err
			}
			timeout, err := cfg.Timeout()
			if err != nil {
				return err
			}
			client := catalog.NewClient(cfg.CatalogURL,
				catalog.WithConcurrency(concurrency),
				catalog.WithLogger(a.Logger),
				catalog.WithHTTPClient(httpClient(timeout)),
			)

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				laptops, err := client.List(cmd.Context())
				if err != nil {
					return err
				}
				view.RenderLaptops(out, laptops)
				return nil
			}

			ids := make([]catalog.ID, len(args))
			for i, arg := range args {
				ids[i] = catalog.ID(arg)
			}
			laptops, err := client.GetMany(cmd.Context(), ids)
			if err != nil {
				return err
			}
			for i, l := range laptops {
				if i > 0 {
					fmt.Fprintln(out)
				}
				view.RenderLaptop(out, l)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "detail requests to run at once")
	return cmd
}

func (a *App) tuiCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Fill in a form interactively",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "login",
			Short: "Interactive login form",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := a.clientConfig()
				if err != nil {
					return err
				}
				poster, err := a.submitter(cfg)
				if err != nil {
					return err
				}
				f := form.NewLoginForm(poster,
					form.WithEndpoint(cfg.LoginEndpoint),
					form.WithLogger(a.Logger),
					form.WithOnSuccess(func(any) {}),
				)
				return a.runTUI(tui.NewLogin(f, tui.WithContext(cmd.Context())))
			},
		},
		&cobra.Command{
			Use:   "signup",
			Short: "Interactive signup form",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := a.clientConfig()
				if err != nil {
					return err
				}
				poster, err := a.submitter(cfg)
				if err != nil {
					return err
				}
				f := form.NewSignupForm(poster, form.WithEndpoint(cfg.SignupEndpoint), form.WithLogger(a.Logger))
				return a.runTUI(tui.NewSignup(f, tui.WithContext(cmd.Context())))
			},
		},
	)
	return cmd
}

func (a *App) runTUI(m tui.Model) error {
	final, err := tui.Run(m, a.TeaOptions...)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "terminal UI failed")
	}
	return final.Err()
}

type field struct {
	name  string
	value any
}

type fieldUpdater interface {
	UpdateField(name string, value any) error
}

// setFields copies flag and prompt values into f, stopping at the first
// rejected field.
func setFields(f fieldUpdater, fields ...field) error {
	for _, fd := range fields {
		if err := f.UpdateField(fd.name, fd.value); err != nil {
			return err
		}
	}
	return nil
}

func loginGreeting(payload any) string {
	m, _ := payload.(map[string]any)
	user, _ := m["user"].(map[string]any)
	if name := payloadString(user, "name"); name != "" {
		return "Signed in as " + view.Sanitize(name) + "."
	}
	return "Signed in."
}

func payloadString(payload any, key string) string {
	m, _ := payload.(map[string]any)
	s, _ := m[key].(string)
	return s
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context, root *cobra.Command) error {
	return root.ExecuteContext(ctx)
}

func httpClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
