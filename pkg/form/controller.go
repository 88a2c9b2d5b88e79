package form

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tendant/idm-forms/pkg/errors"
	"github.com/tendant/idm-forms/pkg/submit"
)

// Default endpoints of the auth API.
const (
	DefaultLoginEndpoint  = "/api/auth/login"
	DefaultSignupEndpoint = "/api/signup"
)

// SignupSuccessMessage is published after a successful signup.
const SignupSuccessMessage = "Signup successful. You can now log in."

// ErrSubmissionInFlight is returned by Submit while a previous submission is running.
var ErrSubmissionInFlight = errors.New(errors.ErrCodeConflict, "a submission is already in flight")

// Phase is where a form is in its submit cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseSubmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// State is the presentation state derived from submit attempts.
type State struct {
	Phase   Phase
	Loading bool
	Errors  []string
	Success string
}

// Snapshot is a copy of a form's values and state at one point in time.
type Snapshot struct {
	Values Values
	State  State
}

// Poster sends one JSON submission. *submit.Submitter implements it.
type Poster interface {
	Submit(ctx context.Context, endpoint string, body any) submit.Result
}

type settings struct {
	endpoint  string
	onSuccess func(payload any)
	logger    *slog.Logger
}

type Option func(*settings)

// WithEndpoint overrides the form's default endpoint.
func WithEndpoint(endpoint string) Option {
	return func(s *settings) {
		if endpoint != "" {
			s.endpoint = endpoint
		}
	}
}

// WithOnSuccess registers the login success callback. It receives the decoded
// response body untouched. The signup form ignores it.
func WithOnSuccess(fn func(payload any)) Option {
	return func(s *settings) {
		s.onSuccess = fn
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// controller owns the values and state of one form instance. All mutation
// happens under mu; subscribers are called outside of it.
type controller struct {
	mu       sync.Mutex
	values   Values
	state    State
	subs     map[int]func(Snapshot)
	nextSub  int
	detached bool

	poster   Poster
	settings settings
}

func newController(poster Poster, endpoint string, opts []Option) *controller {
	c := &controller{
		poster: poster,
		subs:   make(map[int]func(Snapshot)),
		settings: settings{
			endpoint: endpoint,
			logger:   slog.Default(),
		},
	}
	for _, opt := range opts {
		opt(&c.settings)
	}
	return c
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned function removes the subscription.
func (c *controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Detach drops every subscriber. A submission still in flight settles the
// state but nobody is notified.
func (c *controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detached = true
	c.subs = make(map[int]func(Snapshot))
}

func (c *controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *controller) Values() Values {
	return c.Snapshot().Values
}

func (c *controller) State() State {
	return c.Snapshot().State
}

// Endpoint returns where the form submits to.
func (c *controller) Endpoint() string {
	return c.settings.endpoint
}

// UpdateField sets one field. Errors from the last attempt stay visible
// until the next submit.
func (c *controller) UpdateField(name string, value any) error {
	c.mu.Lock()
	if err := c.values.UpdateField(name, value); err != nil {
		c.mu.Unlock()
		return err
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// begin runs the Idle → Validating → {Idle | Submitting} part of a cycle
// atomically. It returns the values to submit, or ok=false when validation
// failed or a submission is already running.
func (c *controller) begin(check func(Values) []string) (values Values, ok bool, err error) {
	c.mu.Lock()
	if c.state.Phase != PhaseIdle || c.state.Loading {
		c.mu.Unlock()
		return Values{}, false, ErrSubmissionInFlight
	}

	c.state.Errors = nil
	c.state.Success = ""
	c.state.Phase = PhaseValidating
	validating := c.snapshotLocked()

	if errs := check(c.values); len(errs) > 0 {
		c.state.Errors = errs
		c.state.Phase = PhaseIdle
		rejected := c.snapshotLocked()
		c.mu.Unlock()

		c.notify(validating)
		c.notify(rejected)
		return Values{}, false, nil
	}

	c.state.Loading = true
	c.state.Phase = PhaseSubmitting
	values = c.values
	submitting := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(validating)
	c.notify(submitting)
	return values, true, nil
}

// finish ends the Submitting phase. apply runs under the lock on success.
func (c *controller) finish(res submit.Result, apply func(*Values, *State)) {
	c.mu.Lock()
	c.state.Loading = false
	c.state.Phase = PhaseIdle
	if res.OK() {
		if apply != nil {
			apply(&c.values, &c.state)
		}
	} else {
		c.state.Errors = []string{res.Message()}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

func (c *controller) post(ctx context.Context, body any) submit.Result {
	return c.poster.Submit(context.WithoutCancel(ctx), c.settings.endpoint, body)
}

func (c *controller) snapshotLocked() Snapshot {
	st := c.state
	if st.Errors != nil {
		st.Errors = append([]string(nil), st.Errors...)
	}
	return Snapshot{Values: c.values, State: st}
}

func (c *controller) notify(snap Snapshot) {
	c.mu.Lock()
	if c.detached || len(c.subs) == 0 {
		c.mu.Unlock()
		return
	}
	fns := make([]func(Snapshot), 0, len(c.subs))
	for id := 0; id < c.nextSub; id++ {
		if fn, ok := c.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
