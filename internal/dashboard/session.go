package dashboard

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// State is the lifecycle state of a dashboard session.
type State int

const (
	Loading State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Screens shown to the user, one per state.
const (
	ScreenLoading   = "loading"
	ScreenError     = "error"
	ScreenDashboard = "dashboard"
)

// ModelLoader produces a fully populated model or fails as a whole.
type ModelLoader interface {
	Load(ctx context.Context) (*Model, error)
}

// Session moves once from Loading to Ready or Failed. Ready and Failed
// are terminal.
type Session struct {
	id string

	mu    sync.RWMutex
	state State
	model *Model
	err   error
	done  chan struct{}
}

// Snapshot is a consistent view of a session.
type Snapshot struct {
	ID    string
	State State
	Model *Model
	Err   error
}

// Screen returns the screen to show for the snapshot's state.
func (s Snapshot) Screen() string {
	switch s.State {
	case Ready:
		return ScreenDashboard
	case Failed:
		return ScreenError
	default:
		return ScreenLoading
	}
}

func NewSession() *Session {
	return &Session{
		id:    uuid.NewString(),
		state: Loading,
		done:  make(chan struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Complete moves the session to Ready with model.
func (s *Session) Complete(model *Model) error {
	return s.settle(Ready, model, nil)
}

// Fail moves the session to Failed with err.
func (s *Session) Fail(err error) error {
	return s.settle(Failed, nil, err)
}

func (s *Session) settle(state State, model *Model, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Loading {
		return ErrAlreadySettled
	}
	s.state = state
	s.model = model
	s.err = err
	close(s.done)
	return nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{ID: s.id, State: s.state, Model: s.model, Err: s.err}
}

// Done is closed once the session leaves Loading.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run performs the session's single load and settles it.
func (s *Session) Run(ctx context.Context, loader ModelLoader) Snapshot {
	model, err := loader.Load(ctx)
	if err == nil && model == nil {
		err = errNoModel
	}
	if err != nil {
		_ = s.Fail(err)
	} else {
		_ = s.Complete(model)
	}
	return s.Snapshot()
}
