package gameclient

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/cyberinferno/gamesession/command"
	"github.com/cyberinferno/gamesession/logger"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownScenario = errors.New("gameclient: unknown scenario")
	ErrUnexpectedReply = errors.New("gameclient: unexpected reply")
	ErrConnectionLost  = errors.New("gameclient: connection lost")
)

// ScenarioOptions parameterise a scenario run.
type ScenarioOptions struct {
	// User is sent in HELLO commands.
	User string
	// Interval is the pause between HELLOs in the idle scenario.
	Interval time.Duration
	// Duration bounds scenarios that otherwise run until cancelled; 0 means
	// until ctx is done.
	Duration time.Duration
}

// Session is a connected client plus the replies it has received, handed to
// a scenario step by step.
type Session struct {
	client  *Client
	replies chan command.Reply
	lost    chan struct{}
	once    sync.Once
	log     logger.Logger
}

// Scenario drives one connection through a fixed exchange with the server.
type Scenario func(ctx context.Context, s *Session, opts ScenarioOptions) error

var scenarios = map[string]Scenario{
	"start-stop": startStop,
	"bad-hello":  badHello,
	"idle":       idle,
	"silent":     silent,
	"putobj":     putObj,
}

// ScenarioNames returns the registered scenario names, sorted.
func ScenarioNames() []string {
	return slices.Sorted(maps.Keys(scenarios))
}

// RunScenario connects a fresh client to cfg.Address and runs the named
// scenario on it. The client is closed before RunScenario returns.
//
// Returns:
//   - ErrUnknownScenario, a connect error, or the scenario's error
func RunScenario(ctx context.Context, cfg Config, name string, opts ScenarioOptions, log logger.Logger) error {
	scenario, ok := scenarios[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}

	log = log.With(logger.Field{Key: "scenario", Value: name}, logger.Field{Key: "user", Value: opts.User})
	s := &Session{
		client:  NewClient(cfg),
		replies: make(chan command.Reply, 64),
		lost:    make(chan struct{}),
		log:     log,
	}

	s.client.OnReply(func(e ReplyEvent) {
		select {
		case s.replies <- e.Reply:
		default:
			log.Warn("reply dropped", logger.Field{Key: "code", Value: e.Reply.Code})
		}
	})
	s.client.OnState(func(e StateEvent) {
		log.Debug("connection state", logger.Field{Key: "state", Value: e.State.String()})
		if e.State == Disconnected && e.Error != nil {
			s.once.Do(func() { close(s.lost) })
		}
	})
	s.client.OnError(func(e ErrorEvent) {
		log.Debug("client error", logger.Err(e.Error))
	})

	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	if err := s.client.Connect(ctx); err != nil {
		return err
	}
	defer s.client.Close()

	log.Info("scenario started")
	if err := scenario(ctx, s, opts); err != nil {
		log.Error("scenario failed", logger.Err(err))
		return fmt.Errorf("scenario %s: %w", name, err)
	}

	log.Info("scenario finished")
	return nil
}

// RunScenarios runs each named scenario on its own connection concurrently.
// The user name of each run is suffixed with its index so runs do not
// contend for one identity.
//
// Returns:
//   - The first scenario error; the remaining runs are cancelled
func RunScenarios(ctx context.Context, cfg Config, names []string, opts ScenarioOptions, log logger.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		runOpts := opts
		if len(names) > 1 {
			runOpts.User = fmt.Sprintf("%s%d", opts.User, i+1)
		}

		g.Go(func() error {
			return RunScenario(ctx, cfg, name, runOpts, log)
		})
	}

	return g.Wait()
}

// Expect sends cmd and waits for the next reply, failing unless its status
// and code match.
func (s *Session) Expect(ctx context.Context, cmd command.Command, status, code string) (command.Reply, error) {
	if err := s.client.Send(cmd); err != nil {
		return command.Reply{}, err
	}

	reply, err := s.Next(ctx)
	if err != nil {
		return command.Reply{}, err
	}

	if reply.Status != status || reply.Code != code {
		return reply, fmt.Errorf("%w to %s: got %s/%s %q, want %s/%s",
			ErrUnexpectedReply, cmd.Identifier(), reply.Status, reply.Code, reply.Detail, status, code)
	}

	s.log.Debug("reply", logger.Field{Key: "command", Value: cmd.Identifier()}, logger.Field{Key: "code", Value: reply.Code})
	return reply, nil
}

// Next waits for the next reply.
func (s *Session) Next(ctx context.Context) (command.Reply, error) {
	select {
	case reply := <-s.replies:
		return reply, nil
	case <-s.lost:
		return command.Reply{}, ErrConnectionLost
	case <-ctx.Done():
		return command.Reply{}, ctx.Err()
	}
}

func startStop(ctx context.Context, s *Session, opts ScenarioOptions) error {
	if _, err := s.Expect(ctx, command.NewHello(opts.User, "start-stop"), command.StatusAck, command.CodeOK); err != nil {
		return err
	}

	_, err := s.Expect(ctx, command.NewBye(), command.StatusAck, command.CodeOK)
	return err
}

func badHello(ctx context.Context, s *Session, opts ScenarioOptions) error {
	if _, err := s.Expect(ctx, command.NewHello(opts.User+"one", ""), command.StatusAck, command.CodeOK); err != nil {
		return err
	}

	_, err := s.Expect(ctx, command.NewHello(opts.User+"two", ""), command.StatusNak, command.CodeAlreadyOpen)
	return err
}

// idle keeps the connection busy with a HELLO every interval until ctx ends.
// Only the first HELLO is accepted.
func idle(ctx context.Context, s *Session, opts ScenarioOptions) error {
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	hello := command.NewHello(opts.User, "idle")
	if _, err := s.Expect(ctx, hello, command.StatusAck, command.CodeOK); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if _, err := s.Expect(ctx, hello, command.StatusNak, command.CodeAlreadyOpen); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return err
		}
	}
}

// silent sends nothing and waits for the server to drop the connection.
func silent(ctx context.Context, s *Session, _ ScenarioOptions) error {
	select {
	case <-s.lost:
		s.log.Info("server closed the connection")
		return nil
	case <-ctx.Done():
		return nil
	}
}

func putObj(ctx context.Context, s *Session, opts ScenarioOptions) error {
	if _, err := s.Expect(ctx, command.NewHello(opts.User, "putobj"), command.StatusAck, command.CodeOK); err != nil {
		return err
	}

	name, err := command.NewObjectProperty("name", []byte("crowbar"))
	if err != nil {
		return err
	}

	pos, err := command.NewObjectProperty("pos", []byte{0x10, 0x00, 0x20, 0x00})
	if err != nil {
		return err
	}

	put := command.NewPutObj(command.OperationAdd, name, pos)
	if _, err := s.Expect(ctx, put, command.StatusNak, command.CodeNotImpl); err != nil {
		return err
	}

	_, err = s.Expect(ctx, command.NewBye(), command.StatusAck, command.CodeOK)
	return err
}
