// Package server owns the lifecycle of the JMX MCP server subprocess: it
// spawns the jar with a fixed launch configuration, waits for it to settle,
// and guarantees the process is gone when Stop returns.
package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/itz4blitz/mcpcheck/internal/config"
	"github.com/itz4blitz/mcpcheck/internal/transport"
)

type State int

const (
	StateStopped State = iota
	StateStarting
	StateReady
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateStarting:
		return "STARTING"
	case StateReady:
		return "READY"
	case StateStopping:
		return "STOPPING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

var validTransitions = map[State]map[State]bool{
	StateStopped:  {StateStarting: true},
	StateStarting: {StateReady: true, StateStopping: true, StateStopped: true},
	StateReady:    {StateStopping: true},
	StateStopping: {StateStopped: true},
}

func IsValidTransition(from, to State) bool {
	if targets, ok := validTransitions[from]; ok {
		return targets[to]
	}
	return false
}

// Server wraps the child process and its three standard streams. The
// process handle is owned exclusively here: Transport borrows the stdio
// pipes, but only Stop terminates and reaps the process.
type Server struct {
	mu     sync.Mutex
	cfg    *config.Config
	logger *slog.Logger

	state  State
	cmd    *exec.Cmd
	tr     *transport.Stdio
	stderr bytes.Buffer
	waitCh chan struct{}
}

func New(cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		state:  StateStopped,
	}
}

func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Server) transitionTo(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !IsValidTransition(s.state, to) {
		return fmt.Errorf("invalid state transition: %s -> %s", s.state, to)
	}
	s.state = to
	return nil
}

// Start launches the jar and waits the settle interval for the Spring
// context to come up. The only start failure conditions are a missing jar,
// a spawn error, and the process exiting during the settle interval; in the
// last case the captured stderr is included in the error.
func (s *Server) Start(ctx context.Context) error {
	if err := s.transitionTo(StateStarting); err != nil {
		return err
	}

	if _, err := os.Stat(s.cfg.JarPath); err != nil {
		s.transitionTo(StateStopped)
		return fmt.Errorf("server jar not found: %s (run `mvn clean package` first)", s.cfg.JarPath)
	}

	settle, err := s.cfg.SettleInterval()
	if err != nil {
		s.transitionTo(StateStopped)
		return err
	}

	cmd := exec.Command(s.cfg.JavaBin, s.cfg.LaunchArgs()...)
	cmd.Env = os.Environ()
	for k, v := range config.ResolveEnv(s.cfg.Env) {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stderr = &s.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		s.transitionTo(StateStopped)
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.transitionTo(StateStopped)
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		s.transitionTo(StateStopped)
		return fmt.Errorf("start server: %w", err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.tr = transport.New(stdin, stdout)
	s.waitCh = make(chan struct{})
	waitCh := s.waitCh
	s.mu.Unlock()

	go func() {
		cmd.Wait()
		close(waitCh)
	}()

	s.logger.Info("server started", "pid", cmd.Process.Pid, "jar", s.cfg.JarPath)

	// Grace period for the server to finish initializing before the first
	// protocol exchange.
	select {
	case <-time.After(settle):
	case <-waitCh:
		s.transitionTo(StateStopped)
		return fmt.Errorf("server exited during startup: %s", s.StderrOutput())
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := s.transitionTo(StateReady); err != nil {
		return err
	}
	s.logger.Info("server ready", "settle", settle.String())
	return nil
}

// Transport returns the stdio transport wrapping the child's pipes. Only
// valid after a successful Start.
func (s *Server) Transport() *transport.Stdio {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tr
}

// StderrOutput returns the server's captured error stream so far.
func (s *Server) StderrOutput() string {
	return strings.TrimSpace(s.stderr.String())
}

// Stop terminates the server: stdin is closed so a well-behaved server
// exits on EOF, SIGTERM asks the rest to leave, and a bounded wait is
// followed by a kill. Idempotent: safe when Start was never called, failed,
// or Stop already ran. No process is left running when it returns.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.state == StateStopped || s.state == StateStopping || s.cmd == nil {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	cmd := s.cmd
	tr := s.tr
	waitCh := s.waitCh
	s.mu.Unlock()

	timeout, err := s.cfg.StopTimeout()
	if err != nil {
		timeout = 5 * time.Second
	}

	tr.Close()
	cmd.Process.Signal(syscall.SIGTERM)

	select {
	case <-waitCh:
		s.logger.Info("server stopped", "pid", cmd.Process.Pid)
	case <-time.After(timeout):
		cmd.Process.Kill()
		<-waitCh
		s.logger.Warn("server killed after stop timeout", "pid", cmd.Process.Pid, "timeout", timeout.String())
	}

	s.transitionTo(StateStopped)
}
