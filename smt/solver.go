package smt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	ErrUnsat   = errors.New("constraints are unsatisfiable")
	ErrUnknown = errors.New("solver returned unknown")
)

// Solver decides a session and returns a satisfying model.
type Solver interface {
	Name() string
	Check(ctx context.Context, s *Session) (Model, error)
}

// CommandSolver runs an external SMT-LIB 2 solver that reads the script
// from stdin and answers check-sat followed by get-model on stdout.
type CommandSolver struct {
	name    string
	Path    string
	Args    []string
	Options []string
	Timeout time.Duration
}

// NewCommandSolver uses name as the binary when path is empty.
func NewCommandSolver(name, path string, timeout time.Duration, args ...string) *CommandSolver {
	if path == "" {
		path = name
	}
	return &CommandSolver{name: name, Path: path, Args: args, Timeout: timeout}
}

func NewZ3Solver(path string, timeout time.Duration) *CommandSolver {
	return NewCommandSolver("z3", path, timeout, "-in", "-smt2")
}

func NewCVC5Solver(path string, timeout time.Duration) *CommandSolver {
	c := NewCommandSolver("cvc5", path, timeout, "--lang=smt2", "--produce-models")
	c.Options = []string{"(set-option :produce-models true)"}
	return c
}

func (c *CommandSolver) Name() string { return c.name }

func (c *CommandSolver) script(s *Session) (*bytes.Buffer, error) {
	var script bytes.Buffer
	for _, opt := range c.Options {
		script.WriteString(opt)
		script.WriteByte('\n')
	}
	if _, err := s.WriteTo(&script); err != nil {
		return nil, fmt.Errorf("failed to render constraints: %w", err)
	}
	script.WriteString("(check-sat)\n(get-model)\n")
	return &script, nil
}

func (c *CommandSolver) Check(ctx context.Context, s *Session) (Model, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	script, err := c.script(s)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = script
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	log.Infof("%s finished in %v with %d assertions", c.name, time.Since(start), len(s.assertions))

	out := stdout.String()
	status, rest, _ := strings.Cut(strings.TrimLeft(out, " \t\r\n"), "\n")
	switch strings.TrimSpace(status) {
	case "sat":
		model, err := ParseModel(rest)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s model: %w", c.name, err)
		}
		return model, nil
	case "unsat":
		return nil, ErrUnsat
	case "unknown":
		return nil, ErrUnknown
	}
	if runErr != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", c.name, runErr, strings.TrimSpace(stderr.String()+out))
	}
	return nil, fmt.Errorf("unexpected %s output: %q", c.name, status)
}
