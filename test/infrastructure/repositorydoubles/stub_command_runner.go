//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"strings"
	"sync"

	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories/git"
)

// RunnerCall is one recorded command invocation.
type RunnerCall struct {
	Name string
	Args []string
	Opts git.RunOpts
}

// RunnerResponse is the canned outcome of one invocation.
type RunnerResponse struct {
	Result git.CmdResult
	Err    error
}

// StubCommandRunner replays responses keyed by the first argument after the global
// "-c" options, recording every call.
type StubCommandRunner struct {
	mu sync.Mutex

	Responses map[string][]RunnerResponse
	Calls     []RunnerCall
	// Hook runs before a response is returned; it may block on ctx.
	Hook func(ctx context.Context, subcommand string)
}

var _ git.CommandRunner = (*StubCommandRunner)(nil)

// NewStubCommandRunner creates a runner answering every command with exit 0.
func NewStubCommandRunner() *StubCommandRunner {
	return &StubCommandRunner{Responses: map[string][]RunnerResponse{}}
}

// On queues a response for the given git subcommand.
func (s *StubCommandRunner) On(subcommand string, result git.CmdResult, err error) *StubCommandRunner {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Responses[subcommand] = append(s.Responses[subcommand], RunnerResponse{Result: result, Err: err})
	return s
}

func (s *StubCommandRunner) Run(
	ctx context.Context,
	name string,
	args []string,
	opts git.RunOpts,
) (git.CmdResult, error) {
	subcommand := Subcommand(args)

	s.mu.Lock()
	s.Calls = append(s.Calls, RunnerCall{Name: name, Args: append([]string(nil), args...), Opts: opts})
	var response RunnerResponse
	if queued := s.Responses[subcommand]; len(queued) > 0 {
		response = queued[0]
		s.Responses[subcommand] = queued[1:]
	}
	hook := s.Hook
	s.mu.Unlock()

	if hook != nil {
		hook(ctx, subcommand)
	}
	if err := ctx.Err(); err != nil {
		return git.CmdResult{}, err
	}
	return response.Result, response.Err
}

// CommandLines returns every call without the global options, joined by spaces.
func (s *StubCommandRunner) CommandLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]string, 0, len(s.Calls))
	for _, call := range s.Calls {
		lines = append(lines, strings.Join(StripGlobalOptions(call.Args), " "))
	}
	return lines
}

// Subcommand returns the git subcommand of an argument list.
func Subcommand(args []string) string {
	if rest := StripGlobalOptions(args); len(rest) > 0 {
		return rest[0]
	}
	return ""
}

// StripGlobalOptions drops leading "-c key=value" pairs.
func StripGlobalOptions(args []string) []string {
	for len(args) >= 2 && args[0] == "-c" {
		args = args[2:]
	}
	return args
}
