package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

const waitDelay = 2 * time.Second

var errNoCommand = errors.New("no fix generator command configured")

// generateRequest is written to the generator's stdin.
type generateRequest struct {
	Site   entities.Site        `json:"site"`
	Issues []entities.SiteIssue `json:"issues"`
}

// generateResponse is read from the generator's stdout.
type generateResponse struct {
	Fixes []entities.Fix `json:"fixes"`
}

// ExecFixGeneratorRepository delegates fix generation to an external process. The process
// receives {"site", "issues"} as JSON on stdin and answers {"fixes": [...]} on stdout.
type ExecFixGeneratorRepository struct {
	settings entities.FixGeneratorSettings
}

var _ repositories.FixGeneratorRepository = (*ExecFixGeneratorRepository)(nil)

// NewExecFixGeneratorRepository creates a new ExecFixGeneratorRepository.
func NewExecFixGeneratorRepository(settings *entities.Settings) *ExecFixGeneratorRepository {
	return &ExecFixGeneratorRepository{settings: settings.FixGenerator}
}

func (it *ExecFixGeneratorRepository) Name() string { return entities.GeneratorExec }

func (it *ExecFixGeneratorRepository) Generate(
	ctx context.Context,
	site entities.Site,
	issues []entities.SiteIssue,
) ([]entities.Fix, error) {
	if len(it.settings.Command) == 0 {
		return nil, errNoCommand
	}
	if len(issues) == 0 {
		return []entities.Fix{}, nil
	}

	input, err := json.Marshal(generateRequest{Site: site, Issues: issues})
	if err != nil {
		return nil, fmt.Errorf("failed to encode issues: %w", err)
	}

	runCtx := ctx
	if it.settings.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, it.settings.Timeout)
		defer cancel()
	}

	name, args := it.settings.Command[0], it.settings.Command[1:]
	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = site.Dir
	cmd.Env = buildEnv(it.settings.Env, site)
	cmd.Stdin = bytes.NewReader(input)
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Infof("Generating fixes for %d issues of site %q with %s", len(issues), site.ID, name)
	if err = cmd.Run(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &entities.TimeoutError{Command: name, Args: args, Timeout: it.settings.Timeout}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, entities.NewCommandFailedError(name, args, exitErr.ExitCode(), stderr.String())
		}
		return nil, fmt.Errorf("failed to run fix generator %q: %w", name, err)
	}

	return decodeFixes(stdout.Bytes(), issues)
}

func buildEnv(extra []string, site entities.Site) []string {
	env := append(os.Environ(),
		"SEOREMEDY_SITE_ID="+site.ID,
		"SEOREMEDY_SITE_URL="+site.URL,
		"SEOREMEDY_SITE_DIR="+site.Dir,
	)
	return append(env, extra...)
}

// decodeFixes parses the generator output, dropping fixes that cannot be applied and
// numbering fixes that came without an id.
func decodeFixes(output []byte, issues []entities.SiteIssue) ([]entities.Fix, error) {
	var response generateResponse
	if err := json.Unmarshal(output, &response); err != nil {
		return nil, fmt.Errorf("failed to decode fix generator output: %w", err)
	}

	known := make(map[string]struct{}, len(issues))
	for _, issue := range issues {
		known[issue.ID] = struct{}{}
	}

	fixes := make([]entities.Fix, 0, len(response.Fixes))
	for i, fix := range response.Fixes {
		if fix.ID == "" {
			fix.ID = "fix-" + strconv.Itoa(i+1)
		}
		if !fix.Type.Valid() {
			logger.Warnf("Dropping fix %s: unsupported change type %q", fix.ID, fix.Type)
			continue
		}
		if fix.Path == "" {
			logger.Warnf("Dropping fix %s: no target path", fix.ID)
			continue
		}
		if _, ok := known[fix.IssueID]; !ok {
			logger.Warnf("Fix %s references unknown issue %q", fix.ID, fix.IssueID)
		}
		fix.BatchID = ""
		fix.CommitRef = ""
		fixes = append(fixes, fix)
	}
	return fixes, nil
}
