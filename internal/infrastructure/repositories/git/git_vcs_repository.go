package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

const (
	gitBinary     = "git"
	initialBranch = "main"

	// log record layout: hash, author, email, date, parents, raw body
	logFormat       = "--format=%H%x1f%an%x1f%ae%x1f%aI%x1f%P%x1f%B%x1e"
	logFieldSep     = "\x1f"
	logRecordSep    = "\x1e"
	logFieldsPerRow = 6
)

// VCSRepository drives the git CLI for writes and go-git for ref and object lookups.
// All calls on one directory are serialized through a mutex shared by every instance the
// factory opens for that directory.
type VCSRepository struct {
	dir      string
	runner   CommandRunner
	settings entities.TrackingSettings
	metrics  repositories.MetricsRepository
	mu       *sync.Mutex
}

var _ repositories.VCSRepository = (*VCSRepository)(nil)

// VCSFactory opens git repositories and hands out one mutex per absolute directory.
type VCSFactory struct {
	runner   CommandRunner
	settings entities.TrackingSettings
	metrics  repositories.MetricsRepository
	locks    sync.Map
}

var _ repositories.VCSFactory = (*VCSFactory)(nil)

// NewVCSFactory creates a new VCSFactory.
func NewVCSFactory(
	runner CommandRunner,
	settings *entities.Settings,
	metrics repositories.MetricsRepository,
) *VCSFactory {
	return &VCSFactory{runner: runner, settings: settings.Tracking, metrics: metrics}
}

func (it *VCSFactory) Open(dir string) repositories.VCSRepository {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	lock, _ := it.locks.LoadOrStore(dir, &sync.Mutex{})
	return &VCSRepository{
		dir:      dir,
		runner:   it.runner,
		settings: it.settings,
		metrics:  it.metrics,
		mu:       lock.(*sync.Mutex),
	}
}

func (it *VCSRepository) Dir() string { return it.dir }

func (it *VCSRepository) exclusive() func() {
	it.mu.Lock()
	return it.mu.Unlock
}

// exec runs git and returns its raw result. Only failures to run and timeouts are errors.
func (it *VCSRepository) exec(ctx context.Context, dir string, stdin []byte, args ...string) (CmdResult, error) {
	timeout := it.settings.CommandTimeout
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	full := append([]string{
		"-c", "user.name=" + it.settings.AuthorName,
		"-c", "user.email=" + it.settings.AuthorEmail,
		"-c", "commit.gpgsign=false",
		"-c", "tag.gpgsign=false",
	}, args...)

	started := time.Now()
	result, err := it.runner.Run(runCtx, gitBinary, full, RunOpts{
		Dir:   dir,
		Env:   []string{"GIT_TERMINAL_PROMPT=0", "LC_ALL=C"},
		Stdin: stdin,
	})
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = &entities.TimeoutError{Command: gitBinary, Args: args, Timeout: timeout}
	}

	outcome := err
	if outcome == nil && result.ExitCode != 0 {
		outcome = entities.NewCommandFailedError(gitBinary, args, result.ExitCode, result.Stderr)
	}
	it.metrics.VCSCommand(args[0], time.Since(started), outcome)
	return result, err
}

// run runs git in the repository and turns a non-zero exit into a CommandFailedError.
func (it *VCSRepository) run(ctx context.Context, args ...string) (string, error) {
	return it.runWithInput(ctx, nil, args...)
}

func (it *VCSRepository) runWithInput(ctx context.Context, stdin []byte, args ...string) (string, error) {
	result, err := it.exec(ctx, it.dir, stdin, args...)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", entities.NewCommandFailedError(gitBinary, args, result.ExitCode, result.Stderr)
	}
	return result.Stdout, nil
}

func (it *VCSRepository) open() (*gogit.Repository, error) {
	repo, err := gogit.PlainOpen(it.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %q: %w", it.dir, err)
	}
	return repo, nil
}

func (it *VCSRepository) Init(ctx context.Context) error {
	defer it.exclusive()()
	if err := os.MkdirAll(it.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %q: %w", it.dir, err)
	}
	_, err := it.run(ctx, "init", "-b", initialBranch)
	return err
}

func (it *VCSRepository) Clone(ctx context.Context, url string) error {
	defer it.exclusive()()
	parent := filepath.Dir(it.dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("failed to create %q: %w", parent, err)
	}
	args := []string{"clone", "--", url, it.dir}
	result, err := it.exec(ctx, parent, nil, args...)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return entities.NewCommandFailedError(gitBinary, args, result.ExitCode, result.Stderr)
	}
	return nil
}

func (it *VCSRepository) IsRepository(_ context.Context) bool {
	defer it.exclusive()()
	_, err := gogit.PlainOpen(it.dir)
	return err == nil
}

func (it *VCSRepository) WriteFile(_ context.Context, path string, data []byte) error {
	defer it.exclusive()()
	rel, err := entities.CleanSitePath(path)
	if err != nil {
		return err
	}
	target := filepath.Join(it.dir, filepath.FromSlash(rel))
	if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create parent of %q: %w", rel, err)
	}
	if err = os.WriteFile(target, data, 0o644); err != nil { //nolint:gosec // site files are world-readable
		return fmt.Errorf("failed to write %q: %w", rel, err)
	}
	return nil
}

func (it *VCSRepository) Stage(ctx context.Context, paths []string) error {
	defer it.exclusive()()
	args := []string{"add", "-A"}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}
	_, err := it.run(ctx, args...)
	return err
}

func (it *VCSRepository) Unstage(ctx context.Context, paths []string) error {
	defer it.exclusive()()
	rels, err := cleanPaths(paths)
	if err != nil || len(rels) == 0 {
		return err
	}
	_, err = it.run(ctx, append([]string{"reset", "-q", "HEAD", "--"}, rels...)...)
	return err
}

func (it *VCSRepository) RestorePaths(ctx context.Context, paths []string) error {
	defer it.exclusive()()
	rels, err := cleanPaths(paths)
	if err != nil || len(rels) == 0 {
		return err
	}
	tracked, untracked, err := it.splitByHead(rels)
	if err != nil {
		return err
	}

	if _, err = it.run(ctx, append([]string{"reset", "-q", "HEAD", "--"}, rels...)...); err != nil {
		return err
	}
	if len(tracked) > 0 {
		if _, err = it.run(ctx, append([]string{"checkout", "HEAD", "--"}, tracked...)...); err != nil {
			return err
		}
	}
	for _, rel := range untracked {
		removeErr := os.Remove(filepath.Join(it.dir, filepath.FromSlash(rel)))
		if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %q: %w", rel, removeErr)
		}
	}
	logger.Debugf("Restored %s in %q", strings.Join(rels, ", "), it.dir)
	return nil
}

// splitByHead separates paths present in the HEAD tree from new ones.
func (it *VCSRepository) splitByHead(rels []string) ([]string, []string, error) {
	repo, err := it.open()
	if err != nil {
		return nil, nil, err
	}
	ref, err := repo.Head()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read HEAD commit: %w", err)
	}

	var tracked, untracked []string
	for _, rel := range rels {
		_, fileErr := commit.File(rel)
		switch {
		case fileErr == nil:
			tracked = append(tracked, rel)
		case errors.Is(fileErr, object.ErrFileNotFound):
			untracked = append(untracked, rel)
		default:
			return nil, nil, fmt.Errorf("failed to look up %q at HEAD: %w", rel, fileErr)
		}
	}
	return tracked, untracked, nil
}

func cleanPaths(paths []string) ([]string, error) {
	rels := make([]string, 0, len(paths))
	for _, path := range paths {
		rel, err := entities.CleanSitePath(path)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, nil
}

func (it *VCSRepository) Commit(
	ctx context.Context,
	message string,
	metadata map[string]any,
) (entities.CommitRef, error) {
	full, err := entities.AppendMetadataEnvelope(message, metadata)
	if err != nil {
		return "", err
	}

	defer it.exclusive()()
	if _, err = it.runWithInput(ctx, []byte(full), "commit", "--allow-empty", "--cleanup=verbatim", "-F", "-"); err != nil {
		return "", err
	}
	return it.head()
}

func (it *VCSRepository) HeadCommit(_ context.Context) (entities.CommitRef, error) {
	defer it.exclusive()()
	return it.head()
}

func (it *VCSRepository) head() (entities.CommitRef, error) {
	repo, err := it.open()
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return entities.CommitRef(ref.Hash().String()), nil
}

func (it *VCSRepository) CreateBranch(ctx context.Context, name, from string) error {
	defer it.exclusive()()
	args := []string{"checkout", "-b", name}
	if from != "" {
		args = append(args, from)
	}
	_, err := it.run(ctx, args...)
	return err
}

func (it *VCSRepository) Checkout(ctx context.Context, branch string) error {
	defer it.exclusive()()
	_, err := it.run(ctx, "checkout", branch, "--")
	return err
}

func (it *VCSRepository) CurrentBranch(ctx context.Context) (string, error) {
	defer it.exclusive()()
	out, err := it.run(ctx, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (it *VCSRepository) BranchExists(ctx context.Context, name string) (bool, error) {
	defer it.exclusive()()
	args := []string{"rev-parse", "--verify", "--quiet", "refs/heads/" + name}
	result, err := it.exec(ctx, it.dir, nil, args...)
	if err != nil {
		return false, err
	}
	switch result.ExitCode {
	case 0:
		return true, nil
	case 1:
		return false, nil
	default:
		return false, entities.NewCommandFailedError(gitBinary, args, result.ExitCode, result.Stderr)
	}
}

func (it *VCSRepository) MergeNoFastForward(
	ctx context.Context,
	branch, message string,
) (entities.CommitRef, error) {
	defer it.exclusive()()
	args := []string{"merge", "--no-ff", "--no-edit", "--cleanup=verbatim", "-m", message, branch}
	result, err := it.exec(ctx, it.dir, nil, args...)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		mergeErr := entities.NewCommandFailedError(gitBinary, args, result.ExitCode, result.Stderr)
		if conflicted, _ := it.conflictedFiles(ctx); len(conflicted) > 0 {
			logger.Warnf("Merge of %q into %q conflicted on %s, aborting", branch, it.dir, strings.Join(conflicted, ", "))
			if _, abortErr := it.run(ctx, "merge", "--abort"); abortErr != nil {
				return "", errors.Join(mergeErr, abortErr)
			}
			return "", fmt.Errorf("%w (conflicts: %s)", mergeErr, strings.Join(conflicted, ", "))
		}
		return "", mergeErr
	}
	return it.head()
}

func (it *VCSRepository) Tag(ctx context.Context, name, message string) error {
	defer it.exclusive()()
	_, err := it.run(ctx, "tag", "-a", name, "-m", message)
	return err
}

func (it *VCSRepository) ResolveTag(_ context.Context, name string) (entities.CommitRef, error) {
	defer it.exclusive()()
	repo, err := it.open()
	if err != nil {
		return "", err
	}
	ref, err := repo.Tag(name)
	if errors.Is(err, gogit.ErrTagNotFound) {
		return "", fmt.Errorf("%w: %s", entities.ErrTagNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve tag %q: %w", name, err)
	}

	annotated, err := repo.TagObject(ref.Hash())
	switch {
	case err == nil:
		commit, commitErr := annotated.Commit()
		if commitErr != nil {
			return "", fmt.Errorf("tag %q does not point at a commit: %w", name, commitErr)
		}
		return entities.CommitRef(commit.Hash.String()), nil
	case errors.Is(err, plumbing.ErrObjectNotFound):
		return entities.CommitRef(ref.Hash().String()), nil
	default:
		return "", fmt.Errorf("failed to read tag %q: %w", name, err)
	}
}

func (it *VCSRepository) RevertCommit(ctx context.Context, ref entities.CommitRef) error {
	defer it.exclusive()()
	parents, err := it.parentCount(ref)
	if err != nil {
		return err
	}
	args := []string{"revert", "--no-commit"}
	if parents > 1 {
		args = append(args, "-m", "1")
	}
	args = append(args, string(ref))
	_, err = it.run(ctx, args...)
	return err
}

func (it *VCSRepository) parentCount(ref entities.CommitRef) (int, error) {
	repo, err := it.open()
	if err != nil {
		return 0, err
	}
	commit, err := repo.CommitObject(plumbing.NewHash(string(ref)))
	if err != nil {
		return 0, fmt.Errorf("failed to read commit %s: %w", ref.Short(), err)
	}
	return commit.NumParents(), nil
}

func (it *VCSRepository) ResetHard(ctx context.Context, ref string) error {
	defer it.exclusive()()
	args := []string{"reset", "--hard"}
	if ref != "" {
		args = append(args, ref)
	}
	_, err := it.run(ctx, args...)
	return err
}

func (it *VCSRepository) Log(ctx context.Context, limit int) ([]entities.CommitInfo, error) {
	defer it.exclusive()()
	head, err := it.head()
	if err != nil {
		return nil, err
	}
	if head == "" {
		return []entities.CommitInfo{}, nil
	}

	args := []string{"log", "--topo-order", logFormat}
	if limit > 0 {
		args = append(args, fmt.Sprintf("--max-count=%d", limit))
	}
	out, err := it.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLog(out)
}

// parseLog reads records produced with logFormat.
func parseLog(out string) ([]entities.CommitInfo, error) {
	commits := []entities.CommitInfo{}
	for _, record := range strings.Split(out, logRecordSep) {
		record = strings.TrimLeft(record, "\n")
		if strings.TrimSpace(record) == "" {
			continue
		}
		fields := strings.SplitN(record, logFieldSep, logFieldsPerRow)
		if len(fields) != logFieldsPerRow {
			return nil, fmt.Errorf("malformed log record: %q", record)
		}
		date, err := time.Parse(time.RFC3339, fields[3])
		if err != nil {
			return nil, fmt.Errorf("malformed commit date %q: %w", fields[3], err)
		}
		subject, body, _ := strings.Cut(strings.TrimRight(fields[5], "\n"), "\n")
		commits = append(commits, entities.CommitInfo{
			Hash:    entities.CommitRef(fields[0]),
			Author:  fields[1],
			Email:   fields[2],
			Date:    date,
			Subject: subject,
			Body:    strings.TrimSpace(body),
			Parents: len(strings.Fields(fields[4])),
		})
	}
	return commits, nil
}

func (it *VCSRepository) Diff(ctx context.Context, fromRef, toRef string) ([]entities.DiffEntry, error) {
	defer it.exclusive()()
	out, err := it.run(ctx, "diff", "--name-status", fromRef, toRef, "--")
	if err != nil {
		return nil, err
	}
	entries := []entities.DiffEntry{}
	for _, line := range nonEmptyLines(out) {
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		// renames and copies list the old and the new path
		entries = append(entries, entities.DiffEntry{Status: fields[0][:1], File: fields[len(fields)-1]})
	}
	return entries, nil
}

func (it *VCSRepository) Status(ctx context.Context) ([]entities.StatusEntry, error) {
	defer it.exclusive()()
	out, err := it.run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	entries := []entities.StatusEntry{}
	for _, line := range nonEmptyLines(out) {
		if len(line) < 4 {
			continue
		}
		entries = append(entries, entities.StatusEntry{Code: line[:2], File: line[3:]})
	}
	return entries, nil
}

func (it *VCSRepository) HasConflicts(ctx context.Context) (bool, error) {
	files, err := it.ConflictedFiles(ctx)
	return len(files) > 0, err
}

func (it *VCSRepository) ConflictedFiles(ctx context.Context) ([]string, error) {
	defer it.exclusive()()
	return it.conflictedFiles(ctx)
}

func (it *VCSRepository) conflictedFiles(ctx context.Context) ([]string, error) {
	out, err := it.run(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	return nonEmptyLines(out), nil
}

func (it *VCSRepository) ReadFile(ctx context.Context, ref, path string) ([]byte, error) {
	defer it.exclusive()()
	rel, err := entities.CleanSitePath(path)
	if err != nil {
		return nil, err
	}
	out, err := it.run(ctx, "show", ref+":"+rel)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func nonEmptyLines(out string) []string {
	lines := []string{}
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimRight(line, "\r"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
