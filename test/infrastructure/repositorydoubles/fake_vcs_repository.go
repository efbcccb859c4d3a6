//go:build integration || unit || test

// Package repositorydoubles provides test doubles (spies, stubs, fakes) for
// repository interfaces. These are hand-crafted implementations, no mock frameworks.
package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

// FakeVCSFactory hands out one in-memory repository per directory.
type FakeVCSFactory struct {
	mu    sync.Mutex
	Repos map[string]*FakeVCSRepository
}

var _ repositories.VCSFactory = (*FakeVCSFactory)(nil)

// NewFakeVCSFactory creates an empty factory.
func NewFakeVCSFactory() *FakeVCSFactory {
	return &FakeVCSFactory{Repos: map[string]*FakeVCSRepository{}}
}

func (f *FakeVCSFactory) Open(dir string) repositories.VCSRepository {
	return f.Repo(dir)
}

// Repo returns the fake for dir, creating it on first use.
func (f *FakeVCSFactory) Repo(dir string) *FakeVCSRepository {
	f.mu.Lock()
	defer f.mu.Unlock()
	repo, ok := f.Repos[dir]
	if !ok {
		repo = NewFakeVCSRepository(dir)
		f.Repos[dir] = repo
	}
	return repo
}

type fakeCommit struct {
	hash    entities.CommitRef
	seq     int
	message string
	parents []entities.CommitRef
	tree    map[string]string
	date    time.Time
}

// FakeVCSRepository is an in-memory repository with branches, annotated tags, three-way
// no-fast-forward merges and merge reverts. Failures can be injected per operation
// through Fail, keyed by method name (e.g. "MergeNoFastForward").
type FakeVCSRepository struct {
	mu sync.Mutex

	dir         string
	initialized bool
	head        string
	work        map[string]string
	index       map[string]string
	commits     map[entities.CommitRef]*fakeCommit
	branches    map[string]entities.CommitRef
	tags        map[string]entities.CommitRef
	tagMessages map[string]string
	conflicts   []string
	seq         int
	clock       time.Time

	Fail  map[string]error
	Calls []string
}

var _ repositories.VCSRepository = (*FakeVCSRepository)(nil)

// NewFakeVCSRepository creates an uninitialised fake for dir.
func NewFakeVCSRepository(dir string) *FakeVCSRepository {
	return &FakeVCSRepository{
		dir:         dir,
		work:        map[string]string{},
		index:       map[string]string{},
		commits:     map[entities.CommitRef]*fakeCommit{},
		branches:    map[string]entities.CommitRef{},
		tags:        map[string]entities.CommitRef{},
		tagMessages: map[string]string{},
		clock:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Fail:        map[string]error{},
	}
}

func (r *FakeVCSRepository) enter(op string) error {
	r.Calls = append(r.Calls, op)
	if err, ok := r.Fail[op]; ok {
		return err
	}
	return nil
}

func (r *FakeVCSRepository) Dir() string { return r.dir }

func (r *FakeVCSRepository) Init(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("Init"); err != nil {
		return err
	}
	r.initialized = true
	r.head = "main"
	return nil
}

func (r *FakeVCSRepository) Clone(_ context.Context, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("Clone"); err != nil {
		return err
	}
	if r.initialized {
		return fmt.Errorf("destination %q already holds a repository (clone of %s)", r.dir, url)
	}
	r.initialized = true
	r.head = "main"
	return nil
}

func (r *FakeVCSRepository) IsRepository(_ context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

func (r *FakeVCSRepository) WriteFile(_ context.Context, path string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("WriteFile"); err != nil {
		return err
	}
	r.work[path] = string(data)
	return nil
}

func (r *FakeVCSRepository) Stage(_ context.Context, paths []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("Stage"); err != nil {
		return err
	}
	if err := r.requireRepo(); err != nil {
		return err
	}
	if len(paths) == 0 {
		r.index = maps.Clone(r.work)
		r.conflicts = nil
		return nil
	}
	for _, path := range paths {
		if content, ok := r.work[path]; ok {
			r.index[path] = content
		} else {
			delete(r.index, path)
		}
		r.conflicts = slices.DeleteFunc(r.conflicts, func(c string) bool { return c == path })
	}
	return nil
}

func (r *FakeVCSRepository) Unstage(_ context.Context, paths []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("Unstage"); err != nil {
		return err
	}
	head := r.treeOf(r.branches[r.head])
	for _, path := range paths {
		resetEntry(r.index, head, path)
	}
	return nil
}

func (r *FakeVCSRepository) RestorePaths(_ context.Context, paths []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("RestorePaths"); err != nil {
		return err
	}
	head := r.treeOf(r.branches[r.head])
	for _, path := range paths {
		resetEntry(r.index, head, path)
		resetEntry(r.work, head, path)
	}
	return nil
}

func (r *FakeVCSRepository) Commit(
	_ context.Context,
	message string,
	metadata map[string]any,
) (entities.CommitRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("Commit"); err != nil {
		return "", err
	}
	if err := r.requireRepo(); err != nil {
		return "", err
	}
	if len(r.conflicts) > 0 {
		return "", entities.NewCommandFailedError("git", []string{"commit"}, 128,
			"committing is not possible because you have unmerged files")
	}
	full, err := entities.AppendMetadataEnvelope(message, metadata)
	if err != nil {
		return "", err
	}
	var parents []entities.CommitRef
	if current := r.branches[r.head]; current != "" {
		parents = append(parents, current)
	}
	commit := r.newCommit(full, parents, maps.Clone(r.index))
	r.branches[r.head] = commit.hash
	return commit.hash, nil
}

func (r *FakeVCSRepository) HeadCommit(_ context.Context) (entities.CommitRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("HeadCommit"); err != nil {
		return "", err
	}
	if err := r.requireRepo(); err != nil {
		return "", err
	}
	return r.branches[r.head], nil
}

func (r *FakeVCSRepository) CreateBranch(_ context.Context, name, from string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("CreateBranch"); err != nil {
		return err
	}
	if err := r.requireRepo(); err != nil {
		return err
	}
	if _, exists := r.branches[name]; exists {
		return entities.NewCommandFailedError("git", []string{"checkout", "-b", name}, 128,
			fmt.Sprintf("fatal: a branch named '%s' already exists", name))
	}
	start := r.branches[r.head]
	if from != "" {
		resolved, ok := r.resolve(from)
		if !ok {
			return entities.NewCommandFailedError("git", []string{"checkout", "-b", name, from}, 128,
				fmt.Sprintf("fatal: invalid reference: %s", from))
		}
		start = resolved
	}
	if start == "" {
		return entities.NewCommandFailedError("git", []string{"checkout", "-b", name}, 128,
			"fatal: not a valid object name: 'HEAD'")
	}
	r.branches[name] = start
	r.switchTo(name)
	return nil
}

func (r *FakeVCSRepository) Checkout(_ context.Context, branch string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("Checkout"); err != nil {
		return err
	}
	if _, ok := r.branches[branch]; !ok {
		return entities.NewCommandFailedError("git", []string{"checkout", branch}, 1,
			fmt.Sprintf("error: pathspec '%s' did not match any file(s) known to git", branch))
	}
	r.switchTo(branch)
	return nil
}

func (r *FakeVCSRepository) CurrentBranch(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireRepo(); err != nil {
		return "", err
	}
	return r.head, nil
}

func (r *FakeVCSRepository) BranchExists(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.branches[name]
	return ok, nil
}

func (r *FakeVCSRepository) MergeNoFastForward(
	_ context.Context,
	branch, message string,
) (entities.CommitRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("MergeNoFastForward"); err != nil {
		return "", err
	}
	theirs, ok := r.branches[branch]
	if !ok {
		return "", entities.NewCommandFailedError("git", []string{"merge", branch}, 1,
			fmt.Sprintf("merge: %s - not something we can merge", branch))
	}
	ours := r.branches[r.head]
	base := r.mergeBase(ours, theirs)

	merged, conflicts := threeWay(r.treeOf(base), r.treeOf(ours), r.treeOf(theirs))
	if len(conflicts) > 0 {
		return "", entities.NewCommandFailedError("git", []string{"merge", "--no-ff", branch}, 1,
			"CONFLICT (content): Merge conflict in "+strings.Join(conflicts, ", "))
	}

	commit := r.newCommit(message, []entities.CommitRef{ours, theirs}, merged)
	r.branches[r.head] = commit.hash
	r.work = maps.Clone(merged)
	r.index = maps.Clone(merged)
	return commit.hash, nil
}

func (r *FakeVCSRepository) Tag(_ context.Context, name, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("Tag"); err != nil {
		return err
	}
	if _, exists := r.tags[name]; exists {
		return entities.NewCommandFailedError("git", []string{"tag", name}, 128,
			fmt.Sprintf("fatal: tag '%s' already exists", name))
	}
	r.tags[name] = r.branches[r.head]
	r.tagMessages[name] = message
	return nil
}

func (r *FakeVCSRepository) ResolveTag(_ context.Context, name string) (entities.CommitRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("ResolveTag"); err != nil {
		return "", err
	}
	ref, ok := r.tags[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", entities.ErrTagNotFound, name)
	}
	return ref, nil
}

func (r *FakeVCSRepository) RevertCommit(_ context.Context, ref entities.CommitRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("RevertCommit"); err != nil {
		return err
	}
	commit, ok := r.commits[ref]
	if !ok {
		return entities.NewCommandFailedError("git", []string{"revert", string(ref)}, 128,
			fmt.Sprintf("fatal: bad revision '%s'", ref))
	}
	var parentTree map[string]string
	if len(commit.parents) > 0 {
		parentTree = r.treeOf(commit.parents[0])
	}

	for _, path := range changedPaths(parentTree, commit.tree) {
		current, hasCurrent := r.index[path]
		after, hasAfter := commit.tree[path]
		if current != after || hasCurrent != hasAfter {
			r.conflicts = append(r.conflicts, path)
			r.work[path] = "<<<<<<< conflict"
			continue
		}
		if before, hadBefore := parentTree[path]; hadBefore {
			r.work[path] = before
			r.index[path] = before
		} else {
			delete(r.work, path)
			delete(r.index, path)
		}
	}
	if len(r.conflicts) > 0 {
		return entities.NewCommandFailedError("git", []string{"revert", "--no-commit", string(ref)}, 1,
			"error: could not revert "+ref.Short())
	}
	return nil
}

func (r *FakeVCSRepository) ResetHard(_ context.Context, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("ResetHard"); err != nil {
		return err
	}
	target := r.branches[r.head]
	if ref != "" && ref != "HEAD" {
		resolved, ok := r.resolve(ref)
		if !ok {
			return fmt.Errorf("unknown ref %q", ref)
		}
		target = resolved
	}
	r.branches[r.head] = target
	r.conflicts = nil
	r.work = maps.Clone(r.treeOf(target))
	r.index = maps.Clone(r.treeOf(target))
	return nil
}

func (r *FakeVCSRepository) Log(_ context.Context, limit int) ([]entities.CommitInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("Log"); err != nil {
		return nil, err
	}
	reachable := r.ancestors(r.branches[r.head])
	commits := make([]*fakeCommit, 0, len(reachable))
	for hash := range reachable {
		commits = append(commits, r.commits[hash])
	}
	sort.Slice(commits, func(i, j int) bool { return commits[i].seq > commits[j].seq })
	if limit > 0 && len(commits) > limit {
		commits = commits[:limit]
	}

	infos := make([]entities.CommitInfo, 0, len(commits))
	for _, commit := range commits {
		subject, body, _ := strings.Cut(commit.message, "\n")
		infos = append(infos, entities.CommitInfo{
			Hash:    commit.hash,
			Author:  "seoremedy",
			Email:   "seoremedy@localhost",
			Date:    commit.date,
			Subject: subject,
			Body:    strings.TrimSpace(body),
			Parents: len(commit.parents),
		})
	}
	return infos, nil
}

func (r *FakeVCSRepository) Diff(_ context.Context, fromRef, toRef string) ([]entities.DiffEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	from, okFrom := r.resolve(fromRef)
	to, okTo := r.resolve(toRef)
	if !okFrom || !okTo {
		return nil, fmt.Errorf("unknown ref in %s..%s", fromRef, toRef)
	}
	before, after := r.treeOf(from), r.treeOf(to)
	entries := []entities.DiffEntry{}
	for _, path := range changedPaths(before, after) {
		_, had := before[path]
		_, has := after[path]
		status := "M"
		switch {
		case !had:
			status = "A"
		case !has:
			status = "D"
		}
		entries = append(entries, entities.DiffEntry{Status: status, File: path})
	}
	return entries, nil
}

func (r *FakeVCSRepository) Status(_ context.Context) ([]entities.StatusEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := []entities.StatusEntry{}
	for _, path := range changedPaths(r.index, r.work) {
		entries = append(entries, entities.StatusEntry{Code: " M", File: path})
	}
	for _, path := range changedPaths(r.treeOf(r.branches[r.head]), r.index) {
		entries = append(entries, entities.StatusEntry{Code: "M ", File: path})
	}
	return entries, nil
}

func (r *FakeVCSRepository) HasConflicts(_ context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conflicts) > 0, nil
}

func (r *FakeVCSRepository) ConflictedFiles(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.conflicts), nil
}

func (r *FakeVCSRepository) ReadFile(_ context.Context, ref, path string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("ReadFile"); err != nil {
		return nil, err
	}
	hash, ok := r.resolve(ref)
	if !ok {
		return nil, fmt.Errorf("unknown ref %q", ref)
	}
	content, ok := r.treeOf(hash)[path]
	if !ok {
		return nil, fmt.Errorf("%s:%s: %w", ref, path, fs.ErrNotExist)
	}
	return []byte(content), nil
}

// --- inspection helpers ---

// WorkingFile returns the working tree content of path.
func (r *FakeVCSRepository) WorkingFile(path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	content, ok := r.work[path]
	return content, ok
}

// StagedFile returns the index content of path.
func (r *FakeVCSRepository) StagedFile(path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	content, ok := r.index[path]
	return content, ok
}

// FileAt returns the content of path at a branch, tag or hash.
func (r *FakeVCSRepository) FileAt(ref, path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hash, ok := r.resolve(ref)
	if !ok {
		return "", false
	}
	content, ok := r.treeOf(hash)[path]
	return content, ok
}

// BranchHead returns the commit a branch points at.
func (r *FakeVCSRepository) BranchHead(name string) entities.CommitRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.branches[name]
}

// HasTag reports whether a tag exists.
func (r *FakeVCSRepository) HasTag(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tags[name]
	return ok
}

// CommitMessage returns the full message of a commit.
func (r *FakeVCSRepository) CommitMessage(ref entities.CommitRef) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if commit, ok := r.commits[ref]; ok {
		return commit.message
	}
	return ""
}

// CommitParents returns the parents of a commit.
func (r *FakeVCSRepository) CommitParents(ref entities.CommitRef) []entities.CommitRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	if commit, ok := r.commits[ref]; ok {
		return slices.Clone(commit.parents)
	}
	return nil
}

// --- internals ---

func (r *FakeVCSRepository) requireRepo() error {
	if !r.initialized {
		return entities.NewCommandFailedError("git", []string{"status"}, 128,
			"fatal: not a git repository (or any of the parent directories): .git")
	}
	return nil
}

func (r *FakeVCSRepository) newCommit(
	message string,
	parents []entities.CommitRef,
	tree map[string]string,
) *fakeCommit {
	r.seq++
	r.clock = r.clock.Add(time.Second)
	commit := &fakeCommit{
		hash:    entities.CommitRef(fmt.Sprintf("%040x", r.seq)),
		seq:     r.seq,
		message: message,
		parents: parents,
		tree:    tree,
		date:    r.clock,
	}
	r.commits[commit.hash] = commit
	return commit
}

func (r *FakeVCSRepository) switchTo(branch string) {
	r.head = branch
	tree := r.treeOf(r.branches[branch])
	r.work = maps.Clone(tree)
	r.index = maps.Clone(tree)
	r.conflicts = nil
}

func (r *FakeVCSRepository) resolve(ref string) (entities.CommitRef, bool) {
	if ref == "HEAD" {
		hash := r.branches[r.head]
		return hash, hash != ""
	}
	if hash, ok := r.branches[ref]; ok {
		return hash, true
	}
	if hash, ok := r.tags[ref]; ok {
		return hash, true
	}
	if _, ok := r.commits[entities.CommitRef(ref)]; ok {
		return entities.CommitRef(ref), true
	}
	return "", false
}

func (r *FakeVCSRepository) treeOf(hash entities.CommitRef) map[string]string {
	if commit, ok := r.commits[hash]; ok {
		return commit.tree
	}
	return map[string]string{}
}

func (r *FakeVCSRepository) ancestors(start entities.CommitRef) map[entities.CommitRef]struct{} {
	seen := map[entities.CommitRef]struct{}{}
	queue := []entities.CommitRef{start}
	for len(queue) > 0 {
		hash := queue[0]
		queue = queue[1:]
		if hash == "" {
			continue
		}
		if _, ok := seen[hash]; ok {
			continue
		}
		seen[hash] = struct{}{}
		if commit, ok := r.commits[hash]; ok {
			queue = append(queue, commit.parents...)
		}
	}
	return seen
}

// mergeBase returns the most recent common ancestor of a and b.
func (r *FakeVCSRepository) mergeBase(a, b entities.CommitRef) entities.CommitRef {
	ofA := r.ancestors(a)
	var best *fakeCommit
	for hash := range r.ancestors(b) {
		if _, shared := ofA[hash]; !shared {
			continue
		}
		if commit := r.commits[hash]; best == nil || commit.seq > best.seq {
			best = commit
		}
	}
	if best == nil {
		return ""
	}
	return best.hash
}

type fakeEntry struct {
	content string
	present bool
}

func entryOf(tree map[string]string, path string) fakeEntry {
	content, ok := tree[path]
	return fakeEntry{content: content, present: ok}
}

func threeWay(base, ours, theirs map[string]string) (map[string]string, []string) {
	paths := map[string]struct{}{}
	for _, tree := range []map[string]string{base, ours, theirs} {
		for path := range tree {
			paths[path] = struct{}{}
		}
	}

	merged := map[string]string{}
	var conflicts []string
	for _, path := range slices.Sorted(maps.Keys(paths)) {
		b, o, t := entryOf(base, path), entryOf(ours, path), entryOf(theirs, path)
		var result fakeEntry
		switch {
		case o == t, t == b:
			result = o
		case o == b:
			result = t
		default:
			conflicts = append(conflicts, path)
			continue
		}
		if result.present {
			merged[path] = result.content
		}
	}
	return merged, conflicts
}

func resetEntry(tree, head map[string]string, path string) {
	if content, ok := head[path]; ok {
		tree[path] = content
	} else {
		delete(tree, path)
	}
}

func changedPaths(before, after map[string]string) []string {
	paths := map[string]struct{}{}
	for path, content := range before {
		if other, ok := after[path]; !ok || other != content {
			paths[path] = struct{}{}
		}
	}
	for path := range after {
		if _, ok := before[path]; !ok {
			paths[path] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(paths))
}

// ErrInjected is a convenience error for failure injection.
var ErrInjected = errors.New("injected failure")
