package commands

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

// ChangeTracking turns file edits into batches of reversible repository history, one
// repository per site.
type ChangeTracking interface {
	StartBatch(ctx context.Context, siteID, batchID, description string) (string, error)
	RecordChange(
		ctx context.Context,
		siteID, filePath string,
		changeType entities.ChangeType,
		metadata map[string]any,
	) (entities.CommitRef, error)
	ApplyChange(ctx context.Context, siteID string, fix entities.Fix) (entities.Fix, error)
	FinalizeBatch(ctx context.Context, siteID, batchID string, approved bool) (*entities.FinalizeResult, error)
	RollbackBatch(ctx context.Context, siteID, batchID string) (*entities.RollbackBatchResult, error)
	GetChangeHistory(ctx context.Context, siteID string, limit int) ([]entities.HistoryEntry, error)
	OpenBatch(ctx context.Context, siteID string) (*entities.ChangeBatch, error)
	GetBatch(ctx context.Context, siteID, batchID string) (*entities.ChangeBatch, error)
}

const (
	envelopeType          = "type"
	envelopeInit          = "init"
	envelopeBatchStart    = "batch_start"
	envelopeChange        = "change"
	envelopeBatchComplete = "batch_complete"
	envelopeBatchReject   = "batch_reject"
	envelopeBatchMerge    = "batch_merge"
	envelopeBatchRollback = "batch_rollback"
	envelopeRollbackMerge = "rollback_merge"
)

// ChangeTrackingCommand implements ChangeTracking on top of a VCSRepository. Every
// operation holds the site lock for its whole duration, because branch checkout is
// working-directory wide. Batch state is always read back from the repository, so
// several processes sharing a lock backend see the same batches.
type ChangeTrackingCommand struct {
	settings *entities.Settings
	vcs      repositories.VCSFactory
	locks    repositories.SiteLockRepository
	editor   repositories.FileEditorRepository
	metrics  repositories.MetricsRepository
	now      func() time.Time
}

// NewChangeTrackingCommand creates a new ChangeTrackingCommand.
func NewChangeTrackingCommand(
	settings *entities.Settings,
	vcs repositories.VCSFactory,
	locks repositories.SiteLockRepository,
	editor repositories.FileEditorRepository,
	metrics repositories.MetricsRepository,
) *ChangeTrackingCommand {
	return &ChangeTrackingCommand{
		settings: settings,
		vcs:      vcs,
		locks:    locks,
		editor:   editor,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// siteSession is a locked site with its repository handle.
type siteSession struct {
	site   entities.Site
	repo   repositories.VCSRepository
	unlock func()
}

func (it *ChangeTrackingCommand) acquire(ctx context.Context, siteID string) (*siteSession, error) {
	site, err := it.settings.ResolveSite(siteID)
	if err != nil {
		return nil, err
	}
	unlock, err := it.locks.Lock(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock site: %w", err)
	}
	return &siteSession{site: site, repo: it.vcs.Open(site.Dir), unlock: unlock}, nil
}

func trackingError(op, siteID, batchID string, err error) error {
	return &entities.TrackingError{Op: op, SiteID: siteID, BatchID: batchID, Err: err}
}

// StartBatch opens a batch on a new branch cut from the stable branch and commits the
// initial batch record. It returns the branch name.
func (it *ChangeTrackingCommand) StartBatch(
	ctx context.Context,
	siteID, batchID, description string,
) (string, error) {
	const op = "start batch"
	if err := entities.ValidateIdentifier("batch", batchID); err != nil {
		return "", trackingError(op, siteID, batchID, err)
	}

	session, err := it.acquire(ctx, siteID)
	if err != nil {
		return "", trackingError(op, siteID, batchID, err)
	}
	defer session.unlock()
	repo := session.repo
	tracking := it.settings.Tracking

	if err = it.ensureRepository(ctx, session); err != nil {
		return "", trackingError(op, siteID, batchID, err)
	}
	if open := it.currentOpenBatch(ctx, repo); open != nil {
		return "", trackingError(op, siteID, batchID,
			fmt.Errorf("%w: %s", entities.ErrBatchAlreadyOpen, open.BatchID))
	}

	branch := tracking.BatchBranch(batchID)
	exists, err := repo.BranchExists(ctx, branch)
	if err != nil {
		return "", trackingError(op, siteID, batchID, err)
	}
	if exists {
		return "", trackingError(op, siteID, batchID, entities.ErrBatchExists)
	}

	if err = repo.CreateBranch(ctx, branch, tracking.StableBranch); err != nil {
		return "", trackingError(op, siteID, batchID, err)
	}

	batch := entities.NewChangeBatch(siteID, batchID, description, it.now())
	if err = it.writeRecord(ctx, repo, batch); err != nil {
		return "", trackingError(op, siteID, batchID, err)
	}
	if _, err = repo.Commit(ctx, fmt.Sprintf("Start batch %s", batchID), map[string]any{
		envelopeType:  envelopeBatchStart,
		"batchId":     batchID,
		"siteId":      siteID,
		"description": description,
	}); err != nil {
		return "", trackingError(op, siteID, batchID, err)
	}

	it.metrics.BatchTransition(entities.BatchStatusOpen)
	logger.Infof("Started batch %q for site %q on branch %q", batchID, siteID, branch)
	return branch, nil
}

// RecordChange commits one change to the open batch. The file must already hold the
// new content.
func (it *ChangeTrackingCommand) RecordChange(
	ctx context.Context,
	siteID, filePath string,
	changeType entities.ChangeType,
	metadata map[string]any,
) (entities.CommitRef, error) {
	const op = "record change"
	if !changeType.Valid() {
		return "", trackingError(op, siteID, "",
			fmt.Errorf("%w: %q", entities.ErrUnsupportedChangeType, changeType))
	}

	session, err := it.acquire(ctx, siteID)
	if err != nil {
		return "", trackingError(op, siteID, "", err)
	}
	defer session.unlock()

	batch := it.currentOpenBatch(ctx, session.repo)
	if batch == nil {
		return "", trackingError(op, siteID, "", entities.ErrNoOpenBatch)
	}

	relPath, err := it.changePath(filePath)
	if err != nil {
		return "", trackingError(op, siteID, batch.BatchID, err)
	}
	ref, err := it.recordLocked(ctx, session.repo, batch, relPath, changeType, metadata)
	if err != nil {
		// the caller owns the edit, so only the index and the record are reset
		it.restore(ctx, session.repo, []string{it.settings.Tracking.MetadataFile})
		it.unstage(ctx, session.repo, relPath)
		return "", trackingError(op, siteID, batch.BatchID, err)
	}
	return ref, nil
}

// ApplyChange applies a fix's edit and records it in the open batch while holding the
// site lock, so no other operation can switch branches in between.
func (it *ChangeTrackingCommand) ApplyChange(
	ctx context.Context,
	siteID string,
	fix entities.Fix,
) (entities.Fix, error) {
	const op = "apply change"
	if !fix.Type.Valid() {
		return fix, trackingError(op, siteID, "",
			fmt.Errorf("%w: %q", entities.ErrUnsupportedChangeType, fix.Type))
	}

	session, err := it.acquire(ctx, siteID)
	if err != nil {
		return fix, trackingError(op, siteID, "", err)
	}
	defer session.unlock()

	batch := it.currentOpenBatch(ctx, session.repo)
	if batch == nil {
		return fix, trackingError(op, siteID, "", entities.ErrNoOpenBatch)
	}

	relPath, err := it.changePath(fix.Path)
	if err != nil {
		return fix, trackingError(op, siteID, batch.BatchID, err)
	}
	if err = it.editor.Apply(ctx, session.site.Dir, fix); err != nil {
		return fix, trackingError(op, siteID, batch.BatchID, err)
	}

	ref, err := it.recordLocked(ctx, session.repo, batch, relPath, fix.Type, fix.ChangeMetadata())
	if err != nil {
		it.restore(ctx, session.repo, []string{relPath, it.settings.Tracking.MetadataFile})
		return fix, trackingError(op, siteID, batch.BatchID, err)
	}

	fix.BatchID = batch.BatchID
	fix.CommitRef = ref
	return fix, nil
}

// changePath cleans a site-relative path a change may target. The batch record is
// written by the engine only.
func (it *ChangeTrackingCommand) changePath(raw string) (string, error) {
	relPath, err := entities.CleanSitePath(raw)
	if err != nil {
		return "", err
	}
	if record, recordErr := entities.CleanSitePath(it.settings.Tracking.MetadataFile); recordErr == nil &&
		strings.EqualFold(relPath, record) {
		return "", fmt.Errorf("%w: %q is the batch record", entities.ErrPathOutsideSite, raw)
	}
	return relPath, nil
}

// restore brings paths back to their HEAD content in the index and the working tree
// after a change could not be committed.
func (it *ChangeTrackingCommand) restore(ctx context.Context, repo repositories.VCSRepository, paths []string) {
	if err := repo.RestorePaths(ctx, paths); err != nil {
		logger.Warnf("Failed to restore %s in %q: %v", strings.Join(paths, ", "), repo.Dir(), err)
	}
}

func (it *ChangeTrackingCommand) unstage(ctx context.Context, repo repositories.VCSRepository, path string) {
	if err := repo.Unstage(ctx, []string{path}); err != nil {
		logger.Warnf("Failed to unstage %q in %q: %v", path, repo.Dir(), err)
	}
}

// recordLocked commits a change to relPath, which must already be cleaned.
func (it *ChangeTrackingCommand) recordLocked(
	ctx context.Context,
	repo repositories.VCSRepository,
	batch *entities.ChangeBatch,
	relPath string,
	changeType entities.ChangeType,
	metadata map[string]any,
) (entities.CommitRef, error) {
	details := maps.Clone(metadata)
	if details == nil {
		details = map[string]any{}
	}

	next := batch.Clone()
	next.Changes = append(next.Changes, entities.Change{
		FilePath:   relPath,
		ChangeType: changeType,
		Metadata:   details,
		Timestamp:  it.now(),
	})

	if err := repo.Stage(ctx, []string{relPath}); err != nil {
		return "", err
	}
	if err := it.writeRecord(ctx, repo, next); err != nil {
		return "", err
	}

	message := entities.ChangeSummary(changeType, relPath, details)
	if description := entities.ChangeDescription(details); description != "" {
		message += "\n\n" + description
	}
	ref, err := repo.Commit(ctx, message, map[string]any{
		envelopeType: envelopeChange,
		"batchId":    batch.BatchID,
		"siteId":     batch.SiteID,
		"changeType": string(changeType),
		"filePath":   relPath,
		"details":    details,
	})
	if err != nil {
		return "", err
	}

	it.metrics.ChangeRecorded(changeType)
	logger.Debugf("Recorded %s change to %q in batch %q (%s)", changeType, relPath, batch.BatchID, ref.Short())
	return ref, nil
}

// FinalizeBatch closes an open batch. Approved batches are merged into the stable
// branch with a merge commit and tagged; rejected ones stay on their branch.
func (it *ChangeTrackingCommand) FinalizeBatch(
	ctx context.Context,
	siteID, batchID string,
	approved bool,
) (*entities.FinalizeResult, error) {
	const op = "finalize batch"
	session, err := it.acquire(ctx, siteID)
	if err != nil {
		return nil, trackingError(op, siteID, batchID, err)
	}
	defer session.unlock()
	repo := session.repo
	tracking := it.settings.Tracking

	batch, err := it.loadBatch(ctx, repo, batchID)
	if err != nil {
		return nil, trackingError(op, siteID, batchID, err)
	}

	tag := tracking.CompletionTag(batchID)
	resuming := false
	switch batch.Status {
	case entities.BatchStatusOpen:
	case entities.BatchStatusCompleted:
		// A previous finalize stamped the record but did not reach the tag.
		if _, tagErr := repo.ResolveTag(ctx, tag); tagErr == nil || !approved {
			return nil, trackingError(op, siteID, batchID,
				fmt.Errorf("%w: status is %s", entities.ErrBatchNotOpen, batch.Status))
		}
		resuming = true
		logger.Warnf("Resuming interrupted merge of batch %q for site %q", batchID, siteID)
	default:
		return nil, trackingError(op, siteID, batchID,
			fmt.Errorf("%w: status is %s", entities.ErrBatchNotOpen, batch.Status))
	}

	branch := tracking.BatchBranch(batchID)
	if !resuming {
		if batch, err = it.stampBatch(ctx, repo, batch, branch, approved); err != nil {
			return nil, trackingError(op, siteID, batchID, err)
		}
	}

	result := &entities.FinalizeResult{
		BatchID:     batchID,
		Status:      batch.Status,
		ChangeCount: batch.ChangeCount(),
		StartTime:   batch.StartTime,
	}
	if batch.EndTime != nil {
		result.EndTime = *batch.EndTime
	}

	if err = repo.Checkout(ctx, tracking.StableBranch); err != nil {
		return nil, trackingError(op, siteID, batchID, err)
	}

	if !approved {
		it.metrics.BatchTransition(entities.BatchStatusRejected)
		logger.Infof("Rejected batch %q for site %q; branch %q kept for audit", batchID, siteID, branch)
		return result, nil
	}

	mergeMessage, err := entities.FormatCommitMessage(
		fmt.Sprintf("Merge batch %s: %s", batchID, batch.Description), "",
		map[string]any{
			envelopeType:  envelopeBatchMerge,
			"batchId":     batchID,
			"siteId":      siteID,
			"changeCount": batch.ChangeCount(),
		},
	)
	if err != nil {
		return nil, trackingError(op, siteID, batchID, err)
	}
	mergeRef, err := repo.MergeNoFastForward(ctx, branch, mergeMessage)
	if err != nil {
		return nil, trackingError(op, siteID, batchID, err)
	}
	if err = repo.Tag(ctx, tag, fmt.Sprintf("Completed batch %s", batchID)); err != nil {
		return nil, trackingError(op, siteID, batchID, err)
	}

	result.MergeCommit = mergeRef
	result.Tag = tag
	it.metrics.BatchTransition(entities.BatchStatusCompleted)
	logger.Infof("Completed batch %q for site %q: %d change(s), merge %s tagged %q",
		batchID, siteID, result.ChangeCount, mergeRef.Short(), tag)
	return result, nil
}

// stampBatch commits the terminal status of a batch on its branch.
func (it *ChangeTrackingCommand) stampBatch(
	ctx context.Context,
	repo repositories.VCSRepository,
	batch *entities.ChangeBatch,
	branch string,
	approved bool,
) (*entities.ChangeBatch, error) {
	if err := repo.Checkout(ctx, branch); err != nil {
		return nil, err
	}

	next := batch.Clone()
	endTime := it.now()
	next.EndTime = &endTime
	next.Approved = &approved
	next.Status = entities.BatchStatusRejected
	summary := fmt.Sprintf("Reject batch %s", batch.BatchID)
	kind := envelopeBatchReject
	if approved {
		next.Status = entities.BatchStatusCompleted
		summary = fmt.Sprintf("Complete batch %s", batch.BatchID)
		kind = envelopeBatchComplete
	}

	if err := it.writeRecord(ctx, repo, next); err != nil {
		return nil, err
	}
	if _, err := repo.Commit(ctx, summary, map[string]any{
		envelopeType:  kind,
		"batchId":     batch.BatchID,
		"siteId":      batch.SiteID,
		"changeCount": next.ChangeCount(),
	}); err != nil {
		return nil, err
	}
	return next, nil
}

// RollbackBatch reverts the tagged merge commit of a completed batch on a rollback
// branch and merges that branch back into the stable branch.
func (it *ChangeTrackingCommand) RollbackBatch(
	ctx context.Context,
	siteID, batchID string,
) (*entities.RollbackBatchResult, error) {
	const op = "rollback batch"
	session, err := it.acquire(ctx, siteID)
	if err != nil {
		return nil, trackingError(op, siteID, batchID, err)
	}
	defer session.unlock()
	repo := session.repo
	tracking := it.settings.Tracking

	batch, err := it.loadBatch(ctx, repo, batchID)
	if err != nil {
		return nil, trackingError(op, siteID, batchID, err)
	}
	if batch.Status == entities.BatchStatusRolledBack {
		return nil, trackingError(op, siteID, batchID, entities.ErrBatchAlreadyRolledBack)
	}
	if open := it.currentOpenBatch(ctx, repo); open != nil {
		return nil, trackingError(op, siteID, batchID,
			fmt.Errorf("%w: finalize batch %s first", entities.ErrBatchAlreadyOpen, open.BatchID))
	}

	// The tag marks the merge commit itself; resolving it directly keeps unrelated
	// commits merged later out of the revert.
	mergeRef, err := repo.ResolveTag(ctx, tracking.CompletionTag(batchID))
	if err != nil {
		if errors.Is(err, entities.ErrTagNotFound) {
			err = fmt.Errorf("%w: %w", entities.ErrBatchNotCompleted, err)
		}
		return nil, trackingError(op, siteID, batchID, err)
	}

	if err = repo.Checkout(ctx, tracking.StableBranch); err != nil {
		return nil, trackingError(op, siteID, batchID, err)
	}
	rollbackBranch := tracking.RollbackBranch(batchID)
	if err = it.prepareRollbackBranch(ctx, repo, rollbackBranch); err != nil {
		return nil, trackingError(op, siteID, batchID, err)
	}

	if err = it.revertMerge(ctx, repo, mergeRef); err != nil {
		it.abandonRollback(ctx, repo)
		return nil, trackingError(op, siteID, batchID, err)
	}

	next := batch.Clone()
	rollbackTime := it.now()
	next.Status = entities.BatchStatusRolledBack
	next.RollbackTime = &rollbackTime
	if err = it.writeRecord(ctx, repo, next); err != nil {
		it.abandonRollback(ctx, repo)
		return nil, trackingError(op, siteID, batchID, err)
	}

	revertRef, err := repo.Commit(ctx,
		fmt.Sprintf("Rollback batch %s\n\nReverts merge commit %s.", batchID, mergeRef),
		map[string]any{
			envelopeType:     envelopeBatchRollback,
			"batchId":        batchID,
			"siteId":         siteID,
			"revertedCommit": string(mergeRef),
		},
	)
	if err != nil {
		it.abandonRollback(ctx, repo)
		return nil, trackingError(op, siteID, batchID, err)
	}

	if err = repo.Checkout(ctx, tracking.StableBranch); err != nil {
		return nil, trackingError(op, siteID, batchID, err)
	}
	mergeMessage, err := entities.FormatCommitMessage(
		fmt.Sprintf("Merge rollback of batch %s", batchID), "",
		map[string]any{envelopeType: envelopeRollbackMerge, "batchId": batchID, "siteId": siteID},
	)
	if err != nil {
		return nil, trackingError(op, siteID, batchID, err)
	}
	if _, err = repo.MergeNoFastForward(ctx, rollbackBranch, mergeMessage); err != nil {
		return nil, trackingError(op, siteID, batchID, err)
	}
	tag := tracking.RollbackTag(batchID)
	if err = repo.Tag(ctx, tag, fmt.Sprintf("Rolled back batch %s", batchID)); err != nil {
		return nil, trackingError(op, siteID, batchID, err)
	}

	it.metrics.BatchTransition(entities.BatchStatusRolledBack)
	logger.Infof("Rolled back batch %q for site %q (reverted %s)", batchID, siteID, mergeRef.Short())
	return &entities.RollbackBatchResult{
		BatchID:      batchID,
		Status:       entities.BatchStatusRolledBack,
		RollbackTime: rollbackTime,
		RevertCommit: revertRef,
		Tag:          tag,
	}, nil
}

// prepareRollbackBranch checks out a rollback branch at the stable head. A branch left over
// by an earlier failed attempt is reset instead of recreated.
func (it *ChangeTrackingCommand) prepareRollbackBranch(
	ctx context.Context,
	repo repositories.VCSRepository,
	branch string,
) error {
	stable := it.settings.Tracking.StableBranch
	exists, err := repo.BranchExists(ctx, branch)
	if err != nil {
		return err
	}
	if !exists {
		return repo.CreateBranch(ctx, branch, stable)
	}
	logger.Debugf("Reusing rollback branch %q left by a previous attempt", branch)
	if err = repo.Checkout(ctx, branch); err != nil {
		return err
	}
	return repo.ResetHard(ctx, stable)
}

// revertMerge reverts a merge commit into the working tree. A conflict limited to the batch
// record is tolerated, since the record is rewritten right after.
func (it *ChangeTrackingCommand) revertMerge(
	ctx context.Context,
	repo repositories.VCSRepository,
	mergeRef entities.CommitRef,
) error {
	revertErr := repo.RevertCommit(ctx, mergeRef)
	if revertErr == nil {
		return nil
	}
	conflicted, err := repo.ConflictedFiles(ctx)
	if err != nil || len(conflicted) == 0 {
		return revertErr
	}
	for _, file := range conflicted {
		if file != it.settings.Tracking.MetadataFile {
			return fmt.Errorf("%w (conflicts: %s)", revertErr, strings.Join(conflicted, ", "))
		}
	}
	logger.Debugf("Batch record conflicted while reverting %s, overwriting it", mergeRef.Short())
	return nil
}

// abandonRollback restores a clean stable checkout after a failed revert.
func (it *ChangeTrackingCommand) abandonRollback(ctx context.Context, repo repositories.VCSRepository) {
	if err := repo.ResetHard(ctx, ""); err != nil {
		logger.Warnf("Failed to reset %q after rollback failure: %v", repo.Dir(), err)
	}
	if err := repo.Checkout(ctx, it.settings.Tracking.StableBranch); err != nil {
		logger.Warnf("Failed to return %q to the stable branch: %v", repo.Dir(), err)
	}
}

// GetChangeHistory returns the last limit commits of the stable branch with summary and
// metadata separated. The previously checked out branch is restored afterwards.
func (it *ChangeTrackingCommand) GetChangeHistory(
	ctx context.Context,
	siteID string,
	limit int,
) ([]entities.HistoryEntry, error) {
	const op = "get change history"
	session, err := it.acquire(ctx, siteID)
	if err != nil {
		return nil, trackingError(op, siteID, "", err)
	}
	defer session.unlock()
	repo := session.repo
	stable := it.settings.Tracking.StableBranch

	if !repo.IsRepository(ctx) {
		return []entities.HistoryEntry{}, nil
	}
	exists, err := repo.BranchExists(ctx, stable)
	if err != nil {
		return nil, trackingError(op, siteID, "", err)
	}
	if !exists {
		return []entities.HistoryEntry{}, nil
	}

	previous, err := repo.CurrentBranch(ctx)
	if err != nil {
		return nil, trackingError(op, siteID, "", err)
	}
	if previous != stable {
		if err = repo.Checkout(ctx, stable); err != nil {
			return nil, trackingError(op, siteID, "", err)
		}
		defer func() {
			if restoreErr := repo.Checkout(ctx, previous); restoreErr != nil {
				logger.Warnf("Failed to restore branch %q for site %q: %v", previous, siteID, restoreErr)
			}
		}()
	}

	commits, err := repo.Log(ctx, limit)
	if err != nil {
		return nil, trackingError(op, siteID, "", err)
	}

	history := make([]entities.HistoryEntry, 0, len(commits))
	for _, commit := range commits {
		message := commit.Subject
		if commit.Body != "" {
			message += "\n\n" + commit.Body
		}
		summary, description, metadata := entities.ParseCommitMessage(message)
		history = append(history, entities.HistoryEntry{
			Hash:        commit.Hash,
			Author:      commit.Author,
			Date:        commit.Date,
			Subject:     summary,
			Description: description,
			Metadata:    metadata,
			IsMerge:     commit.IsMerge(),
		})
	}
	return history, nil
}

// OpenBatch returns the open batch of a site, or nil when there is none.
func (it *ChangeTrackingCommand) OpenBatch(ctx context.Context, siteID string) (*entities.ChangeBatch, error) {
	session, err := it.acquire(ctx, siteID)
	if err != nil {
		return nil, trackingError("open batch", siteID, "", err)
	}
	defer session.unlock()
	return it.currentOpenBatch(ctx, session.repo), nil
}

// GetBatch returns a batch with its current status.
func (it *ChangeTrackingCommand) GetBatch(
	ctx context.Context,
	siteID, batchID string,
) (*entities.ChangeBatch, error) {
	session, err := it.acquire(ctx, siteID)
	if err != nil {
		return nil, trackingError("get batch", siteID, batchID, err)
	}
	defer session.unlock()

	batch, err := it.loadBatch(ctx, session.repo, batchID)
	if err != nil {
		return nil, trackingError("get batch", siteID, batchID, err)
	}
	return batch, nil
}

// ensureRepository initialises the site repository and its stable branch on first use.
func (it *ChangeTrackingCommand) ensureRepository(ctx context.Context, session *siteSession) error {
	repo := session.repo
	if !repo.IsRepository(ctx) {
		logger.Infof("Initialising change tracking for site %q in %q", session.site.ID, repo.Dir())
		if err := repo.Init(ctx); err != nil {
			return err
		}
	}

	head, err := repo.HeadCommit(ctx)
	if err != nil {
		return err
	}
	if head == "" {
		if err = repo.Stage(ctx, nil); err != nil {
			return err
		}
		if _, err = repo.Commit(ctx,
			fmt.Sprintf("Initialize change tracking for site %s", session.site.ID),
			map[string]any{envelopeType: envelopeInit, "siteId": session.site.ID},
		); err != nil {
			return err
		}
	}

	stable := it.settings.Tracking.StableBranch
	exists, err := repo.BranchExists(ctx, stable)
	if err != nil {
		return err
	}
	if !exists {
		return repo.CreateBranch(ctx, stable, "")
	}
	return nil
}

// currentOpenBatch reads the batch record committed on the checked out batch branch.
// Any read failure means there is no open batch.
func (it *ChangeTrackingCommand) currentOpenBatch(
	ctx context.Context,
	repo repositories.VCSRepository,
) *entities.ChangeBatch {
	tracking := it.settings.Tracking
	if !repo.IsRepository(ctx) {
		return nil
	}
	branch, err := repo.CurrentBranch(ctx)
	if err != nil || !strings.HasPrefix(branch, tracking.BatchPrefix) {
		return nil
	}
	data, err := repo.ReadFile(ctx, "HEAD", tracking.MetadataFile)
	if err != nil {
		logger.Debugf("No batch record on branch %q: %v", branch, err)
		return nil
	}
	batch, err := entities.UnmarshalBatchRecord(data)
	if err != nil {
		logger.Warnf("Ignoring unreadable batch record on branch %q: %v", branch, err)
		return nil
	}
	if batch.Status != entities.BatchStatusOpen || tracking.BatchBranch(batch.BatchID) != branch {
		return nil
	}
	return batch
}

// loadBatch reads a batch from its branch, or from the rollback tag once rolled back.
func (it *ChangeTrackingCommand) loadBatch(
	ctx context.Context,
	repo repositories.VCSRepository,
	batchID string,
) (*entities.ChangeBatch, error) {
	tracking := it.settings.Tracking
	if err := entities.ValidateIdentifier("batch", batchID); err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrBatchNotFound, err)
	}
	if !repo.IsRepository(ctx) {
		return nil, entities.ErrBatchNotFound
	}
	branch := tracking.BatchBranch(batchID)
	exists, err := repo.BranchExists(ctx, branch)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, entities.ErrBatchNotFound
	}

	rollbackTag := tracking.RollbackTag(batchID)
	if _, tagErr := repo.ResolveTag(ctx, rollbackTag); tagErr == nil {
		if data, readErr := repo.ReadFile(ctx, rollbackTag, tracking.MetadataFile); readErr == nil {
			if batch, decodeErr := entities.UnmarshalBatchRecord(data); decodeErr == nil && batch.BatchID == batchID {
				return batch, nil
			}
		}
	}

	data, err := repo.ReadFile(ctx, branch, tracking.MetadataFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch record: %w", err)
	}
	return entities.UnmarshalBatchRecord(data)
}

func (it *ChangeTrackingCommand) writeRecord(
	ctx context.Context,
	repo repositories.VCSRepository,
	batch *entities.ChangeBatch,
) error {
	data, err := batch.MarshalRecord()
	if err != nil {
		return err
	}
	file := it.settings.Tracking.MetadataFile
	if err = repo.WriteFile(ctx, file, data); err != nil {
		return err
	}
	return repo.Stage(ctx, []string{file})
}
