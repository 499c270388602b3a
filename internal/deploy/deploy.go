package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tlsdeploy/tlsdeploy/internal/errors"
	"github.com/tlsdeploy/tlsdeploy/internal/flock"
	"github.com/tlsdeploy/tlsdeploy/internal/logger"
	"github.com/tlsdeploy/tlsdeploy/internal/nginx"
	"github.com/tlsdeploy/tlsdeploy/internal/snapshot"
)

// State tracks where an activation run is in its lifecycle.
type State string

const (
	StatePending    State = "pending"
	StateValidating State = "validating"
	StateActive     State = "active"
	StateRolledBack State = "rolled_back"
)

const (
	// DefaultLockPath guards the live configuration directory against
	// concurrent activation runs.
	DefaultLockPath = "/run/lock/tlsdeploy.lock"

	// DefaultLockWait bounds how long a run waits for the lock before
	// giving up.
	DefaultLockWait = 5 * time.Second
)

// Location identifies the live configuration directory and the file an
// activation writes within it.
type Location struct {
	Dir  string
	File string
}

// Path returns the full path of the file this activation writes.
func (l Location) Path() string {
	return filepath.Join(l.Dir, l.File)
}

// Site returns the site name the location's file configures.
func (l Location) Site() string {
	return strings.TrimSuffix(l.File, ".conf")
}

// Result reports the outcome of one activation run.
type Result struct {
	RunID      string `json:"run_id"`
	State      State  `json:"state"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// Deployer validates and activates rendered configuration against a
// running nginx, rolling back on any failure after the live directory
// has been touched.
type Deployer struct {
	runtime  *nginx.Runtime
	snaps    *snapshot.Manager
	lockPath string
	lockWait time.Duration
}

func New(runtime *nginx.Runtime, snaps *snapshot.Manager) *Deployer {
	return &Deployer{
		runtime:  runtime,
		snaps:    snaps,
		lockPath: DefaultLockPath,
		lockWait: DefaultLockWait,
	}
}

// NewWithLockPath is New with the lock file placed at lockPath.
func NewWithLockPath(runtime *nginx.Runtime, snaps *snapshot.Manager, lockPath string) *Deployer {
	d := New(runtime, snaps)
	d.lockPath = lockPath
	return d
}

// Target builds the Location for a named site inside the runtime's
// configuration directory.
func (d *Deployer) Target(site string) Location {
	return Location{Dir: d.runtime.ConfDir(), File: site + ".conf"}
}

// Activate runs the full snapshot, write, validate, reload sequence for
// rendered at target. The steps are strictly ordered: the live directory
// is never written without a snapshot on disk, and nginx is never
// reloaded on a configuration that failed its syntax check.
//
// A failed syntax check restores the snapshot in full and returns a
// validation error carrying the checker's output verbatim; nginx keeps
// serving the prior configuration throughout. A failure to restore the
// snapshot itself is returned as a restore error, since it leaves the
// live directory in an undefined state.
func (d *Deployer) Activate(ctx context.Context, target Location, rendered string) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), State: StatePending}
	logger.Debug("activation run %s for %s", res.RunID, target.Path())

	lockCtx, cancel := context.WithTimeout(ctx, d.lockWait)
	defer cancel()
	lock, err := flock.Lock(lockCtx, d.lockPath)
	if err != nil {
		return res, errors.Wrap(errors.CodePrecondition,
			fmt.Sprintf("acquire configuration lock %s", d.lockPath), err)
	}
	defer func() {
		if err := flock.Unlock(lock); err != nil {
			logger.Warn("release configuration lock: %v", err)
		}
	}()

	snap, err := d.snaps.Take(target.Dir)
	if err != nil {
		// Nothing was written; the live configuration is untouched.
		return res, errors.Wrap(errors.CodePrecondition, "snapshot live configuration", err)
	}
	res.SnapshotID = snap.ID

	if err := os.MkdirAll(target.Dir, 0755); err != nil {
		return res, errors.Wrap(errors.CodeInternal, "create configuration directory", err)
	}
	if err := os.WriteFile(target.Path(), []byte(rendered), 0644); err != nil {
		// The write may have left a partial file behind; put the
		// snapshot back before reporting. The syntax checker never
		// ran, so this is not a validation failure.
		if rerr := d.snaps.Restore(snap, target.Dir); rerr != nil {
			return res, d.restoreFailed(target, snap, err.Error(), rerr)
		}
		res.State = StateRolledBack
		return res, errors.WrapDomain(errors.CodeInternal, target.Site(),
			"write configuration", err)
	}

	res.State = StateValidating
	ok, diag := d.runtime.Test(ctx)
	if !ok {
		return d.rollback(res, target, snap, diag)
	}

	if err := d.runtime.Reload(ctx); err != nil {
		// Valid config but the reload did not go through; revert so the
		// directory matches what nginx is actually serving.
		return d.rollback(res, target, snap, err.Error())
	}

	res.State = StateActive
	logger.Info("activated %s (run %s, snapshot %s)", target.Path(), res.RunID, snap.ID)
	return res, nil
}

func (d *Deployer) rollback(res *Result, target Location, snap *snapshot.Snapshot, diag string) (*Result, error) {
	if rerr := d.snaps.Restore(snap, target.Dir); rerr != nil {
		return res, d.restoreFailed(target, snap, diag, rerr)
	}
	res.State = StateRolledBack
	res.Diagnostic = diag
	logger.Warn("validation failed for %s, snapshot %s restored", target.Path(), snap.ID)
	return res, errors.Validation(target.Site(), diag)
}

func (d *Deployer) restoreFailed(target Location, snap *snapshot.Snapshot, diag string, rerr error) error {
	return errors.Restore(target.Site(), diag,
		fmt.Errorf("restore snapshot %s into %s: %w", snap.ID, target.Dir, rerr))
}
