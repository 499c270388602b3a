package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tlsdeploy/tlsdeploy/internal/output"
	"github.com/tlsdeploy/tlsdeploy/internal/snapshot"
)

var restoreYes bool

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage configuration snapshots",
	Long: `List, take, and restore snapshots of the nginx configuration
directory.

Snapshots are taken automatically before every activation and are never
pruned automatically; removing old ones is a manual operation.`,
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	RunE:  runSnapshotList,
}

var snapshotTakeCmd = &cobra.Command{
	Use:   "take",
	Short: "Snapshot the live configuration now",
	RunE:  runSnapshotTake,
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore [id]",
	Short: "Restore a snapshot into the live configuration",
	Long: `Restore a snapshot in full: the live directory is replaced with the
snapshot's contents, and files added since are discarded. Without an ID
the most recent snapshot is restored. The restored configuration is
syntax-checked and nginx reloaded.

Examples:
  tlsdeploy snapshot restore
  tlsdeploy snapshot restore backup-20260829-143000 --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSnapshotRestore,
}

func init() {
	snapshotRestoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "Restore without confirmation")

	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotTakeCmd)
	snapshotCmd.AddCommand(snapshotRestoreCmd)

	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshotList(cmd *cobra.Command, args []string) error {
	snaps, err := newSnapshots().List()
	if err != nil {
		return err
	}

	if jsonOutput {
		return output.JSON(snaps)
	}

	if len(snaps) == 0 {
		output.Print("No snapshots")
		return nil
	}

	rows := make([][]string, 0, len(snaps))
	for _, snap := range snaps {
		rows = append(rows, []string{snap.ID, snap.CreatedAt.Format("2006-01-02 15:04:05"), snap.Path})
	}
	output.Table([]string{"ID", "Created", "Path"}, rows)
	return nil
}

func runSnapshotTake(cmd *cobra.Command, args []string) error {
	if err := requireRoot(); err != nil {
		return err
	}

	snap, err := newSnapshots().Take(deps.Paths.ConfDir)
	if err != nil {
		return err
	}
	return outputResult(snap, "Snapshot %s taken", snap.ID)
}

func runSnapshotRestore(cmd *cobra.Command, args []string) error {
	if err := requireRoot(); err != nil {
		return err
	}

	mgr := newSnapshots()
	var snap *snapshot.Snapshot
	var err error
	if len(args) == 1 {
		snap, err = mgr.Get(args[0])
	} else {
		snap, err = mgr.Latest()
	}
	if err != nil {
		return err
	}

	if !restoreYes && !confirm("Replace the live configuration with snapshot '%s'?", snap.ID) {
		output.Info("Restore cancelled")
		return nil
	}

	if err := mgr.Restore(snap, deps.Paths.ConfDir); err != nil {
		return err
	}

	// The restored set should be valid, it was live once. Check anyway
	// and reload so nginx picks it up.
	rt := newRuntime()
	ctx := cmd.Context()
	if ok, diag := rt.Test(ctx); !ok {
		output.Warn("Restored configuration failed the syntax check:\n%s", diag)
		return fmt.Errorf("restored configuration is invalid, nginx not reloaded")
	}
	if err := rt.Reload(ctx); err != nil {
		return err
	}

	return outputResult(map[string]interface{}{
		"success":  true,
		"snapshot": snap.ID,
		"restored": true,
	}, "Snapshot %s restored and nginx reloaded", snap.ID)
}
