package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Magget135/Minimal-Quest-Log/internal/ops"
)

func newBackupCmd(c *cli) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive the data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = filepath.Join("backups", ops.ArchiveName(c.clock.Now()))
			}
			m, err := ops.Backup(c.cfg.Storage.DataDir, out)
			if err != nil {
				return err
			}
			c.log.Info("backup_written", "archive", m.Archive, "files", m.Files, "bytes", m.Bytes)
			return printJSON(cmd.OutOrStdout(), m)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "archive path (default backups/questlog-<timestamp>.tar.gz)")
	return cmd
}

func newRestoreCmd(c *cli) *cobra.Command {
	var archive, target string
	var force bool
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Unpack a backup into the data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" {
				target = c.cfg.Storage.DataDir
			}
			if err := ops.Restore(archive, target, force); err != nil {
				return err
			}
			c.log.Info("backup_restored", "archive", archive, "target", target)
			_, err := fmt.Fprintln(cmd.OutOrStdout(), target)
			return err
		},
	}
	cmd.Flags().StringVar(&archive, "archive", "", "backup archive (.tar.gz)")
	cmd.Flags().StringVar(&target, "target-dir", "", "restore target (default storage.data_dir)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite a non-empty target")
	_ = cmd.MarkFlagRequired("archive")
	return cmd
}

func newDrillCmd(c *cli) *cobra.Command {
	var workDir string
	cmd := &cobra.Command{
		Use:   "drill",
		Short: "Back up, restore and verify the data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if workDir == "" {
				workDir = os.TempDir()
			}
			rep, err := ops.Drill(c.cfg.Storage.DataDir, workDir, c.clock.Now())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().StringVar(&workDir, "work-dir", "", "scratch directory for the drill (default system temp)")
	return cmd
}
