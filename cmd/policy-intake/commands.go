package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/policy-intake/internal/async"
	"github.com/joseph-ayodele/policy-intake/internal/bootstrap"
	"github.com/joseph-ayodele/policy-intake/internal/export"
	"github.com/joseph-ayodele/policy-intake/internal/ingest"
	"github.com/joseph-ayodele/policy-intake/internal/pipeline"
	"github.com/joseph-ayodele/policy-intake/internal/repository"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile FILE...",
	Short: "Reconcile and validate document-AI result files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd.Context())
		if err != nil {
			return err
		}
		out := make([]summary, 0, len(args))
		for _, path := range args {
			out = append(out, reconcileFile(e.core, e.proc, path, e.cfg.DocAI.DefaultConfidence))
		}
		if len(out) == 1 {
			return render(cmd.OutOrStdout(), output, out[0])
		}
		return render(cmd.OutOrStdout(), output, out)
	},
}

var (
	batchDir     string
	batchOut     string
	batchWorkers int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Reconcile every result file under a directory into an XLSX report",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd.Context())
		if err != nil {
			return err
		}
		files, stats, err := ingest.WalkFiles(batchDir, []string{".json"}, true)
		if err != nil {
			return err
		}
		e.logger.Info("batch.scan", "dir", batchDir, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)

		rows, err := runBatch(cmd.Context(), e.core, e.proc, files, batchWorkers, e.cfg.DocAI.DefaultConfidence)
		if err != nil {
			return err
		}
		b, err := export.BatchReportXLSX(rows)
		if err != nil {
			return err
		}
		if batchOut == "" {
			batchOut = filepath.Join(filepath.Dir(filepath.Clean(batchDir)), "policy-batch.xlsx")
		}
		if err := os.WriteFile(batchOut, b, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d file(s) -> %s\n", len(rows), batchOut)
		return nil
	},
}

// runBatch reconciles files on a worker queue. Rows keep the order of files.
func runBatch(ctx context.Context, core *bootstrap.Core, proc *pipeline.Processor, files []string, workers int, defaultConfidence float64) ([]export.BatchRow, error) {
	rows := make([]export.BatchRow, len(files))
	var mu sync.Mutex

	q := async.NewWorkerQueue(func(_ context.Context, job async.Job) error {
		i, err := strconv.Atoi(job.ID)
		if err != nil {
			return err
		}
		s := reconcileFile(core, proc, job.Path, defaultConfidence)
		mu.Lock()
		rows[i] = s.row()
		mu.Unlock()
		if s.Failure != "" {
			return fmt.Errorf("%s: %s", job.Path, s.Failure)
		}
		return nil
	}, nil, async.WithWorkers(workers), async.WithJobTimeout(time.Minute))

	for i, f := range files {
		if err := q.Enqueue(ctx, async.Job{ID: strconv.Itoa(i), Path: f}); err != nil {
			q.Shutdown(context.Background())
			return nil, err
		}
	}
	q.Shutdown(context.Background())
	return rows, nil
}

var (
	watchDirs     []string
	watchDebounce time.Duration
	watchExisting bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reconcile result files as they land in a directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd.Context())
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       watchDirs,
			Exts:        []string{".json"},
			InitialScan: watchExisting,
			Debounce:    watchDebounce,
			Logger:      e.logger,
		})
		if err != nil {
			return err
		}
		for {
			select {
			case p, ok := <-paths:
				if !ok {
					return nil
				}
				if err := render(cmd.OutOrStdout(), output, reconcileFile(e.core, e.proc, p, e.cfg.DocAI.DefaultConfidence)); err != nil {
					return err
				}
			case err, ok := <-errs:
				if !ok {
					return nil
				}
				e.logger.Warn("watch.error", "error", err)
			}
		}
	},
}

var (
	exportFrom string
	exportTo   string
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded submissions to XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigOnly()
		if err != nil {
			return err
		}
		from, err := parseDay(exportFrom)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to, err := parseDay(exportTo)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}

		store, err := bootstrap.OpenStore(cmd.Context(), cfg.Database, defaultLogger())
		if err != nil {
			return err
		}
		defer store.Close()

		svc := export.NewService(repository.NewSubmissionRepository(store.Driver, defaultLogger()), defaultLogger())
		b, err := svc.ExportSubmissionsXLSX(cmd.Context(), from, to)
		if err != nil {
			return err
		}
		if err := os.WriteFile(exportOut, b, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", exportOut)
		return nil
	},
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

func init() {
	batchCmd.Flags().StringVar(&batchDir, "dir", "", "directory of AI result JSON files (required)")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "report path (defaults next to --dir)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 4, "parallel workers")
	_ = batchCmd.MarkFlagRequired("dir")

	watchCmd.Flags().StringSliceVar(&watchDirs, "dir", nil, "directories to watch (required)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before a file is read")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "also process files already present")
	_ = watchCmd.MarkFlagRequired("dir")

	exportCmd.Flags().StringVar(&exportFrom, "from", "", "from date YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "to date YYYY-MM-DD (inclusive)")
	exportCmd.Flags().StringVar(&exportOut, "out", "submissions.xlsx", "output XLSX path")

	rootCmd.AddCommand(reconcileCmd, batchCmd, watchCmd, exportCmd)
}
