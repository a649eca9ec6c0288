package commands

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/satishbabariya/litecore/cli/internal/ui"
	"github.com/satishbabariya/litecore/internal/debug"
	"github.com/satishbabariya/litecore/query/builder"
	"github.com/satishbabariya/litecore/query/sqlgen"
	"github.com/satishbabariya/litecore/runtime/client"
	"github.com/satishbabariya/litecore/runtime/types"
)

const stressSchema = `
CREATE TABLE IF NOT EXISTS a (
	id   INTEGER PRIMARY KEY,
	data BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS b (
	id   INTEGER PRIMARY KEY,
	a_id INTEGER NOT NULL REFERENCES a (id),
	data BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_b_a_id ON b (a_id);
`

// StressOptions configures a stress run.
type StressOptions struct {
	Records     int
	Concurrency int
	BlobSize    int
	Bins        int
}

// TimingBin summarizes one slice of the sorted operation durations.
type TimingBin struct {
	Count int           `yaml:"count"`
	Min   time.Duration `yaml:"min"`
	Max   time.Duration `yaml:"max"`
	Avg   time.Duration `yaml:"avg"`
}

// StatementTiming aggregates statement durations seen by the pool.
type StatementTiming struct {
	Count int           `yaml:"count"`
	Total time.Duration `yaml:"total"`
	Max   time.Duration `yaml:"max"`
}

// StressReport is the outcome of a stress run.
type StressReport struct {
	RunID       string                     `yaml:"run_id"`
	Database    string                     `yaml:"database"`
	Records     int                        `yaml:"records"`
	Concurrency int                        `yaml:"concurrency"`
	BlobSize    int                        `yaml:"blob_size"`
	Elapsed     time.Duration              `yaml:"elapsed"`
	OpsPerSec   float64                    `yaml:"ops_per_sec"`
	Bins        []TimingBin                `yaml:"bins"`
	Statements  map[string]StatementTiming `yaml:"statements"`
	Pool        client.PoolStats           `yaml:"pool"`
}

// statementTimer collects TimingMiddleware callbacks.
type statementTimer struct {
	mu    sync.Mutex
	stats map[string]StatementTiming
}

func newStatementTimer() *statementTimer {
	return &statementTimer{stats: map[string]StatementTiming{}}
}

func (t *statementTimer) middleware() client.Middleware {
	return client.TimingMiddleware(func(op, sql string, d time.Duration) {
		key := op + " " + statementVerb(sql)
		t.mu.Lock()
		defer t.mu.Unlock()
		s := t.stats[key]
		s.Count++
		s.Total += d
		s.Max = max(s.Max, d)
		t.stats[key] = s
	})
}

func (t *statementTimer) snapshot() map[string]StatementTiming {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]StatementTiming, len(t.stats))
	for k, v := range t.stats {
		out[k] = v
	}
	return out
}

func statementVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// NewStressCommand creates the stress command.
func NewStressCommand(s *settings) *cobra.Command {
	var (
		opts       StressOptions
		inPlace    bool
		reportPath string
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a concurrent insert and read workload",
		Long: `Insert records into two related tables inside transactions and read
them back at random, then report throughput and latency bins.

Unless --in-place is given the run uses a fresh database in a
temporary directory, with the journal and pool settings from the
configuration.`,
		Example: `  litecore stress --records 10000 --concurrency 8
  litecore stress --in-place --database bench.db --report out.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var extra []client.Option
			if !inPlace {
				dir, err := os.MkdirTemp("", "litecore-stress-")
				if err != nil {
					return err
				}
				defer os.RemoveAll(dir)
				extra = append(extra, client.WithFilename(filepath.Join(dir, "stress.db")))
			}

			timer := newStatementTimer()
			extra = append(extra, client.WithMiddleware(timer.middleware()))

			pool, err := s.openPool(ctx, extra...)
			if err != nil {
				return err
			}
			defer pool.Close(context.Background())

			cfg := pool.Config()
			ui.PrintHeader("litecore stress", cfg.Filename)
			ui.PrintInfo("records", opts.Records)
			ui.PrintInfo("concurrency", opts.Concurrency)
			ui.PrintInfo("journal mode", cfg.JournalMode)
			ui.PrintInfo("max connections", cfg.MaxConnections)

			var progress func()
			if !noProgress {
				bar, err := ui.NewProgressBar("operations", opts.Records)
				if err != nil {
					return err
				}
				defer bar.Stop()
				var mu sync.Mutex
				progress = func() {
					mu.Lock()
					bar.Increment()
					mu.Unlock()
				}
			}

			report, err := RunStress(ctx, pool, opts, progress)
			if err != nil {
				return err
			}
			report.Database = cfg.Filename
			report.Statements = timer.snapshot()

			if err := ui.PrintMarkdown(report.Markdown()); err != nil {
				return err
			}
			if reportPath != "" {
				if err := writeReport(report, reportPath); err != nil {
					return err
				}
				ui.PrintSuccess("Report written to %s", reportPath)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.Records, "records", "n", 100000, "number of records to insert")
	cmd.Flags().IntVarP(&opts.Concurrency, "concurrency", "c", 1, "concurrent workers")
	cmd.Flags().IntVar(&opts.BlobSize, "blob-size", 250, "size of each blob in bytes")
	cmd.Flags().IntVar(&opts.Bins, "bins", 20, "number of latency bins to report")
	cmd.Flags().BoolVar(&inPlace, "in-place", false, "run against the configured database")
	cmd.Flags().StringVar(&reportPath, "report", "", "write a YAML report to this file")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")

	return cmd
}

// RunStress creates the stress schema on pool and runs opts.Records
// operations. Each operation inserts a row into a and a dependent row into
// b in one transaction, then reads a random row of b and its parent.
// progress, when set, is called after every operation.
func RunStress(ctx context.Context, pool *client.Pool, opts StressOptions, progress func()) (*StressReport, error) {
	if opts.Records <= 0 {
		return nil, fmt.Errorf("records must be positive, got %d", opts.Records)
	}
	opts.Concurrency = max(opts.Concurrency, 1)
	opts.Bins = max(opts.Bins, 1)
	log := debug.Component("stress")

	if err := setupStressSchema(ctx, pool); err != nil {
		return nil, err
	}
	before, err := countStressRows(ctx, pool)
	if err != nil {
		return nil, err
	}

	var (
		mu        sync.Mutex
		durations = make([]time.Duration, 0, opts.Records)
		maxID     atomic.Int64
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i := 0; i < opts.Records; i++ {
		g.Go(func() error {
			opStart := time.Now()
			if err := stressOperation(gctx, pool, opts.BlobSize, &maxID); err != nil {
				return fmt.Errorf("operation %d: %w", i, err)
			}
			d := time.Since(opStart)

			mu.Lock()
			durations = append(durations, d)
			mu.Unlock()
			if progress != nil {
				progress()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	after, err := countStressRows(ctx, pool)
	if err != nil {
		return nil, err
	}
	for table, n := range after {
		if got := n - before[table]; got != int64(opts.Records) {
			return nil, fmt.Errorf("sanity check failed: table %s gained %d rows, want %d", table, got, opts.Records)
		}
	}
	log.Debug("stress run finished", "records", opts.Records, "elapsed", elapsed)

	return &StressReport{
		RunID:       uuid.NewString(),
		Records:     opts.Records,
		Concurrency: opts.Concurrency,
		BlobSize:    opts.BlobSize,
		Elapsed:     elapsed,
		OpsPerSec:   float64(opts.Records) / elapsed.Seconds(),
		Bins:        TimingBins(durations, opts.Bins),
		Pool:        pool.Stats(),
	}, nil
}

func setupStressSchema(ctx context.Context, pool *client.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return conn.ExecScript(ctx, stressSchema)
}

func countStressRows(ctx context.Context, ex client.Executor) (map[string]int64, error) {
	out := map[string]int64{}
	for _, table := range []string{"a", "b"} {
		row, err := ex.FetchOne(ctx, sqlgen.Must(sqlgen.New("SELECT count(*) AS n FROM "+table)))
		if err != nil {
			return nil, err
		}
		n, err := types.GetNamed[int64](row, "n")
		if err != nil {
			return nil, err
		}
		out[table] = n
	}
	return out, nil
}

func stressOperation(ctx context.Context, pool *client.Pool, blobSize int, maxID *atomic.Int64) error {
	blob := make([]byte, blobSize)
	for i := range blob {
		blob[i] = byte(rand.IntN(256))
	}

	err := pool.Transaction(ctx, func(tx *client.Tx) error {
		insertA, err := sqlgen.InsertInto("a").Value("data", blob).Query()
		if err != nil {
			return err
		}
		res, err := tx.Execute(ctx, insertA)
		if err != nil {
			return err
		}

		insertB, err := sqlgen.InsertInto("b").
			Value("a_id", res.LastInsertRowID).
			Value("data", blob).
			Query()
		if err != nil {
			return err
		}
		res, err = tx.Execute(ctx, insertB)
		if err != nil {
			return err
		}
		for {
			cur := maxID.Load()
			if res.LastInsertRowID <= cur || maxID.CompareAndSwap(cur, res.LastInsertRowID) {
				break
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Rows above maxID may belong to transactions still in flight.
	id := rand.Int64N(maxID.Load()) + 1
	sel := builder.Select("b", "id", "a_id", "data")
	sel.Where().Equals("id", id)
	q, err := sel.Query()
	if err != nil {
		return err
	}
	row, err := pool.FetchOptional(ctx, q)
	if err != nil || row == nil {
		return err
	}

	aID, err := types.GetNamed[int64](row, "a_id")
	if err != nil {
		return err
	}
	parent := builder.Select("a", "id", "data")
	parent.Where().Equals("id", aID)
	q, err = parent.Query()
	if err != nil {
		return err
	}
	_, err = pool.FetchOne(ctx, q)
	return err
}

// TimingBins sorts durations and splits them into at most n bins of equal
// size, the last bin taking the remainder.
func TimingBins(durations []time.Duration, n int) []TimingBin {
	if len(durations) == 0 || n <= 0 {
		return nil
	}
	sorted := slices.Clone(durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	size := (len(sorted) + n - 1) / n
	bins := make([]TimingBin, 0, n)
	for lo := 0; lo < len(sorted); lo += size {
		hi := min(lo+size, len(sorted))
		chunk := sorted[lo:hi]

		var total time.Duration
		for _, d := range chunk {
			total += d
		}
		bins = append(bins, TimingBin{
			Count: len(chunk),
			Min:   chunk[0],
			Max:   chunk[len(chunk)-1],
			Avg:   total / time.Duration(len(chunk)),
		})
	}
	return bins
}

// Markdown renders the report for the terminal.
func (r *StressReport) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Stress run `%s`\n\n", r.RunID)
	fmt.Fprintf(&sb, "- **records:** %d\n", r.Records)
	fmt.Fprintf(&sb, "- **concurrency:** %d\n", r.Concurrency)
	fmt.Fprintf(&sb, "- **elapsed:** %s\n", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&sb, "- **throughput:** %.0f ops/sec\n", r.OpsPerSec)
	fmt.Fprintf(&sb, "- **pool:** %d connections, %d acquired, %d timeouts\n\n",
		r.Pool.Size, r.Pool.Acquired, r.Pool.Timeouts)

	sb.WriteString("## Operation latency\n\n")
	sb.WriteString("| bin | count | min | avg | max |\n|---|---|---|---|---|\n")
	for i, b := range r.Bins {
		fmt.Fprintf(&sb, "| %d | %d | %s | %s | %s |\n", i+1, b.Count, b.Min, b.Avg, b.Max)
	}

	if len(r.Statements) > 0 {
		sb.WriteString("\n## Statements\n\n")
		sb.WriteString("| statement | count | avg | max |\n|---|---|---|---|\n")
		keys := make([]string, 0, len(r.Statements))
		for k := range r.Statements {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			st := r.Statements[k]
			fmt.Fprintf(&sb, "| %s | %d | %s | %s |\n", k, st.Count, st.Total/time.Duration(max(st.Count, 1)), st.Max)
		}
	}
	return sb.String()
}

func writeReport(r *StressReport, path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
