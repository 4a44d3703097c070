// Package cli implements the operator commands of the georef binary.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/hibiken/asynq"

	"github.com/alquiler-vehiculos/sucursales/internal/catalog"
	"github.com/alquiler-vehiculos/sucursales/jobs"
)

// Args is the command line accepted by the georef binary.
type Args struct {
	Load    *LoadArgs    `arg:"subcommand:load" help:"load the georef catalog into Postgres now"`
	Enqueue *EnqueueArgs `arg:"subcommand:enqueue" help:"queue a catalog load for the worker"`
	Queue   *QueueArgs   `arg:"subcommand:queue" help:"show the job queue state"`
	JSON    bool         `arg:"--json" help:"print machine readable output"`
}

// Description is shown at the top of --help.
func (Args) Description() string {
	return "georef catalog maintenance for the sucursales service"
}

// LoadArgs configures the load subcommand.
type LoadArgs struct {
	Provincia string `arg:"--provincia" help:"only load this province"`
	Migrate   bool   `arg:"--migrate" help:"apply pending migrations first"`
}

// EnqueueArgs configures the enqueue subcommand.
type EnqueueArgs struct {
	Provincia string `arg:"--provincia" help:"only load this province"`
}

// QueueArgs configures the queue subcommand.
type QueueArgs struct{}

// CatalogLoader copies the georef hierarchy into the catalog.
type CatalogLoader interface {
	Load(ctx context.Context, only string) (catalog.LoadStats, error)
}

// Enqueuer submits load tasks.
type Enqueuer interface {
	EnqueueGeorefLoad(ctx context.Context, payload jobs.GeorefLoadPayload) (*asynq.TaskInfo, error)
}

// Output selects where and how results are printed.
type Output struct {
	JSON   bool
	Stdout io.Writer
	Stderr io.Writer
}

func (o Output) stdout() io.Writer {
	if o.Stdout != nil {
		return o.Stdout
	}
	return os.Stdout
}

func (o Output) stderr() io.Writer {
	if o.Stderr != nil {
		return o.Stderr
	}
	return os.Stderr
}

// GeorefCLI runs the subcommands against injected dependencies.
type GeorefCLI struct {
	Loader    CatalogLoader
	Enqueuer  Enqueuer
	Inspector jobs.QueueInspector
}

// LoadCommand runs a catalog load in-process and returns the exit code.
func (c *GeorefCLI) LoadCommand(ctx context.Context, args LoadArgs, out Output) int {
	if c == nil || c.Loader == nil {
		return fail(out, errors.New("georef cli: loader not configured"))
	}
	stats, err := c.Loader.Load(ctx, args.Provincia)
	if err != nil {
		return fail(out, err)
	}
	if out.JSON {
		return writeJSON(out, stats)
	}
	_, _ = fmt.Fprintf(out.stdout(), "provincias: %d\ndepartamentos: %d\nlocalidades: %d\n", stats.Provinces, stats.Departments, stats.Localities)
	return 0
}

type enqueueResult struct {
	ID    string `json:"id"`
	Queue string `json:"queue"`
	Type  string `json:"type"`
}

// EnqueueCommand queues a catalog load and returns the exit code. A load of
// the same scope already waiting in the queue is reported, not duplicated.
func (c *GeorefCLI) EnqueueCommand(ctx context.Context, args EnqueueArgs, out Output) int {
	if c == nil || c.Enqueuer == nil {
		return fail(out, errors.New("georef cli: queue client not configured"))
	}
	info, err := c.Enqueuer.EnqueueGeorefLoad(ctx, jobs.GeorefLoadPayload{Provincia: args.Provincia})
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			_, _ = fmt.Fprintln(out.stderr(), "a load for this scope is already queued")
			return 0
		}
		return fail(out, err)
	}
	result := enqueueResult{ID: info.ID, Queue: info.Queue, Type: info.Type}
	if out.JSON {
		return writeJSON(out, result)
	}
	_, _ = fmt.Fprintf(out.stdout(), "enqueued %s %s on %s\n", result.Type, result.ID, result.Queue)
	return 0
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// QueueCommand prints the default queue counters and returns the exit code.
func (c *GeorefCLI) QueueCommand(ctx context.Context, out Output) int {
	if c == nil || c.Inspector == nil {
		return fail(out, errors.New("georef cli: inspector not configured"))
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	info, err := c.Inspector.GetQueueInfo(jobs.QueueDefault)
	switch {
	case errors.Is(err, asynq.ErrQueueNotFound):
	case err != nil:
		return fail(out, err)
	default:
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	if out.JSON {
		return writeJSON(out, stats)
	}
	tw := tabwriter.NewWriter(out.stdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED")
	_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	_ = tw.Flush()
	return 0
}

func writeJSON(out Output, v any) int {
	enc := json.NewEncoder(out.stdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fail(out, err)
	}
	return 0
}

func fail(out Output, err error) int {
	_, _ = fmt.Fprintf(out.stderr(), "error: %v\n", err)
	return 1
}
