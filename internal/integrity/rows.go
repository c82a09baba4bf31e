package integrity

import (
	"bufio"
	"context"
	"errors"
	"io"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"bin-ranges/internal/record"
)

// rowsPerTask is the number of detail rows one worker validates per task.
const rowsPerTask = 512

// ReadLines splits a file into lines without their terminators.
// A row longer than record.MaxRowBytes is returned as a *record.RowError
// naming its line, so callers can halt on it rather than fail.
func ReadLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), record.MaxRowBytes)

	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, &record.RowError{Line: len(lines) + 1, Err: record.ErrRowTooLong}
		}
		return nil, err
	}
	return lines, nil
}

// ValidateRows checks the header and trailer rows and validates every detail
// row with up to workers goroutines. It returns the lowest numbered failing row,
// or nil when the whole file is valid.
//
// Dispatch stops at the first failure. Tasks already dispatched run to the end,
// so every row before the first failure is always checked.
func ValidateRows(ctx context.Context, lines []string, schema *record.Schema, workers int) (*record.RowError, error) {
	if len(lines) == 0 {
		return record.ValidateHeader(""), nil
	}
	if rerr := record.ValidateHeader(lines[0]); rerr != nil {
		return rerr, nil
	}
	last := len(lines)
	if rerr := record.ValidateTrailer(last, lines[last-1]); rerr != nil {
		return rerr, nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	detail := lines[1 : last-1]
	tasks := (len(detail) + rowsPerTask - 1) / rowsPerTask
	failures := make([]*record.RowError, tasks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for task := 0; task < tasks; task++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			start := task * rowsPerTask
			end := min(start+rowsPerTask, len(detail))
			for i := start; i < end; i++ {
				// detail[0] is line 2 of the file.
				if _, rerr := schema.Parse(detail[i]); rerr != nil {
					failures[task] = rerr.AtLine(i + 2)
					return failures[task]
				}
			}
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var found []*record.RowError
	for _, f := range failures {
		if f != nil {
			found = append(found, f)
		}
	}
	if len(found) == 0 {
		return nil, nil
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Line < found[j].Line })
	return found[0], nil
}
