package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"bin-ranges/internal/integrity"
	"bin-ranges/internal/objectstore/memory"
	"bin-ranges/internal/record"
)

// errInvalidFile makes the command exit non-zero once the report is printed.
var errInvalidFile = errors.New("file failed validation")

const (
	localStaging  = "local-staging"
	localPromoted = "local-promoted"
)

// validationReport is the printable result of a local validation.
type validationReport struct {
	File      string      `json:"file" yaml:"file"`
	Rows      int         `json:"rows" yaml:"rows"`
	Valid     bool        `json:"valid" yaml:"valid"`
	Failure   *rowFailure `json:"failure,omitempty" yaml:"failure,omitempty"`
	SizeCheck *sizeCheck  `json:"sizeCheck,omitempty" yaml:"size_check,omitempty"`
	Breakdown *breakdown  `json:"breakdown,omitempty" yaml:"breakdown,omitempty"`
}

// breakdown counts detail rows per code value. Keys read "CODE (meaning)".
type breakdown struct {
	ProductTypes           map[string]int `json:"productTypes" yaml:"product_types"`
	CardClasses            map[string]int `json:"cardClasses" yaml:"card_classes"`
	AnonymousPrepaid       map[string]int `json:"anonymousPrepaid" yaml:"anonymous_prepaid"`
	FastFunds              map[string]int `json:"fastFunds" yaml:"fast_funds"`
	DCCAllowed             int            `json:"dccAllowed" yaml:"dcc_allowed"`
	UnlistedSchemeProducts int            `json:"unlistedSchemeProducts" yaml:"unlisted_scheme_products"`
}

type rowFailure struct {
	Line    int    `json:"line" yaml:"line"`
	Field   string `json:"field,omitempty" yaml:"field,omitempty"`
	Value   string `json:"value,omitempty" yaml:"value,omitempty"`
	Message string `json:"message" yaml:"message"`
}

type sizeCheck struct {
	Promoted      string `json:"promoted" yaml:"promoted"`
	PromotedSize  int64  `json:"promotedSize" yaml:"promoted_size"`
	CandidateSize int64  `json:"candidateSize" yaml:"candidate_size"`
	Change        string `json:"changePercent" yaml:"change_percent"`
	Acceptable    string `json:"acceptablePercent" yaml:"acceptable_percent"`
	Passed        bool   `json:"passed" yaml:"passed"`
}

type validateOptions struct {
	promoted  string
	output    string
	threshold string
	extended  bool
	workers   int
}

func validateCmd() *cobra.Command {
	var opts validateOptions
	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a local BIN ranges file against the record schema",
		Long: `Validate every row of a local BIN ranges file.

With --promoted the size guard runs too, comparing FILE against the given
promoted copy. Nothing is read from or written to S3.

Examples:
  binranges validate WP_341BIN_V03_20240212_001.CSV
  binranges validate new.csv --promoted current.csv --output yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.promoted, "promoted", "", "promoted file to run the size guard against")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "output format (text, json, yaml)")
	cmd.Flags().StringVar(&opts.threshold, "threshold", integrity.DefaultAcceptablePercentage.String(), "acceptable size change in percent")
	cmd.Flags().BoolVar(&opts.extended, "extended", false, "accept the V4 card classes H and R")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "row validation goroutines, 0 means one per CPU")
	return cmd
}

func runValidate(ctx context.Context, w io.Writer, path string, opts validateOptions) error {
	switch opts.output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", opts.output)
	}
	threshold, err := decimal.NewFromString(opts.threshold)
	if err != nil {
		return fmt.Errorf("invalid threshold %q: %w", opts.threshold, err)
	}

	report, err := validateFile(ctx, path, opts, threshold)
	if err != nil {
		return err
	}
	if err := writeReport(w, report, opts.output); err != nil {
		return err
	}
	if !report.Valid {
		return errInvalidFile
	}
	return nil
}

func validateFile(ctx context.Context, path string, opts validateOptions, threshold decimal.Decimal) (validationReport, error) {
	candidate, err := os.ReadFile(path)
	if err != nil {
		return validationReport{}, err
	}
	schema := record.ForOptions(opts.extended)

	report, err := checkFile(ctx, path, candidate, schema, opts, threshold)
	if err != nil || report.Failure != nil {
		return report, err
	}
	lines, err := integrity.ReadLines(bytes.NewReader(candidate))
	if err != nil {
		return validationReport{}, err
	}
	report.Breakdown = breakdownOf(lines, schema)
	return report, nil
}

func checkFile(ctx context.Context, path string, candidate []byte, schema *record.Schema, opts validateOptions, threshold decimal.Decimal) (validationReport, error) {
	report := validationReport{File: path}

	if opts.promoted == "" {
		lines, err := integrity.ReadLines(bytes.NewReader(candidate))
		var rerr *record.RowError
		switch {
		case errors.As(err, &rerr):
			report.Rows = rerr.Line - 1
		case err != nil:
			return validationReport{}, err
		default:
			rerr, err = integrity.ValidateRows(ctx, lines, schema, opts.workers)
			if err != nil {
				return validationReport{}, err
			}
			report.Rows = len(lines)
		}
		report.Failure = failureOf(rerr)
		report.Valid = rerr == nil
		return report, nil
	}

	promoted, err := os.ReadFile(opts.promoted)
	if err != nil {
		return validationReport{}, err
	}

	// The checker reads through an object store, so stage both files in memory.
	store := memory.NewStore()
	key := filepath.Base(path)
	if err := store.Put(ctx, localStaging, key, bytes.NewReader(candidate), int64(len(candidate))); err != nil {
		return validationReport{}, err
	}
	if err := store.Put(ctx, localPromoted, key, bytes.NewReader(promoted), int64(len(promoted))); err != nil {
		return validationReport{}, err
	}

	checker := integrity.NewChecker(store, integrity.Config{
		StagingBucket:        localStaging,
		PromotedBucket:       localPromoted,
		PromotedKey:          key,
		AcceptablePercentage: threshold,
		Workers:              opts.workers,
		Schema:               schema,
	}, nil)
	inspected, err := checker.Inspect(ctx, key)
	if err != nil {
		return validationReport{}, err
	}

	passed := !checker.Exceeds(inspected)
	report.Rows = inspected.Rows
	report.Failure = failureOf(inspected.Failure)
	report.SizeCheck = &sizeCheck{
		Promoted:      opts.promoted,
		PromotedSize:  inspected.PromotedSize,
		CandidateSize: inspected.CandidateSize,
		Change:        inspected.SizeChange.StringFixed(2),
		Acceptable:    threshold.StringFixed(2),
		Passed:        passed,
	}
	report.Valid = passed && inspected.Failure == nil
	return report, nil
}

// breakdownOf tallies the code columns of a file whose rows all passed validation.
func breakdownOf(lines []string, schema *record.Schema) *breakdown {
	b := &breakdown{
		ProductTypes:     map[string]int{},
		CardClasses:      map[string]int{},
		AnonymousPrepaid: map[string]int{},
		FastFunds:        map[string]int{},
	}
	if len(lines) < 2 {
		return b
	}
	for _, line := range lines[1 : len(lines)-1] {
		rec, rerr := schema.Parse(line)
		if rerr != nil {
			continue
		}
		b.ProductTypes[codeLabel(string(rec.ProductType), rec.ProductType.Description())]++
		b.CardClasses[codeLabel(string(rec.CardClass), rec.CardClass.Description())]++
		b.AnonymousPrepaid[codeLabel(string(rec.AnonymousPrepaid), rec.AnonymousPrepaid.Description())]++
		b.FastFunds[codeLabel(string(rec.FastFunds), rec.FastFunds.Description())]++
		if rec.DCCFlag.Allowed() {
			b.DCCAllowed++
		}
		if !rec.SchemeProduct.IsKnown() {
			b.UnlistedSchemeProducts++
		}
	}
	return b
}

func codeLabel(code, description string) string {
	if code == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", code, description)
}

func failureOf(rerr *record.RowError) *rowFailure {
	if rerr == nil {
		return nil
	}
	return &rowFailure{
		Line:    rerr.Line,
		Field:   rerr.Field,
		Value:   rerr.Value,
		Message: rerr.Err.Error(),
	}
}

func writeReport(w io.Writer, r validationReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	}

	status := "VALID"
	if !r.Valid {
		status = "INVALID"
	}
	fmt.Fprintf(w, "%s: %s (%d rows)\n", r.File, status, r.Rows)
	if s := r.SizeCheck; s != nil {
		fmt.Fprintf(w, "  size: %d -> %d bytes, change %s%% (acceptable %s%%)\n",
			s.PromotedSize, s.CandidateSize, s.Change, s.Acceptable)
	}
	if f := r.Failure; f != nil {
		if f.Field != "" {
			fmt.Fprintf(w, "  line %d: %s: %s [value: %q]\n", f.Line, f.Field, f.Message, f.Value)
		} else {
			fmt.Fprintf(w, "  line %d: %s\n", f.Line, f.Message)
		}
	}
	if b := r.Breakdown; b != nil {
		writeCounts(w, "product type", b.ProductTypes)
		writeCounts(w, "card class", b.CardClasses)
		writeCounts(w, "anonymous prepaid", b.AnonymousPrepaid)
		writeCounts(w, "fast funds", b.FastFunds)
		fmt.Fprintf(w, "  dcc allowed: %d\n", b.DCCAllowed)
		fmt.Fprintf(w, "  unlisted scheme products: %d\n", b.UnlistedSchemeProducts)
	}
	return nil
}

func writeCounts(w io.Writer, name string, counts map[string]int) {
	for _, k := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(w, "  %s %s: %d\n", name, k, counts[k])
	}
}
