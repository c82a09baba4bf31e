package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// binFile builds a valid file of n detail rows.
func binFile(n int) string {
	var b strings.Builder
	b.WriteString("00,20240212\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "01,%018d,%018d,CN,MASTERCARD CREDIT,APERTURE SCIENCE INC.,GBR,826,UNITED KINGDOM,C,GBP,DCC allowed,AC000,N,N,,16,N,,,,,,,\n", i*10, i*10+9)
	}
	fmt.Fprintf(&b, "99,%06d\n", n)
	return b.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func defaultOptions(output string) validateOptions {
	return validateOptions{output: output, threshold: "5.0", workers: 2}
}

func TestValidate_ValidFileText(t *testing.T) {
	path := writeFile(t, "bins.csv", binFile(20))
	var out bytes.Buffer

	err := runValidate(context.Background(), &out, path, defaultOptions("text"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), ": VALID (22 rows)")
	assert.Contains(t, out.String(), "card class C (Credit): 20")
	assert.Contains(t, out.String(), "dcc allowed: 20")
}

func TestValidate_BreakdownJSON(t *testing.T) {
	content := strings.Replace(binFile(4), ",CN,", ",CP,", 1)
	content = strings.Replace(content, ",AC000,N,N,,16,N,", ",ZZ999,U,N,,16,,", 1)
	path := writeFile(t, "bins.csv", content)
	var out bytes.Buffer

	require.NoError(t, runValidate(context.Background(), &out, path, defaultOptions("json")))

	var report validationReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	require.NotNil(t, report.Breakdown)
	assert.Equal(t, map[string]int{"CN (Consumer Card)": 3, "CP (Commercial or Corporate Card)": 1}, report.Breakdown.ProductTypes)
	assert.Equal(t, 1, report.Breakdown.AnonymousPrepaid["U (Unknown)"])
	assert.Equal(t, 1, report.Breakdown.FastFunds["Not stated"])
	assert.Equal(t, 1, report.Breakdown.UnlistedSchemeProducts)
}

func TestValidate_RowTooLong(t *testing.T) {
	content := binFile(2) + "01," + strings.Repeat("9", 2<<20) + "\n"
	path := writeFile(t, "bins.csv", content)
	var out bytes.Buffer

	err := runValidate(context.Background(), &out, path, defaultOptions("json"))
	assert.ErrorIs(t, err, errInvalidFile)

	var report validationReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	require.NotNil(t, report.Failure)
	assert.Equal(t, 5, report.Failure.Line)
	assert.Nil(t, report.Breakdown)
}

func TestValidate_InvalidRowJSON(t *testing.T) {
	content := strings.Replace(binFile(5), ",CN,", ",XX,", 1)
	path := writeFile(t, "bins.csv", content)
	var out bytes.Buffer

	err := runValidate(context.Background(), &out, path, defaultOptions("json"))
	assert.ErrorIs(t, err, errInvalidFile)

	var report validationReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.False(t, report.Valid)
	require.NotNil(t, report.Failure)
	assert.Equal(t, 2, report.Failure.Line)
	assert.Equal(t, "XX", report.Failure.Value)
	assert.Nil(t, report.SizeCheck)
}

func TestValidate_SizeGuardYAML(t *testing.T) {
	promoted := writeFile(t, "promoted.csv", binFile(100))
	candidate := writeFile(t, "candidate.csv", binFile(50))
	opts := defaultOptions("yaml")
	opts.promoted = promoted
	var out bytes.Buffer

	err := runValidate(context.Background(), &out, candidate, opts)
	assert.ErrorIs(t, err, errInvalidFile)

	var report validationReport
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &report))
	require.NotNil(t, report.SizeCheck)
	assert.False(t, report.SizeCheck.Passed)
	assert.Equal(t, "5.00", report.SizeCheck.Acceptable)
	assert.Nil(t, report.Failure)
}

func TestValidate_SizeGuardPasses(t *testing.T) {
	promoted := writeFile(t, "promoted.csv", binFile(100))
	candidate := writeFile(t, "candidate.csv", binFile(101))
	opts := defaultOptions("text")
	opts.promoted = promoted
	var out bytes.Buffer

	require.NoError(t, runValidate(context.Background(), &out, candidate, opts))
	assert.Contains(t, out.String(), "change 1.00%")
}

func TestValidate_BadArguments(t *testing.T) {
	path := writeFile(t, "bins.csv", binFile(1))

	err := runValidate(context.Background(), &bytes.Buffer{}, path, defaultOptions("xml"))
	assert.ErrorContains(t, err, "unknown output format")

	opts := defaultOptions("text")
	opts.threshold = "five"
	err = runValidate(context.Background(), &bytes.Buffer{}, path, opts)
	assert.ErrorContains(t, err, "invalid threshold")

	err = runValidate(context.Background(), &bytes.Buffer{}, filepath.Join(t.TempDir(), "missing.csv"), defaultOptions("text"))
	assert.Error(t, err)
}
