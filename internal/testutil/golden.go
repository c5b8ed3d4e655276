// Package testutil provides shared test infrastructure for the units engine.
// It consolidates the golden model fixtures and assertion helpers used across
// units/, units/expr/ and cmd/ test packages.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats/scalar"
	"gopkg.in/yaml.v3"
)

// GoldenExpectations represents the structure of testdata/golden_expectations.yaml.
type GoldenExpectations struct {
	Expressions []GoldenExpectation `yaml:"expressions"`
}

// GoldenExpectation is the expected outcome for one expression of the golden model.
type GoldenExpectation struct {
	Name       string `yaml:"name"`
	Consistent bool   `yaml:"consistent"`
	// Dimensionality of the inferred unit; empty for inconsistent expressions.
	Dimensionality string `yaml:"dimensionality,omitempty"`
	// Error sentinel expected for inconsistent expressions: inconsistent, units, unsupported.
	Error string `yaml:"error,omitempty"`
}

// testdataDir resolves the repository testdata directory relative to this source
// file: internal/testutil/ → testdata/.
func testdataDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "testdata")
}

// GoldenModelPath returns the path of testdata/golden_model.yaml.
func GoldenModelPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(testdataDir(t), "golden_model.yaml")
}

// LoadGoldenExpectations loads testdata/golden_expectations.yaml.
func LoadGoldenExpectations(t *testing.T) *GoldenExpectations {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(testdataDir(t), "golden_expectations.yaml"))
	if err != nil {
		t.Fatalf("Failed to read golden expectations: %v", err)
	}
	var golden GoldenExpectations
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&golden); err != nil {
		t.Fatalf("Failed to parse golden expectations: %v", err)
	}
	return &golden
}

// AssertFloat64Equal fails the test when got and want differ by more than relTol
// relative to the larger magnitude.
func AssertFloat64Equal(t *testing.T, what string, want, got, relTol float64) {
	t.Helper()
	if !scalar.EqualWithinRel(want, got, relTol) {
		t.Errorf("%s: got %v, want %v (relative tolerance %g)", what, got, want, relTol)
	}
}

// CaptureLogOutput runs fn with logrus writing to a buffer at debug level and
// returns what was logged. The previous output and level are restored.
func CaptureLogOutput(fn func()) string {
	var buf bytes.Buffer
	prevOut := logrus.StandardLogger().Out
	prevLevel := logrus.GetLevel()
	logrus.SetOutput(&buf)
	logrus.SetLevel(logrus.DebugLevel)
	defer func() {
		logrus.SetOutput(prevOut)
		logrus.SetLevel(prevLevel)
	}()
	fn()
	return buf.String()
}
