package preflight

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kaldialign/internal/config"
	"kaldialign/internal/services"
	"kaldialign/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
	if result := CheckReadableFile("test", f); !result.Passed {
		t.Fatalf("expected readable file, got %s", result.Detail)
	}
}

func TestCheckCreatableDirectory(t *testing.T) {
	base := t.TempDir()
	result := CheckCreatableDirectory("data", filepath.Join(base, "a", "b"))
	if !result.Passed || !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("expected creatable, got %+v", result)
	}
	if result := CheckCreatableDirectory("data", base); !result.Passed {
		t.Fatalf("expected existing dir to pass, got %+v", result)
	}
}

func TestRunAllPassesWithCompleteBundle(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModelFiles(), testsupport.WithStubbedToolkit())
	results := RunAll(cfg, cfg.Paths.DataDir)
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
	if err := Error(results); err != nil {
		t.Fatalf("Error = %v", err)
	}
}

func TestRunAllAcceptsReadOnlyRecipeDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}
	cfg := testsupport.NewConfig(t, testsupport.WithModelFiles(), testsupport.WithStubbedToolkit())
	recipe := cfg.Toolkit.RecipeDir
	if err := os.Chmod(recipe, 0o555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(recipe, 0o755) })

	if result := CheckDirectoryAccess("Recipe directory", recipe); result.Passed {
		t.Fatal("expected read/write check to reject a read-only dir")
	}
	if failed := Failed(RunAll(cfg, cfg.Paths.DataDir)); len(failed) != 0 {
		t.Fatalf("expected read-only recipe dir to pass preflight, got %+v", failed)
	}
}

func TestRunAllReportsMissingModel(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModelFiles(), testsupport.WithStubbedToolkit())
	if err := os.Remove(cfg.Model.Graph); err != nil {
		t.Fatal(err)
	}

	results := RunAll(cfg, cfg.Paths.DataDir)
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Decoding graph" {
		t.Fatalf("expected only the graph to fail, got %+v", failed)
	}
	err := Error(results)
	if !errors.Is(err, services.ErrConfiguration) || !strings.Contains(err.Error(), "HCLG.fst") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRunAllReportsMissingToolkit(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModelFiles())

	failed := Failed(RunAll(cfg, cfg.Paths.DataDir))
	names := map[string]bool{}
	for _, r := range failed {
		names[r.Name] = true
	}
	for _, want := range []string{"compute-mfcc-feats", "nnet3-latgen-faster", "nbest-to-ctm"} {
		if !names[want] {
			t.Fatalf("expected %s to fail, got %+v", want, failed)
		}
	}
}

func TestCheckSystemDepsIncludesPraatUnlessDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("praat"))

	for _, status := range CheckSystemDeps(cfg) {
		if status.Name == "praat" {
			t.Fatal("praat should be skipped when playback is never")
		}
	}

	cfg.Playback.Mode = config.PlaybackAsk
	var found bool
	for _, status := range CheckSystemDeps(cfg) {
		if status.Name == "praat" {
			found = true
			if !status.Available || !status.Optional {
				t.Fatalf("unexpected praat status %+v", status)
			}
		}
	}
	if !found {
		t.Fatal("expected praat requirement")
	}
}
