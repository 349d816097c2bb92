package stepflow_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.arcalot.io/assert"
	"go.arcalot.io/lang"
	log "go.arcalot.io/log/v2"

	"go.flow.arcalot.io/stepflow"
	"go.flow.arcalot.io/stepflow/config"
	"go.flow.arcalot.io/stepflow/env"
	"go.flow.arcalot.io/stepflow/step"
)

func createTestEngine(t *testing.T, rootDir string) (stepflow.StepEngine, *stepflow.DefaultContext) {
	t.Helper()
	cfg := config.Default()
	cfg.Log.T = t
	cfg.Log.Level = log.LevelDebug
	cfg.Log.Destination = log.DestinationTest

	environ := lang.Must2(env.New(map[string]string{"PATH": "/usr/bin:/bin"}, rootDir))
	reg, err := stepflow.NewDefaultRegistry(log.NewTestLogger(t), environ, rootDir)
	assert.NoError(t, err)
	flow, err := stepflow.New(cfg, reg)
	assert.NoError(t, err)
	return flow, &stepflow.DefaultContext{
		Environment: environ,
		Data:        map[string]any{},
	}
}

func TestEmptyStepsFile(t *testing.T) {
	flow, ectx := createTestEngine(t, t.TempDir())
	for name, data := range map[string][]byte{
		"no-data":  nil,
		"comments": []byte("# nothing here\n"),
	} {
		data := data
		t.Run(name, func(t *testing.T) {
			_, err := flow.Run(data, "test.yaml", ectx)
			assert.Error(t, err)
			if !errors.Is(err, stepflow.ErrEmptyStepsFile) {
				t.Fatalf("Incorrect error returned.")
			}
		})
	}
}

func TestInvalidStepsYAML(t *testing.T) {
	flow, ectx := createTestEngine(t, t.TempDir())
	_, err := flow.Run([]byte(": foo\n  bar"), "test.yaml", ectx)
	assert.Error(t, err)
	var invalidYAML *stepflow.ErrInvalidStepsYAML
	if !errors.As(err, &invalidYAML) {
		t.Fatalf("Incorrect error returned.")
	}
}

func TestNotAStepList(t *testing.T) {
	flow, ectx := createTestEngine(t, t.TempDir())
	_, err := flow.Run([]byte("shell: echo hello"), "test.yaml", ectx)
	assert.Error(t, err)
	var notAList *stepflow.ErrNotStepList
	if !errors.As(err, &notAList) {
		t.Fatalf("Incorrect error returned.")
	}
	assert.Equals(t, notAList.Actual, "map")
}

func TestNonMappingStep(t *testing.T) {
	flow, ectx := createTestEngine(t, t.TempDir())
	_, err := flow.Run([]byte("- 42"), "test.yaml", ectx)
	assert.Error(t, err)
	var parseErr *step.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Incorrect error returned.")
	}
	assert.Equals(t, parseErr.Address.String(), "test.yaml:steps[0]")
}

func TestParseMetadataAndModifiers(t *testing.T) {
	flow, _ := createTestEngine(t, t.TempDir())
	steps, err := flow.Parse([]byte(`
- description: Example step
  when: "true"
  shell: echo hello
`), "test.yaml", nil)
	assert.NoError(t, err)
	assert.Equals(t, len(steps), 1)
	assert.Equals(t, steps[0].Address().String(), "test.yaml:steps[0]")
	assert.Equals(t, steps[0].Metadata(), map[string]any{"description": "Example step"})
	assert.Equals(t, steps[0].ModifierKinds(), []string{"when"})
	assert.Equals(t, steps[0].ActionKind(), "shell")
}

func TestE2E(t *testing.T) {
	flow, ectx := createTestEngine(t, t.TempDir())
	results, err := flow.Run([]byte(`
- description: Example step
  when: "true"
  shell: echo hello
`), "test.yaml", ectx)
	assert.NoError(t, err)
	assert.Equals(t, len(results), 1)
	result := results[0].(*env.CompletedProcess)
	assert.Equals(t, string(result.Stdout), "hello\n")
}

func TestE2ESkipped(t *testing.T) {
	rootDir := t.TempDir()
	flow, ectx := createTestEngine(t, rootDir)
	results, err := flow.Run([]byte(`
- when: "false"
  shell: touch marker
`), "test.yaml", ectx)
	assert.NoError(t, err)
	assert.Equals(t, len(results), 1)
	assert.Equals(t, results[0], any(step.Skipped))
	if _, err := os.Stat(filepath.Join(rootDir, "marker")); err == nil {
		t.Fatalf("Expected the skipped step not to run its command.")
	}
}

func TestE2EStepOrder(t *testing.T) {
	flow, ectx := createTestEngine(t, t.TempDir())
	results, err := flow.Run([]byte(`
- shell: echo one
- when: "false"
  shell: echo two
- shell: echo three
`), "test.yaml", ectx)
	assert.NoError(t, err)
	assert.Equals(t, len(results), 3)
	assert.Equals(t, string(results[0].(*env.CompletedProcess).Stdout), "one\n")
	assert.Equals(t, results[1], any(step.Skipped))
	assert.Equals(t, string(results[2].(*env.CompletedProcess).Stdout), "three\n")
}

func TestE2ECondition(t *testing.T) {
	flow, ectx := createTestEngine(t, t.TempDir())
	ectx.Data = map[string]any{
		"flags": map[string]any{"deploy": "yes"},
	}
	results, err := flow.Run([]byte(`
- when: $.flags.deploy
  shell: echo deploying
`), "test.yaml", ectx)
	assert.NoError(t, err)
	assert.Equals(t, string(results[0].(*env.CompletedProcess).Stdout), "deploying\n")

	ectx.Data["flags"].(map[string]any)["deploy"] = ""
	results, err = flow.Run([]byte(`
- when: $.flags.deploy
  shell: echo deploying
`), "test.yaml", ectx)
	assert.NoError(t, err)
	assert.Equals(t, results[0], any(step.Skipped))
}

func TestE2EInclude(t *testing.T) {
	rootDir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(rootDir, "fragment.yaml"), []byte(`
- shell: echo included
`), 0644))

	flow, ectx := createTestEngine(t, rootDir)
	results, err := flow.Run([]byte(`
- shell: echo first
- include: fragment.yaml
- shell: echo last
`), "test.yaml", ectx)
	assert.NoError(t, err)
	assert.Equals(t, len(results), 3)
	assert.Equals(t, string(results[0].(*env.CompletedProcess).Stdout), "first\n")
	assert.Equals(t, string(results[1].(*env.CompletedProcess).Stdout), "included\n")
	assert.Equals(t, string(results[2].(*env.CompletedProcess).Stdout), "last\n")
}

func TestE2EIncludeCycle(t *testing.T) {
	rootDir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(rootDir, "loop.yaml"), []byte(`
- include: loop.yaml
`), 0644))

	flow, ectx := createTestEngine(t, rootDir)
	_, err := flow.Run([]byte(`
- include: loop.yaml
`), "test.yaml", ectx)
	assert.Error(t, err)
	var parseErr *step.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Incorrect error returned.")
	}
	assert.Contains(t, parseErr.Error(), "expansion exceeds")
}

func TestE2EEnvModifier(t *testing.T) {
	flow, ectx := createTestEngine(t, t.TempDir())
	results, err := flow.Run([]byte(`
- env:
    vars:
      GREETING: hello
  shell: sh -c "echo $GREETING"
`), "test.yaml", ectx)
	assert.NoError(t, err)
	assert.Equals(t, string(results[0].(*env.CompletedProcess).Stdout), "hello\n")
	_, ok := ectx.Environment.Get("GREETING")
	assert.Equals(t, ok, false)
}

func TestE2ERepeat(t *testing.T) {
	flow, ectx := createTestEngine(t, t.TempDir())
	results, err := flow.Run([]byte(`
- repeat:
    count: 2
  shell: echo again
`), "test.yaml", ectx)
	assert.NoError(t, err)
	assert.Equals(t, len(results), 1)
	runs := results[0].([]any)
	assert.Equals(t, len(runs), 2)
	for _, run := range runs {
		assert.Equals(t, string(run.(*env.CompletedProcess).Stdout), "again\n")
	}
}

func TestE2EModifierOrdering(t *testing.T) {
	// The when modifier is declared after repeat in the document, but its ordering
	// constraint places it first, so the whole step is skipped instead of repeated.
	flow, ectx := createTestEngine(t, t.TempDir())
	results, err := flow.Run([]byte(`
- repeat:
    count: 3
  when: "false"
  shell: echo x
`), "test.yaml", ectx)
	assert.NoError(t, err)
	assert.Equals(t, results[0], any(step.Skipped))
}

func TestE2EProhibitedModifiers(t *testing.T) {
	flow, ectx := createTestEngine(t, t.TempDir())
	_, err := flow.Run([]byte(`
- repeat:
    count: 2
  retry:
    attempts: 2
  shell: echo x
`), "test.yaml", ectx)
	assert.Error(t, err)
	var parseErr *step.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Incorrect error returned.")
	}
	assert.Contains(t, parseErr.Error(), "cannot be combined")
}

func TestRunStopsOnFailure(t *testing.T) {
	rootDir := t.TempDir()
	flow, ectx := createTestEngine(t, rootDir)
	_, err := flow.Run([]byte(`
- shell:
    cmd: sh -c "exit 1"
    check: true
- shell: touch marker
`), "test.yaml", ectx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "step test.yaml:steps[0] failed")
	var processErr *env.ProcessError
	if !errors.As(err, &processErr) {
		t.Fatalf("Incorrect error returned.")
	}
	if _, err := os.Stat(filepath.Join(rootDir, "marker")); err == nil {
		t.Fatalf("Expected the run to stop before the second step.")
	}
}

func TestE2ERetry(t *testing.T) {
	rootDir := t.TempDir()
	flow, ectx := createTestEngine(t, rootDir)
	// The first attempt creates the marker and fails, the second one sees it and succeeds.
	results, err := flow.Run([]byte(`
- retry:
    attempts: 3
  shell:
    cmd: sh -c "test -f marker || { touch marker; exit 1; }"
    check: true
`), "test.yaml", ectx)
	assert.NoError(t, err)
	result := results[0].(*env.CompletedProcess)
	assert.Equals(t, result.ExitCode, 0)
}

func TestE2ERetryExhausted(t *testing.T) {
	flow, ectx := createTestEngine(t, t.TempDir())
	_, err := flow.Run([]byte(`
- retry:
    attempts: 2
  shell:
    cmd: sh -c "exit 1"
    check: true
`), "test.yaml", ectx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "step test.yaml:steps[0] failed")
	var processErr *env.ProcessError
	if !errors.As(err, &processErr) {
		t.Fatalf("Incorrect error returned.")
	}
}
