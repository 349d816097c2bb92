// Package main provides the main entrypoint for stepflow.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	log "go.arcalot.io/log/v2"
	"gopkg.in/yaml.v3"

	"go.flow.arcalot.io/stepflow"
	"go.flow.arcalot.io/stepflow/config"
	"go.flow.arcalot.io/stepflow/env"
	"go.flow.arcalot.io/stepflow/internal/tableprinter"
	"go.flow.arcalot.io/stepflow/step"
)

// These variables are filled using ldflags during the build process with Goreleaser.
// See https://goreleaser.com/cookbooks/using-main.version/
var (
	version = "development"
	commit  = "unknown"
	date    = "unknown"
)

// ExitCodeOK signals that the program terminated normally.
const ExitCodeOK = 0

// ExitCodeInvalidData signals that the program encountered an invalid configuration, steps
// file, or data file.
const ExitCodeInvalidData = 1

// ExitCodeStepFailed indicates that a step failed during the run.
const ExitCodeStepFailed = 2

func main() {
	tempLogger := log.New(log.Config{
		Level:       log.LevelInfo,
		Destination: log.DestinationStdout,
		Stdout:      os.Stderr,
	})

	configFile := ""
	dataFile := ""
	dir := "."
	stepsFile := "steps.yaml"
	printVersion := false
	listKinds := false

	flag.BoolVar(&printVersion, "version", printVersion, "Print the stepflow version and exit.")
	flag.BoolVar(&listKinds, "list", listKinds, "Print the registered step kinds and exit.")
	flag.StringVar(
		&configFile,
		"config",
		configFile,
		"The stepflow configuration file to load, if any.",
	)
	flag.StringVar(
		&dataFile,
		"data",
		dataFile,
		"A YAML file with the data step conditions are evaluated against. May be outside the "+
			"context directory. If no data file is passed, conditions see an empty data set.",
	)
	flag.StringVar(
		&dir,
		"context",
		dir,
		"The directory to run from. Commands run in it and relative include paths resolve "+
			"against it. Defaults to the current directory.",
	)
	flag.StringVar(
		&stepsFile,
		"steps",
		stepsFile,
		"The steps file in the context directory to load. Defaults to steps.yaml.",
	)
	flag.Usage = func() {
		_, _ = os.Stderr.Write([]byte(`Usage: stepflow [OPTIONS]

Stepflow reads a YAML steps file and runs its steps in order, printing the
step results as YAML.

Options:

  -version            Print the stepflow version and exit.

  -list               Print the registered step kinds and exit.

  -config FILENAME    The stepflow configuration file to load, if any.

  -data FILENAME      A YAML file with the data step conditions are evaluated
                      against. May be outside the context directory. If no
                      data file is passed, conditions see an empty data set.

  -context DIRECTORY  The directory to run from. Commands run in it and
                      relative include paths resolve against it. Defaults to
                      the current directory.

  -steps FILENAME     The steps file in the context directory to load.
                      Defaults to steps.yaml.
`))
	}
	flag.Parse()

	if printVersion {
		fmt.Printf(
			"Stepflow\n"+
				"========\n"+
				"Version: %s\n"+
				"Commit: %s\n"+
				"Date: %s\n",
			version, commit, date,
		)
		return
	}

	var err error

	var configData any = map[any]any{}
	if configFile != "" {
		configData, err = loadYamlFile(configFile)
		if err != nil {
			tempLogger.Errorf("Failed to load configuration file %s (%v)", configFile, err)
			flag.Usage()
			os.Exit(ExitCodeInvalidData)
		}
	}
	cfg, err := config.Load(configData)
	if err != nil {
		tempLogger.Errorf("Failed to load configuration file %s (%v)", configFile, err)
		flag.Usage()
		os.Exit(ExitCodeInvalidData)
	}

	// now we are ready to instantiate our main logger
	cfg.Log.Stdout = os.Stderr
	logger := log.New(cfg.Log).WithLabel("source", "main")

	environ, err := env.System()
	if err != nil {
		logger.Errorf("Failed to read the process environment (%v)", err)
		os.Exit(ExitCodeInvalidData)
	}
	environ.Chdir(dir)

	reg, err := stepflow.NewDefaultRegistry(logger, environ, environ.Cwd())
	if err != nil {
		logger.Errorf("Failed to initialize the step registry (%v)", err)
		os.Exit(ExitCodeInvalidData)
	}
	if listKinds {
		tableprinter.PrintRegistryResponse(os.Stdout, reg, logger)
		return
	}

	stepsData, err := os.ReadFile(environ.Path(stepsFile))
	if err != nil {
		logger.Errorf("Failed to read steps file %s (%v)", stepsFile, err)
		flag.Usage()
		os.Exit(ExitCodeInvalidData)
	}

	data := map[string]any{}
	if dataFile != "" {
		loaded, err := loadYamlFile(dataFile)
		if err != nil {
			logger.Errorf("Failed to load data file %s (%v)", dataFile, err)
			flag.Usage()
			os.Exit(ExitCodeInvalidData)
		}
		mapped, ok := loaded.(map[string]any)
		if !ok {
			logger.Errorf("The data file %s does not contain a mapping (%T)", dataFile, loaded)
			os.Exit(ExitCodeInvalidData)
		}
		data = mapped
	}

	flow, err := stepflow.New(cfg, reg)
	if err != nil {
		logger.Errorf("Failed to initialize the engine with config file %s (%v)", configFile, err)
		os.Exit(ExitCodeInvalidData)
	}

	ectx := &stepflow.DefaultContext{
		Environment: environ,
		Data:        data,
	}
	os.Exit(runSteps(flow, logger, stepsData, stepsFile, ectx))
}

func runSteps(flow stepflow.StepEngine, logger log.Logger, stepsData []byte, source string, ectx *stepflow.DefaultContext) int {
	results, err := flow.Run(stepsData, source, ectx)
	if err != nil {
		var parseErr *step.ParseError
		var validationErr *step.ValidationError
		var invalidYAML *stepflow.ErrInvalidStepsYAML
		var notAList *stepflow.ErrNotStepList
		switch {
		case errors.As(err, &parseErr),
			errors.As(err, &validationErr),
			errors.As(err, &invalidYAML),
			errors.As(err, &notAList),
			errors.Is(err, stepflow.ErrEmptyStepsFile):
			logger.Errorf("Invalid steps file %s (%v)", source, err)
			return ExitCodeInvalidData
		default:
			logger.Errorf("Run failed (%v)", err)
			return ExitCodeStepFailed
		}
	}

	rendered := make([]any, len(results))
	for i, result := range results {
		rendered[i] = renderResult(result)
	}
	data, err := yaml.Marshal(map[string]any{
		"results": rendered,
	})
	if err != nil {
		logger.Errorf("Failed to marshal the results (%v)", err)
		return ExitCodeInvalidData
	}
	_, _ = os.Stdout.Write(data)
	return ExitCodeOK
}

// renderResult converts a step result into plain YAML-friendly values.
func renderResult(result any) any {
	switch typed := result.(type) {
	case *env.CompletedProcess:
		return map[string]any{
			"args":      typed.Args,
			"exit_code": typed.ExitCode,
			"stdout":    string(typed.Stdout),
			"stderr":    string(typed.Stderr),
		}
	case []any:
		rendered := make([]any, len(typed))
		for i, item := range typed {
			rendered[i] = renderResult(item)
		}
		return rendered
	case fmt.Stringer:
		return typed.String()
	default:
		return typed
	}
}

func loadYamlFile(file string) (any, error) {
	fileContents, err := os.ReadFile(file) //nolint:gosec
	if err != nil {
		return nil, err
	}
	var data any
	if err := yaml.Unmarshal(fileContents, &data); err != nil {
		return nil, err
	}
	return data, nil
}
