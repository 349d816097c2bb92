// Package shell provides the action that runs commands through the step environment.
package shell

import (
	"fmt"
	"strings"

	log "go.arcalot.io/log/v2"
	"go.flow.arcalot.io/pluginsdk/schema"

	"go.flow.arcalot.io/stepflow/env"
	"go.flow.arcalot.io/stepflow/internal/util"
	"go.flow.arcalot.io/stepflow/step"
)

// Environ is the optional interface of the execution context that supplies the environment
// commands run in. Contexts without it fall back to the environment the provider was created
// with.
type Environ interface {
	Environ() *env.Environment
}

// New creates the provider for the "shell" action kind. The fallback environment is used for
// execution contexts that do not carry their own.
func New(logger log.Logger, fallback *env.Environment) (step.ActionProvider, error) {
	if logger == nil {
		return nil, fmt.Errorf("bug: no logger passed to shell.New")
	}
	if fallback == nil {
		return nil, fmt.Errorf("bug: no fallback environment passed to shell.New")
	}
	return &shellProvider{
		logger:   logger.WithLabel("source", "shell-provider"),
		fallback: fallback,
	}, nil
}

type shellProvider struct {
	logger   log.Logger
	fallback *env.Environment
}

func (p *shellProvider) Descriptor() step.ActionDescriptor {
	return step.ActionDescriptor{
		Kind: "shell",
	}
}

func (p *shellProvider) Create(value any, addr step.Address) (step.Action, error) {
	cfg, err := parseValue(value)
	if err != nil {
		return nil, step.TranslateValidation(addr, err)
	}
	return &shellAction{
		logger:   p.logger,
		fallback: p.fallback,
		cfg:      cfg,
	}, nil
}

// commandConfig is the full configuration of one command. The cmd property doubles as a
// shell-quoted string or an argument list, so it stays untyped in the schema and is narrowed
// by parseValue.
type commandConfig struct {
	Cmd   any    `json:"cmd"`
	Input string `json:"input"`
	Dir   string `json:"dir"`
	Check bool   `json:"check"`
}

func getCommandSchema() *schema.TypedScopeSchema[*commandConfig] {
	return schema.NewTypedScopeSchema[*commandConfig](
		schema.NewStructMappedObjectSchema[*commandConfig](
			"Command",
			map[string]*schema.PropertySchema{
				"cmd": schema.NewPropertySchema(
					schema.NewAnySchema(),
					schema.NewDisplayValue(
						schema.PointerTo("Command"),
						schema.PointerTo("Command to run, as a shell-quoted string or an argument list."),
						nil,
					),
					true,
					nil,
					nil,
					nil,
					nil,
					[]string{"\"echo hello\""},
				),
				"input": schema.NewPropertySchema(
					schema.NewStringSchema(nil, nil, nil),
					schema.NewDisplayValue(
						schema.PointerTo("Standard input"),
						schema.PointerTo("Data passed to the command on its standard input."),
						nil,
					),
					false,
					nil,
					nil,
					nil,
					schema.PointerTo(util.JSONEncode("")),
					nil,
				),
				"dir": schema.NewPropertySchema(
					schema.NewStringSchema(nil, nil, nil),
					schema.NewDisplayValue(
						schema.PointerTo("Working directory"),
						schema.PointerTo("Directory to run the command in, relative to the environment's working directory."),
						nil,
					),
					false,
					nil,
					nil,
					nil,
					schema.PointerTo(util.JSONEncode("")),
					nil,
				),
				"check": schema.NewPropertySchema(
					schema.NewBoolSchema(),
					schema.NewDisplayValue(
						schema.PointerTo("Check exit status"),
						schema.PointerTo("Fail the step if the command exits with a non-zero status."),
						nil,
					),
					false,
					nil,
					nil,
					nil,
					schema.PointerTo(util.JSONEncode(false)),
					nil,
				),
			},
		),
	)
}

func parseValue(value any) (*commandConfig, error) {
	var cfg *commandConfig
	switch typed := value.(type) {
	case string:
		cfg = &commandConfig{Cmd: typed}
	case map[string]any:
		parsed, err := getCommandSchema().UnserializeType(typed)
		if err != nil {
			return nil, err
		}
		cfg = parsed
	default:
		return nil, fmt.Errorf(
			"unsupported shell configuration type %T, expected a command string or a mapping",
			value,
		)
	}
	return cfg, normalizeCommand(cfg)
}

// normalizeCommand narrows the untyped cmd property to the string or []string forms the
// environment runner accepts, rejecting empty commands at parse time.
func normalizeCommand(cfg *commandConfig) error {
	switch cmd := cfg.Cmd.(type) {
	case string:
		if strings.TrimSpace(cmd) == "" {
			return fmt.Errorf("cannot run an empty command")
		}
	case []string:
		if len(cmd) == 0 {
			return fmt.Errorf("cannot run an empty command")
		}
	case []any:
		if len(cmd) == 0 {
			return fmt.Errorf("cannot run an empty command")
		}
		args := make([]string, len(cmd))
		for i, arg := range cmd {
			stringArg, ok := arg.(string)
			if !ok {
				return fmt.Errorf("command arguments must be strings, got %T", arg)
			}
			args[i] = stringArg
		}
		cfg.Cmd = args
	default:
		return fmt.Errorf("unsupported command type %T, expected string or []string", cfg.Cmd)
	}
	return nil
}

type shellAction struct {
	logger   log.Logger
	fallback *env.Environment
	cfg      *commandConfig
}

func (a *shellAction) Call(ectx any) (any, error) {
	environ := a.fallback
	if provider, ok := ectx.(Environ); ok {
		if e := provider.Environ(); e != nil {
			environ = e
		}
	}
	a.logger.Debugf("Running command %v", a.cfg.Cmd)
	result, err := environ.Run(a.cfg.Cmd, env.RunOptions{
		Input: []byte(a.cfg.Input),
		Dir:   a.cfg.Dir,
		Check: a.cfg.Check,
	})
	if err != nil {
		return nil, err
	}
	a.logger.Debugf("Command %v finished with exit code %d", a.cfg.Cmd, result.ExitCode)
	return result, nil
}
