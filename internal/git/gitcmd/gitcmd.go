package gitcmd

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

var (
	subCmdNameRegex = regexp.MustCompile(`^[[:alnum:]]+(-[[:alnum:]]+)*$`)
	flagRegex       = regexp.MustCompile(`^(-|--)[[:alnum:]]`)
)

// SubCmd represents a specific git command with all of its arguments. The
// arguments are validated before execution so that untrusted ref names and
// object IDs can never be smuggled in as options.
type SubCmd struct {
	Name        string
	Flags       []Flag
	Args        []string
	PostSepArgs []string
}

// Flag is a git command line flag with validation logic.
type Flag interface {
	ValidateArgs() ([]string, error)
}

// Option is a single token flag that enables or disables functionality,
// e.g. "--tags".
type Option struct {
	Name string
}

// ValidateArgs returns an error if the flag is not sanitary.
func (o Option) ValidateArgs() ([]string, error) {
	if err := validateFlag(o.Name); err != nil {
		return nil, err
	}
	return []string{o.Name}, nil
}

// ValueFlag is a flag with an attached value, rendered as a single
// "--name=value" token.
type ValueFlag struct {
	Name  string
	Value string
}

// ValidateArgs returns an error if the flag is not sanitary.
func (v ValueFlag) ValidateArgs() ([]string, error) {
	if err := validateFlag(v.Name); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("%s=%s", v.Name, v.Value)}, nil
}

func validateFlag(flag string) error {
	if !flagRegex.MatchString(flag) {
		return fmt.Errorf("gitcmd: invalid flag %q", flag)
	}
	return nil
}

func validatePositionalArg(arg string) error {
	if strings.HasPrefix(arg, "-") {
		return fmt.Errorf("gitcmd: positional arg %q cannot start with dash", arg)
	}
	return nil
}

// ValidateArgs checks all arguments of the sub command and renders the
// final argument vector.
func (sc SubCmd) ValidateArgs() ([]string, error) {
	var safeArgs []string

	if !subCmdNameRegex.MatchString(sc.Name) {
		return nil, fmt.Errorf("gitcmd: invalid sub command name %q", sc.Name)
	}
	safeArgs = append(safeArgs, sc.Name)

	for _, f := range sc.Flags {
		args, err := f.ValidateArgs()
		if err != nil {
			return nil, err
		}
		safeArgs = append(safeArgs, args...)
	}

	for _, a := range sc.Args {
		if err := validatePositionalArg(a); err != nil {
			return nil, err
		}
		safeArgs = append(safeArgs, a)
	}

	if len(sc.PostSepArgs) > 0 {
		safeArgs = append(safeArgs, "--")
	}

	for _, a := range sc.PostSepArgs {
		if err := validatePositionalArg(a); err != nil {
			return nil, err
		}
		safeArgs = append(safeArgs, a)
	}

	return safeArgs, nil
}

// Runner executes git commands against a single repository. The repository
// path is fixed at construction time; every other aspect of an invocation
// comes in as a validated SubCmd.
type Runner struct {
	gitPath  string
	repoPath string
}

// NewRunner returns a Runner operating on the repository at repoPath.
func NewRunner(repoPath string) *Runner {
	return &Runner{gitPath: "git", repoPath: repoPath}
}

// Run executes the sub command and returns its standard output. A non-zero
// exit status is returned as an error that includes the captured stderr.
func (r *Runner) Run(ctx context.Context, sc SubCmd) ([]byte, error) {
	return r.run(ctx, sc, nil)
}

// RunWithInput is Run with bytes fed to the command's standard input.
func (r *Runner) RunWithInput(ctx context.Context, sc SubCmd, input []byte) ([]byte, error) {
	return r.run(ctx, sc, input)
}

func (r *Runner) run(ctx context.Context, sc SubCmd, input []byte) ([]byte, error) {
	args, err := sc.ValidateArgs()
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, r.gitPath, args...)
	cmd.Dir = r.repoPath
	if input != nil {
		cmd.Stdin = bytes.NewReader(input)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git %s: %w: %s", sc.Name, err, strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}

// ConfigBool reads a boolean config option. Unset options resolve to
// false; a value git cannot canonicalize as a boolean is an error.
func (r *Runner) ConfigBool(ctx context.Context, key string) (bool, error) {
	out, err := r.Run(ctx, SubCmd{
		Name: "config",
		Flags: []Flag{
			ValueFlag{Name: "--type", Value: "bool"},
			ValueFlag{Name: "--default", Value: "false"},
			Option{Name: "--get"},
		},
		Args: []string{key},
	})
	if err != nil {
		return false, fmt.Errorf("reading config %q: %w", key, err)
	}

	switch value := strings.TrimSpace(string(out)); value {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("config %q is not a boolean: %q", key, value)
	}
}
