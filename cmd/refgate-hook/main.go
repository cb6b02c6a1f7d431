// refgate-hook is the server-side push gate. Installed as a pre-receive
// or update hook it inspects every proposed reference update and rejects
// the whole push when any update violates repository policy: commits and
// tags have to carry a valid GPG signature by an allow-listed
// collaborator, master only takes merges, and ref creation, deletion and
// tag mutation are switched through `hooks.*` config options.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/urfave/cli/v2"

	"gitlab.com/gitlab-org/refgate/internal/gate"
	"gitlab.com/gitlab-org/refgate/internal/git"
	"gitlab.com/gitlab-org/refgate/internal/git/catfile"
	"gitlab.com/gitlab-org/refgate/internal/git/gitcmd"
	"gitlab.com/gitlab-org/refgate/internal/git/revwalk"
	"gitlab.com/gitlab-org/refgate/internal/gpg"
	"gitlab.com/gitlab-org/refgate/internal/log"
)

type environment struct {
	// RepoPath overrides repository discovery via $GIT_DIR.
	RepoPath string `envconfig:"REPO_PATH"`
	// KeyringPath overrides the default GPG public keyring location.
	KeyringPath string `envconfig:"KEYRING"`
}

func main() {
	logger := log.NewHookLogger()

	app := &cli.App{
		Name:            "refgate-hook",
		Usage:           "admission gate for pushed reference updates",
		HideHelpCommand: true,
		Commands: []*cli.Command{
			{
				Name:  "pre-receive",
				Usage: "admit a batch of updates read as \"<old> <new> <ref>\" lines from stdin",
				Action: func(cmdCtx *cli.Context) error {
					g, err := setupGate(cmdCtx.Context, logger)
					if err != nil {
						return hookError(logger, err)
					}
					return hookError(logger, g.Run(cmdCtx.Context, os.Stdin))
				},
			},
			{
				Name:      "update",
				Usage:     "admit a single update given as <ref> <old> <new> arguments",
				ArgsUsage: "<ref> <old> <new>",
				Action: func(cmdCtx *cli.Context) error {
					if cmdCtx.NArg() != 3 {
						return hookError(logger, errors.New("update hook requires <ref> <old> <new> arguments"))
					}

					update, err := git.ParseUpdate(fmt.Sprintf(
						"%s %s %s", cmdCtx.Args().Get(1), cmdCtx.Args().Get(2), cmdCtx.Args().Get(0),
					))
					if err != nil {
						return hookError(logger, fmt.Errorf("malformed input: %w", err))
					}

					g, err := setupGate(cmdCtx.Context, logger)
					if err != nil {
						return hookError(logger, err)
					}
					return hookError(logger, g.Admit(cmdCtx.Context, update))
				},
			},
			{
				Name:  "check",
				Usage: "verify that config, allow-list and keyring are loadable",
				Action: func(cmdCtx *cli.Context) error {
					if err := check(cmdCtx.Context, logger); err != nil {
						return hookError(logger, err)
					}
					fmt.Fprintln(os.Stdout, "OK")
					return nil
				},
			},
		},
	}

	// Invoked through a hook symlink named pre-receive, git passes no
	// arguments; the binary's name selects the pre-receive command.
	args := os.Args
	if filepath.Base(args[0]) == "pre-receive" {
		args = append([]string{args[0], "pre-receive"}, args[1:]...)
	}

	if err := app.Run(args); err != nil {
		os.Exit(1)
	}
}

// hookError maps a gate error to the hook's exit contract. Rejections
// have printed their reason already; everything else still needs a
// diagnostic.
func hookError(logger *log.HookLogger, err error) error {
	if err == nil {
		return nil
	}
	var rejection gate.RejectionError
	if !errors.As(err, &rejection) {
		logger.Errorf("%v", err)
	}
	return cli.Exit("", 1)
}

func setupGate(ctx context.Context, logger *log.HookLogger) (*gate.Gate, error) {
	var env environment
	if err := envconfig.Process("refgate", &env); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	repoPath, err := discoverRepoPath(env)
	if err != nil {
		return nil, err
	}
	runner := gitcmd.NewRunner(repoPath)

	cfg, err := gate.LoadConfig(ctx, runner)
	if err != nil {
		return nil, err
	}

	collaborators, err := gate.LoadCollaborators(filepath.Join(repoPath, gate.CollaboratorsFile))
	if err != nil {
		return nil, err
	}

	keyring, err := gpg.LoadKeyring(keyringPath(env))
	if err != nil {
		return nil, err
	}

	objects, err := catfile.NewReader(runner)
	if err != nil {
		return nil, fmt.Errorf("creating object reader: %w", err)
	}

	return gate.New(cfg, collaborators, objects, revwalk.NewWalker(runner), keyring, logger), nil
}

func check(ctx context.Context, logger *log.HookLogger) error {
	_, err := setupGate(ctx, logger)
	return err
}

// discoverRepoPath resolves the repository the hook runs against. Hooks
// are invoked with the current directory or $GIT_DIR pointing at the
// repository; REFGATE_REPO_PATH wins over both.
func discoverRepoPath(env environment) (string, error) {
	if env.RepoPath != "" {
		return env.RepoPath, nil
	}
	if gitDir := os.Getenv("GIT_DIR"); gitDir != "" {
		return gitDir, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("discovering repository: %w", err)
	}
	return cwd, nil
}

func keyringPath(env environment) string {
	if env.KeyringPath != "" {
		return env.KeyringPath
	}
	if gnupgHome := os.Getenv("GNUPGHOME"); gnupgHome != "" {
		return filepath.Join(gnupgHome, "pubring.gpg")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "pubring.gpg"
	}
	return filepath.Join(home, ".gnupg", "pubring.gpg")
}
