package proc

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	shellwords "github.com/mattn/go-shellwords"
)

// ErrNoCommand is returned when a spec has neither an image nor a command.
var ErrNoCommand = errors.New("must specify a command or an image")

// SpawnError reports a failure to construct or start a process.
type SpawnError struct {
	Name string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Name, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// BuildCommand constructs the OS command for a spec. Specs with an image
// become a docker-run invocation wrapping the image, environment, and an
// optional directory mount; image-less specs are tokenized local commands.
// An *exec.Cmd cannot be started twice, so callers rebuild on every spawn.
func BuildCommand(spec Spec) (*exec.Cmd, error) {
	if spec.Image != "" {
		return buildDockerCommand(spec)
	}
	return buildLocalCommand(spec)
}

// buildDockerCommand produces
//
//	docker run --rm -e K=V... [-w /opt/mounted -v <dir>:/opt/mounted] <image> [args...]
func buildDockerCommand(spec Spec) (*exec.Cmd, error) {
	args := []string{"run", "--rm"}
	for _, k := range sortedKeys(spec.Environment) {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, spec.Environment[k]))
	}
	if spec.Directory != "" {
		dir, err := filepath.Abs(spec.Directory)
		if err != nil {
			return nil, &SpawnError{Name: spec.Name, Err: err}
		}
		args = append(args, "-w", "/opt/mounted", "-v", dir+":/opt/mounted")
	}
	args = append(args, spec.Image)
	if spec.Command != "" {
		extra, err := shellwords.Parse(spec.Command)
		if err != nil {
			return nil, &SpawnError{Name: spec.Name, Err: fmt.Errorf("bad command string: %w", err)}
		}
		args = append(args, extra...)
	}
	return exec.Command("docker", args...), nil
}

func buildLocalCommand(spec Spec) (*exec.Cmd, error) {
	if spec.Command == "" {
		return nil, &SpawnError{Name: spec.Name, Err: ErrNoCommand}
	}
	argv, err := shellwords.Parse(spec.Command)
	if err != nil {
		return nil, &SpawnError{Name: spec.Name, Err: fmt.Errorf("bad command string: %w", err)}
	}
	if len(argv) == 0 {
		return nil, &SpawnError{Name: spec.Name, Err: ErrNoCommand}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = os.Environ()
	for _, k := range sortedKeys(spec.Environment) {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, spec.Environment[k]))
	}
	if spec.Directory != "" {
		dir, err := filepath.Abs(spec.Directory)
		if err != nil {
			return nil, &SpawnError{Name: spec.Name, Err: err}
		}
		cmd.Dir = dir
	}
	return cmd, nil
}

// sortedKeys keeps env flag order stable across spawns.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
