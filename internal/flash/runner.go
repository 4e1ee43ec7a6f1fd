package flash

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
)

// Runner executes one external command with an optional stdin. All
// partitioning, formatting, mounting and extraction goes through a Runner,
// so the command lines stay testable and --dry-run can print them instead.
type Runner interface {
	Run(stdin io.Reader, name string, arg ...string) error
}

// ExecRunner invokes commands via os/exec, logging each invocation and its
// combined output.
type ExecRunner struct{}

func (ExecRunner) Run(stdin io.Reader, name string, arg ...string) error {
	log.Printf("exec: %s %s", name, strings.Join(arg, " "))
	cmd := exec.Command(name, arg...)
	cmd.Stdin = stdin
	out, err := cmd.CombinedOutput()
	if trimmed := strings.TrimSpace(string(out)); trimmed != "" {
		log.Printf("%s", trimmed)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// NoopRunner prints each command instead of executing it. It backs the
// --dry-run flag.
type NoopRunner struct {
	Stdout io.Writer
}

func (r *NoopRunner) Run(stdin io.Reader, name string, arg ...string) error {
	fmt.Fprintf(r.Stdout, "dry-run: %s %s\n", name, strings.Join(arg, " "))
	if stdin == nil {
		return nil
	}
	// Show scripted input (e.g. the fdisk keystrokes) indented below the
	// command line.
	sc := bufio.NewScanner(stdin)
	for sc.Scan() {
		fmt.Fprintf(r.Stdout, "  | %s\n", sc.Text())
	}
	return sc.Err()
}
