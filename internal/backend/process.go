package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/qreviewer/qrev/internal/config"
)

// Process is a backend that invokes an external review command, locally or
// on a remote host over SSH. The prompt is written to the command's stdin;
// the raw review text is read from stdout.
type Process struct {
	name    string
	command []string
	host    string
	user    string
	port    int
	keyPath string
	timeout time.Duration
}

// NewProcess creates a process backend from its configuration.
func NewProcess(cfg config.BackendConfig) (*Process, error) {
	if len(cfg.Command) == 0 {
		return nil, fmt.Errorf("process backend requires a command")
	}
	name := cfg.Name
	if name == "" {
		name = "process"
	}
	return &Process{
		name:    name,
		command: cfg.Command,
		host:    cfg.Host,
		user:    cfg.User,
		port:    cfg.Port,
		keyPath: cfg.KeyPath,
		timeout: cfg.Timeout(),
	}, nil
}

func (p *Process) Name() string { return p.name }

func (p *Process) Timeout() time.Duration { return p.timeout }

func (p *Process) Submit(ctx context.Context, req Request) (Response, error) {
	prompt := SystemPrompt() + "\n\n" + BuildUserPrompt(req)
	argv := p.argv()

	start := time.Now()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Response{}, &TransientError{Reason: "command timed out", Err: ctx.Err()}
		}
		if errors.Is(err, exec.ErrNotFound) {
			return Response{}, &PermanentError{Reason: "command not found: " + argv[0], Err: err}
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return Response{}, &TransientError{Reason: "command failed: " + msg}
	}

	content := cleanOutput(stdout.String())
	if content == "" {
		return Response{}, &MalformedError{Reason: "empty output from command"}
	}

	return Response{
		Backend: p.name,
		Content: content,
		Latency: time.Since(start),
	}, nil
}

// argv builds the local argv, wrapping the command in ssh when a remote
// host is configured.
func (p *Process) argv() []string {
	if p.host == "" {
		return p.command
	}
	argv := []string{
		"ssh",
		"-o", "StrictHostKeyChecking=no",
		"-o", "ConnectTimeout=30",
	}
	if p.port > 0 {
		argv = append(argv, "-p", strconv.Itoa(p.port))
	}
	if p.keyPath != "" {
		argv = append(argv, "-i", p.keyPath)
	}
	target := p.host
	if p.user != "" {
		target = p.user + "@" + p.host
	}
	argv = append(argv, target)
	argv = append(argv, strings.Join(p.command, " "))
	return argv
}

var ansiEscape = regexp.MustCompile(`\x1B(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)

// cleanOutput strips ANSI color codes and interactive-prompt prefixes that
// CLI review tools decorate their output with.
func cleanOutput(s string) string {
	s = ansiEscape.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "> ")
	return strings.TrimSpace(s)
}
