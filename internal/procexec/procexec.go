package procexec

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os/exec"
	"strings"
	"sync"
	"time"

	"fragreel/internal/services"
)

const defaultTailBytes = 64 * 1024

// Command describes one tool invocation.
type Command struct {
	Binary  string
	Args    []string
	Dir     string
	Timeout time.Duration
	// TailBytes bounds how much combined output is retained.
	TailBytes int
}

// Result reports how the tool exited.
type Result struct {
	ExitCode int
	Tail     string
	Elapsed  time.Duration
}

// Process is a started tool invocation.
type Process struct {
	cmd     Command
	ctx     context.Context
	cancel  context.CancelFunc
	proc    *exec.Cmd
	lines   chan string
	started time.Time

	mu   sync.Mutex
	tail *tailBuffer
}

// Start launches cmd. The caller must call Wait.
func Start(ctx context.Context, cmd Command) (*Process, error) {
	binary := strings.TrimSpace(cmd.Binary)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "procexec", "start", "binary not configured", nil)
	}
	cmd.Binary = binary

	cancel := context.CancelFunc(func() {})
	if cmd.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
	}

	limit := cmd.TailBytes
	if limit <= 0 {
		limit = defaultTailBytes
	}

	proc := exec.CommandContext(ctx, binary, cmd.Args...) //nolint:gosec
	proc.Dir = cmd.Dir
	proc.WaitDelay = 2 * time.Second
	stdout, err := proc.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := proc.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := proc.Start(); err != nil {
		cancel()
		return nil, services.Wrap(services.ErrSubprocess, binary, "start", "", err)
	}

	p := &Process{
		cmd:     cmd,
		ctx:     ctx,
		cancel:  cancel,
		proc:    proc,
		lines:   make(chan string, 64),
		started: time.Now(),
		tail:    &tailBuffer{max: limit},
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go p.scan(&wg, stdout)
	go p.scan(&wg, stderr)
	go func() {
		wg.Wait()
		close(p.lines)
	}()
	return p, nil
}

func (p *Process) scan(wg *sync.WaitGroup, r io.Reader) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLinesOrCR)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		p.mu.Lock()
		p.tail.WriteLine(line)
		p.mu.Unlock()
		p.lines <- line
	}
	// Drain after a scanner error so the child never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

// Lines yields output lines from stdout and stderr as they arrive. A bare
// carriage return also ends a line, so ffmpeg status updates arrive one by
// one. The sequence ends when the tool closes its output and can be
// consumed once.
func (p *Process) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		for line := range p.lines {
			if !yield(line) {
				return
			}
		}
	}
}

// Wait drains any unread output, waits for exit and classifies failures.
func (p *Process) Wait() (Result, error) {
	defer p.cancel()
	for range p.lines {
	}
	waitErr := p.proc.Wait()

	p.mu.Lock()
	res := Result{ExitCode: exitCode(p.proc, waitErr), Tail: p.tail.String(), Elapsed: time.Since(p.started)}
	p.mu.Unlock()

	if waitErr == nil {
		return res, nil
	}
	if errors.Is(p.ctx.Err(), context.DeadlineExceeded) {
		return res, services.Wrap(services.ErrTimeout, p.cmd.Binary, "run", fmt.Sprintf("exceeded %s", p.cmd.Timeout), p.ctx.Err())
	}
	if p.ctx.Err() != nil {
		return res, p.ctx.Err()
	}
	return res, services.Wrap(services.ErrSubprocess, p.cmd.Binary, "run",
		fmt.Sprintf("exit status %d: %s", res.ExitCode, lastLines(res.Tail, 5)), waitErr)
}

// Run starts cmd, discards its output lines and waits for it.
func Run(ctx context.Context, cmd Command) (Result, error) {
	p, err := Start(ctx, cmd)
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	return p.Wait()
}

func exitCode(proc *exec.Cmd, err error) int {
	if proc.ProcessState != nil {
		return proc.ProcessState.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

// scanLinesOrCR is bufio.ScanLines that also splits on a bare '\r'.
func scanLinesOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func lastLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

// tailBuffer retains the most recent max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) WriteLine(line string) {
	t.buf = append(t.buf, line...)
	t.buf = append(t.buf, '\n')
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
