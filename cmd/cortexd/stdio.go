package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/cortexloop/engine/internal/orchestrator"
)

// stdioRunner implements the NDJSON-over-stdio control surface (spec §6.3):
// one JSON line in per command, one JSON line out per response or event.
// Grounded on the teacher's cmd/repl/stdio_runner.go: a buffered scanner/
// writer pair, a bounded events channel drained by a dedicated flush
// goroutine, and per-line command dispatch run in its own goroutine so a
// long-running trigger() never blocks the input loop (e.g. from handling a
// pause() issued while a cycle is mid-flight).
type stdioRunner struct {
	scanner *bufio.Scanner
	writer  *bufio.Writer
	writeMu sync.Mutex
	events  chan eventLine
	disp    *dispatcher
}

func newStdioRunner(in io.Reader, out io.Writer, env *runtimeEnv) *stdioRunner {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	r := &stdioRunner{
		scanner: scanner,
		writer:  bufio.NewWriter(out),
		events:  make(chan eventLine, 256),
		disp:    newDispatcher(env),
	}

	env.Orchestrator.Subscribe(func(e orchestrator.Event) {
		r.emitEvent(eventLine{
			Type:        e.Type,
			From:        string(e.From),
			To:          string(e.To),
			Phase:       e.Phase,
			CycleID:     e.CycleID,
			CycleNumber: e.CycleNumber,
			Success:     e.Success,
			CostUsd:     e.CostUsd,
			Error:       e.Error,
		})
	})

	return r
}

func (r *stdioRunner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go r.flushEvents(ctx, errCh)

	for {
		select {
		case <-ctx.Done():
			close(r.events)
			return <-errCh
		default:
		}

		if !r.scanner.Scan() {
			break
		}
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}
		go func(l string) {
			r.handleLine(ctx, l)
		}(line)
	}

	if err := r.scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		log.Printf("cortexd: stdin error: %v", err)
	}

	close(r.events)
	return <-errCh
}

func (r *stdioRunner) flushEvents(ctx context.Context, errCh chan<- error) {
	for {
		select {
		case <-ctx.Done():
			errCh <- nil
			return
		case ev, ok := <-r.events:
			if !ok {
				errCh <- r.writer.Flush()
				return
			}
			if err := r.writeJSON(ev); err != nil {
				errCh <- err
				return
			}
		}
	}
}

func (r *stdioRunner) emitEvent(e eventLine) {
	select {
	case r.events <- e:
	default:
		log.Printf("cortexd: dropping event %s, events channel full", e.Type)
	}
}

func (r *stdioRunner) handleLine(ctx context.Context, line string) {
	cmd, err := decodeCommand([]byte(line))
	if err != nil {
		if werr := r.writeJSON(response{Error: fmt.Sprintf("invalid command: %v", err)}); werr != nil {
			log.Printf("cortexd: write error response: %v", werr)
		}
		return
	}

	resp := r.disp.handle(ctx, cmd)
	if err := r.writeJSON(resp); err != nil {
		log.Printf("cortexd: write response: %v", err)
	}
}

func (r *stdioRunner) writeJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	payload = append(payload, '\n')

	// Writes from concurrent command goroutines and the single flush
	// goroutine must not interleave mid-line.
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if _, err := r.writer.Write(payload); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return r.writer.Flush()
}
