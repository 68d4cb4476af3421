package usi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultReadyTimeout = 10 * time.Second
	mateScoreCP         = 30000
)

var ErrSessionClosed = errors.New("usi session closed")

type Candidate struct {
	Move      string
	ScoreCP   int
	Principal []string
}

type SearchRequest struct {
	SFEN       string
	Moves      []string
	MoveTimeMS int
}

type SearchResponse struct {
	Candidates []Candidate
	BestMove   string
}

// Session is one running engine process speaking USI over stdin/stdout.
type Session struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	lines   chan string
	done    chan struct{}
	quit    chan struct{}
	readErr error

	mu        sync.Mutex
	search    sync.Mutex
	closeOnce sync.Once
}

// NewSession starts the engine and completes the usi/isready handshake.
// ctx bounds the handshake only; the process outlives it.
func NewSession(ctx context.Context, binaryPath string, options map[string]string) (*Session, error) {
	cmd := exec.Command(binaryPath)
	cmd.Dir = filepath.Dir(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := newSession(stdin, stdout)
	s.cmd = cmd
	if err := s.handshake(ctx, options); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func newSession(stdin io.WriteCloser, stdout io.Reader) *Session {
	s := &Session{
		stdin: stdin,
		lines: make(chan string, 256),
		done:  make(chan struct{}),
		quit:  make(chan struct{}),
	}
	go s.pump(stdout)
	return s
}

func (s *Session) pump(r io.Reader) {
	defer close(s.done)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		select {
		case s.lines <- strings.TrimSpace(sc.Text()):
		case <-s.quit:
			s.readErr = ErrSessionClosed
			return
		}
	}
	s.readErr = sc.Err()
	if s.readErr == nil {
		s.readErr = io.EOF
	}
}

func (s *Session) handshake(ctx context.Context, options map[string]string) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("usi"); err != nil {
		return fmt.Errorf("send usi: %w", err)
	}
	if err := s.awaitToken(initCtx, "usiok"); err != nil {
		return fmt.Errorf("wait usiok: %w", err)
	}

	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.send(fmt.Sprintf("setoption name %s value %s", name, options[name])); err != nil {
			return fmt.Errorf("apply option %s: %w", name, err)
		}
	}
	return s.ensureReady(initCtx)
}

func (s *Session) ensureReady(ctx context.Context) error {
	if err := s.send("isready"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(ctx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

// NewGame tells the engine a fresh game starts.
func (s *Session) NewGame(ctx context.Context) error {
	if err := s.send("usinewgame"); err != nil {
		return fmt.Errorf("send usinewgame: %w", err)
	}
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()
	return s.ensureReady(readyCtx)
}

// Search runs one fixed-time search and collects the MultiPV lines.
func (s *Session) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	s.search.Lock()
	defer s.search.Unlock()

	if err := s.send(buildPositionCommand(req.SFEN, req.Moves)); err != nil {
		return SearchResponse{}, fmt.Errorf("send position: %w", err)
	}
	moveTime := req.MoveTimeMS
	if moveTime <= 0 {
		moveTime = 1000
	}
	if err := s.send(fmt.Sprintf("go movetime %d", moveTime)); err != nil {
		return SearchResponse{}, fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, time.Duration(moveTime)*time.Millisecond*3+5*time.Second)
	defer cancel()

	candidates := make(map[int]Candidate)
	for {
		line, err := s.readLine(searchCtx)
		if err != nil {
			return SearchResponse{}, fmt.Errorf("read search output: %w", err)
		}
		switch {
		case strings.HasPrefix(line, "info "):
			if k, cand, ok := parseInfo(line); ok {
				candidates[k] = cand
			}
		case strings.HasPrefix(line, "bestmove"):
			parts := strings.Fields(line)
			best := ""
			if len(parts) >= 2 {
				best = parts[1]
			}
			return SearchResponse{Candidates: collapseCandidates(candidates), BestMove: best}, nil
		}
	}
}

func buildPositionCommand(sfen string, moves []string) string {
	var sb strings.Builder
	if strings.TrimSpace(sfen) == "" || sfen == "startpos" {
		sb.WriteString("position startpos")
	} else {
		sb.WriteString("position sfen ")
		sb.WriteString(sfen)
	}
	if len(moves) > 0 {
		sb.WriteString(" moves ")
		sb.WriteString(strings.Join(moves, " "))
	}
	return sb.String()
}

// parseInfo extracts (multipv index, candidate) from an info line carrying a pv.
func parseInfo(line string) (int, Candidate, bool) {
	parts := strings.Fields(line)
	multipv, score, pvIdx := 1, 0, -1
	for i := 1; i < len(parts); i++ {
		switch parts[i] {
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					multipv = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				score = parseScore(parts[i+1], parts[i+2])
				i += 2
			}
		case "pv":
			pvIdx = i + 1
			i = len(parts)
		}
	}
	if pvIdx == -1 || pvIdx >= len(parts) {
		return 0, Candidate{}, false
	}
	pv := append([]string(nil), parts[pvIdx:]...)
	return multipv, Candidate{Move: pv[0], ScoreCP: score, Principal: pv}, true
}

// parseScore maps "cp N" and "mate N|+|-" onto centipawns.
func parseScore(kind, val string) int {
	switch kind {
	case "cp":
		v, _ := strconv.Atoi(val)
		return v
	case "mate":
		if strings.HasPrefix(val, "-") {
			return -mateScoreCP
		}
		return mateScoreCP
	default:
		return 0
	}
}

func collapseCandidates(m map[int]Candidate) []Candidate {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]Candidate, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func (s *Session) send(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.stdin, line+"\n")
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if line == token {
			return nil
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	select {
	case line := <-s.lines:
		return line, nil
	case <-s.done:
		select {
		case line := <-s.lines:
			return line, nil
		default:
		}
		return "", fmt.Errorf("engine output ended: %w", s.readErr)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close asks the engine to quit and reaps the process.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.send("quit")
		close(s.quit)
		s.stdin.Close()
		if s.cmd == nil || s.cmd.Process == nil {
			return
		}
		waitCh := make(chan error, 1)
		go func() { waitCh <- s.cmd.Wait() }()
		select {
		case err = <-waitCh:
		case <-time.After(3 * time.Second):
			_ = s.cmd.Process.Kill()
			err = <-waitCh
		}
	})
	return err
}
