package usi

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/annan-shogi-server/internal/shogi"
)

// fakeEngine answers the USI handshake and replays canned search output.
type fakeEngine struct {
	reply []string

	mu       sync.Mutex
	commands []string
	done     chan struct{}
}

func (f *fakeEngine) run(in io.Reader, out io.WriteCloser) {
	defer close(f.done)
	defer out.Close()
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := sc.Text()
		f.mu.Lock()
		f.commands = append(f.commands, line)
		f.mu.Unlock()
		switch {
		case line == "usi":
			fmt.Fprintln(out, "id name fake")
			fmt.Fprintln(out, "usiok")
		case line == "isready":
			fmt.Fprintln(out, "readyok")
		case strings.HasPrefix(line, "go "):
			for _, l := range f.reply {
				fmt.Fprintln(out, l)
			}
		case line == "quit":
			return
		}
	}
}

func (f *fakeEngine) sent() []string {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func newFakeAgent(t *testing.T, reply ...string) (*Agent, *fakeEngine) {
	t.Helper()
	a, err := New(Config{BinaryPath: "fake-engine", MultiPV: 2, Options: map[string]string{"USI_Variant": "annanshogi"}}, nil)
	require.NoError(t, err)

	fake := &fakeEngine{reply: reply, done: make(chan struct{})}
	a.start = func(ctx context.Context) (*Session, error) {
		inR, inW := io.Pipe()
		outR, outW := io.Pipe()
		go fake.run(inR, outW)
		s := newSession(inW, outR)
		if err := s.handshake(ctx, map[string]string{"USI_Variant": "annanshogi", "MultiPV": "2"}); err != nil {
			return nil, err
		}
		return s, nil
	}
	return a, fake
}

func TestParseInfo(t *testing.T) {
	k, c, ok := parseInfo("info depth 10 seldepth 12 score cp 35 multipv 2 nodes 100 pv 7g7f 3c3d")
	require.True(t, ok)
	assert.Equal(t, 2, k)
	assert.Equal(t, Candidate{Move: "7g7f", ScoreCP: 35, Principal: []string{"7g7f", "3c3d"}}, c)

	_, c, ok = parseInfo("info multipv 1 score mate -3 pv 5e5d")
	require.True(t, ok)
	assert.Equal(t, -mateScoreCP, c.ScoreCP)

	_, c, ok = parseInfo("info score mate + pv P*5b")
	require.True(t, ok)
	assert.Equal(t, mateScoreCP, c.ScoreCP)

	_, _, ok = parseInfo("info string loading eval")
	assert.False(t, ok)
}

func TestBuildPositionCommand(t *testing.T) {
	assert.Equal(t, "position startpos", buildPositionCommand("", nil))
	assert.Equal(t, "position sfen 9/9/9/9/9/9/9/9/9 b - 1 moves 7g7f 3c3d",
		buildPositionCommand("9/9/9/9/9/9/9/9/9 b - 1", []string{"7g7f", "3c3d"}))
}

func TestAgentSelectsBestMove(t *testing.T) {
	a, fake := newFakeAgent(t,
		"info depth 8 multipv 1 score cp 50 pv 7g7f 3c3d",
		"info depth 8 multipv 2 score cp 10 pv 2g2f",
		"bestmove 7g7f",
	)
	sel, err := a.SelectMove(context.Background(), shogi.NewGame(), 0)
	require.NoError(t, err)
	require.NotNil(t, sel.Move)
	assert.Equal(t, "7g7f", sel.Move.USI())
	require.Len(t, sel.Candidates, 2)
	assert.Equal(t, "2g2f", sel.Candidates[1].Move)

	require.NoError(t, a.Close())
	cmds := fake.sent()
	assert.Contains(t, cmds, "setoption name MultiPV value 2")
	assert.Contains(t, cmds, "setoption name USI_Variant value annanshogi")
	assert.Contains(t, cmds, "usinewgame")
	assert.Contains(t, cmds, "position sfen "+shogi.NewGame().InitialSFEN())
	assert.Contains(t, cmds, "go movetime 1000")
	assert.Equal(t, "quit", cmds[len(cmds)-1])
}

func TestAgentResignIsNoMove(t *testing.T) {
	a, _ := newFakeAgent(t, "info depth 1 score mate -1 pv 5a4a", "bestmove resign")
	defer a.Close()
	sel, err := a.SelectMove(context.Background(), shogi.NewGame(), 0)
	require.NoError(t, err)
	assert.Nil(t, sel.Move)
}

func TestAgentRejectsIllegalEngineMove(t *testing.T) {
	a, _ := newFakeAgent(t, "bestmove 8g8f")
	defer a.Close()
	_, err := a.SelectMove(context.Background(), shogi.NewGame(), 0)
	assert.Error(t, err)
}
