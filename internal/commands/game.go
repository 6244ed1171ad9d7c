// Package commands – tic-tac-toe.
//
// Sessions are keyed by thread id and guarded by one mutex over the arena
// map plus the session it returns; command handlers run on the single event
// loop today, but the status server may grow read access later, so the
// locking is real rather than assumed away.
package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/nimbusbot/nimbus/internal/bot"
)

const (
	cellEmpty = ' '
	cellX     = 'X'
	cellO     = 'O'
)

// tttSession is one in-progress game in a thread.
type tttSession struct {
	board   [9]byte
	playerX string
	playerO string
	turn    byte // cellX or cellO
}

// tttArena holds the per-thread sessions.
type tttArena struct {
	mu       sync.Mutex
	sessions map[string]*tttSession
}

func newArena() *tttArena {
	return &tttArena{sessions: make(map[string]*tttSession)}
}

func gameDefs(arena *tttArena) []*bot.Definition {
	return []*bot.Definition{
		{
			Name:        "tictactoe",
			Aliases:     []string{"ttt"},
			Category:    "game",
			Description: "Play tic-tac-toe against someone in this thread.",
			Usage:       "{prefix}tictactoe <@opponent | 1-9 | end>",
			Run:         arena.run,
		},
	}
}

func (a *tttArena) run(ctx context.Context, c *bot.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	arg := strings.ToLower(c.Arg(0))
	threadID := c.Event.ThreadID
	sess := a.sessions[threadID]

	switch {
	case arg == "end":
		if sess == nil {
			c.Reply(ctx, "No game running here.")
			return nil
		}
		delete(a.sessions, threadID)
		c.Reply(ctx, "Game over. Board cleared.")
		return nil

	case isBoardPosition(arg):
		if sess == nil {
			c.Reply(ctx, "No game running. Start one with "+renderUsage(c, "tictactoe <@opponent>"))
			return nil
		}
		return a.place(ctx, c, sess, arg)

	default:
		opponent := c.Mention(0)
		if opponent == "" || opponent == c.Event.SenderID {
			c.Reply(ctx, "Usage: "+renderUsage(c, "tictactoe <@opponent | 1-9 | end>"))
			return nil
		}
		if sess != nil {
			c.Reply(ctx, "A game is already running here. Finish it or use "+renderUsage(c, "tictactoe end"))
			return nil
		}
		sess = &tttSession{playerX: c.Event.SenderID, playerO: opponent, turn: cellX}
		for i := range sess.board {
			sess.board[i] = cellEmpty
		}
		a.sessions[threadID] = sess
		c.Reply(ctx, fmt.Sprintf("Tic-tac-toe started! X: %s, O: %s. X goes first.\n%s",
			c.Event.SenderID, opponent, renderBoard(&sess.board)))
		return nil
	}
}

func (a *tttArena) place(ctx context.Context, c *bot.Context, sess *tttSession, arg string) error {
	mover := c.Event.SenderID
	var mark byte
	switch mover {
	case sess.playerX:
		mark = cellX
	case sess.playerO:
		mark = cellO
	default:
		c.Reply(ctx, "You're not in this game.")
		return nil
	}
	if mark != sess.turn {
		c.Reply(ctx, "Not your turn.")
		return nil
	}
	pos, _ := strconv.Atoi(arg)
	idx := pos - 1
	if sess.board[idx] != cellEmpty {
		c.Reply(ctx, "That square is taken.")
		return nil
	}
	sess.board[idx] = mark

	switch {
	case winner(&sess.board) != cellEmpty:
		delete(a.sessions, c.Event.ThreadID)
		c.Reply(ctx, fmt.Sprintf("%s\n🎉 %c wins! Well played, %s.", renderBoard(&sess.board), mark, mover))
	case boardFull(&sess.board):
		delete(a.sessions, c.Event.ThreadID)
		c.Reply(ctx, renderBoard(&sess.board)+"\nIt's a draw.")
	default:
		if sess.turn == cellX {
			sess.turn = cellO
		} else {
			sess.turn = cellX
		}
		c.Reply(ctx, fmt.Sprintf("%s\n%c to move.", renderBoard(&sess.board), sess.turn))
	}
	return nil
}

func isBoardPosition(s string) bool {
	return len(s) == 1 && s[0] >= '1' && s[0] <= '9'
}

var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

func winner(b *[9]byte) byte {
	for _, l := range winLines {
		if b[l[0]] != cellEmpty && b[l[0]] == b[l[1]] && b[l[1]] == b[l[2]] {
			return b[l[0]]
		}
	}
	return cellEmpty
}

func boardFull(b *[9]byte) bool {
	for _, c := range b {
		if c == cellEmpty {
			return false
		}
	}
	return true
}

func renderBoard(b *[9]byte) string {
	cell := func(i int) string {
		switch b[i] {
		case cellX:
			return "❌"
		case cellO:
			return "⭕"
		default:
			return []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣"}[i]
		}
	}
	var rows [3]string
	for r := 0; r < 3; r++ {
		rows[r] = cell(r*3) + cell(r*3+1) + cell(r*3+2)
	}
	return strings.Join(rows[:], "\n")
}
