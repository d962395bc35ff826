// internal/guidance/queue.go
package guidance

import "sync"

// CommandKind selects what the overlay should do.
type CommandKind int

const (
	CommandShow CommandKind = iota
	CommandHide
)

func (k CommandKind) String() string {
	if k == CommandHide {
		return "hide"
	}
	return "show"
}

// Command is one request to the overlay. Coordinates are physical screen
// pixels.
type Command struct {
	Kind        CommandKind
	X, Y, W, H  int
	Label       string
	Instruction string
}

// Queue is a single-slot mailbox between the HTTP handlers and the render
// loop. The newest command replaces any command not yet taken, so a burst of
// shows only ever renders the last one and a hide never waits behind them.
// Neither side blocks.
type Queue struct {
	mu         sync.Mutex
	pending    *Command
	superseded uint64
}

func NewQueue() *Queue {
	return &Queue{}
}

// Push stores cmd, replacing whatever was pending.
func (q *Queue) Push(cmd Command) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending != nil {
		q.superseded++
	}
	q.pending = &cmd
}

// Show is shorthand for pushing a show command.
func (q *Queue) Show(x, y, w, h int, label, instruction string) {
	q.Push(Command{Kind: CommandShow, X: x, Y: y, W: w, H: h, Label: label, Instruction: instruction})
}

// Hide is shorthand for pushing a hide command. It always succeeds.
func (q *Queue) Hide() {
	q.Push(Command{Kind: CommandHide})
}

// Take removes and returns the pending command, if any.
func (q *Queue) Take() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == nil {
		return Command{}, false
	}
	cmd := *q.pending
	q.pending = nil
	return cmd, true
}

// Superseded counts commands replaced before the render loop saw them.
func (q *Queue) Superseded() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.superseded
}
