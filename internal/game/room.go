// Package game holds the tic-tac-toe room state machine and the room
// collection. Rooms are owned by the hub actor; nothing here is safe for
// concurrent use on its own.
package game

import (
	"errors"
	"strconv"
)

// Team is the wire code for a side. TeamA always moves first.
type Team int

const (
	TeamNone Team = -1
	TeamA    Team = 0
	TeamB    Team = 1
)

// Outcome is the wire code attached to move and game-over messages.
type Outcome int

const (
	ContinuePlay Outcome = 0
	TeamAWin     Outcome = 1
	TeamBWin     Outcome = 2
	Tie          Outcome = 3
)

// WinnerOutcome maps a team to its win outcome.
func WinnerOutcome(t Team) Outcome {
	if t == TeamA {
		return TeamAWin
	}
	return TeamBWin
}

// State is the room lifecycle phase.
type State string

const (
	StateAvailable  State = "AVAILABLE"
	StateInProgress State = "IN_PROGRESS"
	StateCompleted  State = "COMPLETED"
)

var (
	ErrIllegalMove  = errors.New("illegal move")
	ErrRoomNotFound = errors.New("room not found")
)

// winLines are the 8 fixed triples: 3 rows, 3 columns, 2 diagonals.
var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Room coordinates one match: two occupant seats, an observer set, the board
// and the move log. The id is assigned once at creation and never changes;
// the manager relies on rooms never being removed.
type Room struct {
	ID int

	playerA string // connection id, "" when the seat is empty
	playerB string

	observers map[string]struct{}

	board      [9]Team
	log        []string // "location,team" lines, "" marks a turn boundary
	inProgress bool
}

func newRoom(id int) *Room {
	return &Room{ID: id, observers: make(map[string]struct{})}
}

// Available reports whether the room can be re-seated: both seats empty.
func (r *Room) Available() bool { return r.playerA == "" && r.playerB == "" }

// InProgress reports whether a game is currently running.
func (r *Room) InProgress() bool { return r.inProgress }

// State derives the lifecycle phase from seats and progress.
func (r *Room) State() State {
	switch {
	case r.Available():
		return StateAvailable
	case r.inProgress:
		return StateInProgress
	default:
		return StateCompleted
	}
}

// seat re-seats the room for a fresh pair and resets board and log.
// The caller guarantees Available().
func (r *Room) seat(idA, idB string) {
	r.playerA, r.playerB = idA, idB
	r.board = [9]Team{TeamNone, TeamNone, TeamNone, TeamNone, TeamNone, TeamNone, TeamNone, TeamNone, TeamNone}
	r.log = nil
	r.inProgress = true
}

// PlayerA returns the first-moving occupant's connection id.
func (r *Room) PlayerA() string { return r.playerA }

// PlayerB returns the second-moving occupant's connection id.
func (r *Room) PlayerB() string { return r.playerB }

// TeamOf maps an occupant's connection id to its team.
func (r *Room) TeamOf(id string) Team {
	switch id {
	case "":
		return TeamNone
	case r.playerA:
		return TeamA
	case r.playerB:
		return TeamB
	}
	return TeamNone
}

// Opponent returns the other occupant's connection id, or "".
func (r *Room) Opponent(id string) string {
	switch id {
	case "":
		return ""
	case r.playerA:
		return r.playerB
	case r.playerB:
		return r.playerA
	}
	return ""
}

// IsOccupant reports whether id holds one of the two seats.
func (r *Room) IsOccupant(id string) bool {
	return id != "" && (id == r.playerA || id == r.playerB)
}

// AddObserver attaches a spectator. Observers never occupy a seat and are
// never attributed a result.
func (r *Room) AddObserver(id string) { r.observers[id] = struct{}{} }

// IsObserver reports whether id is attached as a spectator.
func (r *Room) IsObserver(id string) bool {
	_, ok := r.observers[id]
	return ok
}

// Observers returns the spectator ids in set-iteration order.
func (r *Room) Observers() []string {
	out := make([]string, 0, len(r.observers))
	for id := range r.observers {
		out = append(out, id)
	}
	return out
}

// ObserverCount returns the spectator count.
func (r *Room) ObserverCount() int { return len(r.observers) }

// Cell returns the team occupying a board cell.
func (r *Room) Cell(loc int) Team { return r.board[loc] }

// Apply records a move for team at loc and evaluates the result, in this
// order: win, tie, continue. Out-of-range locations and occupied cells are
// rejected with ErrIllegalMove before the board is touched.
func (r *Room) Apply(team Team, loc int) (Outcome, error) {
	if loc < 0 || loc >= len(r.board) {
		return ContinuePlay, ErrIllegalMove
	}
	if r.board[loc] != TeamNone {
		return ContinuePlay, ErrIllegalMove
	}
	r.board[loc] = team
	r.log = append(r.log, strconv.Itoa(loc)+","+strconv.Itoa(int(team)))

	if r.checkWin() {
		r.inProgress = false
		return WinnerOutcome(team), nil
	}
	if r.checkTie() {
		r.inProgress = false
		return Tie, nil
	}
	r.log = append(r.log, "") // turn boundary
	return ContinuePlay, nil
}

func (r *Room) checkWin() bool {
	for _, line := range winLines {
		a := r.board[line[0]]
		if a != TeamNone && a == r.board[line[1]] && a == r.board[line[2]] {
			return true
		}
	}
	return false
}

func (r *Room) checkTie() bool {
	for _, cell := range r.board {
		if cell == TeamNone {
			return false
		}
	}
	return !r.checkWin()
}

// Leave detaches id from the room. An observer is simply dropped. An
// occupant leaving a running game forfeits: the opponent's team wins, the
// room completes, and a trailing turn boundary is trimmed so the log ends on
// a move. The seat is cleared in every case.
func (r *Room) Leave(id string) (forfeit bool, winner Team) {
	if r.IsObserver(id) {
		delete(r.observers, id)
		return false, TeamNone
	}
	if !r.IsOccupant(id) {
		return false, TeamNone
	}
	if r.inProgress {
		forfeit = true
		winner = r.TeamOf(r.Opponent(id))
		r.inProgress = false
		if n := len(r.log); n > 0 && r.log[n-1] == "" {
			r.log = r.log[:n-1]
		}
	}
	if r.playerA == id {
		r.playerA = ""
	} else {
		r.playerB = ""
	}
	return forfeit, winner
}

// Steps returns a copy of the move log lines.
func (r *Room) Steps() []string {
	out := make([]string, len(r.log))
	copy(out, r.log)
	return out
}
