// Package protocol implements the delimited wire codec: every frame is a
// comma-separated field list whose first field is an integer signifier.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Client→server signifiers.
const (
	CreateAccount        = 1
	Login                = 2
	JoinQueueForGameRoom = 3
	TicTacToePlay        = 4
	LeaveRoom            = 5
	TextMessage          = 6
	RequestReplayList    = 7
	RequestReplayByIndex = 8
	GetGameRoomList      = 9
	SpectateGame         = 10
)

// Server→client signifiers.
const (
	LoginComplete         = 1
	LoginFailed           = 2
	AccountCreationOK     = 3
	AccountCreationFailed = 4
	OpponentPlayed        = 5
	GameStart             = 6
	GameOver              = 7
	ServerTextMessage     = 8
	ReplayInformation     = 9
	ReplayIndexList       = 10
	GameRoomList          = 11
)

// SubopFull marks a complete payload carried in a single message. Reserved
// room for chunked replay transfers without changing the frame layout.
const SubopFull = 1

var (
	ErrMalformed    = errors.New("malformed message")
	ErrBadSignifier = fmt.Errorf("%w: bad signifier", ErrMalformed)
	ErrFieldCount   = fmt.Errorf("%w: wrong field count", ErrMalformed)
)

// Request is a decoded client frame. Fields excludes the signifier.
type Request struct {
	Signifier int
	Fields    []string
}

// fieldCounts maps a client signifier to its exact operand count.
// TextMessage is absent: its free-text operand may itself contain commas and
// is re-joined by Decode.
var fieldCounts = map[int]int{
	CreateAccount:        2,
	Login:                2,
	JoinQueueForGameRoom: 0,
	TicTacToePlay:        1,
	LeaveRoom:            0,
	RequestReplayList:    0,
	RequestReplayByIndex: 1,
	GetGameRoomList:      0,
	SpectateGame:         1,
}

// Decode parses one client frame. Any failure is a typed decode error
// wrapping ErrMalformed; callers drop the frame instead of aborting.
func Decode(line string) (Request, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return Request{}, fmt.Errorf("%w: empty frame", ErrMalformed)
	}
	parts := strings.Split(line, ",")
	sig, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Request{}, fmt.Errorf("%w: %q", ErrBadSignifier, parts[0])
	}

	if sig == TextMessage {
		if len(parts) < 2 {
			return Request{}, fmt.Errorf("%w: signifier %d wants text", ErrFieldCount, sig)
		}
		return Request{Signifier: sig, Fields: []string{strings.Join(parts[1:], ",")}}, nil
	}

	want, ok := fieldCounts[sig]
	if !ok {
		return Request{}, fmt.Errorf("%w: unknown signifier %d", ErrBadSignifier, sig)
	}
	if len(parts)-1 != want {
		return Request{}, fmt.Errorf("%w: signifier %d wants %d fields, got %d", ErrFieldCount, sig, want, len(parts)-1)
	}
	return Request{Signifier: sig, Fields: parts[1:]}, nil
}

// Int returns operand i parsed as an integer.
func (r Request) Int(i int) (int, error) {
	if i < 0 || i >= len(r.Fields) {
		return 0, fmt.Errorf("%w: missing field %d", ErrFieldCount, i)
	}
	n, err := strconv.Atoi(strings.TrimSpace(r.Fields[i]))
	if err != nil {
		return 0, fmt.Errorf("%w: field %d is not an integer", ErrMalformed, i)
	}
	return n, nil
}

// Encode builds a server frame from a signifier and its operands.
func Encode(signifier int, fields ...string) string {
	if len(fields) == 0 {
		return strconv.Itoa(signifier)
	}
	return strconv.Itoa(signifier) + "," + strings.Join(fields, ",")
}

// EncodeInts is Encode for all-integer operands.
func EncodeInts(signifier int, fields ...int) string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strconv.Itoa(f)
	}
	return Encode(signifier, out...)
}
