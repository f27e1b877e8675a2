// Package pgnkit replays PGN movetext to derive display fields for imported
// games: the total ply count and the final position as a FEN string.
package pgnkit

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Deriver is the position-derivation capability consumed by the record
// normalizers. Implementations must be safe for concurrent use.
type Deriver interface {
	Derive(movetext string) (plies int, finalFEN string, err error)
}

type deriver struct{}

// New returns the chess-library backed Deriver.
func New() Deriver { return deriver{} }

// Derive replays movetext and returns the ply count and final FEN. Movetext
// that the parser rejects yields an error; callers treat derived fields as
// best-effort and keep the raw movetext authoritative.
func (deriver) Derive(movetext string) (int, string, error) {
	movetext = strings.TrimSpace(movetext)
	if movetext == "" {
		return 0, "", fmt.Errorf("empty movetext")
	}
	opt, err := nchess.PGN(strings.NewReader(movetext))
	if err != nil {
		return 0, "", fmt.Errorf("parse pgn: %w", err)
	}
	game := nchess.NewGame(opt)
	if game == nil {
		return 0, "", fmt.Errorf("reconstruct game")
	}
	return len(game.Moves()), game.FEN(), nil
}
