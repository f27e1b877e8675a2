package boardshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chessvault/internal/domain"
	"github.com/park285/chessvault/internal/obslog"
)

// Store writes board snapshots to a directory on disk and records the file
// metadata on the game.
type Store struct {
	dir        string
	squareSize int
	now        func() time.Time
}

// NewStore creates a snapshot store rooted at dir. The directory is created
// on first use.
func NewStore(dir string) *Store {
	return &Store{dir: dir, squareSize: DefaultSquareSize, now: time.Now}
}

// Snapshot renders the final position of game and writes it under the store
// directory as <platform>-<external id>.png. Games without a final position
// are left untouched.
func (s *Store) Snapshot(game *domain.ChessGame) error {
	if game == nil {
		return fmt.Errorf("boardshot: nil game")
	}
	if strings.TrimSpace(game.FENFinal) == "" {
		return nil
	}

	data, err := RenderPNG(game.FENFinal, s.squareSize)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("boardshot: create snapshot dir: %w", err)
	}

	filename := snapshotFilename(game)
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("boardshot: write snapshot: %w", err)
	}

	game.PNGFilename = filename
	game.PNGPath = path
	game.PNGSize = int64(len(data))
	game.PNGGeneratedAt = s.now().UTC()

	obslog.L().Debug("snapshot_written",
		zap.String("platform", string(game.Platform)),
		zap.String("external_id", game.ExternalID),
		zap.Int64("bytes", game.PNGSize))
	return nil
}

func snapshotFilename(game *domain.ChessGame) string {
	platform := strings.ReplaceAll(string(game.Platform), ".", "-")
	id := sanitizeComponent(game.ExternalID)
	return fmt.Sprintf("%s-%s.png", platform, id)
}

func sanitizeComponent(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
