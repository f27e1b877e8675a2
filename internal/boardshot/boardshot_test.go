package boardshot

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/park285/chessvault/internal/domain"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestRenderPNGStartPosition(t *testing.T) {
	data, err := RenderPNG(startFEN, 32)
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}

	bounds := img.Bounds()
	wantWidth := coordinateMargin + 8*32
	wantHeight := 8*32 + coordinateMargin
	if bounds.Dx() != wantWidth || bounds.Dy() != wantHeight {
		t.Fatalf("bounds = %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), wantWidth, wantHeight)
	}
}

func TestRenderPNGDefaultsSquareSize(t *testing.T) {
	data, err := RenderPNG(startFEN, 0)
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if got, want := img.Bounds().Dx(), coordinateMargin+8*DefaultSquareSize; got != want {
		t.Fatalf("width = %d, want %d", got, want)
	}
}

func TestRenderPNGRejectsBadInput(t *testing.T) {
	if _, err := RenderPNG("", 32); err == nil {
		t.Fatal("expected error for empty fen")
	}
	if _, err := RenderPNG("not a position", 32); err == nil {
		t.Fatal("expected error for malformed fen")
	}
}

func TestStoreSnapshotWritesFileAndMetadata(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	game := &domain.ChessGame{
		ExternalID: "abc123",
		Platform:   domain.PlatformLichess,
		FENFinal:   startFEN,
	}
	if err := store.Snapshot(game); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if game.PNGFilename != "lichess-abc123.png" {
		t.Fatalf("filename = %q", game.PNGFilename)
	}
	info, err := os.Stat(filepath.Join(dir, game.PNGFilename))
	if err != nil {
		t.Fatalf("stat snapshot: %v", err)
	}
	if info.Size() != game.PNGSize {
		t.Fatalf("size mismatch: file=%d field=%d", info.Size(), game.PNGSize)
	}
	if game.PNGGeneratedAt.IsZero() {
		t.Fatal("generated timestamp not set")
	}
}

func TestStoreSnapshotSkipsGamesWithoutPosition(t *testing.T) {
	store := NewStore(t.TempDir())
	game := &domain.ChessGame{
		ExternalID: "noderive",
		Platform:   domain.PlatformChessCom,
	}
	if err := store.Snapshot(game); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if game.PNGFilename != "" || game.PNGSize != 0 {
		t.Fatalf("expected untouched metadata, got %q/%d", game.PNGFilename, game.PNGSize)
	}
}

func TestSnapshotFilenameSanitizesPlatformDot(t *testing.T) {
	game := &domain.ChessGame{
		ExternalID: "uuid/with slash",
		Platform:   domain.PlatformChessCom,
	}
	if got := snapshotFilename(game); got != "chess-com-uuid_with_slash.png" {
		t.Fatalf("filename = %q", got)
	}
}
