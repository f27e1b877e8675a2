// Package boardshot renders the final position of an imported game as a PNG
// board snapshot.
package boardshot

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// DefaultSquareSize is the edge length of one board square in pixels.
	DefaultSquareSize = 48

	coordinateMargin = 18
)

var (
	lightSquareColor = color.RGBA{R: 0xF0, G: 0xD9, B: 0xB5, A: 0xFF}
	darkSquareColor  = color.RGBA{R: 0xB5, G: 0x88, B: 0x63, A: 0xFF}
	backgroundColor  = color.RGBA{R: 0x2E, G: 0x2A, B: 0x24, A: 0xFF}
	whitePieceColor  = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	blackPieceColor  = color.RGBA{R: 0x1A, G: 0x1A, B: 0x1A, A: 0xFF}
	coordinateShade  = color.RGBA{R: 0xD8, G: 0xD0, B: 0xC4, A: 0xFF}
)

var boardRanks = []nchess.Rank{
	nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5,
	nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1,
}

var boardFiles = []nchess.File{
	nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD,
	nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH,
}

// RenderPNG draws the position described by fen on an 8x8 board with rank and
// file coordinates and returns the encoded PNG bytes.
func RenderPNG(fen string, squareSize int) ([]byte, error) {
	if strings.TrimSpace(fen) == "" {
		return nil, fmt.Errorf("boardshot: empty fen")
	}
	if squareSize <= 0 {
		squareSize = DefaultSquareSize
	}

	fenOption, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("boardshot: parse fen: %w", err)
	}
	board := nchess.NewGame(fenOption).Position().Board()

	boardPixels := 8 * squareSize
	width := coordinateMargin + boardPixels
	height := boardPixels + coordinateMargin
	origin := image.Point{X: coordinateMargin, Y: 0}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	imagedraw.Draw(canvas, canvas.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawSquares(canvas, squareSize, origin)
	drawPieces(canvas, board, squareSize, origin)
	drawCoordinates(canvas, squareSize, origin)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("boardshot: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawSquares(dst imagedraw.Image, squareSize int, origin image.Point) {
	for row, rank := range boardRanks {
		for col, file := range boardFiles {
			sq := nchess.NewSquare(file, rank)
			rect := image.Rect(
				origin.X+col*squareSize,
				origin.Y+row*squareSize,
				origin.X+(col+1)*squareSize,
				origin.Y+(row+1)*squareSize,
			)
			imagedraw.Draw(dst, rect, image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, squareSize int, origin image.Point) {
	boardMap := board.SquareMap()
	drawer := &font.Drawer{Dst: dst, Face: basicfont.Face7x13}

	for row, rank := range boardRanks {
		for col, file := range boardFiles {
			sq := nchess.NewSquare(file, rank)
			piece := boardMap[sq]
			if piece == nchess.NoPiece {
				continue
			}
			if piece.Color() == nchess.White {
				drawer.Src = image.NewUniform(whitePieceColor)
			} else {
				drawer.Src = image.NewUniform(blackPieceColor)
			}
			label := pieceLabel(piece)
			centerX := origin.X + col*squareSize + squareSize/2
			centerY := origin.Y + row*squareSize + squareSize/2
			drawCenteredText(drawer, label, centerX, centerY+basicfont.Face7x13.Metrics().Ascent.Ceil()/2)
		}
	}
}

func drawCoordinates(dst imagedraw.Image, squareSize int, origin image.Point) {
	drawer := &font.Drawer{
		Dst:  dst,
		Face: basicfont.Face7x13,
		Src:  image.NewUniform(coordinateShade),
	}

	ascent := basicfont.Face7x13.Metrics().Ascent.Ceil()
	boardEndY := origin.Y + 8*squareSize

	for row, rank := range boardRanks {
		rankBaseline := origin.Y + row*squareSize + squareSize/2 + ascent/2
		drawCenteredText(drawer, rank.String(), coordinateMargin/2, rankBaseline)
	}
	for col, file := range boardFiles {
		fileCenter := origin.X + col*squareSize + squareSize/2
		drawCenteredText(drawer, file.String(), fileCenter, boardEndY+ascent+2)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	width := drawer.MeasureString(text)
	drawer.Dot = fixed.Point26_6{
		X: fixed.I(centerX) - width/2,
		Y: fixed.I(baseline),
	}
	drawer.DrawString(text)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquareColor
	}
	return lightSquareColor
}

func pieceLabel(piece nchess.Piece) string {
	var letter string
	switch piece.Type() {
	case nchess.King:
		letter = "K"
	case nchess.Queen:
		letter = "Q"
	case nchess.Rook:
		letter = "R"
	case nchess.Bishop:
		letter = "B"
	case nchess.Knight:
		letter = "N"
	default:
		letter = "P"
	}
	if piece.Color() == nchess.Black {
		letter = strings.ToLower(letter)
	}
	return letter
}
