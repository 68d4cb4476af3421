package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"sort"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/annan-shogi-server/internal/shogi"
	"github.com/park285/annan-shogi-server/pkg/annandto"
)

const (
	squareSize  = 56
	boardSquare = 9
	boardSize   = squareSize * boardSquare
	sideMargin  = 28
	handHeight  = 30
	hudHeight   = 30
	pieceInset  = 4
)

type Options struct {
	// LastMove is a USI token whose squares are highlighted.
	LastMove string
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, snap *annandto.Snapshot, opts Options) ([]byte, error)
}

type pngRenderer struct{}

func NewPNGRenderer() BoardRenderer {
	return &pngRenderer{}
}

var (
	boardColor       = color.RGBA{233, 196, 120, 255}
	gridColor        = color.RGBA{90, 60, 30, 255}
	backgroundColor  = color.RGBA{40, 43, 58, 255}
	highlightColor   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	annanMarkerColor = color.NRGBA{R: 40, G: 120, B: 220, A: 220}
	pieceTextColor   = color.RGBA{20, 20, 20, 255}
	promotedColor    = color.RGBA{190, 20, 20, 255}
	hudTextColor     = color.RGBA{236, 239, 255, 255}
)

func (r *pngRenderer) RenderPNG(ctx context.Context, snap *annandto.Snapshot, opts Options) ([]byte, error) {
	if snap == nil {
		return nil, fmt.Errorf("snapshot is nil")
	}
	if len(snap.Board) != boardSquare {
		return nil, fmt.Errorf("board has %d ranks", len(snap.Board))
	}

	totalWidth := boardSize + sideMargin*2
	totalHeight := hudHeight + handHeight + sideMargin + boardSize + handHeight
	origin := image.Point{X: sideMargin, Y: hudHeight + handHeight + sideMargin}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13}

	drawHUD(drawer, snap, totalWidth)
	drawHand(drawer, "WHITE", snap.WhiteHand, image.Rect(0, hudHeight, totalWidth, hudHeight+handHeight))
	drawHand(drawer, "BLACK", snap.BlackHand, image.Rect(0, origin.Y+boardSize, totalWidth, totalHeight))
	drawSquares(img, origin)
	drawHighlight(img, opts.LastMove, origin)
	if err := drawPieces(img, drawer, snap, origin); err != nil {
		return nil, err
	}
	drawCoordinates(drawer, origin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawSquares(dst *image.RGBA, origin image.Point) {
	board := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)
	imagedraw.Draw(dst, board, image.NewUniform(boardColor), image.Point{}, imagedraw.Src)
	line := image.NewUniform(gridColor)
	for i := 0; i <= boardSquare; i++ {
		off := i * squareSize
		imagedraw.Draw(dst, image.Rect(origin.X+off, origin.Y, origin.X+off+1, origin.Y+boardSize+1), line, image.Point{}, imagedraw.Src)
		imagedraw.Draw(dst, image.Rect(origin.X, origin.Y+off, origin.X+boardSize+1, origin.Y+off+1), line, image.Point{}, imagedraw.Src)
	}
}

func drawPieces(dst *image.RGBA, drawer *font.Drawer, snap *annandto.Snapshot, origin image.Point) error {
	for row, rank := range snap.Board {
		for col, cell := range rank {
			if cell == nil {
				continue
			}
			rect := cellRect(row, col, origin)
			down := cell.Color == shogi.White.String()
			piece, err := renderPieceImage(down, squareSize-pieceInset*2)
			if err != nil {
				return err
			}
			inner := rect.Inset(pieceInset)
			imagedraw.Draw(dst, inner, piece, image.Point{}, imagedraw.Over)

			clr := color.Color(pieceTextColor)
			if pt, ok := shogi.ParsePieceType(cell.Type); ok && pt.IsPromoted() {
				clr = promotedColor
			}
			drawer.Src = image.NewUniform(clr)
			baseline := rect.Min.Y + squareSize/2 + 5
			drawCenteredText(drawer, cell.Type, rect.Min.X+squareSize/2, baseline)

			if row < len(snap.AnnanInfo) && col < len(snap.AnnanInfo[row]) {
				if ann := snap.AnnanInfo[row][col]; ann != nil {
					drawDisc(dst, image.Point{X: rect.Max.X - 8, Y: rect.Min.Y + 8}, 4, annanMarkerColor)
					drawer.Src = image.NewUniform(annanMarkerColor)
					drawCenteredText(drawer, ann.EffectiveType, rect.Min.X+squareSize/2, rect.Max.Y-6)
				}
			}
		}
	}
	return nil
}

func drawHighlight(dst *image.RGBA, token string, origin image.Point) {
	if token == "" {
		return
	}
	m, err := shogi.ParseUSI(token)
	if err != nil {
		return
	}
	squares := []shogi.Square{m.To}
	if !m.IsDrop() {
		squares = append(squares, m.From)
	}
	fill := image.NewUniform(highlightColor)
	for _, sq := range squares {
		row, col := sq.Rank-1, 9-sq.File
		imagedraw.Draw(dst, cellRect(row, col, origin).Inset(1), fill, image.Point{}, imagedraw.Over)
	}
}

func drawHUD(drawer *font.Drawer, snap *annandto.Snapshot, width int) {
	text := fmt.Sprintf("ply %d  turn %s  %s", snap.Ply, snap.Turn, snap.Result)
	if snap.InCheck && snap.Result == string(shogi.ResultOngoing) {
		text += "  CHECK"
	}
	drawer.Src = image.NewUniform(hudTextColor)
	drawCenteredText(drawer, text, width/2, hudHeight/2+5)
}

func drawHand(drawer *font.Drawer, side string, hand map[string]int, rect image.Rectangle) {
	codes := make([]string, 0, len(hand))
	for code := range hand {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return handOrder(codes[i]) < handOrder(codes[j]) })
	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		parts = append(parts, fmt.Sprintf("%s%d", code, hand[code]))
	}
	text := side + ": " + strings.Join(parts, " ")
	if len(parts) == 0 {
		text = side + ": -"
	}
	drawer.Src = image.NewUniform(hudTextColor)
	drawer.Dot = fixed.P(rect.Min.X+sideMargin, rect.Min.Y+rect.Dy()/2+5)
	drawer.DrawString(text)
}

func handOrder(code string) int {
	for i, t := range shogi.HandTypes {
		if t.String() == code {
			return i
		}
	}
	return len(shogi.HandTypes)
}

func drawCoordinates(drawer *font.Drawer, origin image.Point) {
	drawer.Src = image.NewUniform(hudTextColor)
	for i := 0; i < boardSquare; i++ {
		file := fmt.Sprintf("%d", 9-i)
		drawCenteredText(drawer, file, origin.X+i*squareSize+squareSize/2, origin.Y-8)
		rank := string(rune('a' + i))
		drawCenteredText(drawer, rank, origin.X+boardSize+sideMargin/2, origin.Y+i*squareSize+squareSize/2+5)
	}
}

func cellRect(row, col int, origin image.Point) image.Rectangle {
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= r2 {
				blendPixel(img, center.X+dx, center.Y+dy, clr)
			}
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 0xffff - sa
	img.SetRGBA(x, y, color.RGBA{
		R: uint8((sr + uint32(dst.R)*0x101*inv/0xffff) >> 8),
		G: uint8((sg + uint32(dst.G)*0x101*inv/0xffff) >> 8),
		B: uint8((sb + uint32(dst.B)*0x101*inv/0xffff) >> 8),
		A: uint8((sa + uint32(dst.A)*0x101*inv/0xffff) >> 8),
	})
}
