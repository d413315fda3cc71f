package board

// Color distinguishes the two sides of the board.
type Color uint8

const (
	White Color = iota
	Black
	NoColor Color = 2
)

var colorNames = [...]string{"White", "Black"}

// Other flips White<->Black.
func (c Color) Other() Color {
	return 1 - c
}

func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return "NoColor"
}

// PieceType identifies a piece independent of color.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
	NoPieceType PieceType = 6
)

var pieceTypeNames = [...]string{"Pawn", "Knight", "Bishop", "Rook", "Queen", "King"}

func (pt PieceType) String() string {
	if int(pt) < len(pieceTypeNames) {
		return pieceTypeNames[pt]
	}
	return "None"
}

const pieceTypeChars = "pnbrqk "

// Char returns the lowercase FEN letter for pt.
func (pt PieceType) Char() byte {
	if pt > NoPieceType {
		return ' '
	}
	return pieceTypeChars[pt]
}

// PieceValue gives the material worth of each PieceType, in centipawns,
// indexed by PieceType (NoPieceType maps to 0).
var PieceValue = [7]int{100, 320, 330, 500, 900, 20000, 0}

const pieceTypeCount = 6

// Piece packs a PieceType and a Color into one byte: colored pieces run
// 0..11 as [White p,N,B,R,Q,K, Black p,N,B,R,Q,K]; NoPiece is 12.
type Piece uint8

const (
	WhitePawn Piece = iota
	WhiteKnight
	WhiteBishop
	WhiteRook
	WhiteQueen
	WhiteKing
	BlackPawn
	BlackKnight
	BlackBishop
	BlackRook
	BlackQueen
	BlackKing
	NoPiece
)

// NewPiece builds the Piece for a given type and color, or NoPiece if
// either argument is out of range.
func NewPiece(pt PieceType, c Color) Piece {
	if pt >= NoPieceType || c >= NoColor {
		return NoPiece
	}
	return Piece(c)*pieceTypeCount + Piece(pt)
}

// Type reports the PieceType, ignoring color.
func (p Piece) Type() PieceType {
	if p >= NoPiece {
		return NoPieceType
	}
	return PieceType(p) % pieceTypeCount
}

// Color reports which side the piece belongs to.
func (p Piece) Color() Color {
	if p >= NoPiece {
		return NoColor
	}
	return Color(p / pieceTypeCount)
}

const pieceLetters = "PNBRQKpnbrqk"

// String returns the FEN letter for p: uppercase for White, lowercase
// for Black, a single space for NoPiece.
func (p Piece) String() string {
	if p >= NoPiece {
		return " "
	}
	return string(pieceLetters[p])
}

var pieceFromChar = map[byte]Piece{
	'P': WhitePawn, 'N': WhiteKnight, 'B': WhiteBishop,
	'R': WhiteRook, 'Q': WhiteQueen, 'K': WhiteKing,
	'p': BlackPawn, 'n': BlackKnight, 'b': BlackBishop,
	'r': BlackRook, 'q': BlackQueen, 'k': BlackKing,
}

// PieceFromChar maps a FEN piece letter to its Piece, or NoPiece if c
// isn't one of the twelve recognized letters.
func PieceFromChar(c byte) Piece {
	if piece, ok := pieceFromChar[c]; ok {
		return piece
	}
	return NoPiece
}

// Value reports p's material worth in centipawns.
func (p Piece) Value() int {
	return PieceValue[p.Type()]
}
