package parser

import (
	"bytes"
	"math"
	"strconv"

	"github.com/dgallion1/tracedeck/internal/model"
)

// drawnXObject records one Do operator and the user-space rectangle the
// current transformation maps the unit square onto.
type drawnXObject struct {
	Name                   string
	MinX, MinY, MaxX, MaxY float64
}

type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m × n in PDF row-vector convention.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return x*m[0] + y*m[2] + m[4], x*m[1] + y*m[3] + m[5]
}

// scanImagePlacements walks a page content stream tracking q, Q and cm and
// returns every XObject drawn with Do. Only the graphics state needed for
// placement is modelled; anything else is skipped as operands.
func scanImagePlacements(stream []byte) []drawnXObject {
	var (
		draws    []drawnXObject
		ctm      = identity
		stack    []matrix
		operands []string
	)
	lx := lexer{buf: stream}
	for {
		tok, kind, ok := lx.next()
		if !ok {
			break
		}
		switch kind {
		case tokOperand:
			operands = append(operands, tok)
			continue
		case tokInlineImage:
			operands = operands[:0]
			continue
		}
		switch tok {
		case "q":
			stack = append(stack, ctm)
		case "Q":
			if n := len(stack); n > 0 {
				ctm = stack[n-1]
				stack = stack[:n-1]
			}
		case "cm":
			if m, ok := lastMatrix(operands); ok {
				ctm = m.mul(ctm)
			}
		case "Do":
			if n := len(operands); n > 0 && len(operands[n-1]) > 1 && operands[n-1][0] == '/' {
				draws = append(draws, unitSquare(operands[n-1][1:], ctm))
			}
		}
		operands = operands[:0]
	}
	return draws
}

func lastMatrix(ops []string) (matrix, bool) {
	if len(ops) < 6 {
		return matrix{}, false
	}
	var m matrix
	for i, s := range ops[len(ops)-6:] {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return matrix{}, false
		}
		m[i] = v
	}
	return m, true
}

func unitSquare(name string, ctm matrix) drawnXObject {
	d := drawnXObject{Name: name, MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, c := range [4][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		x, y := ctm.apply(c[0], c[1])
		d.MinX = math.Min(d.MinX, x)
		d.MinY = math.Min(d.MinY, y)
		d.MaxX = math.Max(d.MaxX, x)
		d.MaxY = math.Max(d.MaxY, y)
	}
	return d
}

// placementFor returns the first drawing of the named XObject converted to a
// top-left origin relative to box.
func placementFor(name string, draws []drawnXObject, box pageBox) (model.Placement, bool) {
	for _, d := range draws {
		if d.Name != name {
			continue
		}
		return model.Placement{
			X:      round2(d.MinX - box.X0),
			Y:      round2(box.height() - (d.MaxY - box.Y0)),
			Width:  round2(d.MaxX - d.MinX),
			Height: round2(d.MaxY - d.MinY),
		}, true
	}
	return model.Placement{}, false
}

type tokenKind int

const (
	tokOperand tokenKind = iota
	tokOperator
	tokInlineImage
)

// lexer splits a content stream into operands and operators. Strings,
// arrays and dictionaries are returned as single opaque operands.
type lexer struct {
	buf []byte
	pos int
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.buf) {
		c := l.buf[l.pos]
		switch {
		case isSpace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.buf) && l.buf[l.pos] != '\n' && l.buf[l.pos] != '\r' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) next() (string, tokenKind, bool) {
	l.skipSpace()
	if l.pos >= len(l.buf) {
		return "", 0, false
	}
	start := l.pos
	c := l.buf[l.pos]
	switch {
	case c == '(':
		l.skipString()
		return string(l.buf[start:l.pos]), tokOperand, true
	case c == '<' && l.pos+1 < len(l.buf) && l.buf[l.pos+1] == '<':
		l.skipNested('<', '>', 2)
		return string(l.buf[start:l.pos]), tokOperand, true
	case c == '<':
		if end := bytes.IndexByte(l.buf[l.pos:], '>'); end >= 0 {
			l.pos += end + 1
		} else {
			l.pos = len(l.buf)
		}
		return string(l.buf[start:l.pos]), tokOperand, true
	case c == '[':
		l.skipNested('[', ']', 1)
		return string(l.buf[start:l.pos]), tokOperand, true
	case c == '/':
		l.pos++
		l.readRegular()
		return string(l.buf[start:l.pos]), tokOperand, true
	case isDelim(c):
		l.pos++
		return string(c), tokOperand, true
	}

	l.readRegular()
	tok := string(l.buf[start:l.pos])
	if isNumber(tok) || tok == "true" || tok == "false" || tok == "null" {
		return tok, tokOperand, true
	}
	if tok == "BI" {
		l.skipInlineImage()
		return tok, tokInlineImage, true
	}
	return tok, tokOperator, true
}

func (l *lexer) readRegular() {
	for l.pos < len(l.buf) && !isSpace(l.buf[l.pos]) && !isDelim(l.buf[l.pos]) {
		l.pos++
	}
}

func (l *lexer) skipString() {
	depth := 0
	for l.pos < len(l.buf) {
		c := l.buf[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.pos < len(l.buf) {
				l.pos++
			}
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

// skipNested consumes a bracketed construct. width is the number of
// characters in each bracket token ("<<" vs "[").
func (l *lexer) skipNested(open, close byte, width int) {
	depth := 0
	for l.pos < len(l.buf) {
		c := l.buf[l.pos]
		switch {
		case c == '(':
			l.skipString()
			continue
		case c == open && (width == 1 || (l.pos+1 < len(l.buf) && l.buf[l.pos+1] == open)):
			depth++
			l.pos = min(l.pos+width, len(l.buf))
			continue
		case c == close && (width == 1 || (l.pos+1 < len(l.buf) && l.buf[l.pos+1] == close)):
			depth--
			l.pos = min(l.pos+width, len(l.buf))
			if depth == 0 {
				return
			}
			continue
		}
		l.pos++
	}
}

// skipInlineImage jumps past the ID ... EI payload of an inline image.
func (l *lexer) skipInlineImage() {
	id := bytes.Index(l.buf[l.pos:], []byte("ID"))
	if id < 0 {
		l.pos = len(l.buf)
		return
	}
	l.pos += id + 2
	for l.pos < len(l.buf) {
		ei := bytes.Index(l.buf[l.pos:], []byte("EI"))
		if ei < 0 {
			l.pos = len(l.buf)
			return
		}
		at := l.pos + ei
		before := at == 0 || isSpace(l.buf[at-1])
		after := at+2 >= len(l.buf) || isSpace(l.buf[at+2])
		l.pos = at + 2
		if before && after {
			return
		}
	}
}

func isNumber(tok string) bool {
	if tok == "" {
		return false
	}
	_, err := strconv.ParseFloat(tok, 64)
	return err == nil
}
