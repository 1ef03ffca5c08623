package pdf

import (
	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
)

// reportRenderer walks a goldmark AST and draws it onto an fpdf page. It
// handles the node kinds report markdown actually produces: headings,
// paragraphs, emphasis, lists, tables, and thematic breaks.
type reportRenderer struct {
	pdf    *fpdf.Fpdf
	source []byte
	font   string
	size   float64

	bold      bool
	italic    bool
	listLevel int
}

func (r *reportRenderer) render(root ast.Node) error {
	return ast.Walk(root, r.walk)
}

func (r *reportRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		return r.heading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		if !entering {
			r.pdf.Ln(7)
		}
	case ast.KindText:
		if entering {
			r.pdf.Write(5, string(n.Text(r.source)))
		}
	case ast.KindEmphasis:
		if n.(*ast.Emphasis).Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.applyFont()
	case ast.KindList:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			if r.listLevel == 0 {
				r.pdf.Ln(2)
			}
		}
	case ast.KindListItem:
		if entering {
			r.pdf.Ln(5)
			r.pdf.SetX(14 + float64(r.listLevel)*5)
			r.pdf.Write(5, "- ")
		}
	case ast.KindThematicBreak:
		if entering {
			r.pdf.Ln(3)
			r.pdf.Line(12, r.pdf.GetY(), 198, r.pdf.GetY())
			r.pdf.Ln(3)
		}
	case extast.KindTable:
		if entering {
			r.table(n.(*extast.Table))
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (r *reportRenderer) applyFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(r.font, style, r.size)
}

func (r *reportRenderer) heading(n *ast.Heading, entering bool) (ast.WalkStatus, error) {
	if entering {
		r.pdf.Ln(6)
		size := 10.0
		switch n.Level {
		case 1:
			size = 14
		case 2:
			size = 12
		case 3:
			size = 11
		}
		r.pdf.SetFont(r.font, "B", size)
	} else {
		r.pdf.Ln(6)
		r.applyFont()
	}
	return ast.WalkContinue, nil
}

// table draws a bordered grid with equal column widths and a shaded header
// row. Report tables are short key/count pairs; long cell text is truncated
// by fpdf's cell clipping rather than wrapped.
func (r *reportRenderer) table(n *extast.Table) {
	rows := tableRows(n, r.source)
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	r.pdf.Ln(4)
	cols := len(rows[0])
	colWidth := 186.0 / float64(cols)
	lineHeight := 6.0

	for i, row := range rows {
		if i == 0 {
			r.pdf.SetFont(r.font, "B", 8)
			r.pdf.SetFillColor(230, 230, 230)
		} else {
			r.pdf.SetFont(r.font, "", 8)
			r.pdf.SetFillColor(255, 255, 255)
		}
		for j := 0; j < cols; j++ {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			r.pdf.CellFormat(colWidth, lineHeight, cell, "1", 0, "L", i == 0, 0, "")
		}
		r.pdf.Ln(lineHeight)
	}

	r.pdf.Ln(3)
	r.applyFont()
}

func tableRows(n *extast.Table, source []byte) [][]string {
	var rows [][]string

	var collect func(node ast.Node)
	collect = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			switch row := child.(type) {
			case *extast.TableRow:
				rows = append(rows, rowCells(row, source))
			case *extast.TableHeader:
				collect(row)
			}
		}
	}
	collect(n)
	return rows
}

func rowCells(n *extast.TableRow, source []byte) []string {
	var cells []string
	for cell := n.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			cells = append(cells, string(cell.Text(source)))
		}
	}
	return cells
}
