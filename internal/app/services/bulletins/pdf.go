package bulletins

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pageWidth  = 5.5
	pageHeight = 8.5
	pagePad    = 0.45
	bandHeight = 0.3
)

type pdfPainter struct {
	pdf     *fpdf.Fpdf
	tr      func(string) string
	view    ViewModel
	primary [3]int
	accent  [3]int
}

func renderPDF(view ViewModel, mode Mode, stamp time.Time) ([]byte, error) {
	var pdf *fpdf.Fpdf
	if mode == ModeBooklet {
		pdf = fpdf.New("L", "in", "Letter", "")
	} else {
		pdf = fpdf.NewCustom(&fpdf.InitType{
			OrientationStr: "P",
			UnitStr:        "in",
			Size:           fpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
		})
	}
	pdf.SetAutoPageBreak(false, 0)
	if !stamp.IsZero() {
		pdf.SetCreationDate(stamp)
		pdf.SetModificationDate(stamp)
	}

	p := &pdfPainter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), view: view}
	p.primary[0], p.primary[1], p.primary[2] = rgb(view.Colors.Primary)
	p.accent[0], p.accent[1], p.accent[2] = rgb(view.Colors.Accent)
	pdf.SetTitle(p.tr(view.Cover.Title), false)
	pdf.SetAuthor(p.tr(view.Cover.ChurchName), false)

	if mode == ModeBooklet {
		for _, side := range bookletImposition {
			pdf.AddPage()
			for slot, page := range side {
				p.page(page, float64(slot)*pageWidth)
			}
			p.foldLine()
		}
	} else {
		for _, page := range readingOrder {
			pdf.AddPage()
			p.page(page, 0)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// page draws page n into the half-sheet starting at x0.
func (p *pdfPainter) page(n int, x0 float64) {
	sheetWidth, _ := p.pdf.GetPageSize()
	p.pdf.SetMargins(x0+pagePad, pagePad, sheetWidth-(x0+pageWidth)+pagePad)
	p.pdf.SetXY(x0+pagePad, pagePad+bandHeight)

	switch n {
	case PageCover:
		p.band(x0, 0)
		p.cover()
	case PageWorship:
		p.worship()
	case PageAnnouncements:
		p.announcements()
	case PageBack:
		p.back()
		p.band(x0, pageHeight-bandHeight)
	}
	p.folio(n, x0)
}

func (p *pdfPainter) cover() {
	c := p.view.Cover
	p.pdf.Ln(0.6)
	p.text("B", 20, p.primary, c.ChurchName, "C")
	p.text("I", 11, [3]int{90, 90, 90}, c.Tagline, "C")
	p.pdf.Ln(0.5)
	p.text("", 12, [3]int{40, 40, 40}, c.DateLine, "C")
	p.pdf.Ln(0.25)
	p.text("B", 16, p.accent, c.Title, "C")
	p.text("", 12, [3]int{40, 40, 40}, c.Theme, "C")
	p.text("I", 10, [3]int{90, 90, 90}, c.ThemeVerse, "C")
	p.pdf.Ln(0.5)
	p.text("", 10, [3]int{40, 40, 40}, c.WelcomeMessage, "C")
}

func (p *pdfPainter) worship() {
	p.heading("Order of Worship")
	for _, e := range p.view.Worship {
		title := e.Title
		if e.Label != "" && title != "" {
			title = e.Label + "  " + title
		} else if title == "" {
			title = e.Label
		}
		p.text("B", 10.5, [3]int{30, 30, 30}, title, "L")
		detail := e.Detail
		if e.Leader != "" {
			if detail != "" {
				detail += "  |  "
			}
			detail += e.Leader
		}
		p.text("I", 9, [3]int{100, 100, 100}, detail, "L")
		p.pdf.Ln(0.06)
	}
}

func (p *pdfPainter) announcements() {
	p.heading("Announcements")
	for _, a := range p.view.Announcements.Items {
		p.text("B", 10.5, p.primary, a.Title, "L")
		p.text("", 9.5, [3]int{40, 40, 40}, a.Body, "L")
		p.pdf.Ln(0.1)
	}
	if n := p.view.Announcements.Overflow; n > 0 {
		p.text("I", 9, [3]int{100, 100, 100}, fmt.Sprintf("%d more announcement%s online", n, plural(n)), "L")
	}
}

func (p *pdfPainter) back() {
	b := p.view.Back
	p.heading("Connect With Us")
	for _, line := range []string{b.Address, b.Phone, b.Email, b.Website} {
		p.text("", 10, [3]int{40, 40, 40}, line, "L")
	}
	if b.PastorName != "" {
		p.pdf.Ln(0.1)
		p.text("", 10, [3]int{40, 40, 40}, "Pastor: "+b.PastorName, "L")
	}
	if len(b.Upcoming) > 0 {
		p.pdf.Ln(0.2)
		p.heading("Coming Up")
		for _, u := range b.Upcoming {
			p.text("", 10, [3]int{40, 40, 40}, u.Date+"  "+u.Title, "L")
		}
	}
	if b.GivingNote != "" {
		p.pdf.Ln(0.2)
		p.heading("Giving")
		p.text("", 10, [3]int{40, 40, 40}, b.GivingNote, "L")
	}
	if b.PublishedOn != "" {
		p.pdf.Ln(0.2)
		p.text("I", 8, [3]int{120, 120, 120}, "Published "+b.PublishedOn, "L")
	}
}

func (p *pdfPainter) heading(s string) {
	p.text("B", 13, p.primary, s, "L")
	x, y := p.pdf.GetXY()
	left, _, right, _ := p.pdf.GetMargins()
	sheetWidth, _ := p.pdf.GetPageSize()
	p.pdf.SetDrawColor(p.accent[0], p.accent[1], p.accent[2])
	p.pdf.SetLineWidth(0.015)
	p.pdf.Line(left, y+0.02, sheetWidth-right, y+0.02)
	p.pdf.SetXY(x, y+0.12)
}

func (p *pdfPainter) text(style string, size float64, color [3]int, s, align string) {
	if s == "" {
		return
	}
	p.pdf.SetFont("Helvetica", style, size)
	p.pdf.SetTextColor(color[0], color[1], color[2])
	p.pdf.MultiCell(0, size/72*1.35, p.tr(s), "", align, false)
}

func (p *pdfPainter) band(x0, y float64) {
	p.pdf.SetFillColor(p.primary[0], p.primary[1], p.primary[2])
	p.pdf.Rect(x0, y, pageWidth, bandHeight, "F")
}

func (p *pdfPainter) folio(n int, x0 float64) {
	if n == PageCover || n == PageBack {
		return
	}
	p.pdf.SetFont("Helvetica", "", 8)
	p.pdf.SetTextColor(140, 140, 140)
	p.pdf.SetXY(x0, pageHeight-pagePad)
	p.pdf.CellFormat(pageWidth, 0.2, fmt.Sprint(n), "", 0, "C", false, 0, "")
}

func (p *pdfPainter) foldLine() {
	p.pdf.SetDrawColor(200, 200, 200)
	p.pdf.SetLineWidth(0.01)
	p.pdf.SetDashPattern([]float64{0.06, 0.06}, 0)
	p.pdf.Line(pageWidth, 0.15, pageWidth, pageHeight-0.15)
	p.pdf.SetDashPattern([]float64{}, 0)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
