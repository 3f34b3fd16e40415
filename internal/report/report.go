// Package report renders a student's verified achievements as a PDF.
package report

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/veridoc-io/veridoc/internal/store"
)

// Color is an RGB fill color.
type Color struct {
	R, G, B int
}

// Options configures report rendering.
type Options struct {
	Title          string
	FontFamily     string
	FontSize       float64
	HeaderFontSize float64
	TitleFontSize  float64
	DateFormat     string
	HeaderColor    Color
	AlternateColor Color
}

// DefaultOptions returns the default report layout.
func DefaultOptions() Options {
	return Options{
		Title:          "Verified Achievements",
		FontFamily:     "Helvetica",
		FontSize:       10,
		HeaderFontSize: 11,
		TitleFontSize:  16,
		DateFormat:     "2006-01-02",
		HeaderColor:    Color{R: 46, G: 94, B: 170},
		AlternateColor: Color{R: 242, G: 242, B: 242},
	}
}

// Entry is one verified achievement.
type Entry struct {
	Label      string
	Kind       string
	Resolution string
	Confidence float64
	VerifiedAt time.Time
}

// Profile is the input to the generator: the student plus their verified
// submissions.
type Profile struct {
	StudentName string
	RollNumber  string
	Entries     []Entry
}

// ProfileFromSubmissions builds a report profile from verified submissions.
// The achievement label prefers the claimed skill, falling back to the
// document kind.
func ProfileFromSubmissions(name, rollNumber string, subs []store.Submission) Profile {
	profile := Profile{StudentName: name, RollNumber: rollNumber}
	for _, sub := range subs {
		label := sub.Skill
		if label == "" {
			label = sub.Kind
		}
		resolution := "automatic"
		if sub.Status == store.StatusApproved {
			resolution = "manual review"
		}
		if profile.StudentName == "" {
			profile.StudentName = sub.StudentName
		}
		profile.Entries = append(profile.Entries, Entry{
			Label:      label,
			Kind:       sub.Kind,
			Resolution: resolution,
			Confidence: sub.Overall,
			VerifiedAt: sub.CreatedAt,
		})
	}
	return profile
}

// Generator renders achievement reports.
type Generator struct {
	pdf     *gofpdf.Fpdf
	options Options
}

// NewGenerator creates a generator with the given options.
func NewGenerator(options Options) *Generator {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	return &Generator{pdf: pdf, options: options}
}

// Render lays out the report for one profile.
func (g *Generator) Render(profile Profile) error {
	g.pdf.AddPage()
	g.addTitle()
	g.addStudentBlock(profile)
	g.pdf.Ln(6)

	if len(profile.Entries) == 0 {
		g.pdf.SetFont(g.options.FontFamily, "I", g.options.FontSize)
		g.pdf.SetTextColor(100, 100, 100)
		g.pdf.CellFormat(0, 8, "No verified achievements on record.", "", 1, "L", false, 0, "")
		return g.pdf.Error()
	}

	widths := []float64{10, 60, 35, 30, 25, 20}
	g.addTableHeader(widths)
	g.addTableRows(profile.Entries, widths)
	g.addFooter(len(profile.Entries))
	return g.pdf.Error()
}

func (g *Generator) addTitle() {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.TitleFontSize)
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.CellFormat(0, 10, g.options.Title, "", 1, "C", false, 0, "")

	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize-1)
	g.pdf.SetTextColor(128, 128, 128)
	generated := fmt.Sprintf("Generated: %s", time.Now().Format(g.options.DateFormat))
	g.pdf.CellFormat(0, 6, generated, "", 1, "R", false, 0, "")
	g.pdf.Ln(4)
}

func (g *Generator) addStudentBlock(profile Profile) {
	rows := []struct{ label, value string }{
		{"Student", profile.StudentName},
		{"Roll Number", profile.RollNumber},
	}
	for _, row := range rows {
		g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize)
		g.pdf.SetTextColor(0, 0, 0)
		g.pdf.CellFormat(40, 6, row.label+":", "", 0, "L", false, 0, "")
		g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
		g.pdf.CellFormat(0, 6, row.value, "", 1, "L", false, 0, "")
	}
}

func (g *Generator) addTableHeader(widths []float64) {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.HeaderFontSize)
	g.pdf.SetFillColor(g.options.HeaderColor.R, g.options.HeaderColor.G, g.options.HeaderColor.B)
	g.pdf.SetTextColor(255, 255, 255)

	labels := []string{"#", "Achievement", "Document", "Verified On", "Confidence", "Via"}
	for i, label := range labels {
		g.pdf.CellFormat(widths[i], 8, label, "1", 0, "C", true, 0, "")
	}
	g.pdf.Ln(-1)
}

func (g *Generator) addTableRows(entries []Entry, widths []float64) {
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	g.pdf.SetTextColor(0, 0, 0)

	for i, entry := range entries {
		if i%2 == 1 {
			g.pdf.SetFillColor(g.options.AlternateColor.R, g.options.AlternateColor.G, g.options.AlternateColor.B)
		} else {
			g.pdf.SetFillColor(255, 255, 255)
		}

		cells := []struct {
			value string
			align string
		}{
			{fmt.Sprintf("%d", i+1), "C"},
			{entry.Label, "L"},
			{entry.Kind, "L"},
			{entry.VerifiedAt.Format(g.options.DateFormat), "C"},
			{fmt.Sprintf("%.2f", entry.Confidence), "C"},
			{entry.Resolution, "C"},
		}
		for j, cell := range cells {
			g.pdf.CellFormat(widths[j], 7, cell.value, "1", 0, cell.align, true, 0, "")
		}
		g.pdf.Ln(-1)
	}
}

func (g *Generator) addFooter(count int) {
	g.pdf.Ln(6)
	g.pdf.SetFont(g.options.FontFamily, "I", g.options.FontSize-1)
	g.pdf.SetTextColor(100, 100, 100)
	summary := fmt.Sprintf("%d verified achievement(s) on record.", count)
	g.pdf.CellFormat(0, 6, summary, "", 1, "L", false, 0, "")
}

// WriteTo writes the rendered PDF to w.
func (g *Generator) WriteTo(w io.Writer) error {
	return g.pdf.Output(w)
}

// OutputToBytes returns the rendered PDF as bytes.
func (g *Generator) OutputToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := g.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Render renders a profile with default options and returns the PDF bytes.
func Render(profile Profile) ([]byte, error) {
	g := NewGenerator(DefaultOptions())
	if err := g.Render(profile); err != nil {
		return nil, err
	}
	return g.OutputToBytes()
}
