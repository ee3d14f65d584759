// Package pdfgen renders a completed intake form into a printable PDF
// buffer. Rendering is pure: the generator performs no I/O beyond building
// the in-memory document, and output is reproducible for identical inputs
// except for the optional "today" date line.
package pdfgen

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// PatientInfo is the header block for the rendered document.
type PatientInfo struct {
	LastName  string
	FirstName string
	Birthdate string
}

// FieldValue is one answered field. Signature marks the field whose value is
// a base64-encoded PNG to embed as an image.
type FieldValue struct {
	Name      string
	Value     string
	Signature bool
}

// Generator builds PDF snapshots. It holds only immutable configuration and
// is safe for concurrent use.
type Generator struct {
	practiceName string
	now          func() time.Time
}

func NewGenerator(practiceName string) *Generator {
	return &Generator{practiceName: practiceName, now: time.Now}
}

const (
	pageWidth   = 215.9 // Letter, mm
	marginX     = 15.0
	contentW    = pageWidth - 2*marginX
	lineH       = 6.0
	sigBoxW     = 70.0
	sigBoxH     = 25.0
	labelColW   = 65.0
	checkboxGap = 8.0
)

// Render produces the PDF bytes for one completed form.
func (g *Generator) Render(patient *PatientInfo, fields []FieldValue, formTitle string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(marginX, 15, marginX)
	pdf.SetAutoPageBreak(true, 20)
	// Pin the document date so identical inputs produce identical bytes.
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	pdf.AddPage()

	if g.practiceName != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(contentW, 5, g.practiceName, "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 9, formTitle, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	layout, hasLayout := LayoutFor(formTitle)

	if hasLayout && layout.IncludePatientInfo && patient != nil {
		g.patientRow(pdf, patient)
	}
	if hasLayout && layout.IncludeDate {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(contentW, lineH, "Date: "+g.now().Format("January 2, 2006"), "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}

	byName, signature := indexFields(fields)

	if hasLayout && len(layout.Sections) > 0 {
		if layout.ConsentPosition == ConsentPositionTop {
			g.consentBlock(pdf, layout.ConsentText)
		}
		for _, section := range layout.Sections {
			g.section(pdf, section, byName)
		}
		if layout.ConsentPosition == ConsentPositionMiddle {
			g.consentBlock(pdf, layout.ConsentText)
		}
	} else {
		// No layout hints: flat label/value listing, signature excluded here
		// and rendered last.
		pdf.SetFont("Helvetica", "", 10)
		for _, f := range fields {
			if f.Signature {
				continue
			}
			g.labelValue(pdf, f.Name, f.Value)
		}
	}

	if signature != nil {
		g.signatureBlock(pdf, signature.Value)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func indexFields(fields []FieldValue) (map[string]string, *FieldValue) {
	byName := make(map[string]string, len(fields))
	var signature *FieldValue
	for i := range fields {
		f := fields[i]
		if f.Signature && signature == nil {
			signature = &fields[i]
			continue
		}
		byName[f.Name] = f.Value
	}
	return byName, signature
}

func (g *Generator) patientRow(pdf *fpdf.Fpdf, patient *PatientInfo) {
	pdf.SetFont("Helvetica", "", 10)
	row := fmt.Sprintf("Patient: %s, %s", patient.LastName, patient.FirstName)
	if patient.Birthdate != "" {
		row += "    DOB: " + patient.Birthdate
	}
	pdf.CellFormat(contentW, lineH, row, "", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func (g *Generator) consentBlock(pdf *fpdf.Fpdf, key string) {
	text, ok := consentTexts[key]
	if !ok {
		return
	}
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(contentW, 4.5, text, "", "L", false)
	pdf.Ln(3)
}

func (g *Generator) section(pdf *fpdf.Fpdf, section LayoutSection, byName map[string]string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 7, section.Title, "", 1, "L", false, 0, "")
	if section.Note != "" {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(contentW, 4.5, section.Note, "", "L", false)
	}
	pdf.SetFont("Helvetica", "", 10)
	for _, name := range section.Fields {
		value, ok := byName[name]
		if !ok {
			continue
		}
		if section.ShowDiscontinued {
			glyph := "[ ]"
			if isTruthy(byName[name+" Discontinued"]) {
				glyph = "[x]"
			}
			pdf.CellFormat(checkboxGap, lineH, glyph, "", 0, "L", false, 0, "")
			pdf.CellFormat(contentW-checkboxGap, lineH, name+": "+value, "", 1, "L", false, 0, "")
			continue
		}
		g.labelValue(pdf, name, value)
	}
	pdf.Ln(2)
}

func (g *Generator) labelValue(pdf *fpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(labelColW, lineH, label+":", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(contentW-labelColW, lineH, value, "", "L", false)
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "1", "on", "x":
		return true
	}
	return false
}

// signatureBlock embeds the signature image, fit to a bounded box. A value
// that fails to decode as PNG renders as a "[Signed]" placeholder rather
// than failing the document.
func (g *Generator) signatureBlock(pdf *fpdf.Fpdf, value string) {
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, lineH, "Signature:", "", 1, "L", false, 0, "")

	img, err := decodeSignaturePNG(value)
	if err != nil {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(contentW, lineH, "[Signed]", "", 1, "L", false, 0, "")
		return
	}

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	name := "signature"
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
	x := pdf.GetX()
	y := pdf.GetY()
	pdf.ImageOptions(name, x, y, sigBoxW, 0, false, opts, 0, "")
	pdf.SetY(y + sigBoxH)
}

// decodeSignaturePNG accepts either a data URI ("data:image/png;base64,...")
// or bare base64, and verifies the payload is a PNG.
func decodeSignaturePNG(value string) ([]byte, error) {
	raw := value
	if idx := strings.Index(raw, "base64,"); idx >= 0 {
		raw = raw[idx+len("base64,"):]
	}
	img, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	if !bytes.HasPrefix(img, []byte("\x89PNG\r\n\x1a\n")) {
		return nil, fmt.Errorf("signature is not a PNG image")
	}
	return img, nil
}
