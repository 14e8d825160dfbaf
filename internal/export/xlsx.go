package export

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

// WriteXLSX builds a minimal single-sheet .xlsx workbook directly with
// archive/zip + encoding/xml. No third-party spreadsheet library lives
// anywhere in this module's dependency graph (none of the example
// repos import one either; see DESIGN.md), so this hand-rolled writer
// is the stdlib fallback the ambient-stack rule allows when the
// ecosystem genuinely offers nothing to wire. It emits every cell as
// an inline string to avoid a separate shared-strings part.
func WriteXLSX(w io.Writer, s *Shaped) error {
	zw := zip.NewWriter(w)

	if err := writeZipEntry(zw, "[Content_Types].xml", contentTypesXML); err != nil {
		return err
	}
	if err := writeZipEntry(zw, "_rels/.rels", rootRelsXML); err != nil {
		return err
	}
	if err := writeZipEntry(zw, "xl/workbook.xml", workbookXML); err != nil {
		return err
	}
	if err := writeZipEntry(zw, "xl/_rels/workbook.xml.rels", workbookRelsXML); err != nil {
		return err
	}

	sheet, err := renderSheet(s)
	if err != nil {
		return err
	}
	if err := writeZipEntry(zw, "xl/worksheets/sheet1.xml", sheet); err != nil {
		return err
	}

	return zw.Close()
}

func writeZipEntry(zw *zip.Writer, name, content string) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %s: %w", name, err)
	}
	_, err = io.WriteString(f, content)
	return err
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>
<Override PartName="/xl/worksheets/sheet1.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>
</Types>`

const rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/>
</Relationships>`

const workbookXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="Report" sheetId="1" r:id="rId1"/></sheets>
</workbook>`

const workbookRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>
</Relationships>`

// sheetXML mirrors the subset of SpreadsheetML this writer emits.
type sheetXML struct {
	XMLName xml.Name `xml:"worksheet"`
	Xmlns   string   `xml:"xmlns,attr"`
	SheetData struct {
		Rows []rowXML `xml:"row"`
	} `xml:"sheetData"`
}

type rowXML struct {
	R     int       `xml:"r,attr"`
	Cells []cellXML `xml:"c"`
}

type cellXML struct {
	R   string      `xml:"r,attr"`
	T   string      `xml:"t,attr,omitempty"`
	Inline *inlineStr `xml:"is,omitempty"`
}

type inlineStr struct {
	T string `xml:"t"`
}

func renderSheet(s *Shaped) (string, error) {
	var doc sheetXML
	doc.Xmlns = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"

	header := rowXML{R: 1}
	for col, h := range s.Headers {
		header.Cells = append(header.Cells, cellXML{R: cellRef(col, 1), T: "inlineStr", Inline: &inlineStr{T: h}})
	}
	doc.SheetData.Rows = append(doc.SheetData.Rows, header)

	for i, row := range s.Rows {
		r := rowXML{R: i + 2}
		for col, h := range s.Headers {
			r.Cells = append(r.Cells, cellXML{R: cellRef(col, i+2), T: "inlineStr", Inline: &inlineStr{T: formatCell(row[h])}})
		}
		doc.SheetData.Rows = append(doc.SheetData.Rows, r)
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal sheet xml: %w", err)
	}
	return xml.Header + string(out), nil
}

// cellRef renders a zero-based column index and one-based row number
// as an A1-style reference (e.g. col=0,row=1 => "A1").
func cellRef(col, row int) string {
	name := ""
	col++
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name + strconv.Itoa(row)
}
