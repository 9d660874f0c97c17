package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/jpdeguzman/submeter-billing/backend/models"
)

type StatementGenerator struct {
	outputDir string
}

func NewStatementGenerator(outputDir string) *StatementGenerator {
	if outputDir == "" {
		outputDir = "./statements"
	}
	return &StatementGenerator{outputDir: outputDir}
}

// GenerateTenantStatement renders a tenant billing result as an A4 PDF and
// returns the path of the written file. Failed meters are listed with their
// error text so the statement shows which periods lack data.
func (sg *StatementGenerator) GenerateTenantStatement(billing *models.TenantBilling, buildingName string) (string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 22)
	pdf.SetTextColor(0, 102, 153)
	pdf.Cell(0, 10, "Utility Billing Statement")
	pdf.Ln(10)

	reference := fmt.Sprintf("STM-%d-%s", billing.TenantID, billing.PeriodEnd)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.Cell(0, 6, "#"+reference)
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.Cell(0, 6, "BILL TO")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.Cell(0, 5, billing.TenantName)
	pdf.Ln(4)
	if buildingName != "" {
		pdf.Cell(0, 5, buildingName)
		pdf.Ln(4)
	}
	pdf.Cell(0, 5, "Billing period ending "+billing.PeriodEnd)
	pdf.Ln(10)

	// Meter table
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(28, 7, "Meter", "1", 0, "L", true, 0, "")
	pdf.CellFormat(18, 7, "Type", "1", 0, "L", true, 0, "")
	pdf.CellFormat(22, 7, "Prev Index", "1", 0, "R", true, 0, "")
	pdf.CellFormat(22, 7, "Curr Index", "1", 0, "R", true, 0, "")
	pdf.CellFormat(24, 7, "Consumption", "1", 0, "R", true, 0, "")
	pdf.CellFormat(18, 7, "Rate", "1", 0, "R", true, 0, "")
	pdf.CellFormat(24, 7, "VAT", "1", 0, "R", true, 0, "")
	pdf.CellFormat(24, 7, "Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, entry := range billing.Meters {
		if entry.Error != "" {
			pdf.SetTextColor(180, 0, 0)
			pdf.CellFormat(28, 7, entry.SerialNumber, "1", 0, "L", false, 0, "")
			pdf.CellFormat(18, 7, entry.UtilityType, "1", 0, "L", false, 0, "")
			pdf.CellFormat(134, 7, entry.Error, "1", 1, "L", false, 0, "")
			pdf.SetTextColor(0, 0, 0)
			continue
		}

		b := entry.Billing
		pdf.CellFormat(28, 7, b.SerialNumber, "1", 0, "L", false, 0, "")
		pdf.CellFormat(18, 7, b.UtilityType, "1", 0, "L", false, 0, "")
		pdf.CellFormat(22, 7, fmt.Sprintf("%.2f", b.PreviousIndex), "1", 0, "R", false, 0, "")
		pdf.CellFormat(22, 7, fmt.Sprintf("%.2f", b.CurrentIndex), "1", 0, "R", false, 0, "")
		pdf.CellFormat(24, 7, fmt.Sprintf("%.2f", b.Consumption), "1", 0, "R", false, 0, "")
		pdf.CellFormat(18, 7, fmt.Sprintf("%.2f", b.UnitRate), "1", 0, "R", false, 0, "")
		pdf.CellFormat(24, 7, fmt.Sprintf("%.2f", b.Breakdown.Vat), "1", 0, "R", false, 0, "")
		pdf.CellFormat(24, 7, fmt.Sprintf("%.2f", b.Breakdown.Total), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	// Per-utility subtotals
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, "Subtotals")
	pdf.Ln(7)

	pdf.SetFont("Arial", "", 9)
	for _, t := range billing.TotalsByType {
		line := fmt.Sprintf("%s: consumption %.2f, base %.2f, VAT %.2f, WT %.2f, penalty %.2f, total %.2f",
			t.UtilityType, t.Consumption, t.Base, t.Vat, t.Wt, t.Penalty, t.Total)
		pdf.Cell(0, 5, line)
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("AMOUNT DUE: %.2f", billing.GrandTotal.Total))
	pdf.Ln(12)

	// Payment reference QR
	qrData := fmt.Sprintf("%s|%s|%.2f", reference, billing.TenantName, billing.GrandTotal.Total)
	tempQR := filepath.Join(os.TempDir(), fmt.Sprintf("stmqr-%d-%d.png", billing.TenantID, time.Now().UnixNano()))
	if err := qrcode.WriteFile(qrData, qrcode.Medium, 280, tempQR); err == nil {
		pdf.ImageOptions(tempQR, 15, pdf.GetY(), 40, 40, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		pdf.SetXY(60, pdf.GetY()+16)
		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(100, 100, 100)
		pdf.Cell(0, 5, "Scan to pay with reference "+reference)
		os.Remove(tempQR)
	} else {
		log.Printf("WARNING: Failed to render statement QR: %v", err)
	}

	if err := os.MkdirAll(sg.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create statements directory: %v", err)
	}

	path := filepath.Join(sg.outputDir, reference+".pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed to save PDF: %v", err)
	}

	log.Printf("Generated statement PDF: %s", path)
	return path, nil
}
