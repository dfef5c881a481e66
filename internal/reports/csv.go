package reports

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const csvDate = "2006-01-02"

// WriteMembershipCSV emits the membership report followed by its totals row.
func WriteMembershipCSV(w io.Writer, report *MembershipReport) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{
		"Ref", "Branch", "Shift", "Gender", "State", "Service", "Package",
		"Amount", "Discounted Amount", "Refunded Amount", "Date of Expiry",
	}); err != nil {
		return err
	}
	for _, row := range report.Rows {
		if err := writer.Write([]string{
			row.Code,
			row.Branch,
			row.Shift,
			row.Gender,
			row.State,
			row.Service,
			row.Package,
			money(row.Amount),
			money(row.Discounted),
			money(row.Refunded),
			optionalDate(row.Expiry),
		}); err != nil {
			return err
		}
	}
	records := [][]string{
		{"Total", "", "", "", "", "", "", money(report.TotalAmount), money(report.TotalDiscounted), money(report.TotalRefunded), ""},
		{"Net Profit", "", "", "", "", "", "", "", money(report.NetProfit), "", ""},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteMeasurementCSV emits a member's measurement history.
func WriteMeasurementCSV(w io.Writer, report *MeasurementReport) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	records := [][]string{
		{"Member", report.MemberName},
		{"Branch", report.BranchName},
		{"Date", "Weight (kg)", "Height (cm)", "BMI", "Category"},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	for _, row := range report.Rows {
		if err := writer.Write([]string{
			row.Date.Format(csvDate),
			formatFloat(row.WeightKg),
			formatFloat(row.HeightCm),
			formatFloat(row.BMI),
			row.BMICategory,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSalesCSV emits the sales report. Detail reports list the lines under each group.
func WriteSalesCSV(w io.Writer, report *SalesReport) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	totalsHeader := []string{"Group", "Amount", "Ordered Qty", "Delivered Qty", "To Invoice Qty", "Invoiced Qty"}
	if err := writer.Write(totalsHeader); err != nil {
		return err
	}
	for _, section := range report.Sections {
		if err := writer.Write([]string{
			section.Group,
			money(section.TotalAmount),
			section.TotalOrderedQty.String(),
			section.TotalDeliveredQty.String(),
			section.TotalToInvoiceQty.String(),
			section.TotalInvoicedQty.String(),
		}); err != nil {
			return err
		}
		if report.Type != SalesDetail {
			continue
		}
		if err := writer.Write([]string{"", "Order Date", "Order", "Customer", "Product", "Ordered Qty", "Delivered Qty", "Rate", "Amount", "To Invoice Qty", "Invoiced Qty"}); err != nil {
			return err
		}
		for _, l := range section.Lines {
			if err := writer.Write([]string{
				"",
				l.OrderDate.Format(csvDate),
				l.OrderName,
				l.Customer,
				l.Product,
				l.OrderedQty.String(),
				l.DeliveredQty.String(),
				money(l.Rate),
				money(l.Amount),
				l.ToInvoiceQty.String(),
				l.InvoicedQty.String(),
			}); err != nil {
				return err
			}
		}
	}
	if err := writer.Write([]string{"Total", money(report.Total)}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func optionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(csvDate)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
