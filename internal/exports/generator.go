package exports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/fdg312/mealweek/internal/mealplans"
	"github.com/fdg312/mealweek/internal/storage"
)

var dayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Generator renders a stored plan as PDF or CSV.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Render returns the plan in the requested format.
func (g *Generator) Render(format string, plan storage.MealPlan, items []storage.MealPlanItem) ([]byte, error) {
	switch format {
	case FormatPDF:
		return g.renderPDF(plan, items)
	case FormatCSV:
		return g.renderCSV(items)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// renderCSV writes one row per filled slot in plan order.
func (g *Generator) renderCSV(items []storage.MealPlanItem) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"day_index", "day", "meal_slot", "recipe_id", "title", "subtype", "calories_kcal", "protein_g", "fat_g", "carbs_g"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, item := range items {
		row := []string{
			strconv.Itoa(item.DayIndex),
			dayName(item.DayIndex),
			item.MealSlot,
			item.RecipeID,
			item.Title,
			item.Subtype,
			strconv.Itoa(item.CaloriesKcal),
			strconv.Itoa(item.ProteinG),
			strconv.Itoa(item.FatG),
			strconv.Itoa(item.CarbsG),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// renderPDF draws a table per day with the day totals underneath.
// Core fonts only cover cp1252, titles are translated into it.
func (g *Generator) renderPDF(plan storage.MealPlan, items []storage.MealPlanItem) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(plan.Title), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr(plan.Title))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Daily target: %d kcal, %d g protein", plan.TargetCalories, plan.TargetProteinG))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", plan.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")))
	pdf.Ln(10)

	byDay := make([][]storage.MealPlanItem, len(dayNames))
	for _, item := range items {
		if item.DayIndex >= 0 && item.DayIndex < len(dayNames) {
			byDay[item.DayIndex] = append(byDay[item.DayIndex], item)
		}
	}
	totals := mealplans.WeekTotals(items)

	for d, dayItems := range byDay {
		if len(dayItems) == 0 {
			continue
		}
		// Keep a day table on one page.
		if pdf.GetY() > 230 {
			pdf.AddPage()
		}

		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, dayNames[d])
		pdf.Ln(8)

		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(25, 6, "Slot", "1", 0, "C", false, 0, "")
		pdf.CellFormat(85, 6, "Recipe", "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, "kcal", "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, "Protein", "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, "Fat", "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, "Carbs", "1", 1, "C", false, 0, "")

		pdf.SetFont("Arial", "", 8)
		for _, item := range dayItems {
			pdf.CellFormat(25, 6, item.MealSlot, "1", 0, "L", false, 0, "")
			pdf.CellFormat(85, 6, tr(truncate(item.Title, 55)), "1", 0, "L", false, 0, "")
			pdf.CellFormat(20, 6, strconv.Itoa(item.CaloriesKcal), "1", 0, "R", false, 0, "")
			pdf.CellFormat(20, 6, strconv.Itoa(item.ProteinG), "1", 0, "R", false, 0, "")
			pdf.CellFormat(20, 6, strconv.Itoa(item.FatG), "1", 0, "R", false, 0, "")
			pdf.CellFormat(20, 6, strconv.Itoa(item.CarbsG), "1", 1, "R", false, 0, "")
		}

		t := totals[d]
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(110, 6, "Total", "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, strconv.Itoa(t.CaloriesKcal), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, strconv.Itoa(t.ProteinG), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, strconv.Itoa(t.FatG), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, strconv.Itoa(t.CarbsG), "1", 1, "R", false, 0, "")
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return buf.Bytes(), nil
}

func dayName(i int) string {
	if i < 0 || i >= len(dayNames) {
		return ""
	}
	return dayNames[i]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
