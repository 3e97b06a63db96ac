package labels

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/xuri/excelize/v2"
)

// ExportFormat формат экспорта
type ExportFormat string

const (
	FormatJSON  ExportFormat = "json"
	FormatCSV   ExportFormat = "csv"
	FormatExcel ExportFormat = "excel"
)

// ExportedLabel строка экспорта: одна этикетка без маркеров
type ExportedLabel struct {
	Page          int    `json:"page" csv:"page"`
	Slot          string `json:"slot" csv:"slot"`
	Description   string `json:"description" csv:"description"`
	DescAndWeight string `json:"desc_and_weight" csv:"desc_and_weight"`
	Brand         string `json:"brand" csv:"brand"`
	Strain        string `json:"strain" csv:"strain"`
	Lineage       string `json:"lineage" csv:"lineage"`
	ProductType   string `json:"product_type" csv:"product_type"`
	Weight        string `json:"weight" csv:"weight"`
	JointRatio    string `json:"joint_ratio" csv:"joint_ratio"`
	Price         string `json:"price" csv:"price"`
	Ratio         string `json:"ratio" csv:"ratio"`
	THC           string `json:"thc" csv:"thc"`
	CBD           string `json:"cbd" csv:"cbd"`
	DOH           string `json:"doh" csv:"doh"`
	Vendor        string `json:"vendor" csv:"vendor"`
}

// Exporter экспортер подготовленных этикеток
type Exporter struct{}

// NewExporter создает новый экспортер
func NewExporter() *Exporter {
	return &Exporter{}
}

// Export экспортирует в выбранном формате
func (e *Exporter) Export(format ExportFormat, filename string, result *Result) error {
	switch format {
	case FormatJSON:
		return e.ExportToJSON(filename, result)
	case FormatCSV:
		return e.ExportToCSV(filename, result)
	case FormatExcel:
		return e.ExportToExcel(filename, result)
	}
	return fmt.Errorf("unsupported export format: %s", format)
}

// ExportedLabels разворачивает результат в строки экспорта
func ExportedLabels(result *Result) []ExportedLabel {
	perPage := result.Template.LabelsPerPage()
	if perPage == 0 {
		perPage = len(result.Labels) + 1
	}

	items := make([]ExportedLabel, 0, len(result.Labels))
	for i, l := range result.Labels {
		items = append(items, ExportedLabel{
			Page:          i/perPage + 1,
			Slot:          SlotName(i%perPage + 1),
			Description:   l[FieldDescription],
			DescAndWeight: l[FieldDescAndWeight],
			Brand:         l[FieldProductBrand],
			Strain:        l[FieldProductStrain],
			Lineage:       l[FieldLineage],
			ProductType:   l[FieldProductType],
			Weight:        l[FieldWeightUnits],
			JointRatio:    l[FieldJointRatio],
			Price:         l[FieldPrice],
			Ratio:         l[FieldRatio],
			THC:           l[FieldTHC],
			CBD:           l[FieldCBD],
			DOH:           l[FieldDOH],
			Vendor:        l[FieldVendor],
		})
	}
	return items
}

// ExportToJSON экспортирует листы с маркерами (вход шаблонизатора)
func (e *Exporter) ExportToJSON(filename string, result *Result) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	payload := map[string]interface{}{
		"exported_at":     time.Now().Format(time.RFC3339),
		"template":        result.Template,
		"labels_per_page": result.Template.LabelsPerPage(),
		"total":           len(result.Labels),
		"pages":           result.Pages,
		"unmatched":       result.Unmatched,
	}

	if err := encoder.Encode(payload); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// ExportToCSV экспортирует этикетки построчно
func (e *Exporter) ExportToCSV(filename string, result *Result) error {
	data, err := csvutil.Marshal(ExportedLabels(result))
	if err != nil {
		return fmt.Errorf("failed to encode CSV: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// ExportToExcel экспортирует этикетки в лист Excel
func (e *Exporter) ExportToExcel(filename string, result *Result) error {
	items := ExportedLabels(result)

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Labels"
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	// Стиль заголовков
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	// Заголовки
	headers := []string{
		"Page", "Slot", "Description", "Description & Weight", "Brand",
		"Strain", "Lineage", "Product Type", "Weight", "Joint Ratio",
		"Price", "Ratio", "THC", "CBD", "DOH", "Vendor",
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	// Данные
	for rowIdx, item := range items {
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		row := []interface{}{
			item.Page, item.Slot, item.Description, item.DescAndWeight, item.Brand,
			item.Strain, item.Lineage, item.ProductType, item.Weight, item.JointRatio,
			item.Price, item.Ratio, item.THC, item.CBD, item.DOH, item.Vendor,
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowIdx+2, err)
		}
	}

	// Ширина колонок
	for i := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 18)
	}

	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}

	return nil
}
