package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"tourbook/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	scheduleSheet = "Schedule"
	listSheet     = "Bookings"

	dateKeyLayout = "2006-01-02"
)

var listHeaders = []string{
	"ID", "Tour", "Date", "Guests", "Status", "Payment", "Name", "Email", "Guide", "Created At",
}

// BookingsWorkbook builds an xlsx file with a tours-by-date schedule and a flat list.
type BookingsWorkbook struct {
	file *excelize.File
}

// NewBookingsWorkbook lays out bookings dated between from and to, inclusive.
func NewBookingsWorkbook(from, to time.Time, bookings []*models.BookingView) (*BookingsWorkbook, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(scheduleSheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if _, err := f.NewSheet(listSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	_ = f.DeleteSheet("Sheet1")

	w := &BookingsWorkbook{file: f}
	w.writeSchedule(from, to, bookings)
	w.writeList(bookings)
	return w, nil
}

func (w *BookingsWorkbook) Write(out io.Writer) error {
	return w.file.Write(out)
}

func (w *BookingsWorkbook) Close() error {
	return w.file.Close()
}

func (w *BookingsWorkbook) writeSchedule(from, to time.Time, bookings []*models.BookingView) {
	f := w.file
	_ = f.SetCellValue(scheduleSheet, "A1", fmt.Sprintf("Period: %s - %s",
		from.Format("02.01.2006"), to.Format("02.01.2006")))

	dateCols := w.writeDateHeaders(from, to)
	tours := tourRows(bookings)
	w.writeTourHeaders(tours)

	cells := make(map[string][]*models.BookingView)
	for _, b := range bookings {
		if b.Tour == nil {
			continue
		}
		key := b.Tour.ID + "|" + b.Date.UTC().Format(dateKeyLayout)
		cells[key] = append(cells[key], b)
	}

	for row, tour := range tours {
		for day, col := range dateCols {
			list := cells[tour.ID+"|"+day]
			if len(list) == 0 {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col, row+3)
			_ = f.SetCellValue(scheduleSheet, cell, cellText(list))
			if style, err := w.cellStyle(list); err == nil {
				_ = f.SetCellStyle(scheduleSheet, cell, cell, style)
			}
		}
	}

	_ = f.SetColWidth(scheduleSheet, "A", "A", 30)
	lastCol, _ := excelize.ColumnNumberToName(len(dateCols) + 1)
	if len(dateCols) > 0 {
		_ = f.SetColWidth(scheduleSheet, "B", lastCol, 22)
	}
	_ = f.MergeCell(scheduleSheet, "A1", lastCol+"1")

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(scheduleSheet, "A1", "A1", style)
}

func (w *BookingsWorkbook) writeDateHeaders(from, to time.Time) map[string]int {
	style, _ := w.file.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	cols := make(map[string]int)
	col := 2
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = w.file.SetCellValue(scheduleSheet, cell, day.Format("02.01"))
		_ = w.file.SetCellStyle(scheduleSheet, cell, cell, style)
		cols[day.Format(dateKeyLayout)] = col
		col++
	}
	return cols
}

func (w *BookingsWorkbook) writeTourHeaders(tours []*models.TourSummary) {
	style, _ := w.file.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, tour := range tours {
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		title := tour.Title
		if title == "" {
			title = tour.ID
		}
		_ = w.file.SetCellValue(scheduleSheet, cell, title)
		_ = w.file.SetCellStyle(scheduleSheet, cell, cell, style)
	}
}

// cellStyle colors a schedule cell by the most advanced status among its bookings.
func (w *BookingsWorkbook) cellStyle(list []*models.BookingView) (int, error) {
	color := "#FCE4D6" // cancelled only
	for _, b := range list {
		switch b.Status {
		case models.StatusConfirmed:
			color = "#C6EFCE"
		case models.StatusPending:
			if color != "#C6EFCE" {
				color = "#FFEB9C"
			}
		}
	}
	return w.file.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
}

func (w *BookingsWorkbook) writeList(bookings []*models.BookingView) {
	f := w.file
	for i, h := range listHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(listSheet, cell, h)
	}
	header, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(listSheet, "A1", "J1", header)

	for i, b := range bookings {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = f.SetSheetRow(listSheet, cell, &[]interface{}{
			b.ID,
			tourTitle(b.Tour),
			b.Date.UTC().Format(dateKeyLayout),
			b.Guests,
			b.Status,
			b.PaymentMethod,
			b.Name,
			b.Email,
			guideName(b.Guide),
			b.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	_ = f.SetColWidth(listSheet, "A", "A", 38)
	_ = f.SetColWidth(listSheet, "B", "J", 18)
}

func tourRows(bookings []*models.BookingView) []*models.TourSummary {
	seen := make(map[string]*models.TourSummary)
	for _, b := range bookings {
		if b.Tour != nil {
			if _, ok := seen[b.Tour.ID]; !ok {
				seen[b.Tour.ID] = b.Tour
			}
		}
	}
	tours := make([]*models.TourSummary, 0, len(seen))
	for _, t := range seen {
		tours = append(tours, t)
	}
	sort.Slice(tours, func(i, j int) bool {
		if tours[i].Title != tours[j].Title {
			return tours[i].Title < tours[j].Title
		}
		return tours[i].ID < tours[j].ID
	})
	return tours
}

func cellText(list []*models.BookingView) string {
	var text string
	guests := 0
	for _, b := range list {
		text += fmt.Sprintf("%s %s (%d)\n", statusMark(b.Status), b.Name, b.Guests)
		if b.Status != models.StatusCancelled {
			guests += b.Guests
		}
	}
	return text + fmt.Sprintf("\nGuests: %d", guests)
}

func statusMark(status string) string {
	switch status {
	case models.StatusConfirmed:
		return "[+]"
	case models.StatusPending:
		return "[?]"
	case models.StatusCancelled:
		return "[x]"
	default:
		return "[ ]"
	}
}

func tourTitle(t *models.TourSummary) string {
	if t == nil {
		return ""
	}
	if t.Title == "" {
		return t.ID
	}
	return t.Title
}

func guideName(g *models.GuideSummary) string {
	if g == nil {
		return ""
	}
	if g.FullName == "" {
		return g.ID
	}
	return g.FullName
}
