package commands

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/mmynk/mealsplit/internal/models"
)

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

func printSplits(w io.Writer, splits []*models.Split) {
	table := newTable(w)
	table.SetHeader([]string{"ID", "Creator", "Scheduled", "Joined", "Status"})
	for _, s := range splits {
		table.Append([]string{
			s.ID,
			s.CreatorName,
			formatTime(s.ScheduledAt),
			strconv.Itoa(len(s.PeopleJoined)) + "/" + strconv.Itoa(s.PeopleNeeded),
			status(s),
		})
	}
	table.Render()
}

func printSplit(w io.Writer, s *models.Split) {
	table := newTable(w)
	table.SetAutoFormatHeaders(false)
	table.SetColumnSeparator(":")
	for _, pair := range [][2]string{
		{"ID", s.ID},
		{"Creator", s.CreatorName + " (" + s.CreatorID + ")"},
		{"Scheduled", formatTime(s.ScheduledAt)},
		{"Vendor", s.VendorName},
		{"Location", s.Location},
		{"Description", s.Description},
		{"Members", strings.Join(s.PeopleJoined, ", ")},
		{"Capacity", strconv.Itoa(s.PeopleNeeded)},
		{"Status", status(s)},
		{"Created", s.CreatedAt.Format(time.RFC3339)},
	} {
		table.Append([]string{pair[0], pair[1]})
	}
	table.Render()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func status(s *models.Split) string {
	if s.IsClosed {
		return "closed"
	}
	return "open"
}
