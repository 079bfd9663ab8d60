package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"bookapp/internal/models"
	"bookapp/internal/viewstate"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

const maxTitleWidth = 40

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func marker(on bool, mark string) string {
	if on {
		return mark
	}
	return ""
}

func printBooks(w io.Writer, books []models.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No books found."))
		return
	}

	t := newTable("ID", "Title", "Author", "Category", "Fav", "DL")
	for _, b := range books {
		t.Row(
			strconv.FormatInt(b.ID, 10),
			truncate(b.Title, maxTitleWidth),
			truncate(b.Author, 30),
			b.Category,
			marker(b.IsFavorite, "*"),
			marker(b.IsDownloaded, "v"),
		)
	}
	fmt.Fprintln(w, t.String())
}

// printBook prints the details of one book. cover is the resolved link to
// its cover image, if any.
func printBook(w io.Writer, b models.Book, cover string) {
	var text strings.Builder
	fmt.Fprintf(&text, "%s\n", headerStyle.Render(b.Title))
	fmt.Fprintf(&text, "  Author:    %s\n", b.Author)
	fmt.Fprintf(&text, "  Category:  %s\n", b.Category)
	if b.Description != nil {
		fmt.Fprintf(&text, "  About:     %s\n", *b.Description)
	}
	if b.Publisher != nil {
		fmt.Fprintf(&text, "  Publisher: %s\n", *b.Publisher)
	}
	if b.ISBN != nil {
		fmt.Fprintf(&text, "  ISBN:      %s\n", *b.ISBN)
	}
	if b.PageCount != nil {
		fmt.Fprintf(&text, "  Pages:     %d\n", *b.PageCount)
	}
	if b.Rating != nil {
		fmt.Fprintf(&text, "  Rating:    %.1f\n", *b.Rating)
	}
	if cover != "" {
		fmt.Fprintf(&text, "  Cover:     %s\n", cover)
	}
	fmt.Fprintf(&text, "  Favorite:  %t\n", b.IsFavorite)
	fmt.Fprintf(&text, "  Offline:   %t\n", b.IsDownloaded)
	fmt.Fprint(w, text.String())
}

func printUsers(w io.Writer, users []models.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No users found."))
		return
	}

	t := newTable("ID", "Name", "Email", "Linked")
	for _, u := range users {
		t.Row(strconv.FormatInt(u.ID, 10), u.FullName(), u.Email, marker(u.ProviderID != "", "yes"))
	}
	fmt.Fprintln(w, t.String())
}

func printBookstores(w io.Writer, stores []models.BookstoreLocation) {
	if len(stores) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No bookstores found."))
		return
	}

	t := newTable("Name", "Address", "Location")
	for _, s := range stores {
		t.Row(s.Name, s.Address, fmt.Sprintf("%.4f, %.4f", s.Latitude, s.Longitude))
	}
	fmt.Fprintln(w, t.String())
}

func printStats(w io.Writer, kind string, stats []models.BookStat) {
	if len(stats) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No "+kind+" activity recorded yet."))
		return
	}

	t := newTable("#", "Title", "Count")
	for i, s := range stats {
		t.Row(strconv.Itoa(i+1), truncate(s.Title, maxTitleWidth), strconv.Itoa(s.Count))
	}
	fmt.Fprintln(w, t.String())
}

// report prints the outcome of a container operation and turns an error
// status into a command error
func report(w io.Writer, status viewstate.Status, success string) error {
	if status.IsError() {
		return errors.New(status.Message)
	}
	fmt.Fprintln(w, successStyle.Render(success))
	return nil
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("Error: "+err.Error()))
}
