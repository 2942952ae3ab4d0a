package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/MikeSquared-Agency/gradecalc/internal/catalog"
	"github.com/MikeSquared-Agency/gradecalc/internal/grading"
)

const title = "UEL 2021 Final Year Results Calculator"

// Session is the terminal calculator: one entry set, edited one field at a
// time, with a full re-render after every edit.
type Session struct {
	catalog *catalog.Catalog
	entries []grading.ScoreEntry
	out     io.Writer
}

func NewSession(cat *catalog.Catalog, out io.Writer) *Session {
	return &Session{catalog: cat, out: out}
}

// Entries returns the current entry set.
func (s *Session) Entries() []grading.ScoreEntry {
	return s.entries
}

// Set commits a value for the n-th field (1-based, catalog order).
func (s *Session) Set(n int, value string) error {
	fields := s.catalog.Fields()
	if n < 1 || n > len(fields) {
		return fmt.Errorf("choice %d out of range 1-%d", n, len(fields))
	}
	f := fields[n-1]
	s.entries = grading.Upsert(s.entries, grading.ScoreEntry{
		Course:        f.Course.Code,
		Title:         f.Component.Title,
		WeightPercent: f.Component.WeightPercent,
		Value:         value,
	})
	return nil
}

// Run reads choices from in until the user quits, input ends or ctx is done.
// Cancelling ctx returns at once, even while waiting for a line.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	lines, errc := readLines(ctx, in)
	fields := s.catalog.Fields()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		s.Render()

		fmt.Fprintf(s.out, "\nSelect a component (1-%d), or q to quit: ", len(fields))
		line, ok, err := nextLine(ctx, lines, errc)
		if !ok {
			return err
		}
		choice := strings.TrimSpace(line)
		if choice == "q" || choice == "quit" {
			color.New(color.FgGreen).Fprintln(s.out, "Goodbye!")
			return nil
		}
		n, err := strconv.Atoi(choice)
		if err != nil || n < 1 || n > len(fields) {
			color.New(color.FgRed).Fprintln(s.out, "Invalid choice. Please try again.")
			continue
		}

		fmt.Fprintf(s.out, "Enter percentage for %s: ", fields[n-1].Component.Title)
		line, ok, err = nextLine(ctx, lines, errc)
		if !ok {
			return err
		}
		if err := s.Set(n, strings.TrimRight(line, "\r")); err != nil {
			return err
		}
	}
}

// readLines scans in on its own goroutine. lines is closed at end of input,
// after the scan error (possibly nil) has been sent on errc.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
		close(lines)
	}()
	return lines, errc
}

// nextLine waits for a line. ok is false once input ends or ctx is done.
func nextLine(ctx context.Context, lines <-chan string, errc <-chan error) (string, bool, error) {
	select {
	case <-ctx.Done():
		return "", false, nil
	case line, ok := <-lines:
		if !ok {
			return "", false, <-errc
		}
		return line, true, nil
	}
}

// Render writes the component table and the three result figures.
func (s *Session) Render() {
	res := grading.Compute(s.entries, s.catalog)

	color.New(color.FgCyan, color.Bold).Fprintf(s.out, "\n=== %s ===\n", title)

	table := tablewriter.NewWriter(s.out)
	table.SetHeader([]string{"#", "Course", "Component", "Score", "Result"})
	table.SetAutoWrapText(false)

	n := 1
	for _, course := range s.catalog.Courses() {
		cr, ok := res.CourseResult(course.Code)
		result := grading.FormatCourseResult(cr, ok)
		for i, comp := range course.Components {
			label := ""
			courseResult := ""
			if i == 0 {
				label = course.Code + " - " + course.Name
				courseResult = result
			}
			table.Append([]string{
				strconv.Itoa(n),
				label,
				comp.Title,
				s.value(course.Code, comp.Title),
				courseResult,
			})
			n++
		}
	}
	table.Render()

	color.New(color.FgYellow).Fprintln(s.out, "\nResults")
	summary := tablewriter.NewWriter(s.out)
	summary.SetHeader([]string{"Overall Result", "Best 90 Credits", "Worst 30 Credits"})
	summary.Append([]string{
		grading.FormatFigure(res.Overall),
		grading.FormatFigure(res.Best90),
		grading.FormatFigure(res.Worst30),
	})
	summary.Render()
}

func (s *Session) value(course, title string) string {
	for _, e := range s.entries {
		if e.Course == course && e.Title == title {
			return e.Value
		}
	}
	return ""
}
