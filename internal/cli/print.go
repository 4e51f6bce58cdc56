package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/raphaelgruber/nextwatch/internal/client"
	"github.com/raphaelgruber/nextwatch/internal/models"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRecommendation(w io.Writer, theme Theme, rec *client.Recommendation) {
	if len(rec.Recommendations) == 0 {
		fmt.Fprintln(w, theme.hintStyle().Render("No movies matched that request."))
	} else {
		fmt.Fprintf(w, "%s\n\n", theme.completedStyle().Render(fmt.Sprintf("%d picks for %q", len(rec.Recommendations), rec.Query)))
		printMovies(w, theme, rec.Recommendations)
	}
	if rec.RecommendationID != "" {
		fmt.Fprintln(w, theme.hintStyle().Render("saved as "+rec.RecommendationID))
	}
}

func printRecord(w io.Writer, theme Theme, rec *models.RecommendationRecord) {
	fmt.Fprintf(w, "%s\n", theme.titleStyle().Render(rec.UserQuery))
	fmt.Fprintln(w, theme.hintStyle().Render(fmt.Sprintf("%s · %s · %s", rec.ID, rec.UserID, formatTime(rec.CreatedAt))))
	fmt.Fprintln(w)
	if len(rec.Recommendations) == 0 {
		fmt.Fprintln(w, theme.hintStyle().Render("No movies in this record."))
		return
	}
	printMovies(w, theme, rec.Recommendations)
}

func printMovies(w io.Writer, theme Theme, movies []models.Movie) {
	for i, m := range movies {
		fmt.Fprintf(w, "%d. %s\n", i+1, theme.titleStyle().Render(movieHeading(m)))
		if meta := movieMeta(m); meta != "" {
			fmt.Fprintf(w, "   %s\n", theme.statusStyle().Render(meta))
		}
		if m.Description != "" {
			fmt.Fprintf(w, "   %s\n", m.Description)
		}
		if m.WhyRecommended != "" {
			fmt.Fprintf(w, "   %s\n", theme.hintStyle().Render("Why: "+m.WhyRecommended))
		}
		if verbose {
			if len(m.Cast) > 0 {
				fmt.Fprintf(w, "   Cast: %s\n", strings.Join(m.Cast, ", "))
			}
			if m.PosterURL != "" {
				fmt.Fprintf(w, "   Poster: %s\n", m.PosterURL)
			}
		}
		fmt.Fprintln(w)
	}
}

func movieHeading(m models.Movie) string {
	title := m.Title
	if title == "" {
		title = "(untitled)"
	}
	if m.Year > 0 {
		return fmt.Sprintf("%s (%d)", title, m.Year)
	}
	return title
}

// movieMeta joins the optional genre, director and rating fields.
func movieMeta(m models.Movie) string {
	var parts []string
	if m.Genre != "" {
		parts = append(parts, m.Genre)
	}
	if m.Director != "" {
		parts = append(parts, "dir. "+m.Director)
	}
	if m.Rating != "" {
		parts = append(parts, "rated "+m.Rating)
	}
	return strings.Join(parts, " · ")
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}
