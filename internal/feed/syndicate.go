package feed

import (
	"fmt"
	"strings"

	"github.com/gorilla/feeds"
)

// Channel describes the syndication channel a feed is published under.
type Channel struct {
	Title       string
	Link        string // base URL that lesson links are built from
	Description string
	Author      string
}

// Syndicate converts a composed feed into a gorilla/feeds document, one
// item per entry in priority order.
func Syndicate(r *Result, ch Channel) *feeds.Feed {
	base := strings.TrimRight(ch.Link, "/")
	f := &feeds.Feed{
		Title:       ch.Title,
		Link:        &feeds.Link{Href: base},
		Description: ch.Description,
		Created:     r.AsOf,
		Updated:     r.AsOf,
	}
	if ch.Author != "" {
		f.Author = &feeds.Author{Name: ch.Author}
	}

	for _, e := range r.AllEntries {
		f.Items = append(f.Items, &feeds.Item{
			Id:          e.Record.ID,
			Title:       itemTitle(e),
			Link:        &feeds.Link{Href: fmt.Sprintf("%s/lesson/%s", base, e.Record.ID)},
			Description: itemDescription(e),
			Created:     e.Record.NextDueAt,
		})
	}
	return f
}

// RenderAtom renders r as an Atom document.
func RenderAtom(r *Result, ch Channel) (string, error) {
	return Syndicate(r, ch).ToAtom()
}

// RenderRSS renders r as an RSS 2.0 document.
func RenderRSS(r *Result, ch Channel) (string, error) {
	return Syndicate(r, ch).ToRss()
}

func itemTitle(e Entry) string {
	switch {
	case e.DaysOverdue > 0:
		return fmt.Sprintf("[overdue %dd] %s", e.DaysOverdue, e.Record.Title)
	case e.Record.RepetitionCount > 0:
		return fmt.Sprintf("[review #%d] %s", e.Record.RepetitionCount, e.Record.Title)
	default:
		return fmt.Sprintf("[new] %s", e.Record.Title)
	}
}

func itemDescription(e Entry) string {
	parts := []string{e.TopicName}
	if e.Record.Module != "" {
		parts = append(parts, e.Record.Module)
	}
	parts = append(parts, fmt.Sprintf("%d min", e.Record.EstimatedMinutes))
	return strings.Join(parts, " · ")
}
