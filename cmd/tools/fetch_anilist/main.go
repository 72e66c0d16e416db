// fetch_anilist pulls popular manga metadata from the AniList GraphQL API
// and writes a seed JSON file the server imports at boot.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"html"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"mangavault/pkg/database"
)

const endpoint = "https://graphql.anilist.co"

var tagRe = regexp.MustCompile(`<[^>]+>`)

type gqlReq struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlResp struct {
	Data struct {
		Page struct {
			Media []struct {
				Title struct {
					Romaji  string `json:"romaji"`
					English string `json:"english"`
					Native  string `json:"native"`
				} `json:"title"`
				CoverImage struct {
					Large string `json:"large"`
				} `json:"coverImage"`
				Genres      []string `json:"genres"`
				Tags        []struct {
					Name string `json:"name"`
				} `json:"tags"`
				Status      string  `json:"status"`
				Chapters    *int    `json:"chapters"`
				Description *string `json:"description"`
				Staff struct {
					Edges []staffEdge `json:"edges"`
				} `json:"staff"`
			} `json:"media"`
		} `json:"Page"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

const query = `
query ($page: Int, $perPage: Int) {
  Page(page: $page, perPage: $perPage) {
    media(type: MANGA, sort: POPULARITY_DESC) {
      title { romaji english native }
      coverImage { large }
      genres
      tags { name }
      status
      chapters
      description
      staff(perPage: 4) {
        edges { role node { name { full } } }
      }
    }
  }
}`

func main() {
	outPath := flag.String("out", "data/seed.json", "output json path")
	n := flag.Int("n", 40, "number of manga to fetch")
	page := flag.Int("page", 1, "page number")
	flag.Parse()

	client := resty.New().
		SetRetryCount(3).
		SetRetryWaitTime(3 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusTooManyRequests
		})

	var parsed gqlResp
	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(gqlReq{
			Query: query,
			Variables: map[string]any{
				"page":    *page,
				"perPage": *n,
			},
		}).
		SetResult(&parsed).
		Post(endpoint)
	if err != nil {
		fatal("anilist request: %v", err)
	}
	if resp.StatusCode() >= 300 {
		fatal("anilist http status %s: %s", resp.Status(), resp.String())
	}
	if len(parsed.Errors) > 0 {
		fatal("anilist gql error: %s", parsed.Errors[0].Message)
	}

	out := make([]database.SeedEntry, 0, len(parsed.Data.Page.Media))
	for _, m := range parsed.Data.Page.Media {
		entry := database.SeedEntry{
			Title:      pickTitle(m.Title.Romaji, m.Title.English, m.Title.Native),
			CoverImage: m.CoverImage.Large,
			Genres:     m.Genres,
			Status:     mapStatus(m.Status),
		}
		for _, t := range m.Tags {
			entry.Tags = append(entry.Tags, t.Name)
		}
		entry.Author, entry.Artist = pickStaff(m.Staff.Edges)
		if m.Chapters != nil {
			entry.TotalChapters = *m.Chapters
		}
		if m.Description != nil {
			entry.Description = cleanDesc(*m.Description)
		}
		out = append(out, entry)
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		fatal("create output dir: %v", err)
	}
	j, _ := json.MarshalIndent(out, "", "  ")
	if err := os.WriteFile(*outPath, j, 0o644); err != nil {
		fatal("write output: %v", err)
	}
	fmt.Printf("Wrote %d manga -> %s\n", len(out), *outPath)
}

func pickTitle(romaji, english, native string) string {
	if strings.TrimSpace(english) != "" {
		return english
	}
	if strings.TrimSpace(romaji) != "" {
		return romaji
	}
	return native
}

type staffEdge struct {
	Role string `json:"role"`
	Node struct {
		Name struct {
			Full string `json:"full"`
		} `json:"name"`
	} `json:"node"`
}

// pickStaff splits AniList staff edges into author (story) and artist
// (art) when the roles distinguish them.
func pickStaff(edges []staffEdge) (author, artist string) {
	for _, e := range edges {
		name := strings.TrimSpace(e.Node.Name.Full)
		if name == "" {
			continue
		}
		role := strings.ToLower(e.Role)
		switch {
		case strings.Contains(role, "story") && author == "":
			author = name
		case strings.Contains(role, "art") && artist == "":
			artist = name
		case author == "":
			author = name
		}
	}
	if author == "" {
		author = "Unknown"
	}
	return author, artist
}

func mapStatus(anilist string) string {
	switch anilist {
	case "FINISHED":
		return "completed"
	case "RELEASING":
		return "ongoing"
	case "HIATUS":
		return "hiatus"
	case "CANCELLED":
		return "cancelled"
	default:
		return "ongoing"
	}
}

func cleanDesc(s string) string {
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "<br>", "\n")
	s = strings.ReplaceAll(s, "<br/>", "\n")
	s = strings.ReplaceAll(s, "<br />", "\n")
	s = tagRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if len(s) > 1000 {
		s = s[:1000] + "..."
	}
	return s
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
