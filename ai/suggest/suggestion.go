// Package suggest turns free-form mood descriptions into structured music
// suggestions by prompting an LLM and parsing its bullet-list reply.
package suggest

import (
	"regexp"
	"strings"
)

// MusicSuggestion is one recommendation parsed from an LLM reply.
type MusicSuggestion struct {
	Genre       string   `json:"genre"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album,omitempty"`
	AlbumArtist string   `json:"album_artist,omitempty"`
	Note        string   `json:"note,omitempty"`
}

// String renders the suggestion in the same bullet format the prompts ask
// the model to produce.
func (s MusicSuggestion) String() string {
	var b strings.Builder
	b.WriteString("- Genre: " + s.Genre + "\n")
	if len(s.Artists) > 0 {
		b.WriteString("  Artists: " + strings.Join(s.Artists, ", ") + "\n")
	}
	switch {
	case s.Album != "" && s.AlbumArtist != "":
		b.WriteString("  Album: " + s.Album + " by " + s.AlbumArtist + "\n")
	case s.Album != "":
		b.WriteString("  Album: " + s.Album + "\n")
	}
	if s.Note != "" {
		b.WriteString("  Note: " + s.Note + "\n")
	}
	return b.String()
}

var (
	blockStartRe   = regexp.MustCompile(`(?m)^\s*[\-\*\x{2022}]\s*Genre:`)
	artistsSplitRe = regexp.MustCompile(`,| and `)
)

// Parse extracts suggestions from a raw LLM reply. Each suggestion starts
// with a bulleted "Genre:" line; blocks without a genre are dropped. Models
// vary the bullet character and sometimes write "Artist:" singular, so the
// parser tolerates both.
func Parse(raw string) []MusicSuggestion {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	starts := blockStartRe.FindAllStringIndex(raw, -1)
	if len(starts) == 0 {
		return nil
	}

	var out []MusicSuggestion
	for i, loc := range starts {
		end := len(raw)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		s := parseBlock(raw[loc[0]:end])
		if s.Genre != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseBlock(block string) MusicSuggestion {
	var s MusicSuggestion
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := splitField(line)
		if !ok {
			continue
		}
		switch key {
		case "Genre":
			s.Genre = value
		case "Artists", "Artist":
			for _, a := range artistsSplitRe.Split(value, -1) {
				if a = strings.TrimSpace(a); a != "" {
					s.Artists = append(s.Artists, a)
				}
			}
		case "Album":
			if title, artist, found := strings.Cut(value, " by "); found {
				s.Album = strings.TrimSpace(title)
				s.AlbumArtist = strings.TrimSpace(artist)
			} else {
				s.Album = value
			}
		case "Note":
			s.Note = value
		}
	}
	return s
}

func splitField(line string) (key, value string, ok bool) {
	line = strings.TrimLeft(line, "-*• \t")
	key, value, ok = strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), true
}
