package domain

import "strings"

// untitledFallback is shown when neither an embedded title nor a name exists.
const untitledFallback = "Cerita Tanpa Judul"

// DisplayInfo is the rendering view of a story: a title and the description
// with any embedded title prefix removed.
type DisplayInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ExtractDisplayInfo splits an embedded bold title out of the description.
// A description of the form "**Judul**\nbody" yields title "Judul" and the
// remaining body; otherwise the story name is used, falling back to a fixed
// placeholder title.
func ExtractDisplayInfo(s *StoryRecord) DisplayInfo {
	title := untitledFallback
	description := s.Description

	if strings.HasPrefix(s.Description, "**") && strings.Contains(s.Description, "**\n") {
		parts := strings.SplitN(s.Description, "**\n", 2)
		if len(parts) == 2 {
			title = strings.TrimSpace(strings.Replace(parts[0], "**", "", 1))
			description = strings.TrimSpace(parts[1])
		}
	}

	if title == untitledFallback && s.Name != "" {
		title = s.Name
	}

	return DisplayInfo{Title: title, Description: description}
}
