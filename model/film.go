package model

// Film is the edge connecting two actors who both appear in its cast
type Film struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	PosterURL string `json:"poster_url,omitempty"`
}

// ResolvedLink is the first shared film found between two actors.
// Only existence matters for gameplay, so it never lists every shared film.
type ResolvedLink struct {
	FilmID    string `json:"film_id"`
	Title     string `json:"title"`
	PosterURL string `json:"poster_url,omitempty"`
}

// Film returns the link as a film value
func (l *ResolvedLink) Film() Film {
	return Film{ID: l.FilmID, Title: l.Title, PosterURL: l.PosterURL}
}
