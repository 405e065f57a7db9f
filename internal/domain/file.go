package domain

// Comment is one append-only note on a shared file. Comments are never
// edited or deleted.
type Comment struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// FileMeta describes an uploaded file. The id is server-assigned at upload
// time; the URL points at the static uploads route.
type FileMeta struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	URL      string    `json:"url"`
	Comments []Comment `json:"comments"`
}
