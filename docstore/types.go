package docstore

// Publication is one full statistical bulletin as produced by the
// PDF-to-JSON conversion step.
type Publication struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	ReleaseDate  string    `json:"release_date"`
	ModifiedDate string    `json:"modified_date,omitempty"`
	URL          string    `json:"url"`
	PageURL      string    `json:"page_url,omitempty"`
	Latest       bool      `json:"latest"`
	Theme        string    `json:"theme,omitempty"`
	Content      []Section `json:"content"`
}

// Section is one content block of a Publication, historically a PDF page.
type Section struct {
	PageNumber int    `json:"page_number"`
	PageText   string `json:"page_text"`
	PageURL    string `json:"page_url,omitempty"`
}

// SectionRecord is a section stored as its own JSON file with the parent
// publication's metadata duplicated onto it. The duplication exists so the
// record is self-describing once it has been embedded; keeping the `latest`
// flag consistent with the parent is the propagator's job.
type SectionRecord struct {
	PageNumber   int    `json:"page_number"`
	PageText     string `json:"page_text"`
	PageURL      string `json:"page_url,omitempty"`
	ID           string `json:"id"`
	Title        string `json:"title"`
	ReleaseDate  string `json:"release_date"`
	ModifiedDate string `json:"modified_date,omitempty"`
	URL          string `json:"url"`
	Latest       bool   `json:"latest"`
	Theme        string `json:"theme,omitempty"`
}
