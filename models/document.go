package models

// DocumentPage is one page of extracted text, used for evidence-to-page
// attribution. Pages are ordered by PageNumber ascending, contiguous from 1.
type DocumentPage struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// DocumentMetadata carries the identifying metadata of a processed document.
type DocumentMetadata struct {
	Filename  string `json:"filename"`
	FilePath  string `json:"file_path,omitempty"`
	FileSize  int64  `json:"file_size,omitempty"`
	PageCount int    `json:"page_count"`
}

// Document is a client document after text extraction. The extraction itself
// happens upstream; the pipeline only consumes the resulting text and pages.
// Document identity is the filename.
type Document struct {
	Metadata DocumentMetadata `json:"metadata"`
	FullText string           `json:"full_text"`
	Pages    []DocumentPage   `json:"pages"`
}

// Name returns the document's identity, falling back to a placeholder when
// the extractor did not record a filename.
func (d *Document) Name() string {
	if d.Metadata.Filename == "" {
		return "Unknown Document"
	}
	return d.Metadata.Filename
}
