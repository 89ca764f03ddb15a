package models

// JobStatus is the lifecycle state of a flashcard generation job. The
// processing pipeline advances a job through the intermediate stages;
// this client only ever creates jobs as StatusQueued.
type JobStatus string

const (
	StatusQueued              JobStatus = "Queued"
	StatusHighlightExtraction JobStatus = "Highlight Extraction"
	StatusSegmentation        JobStatus = "Segmentation"
	StatusChunking            JobStatus = "Chunking"
	StatusVectors             JobStatus = "Vectors"
	StatusTopicBounds         JobStatus = "Topic Bounds"
	StatusTopicSummaries      JobStatus = "Topic Summaries"
	StatusDocumentSummary     JobStatus = "Document Summary"
	StatusFinished            JobStatus = "Finished"
	StatusError               JobStatus = "Error"
)

// Terminal reports whether the pipeline is done with the job.
func (s JobStatus) Terminal() bool {
	return s == StatusFinished || s == StatusError
}

// SourceDocument is an uploaded PDF record.
type SourceDocument struct {
	ID               string   `json:"id"`
	User             string   `json:"user"`
	OriginalFilename string   `json:"original_filename"`
	FileSize         int64    `json:"file_size"`
	Created          DateTime `json:"created"`
}

// Job is one flashcard generation request. SourcePDF references the
// uploaded document; Expand carries the joined record when the read
// requested it.
type Job struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Status    JobStatus `json:"status"`
	SourcePDF string    `json:"source_pdf"`
	Created   DateTime  `json:"created"`
	Updated   DateTime  `json:"updated"`
	Expand    JobExpand `json:"expand"`
}

type JobExpand struct {
	SourcePDF *SourceDocument `json:"source_pdf"`
}

// PDFName returns the display name of the job's source document, or
// "N/A" when the expanded reference is absent.
func (j Job) PDFName() string {
	if j.Expand.SourcePDF == nil {
		return "N/A"
	}
	if j.Expand.SourcePDF.OriginalFilename == "" {
		return "Unnamed PDF"
	}
	return j.Expand.SourcePDF.OriginalFilename
}

// HasExpandedPDF reports whether the joined source document came along
// with the record. Subscription event payloads usually lack it.
func (j Job) HasExpandedPDF() bool {
	return j.Expand.SourcePDF != nil
}

// CardsReady reports whether the job's flashcards can be viewed.
func (j Job) CardsReady() bool {
	return j.Status == StatusFinished
}
