package note

// AudioPayload is one uploaded audio file: raw bytes plus the content type
// declared by the client. It lives only for the duration of a single request.
type AudioPayload struct {
	Data        []byte
	ContentType string
}

// Size returns the payload size in bytes
func (p AudioPayload) Size() int {
	return len(p.Data)
}

// Transcript is plain-text speech content together with where it came from
// (a transcription provider name, or "youtube:<video_id>" for fetched ones).
type Transcript struct {
	Text   string
	Source string
}

// Content holds the generated fields of a note, before assembly
type Content struct {
	Emoji   string `json:"emoji"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// StructuredNote is the four-field result returned to callers
type StructuredNote struct {
	Emoji         string `json:"emoji"`
	Title         string `json:"title"`
	Transcription string `json:"transcription"`
	Summary       string `json:"summary"`
}

// Validate reports whether every field of the note is populated
func (n *StructuredNote) Validate() error {
	switch {
	case n.Emoji == "":
		return &Error{Kind: KindIncompleteResult, Detail: "assembled note is missing emoji"}
	case n.Title == "":
		return &Error{Kind: KindIncompleteResult, Detail: "assembled note is missing title"}
	case n.Transcription == "":
		return &Error{Kind: KindIncompleteResult, Detail: "assembled note is missing transcription"}
	case n.Summary == "":
		return &Error{Kind: KindIncompleteResult, Detail: "assembled note is missing summary"}
	}
	return nil
}
