package models

import "time"

// MediaType of a recording
type MediaType string

const (
	MediaTypeAudio MediaType = "audio"
	MediaTypeVideo MediaType = "video"
)

// Recording is one entry of a document's recording ledger. Identity is the
// pair (URL, CreatedAt); URL may be empty for transcript-only captures.
type Recording struct {
	URL        string    `json:"url"`
	Transcript string    `json:"transcript"`
	Type       MediaType `json:"media_type"`
	Category   string    `json:"category"`
	CreatedAt  time.Time `json:"created_at"`
}

// SameAs reports whether r and other identify the same ledger entry
func (r Recording) SameAs(other Recording) bool {
	return r.URL == other.URL && r.CreatedAt.Equal(other.CreatedAt)
}

// RecordingPurpose controls what happens to the uploaded blob and transcript
type RecordingPurpose string

const (
	// PurposeQuick keeps only the transcript; the blob is discarded
	PurposeQuick RecordingPurpose = "quick"
	// PurposeTranscriptOnly keeps the blob alongside the transcript
	PurposeTranscriptOnly RecordingPurpose = "transcriptOnly"
	// PurposeWithFile keeps the blob and the transcript
	PurposeWithFile RecordingPurpose = "withFile"
	// PurposeAudioOnly keeps the blob without a transcript
	PurposeAudioOnly RecordingPurpose = "audioOnly"
)

// Valid reports whether p is a known purpose. The empty purpose is treated as withFile.
func (p RecordingPurpose) Valid() bool {
	switch p {
	case "", PurposeQuick, PurposeTranscriptOnly, PurposeWithFile, PurposeAudioOnly:
		return true
	}
	return false
}
