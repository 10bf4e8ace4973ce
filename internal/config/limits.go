package config

const (
	// MaxTitleLength is the maximum length for vision titles and household names.
	MaxTitleLength = 255

	// MaxVersionNotesLength is the maximum length for version notes.
	MaxVersionNotesLength = 2000

	// MaxTextFieldLength is the maximum length of a single text field.
	// Merged household visions hold two members' answers, so this is
	// generous.
	MaxTextFieldLength = 50000

	// MaxTranscriptLength is the maximum length of a recording transcript.
	MaxTranscriptLength = 100000

	// MaxRecordingsPerDocument caps the recording ledger of one document.
	MaxRecordingsPerDocument = 200
)
