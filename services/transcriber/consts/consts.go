package consts

const (
	// Accepted upload containers
	MimeMP4      = "video/mp4"
	MimeMatroska = "video/x-matroska"

	// Audio artifact
	ExtensionMP3 = ".mp3"

	// Object store
	CanonicalURIScheme = "gs://"

	// Multipart field carrying the upload
	VideoFormField = "video"

	// Default settings
	DefaultSampleRate = 16000
	MaxUploadSize     = 50000 * 1024 // 50000 KiB
)

// AcceptedVideoTypes lists the MIME types the pipeline ingests.
var AcceptedVideoTypes = []string{MimeMP4, MimeMatroska}

// SummaryInstruction is prepended to every transcript sent to the summarizer.
const SummaryInstruction = "Summarize the following text **strictly in Indonesian**. " +
	"The summary must be fully in Indonesian, using natural and fluent language as if explaining to a native speaker. " +
	"Do not include any introductory labels or language indicators. " +
	"The summary should be concise, clear, and easy to understand, while keeping the key points intact:\n\n"
