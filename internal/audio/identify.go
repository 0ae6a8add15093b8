package audio

import (
	"io"

	"github.com/dhowden/tag"
)

// extensionFromFileType returns the file extension for tag.FileType.
func extensionFromFileType(ft tag.FileType) string {
	switch ft {
	case tag.MP3:
		return "mp3"
	case tag.OGG:
		return "ogg"
	case tag.M4A, tag.ALAC:
		return "m4a"
	case tag.FLAC:
		return "flac"
	default:
		return ""
	}
}

// Identify sniffs the audio container from the stream and returns its file
// extension. Returns "" when the format could not be identified (WAV streams
// in particular carry no tag metadata and fall through to the caller's
// filename-based default).
func Identify(r io.ReadSeeker) string {
	_, fileType, err := tag.Identify(r)
	if err != nil || fileType == tag.UnknownFileType {
		return ""
	}
	return extensionFromFileType(fileType)
}
