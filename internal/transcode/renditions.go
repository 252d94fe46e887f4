package transcode

import (
	"path"
	"strings"

	"github.com/smartmedia/aws-pipeline/internal/events"
)

// Canonical rendition names. After a transcode completes, the chosen video
// and audio renditions are copied to these fixed keys so every downstream
// capability addresses the media independent of preset ids.
const (
	canonicalVideoName = "video.mp4"
	canonicalAudioName = "audio.mp3"
)

// CanonicalVideoKey returns the fixed key the analysis rendition lives at.
func CanonicalVideoKey(objectKey string) string {
	return path.Join(objectKey, "conversions", canonicalVideoName)
}

// CanonicalAudioKey returns the fixed key the transcription rendition lives at.
func CanonicalAudioKey(objectKey string) string {
	return path.Join(objectKey, "conversions", canonicalAudioName)
}

var audioExtensions = []string{".mp3", ".wav", ".flac"}

// FindVideoRendition picks the completed MP4 video output of a transcode
// job, returning its key relative to the job's output prefix. ok is false
// when the job produced no usable video rendition.
func FindVideoRendition(outputs []events.TranscodeOutput) (string, bool) {
	for _, out := range outputs {
		if !completed(out) {
			continue
		}
		if strings.HasSuffix(out.Key, ".mp4") {
			return out.Key, true
		}
	}
	return "", false
}

// FindAudioRendition picks the completed audio output of a transcode job.
func FindAudioRendition(outputs []events.TranscodeOutput) (string, bool) {
	for _, out := range outputs {
		if !completed(out) {
			continue
		}
		for _, ext := range audioExtensions {
			if strings.HasSuffix(out.Key, ext) {
				return out.Key, true
			}
		}
	}
	return "", false
}

func completed(out events.TranscodeOutput) bool {
	// Per-output status is "Complete"; an absent status means the
	// notification predates per-output reporting, so trust the job state.
	return out.Status == "" || out.Status == "Complete"
}
