// Package recordings stores audio and video recordings under a person's
// record directory and tracks their transcription in a YAML sidecar:
//
//	<person>/recordings/<audio|video>/interview.mp4
//	<person>/recordings/<audio|video>/interview.yaml
//	<person>/recordings/<audio|video>/interview.transcript.txt
package recordings

import (
	"path/filepath"
	"strings"

	"github.com/entrhq/estate/pkg/people"
)

// IngestStatus tracks a recording through transcription.
type IngestStatus string

const (
	StatusPendingTranscription IngestStatus = "pending_transcription"
	StatusTranscribed          IngestStatus = "transcribed"
	StatusTranscriptionFailed  IngestStatus = "transcription_failed"
)

const (
	// DirName is the recordings directory inside a person directory.
	DirName = people.MediaDirName

	KindAudio = "audio"
	KindVideo = "video"

	sidecarExt    = ".yaml"
	transcriptExt = ".transcript.txt"
)

// Recording is the sidecar document stored next to a media file.
type Recording struct {
	OriginalFilename string       `yaml:"original_filename" json:"original_filename"`
	ContentType      string       `yaml:"content_type" json:"content_type"`
	IngestStatus     IngestStatus `yaml:"ingest_status" json:"ingest_status"`
	ErrorMessage     string       `yaml:"error_message" json:"error_message,omitempty"`
	TranscriptPath   string       `yaml:"transcript_path" json:"transcript_path,omitempty"`
}

// KindFor picks the recordings subdirectory for a MIME type. Anything that
// is not clearly audio is filed as video.
func KindFor(contentType string) string {
	ct := strings.ToLower(contentType)
	if !strings.Contains(ct, "video") && strings.Contains(ct, "audio") {
		return KindAudio
	}
	return KindVideo
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// SidecarName returns the sidecar file name for a media file name:
// interview.mp4 becomes interview.yaml.
func SidecarName(mediaName string) string {
	return stem(mediaName) + sidecarExt
}

// TranscriptName returns the transcript file name for a media file name.
func TranscriptName(mediaName string) string {
	return stem(mediaName) + transcriptExt
}
