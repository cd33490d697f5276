package provider

import "strings"

// Format describes one stream encoding offered by the provider for a
// catalog reference.
type Format struct {
	Itag          int    `json:"itag"`
	MimeType      string `json:"mimeType"`
	Bitrate       int    `json:"bitrate"`
	AudioQuality  string `json:"audioQuality,omitempty"`
	AudioChannels int    `json:"audioChannels,omitempty"`
	ContentLength int64  `json:"contentLength,omitempty"`
	URL           string `json:"url"`
}

// IsAudioOnly reports whether the format carries audio without video.
func (f Format) IsAudioOnly() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(f.MimeType)), "audio/")
}

// BestAudio selects the highest-bitrate audio-only format. The second return
// is false when no audio-only encoding exists.
func BestAudio(formats []Format) (Format, bool) {
	var best Format
	found := false
	for _, f := range formats {
		if !f.IsAudioOnly() {
			continue
		}
		if !found || f.Bitrate > best.Bitrate {
			best = f
			found = true
		}
	}
	return best, found
}
