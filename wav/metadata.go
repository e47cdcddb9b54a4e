package wav

import (
	"fmt"
	"os/exec"

	"github.com/buger/jsonparser"
)

// Format holds the subset of ffprobe's format block this package
// cares about: the free-form tag map (title, artist, album, ...).
type Format struct {
	Tags map[string]string
}

// Metadata is the result of probing a media file for container-level
// tags.
type Metadata struct {
	Format Format
}

// GetMetadata runs ffprobe against inputPath and extracts its
// format-level tags (title, artist, ...), used to pre-fill a library
// entry's title/author when the caller doesn't supply them.
func GetMetadata(inputPath string) (*Metadata, error) {
	cmd := exec.Command(
		"ffprobe",
		"-v", "quiet",
		"-show_entries", "format_tags",
		"-of", "json",
		inputPath,
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe metadata query failed: %v", err)
	}

	tags := map[string]string{}
	tagsData, _, _, err := jsonparser.Get(out, "format", "tags")
	if err == nil {
		_ = jsonparser.ObjectEach(tagsData, func(key, value []byte, dataType jsonparser.ValueType, offset int) error {
			tags[string(key)] = string(value)
			return nil
		})
	}

	return &Metadata{Format: Format{Tags: tags}}, nil
}
