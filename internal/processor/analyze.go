package processor

import (
	"errors"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// Metadata is what a source file carries that the converted copy drops.
type Metadata struct {
	Tags         int // EXIF
	TextChunks   int // PNG text and time chunks
	HasGPS       bool
	HasDevice    bool
	HasTimestamp bool
	Orientation  int
}

// Dropped lists the kinds of identifying metadata found.
func (m Metadata) Dropped() []string {
	var out []string
	if m.HasGPS {
		out = append(out, "location")
	}
	if m.HasDevice {
		out = append(out, "device")
	}
	if m.HasTimestamp {
		out = append(out, "timestamp")
	}
	return out
}

// Empty reports whether nothing would be dropped.
func (m Metadata) Empty() bool {
	return m.Tags == 0 && m.TextChunks == 0
}

func analyzeMetadata(data []byte) (Metadata, error) {
	md := Metadata{Orientation: 1}
	if err := scanPNGText(data, &md); err != nil {
		return md, err
	}

	raw, err := exif.SearchAndExtractExif(data)
	if err != nil {
		if errorsIsNoExif(err) {
			return md, nil
		}
		return md, err
	}

	tags, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil && len(tags) == 0 {
		return md, err
	}

	for _, tag := range tags {
		md.Tags++
		name := tag.TagName

		if strings.HasPrefix(name, "GPS") || strings.Contains(tag.IfdPath, "GPS") {
			md.HasGPS = true
		}
		if name == "Make" || name == "Model" || strings.Contains(strings.ToLower(name), "serial") {
			md.HasDevice = true
		}
		if name == "DateTimeOriginal" || name == "DateTimeDigitized" || name == "DateTime" {
			md.HasTimestamp = true
		}
		if name == "Orientation" && tag.IfdPath == "IFD" {
			if v, ok := tag.Value.([]uint16); ok && len(v) > 0 && v[0] >= 1 && v[0] <= 8 {
				md.Orientation = int(v[0])
			}
		}
	}

	return md, nil
}

func errorsIsNoExif(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exif.ErrNoExif) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no exif")
}
