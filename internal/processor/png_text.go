package processor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
)

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

var errTruncatedPNG = errors.New("truncated PNG chunk")

// scanPNGText records textual metadata chunks (tEXt, zTXt, iTXt, tIME) of
// a PNG into md. Non-PNG data is ignored.
func scanPNGText(data []byte, md *Metadata) error {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil
	}

	rest := data[len(pngSignature):]
	for len(rest) >= 8 {
		length := int(binary.BigEndian.Uint32(rest[:4]))
		name := string(rest[4:8])
		if length < 0 || len(rest) < 12+length {
			return errTruncatedPNG
		}
		body := rest[8 : 8+length]

		switch name {
		case "tEXt", "zTXt", "iTXt":
			md.TextChunks++
			applyPNGTextKey(md, pngTextKey(body))
		case "tIME":
			md.TextChunks++
			md.HasTimestamp = true
		case "IEND":
			return nil
		}
		rest = rest[12+length:]
	}
	return nil
}

func pngTextKey(body []byte) string {
	idx := bytes.IndexByte(body, 0)
	if idx <= 0 {
		return ""
	}
	return string(body[:idx])
}

func applyPNGTextKey(md *Metadata, key string) {
	lower := strings.ToLower(key)
	if strings.Contains(lower, "gps") || strings.Contains(lower, "latitude") || strings.Contains(lower, "longitude") {
		md.HasGPS = true
	}
	if strings.Contains(lower, "model") || strings.Contains(lower, "make") {
		md.HasDevice = true
	}
	if strings.Contains(lower, "date") || strings.Contains(lower, "time") {
		md.HasTimestamp = true
	}
}
