package imgutil

import (
	"path/filepath"
	"strings"
)

var extKinds = map[string]Kind{
	".jpg":  KindJPEG,
	".jpeg": KindJPEG,
	".png":  KindPNG,
	".webp": KindWEBP,
	".tiff": KindTIFF,
	".tif":  KindTIFF,
	".bmp":  KindBMP,
}

// KindFromExt maps a file extension (with or without the leading dot,
// any case) to a Kind.
func KindFromExt(ext string) Kind {
	ext = strings.ToLower(ext)
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	return extKinds[ext]
}

// KindFromPath is KindFromExt applied to the extension of path.
func KindFromPath(path string) Kind {
	return KindFromExt(filepath.Ext(path))
}

// IsSupported reports whether path has an input extension the converter accepts.
func IsSupported(path string) bool {
	return KindFromPath(path) != KindUnknown
}
