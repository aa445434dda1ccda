// internal/parser/detector.go
package parser

import (
	"bytes"
	"os"
)

type FileType string

const (
	FileTypeFIT        FileType = "fit"
	FileTypeSuuntoJSON FileType = "suunto-json"
	FileTypeGPX        FileType = "gpx"
	FileTypeUnknown    FileType = "unknown"
)

// sniffLen is how much of a file content detection looks at.
const sniffLen = 512

func DetectFileType(filepath string) (FileType, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return FileTypeUnknown, err
	}
	defer file.Close()

	header := make([]byte, sniffLen)
	n, err := file.Read(header)
	if err != nil && n == 0 {
		return FileTypeUnknown, err
	}

	return DetectFileTypeFromData(header[:n]), nil
}

func DetectFileTypeFromData(data []byte) FileType {
	// FIT header: bytes 8..12 carry the ".FIT" signature
	if len(data) >= 12 && bytes.Equal(data[8:12], []byte(".FIT")) {
		return FileTypeFIT
	}

	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(head, []byte("\xef\xbb\xbf")))

	if bytes.HasPrefix(trimmed, []byte("{")) && bytes.Contains(head, []byte(`"DeviceLog"`)) {
		return FileTypeSuuntoJSON
	}

	if bytes.HasPrefix(trimmed, []byte("<")) {
		if bytes.Contains(head, []byte("<gpx")) || bytes.Contains(head, []byte("topografix.com/GPX")) {
			return FileTypeGPX
		}
	}

	return FileTypeUnknown
}
