package parser

import (
	"fmt"
	"path/filepath"
	"strings"
)

// NewParser picks a parser by file extension, falling back to the file content.
func NewParser(filename string, opts ...Option) (Parser, error) {
	if p := parserForExtension(filename, opts); p != nil {
		return p, nil
	}

	fileType, err := DetectFileType(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}
	return parserForType(fileType, opts)
}

// NewParserForFile is NewParser for content that is already in memory.
func NewParserForFile(filename string, data []byte, opts ...Option) (Parser, error) {
	if p := parserForExtension(filename, opts); p != nil {
		return p, nil
	}
	return NewParserFromData(data, opts...)
}

// NewParserFromData creates a parser based on file content
func NewParserFromData(data []byte, opts ...Option) (Parser, error) {
	return parserForType(DetectFileTypeFromData(data), opts)
}

func parserForExtension(filename string, opts []Option) Parser {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".fit":
		return NewFITParser(opts...)
	case ".json":
		return NewSuuntoJSONParser(opts...)
	case ".gpx":
		return NewGPXParser(opts...)
	}
	return nil
}

func parserForType(fileType FileType, opts []Option) (Parser, error) {
	switch fileType {
	case FileTypeFIT:
		return NewFITParser(opts...), nil
	case FileTypeSuuntoJSON:
		return NewSuuntoJSONParser(opts...), nil
	case FileTypeGPX:
		return NewGPXParser(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileType)
	}
}
