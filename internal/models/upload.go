package models

import (
	"io"
	"os"
	"time"
)

// Upload is a file received from a client.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// FileResource is an opened stored file ready to be streamed to a client.
type FileResource struct {
	Name    string
	File    *os.File
	ModTime time.Time
}
