package model

import (
	"path/filepath"
	"strconv"
)

// Path represents a file system path.
type Path string

// TestLoc identifies where a generated test lives on disk.
type TestLoc struct {
	Index  int    `json:"index" yaml:"index"`
	Dir    Path   `json:"dir" yaml:"dir"`
	Prefix string `json:"prefix" yaml:"prefix"`
}

// File returns the path of the rendered test file.
func (l TestLoc) File() Path {
	return Path(filepath.Join(string(l.Dir), l.Prefix+strconv.Itoa(l.Index)+".js"))
}

// Name returns the base name of the rendered test file.
func (l TestLoc) Name() string {
	return l.Prefix + strconv.Itoa(l.Index) + ".js"
}
