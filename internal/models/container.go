package models

import (
	"fmt"
	"strings"
)

// ContainerKind selects the reader implementation used for a container
type ContainerKind string

// Container kind constants
const (
	KindAuto ContainerKind = ""    // Detect from the backing file
	KindDir  ContainerKind = "dir" // Directory tree
	KindZip  ContainerKind = "zip" // Zip or jar archive
	KindTar  ContainerKind = "tar" // Tar archive, optionally gzip-compressed
	KindS3   ContainerKind = "s3"  // Object store bucket prefix
)

// ContainerRef identifies a module, archive or directory tree to scan.
// It is immutable once a scan begins and shared read-only by every
// resource produced from it.
type ContainerRef struct {
	Name     string        `yaml:"name" json:"name"`                             // Display name
	Location string        `yaml:"location,omitempty" json:"location,omitempty"` // URL form of the location, empty if unknown
	File     string        `yaml:"file,omitempty" json:"file,omitempty"`         // Backing file or directory on disk
	System   bool          `yaml:"system,omitempty" json:"system,omitempty"`     // Virtual container, no modification tracking
	Kind     ContainerKind `yaml:"kind,omitempty" json:"kind,omitempty"`
}

// Identity returns the key used to share one reader pool per container.
func (r ContainerRef) Identity() string {
	return fmt.Sprintf("%s:%s|%s|%s", r.Kind, r.Location, r.File, r.Name)
}

// String returns a short description for log lines
func (r ContainerRef) String() string {
	switch {
	case r.Location != "":
		return r.Location
	case r.File != "":
		return r.File
	default:
		return r.Name
	}
}

// ParseKind converts user input into a ContainerKind.
// Unknown values are rejected; empty input means KindAuto.
func ParseKind(s string) (ContainerKind, error) {
	switch k := ContainerKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindAuto, KindDir, KindZip, KindTar, KindS3:
		return k, nil
	case "jar":
		return KindZip, nil
	case "tgz":
		return KindTar, nil
	default:
		return KindAuto, fmt.Errorf("unknown container kind %q", s)
	}
}
