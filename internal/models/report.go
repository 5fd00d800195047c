package models

import "time"

// ResourceEntry describes one accepted member in a report
type ResourceEntry struct {
	Path      string `yaml:"path" json:"path"`
	Locator   string `yaml:"locator,omitempty" json:"locator,omitempty"`
	Classfile bool   `yaml:"classfile,omitempty" json:"classfile,omitempty"`
}

// ContainerResult is the outcome of scanning one container
type ContainerResult struct {
	Container    ContainerRef    `yaml:"container" json:"container"`
	Skipped      bool            `yaml:"skipped,omitempty" json:"skipped,omitempty"`
	Resources    []ResourceEntry `yaml:"resources,omitempty" json:"resources,omitempty"`
	Classfiles   int             `yaml:"classfiles" json:"classfiles"`
	LastModified time.Time       `yaml:"last_modified,omitempty" json:"last_modified,omitempty"`
	Duration     time.Duration   `yaml:"duration" json:"duration"`
}

// ScanReport aggregates the results of one run over many containers
type ScanReport struct {
	RunID      string            `yaml:"run_id" json:"run_id"`
	StartedAt  time.Time         `yaml:"started_at" json:"started_at"`
	Duration   time.Duration     `yaml:"duration" json:"duration"`
	Containers []ContainerResult `yaml:"containers" json:"containers"`
}

// TotalResources returns the number of accepted members across all containers
func (r *ScanReport) TotalResources() int {
	total := 0
	for _, c := range r.Containers {
		total += len(c.Resources)
	}
	return total
}

// SkippedContainers returns the containers that could not be opened
func (r *ScanReport) SkippedContainers() []ContainerRef {
	var skipped []ContainerRef
	for _, c := range r.Containers {
		if c.Skipped {
			skipped = append(skipped, c.Container)
		}
	}
	return skipped
}
