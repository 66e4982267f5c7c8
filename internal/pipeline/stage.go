package pipeline

import (
	"context"
)

// Stage names in execution order.
const (
	StageContent  = "content"
	StageCover    = "cover"
	StageAssembly = "assembly"
	StageQuality  = "quality"
	StageManifest = "manifest"
)

// Stage is one step of the book pipeline.
type Stage interface {
	// Identity
	Name() string           // e.g., "content", "assembly"
	Dependencies() []string // Stages that must complete first
	Description() string

	// Artifacts returns the files a completed stage leaves in outputDir.
	// A stage with no artifacts is never checkpointed and runs every time.
	Artifacts(outputDir string) []string

	// Run performs the stage against the shared run state.
	Run(ctx context.Context, r *Run) error
}
