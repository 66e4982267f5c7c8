package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jackzampolin/bindery/internal/artifact"
	"github.com/jackzampolin/bindery/internal/assembly"
	"github.com/jackzampolin/bindery/internal/content"
	"github.com/jackzampolin/bindery/internal/cover"
	"github.com/jackzampolin/bindery/internal/manifest"
)

type contentStage struct{}

func (contentStage) Name() string           { return StageContent }
func (contentStage) Dependencies() []string { return nil }
func (contentStage) Description() string    { return "Generate the outline and chapters" }

func (contentStage) Artifacts(dir string) []string {
	return []string{filepath.Join(dir, artifact.ManuscriptFile)}
}

func (contentStage) Run(ctx context.Context, r *Run) error {
	llm, err := r.backends.Text(ctx, r.textKind)
	if err != nil {
		return err
	}
	gen, err := content.New(content.Config{
		LLM:      llm,
		Recorder: recorder{tracker: r.tracker, metrics: r.metrics},
		Logger:   r.logger,
	})
	if err != nil {
		return err
	}

	manuscript, err := gen.GenerateBook(ctx, r.Book)
	if err != nil {
		return err
	}
	if err := artifact.WriteFile(r.Path(artifact.ManuscriptFile), []byte(manuscript)); err != nil {
		return err
	}
	r.manuscript = manuscript
	r.logger.Info("manuscript saved", "path", r.Path(artifact.ManuscriptFile))
	return nil
}

type coverStage struct{}

func (coverStage) Name() string           { return StageCover }
func (coverStage) Dependencies() []string { return nil }
func (coverStage) Description() string    { return "Generate cover art" }

func (coverStage) Artifacts(dir string) []string {
	return []string{filepath.Join(dir, artifact.CoverImageFile)}
}

func (coverStage) Run(ctx context.Context, r *Run) error {
	img, err := r.backends.Image(ctx, r.imageKind)
	if err != nil {
		return err
	}
	data, err := cover.NewDesigner(img, r.logger).GenerateCover(ctx, r.Book)
	if err != nil {
		return err
	}
	if err := artifact.WriteFile(r.Path(artifact.CoverImageFile), data); err != nil {
		return err
	}
	r.logger.Info("cover saved", "path", r.Path(artifact.CoverImageFile))
	return nil
}

type assemblyStage struct{}

func (assemblyStage) Name() string           { return StageAssembly }
func (assemblyStage) Dependencies() []string { return []string{StageContent, StageCover} }
func (assemblyStage) Description() string    { return "Render interior and cover PDFs" }

func (assemblyStage) Artifacts(dir string) []string {
	return []string{filepath.Join(dir, artifact.InteriorPDFFile), filepath.Join(dir, artifact.CoverPDFFile)}
}

func (assemblyStage) Run(ctx context.Context, r *Run) error {
	manuscript, err := r.Manuscript()
	if err != nil {
		return err
	}

	interior, err := r.assembler.BuildInterior(r.Book.Title, r.Book.Author, manuscript)
	if err != nil {
		return err
	}
	pages, err := assembly.PageCount(interior.Data)
	if err != nil {
		return err
	}
	if err := artifact.WriteFile(r.Path(artifact.InteriorPDFFile), interior.Data); err != nil {
		return err
	}
	r.pages = pages
	r.metrics.SetPages(pages)
	r.logger.Info("interior PDF saved", "path", r.Path(artifact.InteriorPDFFile), "pages", pages)

	if err := ctx.Err(); err != nil {
		return err
	}

	coverDoc, err := r.assembler.BuildCover(r.Path(artifact.CoverImageFile))
	if err != nil {
		return err
	}
	if err := artifact.WriteFile(r.Path(artifact.CoverPDFFile), coverDoc.Data); err != nil {
		return err
	}
	r.logger.Info("cover PDF saved", "path", r.Path(artifact.CoverPDFFile))
	return nil
}

type qualityStage struct{}

func (qualityStage) Name() string                  { return StageQuality }
func (qualityStage) Dependencies() []string        { return []string{StageContent} }
func (qualityStage) Description() string           { return "Run the advisory quality gate" }
func (qualityStage) Artifacts(dir string) []string { return nil }

func (qualityStage) Run(ctx context.Context, r *Run) error {
	manuscript, err := r.Manuscript()
	if err != nil {
		return err
	}
	result := r.checker.Check(manuscript)
	r.quality = &result
	r.metrics.SetQuality(result.Passed)

	attrs := []any{
		"words", result.WordCount,
		"chapters", result.ChapterCount,
		"duplicate_ratio", fmt.Sprintf("%.1f%%", result.DuplicateRatio*100),
	}
	if result.Passed {
		r.logger.Info("quality check passed", attrs...)
		return nil
	}
	r.logger.Warn("quality check warnings", append(attrs, "warnings", result.Warnings)...)
	return nil
}

type manifestStage struct{}

func (manifestStage) Name() string           { return StageManifest }
func (manifestStage) Dependencies() []string { return []string{StageAssembly, StageQuality} }
func (manifestStage) Description() string    { return "Write the package manifest" }

func (manifestStage) Artifacts(dir string) []string {
	return []string{filepath.Join(dir, artifact.ManifestFile)}
}

func (manifestStage) Run(ctx context.Context, r *Run) error {
	summary := r.tracker.Summary()
	m := manifest.New(r.Book, manifest.Files{
		Manuscript:  r.Path(artifact.ManuscriptFile),
		Cover:       r.Path(artifact.CoverImageFile),
		InteriorPDF: r.Path(artifact.InteriorPDFFile),
		CoverPDF:    r.Path(artifact.CoverPDFFile),
	}, r.quality, &summary, r.now())
	if err := m.Write(r.Path(artifact.ManifestFile)); err != nil {
		return err
	}
	r.logger.Info("manifest saved", "path", r.Path(artifact.ManifestFile))
	return nil
}
