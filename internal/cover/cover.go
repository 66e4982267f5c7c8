// Package cover builds cover prompts and generates cover art.
package cover

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackzampolin/bindery/internal/book"
	"github.com/jackzampolin/bindery/internal/providers"
)

// genreTemplates are keyed by lower-cased genre; %[1]s is the cover style.
var genreTemplates = map[string]string{
	"technology": "A %[1]s book cover for a technology book. " +
		"Clean, futuristic design with subtle digital circuit patterns and cool-toned gradients. ",
	"business": "A %[1]s book cover for a business book. " +
		"Sophisticated, corporate feel with geometric shapes and warm gold or navy tones. ",
	"fiction": "A %[1]s book cover for a fiction novel. " +
		"Dramatic, cinematic composition with moody lighting and rich colours. ",
	"self-help": "A %[1]s book cover for a self-help and motivation book. " +
		"Bright, inspiring design with sunrise or nature imagery and uplifting energy. ",
	"science": "A %[1]s book cover for a science book. " +
		"Visually striking design with macro-photography style scientific imagery. ",
}

const defaultTemplate = "A %[1]s professional book cover. " +
	"Clean, modern design suitable for Amazon KDP publishing. "

const titleTrailer = "The words '%s' should appear prominently on the cover in a clean readable font. " +
	"Professional publishing quality, high resolution, no watermarks."

// Genres returns the genres with a dedicated template.
func Genres() []string {
	return []string{"business", "fiction", "science", "self-help", "technology"}
}

// BuildPrompt returns the image prompt for a book's cover.
func BuildPrompt(cfg *book.Config) string {
	tmpl, ok := genreTemplates[strings.ToLower(cfg.Genre)]
	if !ok {
		tmpl = defaultTemplate
	}
	return fmt.Sprintf(tmpl, cfg.Cover.Style) + fmt.Sprintf(titleTrailer, cfg.Title)
}

// Designer generates covers with an image backend.
type Designer struct {
	image  providers.ImageGenerator
	size   providers.Size
	logger *slog.Logger
}

// NewDesigner creates a cover designer. A nil logger uses slog.Default().
func NewDesigner(image providers.ImageGenerator, logger *slog.Logger) *Designer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Designer{image: image, size: providers.CoverSize, logger: logger}
}

// GenerateCover makes exactly one image call. Retries belong to the caller.
func (d *Designer) GenerateCover(ctx context.Context, cfg *book.Config) ([]byte, error) {
	prompt := BuildPrompt(cfg)
	d.logger.Info("generating cover", "backend", d.image.Name(),
		"width", d.size.Width, "height", d.size.Height)

	img, err := d.image.Generate(ctx, prompt, d.size)
	if err != nil {
		return nil, fmt.Errorf("cover generation failed: %w", err)
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("cover generation failed: %s returned an empty image", d.image.Name())
	}
	return img, nil
}
