package media

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/disintegration/imaging"

	"github.com/lepostier/lepostier/internal/catalog"
	"github.com/lepostier/lepostier/internal/progress"
)

// Thumbnail bounds and quality of generated vignettes.
const (
	DefaultThumbWidth   = 400
	DefaultThumbHeight  = 400
	DefaultThumbQuality = 85
)

// ThumbnailOptions drives GenerateThumbnails.
type ThumbnailOptions struct {
	Width, Height int
	Quality       int
	// Overwrite regenerates vignettes that already exist.
	Overwrite bool
	Progress  progress.Reporter
}

// ThumbnailResult counts generated and skipped vignettes.
type ThumbnailResult struct {
	Generated int
	Skipped   int
	Failed    int
}

// GenerateThumbnails writes a Vignette JPEG for every Grande image that
// has none, fitted inside the configured bounds.
func GenerateThumbnails(ctx context.Context, root string, opts ThumbnailOptions) (ThumbnailResult, error) {
	var res ThumbnailResult
	if opts.Width <= 0 {
		opts.Width = DefaultThumbWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultThumbHeight
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultThumbQuality
	}
	if opts.Progress == nil {
		opts.Progress = progress.Nop{}
	}

	grandeDir := localDir(root, catalog.FolderGrande)
	vignetteDir := localDir(root, catalog.FolderVignette)
	sources, err := doublestar.FilepathGlob(filepath.Join(grandeDir, imagePattern))
	if err != nil {
		return res, fmt.Errorf("listing %s: %w", grandeDir, err)
	}
	existing, err := stems(vignetteDir)
	if err != nil {
		return res, err
	}
	if err := os.MkdirAll(vignetteDir, 0o755); err != nil {
		return res, err
	}

	opts.Progress.Start(len(sources))
	defer opts.Progress.Finish()
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		opts.Progress.Update(i+1, stem)
		if existing[stem] && !opts.Overwrite {
			res.Skipped++
			continue
		}
		if err := writeThumbnail(src, filepath.Join(vignetteDir, stem+".jpg"), opts); err != nil {
			res.Failed++
			log.Printf("media: thumbnail %s: %v", stem, err)
			continue
		}
		res.Generated++
	}
	return res, nil
}

func writeThumbnail(src, dst string, opts ThumbnailOptions) error {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decoding %s: %w", src, err)
	}
	thumb := imaging.Fit(img, opts.Width, opts.Height, imaging.Lanczos)
	if err := imaging.Save(thumb, dst, imaging.JPEGQuality(opts.Quality)); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return nil
}

// stems returns the file names of dir without their extension.
func stems(dir string) (map[string]bool, error) {
	out := make(map[string]bool)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		out[strings.TrimSuffix(name, filepath.Ext(name))] = true
	}
	return out, nil
}
