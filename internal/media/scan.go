package media

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/lepostier/lepostier/internal/catalog"
)

// FolderCount is the number of files found in one media folder.
type FolderCount struct {
	Folder  string   `json:"folder"`
	Exists  bool     `json:"exists"`
	Count   int      `json:"count"`
	Samples []string `json:"samples,omitempty"`
}

// Report summarises the media root.
type Report struct {
	Root    string        `json:"root"`
	Folders []FolderCount `json:"folders"`
	Images  int           `json:"images"`
	Videos  int           `json:"videos"`
}

const maxSamples = 5

// Scan counts the files of every media folder under root.
func Scan(root string) (*Report, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("media root: %w", err)
	}
	fsys := os.DirFS(root)
	rep := &Report{Root: root}

	for _, folder := range catalog.ImageFolders {
		fc, err := countFolder(fsys, path.Join("postcards", folder), imagePattern)
		if err != nil {
			return nil, err
		}
		fc.Folder = folder
		rep.Images += fc.Count
		rep.Folders = append(rep.Folders, fc)
	}

	fc, err := countFolder(fsys, catalog.AnimatedFolder, videoPattern)
	if err != nil {
		return nil, err
	}
	rep.Videos = fc.Count
	rep.Folders = append(rep.Folders, fc)

	sig, err := countFolder(fsys, SignaturesFolder, imagePattern)
	if err != nil {
		return nil, err
	}
	rep.Folders = append(rep.Folders, sig)
	return rep, nil
}

func countFolder(fsys fs.FS, dir, pattern string) (FolderCount, error) {
	fc := FolderCount{Folder: dir}
	if info, err := fs.Stat(fsys, dir); err != nil || !info.IsDir() {
		return fc, nil
	}
	fc.Exists = true
	matches, err := doublestar.Glob(fsys, path.Join(dir, pattern))
	if err != nil {
		return fc, fmt.Errorf("scanning %s: %w", dir, err)
	}
	sort.Strings(matches)
	fc.Count = len(matches)
	for i := 0; i < len(matches) && i < maxSamples; i++ {
		fc.Samples = append(fc.Samples, path.Base(matches[i]))
	}
	return fc, nil
}

// FlagStore is the part of the catalog UpdateFlags writes to.
type FlagStore interface {
	List(ctx context.Context) ([]catalog.Postcard, error)
	SetHasImages(ctx context.Context, id int64, has bool) error
}

// UpdateFlags sets has_images on every postcard from the presence of its
// vignette and returns how many flags changed.
func UpdateFlags(ctx context.Context, store FlagStore, resolver *catalog.Resolver) (int, error) {
	cards, err := store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing postcards: %w", err)
	}
	changed := 0
	for _, p := range cards {
		has := resolver.HasVignette(p)
		if has == p.HasImages {
			continue
		}
		if err := store.SetHasImages(ctx, p.ID, has); err != nil {
			return changed, fmt.Errorf("updating postcard %s: %w", p.Number, err)
		}
		changed++
	}
	return changed, nil
}
