// Package media manages the postcard image library on disk: provisioning
// the folder layout, scanning it, mirroring it from the FTP host and
// generating thumbnails.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lepostier/lepostier/internal/catalog"
)

// SignaturesFolder holds the signature images used on the profile cards.
const SignaturesFolder = "signatures"

var (
	imagePattern = "*.{jpg,jpeg,png,gif,JPG,JPEG,PNG,GIF}"
	videoPattern = "*.{mp4,webm,MP4,WEBM}"
)

// Dirs lists every directory the media root must hold, relative to it.
func Dirs() []string {
	dirs := make([]string, 0, len(catalog.ImageFolders)+2)
	for _, f := range catalog.ImageFolders {
		dirs = append(dirs, filepath.Join("postcards", f))
	}
	return append(dirs, catalog.AnimatedFolder, SignaturesFolder)
}

// Provision creates the media layout under root and returns the
// directories it had to create.
func Provision(root string) ([]string, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("media root is empty")
	}
	var created []string
	for _, rel := range Dirs() {
		dir := filepath.Join(root, rel)
		if info, err := os.Stat(dir); err == nil {
			if !info.IsDir() {
				return created, fmt.Errorf("%s exists and is not a directory", dir)
			}
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return created, fmt.Errorf("creating %s: %w", dir, err)
		}
		created = append(created, rel)
	}
	return created, nil
}

// localDir maps a remote folder name to its directory under root.
func localDir(root, folder string) string {
	if folder == catalog.AnimatedFolder {
		return filepath.Join(root, catalog.AnimatedFolder)
	}
	return filepath.Join(root, "postcards", folder)
}

var (
	imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}
	videoExts = map[string]bool{".mp4": true, ".webm": true}
)

// accepts reports whether name belongs in folder.
func accepts(folder, name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if folder == catalog.AnimatedFolder {
		return videoExts[ext]
	}
	return imageExts[ext]
}
