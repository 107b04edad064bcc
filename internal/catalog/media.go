package catalog

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Image folders under <media>/postcards.
const (
	FolderVignette = "Vignette"
	FolderGrande   = "Grande"
	FolderDos      = "Dos"
	FolderZoom     = "Zoom"
)

// ImageFolders lists the postcard image folders.
var ImageFolders = []string{FolderVignette, FolderGrande, FolderDos, FolderZoom}

// AnimatedFolder holds the animated versions, directly under the media root.
const AnimatedFolder = "animated_cp"

var (
	imageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".JPG", ".JPEG", ".PNG", ".GIF"}
	videoExts = []string{".mp4", ".webm", ".MP4", ".WEBM"}
)

// maxAnimations bounds the <padded>_<i> probe.
const maxAnimations = 20

// Resolver locates postcard files under the media root and turns them into
// public URLs.
type Resolver struct {
	Root string
	URL  string
}

// NewResolver returns a resolver for files under root served at urlPrefix.
func NewResolver(root, urlPrefix string) *Resolver {
	if urlPrefix == "" {
		urlPrefix = "/media/"
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &Resolver{Root: root, URL: urlPrefix}
}

// ImageSet holds every image URL of one postcard. Empty means missing.
type ImageSet struct {
	Vignette string   `json:"vignette_url"`
	Grande   string   `json:"grande_url"`
	Dos      string   `json:"dos_url"`
	Zoom     string   `json:"zoom_url"`
	Animated []string `json:"animated_urls"`
}

func exists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// find returns the URL of the postcard image in folder, trying the padded
// number before the raw one.
func (r *Resolver) find(folder string, p Postcard) string {
	dir := filepath.Join(r.Root, "postcards", folder)
	stems := []string{p.PaddedNumber()}
	if raw := strings.TrimSpace(p.Number); raw != "" && raw != stems[0] {
		stems = append(stems, raw)
	}
	for _, stem := range stems {
		for _, ext := range imageExts {
			name := stem + ext
			if exists(filepath.Join(dir, name)) {
				return r.URL + path.Join("postcards", folder, name)
			}
		}
	}
	return ""
}

// VignetteURL is the thumbnail shown in the grid.
func (r *Resolver) VignetteURL(p Postcard) string { return r.find(FolderVignette, p) }

// GrandeURL is the large front image, falling back to the vignette.
func (r *Resolver) GrandeURL(p Postcard) string {
	if u := r.find(FolderGrande, p); u != "" {
		return u
	}
	return r.VignetteURL(p)
}

// DosURL is the back of the card.
func (r *Resolver) DosURL(p Postcard) string { return r.find(FolderDos, p) }

// ZoomURL is the high resolution front, falling back to the large image.
func (r *Resolver) ZoomURL(p Postcard) string {
	if u := r.find(FolderZoom, p); u != "" {
		return u
	}
	return r.GrandeURL(p)
}

// AnimatedURLs lists the videos of the card: <padded>.<ext> first, then
// <padded>_0, <padded>_1 and so on until the first gap after _0.
func (r *Resolver) AnimatedURLs(p Postcard) []string {
	dir := filepath.Join(r.Root, AnimatedFolder)
	padded := p.PaddedNumber()
	urls := []string{}

	if u := r.findVideo(dir, padded); u != "" {
		urls = append(urls, u)
	}
	for i := 0; i < maxAnimations; i++ {
		u := r.findVideo(dir, fmt.Sprintf("%s_%d", padded, i))
		if u == "" {
			if i > 0 {
				break
			}
			continue
		}
		urls = append(urls, u)
	}
	return urls
}

func (r *Resolver) findVideo(dir, stem string) string {
	for _, ext := range videoExts {
		if exists(filepath.Join(dir, stem+ext)) {
			return r.URL + path.Join(AnimatedFolder, stem+ext)
		}
	}
	return ""
}

// HasVignette reports whether the grid thumbnail exists.
func (r *Resolver) HasVignette(p Postcard) bool { return r.VignetteURL(p) != "" }

// Images resolves every image of p.
func (r *Resolver) Images(p Postcard) ImageSet {
	return ImageSet{
		Vignette: r.VignetteURL(p),
		Grande:   r.GrandeURL(p),
		Dos:      r.DosURL(p),
		Zoom:     r.ZoomURL(p),
		Animated: r.AnimatedURLs(p),
	}
}
