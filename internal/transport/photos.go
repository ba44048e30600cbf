package transport

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	tele "gopkg.in/telebot.v4"

	"github.com/ArtemDzuba/bakery-bot/internal/bakery"
)

// PhotoOptions selects where product photos come from. BaseURL wins over Dir;
// with neither set products are shown without pictures.
type PhotoOptions struct {
	BaseURL string `yaml:"base_url" envconfig:"PHOTOS_BASE_URL"`
	Dir     string `yaml:"dir" envconfig:"PHOTOS_DIR"`
	// MaxSide downscales local photos so that neither side exceeds it; 0 keeps the original size.
	MaxSide int `yaml:"max_side" envconfig:"PHOTOS_MAX_SIDE"`
}

// PhotoResolver turns photo references into uploadable files.
type PhotoResolver struct {
	opts PhotoOptions
}

// NewPhotoResolver builds a resolver.
func NewPhotoResolver(opts PhotoOptions) *PhotoResolver {
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	opts.Dir = strings.TrimSpace(opts.Dir)
	return &PhotoResolver{opts: opts}
}

var photoExts = []string{".jpg", ".jpeg", ".png"}

// Resolve returns the file for ref, or false when there is none.
func (r *PhotoResolver) Resolve(ref bakery.PhotoRef) (tele.File, bool, error) {
	if r == nil || !ref.Valid() {
		return tele.File{}, false, nil
	}
	name := ref.String()
	if r.opts.BaseURL != "" {
		return tele.FromURL(r.opts.BaseURL + "/" + name + ".jpg"), true, nil
	}
	if r.opts.Dir == "" {
		return tele.File{}, false, nil
	}
	for _, ext := range photoExts {
		path := filepath.Join(r.opts.Dir, name+ext)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return tele.File{}, false, err
		}
		data, err := r.load(path)
		if err != nil {
			return tele.File{}, false, err
		}
		return tele.FromReader(bytes.NewReader(data)), true, nil
	}
	return tele.File{}, false, nil
}

// load decodes the image, fits it into MaxSide and re-encodes it as JPEG.
func (r *PhotoResolver) load(path string) ([]byte, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	img = r.fit(img)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode photo: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PhotoResolver) fit(img image.Image) image.Image {
	side := r.opts.MaxSide
	if side <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= side && b.Dy() <= side {
		return img
	}
	return imaging.Fit(img, side, side, imaging.Lanczos)
}
