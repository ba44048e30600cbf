// Package seed loads the shop catalog that is inserted into the store at startup.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ArtemDzuba/bakery-bot/internal/bakery"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the full shop assortment in display order.
type Catalog struct {
	Categories []bakery.Category
	Products   []bakery.Product
}

type fileCatalog struct {
	Categories []fileCategory `yaml:"categories"`
}

type fileCategory struct {
	ID       int64         `yaml:"id"`
	Name     string        `yaml:"name"`
	Emoji    string        `yaml:"emoji"`
	Products []fileProduct `yaml:"products"`
}

type fileProduct struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       int    `yaml:"price"`
	Photo       string `yaml:"photo"`
}

// Default returns the catalog compiled into the binary.
func Default() (Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file; an empty path selects Default.
func Load(path string) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog. Positions follow file order.
func Parse(data []byte) (Catalog, error) {
	var file fileCatalog
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Categories) == 0 {
		return Catalog{}, errors.New("catalog has no categories")
	}

	var cat Catalog
	categoryIDs := make(map[int64]struct{})
	productIDs := make(map[int64]struct{})
	for i, fc := range file.Categories {
		name := strings.TrimSpace(fc.Name)
		if fc.ID <= 0 || name == "" {
			return Catalog{}, fmt.Errorf("category #%d: id and name are required", i+1)
		}
		if _, dup := categoryIDs[fc.ID]; dup {
			return Catalog{}, fmt.Errorf("category %d: duplicate id", fc.ID)
		}
		categoryIDs[fc.ID] = struct{}{}
		cat.Categories = append(cat.Categories, bakery.Category{
			ID:       fc.ID,
			Name:     name,
			Emoji:    strings.TrimSpace(fc.Emoji),
			Position: i + 1,
		})

		names := make(map[string]struct{})
		for j, fp := range fc.Products {
			pname := strings.TrimSpace(fp.Name)
			if fp.ID <= 0 || pname == "" {
				return Catalog{}, fmt.Errorf("category %d product #%d: id and name are required", fc.ID, j+1)
			}
			if _, dup := productIDs[fp.ID]; dup {
				return Catalog{}, fmt.Errorf("product %d: duplicate id", fp.ID)
			}
			if _, dup := names[pname]; dup {
				return Catalog{}, fmt.Errorf("category %d: duplicate product name %q", fc.ID, pname)
			}
			if fp.Price < 0 {
				return Catalog{}, fmt.Errorf("product %d: negative price", fp.ID)
			}
			photo, err := ParsePhotoRef(fp.Photo)
			if err != nil {
				return Catalog{}, fmt.Errorf("product %d: %w", fp.ID, err)
			}
			productIDs[fp.ID] = struct{}{}
			names[pname] = struct{}{}
			cat.Products = append(cat.Products, bakery.Product{
				ID:          fp.ID,
				CategoryID:  fc.ID,
				Name:        pname,
				Description: strings.TrimSpace(fp.Description),
				Price:       fp.Price,
				Photo:       photo,
				Position:    j + 1,
			})
		}
	}
	return cat, nil
}

// ParsePhotoRef parses "<owner>_<media>", with or without the "photo" prefix.
// An empty string is the zero reference.
func ParsePhotoRef(s string) (bakery.PhotoRef, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "photo")
	if s == "" {
		return bakery.PhotoRef{}, nil
	}
	owner, media, ok := strings.Cut(s, "_")
	if !ok {
		return bakery.PhotoRef{}, fmt.Errorf("invalid photo reference %q", s)
	}
	ownerID, err := strconv.ParseInt(owner, 10, 64)
	if err != nil {
		return bakery.PhotoRef{}, fmt.Errorf("invalid photo owner %q", owner)
	}
	mediaID, err := strconv.ParseInt(media, 10, 64)
	if err != nil {
		return bakery.PhotoRef{}, fmt.Errorf("invalid photo media %q", media)
	}
	return bakery.PhotoRef{OwnerID: ownerID, MediaID: mediaID}, nil
}
