package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArtemDzuba/bakery-bot/internal/bakery"
)

func TestDefaultCatalog(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)
	require.Len(t, cat.Categories, 3)
	require.Len(t, cat.Products, 6)

	assert.Equal(t, "🥧 Пироги", cat.Categories[0].Selector())
	assert.Equal(t, 1, cat.Categories[0].Position)

	cheb := cat.Products[1]
	assert.Equal(t, "Чебуреки", cheb.Name)
	assert.EqualValues(t, 1, cheb.CategoryID)
	assert.Equal(t, 180, cheb.Price)
	assert.Equal(t, "photo-235661116_457239019", cheb.Photo.String())
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	cases := map[string]string{
		"empty":          "categories: []",
		"no name":        "categories: [{id: 1}]",
		"dup category":   "categories: [{id: 1, name: a}, {id: 1, name: b}]",
		"dup product":    "categories: [{id: 1, name: a, products: [{id: 1, name: x}]}, {id: 2, name: b, products: [{id: 1, name: y}]}]",
		"dup name":       "categories: [{id: 1, name: a, products: [{id: 1, name: x}, {id: 2, name: x}]}]",
		"negative price": "categories: [{id: 1, name: a, products: [{id: 1, name: x, price: -1}]}]",
		"bad photo":      "categories: [{id: 1, name: a, products: [{id: 1, name: x, photo: nope}]}]",
		"not yaml":       "categories: [",
	}
	for name, doc := range cases {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestSameNameInDifferentCategories(t *testing.T) {
	cat, err := Parse([]byte("categories: [{id: 1, name: a, products: [{id: 1, name: x}]}, {id: 2, name: b, products: [{id: 2, name: x}]}]"))
	require.NoError(t, err)
	assert.Len(t, cat.Products, 2)
	assert.False(t, cat.Products[0].Photo.Valid())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories: [{id: 9, name: Хлеб, emoji: 🍞}]"), 0o600))
	cat, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []bakery.Category{{ID: 9, Name: "Хлеб", Emoji: "🍞", Position: 1}}, cat.Categories)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	def, err := Load("")
	require.NoError(t, err)
	assert.Len(t, def.Categories, 3)
}

func TestParsePhotoRef(t *testing.T) {
	ref, err := ParsePhotoRef("photo-1_2")
	require.NoError(t, err)
	assert.Equal(t, bakery.PhotoRef{OwnerID: -1, MediaID: 2}, ref)

	ref, err = ParsePhotoRef("")
	require.NoError(t, err)
	assert.False(t, ref.Valid())

	_, err = ParsePhotoRef("-1_x")
	assert.Error(t, err)
}
