package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArtemDzuba/bakery-bot/internal/bakery"
)

type fakeCatalog struct {
	categories []bakery.Category
	products   []bakery.Product
	err        error
}

func (f *fakeCatalog) ListCategories(context.Context) ([]bakery.Category, error) {
	return f.categories, f.err
}

func (f *fakeCatalog) ListProducts(_ context.Context, categoryID int64) ([]bakery.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []bakery.Product
	for _, p := range f.products {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetProduct(_ context.Context, id int64) (bakery.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return bakery.Product{}, bakery.ErrNotFound
}

func (f *fakeCatalog) FindProduct(_ context.Context, name string, categoryID int64) (bakery.Product, error) {
	if f.err != nil {
		return bakery.Product{}, f.err
	}
	for _, p := range f.products {
		if p.Name == name && p.CategoryID == categoryID {
			return p, nil
		}
	}
	return bakery.Product{}, bakery.ErrNotFound
}

func shop() *fakeCatalog {
	photo := func(id int64) bakery.PhotoRef { return bakery.PhotoRef{OwnerID: -235661116, MediaID: id} }
	return &fakeCatalog{
		categories: []bakery.Category{
			{ID: 1, Name: "Пироги", Emoji: "🥧"},
			{ID: 2, Name: "Торты", Emoji: "🎂"},
			{ID: 3, Name: "Печенье", Emoji: "🍪"},
		},
		products: []bakery.Product{
			{ID: 1, CategoryID: 1, Name: "Яблочный пирог", Description: "Сочная яблочная начинка", Price: 250, Photo: photo(457239022)},
			{ID: 2, CategoryID: 1, Name: "Чебуреки", Description: "Хрустящее тесто", Price: 180, Photo: photo(457239019)},
			{ID: 7, CategoryID: 1, Name: "Курник", Description: "С курицей", Price: 400},
			{ID: 3, CategoryID: 2, Name: "Наполеон", Description: "Слоеный торт", Price: 850, Photo: photo(457239017)},
		},
	}
}

func step(t *testing.T, state bakery.State, text string) Outcome {
	t.Helper()
	out, err := New(Options{AdminID: 42}).Step(context.Background(), shop(), state, Input{Text: text, DisplayName: "Аня"})
	require.NoError(t, err)
	return out
}

func TestGreetingShowsWelcomeAndMenu(t *testing.T) {
	for _, text := range []string{"привет", "ПРИВЕТ", "Hello", " меню ", "/start"} {
		out := step(t, bakery.Main{}, text)
		require.Len(t, out.Replies, 1, text)
		assert.Contains(t, out.Replies[0].Text, "Витрина свежей выпечки", text)
		assert.Contains(t, out.Replies[0].Text, "Аня")
		assert.Equal(t, [][]string{{"🥧 Пироги", "🎂 Торты"}, {"🍪 Печенье", ContactButton}}, out.Replies[0].Keyboard)
		assert.Equal(t, bakery.Main{}, out.Next)
		assert.Nil(t, out.Order)
	}
}

func TestMainFallbackAndNilState(t *testing.T) {
	out := step(t, nil, "что у вас есть?")
	assert.Equal(t, bakery.Main{}, out.Next)
	assert.NotContains(t, out.Replies[0].Text, "Витрина")
	assert.Contains(t, out.Replies[0].Text, "Выберите категорию")
}

func TestContactLinksAdmin(t *testing.T) {
	out := step(t, bakery.Main{}, ContactButton)
	assert.Equal(t, bakery.Main{}, out.Next)
	assert.Contains(t, out.Replies[0].Text, "tg://user?id=42")
	assert.NotEmpty(t, out.Replies[0].Keyboard)

	hidden, err := New(Options{}).Step(context.Background(), shop(), bakery.Main{}, Input{Text: ContactButton})
	require.NoError(t, err)
	assert.NotContains(t, hidden.Replies[0].Text, "tg://")
}

func TestCategorySelectorOpensBrowsing(t *testing.T) {
	out := step(t, bakery.Main{}, "🥧 Пироги")
	assert.Equal(t, bakery.Browsing{CategoryID: 1}, out.Next)
	require.Len(t, out.Replies, 1)
	reply := out.Replies[0]
	assert.Equal(t, [][]string{{"Яблочный пирог", "Чебуреки"}, {BackFromCategory}}, reply.Keyboard)
	assert.Contains(t, reply.Text, "Курник: 400₽")
}

func TestDisplayLimitIsConfigurable(t *testing.T) {
	out, err := New(Options{DisplayLimit: 5}).Step(context.Background(), shop(), bakery.Main{}, Input{Text: "🥧 Пироги"})
	require.NoError(t, err)
	assert.Len(t, out.Replies[0].Keyboard[0], 3)
}

func TestBrowsingProductShowsDetailWithPhoto(t *testing.T) {
	out := step(t, bakery.Browsing{CategoryID: 1}, "Чебуреки")
	assert.Equal(t, bakery.AwaitingOrder{ProductID: 2}, out.Next)
	require.NotNil(t, out.ViewedProduct)
	assert.EqualValues(t, 2, *out.ViewedProduct)
	reply := out.Replies[0]
	require.NotNil(t, reply.Photo)
	assert.Equal(t, "photo-235661116_457239019", reply.Photo.String())
	assert.Contains(t, reply.Text, "180₽")
	assert.Equal(t, [][]string{{OrderButtonPrefix + "Чебуреки"}, {BackFromProduct}}, reply.Keyboard)

	noPhoto := step(t, bakery.Browsing{CategoryID: 1}, "Курник")
	assert.Nil(t, noPhoto.Replies[0].Photo)
}

func TestBrowsingUnknownNameStaysInCategory(t *testing.T) {
	for _, text := range []string{"чебуреки", "Наполеон", "", "🎂 Торты"} {
		out := step(t, bakery.Browsing{CategoryID: 1}, text)
		assert.Equal(t, bakery.Browsing{CategoryID: 1}, out.Next, text)
		assert.Nil(t, out.ViewedProduct)
		assert.Equal(t, BackFromCategory, out.Replies[0].Keyboard[1][0])
	}
}

func TestBrowsingBackReturnsToMain(t *testing.T) {
	out := step(t, bakery.Browsing{CategoryID: 2}, BackFromCategory)
	assert.Equal(t, bakery.Main{}, out.Next)
	assert.Contains(t, out.Replies[0].Text, "Главное меню")
}

func TestBrowsingMissingCategoryResetsToMain(t *testing.T) {
	out := step(t, bakery.Browsing{CategoryID: 99}, "что-то")
	assert.Equal(t, bakery.Main{}, out.Next)
}

func TestOrderConfirmationRequestsNotification(t *testing.T) {
	out := step(t, bakery.AwaitingOrder{ProductID: 2}, "🛒 Заказать сейчас Чебуреки")
	assert.Equal(t, bakery.Main{}, out.Next)
	require.NotNil(t, out.Order)
	assert.Equal(t, OrderRequest{ProductID: 2, ProductName: "Чебуреки"}, *out.Order)
	assert.Contains(t, out.Replies[0].Text, "Заказ принят")
	assert.Contains(t, out.Replies[0].Text, "Чебуреки")
}

func TestAwaitingOrderBackAndCancel(t *testing.T) {
	back := step(t, bakery.AwaitingOrder{ProductID: 2}, BackFromProduct)
	assert.Equal(t, bakery.Main{}, back.Next)
	assert.Nil(t, back.Order)

	for _, text := range []string{"передумал", "🛒 Заказать сейчас", "🛒 Заказать сейчас   "} {
		out := step(t, bakery.AwaitingOrder{ProductID: 2}, text)
		assert.Equal(t, bakery.Main{}, out.Next, text)
		assert.Nil(t, out.Order, text)
		assert.Contains(t, out.Replies[0].Text, "Не понял")
	}
}

func TestDisplayNameIsEscaped(t *testing.T) {
	out, err := New(Options{}).Step(context.Background(), shop(), bakery.Main{}, Input{Text: "hi", DisplayName: "a_b*c"})
	require.NoError(t, err)
	assert.Contains(t, out.Replies[0].Text, `a\_b\*c`)

	out, err = New(Options{}).Step(context.Background(), shop(), bakery.Main{}, Input{Text: "hi"})
	require.NoError(t, err)
	assert.Contains(t, out.Replies[0].Text, "Друг")
}

func TestCatalogErrorsPropagate(t *testing.T) {
	boom := errors.New("db down")
	cat := shop()
	cat.err = boom
	e := New(Options{})
	for _, st := range []bakery.State{bakery.Main{}, bakery.Browsing{CategoryID: 1}, bakery.AwaitingOrder{ProductID: 1}} {
		_, err := e.Step(context.Background(), cat, st, Input{Text: "x"})
		assert.ErrorIs(t, err, boom, "%T", st)
	}
	_, err := e.Step(context.Background(), nil, bakery.Main{}, Input{})
	assert.Error(t, err)
}
