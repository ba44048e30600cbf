// Package engine decides how the storefront answers one message: given the
// user's state and the text they sent it returns the replies, the next state
// and, when the user confirmed a purchase, the order to relay to the admin.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ArtemDzuba/bakery-bot/core/telegram/format"
	"github.com/ArtemDzuba/bakery-bot/internal/bakery"
)

// DefaultDisplayLimit is how many products a category keyboard offers.
const DefaultDisplayLimit = 2

// Catalog is the read-only view of the shop the engine needs.
type Catalog interface {
	ListCategories(ctx context.Context) ([]bakery.Category, error)
	ListProducts(ctx context.Context, categoryID int64) ([]bakery.Product, error)
	GetProduct(ctx context.Context, id int64) (bakery.Product, error)
	FindProduct(ctx context.Context, name string, categoryID int64) (bakery.Product, error)
}

// Options configures an Engine.
type Options struct {
	// AdminID is linked from the contact reply; 0 hides the link.
	AdminID int64
	// DisplayLimit caps the products offered on a category keyboard; <= 0 selects DefaultDisplayLimit.
	DisplayLimit int
}

// Input is one inbound text message.
type Input struct {
	Text        string
	DisplayName string
}

// OrderRequest asks for the admin to be told about a confirmed purchase.
type OrderRequest struct {
	ProductID   int64
	ProductName string
}

// Outcome is the result of one Step.
type Outcome struct {
	Replies []bakery.Reply
	Next    bakery.State
	// ViewedProduct is set when the user opened a product card.
	ViewedProduct *int64
	Order         *OrderRequest
}

// Engine is stateless; one value serves every user.
type Engine struct {
	adminID int64
	limit   int
	greet   map[string]struct{}
}

// New builds an Engine.
func New(opts Options) *Engine {
	limit := opts.DisplayLimit
	if limit <= 0 {
		limit = DefaultDisplayLimit
	}
	e := &Engine{
		adminID: opts.AdminID,
		limit:   limit,
		greet:   make(map[string]struct{}, len(greetings)),
	}
	for _, g := range greetings {
		e.greet[foldCase(g)] = struct{}{}
	}
	return e
}

// Step computes the reaction to in for a user currently in state.
// Unrecognised text never fails; errors come only from the catalog.
func (e *Engine) Step(ctx context.Context, catalog Catalog, state bakery.State, in Input) (Outcome, error) {
	if catalog == nil {
		return Outcome{}, errors.New("engine: nil catalog")
	}
	text := strings.TrimSpace(in.Text)
	switch st := state.(type) {
	case nil, bakery.Main:
		return e.stepMain(ctx, catalog, text, in.DisplayName)
	case bakery.Browsing:
		return e.stepBrowsing(ctx, catalog, st, text)
	case bakery.AwaitingOrder:
		return e.stepAwaitingOrder(ctx, catalog, st, text)
	default:
		return Outcome{}, fmt.Errorf("engine: unhandled state %T", state)
	}
}

func (e *Engine) stepMain(ctx context.Context, catalog Catalog, text, name string) (Outcome, error) {
	categories, err := catalog.ListCategories(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("list categories: %w", err)
	}
	for _, c := range categories {
		if c.Selector() == text {
			reply, err := e.categoryReply(ctx, catalog, c)
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{Replies: []bakery.Reply{reply}, Next: bakery.Browsing{CategoryID: c.ID}}, nil
		}
	}

	menu := mainKeyboard(categories)
	var body string
	switch {
	case text == ContactButton:
		body = fmt.Sprintf(textContact, e.contactLink())
	case e.isGreeting(text):
		body = fmt.Sprintf(textWelcome, displayName(name))
	default:
		body = fmt.Sprintf(textFallback, displayName(name))
	}
	return Outcome{Replies: []bakery.Reply{{Text: body, Keyboard: menu}}, Next: bakery.Main{}}, nil
}

func (e *Engine) stepBrowsing(ctx context.Context, catalog Catalog, st bakery.Browsing, text string) (Outcome, error) {
	if isBack(text) {
		return e.mainMenu(ctx, catalog, textMainMenu)
	}

	product, err := catalog.FindProduct(ctx, text, st.CategoryID)
	switch {
	case err == nil:
		id := product.ID
		return Outcome{
			Replies:       []bakery.Reply{productReply(product)},
			Next:          bakery.AwaitingOrder{ProductID: product.ID},
			ViewedProduct: &id,
		}, nil
	case !errors.Is(err, bakery.ErrNotFound):
		return Outcome{}, fmt.Errorf("find product: %w", err)
	}

	category, ok, err := findCategory(ctx, catalog, st.CategoryID)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		// the category vanished from the catalog
		return e.mainMenu(ctx, catalog, textNotUnderstood)
	}
	reply, err := e.categoryReply(ctx, catalog, category)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Replies: []bakery.Reply{reply}, Next: st}, nil
}

func (e *Engine) stepAwaitingOrder(ctx context.Context, catalog Catalog, st bakery.AwaitingOrder, text string) (Outcome, error) {
	if isBack(text) {
		return e.mainMenu(ctx, catalog, textMainMenu)
	}
	if name, ok := orderedName(text); ok {
		out, err := e.mainMenu(ctx, catalog, fmt.Sprintf(textOrderPlaced, format.Escape(name)))
		if err != nil {
			return Outcome{}, err
		}
		out.Order = &OrderRequest{ProductID: st.ProductID, ProductName: name}
		return out, nil
	}
	// anything else drops the pending order
	return e.mainMenu(ctx, catalog, textNotUnderstood)
}

func (e *Engine) mainMenu(ctx context.Context, catalog Catalog, text string) (Outcome, error) {
	categories, err := catalog.ListCategories(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("list categories: %w", err)
	}
	return Outcome{
		Replies: []bakery.Reply{{Text: text, Keyboard: mainKeyboard(categories)}},
		Next:    bakery.Main{},
	}, nil
}

func (e *Engine) categoryReply(ctx context.Context, catalog Catalog, c bakery.Category) (bakery.Reply, error) {
	products, err := catalog.ListProducts(ctx, c.ID)
	if err != nil {
		return bakery.Reply{}, fmt.Errorf("list products: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, textCategory, c.Emoji, format.Escape(c.Name))
	if len(products) == 0 {
		b.WriteString("\n" + textCategoryNone)
	}
	for _, p := range products {
		b.WriteString("\n")
		fmt.Fprintf(&b, textCategoryItem, format.Escape(p.Name), p.Price)
	}

	shown := products
	if len(shown) > e.limit {
		shown = shown[:e.limit]
	}
	row := make([]string, 0, len(shown))
	for _, p := range shown {
		row = append(row, p.Name)
	}
	return bakery.Reply{
		Text:     strings.TrimSpace(b.String()),
		Keyboard: [][]string{row, {BackFromCategory}},
	}, nil
}

func productReply(p bakery.Product) bakery.Reply {
	reply := bakery.Reply{
		Text:     fmt.Sprintf(textProduct, format.Escape(p.Name), format.Escape(p.Description), p.Price),
		Keyboard: [][]string{{OrderButtonPrefix + p.Name}, {BackFromProduct}},
	}
	if p.Photo.Valid() {
		photo := p.Photo
		reply.Photo = &photo
	}
	return reply
}

// mainKeyboard lays the category selectors out two per row, then the contact button.
func mainKeyboard(categories []bakery.Category) [][]string {
	labels := make([]string, 0, len(categories)+1)
	for _, c := range categories {
		labels = append(labels, c.Selector())
	}
	labels = append(labels, ContactButton)

	rows := make([][]string, 0, (len(labels)+1)/2)
	for len(labels) > 0 {
		n := min(2, len(labels))
		rows = append(rows, labels[:n:n])
		labels = labels[n:]
	}
	return rows
}

func findCategory(ctx context.Context, catalog Catalog, id int64) (bakery.Category, bool, error) {
	categories, err := catalog.ListCategories(ctx)
	if err != nil {
		return bakery.Category{}, false, fmt.Errorf("list categories: %w", err)
	}
	for _, c := range categories {
		if c.ID == id {
			return c, true, nil
		}
	}
	return bakery.Category{}, false, nil
}

func (e *Engine) contactLink() string {
	if e.adminID == 0 {
		return textNoContact
	}
	return fmt.Sprintf(textContactLink, e.adminID)
}

func (e *Engine) isGreeting(text string) bool {
	_, ok := e.greet[foldCase(text)]
	return ok
}

// foldCase builds a fresh Caser per call; a Caser is not safe for concurrent use.
func foldCase(s string) string {
	return cases.Fold().String(s)
}

func isBack(text string) bool {
	return text == BackFromCategory || text == BackFromProduct
}

// orderedName extracts the product name from an order button text.
func orderedName(text string) (string, bool) {
	rest, ok := strings.CutPrefix(text, OrderButtonPrefix)
	if !ok {
		return "", false
	}
	name := strings.TrimSpace(rest)
	return name, name != ""
}

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultDisplayName
	}
	return format.Escape(name)
}
