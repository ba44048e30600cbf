package bakery

import (
	"errors"
	"fmt"
)

// State is the position of a user in the storefront dialogue. The set of
// states is closed: Main, Browsing and AwaitingOrder.
type State interface {
	// Kind names the state in storage and logs.
	Kind() string
	isState()
}

// Main is the category menu. Every user starts here.
type Main struct{}

// Browsing is the product list of one category.
type Browsing struct {
	CategoryID int64
}

// AwaitingOrder is the product detail view waiting for the order button.
type AwaitingOrder struct {
	ProductID int64
}

// Persisted state kinds.
const (
	KindMain          = "main"
	KindBrowsing      = "browsing"
	KindAwaitingOrder = "awaiting_order"
)

func (Main) Kind() string          { return KindMain }
func (Browsing) Kind() string      { return KindBrowsing }
func (AwaitingOrder) Kind() string { return KindAwaitingOrder }

func (Main) isState()          {}
func (Browsing) isState()      {}
func (AwaitingOrder) isState() {}

// ErrUnknownState is returned by DecodeState for kinds it does not know.
var ErrUnknownState = errors.New("bakery: unknown state")

// EncodedState is the storage form of a State.
type EncodedState struct {
	Kind       string
	CategoryID *int64
	ProductID  *int64
}

// EncodeState flattens s for storage. A nil state encodes as Main.
func EncodeState(s State) EncodedState {
	switch st := s.(type) {
	case Browsing:
		id := st.CategoryID
		return EncodedState{Kind: KindBrowsing, CategoryID: &id}
	case AwaitingOrder:
		id := st.ProductID
		return EncodedState{Kind: KindAwaitingOrder, ProductID: &id}
	default:
		return EncodedState{Kind: KindMain}
	}
}

// DecodeState rebuilds a State from storage. An empty kind is Main.
func DecodeState(e EncodedState) (State, error) {
	switch e.Kind {
	case "", KindMain:
		return Main{}, nil
	case KindBrowsing:
		if e.CategoryID == nil {
			return nil, fmt.Errorf("%w: browsing without category", ErrUnknownState)
		}
		return Browsing{CategoryID: *e.CategoryID}, nil
	case KindAwaitingOrder:
		if e.ProductID == nil {
			return nil, fmt.Errorf("%w: awaiting_order without product", ErrUnknownState)
		}
		return AwaitingOrder{ProductID: *e.ProductID}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownState, e.Kind)
}
