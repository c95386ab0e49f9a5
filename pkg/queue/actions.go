package queue

// Action type tags
const (
	TypeSetPriceAlert = "set-price-alert"
	TypeContactDealer = "contact-dealer"
	TypeSubmitReview  = "submit-review"
	TypeSaveFavorite  = "save-favorite"
)

// SetPriceAlert asks to be notified when a commodity price crosses a threshold
type SetPriceAlert struct {
	Commodity          string  `json:"commodity"`
	Condition          string  `json:"condition,omitempty"`
	Threshold          float64 `json:"threshold"`
	NotificationMethod string  `json:"notificationMethod,omitempty"`
}

func (SetPriceAlert) ActionType() string { return TypeSetPriceAlert }

// ContactDealer sends a message to a dealer
type ContactDealer struct {
	DealerID string `json:"dealerId"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Message  string `json:"message"`
}

func (ContactDealer) ActionType() string { return TypeContactDealer }

// SubmitReview rates a product
type SubmitReview struct {
	ProductID string `json:"productId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

func (SubmitReview) ActionType() string { return TypeSubmitReview }

// SaveFavorite bookmarks a product
type SaveFavorite struct {
	ProductID string `json:"productId"`
}

func (SaveFavorite) ActionType() string { return TypeSaveFavorite }
