package auction

// Operation names used for telemetry. The bid variants are kept apart
// so their curves stay visible in the final report.
const (
	OpRegister      = "register"
	OpLogin         = "login"
	OpListProducts  = "list_products"
	OpProductDetail = "product_detail"
	OpRankings      = "rankings"
	OpResults       = "results"
	OpPlaceBid      = "place_bid"
	OpRetryBid      = "retry_bid"
	OpCreateProduct = "create_product"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  struct {
		ID string `json:"id"`
	} `json:"user"`
}

// Product mirrors the service's product payload. Timestamps are epoch
// milliseconds, as served by the backend.
type Product struct {
	ID                  string  `json:"id"`
	Title               string  `json:"title"`
	Status              string  `json:"status"`
	BasePrice           float64 `json:"basePrice"`
	CurrentHighestPrice float64 `json:"currentHighestPrice"`
	K                   int     `json:"k"`
	StartTime           int64   `json:"startTime"`
	EndTime             int64   `json:"endTime"`
}

type productList struct {
	Products []Product `json:"products"`
}

type RankingEntry struct {
	DisplayName string  `json:"displayName"`
	Price       float64 `json:"price"`
	Score       float64 `json:"score"`
}

type Rankings struct {
	CurrentHighestPrice float64        `json:"currentHighestPrice"`
	Rankings            []RankingEntry `json:"rankings"`
}

type bidRequest struct {
	Price float64 `json:"price"`
}

type BidResult struct {
	Bid struct {
		Score float64 `json:"score"`
	} `json:"bid"`
}

// NewProduct is the admin product-creation payload. Alpha/beta/gamma
// are scoring weights passed through to the service untouched.
type NewProduct struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	BasePrice   float64 `json:"basePrice"`
	K           int     `json:"k"`
	StartTime   int64   `json:"startTime"`
	EndTime     int64   `json:"endTime"`
	Alpha       float64 `json:"alpha"`
	Beta        float64 `json:"beta"`
	Gamma       float64 `json:"gamma"`
}

type createdProduct struct {
	ID string `json:"id"`
}
