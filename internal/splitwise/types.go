package splitwise

// Wire types for the Splitwise REST API. Decoded once here and converted to
// core types; nothing outside this package sees the raw JSON shapes.

type currentUserResponse struct {
	User apiUser `json:"user"`
}

type apiUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type groupsResponse struct {
	Groups []apiGroup `json:"groups"`
}

type apiGroup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type expensesResponse struct {
	Expenses []apiExpense `json:"expenses"`
}

type apiExpense struct {
	ID          int64        `json:"id"`
	Description string       `json:"description"`
	Date        string       `json:"date"`
	DeletedAt   string       `json:"deleted_at"`
	Category    *apiCategory `json:"category"`
	Users       []apiShare   `json:"users"`
}

type apiCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Share amounts come over the wire as decimal strings ("12.5", "0.0").
type apiShare struct {
	UserID    int64  `json:"user_id"`
	OwedShare string `json:"owed_share"`
	PaidShare string `json:"paid_share"`
}

type errorResponse struct {
	Error  string   `json:"error"`
	Errors struct { // some endpoints nest messages under errors.base
		Base []string `json:"base"`
	} `json:"errors"`
}
