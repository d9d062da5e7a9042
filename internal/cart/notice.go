package cart

const maxNotices = 20

// Notice is a toast-level message produced by a mutation. Delivery is
// simulated: the HTTP layer hands pending notices back with its response.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}
