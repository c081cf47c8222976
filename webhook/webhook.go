// Package webhook manages the outbound automation-engine endpoints and the
// relay client that submits research requests to them.
package webhook

// Webhook types. On-demand endpoints run a single research pass; recurring
// endpoints also register the request with the engine's scheduler.
const (
	TypeOnDemand  = "on-demand"
	TypeRecurring = "recurring"
)

// IsValidType reports whether t is a recognized webhook type.
func IsValidType(t string) bool {
	return t == TypeOnDemand || t == TypeRecurring
}

// Config is a persisted webhook endpoint.
type Config struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}
