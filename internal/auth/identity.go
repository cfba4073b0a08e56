package auth

// Identity represents a normalized external authentication identity
// returned by an OAuth provider. It contains facts only, no decisions.
type Identity struct {
	Provider string            `json:"provider"` // e.g. "discord", "google"
	ID       string            `json:"id"`       // provider-scoped stable user identifier (sub)
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata,omitempty"` // display-name candidates etc.
}

// Metadata keys populated by providers. Consumers (display-name derivation)
// probe them in order and must tolerate absence.
const (
	MetaFullName = "full_name"
	MetaName     = "name"
)

// DisplayNameCandidate returns the metadata value for key, or "".
func (i *Identity) DisplayNameCandidate(key string) string {
	if i.Metadata == nil {
		return ""
	}
	return i.Metadata[key]
}
