package domain

// IdentitySource tells which store an identity was resolved from.
type IdentitySource string

const (
	IdentitySourceRemote   IdentitySource = "remote"
	IdentitySourceFallback IdentitySource = "fallback"
)

// Identity is the caller as seen by ticket and chat flows.
type Identity struct {
	ID         string         `json:"id"`
	Email      string         `json:"email"`
	FullName   string         `json:"full_name"`
	Department string         `json:"department"`
	Source     IdentitySource `json:"-"`
}
