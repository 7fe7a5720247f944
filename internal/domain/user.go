// Package domain contains entities without logic, just meta-data.
package domain

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// User is the persisted account behind a connection's identity.
type User struct {
	ID        UserID
	Username  string
	Role      Role
	AvatarURL string
	Bio       string
	IsBanned  bool
}

// Claims is what the identity verifier extracts from an auth token.
type Claims struct {
	UserID      UserID
	DisplayName string
	Role        Role
}
