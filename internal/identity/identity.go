// Package identity distinguishes server-issued user identities from
// local-only guest identities. The shape of the id is the backend selector:
// server-issued ids are UUIDs, everything else stays on the local data path.
package identity

import (
	"strings"

	"github.com/google/uuid"
)

const (
	guestPrefix = "guest-"
	localPrefix = "local-"
)

// IsRemote reports whether the user id was issued by the backend and can be
// used against remote APIs. Guest sessions get locally generated ids that do
// not parse as UUIDs.
func IsRemote(userID string) bool {
	_, err := uuid.Parse(userID)
	return err == nil
}

// IsRemoteOrderID reports whether an order id was assigned by the remote
// backend. Locally persisted orders carry a "local-" prefix instead.
func IsRemoteOrderID(orderID string) bool {
	if strings.HasPrefix(orderID, localPrefix) {
		return false
	}
	_, err := uuid.Parse(orderID)
	return err == nil
}

// NewGuestID generates an identifier for an unauthenticated session. The
// prefix keeps it from ever parsing as a UUID.
func NewGuestID() string {
	return guestPrefix + uuid.New().String()
}

// NewLocalOrderID generates an order id for locally persisted orders.
func NewLocalOrderID() string {
	return localPrefix + uuid.New().String()
}
