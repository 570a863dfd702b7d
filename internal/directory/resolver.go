// internal/directory/resolver.go
package directory

import (
	"context"

	"comms-delivery/internal/common/logger"
)

// Address is the per-channel deliverable address set for a recipient.
// Either field may be empty when the directory has nothing for that channel.
type Address struct {
	Email string
	Phone string
}

// Empty reports whether no channel has a deliverable address.
func (a Address) Empty() bool {
	return a.Email == "" && a.Phone == ""
}

// Resolver maps a recipient identity onto deliverable addresses. A user id
// takes priority over a contact id when both are present.
type Resolver struct {
	lookup Lookup
	log    logger.Logger
}

func NewResolver(lookup Lookup, log logger.Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		log:    log.WithFields(map[string]interface{}{"component": "recipient-resolver"}),
	}
}

// Resolve scans all returned contact records in order and takes the first
// non-empty email and, independently, the first non-empty phone. A failed or
// empty lookup yields an empty Address and no error; deciding whether a
// missing address fails the delivery is left to the caller.
func (r *Resolver) Resolve(ctx context.Context, userID, contactID string) Address {
	contextKey := ContextUser
	entityID := userID
	if userID == "" {
		contextKey = ContextOrgContact
		entityID = contactID
	}
	if entityID == "" {
		return Address{}
	}

	records, err := r.lookup.FindContacts(ctx, contextKey, entityID)
	if err != nil {
		r.log.Warn("directory lookup failed, treating recipient as unresolved", map[string]interface{}{
			"contextKey": contextKey,
			"entityId":   entityID,
			"error":      err.Error(),
		})
		return Address{}
	}

	var addr Address
	for _, rec := range records {
		if addr.Email == "" && rec.Email != "" {
			addr.Email = rec.Email
		}
		if addr.Phone == "" && rec.Phone != "" {
			addr.Phone = rec.Phone
		}
		if addr.Email != "" && addr.Phone != "" {
			break
		}
	}
	return addr
}
