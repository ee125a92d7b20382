// Package businessflow contains the core business logic and use cases for the mailing platform
package businessflow

import (
	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/utils"
)

// Authorization centralizes every capability decision so flows never
// re-implement ownership checks. ownerID is the customer_id of the record
// under inspection; nil means the record is orphaned.
type Authorization struct{}

func NewAuthorization() *Authorization {
	return &Authorization{}
}

func (a *Authorization) isOwner(customer *models.Customer, ownerID *uint) bool {
	return ownerID != nil && customer != nil && customer.ID == *ownerID
}

func (a *Authorization) isManager(customer *models.Customer) bool {
	return customer != nil && utils.IsTrue(customer.IsManager)
}

// CanView allows the owner of a record or any manager
func (a *Authorization) CanView(customer *models.Customer, ownerID *uint) bool {
	return a.isOwner(customer, ownerID) || a.isManager(customer)
}

// CanManage allows mutation by the owner only. Orphaned records fall to
// managers, otherwise nobody could ever clean them up.
func (a *Authorization) CanManage(customer *models.Customer, ownerID *uint) bool {
	if ownerID == nil {
		return a.isManager(customer)
	}
	return a.isOwner(customer, ownerID)
}

// CanToggleCampaign allows the owner or a manager to flip is_active
func (a *Authorization) CanToggleCampaign(customer *models.Customer, ownerID *uint) bool {
	return a.isOwner(customer, ownerID) || a.isManager(customer)
}

// CanBlockCustomers allows managers only; blocking yourself is rejected at the
// flow level via ErrSelfBlockDenied.
func (a *Authorization) CanBlockCustomers(customer *models.Customer) bool {
	return a.isManager(customer)
}
