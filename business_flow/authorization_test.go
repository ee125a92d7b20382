package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/utils"
)

func TestAuthorization(t *testing.T) {
	authz := NewAuthorization()

	owner := &models.Customer{ID: 10}
	stranger := &models.Customer{ID: 20}
	manager := &models.Customer{ID: 30, IsManager: utils.ToPtr(true)}

	ownedBy := func(id uint) *uint { return &id }

	t.Run("CanView", func(t *testing.T) {
		assert.True(t, authz.CanView(owner, ownedBy(10)))
		assert.False(t, authz.CanView(stranger, ownedBy(10)))
		assert.True(t, authz.CanView(manager, ownedBy(10)))
		assert.True(t, authz.CanView(manager, nil))
		assert.False(t, authz.CanView(stranger, nil))
		assert.False(t, authz.CanView(nil, ownedBy(10)))
	})

	t.Run("CanManage", func(t *testing.T) {
		assert.True(t, authz.CanManage(owner, ownedBy(10)))
		assert.False(t, authz.CanManage(stranger, ownedBy(10)))
		// Owned records are off limits even to managers
		assert.False(t, authz.CanManage(manager, ownedBy(10)))
		// Orphaned records fall to managers
		assert.True(t, authz.CanManage(manager, nil))
		assert.False(t, authz.CanManage(owner, nil))
		assert.False(t, authz.CanManage(nil, nil))
	})

	t.Run("CanToggleCampaign", func(t *testing.T) {
		assert.True(t, authz.CanToggleCampaign(owner, ownedBy(10)))
		assert.True(t, authz.CanToggleCampaign(manager, ownedBy(10)))
		assert.False(t, authz.CanToggleCampaign(stranger, ownedBy(10)))
	})

	t.Run("CanBlockCustomers", func(t *testing.T) {
		assert.True(t, authz.CanBlockCustomers(manager))
		assert.False(t, authz.CanBlockCustomers(owner))
		assert.False(t, authz.CanBlockCustomers(nil))

		demoted := &models.Customer{ID: 40, IsManager: utils.ToPtr(false)}
		assert.False(t, authz.CanBlockCustomers(demoted))
	})
}
