package services

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/furnimall/furnimall_backend/models"
	"github.com/furnimall/furnimall_backend/utils"
)

const (
	maxWriteAttempts  = 3
	writeRetryBackoff = 50 * time.Millisecond
)

// CommissionSystemStore persists the root ledgers, one per
// manufacturer. Update is conditional on the revision the caller read
// and fails with ErrRevisionConflict when it was changed underneath.
type CommissionSystemStore interface {
	GetByManufacturer(ctx context.Context, manufacturerID primitive.ObjectID) (*models.CommissionSystem, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.CommissionSystem, error)
	Insert(ctx context.Context, system *models.CommissionSystem) error
	Update(ctx context.Context, system *models.CommissionSystem) error
}

// ChannelNodeStore persists the tree nodes. Update carries the same
// revision condition as the system store. NextCodeSeq hands out the
// per-(system, type) sequence used for channel codes.
type ChannelNodeStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.ChannelNode, error)
	ListBySystem(ctx context.Context, systemID primitive.ObjectID) ([]models.ChannelNode, error)
	ListChildren(ctx context.Context, parentID primitive.ObjectID) ([]models.ChannelNode, error)
	CountChildren(ctx context.Context, parentID primitive.ObjectID) (int64, error)
	Insert(ctx context.Context, node *models.ChannelNode) error
	Update(ctx context.Context, node *models.ChannelNode) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	NextCodeSeq(ctx context.Context, systemID primitive.ObjectID, channelType string) (int64, error)
}

// AllocationService orchestrates every create/update/delete against a
// commission system and its channel tree. A node write and the matching
// parent-or-root ledger write form one unit: they run under the
// per-system lock and the persisted revisions are re-checked on write,
// with a bounded retry before the operation gives up.
type AllocationService struct {
	systems  CommissionSystemStore
	channels ChannelNodeStore
	locker   *SystemLocker
}

func NewAllocationService(systems CommissionSystemStore, channels ChannelNodeStore, locker *SystemLocker) *AllocationService {
	return &AllocationService{
		systems:  systems,
		channels: channels,
		locker:   locker,
	}
}

// CreateSystem creates the commission system for a manufacturer.
// Exactly one system may exist per manufacturer, and only the
// manufacturer themselves or an administrator may create it.
func (s *AllocationService) CreateSystem(ctx context.Context, manufacturerID primitive.ObjectID, viewer models.Viewer, req models.CreateCommissionSystemRequest) (*models.CommissionSystem, error) {
	if !viewer.IsAdmin() && viewer.UserID != manufacturerID {
		return nil, ErrForbidden
	}
	if req.FactoryRetainRate > req.TotalMarginRate {
		return nil, &InvariantViolationError{
			TotalMarginRate:   req.TotalMarginRate,
			FactoryRetainRate: req.FactoryRetainRate,
		}
	}

	existing, err := s.systems.GetByManufacturer(ctx, manufacturerID)
	if err != nil && !errors.Is(err, ErrSystemNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrSystemExists
	}

	now := time.Now()
	system := &models.CommissionSystem{
		ManufacturerID:    manufacturerID,
		TotalMarginRate:   req.TotalMarginRate,
		MarginType:        req.MarginType,
		FactoryRetainRate: req.FactoryRetainRate,
		AllocatedRate:     0,
		Status:            models.SystemStatusActive,
		Version:           req.Version,
		CreatedBy:         viewer.UserID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.systems.Insert(ctx, system); err != nil {
		return nil, err
	}
	return system, nil
}

// UpdateSystem changes the root rates. The invariant
// factoryRetainRate + allocatedRate <= totalMarginRate is re-validated
// against the allocation already locked into the tree.
func (s *AllocationService) UpdateSystem(ctx context.Context, manufacturerID primitive.ObjectID, viewer models.Viewer, req models.UpdateCommissionSystemRequest) (*models.CommissionSystem, error) {
	system, err := s.systems.GetByManufacturer(ctx, manufacturerID)
	if err != nil {
		return nil, err
	}
	if !utils.CanSeeAll(system, viewer) {
		return nil, ErrForbidden
	}

	unlock, err := s.locker.Lock(ctx, system.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		system, err = s.systems.GetByID(ctx, system.ID)
		if err != nil {
			return nil, err
		}

		if req.TotalMarginRate != nil {
			system.TotalMarginRate = *req.TotalMarginRate
		}
		if req.FactoryRetainRate != nil {
			system.FactoryRetainRate = *req.FactoryRetainRate
		}
		if req.MarginType != nil {
			system.MarginType = *req.MarginType
		}
		if req.Version != nil {
			system.Version = *req.Version
		}

		if system.FactoryRetainRate+system.AllocatedRate > system.TotalMarginRate {
			return nil, &InvariantViolationError{
				TotalMarginRate:   system.TotalMarginRate,
				FactoryRetainRate: system.FactoryRetainRate,
				AllocatedRate:     system.AllocatedRate,
			}
		}

		system.UpdatedAt = time.Now()
		err = s.systems.Update(ctx, system)
		if errors.Is(err, ErrRevisionConflict) {
			time.Sleep(writeRetryBackoff)
			continue
		}
		if err != nil {
			return nil, err
		}
		return system, nil
	}
	return nil, ErrConcurrentModification
}

// ArchiveSystem soft-disables the system. Channels stay in place; all
// further mutations are rejected until it is re-activated by hand.
func (s *AllocationService) ArchiveSystem(ctx context.Context, manufacturerID primitive.ObjectID, viewer models.Viewer) (*models.CommissionSystem, error) {
	system, err := s.systems.GetByManufacturer(ctx, manufacturerID)
	if err != nil {
		return nil, err
	}
	if !utils.CanSeeAll(system, viewer) {
		return nil, ErrForbidden
	}

	unlock, err := s.locker.Lock(ctx, system.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		system, err = s.systems.GetByID(ctx, system.ID)
		if err != nil {
			return nil, err
		}
		system.Status = models.SystemStatusArchived
		system.UpdatedAt = time.Now()
		err = s.systems.Update(ctx, system)
		if errors.Is(err, ErrRevisionConflict) {
			time.Sleep(writeRetryBackoff)
			continue
		}
		if err != nil {
			return nil, err
		}
		return system, nil
	}
	return nil, ErrConcurrentModification
}

// GetSystemOverview returns the system, the channel tree pruned for the
// viewer, and the matching stats. Reads take no lock.
func (s *AllocationService) GetSystemOverview(ctx context.Context, manufacturerID primitive.ObjectID, viewer models.Viewer) (*models.CommissionSystemOverview, error) {
	system, err := s.systems.GetByManufacturer(ctx, manufacturerID)
	if err != nil {
		return nil, err
	}

	nodes, err := s.channels.ListBySystem(ctx, system.ID)
	if err != nil {
		return nil, err
	}

	seeAll := utils.CanSeeAll(system, viewer)
	views := utils.FilterChannelsForViewer(nodes, viewer, seeAll)
	overview := &models.CommissionSystemOverview{
		Channels: utils.BuildChannelTree(views),
		Stats:    utils.StatsForViewer(system, nodes, viewer, seeAll),
	}
	if seeAll {
		overview.System = system
	} else {
		// Non-owners get the tree but not the manufacturer's ledger
		redacted := *system
		redacted.TotalMarginRate = 0
		redacted.FactoryRetainRate = 0
		redacted.AllocatedRate = 0
		overview.System = &redacted
	}
	return overview, nil
}

// CreateChannel adds a node under the system root (no parentId) or
// under an existing parent, charging the requested commissionRate
// against the parent's or root's remaining budget.
func (s *AllocationService) CreateChannel(ctx context.Context, manufacturerID primitive.ObjectID, viewer models.Viewer, req models.CreateChannelRequest) (*models.CreateChannelResponse, error) {
	system, err := s.systems.GetByManufacturer(ctx, manufacturerID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, system.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var parentID *primitive.ObjectID
	if req.ParentID != "" {
		id, err := primitive.ObjectIDFromHex(req.ParentID)
		if err != nil {
			return nil, ErrParentNotFound
		}
		parentID = &id
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		system, err = s.systems.GetByID(ctx, system.ID)
		if err != nil {
			return nil, err
		}
		if system.Status == models.SystemStatusArchived {
			return nil, ErrSystemArchived
		}

		var parent *models.ChannelNode
		if parentID != nil {
			parent, err = s.channels.GetByID(ctx, *parentID)
			if errors.Is(err, ErrChannelNotFound) {
				return nil, ErrParentNotFound
			}
			if err != nil {
				return nil, err
			}
			if parent.CommissionSystemID != system.ID {
				return nil, ErrCrossSystemParent
			}
		}

		if err := s.checkCreatePermission(ctx, system, parent, viewer); err != nil {
			return nil, err
		}

		// Budget check against the parent, or the root ledger for
		// top-level channels
		var newAllocated float64
		if parent != nil {
			newAllocated, err = utils.TryAllocate(parent.CommissionRate, parent.AllocatedRate, req.CommissionRate)
		} else {
			newAllocated, err = utils.TryAllocate(system.DistributableRate(), system.AllocatedRate, req.CommissionRate)
		}
		if err != nil {
			return nil, err
		}

		// Charge the ledger first; the revision condition catches
		// writers on other instances
		if parent != nil {
			parent.AllocatedRate = newAllocated
			parent.UpdatedAt = time.Now()
			err = s.channels.Update(ctx, parent)
		} else {
			system.AllocatedRate = newAllocated
			system.UpdatedAt = time.Now()
			err = s.systems.Update(ctx, system)
		}
		if errors.Is(err, ErrRevisionConflict) {
			time.Sleep(writeRetryBackoff)
			continue
		}
		if err != nil {
			return nil, err
		}

		seq, err := s.channels.NextCodeSeq(ctx, system.ID, req.Type)
		if err != nil {
			s.releaseLedger(ctx, system, parent, req.CommissionRate)
			return nil, err
		}

		path, level := utils.ChildPath(parent)
		now := time.Now()
		node := &models.ChannelNode{
			Code:               utils.FormatChannelCode(req.Type, seq),
			Name:               req.Name,
			Type:               req.Type,
			Contact:            req.Contact,
			Notes:              req.Notes,
			CommissionSystemID: system.ID,
			ParentID:           parentID,
			Level:              level,
			Path:               path,
			CommissionRate:     req.CommissionRate,
			AllocatedRate:      0,
			IsActive:           true,
			CreatedBy:          viewer.UserID,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := s.channels.Insert(ctx, node); err != nil {
			s.releaseLedger(ctx, system, parent, req.CommissionRate)
			return nil, err
		}

		return &models.CreateChannelResponse{
			Channel: models.NewChannelView(*node),
			Code:    node.Code,
		}, nil
	}
	return nil, ErrConcurrentModification
}

// UpdateChannel changes a channel's descriptive fields and, when a new
// commissionRate is supplied, re-runs the budget checks: the new rate
// must fit the parent's (or root's) budget and may not drop below what
// the channel has already delegated to its own children.
func (s *AllocationService) UpdateChannel(ctx context.Context, channelID primitive.ObjectID, viewer models.Viewer, req models.UpdateChannelRequest) (*models.ChannelView, error) {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, channel.CommissionSystemID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		channel, err = s.channels.GetByID(ctx, channelID)
		if err != nil {
			return nil, err
		}

		system, err := s.systems.GetByID(ctx, channel.CommissionSystemID)
		if err != nil {
			return nil, err
		}
		if system.Status == models.SystemStatusArchived {
			return nil, ErrSystemArchived
		}
		if !s.canMutate(system, channel, viewer) {
			return nil, ErrForbidden
		}

		if req.Name != nil {
			channel.Name = *req.Name
		}
		if req.Contact != nil {
			channel.Contact = *req.Contact
		}
		if req.Notes != nil {
			channel.Notes = *req.Notes
		}
		if req.IsActive != nil {
			// Soft-disable only; the channel's budget stays locked in
			channel.IsActive = *req.IsActive
		}

		rateChanged := req.CommissionRate != nil && *req.CommissionRate != channel.CommissionRate
		oldRate := channel.CommissionRate

		if rateChanged {
			var parent *models.ChannelNode
			var newAllocated float64
			floor := channel.AllocatedRate

			if channel.ParentID != nil {
				parent, err = s.channels.GetByID(ctx, *channel.ParentID)
				if err != nil {
					return nil, err
				}
				newAllocated, err = utils.TryReallocate(parent.CommissionRate, parent.AllocatedRate, oldRate, *req.CommissionRate, floor)
			} else {
				newAllocated, err = utils.TryReallocate(system.DistributableRate(), system.AllocatedRate, oldRate, *req.CommissionRate, floor)
			}
			if err != nil {
				return nil, err
			}

			if parent != nil {
				parent.AllocatedRate = newAllocated
				parent.UpdatedAt = time.Now()
				err = s.channels.Update(ctx, parent)
			} else {
				system.AllocatedRate = newAllocated
				system.UpdatedAt = time.Now()
				err = s.systems.Update(ctx, system)
			}
			if errors.Is(err, ErrRevisionConflict) {
				time.Sleep(writeRetryBackoff)
				continue
			}
			if err != nil {
				return nil, err
			}

			channel.CommissionRate = *req.CommissionRate
			channel.UpdatedAt = time.Now()
			if err := s.channels.Update(ctx, channel); err != nil {
				// Hand the delta back so the ledger is not left charged
				// for a write that never landed
				s.releaseLedgerDelta(ctx, system, parent, *req.CommissionRate-oldRate)
				if errors.Is(err, ErrRevisionConflict) {
					time.Sleep(writeRetryBackoff)
					continue
				}
				return nil, err
			}
			view := models.NewChannelView(*channel)
			return &view, nil
		}

		channel.UpdatedAt = time.Now()
		err = s.channels.Update(ctx, channel)
		if errors.Is(err, ErrRevisionConflict) {
			time.Sleep(writeRetryBackoff)
			continue
		}
		if err != nil {
			return nil, err
		}
		view := models.NewChannelView(*channel)
		return &view, nil
	}
	return nil, ErrConcurrentModification
}

// DeleteChannel removes a leaf channel and returns its full
// commissionRate to the parent's or root's ledger.
func (s *AllocationService) DeleteChannel(ctx context.Context, channelID primitive.ObjectID, viewer models.Viewer) error {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}

	unlock, err := s.locker.Lock(ctx, channel.CommissionSystemID)
	if err != nil {
		return err
	}
	defer unlock()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		channel, err = s.channels.GetByID(ctx, channelID)
		if err != nil {
			return err
		}

		system, err := s.systems.GetByID(ctx, channel.CommissionSystemID)
		if err != nil {
			return err
		}
		if system.Status == models.SystemStatusArchived {
			return ErrSystemArchived
		}
		if !s.canMutate(system, channel, viewer) {
			return ErrForbidden
		}

		count, err := s.channels.CountChildren(ctx, channelID)
		if err != nil {
			return err
		}
		if count > 0 {
			return &HasChildrenError{Count: count}
		}

		if channel.ParentID != nil {
			parent, err := s.channels.GetByID(ctx, *channel.ParentID)
			if err != nil {
				return err
			}
			parent.AllocatedRate = utils.Release(parent.AllocatedRate, channel.CommissionRate)
			parent.UpdatedAt = time.Now()
			err = s.channels.Update(ctx, parent)
			if errors.Is(err, ErrRevisionConflict) {
				time.Sleep(writeRetryBackoff)
				continue
			}
			if err != nil {
				return err
			}
		} else {
			system.AllocatedRate = utils.Release(system.AllocatedRate, channel.CommissionRate)
			system.UpdatedAt = time.Now()
			err = s.systems.Update(ctx, system)
			if errors.Is(err, ErrRevisionConflict) {
				time.Sleep(writeRetryBackoff)
				continue
			}
			if err != nil {
				return err
			}
		}

		if err := s.channels.Delete(ctx, channelID); err != nil {
			log.Printf("allocation: channel %s delete failed after ledger release: %v", channelID.Hex(), err)
			return err
		}
		return nil
	}
	return ErrConcurrentModification
}

// GetChannelDetail returns a channel with its direct children, subtree
// stats and the viewer's permissions on it.
func (s *AllocationService) GetChannelDetail(ctx context.Context, channelID primitive.ObjectID, viewer models.Viewer) (*models.ChannelDetail, error) {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	system, err := s.systems.GetByID(ctx, channel.CommissionSystemID)
	if err != nil {
		return nil, err
	}

	seeAll := utils.CanSeeAll(system, viewer)
	ownsChannel := channel.CreatedBy == viewer.UserID
	underViewer := false
	if !seeAll && !ownsChannel {
		nodes, err := s.channels.ListBySystem(ctx, system.ID)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			if n.CreatedBy == viewer.UserID && utils.IsDescendantOf(*channel, n.ID) {
				underViewer = true
				break
			}
		}
		if !underViewer {
			// Hidden channels are indistinguishable from absent ones
			return nil, ErrChannelNotFound
		}
	}

	children, err := s.channels.ListChildren(ctx, channelID)
	if err != nil {
		return nil, err
	}

	childViews := make([]models.ChannelView, 0, len(children))
	stats := models.ChannelStats{
		ByType:        make(map[string]int),
		AllocatedRate: channel.AllocatedRate,
		AvailableRate: channel.AvailableRate(),
	}
	for _, child := range children {
		childViews = append(childViews, models.NewChannelView(child))
		stats.TotalChannels++
		stats.ByType[child.Type]++
		if child.IsActive {
			stats.ActiveCount++
		}
	}

	canMutate := s.canMutate(system, channel, viewer)
	detail := &models.ChannelDetail{
		Channel:  models.NewChannelView(*channel),
		Children: childViews,
		Stats:    stats,
		Permissions: models.ChannelPermissions{
			CanEdit:        canMutate,
			CanDelete:      canMutate && len(children) == 0,
			CanCreateChild: (canMutate || ownsChannel) && system.Status == models.SystemStatusActive,
		},
	}
	return detail, nil
}

// canMutate implements the single mutation gate: admins, the system
// owner, and the creator of the channel.
func (s *AllocationService) canMutate(system *models.CommissionSystem, channel *models.ChannelNode, viewer models.Viewer) bool {
	if utils.CanSeeAll(system, viewer) {
		return true
	}
	return channel.CreatedBy == viewer.UserID
}

// checkCreatePermission gates channel creation: admins and the owner
// may create anywhere; a channel partner only under a channel they
// created or one inside their own subtree.
func (s *AllocationService) checkCreatePermission(ctx context.Context, system *models.CommissionSystem, parent *models.ChannelNode, viewer models.Viewer) error {
	if utils.CanSeeAll(system, viewer) {
		return nil
	}
	if parent == nil {
		// Root-level budget belongs to the manufacturer alone
		return ErrForbidden
	}
	if parent.CreatedBy == viewer.UserID {
		return nil
	}
	nodes, err := s.channels.ListBySystem(ctx, system.ID)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if n.CreatedBy == viewer.UserID && utils.IsDescendantOf(*parent, n.ID) {
			return nil
		}
	}
	return ErrForbidden
}

// releaseLedger undoes a fresh allocation after a failed node insert.
func (s *AllocationService) releaseLedger(ctx context.Context, system *models.CommissionSystem, parent *models.ChannelNode, amount float64) {
	s.releaseLedgerDelta(ctx, system, parent, amount)
}

// releaseLedgerDelta hands delta back to the parent or root ledger.
// Best effort: under the system lock the only way this fails is the
// store being unreachable, which is logged for operator attention.
func (s *AllocationService) releaseLedgerDelta(ctx context.Context, system *models.CommissionSystem, parent *models.ChannelNode, delta float64) {
	var err error
	if parent != nil {
		parent.AllocatedRate = utils.Release(parent.AllocatedRate, delta)
		err = s.channels.Update(ctx, parent)
	} else {
		system.AllocatedRate = utils.Release(system.AllocatedRate, delta)
		err = s.systems.Update(ctx, system)
	}
	if err != nil {
		log.Printf("allocation: failed to release %.2f back to ledger: %v", delta, err)
	}
}
