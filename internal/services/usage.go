package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"fab-panel/internal/events"
	"fab-panel/internal/models"

	"gorm.io/gorm"
)

var (
	ErrMissingIntroduction = errors.New("you must complete the resource introduction before using it")
	ErrResourceBusy        = errors.New("resource is currently in use by another user")
	ErrTakeOverNotAllowed  = errors.New("this resource does not allow takeover")
	ErrNoActiveSession     = errors.New("no active session found")
	ErrNotSessionOwner     = errors.New("only the session owner or a resource manager may end the session")
)

type StartSessionOptions struct {
	Notes         string
	ForceTakeOver bool
}

type EndSessionOptions struct {
	Notes string
}

// UsageService enforces the usage session state machine: per resource either
// no session is open, or exactly one is, owned by a single user. Start and
// end transitions for the same resource are serialized through a per-resource
// mutex so two racing starts can never both pass the "no active session"
// check and open a second session.
type UsageService struct {
	authorization *AuthorizationService
	resources     *ResourceService
	bus           *events.Bus

	locksMu sync.Mutex
	locks   map[uint]*sync.Mutex
}

func NewUsageService(
	authorization *AuthorizationService,
	resources *ResourceService,
	bus *events.Bus,
) *UsageService {
	return &UsageService{
		authorization: authorization,
		resources:     resources,
		bus:           bus,
		locks:         make(map[uint]*sync.Mutex),
	}
}

// resourceLock returns the mutex serializing session transitions for one
// resource. Locks are never removed; the map grows with the number of
// resources ever used, which stays small.
func (s *UsageService) resourceLock(resourceID uint) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[resourceID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[resourceID] = lock
	}

	return lock
}

// StartSession opens a usage session on the resource for the user. If
// another user holds the resource the call fails with ErrResourceBusy unless
// a takeover is requested and the resource allows it, in which case the old
// session is closed and a new one opened. A start by the user who already
// owns the active session returns that session unchanged.
func (s *UsageService) StartSession(resourceID uint, user *models.User, opts StartSessionOptions) (*models.UsageSession, error) {
	resource, err := s.resources.GetResource(resourceID)
	if err != nil {
		return nil, err
	}

	canControl, err := s.authorization.CanControl(resourceID, user)
	if err != nil {
		return nil, err
	}
	if !canControl {
		return nil, ErrMissingIntroduction
	}

	lock := s.resourceLock(resourceID)
	lock.Lock()
	defer lock.Unlock()

	active, err := s.GetActiveSession(resourceID)
	if err != nil {
		return nil, err
	}

	if active == nil {
		session, err := s.openSession(resourceID, user.ID, opts.Notes)
		if err != nil {
			return nil, err
		}

		s.bus.Emit(events.UsageStarted, events.UsageStartedEvent{
			ResourceID: resourceID,
			SessionID:  session.ID,
			UserID:     user.ID,
			StartTime:  session.StartTime,
		})

		return session, nil
	}

	if active.UserID == user.ID {
		// Re-entrant start by the current owner is a no-op.
		return active, nil
	}

	if !opts.ForceTakeOver {
		return nil, ErrResourceBusy
	}
	if !resource.AllowTakeOver {
		return nil, ErrTakeOverNotAllowed
	}

	now := time.Now()
	endNotes := fmt.Sprintf("Session ended due to takeover by user %d", user.ID)
	if err := s.closeSession(active.ID, now, endNotes); err != nil {
		return nil, err
	}

	session, err := s.openSession(resourceID, user.ID, opts.Notes)
	if err != nil {
		return nil, err
	}

	s.bus.Emit(events.UsageTakenOver, events.UsageTakenOverEvent{
		ResourceID:     resourceID,
		SessionID:      session.ID,
		PreviousUserID: active.UserID,
		NewUserID:      user.ID,
		TakenOverAt:    now,
	})

	return session, nil
}

// EndSession closes the active session of the resource. Only the session
// owner or a user with the resource management permission may end it.
func (s *UsageService) EndSession(resourceID uint, user *models.User, opts EndSessionOptions) (*models.UsageSession, error) {
	lock := s.resourceLock(resourceID)
	lock.Lock()
	defer lock.Unlock()

	active, err := s.GetActiveSession(resourceID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, ErrNoActiveSession
	}

	if active.UserID != user.ID && !user.SystemPermissions.CanManageResources {
		return nil, ErrNotSessionOwner
	}

	now := time.Now()
	if err := s.closeSession(active.ID, now, opts.Notes); err != nil {
		return nil, err
	}

	session, err := s.getSession(active.ID)
	if err != nil {
		return nil, err
	}

	s.bus.Emit(events.UsageEnded, events.UsageEndedEvent{
		ResourceID: resourceID,
		SessionID:  session.ID,
		UserID:     session.UserID,
		StartTime:  session.StartTime,
		EndTime:    now,
	})

	return session, nil
}

// GetActiveSession returns the open session of the resource, or nil if the
// resource is idle.
func (s *UsageService) GetActiveSession(resourceID uint) (*models.UsageSession, error) {
	var session models.UsageSession
	err := models.DB.
		Where("resource_id = ? AND end_time IS NULL", resourceID).
		Preload("User").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	session.User.PasswordHash = ""
	return &session, nil
}

// GetResourceHistory returns the usage sessions of a resource, newest first
// by start time, optionally filtered to one user. userID zero means no
// filter. Returns the page rows and the total count over the same filter.
func (s *UsageService) GetResourceHistory(resourceID uint, page, limit int, userID uint) ([]models.UsageSession, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	query := models.DB.Model(&models.UsageSession{}).Where("resource_id = ?", resourceID)
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessions []models.UsageSession
	err := query.
		Preload("User").
		Order("start_time DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, 0, err
	}

	for i := range sessions {
		sessions[i].User.PasswordHash = ""
	}

	return sessions, total, nil
}

// GetUserHistory returns the usage sessions of one user across all
// resources, newest first by start time.
func (s *UsageService) GetUserHistory(userID uint, page, limit int) ([]models.UsageSession, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	query := models.DB.Model(&models.UsageSession{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessions []models.UsageSession
	err := query.
		Preload("Resource").
		Order("start_time DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

func (s *UsageService) openSession(resourceID, userID uint, notes string) (*models.UsageSession, error) {
	session := &models.UsageSession{
		ResourceID: resourceID,
		UserID:     userID,
		StartTime:  time.Now(),
		StartNotes: notes,
	}
	if err := models.DB.Create(session).Error; err != nil {
		return nil, err
	}

	return s.getSession(session.ID)
}

// closeSession stamps the end time and notes. This is the only mutation ever
// applied to an existing session row.
func (s *UsageService) closeSession(sessionID uint, endTime time.Time, endNotes string) error {
	return models.DB.
		Model(&models.UsageSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"end_time":  endTime,
			"end_notes": endNotes,
		}).Error
}

func (s *UsageService) getSession(sessionID uint) (*models.UsageSession, error) {
	var session models.UsageSession
	err := models.DB.
		Preload("User").
		Preload("Resource").
		First(&session, sessionID).Error
	if err != nil {
		return nil, err
	}

	session.User.PasswordHash = ""
	return &session, nil
}
