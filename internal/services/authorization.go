package services

import (
	"fab-panel/internal/models"
)

// AuthorizationService decides whether a user may take control of a
// resource right now. The decision is a pure OR over independent predicates,
// evaluated in order and short-circuiting on the first hit: system
// permission, direct introduction, direct introducer role, then the same two
// checks per group the resource belongs to. Group lookups only happen when
// every direct check failed.
type AuthorizationService struct {
	introductions *IntroductionService
	introducers   *IntroducerService
	resources     *ResourceService
}

func NewAuthorizationService(
	introductions *IntroductionService,
	introducers *IntroducerService,
	resources *ResourceService,
) *AuthorizationService {
	return &AuthorizationService{
		introductions: introductions,
		introducers:   introducers,
		resources:     resources,
	}
}

// CanControl reports whether the user may start or end usage sessions on the
// resource. Read-only; safe to call repeatedly and concurrently.
func (s *AuthorizationService) CanControl(resourceID uint, user *models.User) (bool, error) {
	scope := models.ResourceScope(resourceID)

	checks := []func() (bool, error){
		func() (bool, error) {
			return user.SystemPermissions.CanManageResources, nil
		},
		func() (bool, error) {
			return s.introductions.HasValidIntroduction(scope, user.ID)
		},
		func() (bool, error) {
			return s.introducers.IsIntroducer(scope, user.ID)
		},
		func() (bool, error) {
			return s.canControlViaGroups(resourceID, user.ID)
		},
	}

	for _, check := range checks {
		ok, err := check()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

// canControlViaGroups fans out over the groups the resource belongs to. Any
// single group-level introduction or introducer role suffices; groups have
// no priority between each other.
func (s *AuthorizationService) canControlViaGroups(resourceID, userID uint) (bool, error) {
	groupIDs, err := s.resources.GroupsOf(resourceID)
	if err != nil {
		return false, err
	}

	for _, groupID := range groupIDs {
		scope := models.GroupScope(groupID)

		ok, err := s.introductions.HasValidIntroduction(scope, userID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}

		ok, err = s.introducers.IsIntroducer(scope, userID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}
