package services

import (
	"encoding/json"
	"log"
	"strconv"

	"fab-panel/internal/events"
	"fab-panel/internal/models"

	"gorm.io/datatypes"
)

// RegisterAuditRecorder subscribes an audit-log writer to the usage
// lifecycle events. Recording is best-effort: a failed write is logged and
// never surfaces to the session operation that emitted the event.
func RegisterAuditRecorder(bus *events.Bus) {
	bus.Subscribe(events.UsageStarted, recordUsageEvent)
	bus.Subscribe(events.UsageEnded, recordUsageEvent)
	bus.Subscribe(events.UsageTakenOver, recordUsageEvent)
}

func recordUsageEvent(event string, payload interface{}) {
	details, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to encode audit details for %s: %v", event, err)
		return
	}

	var userID, resourceID uint
	switch p := payload.(type) {
	case events.UsageStartedEvent:
		userID, resourceID = p.UserID, p.ResourceID
	case events.UsageEndedEvent:
		userID, resourceID = p.UserID, p.ResourceID
	case events.UsageTakenOverEvent:
		userID, resourceID = p.NewUserID, p.ResourceID
	}

	entry := &models.AuditLog{
		UserID:     userID,
		Action:     event,
		Resource:   "resource",
		ResourceID: strconv.FormatUint(uint64(resourceID), 10),
		Details:    datatypes.JSON(details),
	}
	if err := models.DB.Create(entry).Error; err != nil {
		log.Printf("failed to write audit log for %s: %v", event, err)
	}
}
