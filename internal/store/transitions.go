package store

import "qms/guest-queue-service/internal/models"

const (
	ActionAccept      = "accept"
	ActionFinish      = "finish"
	ActionSkip        = "skip"
	ActionReintegrate = "reintegrate"
	ActionTransfer    = "transfer"
	ActionRemove      = "remove"
	ActionLeave       = "leave"
	ActionArchive     = "archive"
)

var liveStatuses = []string{models.StatusPending, models.StatusAccepted, models.StatusSkipped}

var transitionMap = map[string][]string{
	ActionAccept:      {models.StatusPending},
	ActionFinish:      liveStatuses,
	ActionSkip:        {models.StatusPending, models.StatusAccepted},
	ActionReintegrate: {models.StatusSkipped},
	ActionTransfer:    liveStatuses,
	ActionRemove:      liveStatuses,
	ActionLeave:       liveStatuses,
	ActionArchive:     liveStatuses,
}

func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}
