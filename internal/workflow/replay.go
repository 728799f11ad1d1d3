package workflow

import "github.com/Shady-Akhrass/rasras-plastic-sub001/internal/models"

// ReplayStatus recomputes a request's status from its action log alone,
// given the workflow's ordered steps. The action log carries enough
// redundancy that the stored status on the request row can always be
// reproduced from it; tests and audits use this to verify the ledger.
func ReplayStatus(steps []*models.Step, actions []*models.Action) string {
	lastIndex := len(steps) - 1
	indexOf := make(map[int64]int, len(steps))
	for i, s := range steps {
		indexOf[s.ID] = i
	}

	status := models.StatusPending
	for _, action := range actions {
		switch action.ActionType {
		case models.ActionApproved:
			if idx, ok := indexOf[action.StepID]; ok && idx == lastIndex {
				status = models.StatusApproved
			} else {
				status = models.StatusInProgress
			}
		case models.ActionRejected:
			status = models.StatusRejected
		}
		// Clarify, Delegate and Escalated leave the status untouched

		if State(status).IsTerminal() {
			break
		}
	}

	return status
}
