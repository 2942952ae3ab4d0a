package events

const (
	StreamName   = "GRADECALC_EVENTS"
	StreamMaxAge = "24h"
)

func SubjectEntryUpdated(sessionID string) string {
	return "grades.session." + sessionID + ".entry.updated"
}

func SubjectResultsComputed(sessionID string) string {
	return "grades.session." + sessionID + ".results.computed"
}

// SubjectStatelessCompute is used for /compute calls, which have no session.
const SubjectStatelessCompute = "grades.compute.results.computed"
