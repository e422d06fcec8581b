package domain

// ValidateCandidates checks that every candidate range is well-formed and
// contained in the agent's working window for its date. The whole batch is
// rejected on the first violation.
func ValidateCandidates(candidates []TimeRange, window TimeRange) error {
	for _, c := range candidates {
		if !c.Start.Before(c.End) {
			return ErrInvalidTimeRange
		}
		if !window.Contains(c) {
			return ErrOutsideWorkingWindow
		}
	}
	return nil
}

// FindConflict returns the first candidate range that overlaps an active
// commitment, naming the holding commitment and its work orders, or nil when
// the whole batch is compatible. Cancelled and completed commitments never
// conflict.
func FindConflict(candidates []TimeRange, existing []*Commitment) *ConflictError {
	for _, candidate := range candidates {
		for _, commitment := range existing {
			if !commitment.IsActive() {
				continue
			}
			if candidate.Overlaps(commitment.Range()) {
				return &ConflictError{
					CommitmentID: commitment.CommitmentID,
					WorkOrderIDs: commitment.WorkOrderIDs,
					Existing:     commitment.Range(),
					Candidate:    candidate,
				}
			}
		}
	}
	return nil
}
