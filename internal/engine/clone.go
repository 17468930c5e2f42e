package engine

import "matching-core/internal/book"

// cloneCommandExecResult copies the event slice so cached results cannot
// be changed through a returned result. Events themselves are values.
func cloneCommandExecResult(in *CommandExecResult) *CommandExecResult {
	if in == nil {
		return nil
	}

	return &CommandExecResult{
		Events:      append([]book.Event(nil), in.Events...),
		LastEventID: in.LastEventID,
		ErrorCode:   in.ErrorCode,
		Err:         in.Err,
	}
}
