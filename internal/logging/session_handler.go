package logging

import "log/slog"

// FieldSessionID is the standardized structured logging key for diagnostic session identifiers.
const FieldSessionID = "session_id"

// newSessionIDHandler binds session_id at the top level of base, ahead of any
// groups a caller opens later.
func newSessionIDHandler(base slog.Handler, sessionID string) slog.Handler {
	if base == nil {
		return NoopHandler{}
	}
	return base.WithAttrs([]slog.Attr{slog.String(FieldSessionID, sessionID)})
}
