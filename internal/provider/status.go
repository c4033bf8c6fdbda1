package provider

// Status is the canonical fixture status every provider code maps to.
type Status string

const (
	StatusNotStarted  Status = "NOT_STARTED"
	StatusLive        Status = "FT_LIVE"
	StatusHalfTime    Status = "HT_BREAK"
	StatusFinished    Status = "FT_FIN"
	StatusExtraTime   Status = "ET_LIVE"
	StatusPenLive     Status = "PEN_LIVE"
	StatusExtraFin    Status = "ET_FIN"
	StatusBreak       Status = "MISC_BREAK"
	StatusPenFin      Status = "PEN_FIN"
	StatusCanceled    Status = "CANCELED"
	StatusPostponed   Status = "POSTPONED"
	StatusInterrupted Status = "INTERRUPTED"
	StatusAbandoned   Status = "ABANDONED"
	StatusSuspended   Status = "SUSPENDED"
	StatusAwarded     Status = "AWARDED"
	StatusDelayed     Status = "DELAYED"
	StatusTBA         Status = "TBA"
	StatusWalkover    Status = "WALKOVERD"
	StatusWaiting     Status = "WAITING"
	StatusDeleted     Status = "DELETED"
	StatusUnknown     Status = "UNKNOWN"
)

// Phase is the status collapsed to what the scheduler cares about.
type Phase string

const (
	PhaseNotFinished Phase = "NOT_FIN"
	PhaseInPlay      Phase = "IN_PLAY"
	PhaseFinished    Phase = "FIN"
	PhaseUnknown     Phase = "UNKNOWN"
	PhaseDeleted     Phase = "DELETED"
)

var rawStatus = map[string]Status{
	"NS":       StatusNotStarted,
	"LIVE":     StatusLive,
	"HT":       StatusHalfTime,
	"FT":       StatusFinished,
	"FT_FIN":   StatusFinished,
	"ET":       StatusExtraTime,
	"PEN_LIVE": StatusPenLive,
	"AET":      StatusExtraFin,
	"BREAK":    StatusBreak,
	"FT_PEN":   StatusPenFin,
	"CANCL":    StatusCanceled,
	"POSTP":    StatusPostponed,
	"INT":      StatusInterrupted,
	"ABAN":     StatusAbandoned,
	"SUSP":     StatusSuspended,
	"AWARDED":  StatusAwarded,
	"DELAYED":  StatusDelayed,
	"TBA":      StatusTBA,
	"WO":       StatusWalkover,
	"AU":       StatusWaiting,
	"Deleted":  StatusDeleted,
}

// NormalizeStatus maps a raw provider status code to its canonical value.
// Codes the provider adds later map to StatusUnknown.
func NormalizeStatus(code string) Status {
	if s, ok := rawStatus[code]; ok {
		return s
	}
	return StatusUnknown
}

// Phase reports the scheduling phase of s. Postponed, delayed and similar
// fixtures still have to be played and count as not finished.
func (s Status) Phase() Phase {
	switch s {
	case StatusNotStarted, StatusCanceled, StatusPostponed, StatusAbandoned,
		StatusSuspended, StatusDelayed, StatusTBA:
		return PhaseNotFinished
	case StatusLive, StatusHalfTime, StatusExtraTime, StatusPenLive,
		StatusBreak, StatusInterrupted:
		return PhaseInPlay
	case StatusFinished, StatusExtraFin, StatusPenFin, StatusAwarded, StatusWalkover:
		return PhaseFinished
	case StatusDeleted:
		return PhaseDeleted
	default:
		return PhaseUnknown
	}
}
